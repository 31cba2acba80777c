// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package controller

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
)

// Stats is the stream information panel derived from a snapshot.
type Stats struct {
	Resolution   string        `json:"resolution,omitempty"`
	Bitrate      string        `json:"bitrate,omitempty"`
	Codec        string        `json:"codec,omitempty"`
	BufferHealth int           `json:"bufferHealth"`
	Status       string        `json:"status"`
	StartedAt    time.Time     `json:"startTime,omitzero"`
	Elapsed      time.Duration `json:"-"`
}

// Stats describes the selected level, or the highest level under automatic
// selection. now is used for the elapsed time.
func (s Snapshot) Stats(now time.Time) Stats {
	st := Stats{
		Status:       statusLabel(s.Status),
		BufferHealth: int(math.Round(s.State.BufferedFraction * 100)),
		StartedAt:    s.StartedAt,
	}
	if !s.StartedAt.IsZero() && now.After(s.StartedAt) {
		st.Elapsed = now.Sub(s.StartedAt).Truncate(time.Second)
	}
	if lvl, ok := s.displayLevel(); ok {
		if lvl.Width > 0 && lvl.Height > 0 {
			st.Resolution = lvl.Resolution()
		}
		if lvl.Bitrate > 0 {
			st.Bitrate = fmt.Sprintf("%.1f Mbps", float64(lvl.Bitrate)/1e6)
		}
		st.Codec = codecLabel(lvl.Codecs)
	}
	return st
}

func (s Snapshot) displayLevel() (model.QualityLevel, bool) {
	if len(s.Levels) == 0 {
		return model.QualityLevel{}, false
	}
	if id, ok := s.State.SelectedQuality.LevelID(); ok {
		for _, l := range s.Levels {
			if l.ID == id {
				return l, true
			}
		}
	}
	best := s.Levels[0]
	for _, l := range s.Levels[1:] {
		if l.Height > best.Height || (l.Height == best.Height && l.Bitrate > best.Bitrate) {
			best = l
		}
	}
	return best, true
}

func statusLabel(st model.Status) string {
	switch st {
	case model.StatusPlaying:
		return "live"
	case model.StatusAttaching, model.StatusBuffering:
		return "buffering"
	case model.StatusErrored:
		return "error"
	default:
		return "idle"
	}
}

// codecLabel names the video codec of an RFC 6381 CODECS list.
func codecLabel(codecs string) string {
	if codecs == "" {
		return ""
	}
	first := strings.TrimSpace(strings.Split(codecs, ",")[0])
	family, _, _ := strings.Cut(first, ".")
	switch strings.ToLower(family) {
	case "avc1", "avc3":
		return "H.264"
	case "hvc1", "hev1":
		return "H.265"
	case "av01":
		return "AV1"
	case "vp09":
		return "VP9"
	default:
		return first
	}
}
