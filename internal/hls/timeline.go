// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package hls reads timing information out of HLS media playlists.
package hls

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	tagTargetDuration = "#EXT-X-TARGETDURATION:"
	tagPlaylistType   = "#EXT-X-PLAYLIST-TYPE:"
	tagProgramDate    = "#EXT-X-PROGRAM-DATE-TIME:"
	tagExtInf         = "#EXTINF:"
	tagEndList        = "#EXT-X-ENDLIST"
	tagStreamInf      = "#EXT-X-STREAM-INF"
)

// Timeline summarizes a media playlist.
type Timeline struct {
	Segments       int
	TotalDuration  time.Duration
	TargetDuration time.Duration
	// Live is true unless the playlist is VOD or carries EXT-X-ENDLIST.
	Live     bool
	HasPDT   bool
	FirstPDT time.Time
	LastPDT  time.Time
}

// Seconds returns the total duration as float seconds, the unit media sinks use.
func (t *Timeline) Seconds() float64 {
	return t.TotalDuration.Seconds()
}

// ExtractTimeline parses a media playlist.
// Program date times must be monotonic, and a live playlist that dates some
// segments must date all of them.
func ExtractTimeline(r io.Reader) (*Timeline, error) {
	scanner := bufio.NewScanner(r)
	tl := &Timeline{}

	var (
		pendingDur time.Duration
		pendingPDT time.Time
		lastPDT    time.Time
		dated      int
		sawHeader  bool
		endList    bool
		typeVOD    bool
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !sawHeader {
			if line != "#EXTM3U" {
				return nil, fmt.Errorf("missing #EXTM3U header")
			}
			sawHeader = true
			continue
		}

		switch {
		case strings.HasPrefix(line, tagStreamInf):
			return nil, fmt.Errorf("master playlist passed as media playlist")
		case strings.HasPrefix(line, tagPlaylistType):
			typeVOD = strings.TrimPrefix(line, tagPlaylistType) == "VOD"
		case line == tagEndList:
			endList = true
		case strings.HasPrefix(line, tagTargetDuration):
			v := strings.TrimPrefix(line, tagTargetDuration)
			secs, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid target duration %q", v)
			}
			tl.TargetDuration = time.Duration(secs) * time.Second
		case strings.HasPrefix(line, tagProgramDate):
			raw := strings.TrimPrefix(line, tagProgramDate)
			ts, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return nil, fmt.Errorf("invalid program date time %q", raw)
			}
			if !lastPDT.IsZero() && ts.Before(lastPDT) {
				return nil, fmt.Errorf("program date time went backwards: %v < %v", ts, lastPDT)
			}
			pendingPDT, lastPDT = ts, ts
		case strings.HasPrefix(line, tagExtInf):
			v := strings.TrimPrefix(line, tagExtInf)
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			secs, err := strconv.ParseFloat(v, 64)
			if err != nil || secs < 0 {
				return nil, fmt.Errorf("invalid segment duration %q", v)
			}
			pendingDur = time.Duration(secs * float64(time.Second))
		case strings.HasPrefix(line, "#"):
			// other tags are irrelevant to timing
		default:
			tl.Segments++
			tl.TotalDuration += pendingDur
			if !pendingPDT.IsZero() {
				dated++
				if tl.FirstPDT.IsZero() {
					tl.FirstPDT = pendingPDT
				}
				tl.LastPDT = pendingPDT
			}
			pendingDur, pendingPDT = 0, time.Time{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, fmt.Errorf("empty playlist")
	}

	tl.Live = !typeVOD && !endList
	tl.HasPDT = dated > 0
	if tl.Live && tl.HasPDT && dated != tl.Segments {
		return nil, fmt.Errorf("partial program date time coverage in live playlist (%d/%d)", dated, tl.Segments)
	}
	return tl, nil
}
