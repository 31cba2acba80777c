// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"fmt"
	"strconv"
)

// QualityLevel is one rendition of the source as announced by the manifest.
// Values are immutable once constructed; use NewQualityLevel.
type QualityLevel struct {
	ID      int    `json:"id"`      // engine-assigned level index
	Bitrate int    `json:"bitrate"` // bits per second
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Name    string `json:"name"` // "<height>p"
	Codecs  string `json:"codecs,omitempty"`
}

// NewQualityLevel builds a level and derives its display name.
func NewQualityLevel(id, bitrate, width, height int, codecs string) QualityLevel {
	return QualityLevel{
		ID:      id,
		Bitrate: bitrate,
		Width:   width,
		Height:  height,
		Name:    strconv.Itoa(height) + "p",
		Codecs:  codecs,
	}
}

// Resolution renders the level as "WxH".
func (q QualityLevel) Resolution() string {
	return fmt.Sprintf("%dx%d", q.Width, q.Height)
}

// autoLevel is the engine value for automatic level selection.
const autoLevel = -1

// QualitySelection is either a concrete level id or the automatic sentinel.
type QualitySelection struct {
	level int
}

// AutoQuality lets the engine's ABR logic pick the level.
var AutoQuality = QualitySelection{level: autoLevel}

// Level selects a concrete level id.
func Level(id int) QualitySelection {
	return QualitySelection{level: id}
}

// IsAuto reports whether the selection is the automatic sentinel.
func (s QualitySelection) IsAuto() bool { return s.level == autoLevel }

// LevelID returns the concrete level id and false for AutoQuality.
func (s QualitySelection) LevelID() (int, bool) {
	if s.IsAuto() {
		return 0, false
	}
	return s.level, true
}

// EngineValue is the value handed to the engine (-1 for auto).
func (s QualitySelection) EngineValue() int { return s.level }

func (s QualitySelection) String() string {
	if s.IsAuto() {
		return "auto"
	}
	return strconv.Itoa(s.level)
}

// ParseQualitySelection accepts "auto" or a decimal level id.
func ParseQualitySelection(raw string) (QualitySelection, error) {
	if raw == "auto" {
		return AutoQuality, nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		return QualitySelection{}, fmt.Errorf("%w: %q", ErrInvalidSelection, raw)
	}
	return Level(id), nil
}

// MarshalText renders "auto" or the level id.
func (s QualitySelection) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *QualitySelection) UnmarshalText(b []byte) error {
	parsed, err := ParseQualitySelection(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
