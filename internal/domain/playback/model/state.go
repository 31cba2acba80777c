// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "math"

// DefaultVolume matches the initial volume of the web player.
const DefaultVolume = 0.7

// PlaybackState is the normalized view of the media sink.
// It is mutated only by the session controller; everyone else gets copies.
type PlaybackState struct {
	IsPlaying        bool             `json:"isPlaying"`
	CurrentTime      float64          `json:"currentTime"`
	Duration         float64          `json:"-"` // NaN until known
	BufferedFraction float64          `json:"bufferedFraction"`
	Volume           float64          `json:"volume"`
	Muted            bool             `json:"muted"`
	Fullscreen       bool             `json:"fullscreen"`
	SelectedQuality  QualitySelection `json:"selectedQuality"`
}

// NewPlaybackState returns the state of a freshly created or torn down session.
func NewPlaybackState() PlaybackState {
	return PlaybackState{
		Duration:        math.NaN(),
		Volume:          DefaultVolume,
		SelectedQuality: AutoQuality,
	}
}

// DurationKnown reports whether the sink has announced a finite duration.
func (s PlaybackState) DurationKnown() bool {
	return !math.IsNaN(s.Duration) && !math.IsInf(s.Duration, 0)
}

// PlayedFraction is CurrentTime/Duration, 0 when the duration is unknown or zero.
func (s PlaybackState) PlayedFraction() float64 {
	if !s.DurationKnown() || s.Duration <= 0 {
		return 0
	}
	return math.Min(1, s.CurrentTime/s.Duration)
}
