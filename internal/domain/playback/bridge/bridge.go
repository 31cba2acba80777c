// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package bridge folds media sink events into PlaybackState.
package bridge

import (
	"math"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/domain/playback/ports"
)

// Apply merges ev into prev and returns the new state. prev is not modified.
// Malformed payloads keep the last valid value. Kinds other than time update,
// duration change, play and pause return prev unchanged.
func Apply(prev model.PlaybackState, ev ports.SinkEvent) model.PlaybackState {
	next := prev
	switch ev.Kind {
	case ports.SinkTimeUpdate:
		if validTime(ev.CurrentTime) {
			next.CurrentTime = ev.CurrentTime
		}
		next.CurrentTime = clampToDuration(next.CurrentTime, next)
		next.BufferedFraction = BufferedFraction(ev.Buffered, next.Duration)
	case ports.SinkDurationChange:
		if validTime(ev.Duration) {
			next.Duration = ev.Duration
			next.CurrentTime = clampToDuration(next.CurrentTime, next)
		}
	case ports.SinkPlay:
		next.IsPlaying = true
	case ports.SinkPause:
		next.IsPlaying = false
	}
	return next
}

// BufferedFraction is the end of the last buffered range divided by duration,
// clamped to [0,1]. It is 0 when the duration is unknown or not positive.
func BufferedFraction(ranges []ports.TimeRange, duration float64) float64 {
	if len(ranges) == 0 || !validTime(duration) || duration == 0 {
		return 0
	}
	end := ranges[len(ranges)-1].End
	if !validTime(end) {
		return 0
	}
	return math.Min(1, end/duration)
}

func validTime(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func clampToDuration(t float64, s model.PlaybackState) float64 {
	if s.DurationKnown() && t > s.Duration {
		return s.Duration
	}
	return t
}
