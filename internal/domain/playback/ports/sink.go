// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ports

import "errors"

// ErrAutoplayBlocked is returned by Sink.Play when the platform refuses to
// start unmuted playback without a user gesture.
var ErrAutoplayBlocked = errors.New("autoplay blocked")

// SinkEventKind enumerates media element notifications.
type SinkEventKind int

const (
	SinkTimeUpdate SinkEventKind = iota + 1
	SinkDurationChange
	SinkPlay
	SinkPause
	SinkWaiting // buffer starved
	SinkPlaying // playback resumed after starvation
)

func (k SinkEventKind) String() string {
	switch k {
	case SinkTimeUpdate:
		return "timeupdate"
	case SinkDurationChange:
		return "durationchange"
	case SinkPlay:
		return "play"
	case SinkPause:
		return "pause"
	case SinkWaiting:
		return "waiting"
	case SinkPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// TimeRange is one buffered range in seconds.
type TimeRange struct {
	Start float64
	End   float64
}

// SinkEvent carries the payload of one media element notification.
type SinkEvent struct {
	Kind        SinkEventKind
	CurrentTime float64     // SinkTimeUpdate
	Buffered    []TimeRange // SinkTimeUpdate
	Duration    float64     // SinkDurationChange
}

// Sink is the media element the engine renders into.
type Sink interface {
	ID() string
	Play() error
	Pause()
	SetMuted(muted bool)
	SetVolume(volume float64)
	Seek(seconds float64)
	// Reset clears the current source from the element.
	Reset()
	Subscribe(fn func(SinkEvent)) (cancel func())
}
