// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

// Status is the lifecycle status of a playback session.
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusAttaching Status = "ATTACHING"
	StatusPlaying   Status = "PLAYING"
	StatusBuffering Status = "BUFFERING"
	StatusErrored   Status = "ERRORED"
	StatusDestroyed Status = "DESTROYED"
)

// AllStatuses lists every status in declaration order.
var AllStatuses = []Status{
	StatusIdle,
	StatusAttaching,
	StatusPlaying,
	StatusBuffering,
	StatusErrored,
	StatusDestroyed,
}

// IsTerminal returns true for Destroyed.
func (s Status) IsTerminal() bool {
	return s == StatusDestroyed
}

// IsActive reports whether an engine handle may be live in this status.
func (s Status) IsActive() bool {
	switch s {
	case StatusAttaching, StatusPlaying, StatusBuffering:
		return true
	}
	return false
}
