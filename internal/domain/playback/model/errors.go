// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidSource    = errors.New("invalid source")
	ErrInvalidSelection = errors.New("invalid quality selection")
	ErrNotErrored       = errors.New("session is not in errored state")
	ErrNoSession        = errors.New("no active session")
	ErrSinkBusy         = errors.New("media sink is owned by another controller")
	ErrHandleLeak       = errors.New("engine handle still attached")
	ErrClosed           = errors.New("controller closed")
	ErrSeekUnavailable  = errors.New("seek unavailable: duration unknown")
	ErrInvalidControl   = errors.New("invalid control value")
)

// WarningKind distinguishes non-fatal problems.
type WarningKind string

const (
	WarnEngine         WarningKind = "engine"
	WarnAutoplay       WarningKind = "autoplay_blocked"
	WarnRecorderFailed WarningKind = "recorder_failed"
)

// Warning is a non-fatal problem surfaced to the caller; playback continues.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// SessionError is the fatal error that moved a session to Errored.
type SessionError struct {
	Category  ErrorCategory `json:"category"`
	Message   string        `json:"message"`
	Retryable bool          `json:"retryable"`
	At        time.Time     `json:"at"`
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("fatal %s error: %s", e.Category, e.Message)
}

// Text is the user-facing rendering: cause plus retry affordance.
func (e *SessionError) Text() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("Playback failed (%s error): %s.", e.Category, e.Message)
	if e.Retryable {
		msg += " Retry to reload the stream, or load a different URL."
	} else {
		msg += " Load a different URL."
	}
	return msg
}
