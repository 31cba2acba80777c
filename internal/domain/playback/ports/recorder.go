// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ports

import (
	"context"
	"time"
)

// SessionStart is emitted once per successful LoadStream.
type SessionStart struct {
	SessionID string
	URL       string
	At        time.Time
}

// Recorder receives session-start notifications. Failures never affect playback.
type Recorder interface {
	RecordSessionStart(ctx context.Context, start SessionStart) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, start SessionStart) error

func (f RecorderFunc) RecordSessionStart(ctx context.Context, start SessionStart) error {
	return f(ctx, start)
}
