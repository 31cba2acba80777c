// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"time"

	"github.com/ManuGH/hlswatch/internal/domain/playback/controller"
	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
)

// SessionView is the wire form of a controller snapshot.
type SessionView struct {
	ID               string               `json:"id"`
	SinkID           string               `json:"sinkId"`
	SessionID        string               `json:"sessionId,omitempty"`
	URL              string               `json:"url,omitempty"`
	Status           model.Status         `json:"status"`
	Generation       uint64               `json:"generation"`
	Seq              uint64               `json:"seq"`
	State            StateView            `json:"state"`
	Levels           []model.QualityLevel `json:"levels"`
	Warning          *model.Warning       `json:"warning,omitempty"`
	Error            *ErrorView           `json:"error,omitempty"`
	RecoveryAttempts int                  `json:"recoveryAttempts"`
	Stats            StatsView            `json:"stats"`
}

// StateView carries the playback state; Duration is null until known.
type StateView struct {
	model.PlaybackState
	Duration       *float64 `json:"duration"`
	PlayedFraction float64  `json:"playedFraction"`
}

// ErrorView adds the user-facing text to a fatal session error.
type ErrorView struct {
	*model.SessionError
	Text string `json:"text"`
}

type StatsView struct {
	controller.Stats
	ElapsedSeconds int64 `json:"elapsedSeconds"`
}

func newSessionView(s controller.Snapshot, now time.Time) SessionView {
	levels := s.Levels
	if levels == nil {
		levels = []model.QualityLevel{}
	}
	v := SessionView{
		ID:               s.ControllerID,
		SinkID:           s.SinkID,
		SessionID:        s.SessionID,
		URL:              s.URL,
		Status:           s.Status,
		Generation:       s.Generation,
		Seq:              s.Seq,
		State:            newStateView(s.State),
		Levels:           levels,
		Warning:          s.Warning,
		RecoveryAttempts: s.RecoveryAttempts,
	}
	if s.Error != nil {
		v.Error = &ErrorView{SessionError: s.Error, Text: s.Error.Text()}
	}
	st := s.Stats(now)
	v.Stats = StatsView{Stats: st, ElapsedSeconds: int64(st.Elapsed / time.Second)}
	return v
}

func newStateView(st model.PlaybackState) StateView {
	v := StateView{PlaybackState: st, PlayedFraction: st.PlayedFraction()}
	if st.DurationKnown() {
		d := st.Duration
		v.Duration = &d
	}
	return v
}
