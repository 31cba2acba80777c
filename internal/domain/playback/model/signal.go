// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

// ErrorCategory classifies an engine error.
type ErrorCategory string

const (
	CategoryNetwork ErrorCategory = "network"
	CategoryMedia   ErrorCategory = "media"
	CategoryOther   ErrorCategory = "other"
)

// ErrorSignal is an error reported by the streaming engine.
type ErrorSignal struct {
	Fatal    bool
	Category ErrorCategory
	Details  string
}

// Action is the recovery decision for an ErrorSignal.
type Action int

const (
	ActionIgnore Action = iota
	ActionRetryLoad
	ActionRecoverMediaPipeline
	ActionFatalTeardown
)

func (a Action) String() string {
	switch a {
	case ActionIgnore:
		return "ignore"
	case ActionRetryLoad:
		return "retry_load"
	case ActionRecoverMediaPipeline:
		return "recover_media_pipeline"
	case ActionFatalTeardown:
		return "fatal_teardown"
	default:
		return "unknown"
	}
}
