// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package recovery maps engine error signals to recovery actions.
package recovery

import "github.com/ManuGH/hlswatch/internal/domain/playback/model"

// Decide is the recovery decision table. It is pure: the same signal always
// yields the same action. Retry bounding lives in Budget, owned by the caller.
func Decide(sig model.ErrorSignal) model.Action {
	if !sig.Fatal {
		return model.ActionIgnore
	}
	switch sig.Category {
	case model.CategoryNetwork:
		return model.ActionRetryLoad
	case model.CategoryMedia:
		return model.ActionRecoverMediaPipeline
	default:
		return model.ActionFatalTeardown
	}
}

// IsRecoverable reports whether the action keeps the session alive.
func IsRecoverable(a model.Action) bool {
	return a == model.ActionRetryLoad || a == model.ActionRecoverMediaPipeline
}
