// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"errors"
	"fmt"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
)

// ErrIllegalTransition is returned for events the decision table forbids.
var ErrIllegalTransition = errors.New("illegal transition")

// Next resolves the status that follows from + ev. Forbidden events return
// an error wrapping ErrIllegalTransition and leave the status untouched.
func Next(from model.Status, ev EventKind) (Transition, error) {
	decision, ok := DecisionFor(from, ev)
	if !ok || !decision.Allowed {
		reason := "undefined"
		if ok {
			reason = decision.Reason
		}
		return illegalTransition(from, ev, reason)
	}
	tr, ok := TransitionFor(from, ev)
	if !ok {
		return illegalTransition(from, ev, "missing_edge")
	}
	return tr, nil
}

func illegalError(from model.Status, ev EventKind, reason string) error {
	return fmt.Errorf("%w: %s + %s (%s)", ErrIllegalTransition, from, ev, reason)
}
