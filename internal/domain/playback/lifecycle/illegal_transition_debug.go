// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build debug

package lifecycle

import "github.com/ManuGH/hlswatch/internal/domain/playback/model"

// Engine/sink races are expected, so only invariant breaches of the tables
// themselves panic in debug builds.
func illegalTransition(from model.Status, ev EventKind, reason string) (Transition, error) {
	if reason == "undefined" || reason == "missing_edge" {
		panic(illegalError(from, ev, reason))
	}
	return Transition{From: from, To: from, Event: ev}, illegalError(from, ev, reason)
}
