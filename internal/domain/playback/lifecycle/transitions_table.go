// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package lifecycle is the single source of truth for playback session status
// transitions.
package lifecycle

import "github.com/ManuGH/hlswatch/internal/domain/playback/model"

// Transition is a single allowed edge in the lifecycle state machine.
type Transition struct {
	From  model.Status
	To    model.Status
	Event EventKind
}

var transitionsTable = []Transition{
	// Start path
	{From: model.StatusIdle, To: model.StatusAttaching, Event: EvLoadRequested},
	{From: model.StatusAttaching, To: model.StatusAttaching, Event: EvEngineAttached},
	{From: model.StatusAttaching, To: model.StatusPlaying, Event: EvManifestParsed},

	// Manifest reloads after a RetryLoad replace the catalog in place
	{From: model.StatusPlaying, To: model.StatusPlaying, Event: EvManifestParsed},
	{From: model.StatusBuffering, To: model.StatusBuffering, Event: EvManifestParsed},

	// Buffering
	{From: model.StatusPlaying, To: model.StatusBuffering, Event: EvBufferStarved},
	{From: model.StatusBuffering, To: model.StatusPlaying, Event: EvBufferRecovered},

	// Recovery keeps the current status
	{From: model.StatusAttaching, To: model.StatusAttaching, Event: EvRecoverableError},
	{From: model.StatusPlaying, To: model.StatusPlaying, Event: EvRecoverableError},
	{From: model.StatusBuffering, To: model.StatusBuffering, Event: EvRecoverableError},

	// Fatal
	{From: model.StatusAttaching, To: model.StatusErrored, Event: EvFatalError},
	{From: model.StatusPlaying, To: model.StatusErrored, Event: EvFatalError},
	{From: model.StatusBuffering, To: model.StatusErrored, Event: EvFatalError},

	// Manual retry
	{From: model.StatusErrored, To: model.StatusAttaching, Event: EvRetryRequested},

	// Teardown
	{From: model.StatusIdle, To: model.StatusDestroyed, Event: EvDestroyRequested},
	{From: model.StatusAttaching, To: model.StatusDestroyed, Event: EvDestroyRequested},
	{From: model.StatusPlaying, To: model.StatusDestroyed, Event: EvDestroyRequested},
	{From: model.StatusBuffering, To: model.StatusDestroyed, Event: EvDestroyRequested},
	{From: model.StatusErrored, To: model.StatusDestroyed, Event: EvDestroyRequested},
}

// TransitionFor returns the allowed transition for a given status+event.
func TransitionFor(from model.Status, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}
