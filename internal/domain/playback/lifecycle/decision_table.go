// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/hlswatch/internal/domain/playback/model"

// Decision records whether a transition is allowed and why it is forbidden.
type Decision struct {
	Allowed bool
	Reason  string
}

const (
	ForbiddenTerminalAbsorbing = "terminal_absorbing"
	ForbiddenOutOfOrder        = "out_of_order"
	ForbiddenAlreadyInState    = "already_in_state"
	ForbiddenRequiresSession   = "requires_session"
	ForbiddenRequiresPlaying   = "requires_playing"
	ForbiddenRequiresErrored   = "requires_errored"
	ForbiddenSessionErrored    = "session_errored"
)

func allowed() Decision        { return Decision{Allowed: true} }
func forbid(r string) Decision { return Decision{Allowed: false, Reason: r} }

// decisionTable defines an explicit decision for every Status×Event combination.
var decisionTable = map[model.Status]map[EventKind]Decision{
	model.StatusIdle: {
		EvLoadRequested:    allowed(),
		EvEngineAttached:   forbid(ForbiddenRequiresSession),
		EvManifestParsed:   forbid(ForbiddenRequiresSession),
		EvBufferStarved:    forbid(ForbiddenRequiresSession),
		EvBufferRecovered:  forbid(ForbiddenRequiresSession),
		EvRecoverableError: forbid(ForbiddenRequiresSession),
		EvFatalError:       forbid(ForbiddenRequiresSession),
		EvRetryRequested:   forbid(ForbiddenRequiresErrored),
		EvDestroyRequested: allowed(),
	},
	model.StatusAttaching: {
		EvLoadRequested:    forbid(ForbiddenAlreadyInState),
		EvEngineAttached:   allowed(),
		EvManifestParsed:   allowed(),
		EvBufferStarved:    forbid(ForbiddenRequiresPlaying),
		EvBufferRecovered:  forbid(ForbiddenRequiresPlaying),
		EvRecoverableError: allowed(),
		EvFatalError:       allowed(),
		EvRetryRequested:   forbid(ForbiddenRequiresErrored),
		EvDestroyRequested: allowed(),
	},
	model.StatusPlaying: {
		EvLoadRequested:    forbid(ForbiddenAlreadyInState),
		EvEngineAttached:   forbid(ForbiddenOutOfOrder),
		EvManifestParsed:   allowed(),
		EvBufferStarved:    allowed(),
		EvBufferRecovered:  forbid(ForbiddenAlreadyInState),
		EvRecoverableError: allowed(),
		EvFatalError:       allowed(),
		EvRetryRequested:   forbid(ForbiddenRequiresErrored),
		EvDestroyRequested: allowed(),
	},
	model.StatusBuffering: {
		EvLoadRequested:    forbid(ForbiddenAlreadyInState),
		EvEngineAttached:   forbid(ForbiddenOutOfOrder),
		EvManifestParsed:   allowed(),
		EvBufferStarved:    forbid(ForbiddenAlreadyInState),
		EvBufferRecovered:  allowed(),
		EvRecoverableError: allowed(),
		EvFatalError:       allowed(),
		EvRetryRequested:   forbid(ForbiddenRequiresErrored),
		EvDestroyRequested: allowed(),
	},
	model.StatusErrored: {
		EvLoadRequested:    forbid(ForbiddenAlreadyInState),
		EvEngineAttached:   forbid(ForbiddenSessionErrored),
		EvManifestParsed:   forbid(ForbiddenSessionErrored),
		EvBufferStarved:    forbid(ForbiddenSessionErrored),
		EvBufferRecovered:  forbid(ForbiddenSessionErrored),
		EvRecoverableError: forbid(ForbiddenSessionErrored),
		EvFatalError:       forbid(ForbiddenAlreadyInState),
		EvRetryRequested:   allowed(),
		EvDestroyRequested: allowed(),
	},
	model.StatusDestroyed: {
		EvLoadRequested:    forbid(ForbiddenTerminalAbsorbing),
		EvEngineAttached:   forbid(ForbiddenTerminalAbsorbing),
		EvManifestParsed:   forbid(ForbiddenTerminalAbsorbing),
		EvBufferStarved:    forbid(ForbiddenTerminalAbsorbing),
		EvBufferRecovered:  forbid(ForbiddenTerminalAbsorbing),
		EvRecoverableError: forbid(ForbiddenTerminalAbsorbing),
		EvFatalError:       forbid(ForbiddenTerminalAbsorbing),
		EvRetryRequested:   forbid(ForbiddenTerminalAbsorbing),
		EvDestroyRequested: forbid(ForbiddenTerminalAbsorbing),
	},
}

// DecisionFor returns the explicit decision for a status+event pair.
func DecisionFor(from model.Status, ev EventKind) (Decision, bool) {
	events, ok := decisionTable[from]
	if !ok {
		return Decision{}, false
	}
	d, ok := events[ev]
	return d, ok
}
