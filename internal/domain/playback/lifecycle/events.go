// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

// EventKind is a domain event in the playback session lifecycle.
type EventKind int

const (
	EvUnknown EventKind = iota
	EvLoadRequested
	EvEngineAttached
	EvManifestParsed
	EvBufferStarved
	EvBufferRecovered
	EvRecoverableError
	EvFatalError
	EvRetryRequested
	EvDestroyRequested
)

// AllEvents lists every event kind except EvUnknown.
var AllEvents = []EventKind{
	EvLoadRequested,
	EvEngineAttached,
	EvManifestParsed,
	EvBufferStarved,
	EvBufferRecovered,
	EvRecoverableError,
	EvFatalError,
	EvRetryRequested,
	EvDestroyRequested,
}

func (e EventKind) String() string {
	switch e {
	case EvLoadRequested:
		return "load_requested"
	case EvEngineAttached:
		return "engine_attached"
	case EvManifestParsed:
		return "manifest_parsed"
	case EvBufferStarved:
		return "buffer_starved"
	case EvBufferRecovered:
		return "buffer_recovered"
	case EvRecoverableError:
		return "recoverable_error"
	case EvFatalError:
		return "fatal_error"
	case EvRetryRequested:
		return "retry_requested"
	case EvDestroyRequested:
		return "destroy_requested"
	default:
		return "unknown"
	}
}
