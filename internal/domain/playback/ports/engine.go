// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ports defines the boundary between the session controller and the
// streaming engine, the media sink and the recent-sessions recorder.
package ports

import (
	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
)

// EngineEventKind enumerates engine notifications.
type EngineEventKind int

const (
	EngineMediaAttached EngineEventKind = iota + 1
	EngineManifestParsed
	EngineError
)

func (k EngineEventKind) String() string {
	switch k {
	case EngineMediaAttached:
		return "media_attached"
	case EngineManifestParsed:
		return "manifest_parsed"
	case EngineError:
		return "error"
	default:
		return "unknown"
	}
}

// EngineEvent is delivered by a Handle in emission order.
type EngineEvent struct {
	Kind   EngineEventKind
	Levels []model.QualityLevel // EngineManifestParsed
	Error  model.ErrorSignal    // EngineError
}

// Engine attaches to a media sink and returns an exclusive handle.
type Engine interface {
	Attach(sink Sink) (Handle, error)
}

// Handle is one attached engine instance.
// Implementations deliver events asynchronously and in order.
type Handle interface {
	LoadSource(url string) error
	// StartLoad re-issues loading of the current source.
	StartLoad() error
	// RecoverMediaError resets the media pipeline in place.
	RecoverMediaError() error
	// SetQualityLevel selects a level id; -1 enables automatic selection.
	SetQualityLevel(level int) error
	// Subscribe registers fn for engine events. The returned cancel func
	// removes the subscription.
	Subscribe(fn func(EngineEvent)) (cancel func())
	// Detach releases the handle. No events are delivered afterwards.
	Detach() error
}
