// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by HTTP handlers and the playback layer.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	SessionControllerKey = "playback.controller_id"
	SessionIDKey         = "playback.session_id"
	SessionStatusKey     = "playback.status"
	SessionSinkKey       = "playback.sink_id"

	StoreBackendKey = "recent.backend"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes describes a playback session; empty values are omitted.
func SessionAttributes(controllerID, sessionID, sinkID, status string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	for _, kv := range []struct{ k, v string }{
		{SessionControllerKey, controllerID},
		{SessionIDKey, sessionID},
		{SessionSinkKey, sinkID},
		{SessionStatusKey, status},
	} {
		if kv.v != "" {
			attrs = append(attrs, attribute.String(kv.k, kv.v))
		}
	}
	return attrs
}
