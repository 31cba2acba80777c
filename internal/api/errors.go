// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/hlswatch/internal/api/problem"
	"github.com/ManuGH/hlswatch/internal/domain/playback/manager"
	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	xlog "github.com/ManuGH/hlswatch/internal/log"
	"github.com/ManuGH/hlswatch/internal/recent"
	"github.com/ManuGH/hlswatch/internal/validate"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

var writeProblem = problem.Write

type errorClass struct {
	target error
	status int
	kind   string
	title  string
	code   string
}

// errorClasses maps domain errors to problem responses; first match wins.
var errorClasses = []errorClass{
	{model.ErrInvalidSource, http.StatusBadRequest, "playback/invalid_source", "Invalid Source", "INVALID_SOURCE"},
	{model.ErrInvalidSelection, http.StatusBadRequest, "playback/invalid_selection", "Invalid Quality Selection", "INVALID_SELECTION"},
	{model.ErrInvalidControl, http.StatusBadRequest, "playback/invalid_control", "Invalid Control Value", "INVALID_CONTROL"},
	{recent.ErrInvalidLimit, http.StatusBadRequest, "recent/invalid_limit", "Invalid Limit", "INVALID_LIMIT"},
	{manager.ErrNotFound, http.StatusNotFound, "sessions/not_found", "Not Found", "NOT_FOUND"},
	{model.ErrSinkBusy, http.StatusConflict, "playback/sink_busy", "Sink Busy", "SINK_BUSY"},
	{model.ErrNotErrored, http.StatusConflict, "playback/not_errored", "Session Not Errored", "NOT_ERRORED"},
	{model.ErrNoSession, http.StatusConflict, "playback/no_session", "No Active Session", "NO_SESSION"},
	{model.ErrSeekUnavailable, http.StatusConflict, "playback/seek_unavailable", "Seek Unavailable", "SEEK_UNAVAILABLE"},
	{model.ErrClosed, http.StatusConflict, "playback/closed", "Session Closed", "CLOSED"},
	{manager.ErrCapacity, http.StatusServiceUnavailable, "sessions/capacity", "Capacity Reached", "CAPACITY"},
	{recent.ErrUnavailable, http.StatusServiceUnavailable, "recent/unavailable", "Store Unavailable", "STORE_UNAVAILABLE"},
}

// writeDomainError renders err as a problem response.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, c := range errorClasses {
		if errors.Is(err, c.target) {
			var extra map[string]any
			if c.target == model.ErrInvalidSource {
				extra = map[string]any{"issues": []validate.Error{{Field: "url", Message: err.Error()}}}
			}
			writeProblem(w, r, c.status, c.kind, c.title, c.code, err.Error(), extra)
			return
		}
	}
	l := xlog.WithComponentFromContext(r.Context(), "api")
	l.Error().
		Err(err).
		Str("event", "api.internal_error").
		Str("path", r.URL.Path).
		Msg("request failed")
	writeProblem(w, r, http.StatusInternalServerError, "system/internal", "Internal Server Error", "INTERNAL", "", nil)
}

// writeValidation renders accumulated validation issues as a 400.
func writeValidation(w http.ResponseWriter, r *http.Request, v *validate.Validator) {
	writeProblem(w, r, http.StatusBadRequest, "system/validation", "Invalid Request", "INVALID_REQUEST",
		v.Err().Error(), map[string]any{"issues": v.Errors()})
}

// decodeJSON decodes a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "system/malformed_body", "Malformed Body", "MALFORMED_BODY", err.Error(), nil)
		return false
	}
	return true
}
