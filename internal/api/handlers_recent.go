// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/validate"
)

type createRecentRequest struct {
	URL string `json:"url"`
}

// handleListRecent serves GET /api/recent-streams?limit=N.
func (s *Server) handleListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			v := validate.New()
			v.AddError("limit", "limit must be an integer", raw)
			writeValidation(w, r, v)
			return
		}
		limit = n
	}
	streams, err := s.recent.Recent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, streams)
}

// handleCreateRecent serves POST /api/recent-streams {url}.
func (s *Server) handleCreateRecent(w http.ResponseWriter, r *http.Request) {
	var req createRecentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v := validate.New()
	v.NotEmpty("url", req.URL)
	if !v.IsValid() {
		writeValidation(w, r, v)
		return
	}
	stream, err := s.recent.Record(r.Context(), req.URL)
	if errors.Is(err, model.ErrInvalidSource) {
		v.AddError("url", err.Error(), req.URL)
		writeValidation(w, r, v)
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stream)
}
