// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/hlswatch/internal/api/middleware"
	"github.com/ManuGH/hlswatch/internal/domain/playback/controller"
	"github.com/ManuGH/hlswatch/internal/domain/playback/model"
	"github.com/ManuGH/hlswatch/internal/telemetry"
	"github.com/ManuGH/hlswatch/internal/validate"
)

type openSessionRequest struct {
	SinkID string `json:"sinkId,omitempty"`
	URL    string `json:"url"`
}

type loadRequest struct {
	URL string `json:"url"`
}

// qualityRequest takes "auto" or a level id as a string.
type qualityRequest struct {
	Level model.QualitySelection `json:"level"`
}

type controlRequest struct {
	Action string   `json:"action"`
	Value  *float64 `json:"value,omitempty"`
}

// Control actions accepted by POST /api/sessions/{id}/controls.
const (
	ActionTogglePlay     = "toggle_play"
	ActionPlay           = "play"
	ActionPause          = "pause"
	ActionMute           = "mute"
	ActionUnmute         = "unmute"
	ActionVolume         = "volume"
	ActionSeek           = "seek"
	ActionFullscreen     = "fullscreen"
	ActionExitFullscreen = "exit_fullscreen"
)

var controlActions = []string{
	ActionTogglePlay, ActionPlay, ActionPause, ActionMute, ActionUnmute,
	ActionVolume, ActionSeek, ActionFullscreen, ActionExitFullscreen,
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	now := s.sessions.Now()
	snaps := s.sessions.List()
	out := make([]SessionView, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, newSessionView(snap, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v := validate.New()
	v.NotEmpty("url", req.URL)
	if !v.IsValid() {
		writeValidation(w, r, v)
		return
	}
	ctrl, err := s.sessions.Open(req.SinkID, req.URL)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.respondSession(w, r, http.StatusCreated, ctrl)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respondSession(w, r, http.StatusOK, ctrl)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Remove(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLoadStream supersedes the session's current stream.
func (s *Server) handleLoadStream(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req loadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v := validate.New()
	v.NotEmpty("url", req.URL)
	if !v.IsValid() {
		writeValidation(w, r, v)
		return
	}
	if err := ctrl.LoadStream(req.URL); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.respondSession(w, r, http.StatusOK, ctrl)
}

func (s *Server) handleSetQuality(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req qualityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ctrl.SetQuality(req.Level); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.respondSession(w, r, http.StatusOK, ctrl)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := ctrl.Retry(); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.respondSession(w, r, http.StatusOK, ctrl)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req controlRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v := validate.New()
	v.OneOf("action", req.Action, controlActions)
	if (req.Action == ActionVolume || req.Action == ActionSeek) && req.Value == nil {
		v.AddError("value", "value is required for "+req.Action, nil)
	}
	if !v.IsValid() {
		writeValidation(w, r, v)
		return
	}
	if err := applyControl(ctrl, req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.respondSession(w, r, http.StatusOK, ctrl)
}

func applyControl(ctrl *controller.Controller, req controlRequest) error {
	switch req.Action {
	case ActionTogglePlay:
		return ctrl.TogglePlay()
	case ActionPlay, ActionPause:
		want := req.Action == ActionPlay
		if ctrl.State().IsPlaying == want {
			return nil
		}
		return ctrl.TogglePlay()
	case ActionMute:
		return ctrl.SetMuted(true)
	case ActionUnmute:
		return ctrl.SetMuted(false)
	case ActionVolume:
		return ctrl.SetVolume(*req.Value)
	case ActionSeek:
		return ctrl.SeekFraction(*req.Value)
	case ActionFullscreen:
		return ctrl.SetFullscreen(true)
	case ActionExitFullscreen:
		return ctrl.SetFullscreen(false)
	}
	return fmt.Errorf("%w: action %q", model.ErrInvalidControl, req.Action)
}

// lookup resolves the {id} route parameter.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*controller.Controller, bool) {
	ctrl, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return nil, false
	}
	return ctrl, true
}

func (s *Server) respondSession(w http.ResponseWriter, r *http.Request, status int, ctrl *controller.Controller) {
	snap := ctrl.Snapshot()
	middleware.AddSpanAttributes(r, telemetry.SessionAttributes(snap.ControllerID, snap.SessionID, snap.SinkID, string(snap.Status))...)
	writeJSON(w, status, newSessionView(snap, s.sessions.Now()))
}

// handleSessionFeed upgrades to a websocket that streams session snapshots.
func (s *Server) handleSessionFeed(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if s.hub == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "sessions/feed_unavailable", "Feed Unavailable", "FEED_UNAVAILABLE", "", nil)
		return
	}
	s.hub.subscribe(w, r, ctrl)
}
