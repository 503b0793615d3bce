/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PivotLLM/Paralegal/agent"
	"github.com/PivotLLM/Paralegal/global"
	"github.com/PivotLLM/Paralegal/llm"
	"github.com/PivotLLM/Paralegal/store"
)

// errorResponse is the error body shape for all endpoints
type errorResponse struct {
	Detail string `json:"detail"`
}

// respondJSON writes v as indented JSON with the given status
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// respondError maps an error to the right status code and writes it.
// Validation failures are the client's to fix (400), unknown sessions are
// 404, and everything else - including credential rejection by a provider -
// is a server-side failure (500) with a message that says which it was.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Detail: err.Error()})
	default:
		if _, ok := agent.IsValidationError(err); ok {
			respondJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
			return
		}
		if authErr, ok := llm.IsAuthError(err); ok {
			// Distinct from generic provider outage: the remedy is a valid key
			respondJSON(w, http.StatusInternalServerError, errorResponse{
				Detail: "completion backend credential error: " + authErr.Detail,
			})
			return
		}
		s.logger.Errorf("Request failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
	}
}

// requestCredentials extracts per-request provider credential overrides.
// They live for this call only and never touch process state, so concurrent
// sessions stay isolated.
func requestCredentials(r *http.Request) global.Credentials {
	return global.Credentials{
		OpenAIKey: r.Header.Get("X-OpenAI-Key"),
		TavilyKey: r.Header.Get("X-Tavily-Key"),
	}
}

// handleHealth implements GET /health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStart implements POST /agent/start
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req global.GoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}

	session, err := s.agent.StartSession(r.Context(), req.Goal, requestCredentials(r))
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.logger.Infof("Session %s started", session.SessionID)
	respondJSON(w, http.StatusCreated, session)
}

// handleGetSession implements GET /agent/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.agent.GetSession(r.PathValue("id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// handleGetReport implements GET /agent/{id}/report
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	content, err := s.agent.GetReport(r.PathValue("id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

// handleExecute implements POST /agent/{id}/execute
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	resp, err := s.agent.Step(r.Context(), r.PathValue("id"), requestCredentials(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleListSessions implements GET /sessions
func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions, err := s.agent.ListSessions()
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

// handleDeleteSession implements DELETE /agent/{id}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.agent.DeleteSession(id); err != nil {
		s.respondError(w, err)
		return
	}
	s.logger.Infof("Session %s deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
