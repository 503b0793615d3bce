/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package agent implements the research agent core: plan generation, the
// task-execution pipeline (refine -> search -> compress -> reflect), report
// synthesis, and the session state machine that sequences them.
package agent

import (
	"context"

	"github.com/PivotLLM/Paralegal/global"
	"github.com/PivotLLM/Paralegal/llm"
	"github.com/PivotLLM/Paralegal/logging"
	"github.com/PivotLLM/Paralegal/prompts"
	"github.com/PivotLLM/Paralegal/store"
)

// CompletionClient issues one request/response cycle to a language model.
type CompletionClient interface {
	Complete(ctx context.Context, messages []prompts.Message, opts llm.CompleteOptions) (string, error)
}

// SearchClient issues one query to a web-search provider.
type SearchClient interface {
	Search(ctx context.Context, query, apiKeyOverride string) (*global.SearchResponse, error)
}

// Service owns the session lifecycle and drives the research pipeline.
// All five downstream calls in a task execution happen in strict sequence;
// nothing here spawns parallel work.
type Service struct {
	resolver   *prompts.Resolver
	completion CompletionClient
	search     SearchClient
	sessions   *store.Sessions
	reports    *store.Reports
	logger     *logging.Logger
}

// New creates the agent service.
func New(resolver *prompts.Resolver, completion CompletionClient, search SearchClient,
	sessions *store.Sessions, reports *store.Reports, logger *logging.Logger) *Service {
	return &Service{
		resolver:   resolver,
		completion: completion,
		search:     search,
		sessions:   sessions,
		reports:    reports,
		logger:     logger,
	}
}

// GetSession returns a stored session by id.
func (s *Service) GetSession(id string) (*global.Session, error) {
	return s.sessions.Load(id)
}

// ListSessions returns all stored sessions.
func (s *Service) ListSessions() ([]*global.Session, error) {
	return s.sessions.List()
}

// DeleteSession removes a session record. The report artifact, when present,
// is a separate file referenced by path; it stays on disk but becomes
// unreachable through the API once the session is gone.
func (s *Service) DeleteSession(id string) error {
	return s.sessions.Delete(id)
}

// GetReport returns the report text for a completed session.
func (s *Service) GetReport(id string) (string, error) {
	session, err := s.sessions.Load(id)
	if err != nil {
		return "", err
	}
	if session.FinalReportPath == "" {
		return "", store.ErrNotFound
	}
	return s.reports.Load(session.FinalReportPath)
}
