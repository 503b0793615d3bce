/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package server exposes the agent over two surfaces: the HTTP JSON API used
// by the browser UI, and an MCP tool surface for editor/assistant clients.
// Both delegate to the same agent service; neither holds state of its own.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PivotLLM/Paralegal/agent"
	"github.com/PivotLLM/Paralegal/config"
	"github.com/PivotLLM/Paralegal/logging"
)

// Server wraps the HTTP and MCP surfaces around the agent service
type Server struct {
	config *config.Config
	logger *logging.Logger
	agent  *agent.Service
}

// New creates a new server instance
func New(cfg *config.Config, logger *logging.Logger, agentService *agent.Service) *Server {
	return &Server{
		config: cfg,
		logger: logger,
		agent:  agentService,
	}
}

// Run starts the HTTP server and blocks until shutdown
func (s *Server) Run() error {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	httpServer := &http.Server{
		Addr:              s.config.Listen(),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan error, 1)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		s.logger.Infof("Received signal %v, shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		done <- httpServer.Shutdown(ctx)
	}()

	s.logger.Infof("HTTP server listening on %s", s.config.Listen())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}

// corsMiddleware allows the browser frontend to talk to the API from any
// origin. This is a single-user tool; there is no cookie-based auth to
// protect, so the permissive policy is acceptable.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-OpenAI-Key, X-Tavily-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// registerRoutes wires the HTTP surface
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /agent/start", s.handleStart)
	mux.HandleFunc("GET /agent/{id}", s.handleGetSession)
	mux.HandleFunc("GET /agent/{id}/report", s.handleGetReport)
	mux.HandleFunc("POST /agent/{id}/execute", s.handleExecute)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("DELETE /agent/{id}", s.handleDeleteSession)
}
