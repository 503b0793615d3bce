/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/PivotLLM/Paralegal/global"
)

// Helper function to create JSON tool results safely
func createJSONResult(data interface{}) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError("Failed to create JSON result"), nil
	}
	return result, nil
}

// RunMCP serves the agent over MCP on stdio and blocks until the client
// disconnects or a shutdown signal arrives. Credentials come from process
// configuration; per-call overrides are an HTTP surface feature only.
func (s *Server) RunMCP() error {
	mcpServer := mcpserver.NewMCPServer(
		global.ProgramName,
		global.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
	)
	s.registerTools(mcpServer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	errChan := make(chan error, 1)
	go func() {
		// ServeStdio returns when stdin is closed (EOF) or on error
		errChan <- mcpserver.ServeStdio(mcpServer)
	}()

	s.logger.Infof("MCP server started successfully")

	select {
	case <-sigChan:
		s.logger.Info("Shutdown signal received")
		if err := s.logger.Sync(); err != nil {
			s.logger.Warnf("Failed to flush logs on shutdown: %v", err)
		}
		return nil

	case err := <-errChan:
		if err != nil {
			s.logger.Errorf("Server error: %v", err)
			return fmt.Errorf("server error: %w", err)
		}
		// nil error means stdin was closed (EOF) - normal exit
		s.logger.Info("Connection closed")
		return nil
	}
}

// readOnlyTool creates a tool with read-only annotations
func readOnlyTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(true),
		DestructiveHint: mcp.ToBoolPtr(false),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	}))
	return mcp.NewTool(name, opts...)
}

// defaultTool creates a tool with default annotations (non-destructive).
// The agent tools reach the web during execution, so OpenWorld is true.
func defaultTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(false),
		DestructiveHint: mcp.ToBoolPtr(false),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}))
	return mcp.NewTool(name, opts...)
}

// destructiveTool creates a tool with destructive annotations
func destructiveTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(false),
		DestructiveHint: mcp.ToBoolPtr(true),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	}))
	return mcp.NewTool(name, opts...)
}

// registerTools registers all MCP tools
func (s *Server) registerTools(srv *mcpserver.MCPServer) {
	srv.AddTool(
		defaultTool(global.ToolAgentStart,
			mcp.WithDescription("Start a new legal research session. Generates a plan of research tasks for the given goal and returns the session, including its session_id."),
			mcp.WithString("goal",
				mcp.Description("The legal research goal, e.g. 'Research recent case law on trade secret misappropriation in California'"),
				mcp.Required(),
			),
		), s.handleAgentStart)

	srv.AddTool(
		readOnlyTool(global.ToolAgentGet,
			mcp.WithDescription("Get the current state of a research session, including its task plan and per-task status."),
			mcp.WithString("session_id",
				mcp.Description("Session identifier returned by agent_start"),
				mcp.Required(),
			),
		), s.handleAgentGet)

	srv.AddTool(
		defaultTool(global.ToolAgentStep,
			mcp.WithDescription("Execute the next pending task in a research session. Each call runs one task (query refinement, web search, compression, reflection). When no tasks remain, this call generates the final report."),
			mcp.WithString("session_id",
				mcp.Description("Session identifier returned by agent_start"),
				mcp.Required(),
			),
		), s.handleAgentStep)

	srv.AddTool(
		readOnlyTool(global.ToolAgentReport,
			mcp.WithDescription("Retrieve the final research report for a completed session as Markdown."),
			mcp.WithString("session_id",
				mcp.Description("Session identifier returned by agent_start"),
				mcp.Required(),
			),
		), s.handleAgentReport)

	srv.AddTool(
		readOnlyTool(global.ToolSessionList,
			mcp.WithDescription("List all research sessions, newest first."),
		), s.handleSessionList)

	srv.AddTool(
		destructiveTool(global.ToolSessionDelete,
			mcp.WithDescription("Delete a research session and its stored state."),
			mcp.WithString("session_id",
				mcp.Description("Session identifier to delete"),
				mcp.Required(),
			),
		), s.handleSessionDelete)
}

// MCP tool handlers

func (s *Server) handleAgentStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goal := mcp.ParseString(request, "goal", "")

	s.logger.Infof("Tool %s called", global.ToolAgentStart)

	if goal == "" {
		return mcp.NewToolResultError("goal parameter is required"), nil
	}

	session, err := s.agent.StartSession(ctx, goal, global.Credentials{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(session)
}

func (s *Server) handleAgentGet(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")

	s.logger.Infof("Tool %s called: session_id=%s", global.ToolAgentGet, sessionID)

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	session, err := s.agent.GetSession(sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(session)
}

func (s *Server) handleAgentStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")

	s.logger.Infof("Tool %s called: session_id=%s", global.ToolAgentStep, sessionID)

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	resp, err := s.agent.Step(ctx, sessionID, global.Credentials{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(resp)
}

func (s *Server) handleAgentReport(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")

	s.logger.Infof("Tool %s called: session_id=%s", global.ToolAgentReport, sessionID)

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	content, err := s.agent.GetReport(sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(content), nil
}

func (s *Server) handleSessionList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Infof("Tool %s called", global.ToolSessionList)

	sessions, err := s.agent.ListSessions()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return createJSONResult(sessions)
}

func (s *Server) handleSessionDelete(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := mcp.ParseString(request, "session_id", "")

	s.logger.Infof("Tool %s called: session_id=%s", global.ToolSessionDelete, sessionID)

	if sessionID == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	if err := s.agent.DeleteSession(sessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Session %s deleted", sessionID)), nil
}
