/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PivotLLM/Paralegal/global"
	"github.com/PivotLLM/Paralegal/security"
)

// StartSession validates a research goal, generates the task plan and
// persists the new session. The session moves plan -> execute atomically
// with plan generation: a failed plan leaves nothing behind.
func (s *Service) StartSession(ctx context.Context, goal string, creds global.Credentials) (*global.Session, error) {
	validatedGoal, err := security.ValidateGoal(goal)
	if err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("invalid goal: %w", err)}
	}

	session := &global.Session{
		SessionID:    uuid.NewString(),
		Goal:         validatedGoal,
		Tasks:        []global.Task{},
		ContextNotes: []string{},
		IsActive:     true,
		Mode:         global.ModePlan,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	tasks, err := s.GeneratePlan(ctx, validatedGoal, creds)
	if err != nil {
		return nil, err
	}
	session.Tasks = tasks
	session.Mode = global.ModeExecute

	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Infof("Started session %s with %d tasks", session.SessionID, len(tasks))
	}
	return session, nil
}

// Step advances a session by exactly one task, or generates the final report
// when no pending tasks remain. The in_progress transition is persisted
// before the executor runs so a crash mid-execution is distinguishable from
// a task that was never started. A failed task is terminal: it is marked
// failed, persisted, and the error is surfaced to the caller; the session
// itself stays steppable.
func (s *Service) Step(ctx context.Context, sessionID string, creds global.Credentials) (*global.ExecuteResponse, error) {
	session, err := s.sessions.Load(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, &ValidationError{Err: errors.New("session is already complete")}
	}

	pending := session.PendingTasks()
	if len(pending) == 0 {
		// All tasks done - generate the report and close the session
		reportPath, err := s.GenerateReport(ctx, session, creds)
		if err != nil {
			return nil, err
		}
		session.FinalReportPath = reportPath
		session.IsActive = false
		session.Mode = global.ModeDone
		if err := s.sessions.Save(session); err != nil {
			return nil, err
		}
		return &global.ExecuteResponse{
			SessionID:    session.SessionID,
			CurrentStep:  session.CurrentStep,
			TaskExecuted: nil,
			IsDone:       true,
			Message:      fmt.Sprintf("All tasks complete. Report saved to %s", reportPath),
		}, nil
	}

	// Mark in_progress and persist before the potentially-failing execution
	task := pending[0]
	task.Status = global.TaskStatusInProgress
	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	executed, execErr := s.ExecuteTask(ctx, *task, session, creds)
	if execErr != nil {
		// Terminal: no automatic retry for a failed task
		task.Status = global.TaskStatusFailed
		if err := s.sessions.Save(session); err != nil && s.logger != nil {
			s.logger.Errorf("Failed to persist failed task state for session %s: %v", sessionID, err)
		}
		return nil, fmt.Errorf("task %q failed: %w", task.Title, execErr)
	}

	// Write the executed task back by identity match and advance the step
	for i := range session.Tasks {
		if session.Tasks[i].ID == executed.ID {
			session.Tasks[i] = *executed
			break
		}
	}
	session.CurrentStep++
	if err := s.sessions.Save(session); err != nil {
		return nil, err
	}

	return &global.ExecuteResponse{
		SessionID:    session.SessionID,
		CurrentStep:  session.CurrentStep,
		TaskExecuted: executed,
		IsDone:       false,
		Message:      fmt.Sprintf("Executed: %s", executed.Title),
	}, nil
}
