/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package global

// Task represents one decomposed, independently searchable research sub-question.
// Created by the plan generator in pending status and mutated only by the task
// executor. Status moves pending -> in_progress -> done; failed is terminal.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	ToolUsed    string   `json:"tool_used,omitempty"`
	Result      string   `json:"result,omitempty"`
	Reflection  string   `json:"reflection,omitempty"`
	Sources     []string `json:"sources"`
}

// Session represents one agent session: the goal, its task plan, and the
// accumulated research context. ContextNotes is append-only and holds only
// compressed summaries, never raw search output.
type Session struct {
	SessionID       string   `json:"session_id"`
	Goal            string   `json:"goal"`
	Tasks           []Task   `json:"tasks"`
	ContextNotes    []string `json:"context_notes"`
	CurrentStep     int      `json:"current_step"`
	IsActive        bool     `json:"is_active"`
	Mode            string   `json:"mode"`
	FinalReportPath string   `json:"final_report_path,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

// PendingTasks returns the tasks still awaiting execution, in list order.
func (s *Session) PendingTasks() []*Task {
	var pending []*Task
	for i := range s.Tasks {
		if s.Tasks[i].Status == TaskStatusPending {
			pending = append(pending, &s.Tasks[i])
		}
	}
	return pending
}

// SearchResult is a single item returned by the search provider. The URL is
// trusted transport metadata; title and content are untrusted and must pass
// the sanitizer before reaching a prompt. Never persisted.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchResponse is the bounded result set for one search query. Ephemeral:
// it exists only within one task-execution call.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// Credentials carries request-scoped provider credential overrides. A zero
// value means "use the process-wide default". Credentials are threaded
// explicitly through every call that reaches a provider so that concurrent
// sessions stay credential-isolated.
type Credentials struct {
	OpenAIKey string
	TavilyKey string
}

// GoalRequest is the body of POST /agent/start.
type GoalRequest struct {
	Goal string `json:"goal"`
}

// ExecuteResponse is the result of one step request against a session.
type ExecuteResponse struct {
	SessionID    string `json:"session_id"`
	CurrentStep  int    `json:"current_step"`
	TaskExecuted *Task  `json:"task_executed"`
	IsDone       bool   `json:"is_done"`
	Message      string `json:"message"`
}
