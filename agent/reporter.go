/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/PivotLLM/Paralegal/global"
	"github.com/PivotLLM/Paralegal/llm"
)

// GenerateReport synthesizes all accumulated context into the final report
// and persists it as a standalone artifact keyed by session id. Returns the
// artifact path. The task list is not mutated.
func (s *Service) GenerateReport(ctx context.Context, session *global.Session,
	creds global.Credentials) (string, error) {

	contextBlob := truncateTail(strings.Join(session.ContextNotes, "\n\n"),
		global.ReportContextMaxChars, global.ReportContextKeepChars)

	// One bullet per task regardless of status, so gaps stay visible
	summaries := make([]string, 0, len(session.Tasks))
	for _, t := range session.Tasks {
		result := t.Result
		if result == "" {
			result = "N/A"
		}
		summaries = append(summaries, fmt.Sprintf("- **%s**: %s", t.Title, result))
	}

	tmpl, err := s.resolver.Resolve(global.PromptGenerateReport)
	if err != nil {
		return "", fmt.Errorf("failed to resolve report template: %w", err)
	}

	content, err := s.completion.Complete(ctx, tmpl.Compile(map[string]string{
		"goal":           session.Goal,
		"task_summaries": strings.Join(summaries, "\n"),
		"context_notes":  contextBlob,
	}), llm.CompleteOptions{APIKey: creds.OpenAIKey})
	if err != nil {
		return "", fmt.Errorf("report generation failed: %w", err)
	}

	path, err := s.reports.Save(session.SessionID, session.Goal, content)
	if err != nil {
		return "", err
	}
	return path, nil
}
