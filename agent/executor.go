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
	"github.com/PivotLLM/Paralegal/security"
)

// ExecuteTask runs one research task to completion:
//
//  1. re-validate the accumulated context notes
//  2. refine a search query from the task and prior context
//  3. execute the web search and validate the raw results
//  4. compress the results to a 2-3 sentence summary
//  5. reflect on whether the task was adequately answered
//
// The task is mutated on a copy and returned; the compressed summary is
// appended to session.ContextNotes. Raw search results are discarded after
// compression and never reach persistent state. Failures in the validation
// steps come back as ValidationError; everything downstream is an
// infrastructure failure. Persistence is the caller's job.
func (s *Service) ExecuteTask(ctx context.Context, task global.Task, session *global.Session,
	creds global.Credentials) (*global.Task, error) {

	// Step 1 - re-validate prior context before it re-enters a prompt
	notes, err := security.ValidateContextNotes(session.ContextNotes)
	if err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("context validation failed: %w", err)}
	}
	contextBlob := buildContextBlob(notes)

	// Sanitize the task fields that will be interpolated below
	title, err := security.ValidateTaskTitle(task.Title)
	if err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("task title: %w", err)}
	}
	description, err := security.ValidateTaskDescription(task.Description)
	if err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("task description: %w", err)}
	}

	// Step 2 - refine the search query from task context + prior notes
	refineTmpl, err := s.resolver.Resolve(global.PromptRefineQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve refine-query template: %w", err)
	}
	query, err := s.completion.Complete(ctx, refineTmpl.Compile(map[string]string{
		"task_title":       title,
		"task_description": description,
		"context_notes":    contextBlob,
	}), llm.CompleteOptions{APIKey: creds.OpenAIKey})
	if err != nil {
		return nil, fmt.Errorf("query refinement failed: %w", err)
	}
	query = strings.TrimSpace(query)

	// Step 3 - execute the web search
	task.ToolUsed = global.ToolSearchWeb
	rawResults, err := s.search.Search(ctx, query, creds.TavilyKey)
	if err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}

	// Last point raw provider content exists before being folded into prompts
	results, err := security.ValidateSearchResponse(rawResults)
	if err != nil {
		return nil, fmt.Errorf("search result validation failed: %w", err)
	}

	// Build a compact representation of raw content for the compression step
	snippets := make([]string, 0, len(results.Results))
	sources := make([]string, 0, len(results.Results))
	for _, r := range results.Results {
		content := r.Content
		if len(content) > global.SnippetMaxChars {
			content = content[:global.SnippetMaxChars]
		}
		snippets = append(snippets, fmt.Sprintf("[%s]: %s", r.Title, content))
		sources = append(sources, r.URL)
	}

	// Step 4 - compress raw results. The prompt sees only the task title and
	// the snippets: the description and prior context stay out so the model
	// cannot confirm claims that are not in the actual search output.
	compressTmpl, err := s.resolver.Resolve(global.PromptCompressResults)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve compress-results template: %w", err)
	}
	summary, err := s.completion.Complete(ctx, compressTmpl.Compile(map[string]string{
		"task_title":     title,
		"search_results": strings.Join(snippets, "\n\n"),
	}), llm.CompleteOptions{APIKey: creds.OpenAIKey})
	if err != nil {
		return nil, fmt.Errorf("result compression failed: %w", err)
	}

	// Step 5 - reflect: did this task answer its goal?
	reflectTmpl, err := s.resolver.Resolve(global.PromptReflect)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reflect template: %w", err)
	}
	reflection, err := s.completion.Complete(ctx, reflectTmpl.Compile(map[string]string{
		"task_description": description,
		"findings":         summary,
	}), llm.CompleteOptions{APIKey: creds.OpenAIKey})
	if err != nil {
		return nil, fmt.Errorf("reflection failed: %w", err)
	}

	// Mutate the task and append only the compressed summary to context
	task.Result = summary
	task.Sources = sources
	task.Reflection = reflection
	task.Status = global.TaskStatusDone

	session.ContextNotes = append(session.ContextNotes, fmt.Sprintf("[%s]: %s", task.Title, summary))

	if s.logger != nil {
		s.logger.Infof("Executed task %q with %d sources", task.Title, len(sources))
	}
	return &task, nil
}
