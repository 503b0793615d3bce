/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/PivotLLM/Paralegal/global"
	"github.com/PivotLLM/Paralegal/llm"
)

// planSchema enforces the shape of the strict-JSON plan object returned by
// the model. Arity is checked separately so the bounds produce a clearer
// error message than a schema violation would.
const planSchema = `{
  "type": "object",
  "required": ["tasks"],
  "properties": {
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "description"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "description": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

var planSchemaLoader = gojsonschema.NewStringLoader(planSchema)

// planDocument is the parsed plan object
type planDocument struct {
	Tasks []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"tasks"`
}

// GeneratePlan decomposes a validated research goal into pending tasks via
// one strict-JSON completion call. Parse failure, schema violation or wrong
// arity is a hard error: no partial plan is accepted and no repair or retry
// is attempted.
func (s *Service) GeneratePlan(ctx context.Context, goal string, creds global.Credentials) ([]global.Task, error) {
	tmpl, err := s.resolver.Resolve(global.PromptGeneratePlan)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan template: %w", err)
	}

	messages := tmpl.Compile(map[string]string{"goal": goal})
	raw, err := s.completion.Complete(ctx, messages, llm.CompleteOptions{
		WantJSON: true,
		APIKey:   creds.OpenAIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}

	result, err := gojsonschema.Validate(planSchemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("plan response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		var reasons []string
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return nil, fmt.Errorf("plan response failed schema validation: %s", strings.Join(reasons, "; "))
	}

	var doc planDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse plan response: %w", err)
	}

	if len(doc.Tasks) < global.MinPlanTasks || len(doc.Tasks) > global.MaxPlanTasks {
		return nil, fmt.Errorf("plan has %d tasks, expected between %d and %d",
			len(doc.Tasks), global.MinPlanTasks, global.MaxPlanTasks)
	}

	tasks := make([]global.Task, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		tasks = append(tasks, global.Task{
			ID:          uuid.NewString(),
			Title:       t.Title,
			Description: t.Description,
			Status:      global.TaskStatusPending,
			Sources:     []string{},
		})
	}

	if s.logger != nil {
		s.logger.Infof("Generated plan with %d tasks", len(tasks))
	}
	return tasks, nil
}
