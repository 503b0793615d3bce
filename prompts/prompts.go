/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package prompts supplies the chat prompt templates used by the agent and
// performs variable substitution. Templates come from the managed prompt
// store when one is configured; a built-in literal copy of each template is
// kept in sync by convention and used as a fallback when the store is
// unreachable. An unknown prompt name is never papered over by the fallback:
// that is a configuration error and stays visible.
package prompts

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/PivotLLM/Paralegal/logging"
)

// Message is a single role/content pair in a chat prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Template is a named, ordered list of chat messages with {{key}} placeholders.
type Template struct {
	Name     string    `json:"name"`
	Messages []Message `json:"messages"`
}

// placeholderRegex matches {{key}} tokens. Keys are word characters plus
// hyphens, matching the store's template syntax.
var placeholderRegex = regexp.MustCompile(`\{\{\s*([\w-]+)\s*\}\}`)

// Compile substitutes variables into the template and returns the resulting
// messages. Missing variables are substituted as empty strings; Compile
// never fails.
func (t *Template) Compile(vars map[string]string) []Message {
	compiled := make([]Message, len(t.Messages))
	for i, msg := range t.Messages {
		content := placeholderRegex.ReplaceAllStringFunc(msg.Content, func(m string) string {
			key := placeholderRegex.FindStringSubmatch(m)[1]
			return vars[key]
		})
		compiled[i] = Message{Role: msg.Role, Content: content}
	}
	return compiled
}

// Store fetches a template from the external prompt store.
type Store interface {
	GetPrompt(name string) (*Template, error)
}

// Resolver resolves templates by name, preferring the configured store and
// falling back to the built-in copies only on connectivity failure.
type Resolver struct {
	store  Store // nil when no store is configured
	logger *logging.Logger
}

// NewResolver creates a Resolver. A nil store means the built-in templates
// are used directly.
func NewResolver(store Store, logger *logging.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the template for the given stable name.
func (r *Resolver) Resolve(name string) (*Template, error) {
	if r.store != nil {
		tmpl, err := r.store.GetPrompt(name)
		if err == nil {
			return tmpl, nil
		}
		if _, unreachable := IsUnreachableError(err); !unreachable {
			// Unknown prompt or a malformed store response: not a
			// connectivity problem, so do not mask it with the fallback.
			return nil, err
		}
		if r.logger != nil {
			r.logger.Warnf("Prompt store unreachable, using built-in template for %s: %v", name, err)
		}
	}

	tmpl, ok := builtinTemplates[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt template: %s", name)
	}
	return tmpl, nil
}

// UnreachableError indicates the prompt store could not be reached at all
// (network failure or server-side outage). It is the only error class that
// triggers the built-in fallback.
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("prompt store unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// IsUnreachableError checks if an error is an UnreachableError
func IsUnreachableError(err error) (*UnreachableError, bool) {
	var unreachable *UnreachableError
	if errors.As(err, &unreachable) {
		return unreachable, true
	}
	return nil, false
}
