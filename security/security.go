/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package security provides the input-sanitization gate that every untrusted
// string must pass before it is interpolated into a language-model prompt.
// Sanitization here is a gate, not a transform: on success the input is
// returned unchanged. Every string that re-enters a prompt downstream
// (accumulated context notes, tool output) must be re-validated at the point
// of use - validating only at the API boundary is not enough.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PivotLLM/Paralegal/global"
)

// InjectionError is returned when input fails the sanitization gate.
// It is a client-attributable error: the request must change, retrying
// the same input will never succeed.
type InjectionError struct {
	Reason string
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("potential prompt injection: %s", e.Reason)
}

// IsInjectionError checks if an error is an InjectionError
func IsInjectionError(err error) (*InjectionError, bool) {
	var injErr *InjectionError
	if errors.As(err, &injErr) {
		return injErr, true
	}
	return nil, false
}

// injectionPatterns are the fixed pattern categories the gate rejects.
// Kept specific to actual injection attempts, not legitimate legal language.
var injectionPatterns = []*regexp.Regexp{
	// Clear instruction override attempts
	regexp.MustCompile(`(?i)(ignore|disregard|forget).*?(previous|prior|above|all).*?(instruction|prompt|message|rule)`),
	regexp.MustCompile(`(?i)(system|admin).*?prompt`),
	// Jailbreak attempts
	regexp.MustCompile(`(?i)(jailbreak|bypass|override|circumvent).*?(restriction|safeguard|filter|guideline)`),
	// Role hijack phrasing
	regexp.MustCompile(`(?i)you\s+are\s+now\s+`),
	regexp.MustCompile(`(?i)do\s+(anything|whatever)\s+now`),
	// HTML/XML injection
	regexp.MustCompile(`(?i)<\s*(script|iframe|embed|object)`),
	regexp.MustCompile(`(?i)on\w+\s*=`), // event handler injection
	// Command injection with shell operators
	regexp.MustCompile(`(?i)(;|&&|\|\|)\s*(curl|wget|exec|sh|bash)`),
}

// maxControlChars is the number of control characters (outside \n\t\r)
// tolerated before input is rejected as binary or obfuscated.
const maxControlChars = 5

// Sanitize validates a single untrusted string against the length budget and
// the injection pattern set. Returns the text unchanged on success.
func Sanitize(text string, maxLength int) (string, error) {
	if len(text) > maxLength {
		return "", &InjectionError{Reason: fmt.Sprintf(
			"input exceeds maximum length of %d characters, got %d", maxLength, len(text))}
	}

	for _, pattern := range injectionPatterns {
		if pattern.MatchString(text) {
			return "", &InjectionError{Reason: fmt.Sprintf(
				"suspicious pattern detected: %s", pattern.String())}
		}
	}

	// Count control characters other than newline, tab, carriage return
	controlCount := 0
	for _, r := range text {
		if r < 32 && r != '\n' && r != '\t' && r != '\r' {
			controlCount++
		}
	}
	if controlCount > maxControlChars {
		return "", &InjectionError{Reason: fmt.Sprintf(
			"excessive control characters detected (%d)", controlCount)}
	}

	if strings.ContainsRune(text, 0) {
		return "", &InjectionError{Reason: "null bytes detected in input"}
	}

	return text, nil
}

// ValidateGoal validates the top-level research goal.
func ValidateGoal(goal string) (string, error) {
	if strings.TrimSpace(goal) == "" {
		return "", &InjectionError{Reason: "research goal cannot be empty"}
	}
	return Sanitize(goal, global.MaxGoalChars)
}

// ValidateTaskTitle validates a task title before prompt use.
func ValidateTaskTitle(title string) (string, error) {
	return Sanitize(title, global.MaxTaskTitleChars)
}

// ValidateTaskDescription validates a task description before prompt use.
func ValidateTaskDescription(description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", &InjectionError{Reason: "task description cannot be empty"}
	}
	return Sanitize(description, global.MaxTaskDescChars)
}

// ValidateContextNotes validates every accumulated context note. Notes are
// written by the executor from compressed model output, but they re-enter
// prompts on the next step, so each one is re-checked here.
func ValidateContextNotes(notes []string) ([]string, error) {
	validated := make([]string, 0, len(notes))
	for i, note := range notes {
		clean, err := Sanitize(note, global.MaxContextNoteChars)
		if err != nil {
			return nil, fmt.Errorf("context note %d: %w", i, err)
		}
		validated = append(validated, clean)
	}
	return validated, nil
}

// ValidateFindings validates compressed findings before the reflection prompt.
func ValidateFindings(findings string) (string, error) {
	return Sanitize(findings, global.MaxFindingsChars)
}

// ValidateTaskSummaries validates the joined per-task summary block used by
// the report prompt.
func ValidateTaskSummaries(summaries string) (string, error) {
	return Sanitize(summaries, global.MaxTaskSummariesChars)
}
