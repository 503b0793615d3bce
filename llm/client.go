/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package llm provides a thin client for an OpenAI-compatible chat
// completions backend. One call, one response; failures propagate unmodified
// to the caller. The caller owns parsing of any structured output.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PivotLLM/Paralegal/logging"
	"github.com/PivotLLM/Paralegal/prompts"
)

// AuthError indicates the completion backend rejected our credentials.
// Kept distinct from generic provider failure because the remedy differs:
// supply a valid key rather than wait and retry.
type AuthError struct {
	StatusCode int
	Detail     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("completion backend rejected credentials (status %d): %s", e.StatusCode, e.Detail)
}

// IsAuthError checks if an error is an AuthError
func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// Client issues chat completion requests to an OpenAI-compatible endpoint.
type Client struct {
	BaseURL string
	Model   string
	APIKey  string // process-wide default; per-call override wins
	logger  *logging.Logger
	client  *http.Client
}

// CompleteOptions configures a single completion call.
type CompleteOptions struct {
	WantJSON bool   // instruct the backend to return a valid JSON object
	APIKey   string // request-scoped credential override (empty = use default)
}

// New creates a completion client.
func New(baseURL, model, apiKey string, logger *logging.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  apiKey,
		logger:  logger,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// chatRequest is the wire shape of a chat completions request
type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []prompts.Message `json:"messages"`
	ResponseFormat *responseFormat   `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the subset of the chat completions response we consume
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one request to the completion backend and returns the
// assistant's text content. No retry and no fallback content: network,
// authentication and malformed-response failures all propagate to the caller.
func (c *Client) Complete(ctx context.Context, messages []prompts.Message, opts CompleteOptions) (string, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = c.APIKey
	}
	if apiKey == "" {
		return "", &AuthError{StatusCode: 0, Detail: "no API key configured"}
	}

	reqBody := chatRequest{
		Model:    c.Model,
		Messages: messages,
	}
	if opts.WantJSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		detail := "invalid or expired API key"
		if parsed.Error != nil {
			detail = parsed.Error.Message
		}
		return "", &AuthError{StatusCode: resp.StatusCode, Detail: detail}
	}
	if resp.StatusCode != http.StatusOK {
		detail := ""
		if parsed.Error != nil {
			detail = ": " + parsed.Error.Message
		}
		return "", fmt.Errorf("completion backend returned status %d%s", resp.StatusCode, detail)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	if c.logger != nil {
		c.logger.Debugf("Completion call finished in %s (model=%s, json=%t)",
			time.Since(start).Round(time.Millisecond), c.Model, opts.WantJSON)
	}

	return parsed.Choices[0].Message.Content, nil
}
