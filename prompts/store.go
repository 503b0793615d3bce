/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package prompts

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPStore fetches chat prompts from a managed prompt store over its public
// REST API using basic authentication. Prompts are addressed by name and
// label (typically "production").
type HTTPStore struct {
	BaseURL   string
	PublicKey string
	SecretKey string
	Label     string
	client    *http.Client
}

// NewHTTPStore creates an HTTPStore with a bounded request timeout.
func NewHTTPStore(baseURL, publicKey, secretKey, label string) *HTTPStore {
	if label == "" {
		label = "production"
	}
	return &HTTPStore{
		BaseURL:   baseURL,
		PublicKey: publicKey,
		SecretKey: secretKey,
		Label:     label,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// storePrompt is the wire shape of a chat prompt in the store's API.
type storePrompt struct {
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Prompt []Message `json:"prompt"`
}

// GetPrompt fetches a chat prompt by name. Network and server-side failures
// are reported as UnreachableError so the resolver can fall back; an unknown
// prompt name (404) is a plain error and must stay distinguishable.
func (s *HTTPStore) GetPrompt(name string) (*Template, error) {
	endpoint := fmt.Sprintf("%s/api/public/v2/prompts/%s?label=%s",
		s.BaseURL, url.PathEscape(name), url.QueryEscape(s.Label))

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt request: %w", err)
	}
	req.SetBasicAuth(s.PublicKey, s.SecretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UnreachableError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("prompt not found in store: %s", name)
	case resp.StatusCode >= 500:
		return nil, &UnreachableError{Err: fmt.Errorf("store returned status %d", resp.StatusCode)}
	default:
		return nil, fmt.Errorf("prompt store returned status %d for %s", resp.StatusCode, name)
	}

	var sp storePrompt
	if err := json.NewDecoder(resp.Body).Decode(&sp); err != nil {
		return nil, fmt.Errorf("failed to decode store prompt %s: %w", name, err)
	}
	if sp.Type != "" && sp.Type != "chat" {
		return nil, fmt.Errorf("prompt %s has unexpected type %q", name, sp.Type)
	}
	if len(sp.Prompt) == 0 {
		return nil, fmt.Errorf("prompt %s has no messages", name)
	}

	return &Template{Name: name, Messages: sp.Prompt}, nil
}
