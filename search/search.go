/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package search provides a client for the Tavily web-search API. One query,
// one bounded result set; provider errors and timeouts propagate with no
// retry (a single failed search call fails the whole task).
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PivotLLM/Paralegal/global"
	"github.com/PivotLLM/Paralegal/logging"
)

// Client issues search queries against the Tavily REST API.
type Client struct {
	BaseURL string
	APIKey  string // process-wide default; per-call override wins
	logger  *logging.Logger
	client  *http.Client
}

// New creates a search client.
func New(baseURL, apiKey string, logger *logging.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		logger:  logger,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// searchRequest is the wire shape of a Tavily search request
type searchRequest struct {
	Query             string `json:"query"`
	APIKey            string `json:"api_key"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

// searchResponse is the subset of the Tavily response we consume
type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search posts one query and returns up to MaxSearchResults items. The
// apiKeyOverride, when non-empty, takes precedence over the process default
// for this call only.
func (c *Client) Search(ctx context.Context, query, apiKeyOverride string) (*global.SearchResponse, error) {
	apiKey := apiKeyOverride
	if apiKey == "" {
		apiKey = c.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("search: no API key configured")
	}

	payload, err := json.Marshal(searchRequest{
		Query:             query,
		APIKey:            apiKey,
		MaxResults:        global.MaxSearchResults,
		IncludeRawContent: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search backend returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	out := &global.SearchResponse{
		Query:   query,
		Results: make([]global.SearchResult, 0, len(parsed.Results)),
	}
	for _, r := range parsed.Results {
		out.Results = append(out.Results, global.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
		})
		if len(out.Results) >= global.MaxSearchResults {
			break
		}
	}

	if c.logger != nil {
		c.logger.Debugf("Search returned %d results for query %q", len(out.Results), query)
	}

	return out, nil
}
