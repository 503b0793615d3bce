/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package security

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/PivotLLM/Paralegal/global"
)

// searchResponseSchema enforces the structural contract on search provider
// output: a mapping with a results list whose items each bear title, url and
// content. This is the last point raw, untrusted provider content exists
// before being folded into prompts.
const searchResponseSchema = `{
  "type": "object",
  "required": ["results"],
  "properties": {
    "query": {"type": "string"},
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "url", "content"],
        "properties": {
          "title": {"type": "string"},
          "url": {"type": "string"},
          "content": {"type": "string"}
        }
      }
    }
  }
}`

var searchSchema = gojsonschema.NewStringLoader(searchResponseSchema)

// ValidateSearchResponse validates a search response structurally and then
// sanitizes each item's title and content. URLs are passed through unchanged:
// they are trusted transport metadata from the search provider, not LLM-bound
// free text.
func ValidateSearchResponse(resp *global.SearchResponse) (*global.SearchResponse, error) {
	if resp == nil {
		return nil, &InjectionError{Reason: "search response is missing"}
	}

	// Structural check against the schema
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search response: %w", err)
	}
	result, err := gojsonschema.Validate(searchSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("search response validation error: %w", err)
	}
	if !result.Valid() {
		var reasons []string
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return nil, &InjectionError{Reason: fmt.Sprintf(
			"malformed search response: %s", strings.Join(reasons, "; "))}
	}

	// Per-field sanitization
	validated := &global.SearchResponse{
		Query:   resp.Query,
		Results: make([]global.SearchResult, 0, len(resp.Results)),
	}
	for i, item := range resp.Results {
		title, err := Sanitize(item.Title, global.MaxResultTitleChars)
		if err != nil {
			return nil, fmt.Errorf("search result %d title: %w", i, err)
		}
		content, err := Sanitize(item.Content, global.MaxResultContentChars)
		if err != nil {
			return nil, fmt.Errorf("search result %d content: %w", i, err)
		}
		validated.Results = append(validated.Results, global.SearchResult{
			Title:   title,
			URL:     item.URL,
			Content: content,
		})
	}

	return validated, nil
}
