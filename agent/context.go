/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package agent

import (
	"strings"

	"github.com/PivotLLM/Paralegal/global"
)

// truncateTail bounds a context blob for prompt use. A blob at or under max
// passes through unchanged; anything larger is reduced to its trailing keep
// characters behind a truncation marker. Recency wins over completeness:
// later notes build on earlier ones, so the tail is the useful part under a
// model context limit. This is a read-time view only - stored notes are
// never truncated.
func truncateTail(blob string, max, keep int) string {
	if len(blob) <= max {
		return blob
	}
	return global.TruncationMarker + blob[len(blob)-keep:]
}

// buildContextBlob joins validated context notes for the refine-query prompt.
func buildContextBlob(notes []string) string {
	if len(notes) == 0 {
		return "No prior context."
	}
	blob := strings.Join(notes, "\n")
	return truncateTail(blob, global.ExecutorContextMaxChars, global.ExecutorContextKeepChars)
}
