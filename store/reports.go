/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PivotLLM/Paralegal/global"
	"github.com/PivotLLM/Paralegal/logging"
)

// Reports persists report artifacts, one markdown file per session id,
// separate from the session record.
type Reports struct {
	dir    string
	logger *logging.Logger
}

// NewReports creates a report store rooted at dir.
func NewReports(dir string, logger *logging.Logger) *Reports {
	return &Reports{dir: dir, logger: logger}
}

// reportHeader is prepended to every saved report body.
const reportHeader = "# Legal Research Report\n\n**Goal:** %s\n\n**Generated:** %s\n\n---\n\n"

// Save writes a report artifact for the session and returns its path.
func (r *Reports) Save(sessionID, goal, content string) (string, error) {
	if err := validateID(sessionID); err != nil {
		return "", err
	}

	path := filepath.Join(r.dir, sessionID+".md")
	timestamp := time.Now().UTC().Format("2006-01-02 15:04 UTC")
	full := fmt.Sprintf(reportHeader, goal, timestamp) + content

	if err := global.AtomicWrite(path, []byte(full)); err != nil {
		return "", fmt.Errorf("failed to write report for session %s: %w", sessionID, err)
	}

	if r.logger != nil {
		r.logger.Infof("Report saved to %s (%d bytes)", path, len(full))
	}
	return path, nil
}

// Load reads a report artifact by its stored path. Returns ErrNotFound if the
// file is missing.
func (r *Reports) Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read report %s: %w", path, err)
	}
	return string(data), nil
}
