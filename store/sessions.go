/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package store persists sessions and report artifacts as flat keyed files:
// one JSON document per session and one markdown file per report, keyed by
// session id. Writes are atomic and serialized per session via a lock file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"github.com/PivotLLM/Paralegal/global"
	"github.com/PivotLLM/Paralegal/logging"
)

// ErrNotFound is returned when no record exists for a session id.
var ErrNotFound = errors.New("session not found")

// sessionIDRegex rejects ids that could escape the storage directory.
// Session ids are UUIDs, so anything else is suspect.
var sessionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// Sessions provides session persistence operations
type Sessions struct {
	dir    string
	logger *logging.Logger
}

// NewSessions creates a session store rooted at dir.
func NewSessions(dir string, logger *logging.Logger) *Sessions {
	return &Sessions{dir: dir, logger: logger}
}

// validateID validates a session id before it is used as a file name
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if !sessionIDRegex.MatchString(id) {
		return fmt.Errorf("invalid session id: %s", id)
	}
	return nil
}

// filePath returns the path to a session's JSON file
func (s *Sessions) filePath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// lockPath returns the lock file path for a session
func (s *Sessions) lockPath(id string) string {
	return s.filePath(id) + ".lock"
}

// withLock executes a function with file-level locking for one session
func (s *Sessions) withLock(id string, fn func() error) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	lock := flock.New(s.lockPath(id))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire session lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}

// Save persists a session, overwriting any existing record.
func (s *Sessions) Save(session *global.Session) error {
	if err := validateID(session.SessionID); err != nil {
		return err
	}

	return s.withLock(session.SessionID, func() error {
		if session.Tasks == nil {
			session.Tasks = []global.Task{}
		}
		if session.ContextNotes == nil {
			session.ContextNotes = []string{}
		}

		data, err := json.MarshalIndent(session, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		if err := global.AtomicWrite(s.filePath(session.SessionID), data); err != nil {
			return fmt.Errorf("failed to write session %s: %w", session.SessionID, err)
		}
		return nil
	})
}

// Load reads a session by id. Returns ErrNotFound if no record exists.
func (s *Sessions) Load(id string) (*global.Session, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	var session global.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}
	if session.Tasks == nil {
		session.Tasks = []global.Task{}
	}
	if session.ContextNotes == nil {
		session.ContextNotes = []string{}
	}

	return &session, nil
}

// List returns all stored sessions, newest first.
func (s *Sessions) List() ([]*global.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*global.Session{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	sessions := make([]*global.Session, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		session, err := s.Load(id)
		if err != nil {
			// A corrupt record should not take down the listing
			if s.logger != nil {
				s.logger.Warnf("Skipping unreadable session file %s: %v", name, err)
			}
			continue
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt > sessions[j].CreatedAt
	})

	return sessions, nil
}

// Delete removes a session record. Returns ErrNotFound if it doesn't exist.
func (s *Sessions) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	return s.withLock(id, func() error {
		path := s.filePath(id)
		if !global.FileExists(path) {
			return ErrNotFound
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", id, err)
		}
		_ = os.Remove(s.lockPath(id))
		return nil
	})
}
