// Package session provides durable persistence for workflow state. It is
// the only component allowed to make state durable: one JSON document per
// session under the sessions root, written atomically, guarded by a
// PID-liveness lock file for single-writer access.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/draftflow/draftflow/internal/errors"
	"github.com/draftflow/draftflow/internal/workflow"
)

// Layout constants for the on-disk session tree.
const (
	// RootDirName is the directory created under the project root that
	// holds all draftflow data.
	RootDirName = ".draftflow"

	// SessionsDirName is the directory within RootDirName that contains
	// one subdirectory per session.
	SessionsDirName = "sessions"

	// StateFileName is the session state document within a session directory.
	StateFileName = "session.json"

	// IterationsDirName holds one subdirectory per iteration.
	IterationsDirName = "iterations"

	// DecisionsDirName holds approval decision files dropped by the CLI.
	DecisionsDirName = "decisions"
)

// SessionsDir returns the path to the sessions directory for a base directory.
func SessionsDir(baseDir string) string {
	return filepath.Join(baseDir, RootDirName, SessionsDirName)
}

// Dir returns the path to a specific session's directory.
func Dir(baseDir, sessionID string) string {
	return filepath.Join(SessionsDir(baseDir), sessionID)
}

// IterationDir returns the path to one iteration's artifact directory.
func IterationDir(sessionDir string, iteration int) string {
	return filepath.Join(sessionDir, IterationsDirName, fmt.Sprintf("iteration-%d", iteration))
}

// DecisionsDir returns the path to a session's approval decisions directory.
func DecisionsDir(sessionDir string) string {
	return filepath.Join(sessionDir, DecisionsDirName)
}

// Store persists workflow state as JSON documents on the local filesystem.
// Reads and writes are atomic at the document level; concurrent access is
// the caller's responsibility via AcquireLock.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at the given base directory. The
// sessions directory is created if it does not exist.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(SessionsDir(baseDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// BaseDir returns the base directory for this store.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// SessionDir returns the storage path for a session.
func (s *Store) SessionDir(sessionID string) string {
	return Dir(s.baseDir, sessionID)
}

// Create persists a new session's state and creates the session's root
// directory. It creates no iteration directories: those are allocated
// lazily by the materializer. Returns an error if the session already
// exists.
func (s *Store) Create(state *workflow.State) error {
	if state.SessionID == "" {
		return errors.NewValidationError("session ID cannot be empty").WithField("session_id")
	}

	sessionDir := s.SessionDir(state.SessionID)
	if _, err := os.Stat(filepath.Join(sessionDir, StateFileName)); err == nil {
		return fmt.Errorf("session %s already exists", state.SessionID)
	}

	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	return s.Save(state)
}

// Save persists a session's state using an atomic write.
func (s *Store) Save(state *workflow.State) error {
	if state.SessionID == "" {
		return errors.NewValidationError("session ID cannot be empty").WithField("session_id")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	sessionDir := s.SessionDir(state.SessionID)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	return atomicWriteFile(filepath.Join(sessionDir, StateFileName), data, 0644)
}

// Load retrieves a session's state by ID.
func (s *Store) Load(sessionID string) (*workflow.State, error) {
	stateFile := filepath.Join(s.SessionDir(sessionID), StateFileName)

	data, err := os.ReadFile(stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("session", sessionID)
		}
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}

	var state workflow.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrSessionCorrupted, err)
	}

	if state.SessionID != sessionID {
		return nil, fmt.Errorf("%w: session ID mismatch (file: %s, expected: %s)",
			errors.ErrSessionCorrupted, state.SessionID, sessionID)
	}
	if state.StageHashes == nil {
		state.StageHashes = make(map[string]string)
	}

	return &state, nil
}

// Exists checks if a session with the given ID exists.
func (s *Store) Exists(sessionID string) bool {
	_, err := os.Stat(filepath.Join(s.SessionDir(sessionID), StateFileName))
	return err == nil
}

// Delete removes a session and all associated data.
func (s *Store) Delete(sessionID string) error {
	sessionDir := s.SessionDir(sessionID)

	if _, err := os.Stat(sessionDir); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("session", sessionID)
		}
		return fmt.Errorf("failed to check session directory: %w", err)
	}

	if err := os.RemoveAll(sessionDir); err != nil {
		return fmt.Errorf("failed to delete session directory: %w", err)
	}
	return nil
}

// atomicWriteFile writes data to a file atomically by writing to a
// temporary file first, then renaming. The target file is never observed
// in a partially-written state.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Create temp file in same directory to ensure atomic rename
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
