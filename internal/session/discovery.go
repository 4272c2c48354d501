package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/draftflow/draftflow/internal/workflow"
)

// Info contains summary information about a session.
type Info struct {
	ID         string         `json:"id"`
	Objective  string         `json:"objective"`
	Phase      workflow.Phase `json:"phase"`
	Stage      workflow.Stage `json:"stage"`
	Status     workflow.Status `json:"status"`
	Iteration  int            `json:"iteration"`
	Created    time.Time      `json:"created"`
	Updated    time.Time      `json:"updated"`
	IsLocked   bool           `json:"is_locked"`
	LockInfo   *Lock          `json:"lock_info,omitempty"`
	SessionDir string         `json:"session_dir"`
}

// stateSummary mirrors the state document but only the fields needed for
// listing, so a corrupt artifact list does not break discovery.
type stateSummary struct {
	SessionID string          `json:"session_id"`
	Objective string          `json:"objective"`
	Phase     workflow.Phase  `json:"phase"`
	Stage     workflow.Stage  `json:"stage"`
	Status    workflow.Status `json:"status"`
	Iteration int             `json:"iteration"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ListSessions returns information about all sessions under the base
// directory. Sessions are discovered by scanning the sessions directory
// for subdirectories containing state documents.
func ListSessions(baseDir string) ([]*Info, error) {
	entries, err := os.ReadDir(SessionsDir(baseDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No sessions directory = no sessions
		}
		return nil, err
	}

	var sessions []*Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := GetSessionInfo(baseDir, entry.Name())
		if err != nil {
			// Skip sessions we can't read
			continue
		}
		sessions = append(sessions, info)
	}

	return sessions, nil
}

// GetSessionInfo returns summary information about a specific session.
func GetSessionInfo(baseDir, sessionID string) (*Info, error) {
	sessionDir := Dir(baseDir, sessionID)

	data, err := os.ReadFile(filepath.Join(sessionDir, StateFileName))
	if err != nil {
		return nil, err
	}

	var summary stateSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}

	lockInfo, isLocked := IsLocked(sessionDir)

	return &Info{
		ID:         summary.SessionID,
		Objective:  summary.Objective,
		Phase:      summary.Phase,
		Stage:      summary.Stage,
		Status:     summary.Status,
		Iteration:  summary.Iteration,
		Created:    summary.CreatedAt,
		Updated:    summary.UpdatedAt,
		IsLocked:   isLocked,
		LockInfo:   lockInfo,
		SessionDir: sessionDir,
	}, nil
}

// CleanupStaleLocks iterates through all sessions and removes stale lock
// files. Returns the IDs of sessions that had stale locks cleaned.
func CleanupStaleLocks(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(SessionsDir(baseDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cleaned []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		sessionID := entry.Name()
		wasCleaned, err := CleanStaleLock(Dir(baseDir, sessionID), nil)
		if err != nil {
			continue // Skip errors, try other sessions
		}
		if wasCleaned {
			cleaned = append(cleaned, sessionID)
		}
	}

	return cleaned, nil
}
