package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/draftflow/draftflow/internal/errors"
)

// ManualProvider hands off to a human: the prompt stays in the iteration
// directory and the operator drops the response file when ready. Deliver
// always returns Pending; the response stage stays blocked until the file
// appears.
type ManualProvider struct{}

// NewManualProvider creates a ManualProvider.
func NewManualProvider() *ManualProvider {
	return &ManualProvider{}
}

// Name returns the provider's configuration name.
func (p *ManualProvider) Name() string {
	return "manual"
}

// Deliver records the handoff. The prompt file is already on disk; nothing
// else to do.
func (p *ManualProvider) Deliver(ctx context.Context, promptPath, responsePath string) (Delivery, error) {
	if err := ctx.Err(); err != nil {
		return Delivery{Outcome: Cancelled}, nil
	}
	return Delivery{
		Outcome: Pending,
		Detail:  fmt.Sprintf("awaiting response at %s", responsePath),
	}, nil
}

// AwaitResponse blocks until responsePath exists, the context is
// cancelled, or the timeout elapses. It watches the response file's
// directory (fsnotify works better with directories) with a ticker
// fallback for filesystems that drop events. A zero timeout waits
// indefinitely.
func (p *ManualProvider) AwaitResponse(ctx context.Context, responsePath string, timeout time.Duration) error {
	if _, err := os.Stat(responsePath); err == nil {
		return nil
	}

	dir := filepath.Dir(responsePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	// Re-check after the watch is in place: the file may have appeared
	// between the stat and the Add.
	if _, err := os.Stat(responsePath); err == nil {
		return nil
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	target := filepath.Base(responsePath)
	for {
		select {
		case <-ctx.Done():
			return errors.ErrCancelled

		case <-deadline:
			return errors.NewTimeoutError("await response", timeout)

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if _, err := os.Stat(responsePath); err == nil {
				return nil
			}

		case <-ticker.C:
			if _, err := os.Stat(responsePath); err == nil {
				return nil
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			// Watch errors are non-fatal; the ticker still polls.
		}
	}
}
