package provider

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/draftflow/draftflow/internal/errors"
)

// CommandProvider runs a local command, feeds it the prompt on stdin and
// writes its stdout to the response path. It is synchronous: Deliver
// returns Completed with the response on disk, or a provider error.
type CommandProvider struct {
	command string
	args    []string
	timeout time.Duration
}

// DefaultCommandTimeout bounds a single command invocation.
const DefaultCommandTimeout = 10 * time.Minute

// NewCommandProvider creates a CommandProvider. A non-positive timeout
// falls back to DefaultCommandTimeout.
func NewCommandProvider(command string, args []string, timeout time.Duration) (*CommandProvider, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.NewValidationError("provider command cannot be empty").
			WithField("provider.command")
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &CommandProvider{command: command, args: args, timeout: timeout}, nil
}

// Name returns the provider's configuration name.
func (p *CommandProvider) Name() string {
	return "command"
}

// Deliver runs the command with the prompt on stdin. Stdout becomes the
// response file, written atomically so a half-written response is never
// observed. Non-zero exit, empty output and timeouts are provider errors.
func (p *CommandProvider) Deliver(ctx context.Context, promptPath, responsePath string) (Delivery, error) {
	prompt, err := os.ReadFile(promptPath)
	if err != nil {
		return Delivery{}, errors.NewProviderError("failed to read prompt", err).
			WithProvider(p.Name()).WithOperation("deliver")
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.command, p.args...)
	cmd.Stdin = bytes.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return Delivery{}, errors.NewProviderError("command timed out", errors.ErrTimeout).
				WithProvider(p.Name()).WithOperation("deliver").WithRetryable(true)
		}
		if ctx.Err() == context.Canceled {
			return Delivery{Outcome: Cancelled}, nil
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return Delivery{}, errors.NewProviderError("command failed", err).
			WithProvider(p.Name()).WithOperation("deliver")
	}

	out := stdout.Bytes()
	if len(bytes.TrimSpace(out)) == 0 {
		return Delivery{}, errors.NewProviderError("command produced no output", nil).
			WithProvider(p.Name()).WithOperation("deliver")
	}

	if err := writeFileAtomic(responsePath, out); err != nil {
		return Delivery{}, errors.NewProviderError("failed to write response", err).
			WithProvider(p.Name()).WithOperation("deliver")
	}

	return Delivery{
		Outcome: Completed,
		Detail:  fmt.Sprintf("command wrote %d bytes", len(out)),
	}, nil
}

// writeFileAtomic writes via a temp file and rename so readers never see
// partial content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".response-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
