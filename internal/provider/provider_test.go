package provider

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/draftflow/draftflow/internal/errors"
)

func TestManualDeliverIsPending(t *testing.T) {
	p := NewManualProvider()

	d, err := p.Deliver(context.Background(), "/tmp/prompt.md", "/tmp/response.md")
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if d.Outcome != Pending {
		t.Errorf("Outcome = %q, want %q", d.Outcome, Pending)
	}
}

func TestManualAwaitResponseExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "response.md")
	if err := os.WriteFile(path, []byte("done"), 0644); err != nil {
		t.Fatal(err)
	}

	p := NewManualProvider()
	if err := p.AwaitResponse(context.Background(), path, time.Second); err != nil {
		t.Errorf("AwaitResponse() error = %v", err)
	}
}

func TestManualAwaitResponseFileAppears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "response.md")

	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(path, []byte("late"), 0644)
	}()

	p := NewManualProvider()
	if err := p.AwaitResponse(context.Background(), path, 10*time.Second); err != nil {
		t.Errorf("AwaitResponse() error = %v", err)
	}
}

func TestManualAwaitResponseTimeout(t *testing.T) {
	dir := t.TempDir()
	p := NewManualProvider()

	err := p.AwaitResponse(context.Background(), filepath.Join(dir, "never.md"), 100*time.Millisecond)
	if !errors.Is(err, errors.ErrTimeout) {
		t.Errorf("AwaitResponse() error = %v, want timeout", err)
	}
}

func TestManualAwaitResponseCancelled(t *testing.T) {
	dir := t.TempDir()
	p := NewManualProvider()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := p.AwaitResponse(ctx, filepath.Join(dir, "never.md"), 0)
	if !errors.Is(err, errors.ErrCancelled) {
		t.Errorf("AwaitResponse() error = %v, want cancelled", err)
	}
}

func TestCommandProviderWritesResponse(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.md")
	responsePath := filepath.Join(dir, "response.md")
	if err := os.WriteFile(promptPath, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	// cat echoes the prompt back, standing in for a real model command.
	p, err := NewCommandProvider("cat", nil, time.Minute)
	if err != nil {
		t.Fatalf("NewCommandProvider() error = %v", err)
	}

	d, err := p.Deliver(context.Background(), promptPath, responsePath)
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if d.Outcome != Completed {
		t.Errorf("Outcome = %q, want %q", d.Outcome, Completed)
	}

	data, err := os.ReadFile(responsePath)
	if err != nil {
		t.Fatalf("response not written: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("response = %q, want %q", data, "hello")
	}
}

func TestCommandProviderFailure(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.md")
	if err := os.WriteFile(promptPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := NewCommandProvider("false", nil, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Deliver(context.Background(), promptPath, filepath.Join(dir, "response.md"))
	var provErr *errors.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Deliver() error type = %T, want *errors.ProviderError", err)
	}
}

func TestCommandProviderEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.md")
	if err := os.WriteFile(promptPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := NewCommandProvider("true", nil, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Deliver(context.Background(), promptPath, filepath.Join(dir, "response.md"))
	if err == nil || !strings.Contains(err.Error(), "no output") {
		t.Errorf("Deliver() error = %v, want no-output provider error", err)
	}
}

func TestCommandProviderTimeout(t *testing.T) {
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.md")
	if err := os.WriteFile(promptPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := NewCommandProvider("sleep", []string{"5"}, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.Deliver(context.Background(), promptPath, filepath.Join(dir, "response.md"))
	var provErr *errors.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Deliver() error type = %T, want *errors.ProviderError", err)
	}
	if !errors.IsRetryable(err) {
		t.Errorf("timeout provider error should be retryable")
	}
}

func TestNewCommandProviderValidation(t *testing.T) {
	if _, err := NewCommandProvider("  ", nil, 0); err == nil {
		t.Error("NewCommandProvider() expected error for empty command")
	}
}
