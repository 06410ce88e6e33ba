package runner

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunEchoHello(t *testing.T) {
	r := Run(context.Background(), "echo hello", "", 0)
	if r.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", r.ExitCode)
	}
	if strings.TrimSpace(r.Stdout) != "hello" {
		t.Errorf("expected stdout 'hello', got %q", r.Stdout)
	}
}

func TestRunCaptureStderr(t *testing.T) {
	r := Run(context.Background(), "echo error >&2", "", 0)
	if r.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", r.ExitCode)
	}
	if strings.TrimSpace(r.Stderr) != "error" {
		t.Errorf("expected stderr 'error', got %q", r.Stderr)
	}
}

func TestRunNonZeroExitCode(t *testing.T) {
	r := Run(context.Background(), "exit 42", "", 0)
	if r.ExitCode != 42 {
		t.Errorf("expected exit code 42, got %d", r.ExitCode)
	}
}

func TestRunPipesWork(t *testing.T) {
	r := Run(context.Background(), "echo hello world | wc -w", "", 0)
	if r.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", r.ExitCode)
	}
	if strings.TrimSpace(r.Stdout) != "2" {
		t.Errorf("expected stdout '2', got %q", strings.TrimSpace(r.Stdout))
	}
}

func TestRunTimeout(t *testing.T) {
	r := Run(context.Background(), "sleep 5", "", 50*time.Millisecond)
	if !r.TimedOut {
		t.Fatal("expected result to be marked timed out")
	}
	if r.ExitCode != -1 {
		t.Errorf("expected exit code -1 on timeout, got %d", r.ExitCode)
	}
}

func TestRunHonorsWorkDir(t *testing.T) {
	dir := t.TempDir()
	r := Run(context.Background(), "pwd", dir, 0)
	if r.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", r.ExitCode)
	}
	if !strings.Contains(strings.TrimSpace(r.Stdout), dir) {
		t.Errorf("expected pwd %q to contain %q", r.Stdout, dir)
	}
}
