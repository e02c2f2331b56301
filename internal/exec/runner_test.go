package exec

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExecRunner_StdinAndStdout(t *testing.T) {
	r := NewRunner()
	res, err := r.Run(context.Background(), Request{
		Name:  "sh",
		Args:  []string{"-c", "cat; echo oops >&2"},
		Stdin: "hello",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if string(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q, want hello", res.Stdout)
	}
	if strings.TrimSpace(string(res.Stderr)) != "oops" {
		t.Errorf("Stderr = %q, want oops", res.Stderr)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	r := NewRunner()
	res, err := r.Run(context.Background(), Request{
		Name: "sh",
		Args: []string{"-c", "echo bad >&2; exit 3"},
	})
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want *exec.ExitError", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(string(res.Stderr), "bad") {
		t.Errorf("Stderr = %q, want bad", res.Stderr)
	}
}

func TestExecRunner_EnvAppended(t *testing.T) {
	r := NewRunner()
	res, err := r.Run(context.Background(), Request{
		Name: "sh",
		Args: []string{"-c", "printf %s \"$SWARMVILLE_TEST_VAR\""},
		Env:  []string{"SWARMVILLE_TEST_VAR=set"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if string(res.Stdout) != "set" {
		t.Errorf("Stdout = %q, want set", res.Stdout)
	}
}

func TestExecRunner_ContextCancelKills(t *testing.T) {
	r := NewRunner()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, Request{
		Name:      "sleep",
		Args:      []string{"10"},
		WaitDelay: 100 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error from cancelled process")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run took %v after cancel", elapsed)
	}
}

func TestExecRunner_MissingExecutable(t *testing.T) {
	r := NewRunner()
	missing := filepath.Join(t.TempDir(), "no-such-binary")
	if _, err := r.Run(context.Background(), Request{Name: missing}); err == nil {
		t.Fatal("expected error for missing executable")
	}
	if _, err := r.LookPath("swarmville-definitely-not-installed"); err == nil {
		t.Fatal("LookPath found a binary that should not exist")
	}
}

func TestIsExecutableFile(t *testing.T) {
	dir := t.TempDir()
	if IsExecutableFile(dir) {
		t.Error("directory reported as file")
	}
	if IsExecutableFile(filepath.Join(dir, "missing")) {
		t.Error("missing path reported as file")
	}
}
