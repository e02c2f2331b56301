// Package exec provides an interface for running external decision
// executables.
package exec

import (
	"context"
	"time"
)

// Request describes one external process invocation.
type Request struct {
	// Name is the executable path or a name resolved through PATH.
	Name string
	// Args are passed to the executable.
	Args []string
	// Stdin is written to the process and then closed. Empty means no input.
	Stdin string
	// Env is appended to the current environment.
	Env []string
	// WaitDelay bounds how long Run waits for I/O after the context ends.
	WaitDelay time.Duration
}

// Result holds the captured output of a finished process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Run executes the request and waits for it to finish. A non-zero exit
	// returns the captured Result together with an *exec.ExitError.
	Run(ctx context.Context, req Request) (Result, error)

	// LookPath resolves an executable name the way Run would.
	LookPath(name string) (string, error)
}
