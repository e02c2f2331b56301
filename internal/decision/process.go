package decision

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ShayCichocki/swarmville/internal/exec"
)

// Default exchange timeouts.
const (
	DefaultDecisionTimeout   = 30 * time.Second
	DefaultGenerationTimeout = 120 * time.Second
	processWaitDelay         = 2 * time.Second
)

// authMarkers are lowercase substrings that identify a login problem in a
// backend's error output.
var authMarkers = []string{
	"authentication",
	"unauthorized",
	"not logged in",
	"invalid api key",
	"invalid x-api-key",
	"please run /login",
	"please log in",
	"401",
}

func looksLikeAuthFailure(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range authMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// runBounded runs req and returns when it finishes or timeout elapses,
// whichever comes first. On timeout the process context is cancelled and the
// process is left to exit on its own.
func runBounded(ctx context.Context, runner exec.CommandRunner, req exec.Request, timeout time.Duration) (exec.Result, error) {
	if timeout <= 0 {
		timeout = DefaultDecisionTimeout
	}
	if req.WaitDelay <= 0 {
		req.WaitDelay = processWaitDelay
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)

	type outcome struct {
		res exec.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer cancel()
		res, err := runner.Run(runCtx, req)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return out.res, newError(KindTimeout, "%s", timeout)
		}
		return out.res, out.err
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return exec.Result{}, newError(KindExecutionFailed, "cancelled: %v", ctx.Err())
		}
		return exec.Result{}, newError(KindTimeout, "%s", timeout)
	}
}

// classifyRunError maps a process failure to a decision error.
func classifyRunError(backend string, res exec.Result, err error) error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	stderr := strings.TrimSpace(string(res.Stderr))
	if looksLikeAuthFailure(stderr) || (res.ExitCode != 0 && looksLikeAuthFailure(string(res.Stdout))) {
		return newError(KindAuthenticationFailed, "%s: %s", backend, firstLine(stderr))
	}
	if stderr == "" {
		stderr = err.Error()
	}
	return newError(KindExecutionFailed, "%s CLI failed: %s", backend, stderr)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
