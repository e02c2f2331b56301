package decision

import (
	"fmt"
	"time"

	"github.com/ShayCichocki/swarmville/internal/exec"
	"github.com/ShayCichocki/swarmville/internal/logging"
)

// Backend names accepted by New.
const (
	BackendClaude = "claude"
	BackendCursor = "cursor"
	BackendAPI    = "api"
	BackendMock   = "mock"
)

// Default models per backend.
const (
	DefaultClaudeModel = "claude-haiku-4-5-20251001"
	DefaultCursorModel = "claude-3.5-sonnet"
	DefaultAPIModel    = "claude-sonnet-4-20250514"
)

// Backends lists every backend New accepts.
var Backends = []string{BackendClaude, BackendCursor, BackendAPI, BackendMock}

// selectorTable maps orchestrator selectors to a backend and model.
var selectorTable = map[string][2]string{
	"claude":       {BackendClaude, DefaultClaudeModel},
	"claude-haiku": {BackendClaude, DefaultClaudeModel},
	"cursor":       {BackendCursor, DefaultCursorModel},
	"cursor-auto":  {BackendCursor, "auto"},
	"api":          {BackendAPI, DefaultAPIModel},
	"mock":         {BackendMock, "mock"},
}

// ResolveSelector maps a selector such as "cursor-auto" to a backend and
// model. Unknown selectors return ErrUnknownBackend.
func ResolveSelector(selector string) (backend, model string, err error) {
	pair, ok := selectorTable[selector]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownBackend, selector)
	}
	return pair[0], pair[1], nil
}

// Options carries the per-backend settings New needs.
type Options struct {
	Claude CLIOptions
	Cursor CLIOptions
	API    APIOptions
	// Mock is used for the mock backend. Nil builds NewMock().
	Mock *MockProvider

	DecisionTimeout   time.Duration
	GenerationTimeout time.Duration
	Runner            exec.CommandRunner
	Logger            *logging.Logger
}

// New builds the provider for backend. A non-empty model overrides the
// configured one.
func New(backend, model string, opts Options) (Provider, error) {
	switch backend {
	case BackendClaude:
		o := opts.cliOptions(opts.Claude, model)
		return NewClaudeCLI(o), nil
	case BackendCursor:
		o := opts.cliOptions(opts.Cursor, model)
		return NewCursorCLI(o), nil
	case BackendAPI:
		o := opts.API
		if model != "" {
			o.Model = model
		}
		if o.DecisionTimeout == 0 {
			o.DecisionTimeout = opts.DecisionTimeout
		}
		if o.GenerationTimeout == 0 {
			o.GenerationTimeout = opts.GenerationTimeout
		}
		if o.Logger == nil {
			o.Logger = opts.Logger
		}
		return NewAPIProvider(o), nil
	case BackendMock:
		if opts.Mock != nil {
			return opts.Mock, nil
		}
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func (o Options) cliOptions(base CLIOptions, model string) CLIOptions {
	if model != "" {
		base.Model = model
	}
	if base.DecisionTimeout == 0 {
		base.DecisionTimeout = o.DecisionTimeout
	}
	if base.GenerationTimeout == 0 {
		base.GenerationTimeout = o.GenerationTimeout
	}
	if base.Runner == nil {
		base.Runner = o.Runner
	}
	if base.Logger == nil {
		base.Logger = o.Logger
	}
	return base
}
