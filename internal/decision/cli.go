package decision

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ShayCichocki/swarmville/internal/exec"
	"github.com/ShayCichocki/swarmville/internal/logging"
)

// CLIFlavor selects which command-line tool a CLIProvider drives.
type CLIFlavor string

const (
	FlavorClaude CLIFlavor = "claude"
	FlavorCursor CLIFlavor = "cursor"
)

// CLIOptions configures a CLIProvider.
type CLIOptions struct {
	// Path is the executable. Empty uses "claude" or "cursor-agent".
	Path string
	// Model is passed with --model.
	Model string
	// APIKey is forwarded as CURSOR_API_KEY (cursor only).
	APIKey            string
	DecisionTimeout   time.Duration
	GenerationTimeout time.Duration
	// Runner executes the process. Nil uses exec.NewRunner().
	Runner exec.CommandRunner
	Logger *logging.Logger
}

// CLIProvider makes decisions by running the Claude CLI or cursor-agent.
type CLIProvider struct {
	flavor            CLIFlavor
	path              string
	model             string
	apiKey            string
	decisionTimeout   time.Duration
	generationTimeout time.Duration
	runner            exec.CommandRunner
	log               *logging.Logger
}

// NewClaudeCLI creates a provider that runs `claude -p --output-format json`.
func NewClaudeCLI(opts CLIOptions) *CLIProvider {
	if opts.Path == "" {
		opts.Path = "claude"
	}
	if opts.Model == "" {
		opts.Model = DefaultClaudeModel
	}
	return newCLIProvider(FlavorClaude, opts)
}

// NewCursorCLI creates a provider that runs `cursor-agent -p <prompt>`.
func NewCursorCLI(opts CLIOptions) *CLIProvider {
	if opts.Path == "" {
		opts.Path = "cursor-agent"
	}
	if opts.Model == "" {
		opts.Model = DefaultCursorModel
	}
	return newCLIProvider(FlavorCursor, opts)
}

func newCLIProvider(flavor CLIFlavor, opts CLIOptions) *CLIProvider {
	p := &CLIProvider{
		flavor:            flavor,
		path:              opts.Path,
		model:             opts.Model,
		apiKey:            opts.APIKey,
		decisionTimeout:   opts.DecisionTimeout,
		generationTimeout: opts.GenerationTimeout,
		runner:            opts.Runner,
		log:               opts.Logger.With(string(flavor)),
	}
	if p.decisionTimeout <= 0 {
		p.decisionTimeout = DefaultDecisionTimeout
	}
	if p.generationTimeout <= 0 {
		p.generationTimeout = DefaultGenerationTimeout
	}
	if p.runner == nil {
		p.runner = exec.NewRunner()
	}
	return p
}

// Name implements Provider.
func (p *CLIProvider) Name() string {
	return string(p.flavor)
}

// Model returns the model passed to the CLI.
func (p *CLIProvider) Model() string {
	return p.model
}

// cursorInstallPaths are checked when cursor-agent is not on PATH.
func cursorInstallPaths() []string {
	paths := []string{"/usr/local/bin/cursor-agent", "/usr/local/bin/cursor", "/usr/bin/cursor"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".local", "bin", "cursor-agent"),
			filepath.Join(home, ".local", "bin", "cursor"))
	}
	return paths
}

// resolve finds the executable to run.
func (p *CLIProvider) resolve() (string, bool) {
	if strings.ContainsRune(p.path, os.PathSeparator) {
		if exec.IsExecutableFile(p.path) {
			return p.path, true
		}
	} else if found, err := p.runner.LookPath(p.path); err == nil {
		return found, true
	}
	if p.flavor == FlavorCursor {
		for _, candidate := range cursorInstallPaths() {
			if exec.IsExecutableFile(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// IsAvailable implements Provider.
func (p *CLIProvider) IsAvailable(ctx context.Context) bool {
	_, ok := p.resolve()
	return ok
}

func (p *CLIProvider) request(bin, prompt string) exec.Request {
	switch p.flavor {
	case FlavorCursor:
		args := []string{"-p", prompt, "--output-format", "json"}
		if p.model != "" && p.model != "auto" {
			args = append(args, "--model", p.model)
		}
		req := exec.Request{Name: bin, Args: args}
		if p.apiKey != "" {
			req.Env = []string{"CURSOR_API_KEY=" + p.apiKey}
		}
		return req
	default:
		return exec.Request{
			Name:  bin,
			Args:  []string{"-p", "--output-format", "json", "--model", p.model},
			Stdin: prompt,
		}
	}
}

// claudeEnvelope is the JSON object printed by `claude --output-format json`.
type claudeEnvelope struct {
	Type    string `json:"type"`
	IsError bool   `json:"is_error"`
	Result  string `json:"result"`
}

// exchange runs one prompt through the CLI and returns the unwrapped text.
func (p *CLIProvider) exchange(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	bin, ok := p.resolve()
	if !ok {
		return "", newError(KindNotInstalled, "%s", p.path)
	}

	p.log.Debug("executing %s with model %s", bin, p.model)
	res, err := runBounded(ctx, p.runner, p.request(bin, prompt), timeout)
	if err != nil {
		return "", classifyRunError(p.Name(), res, err)
	}

	out := strings.TrimSpace(string(res.Stdout))
	if out == "" {
		return "", newError(KindInvalidResponse, "%s produced no output", p.Name())
	}

	if p.flavor == FlavorClaude {
		var env claudeEnvelope
		if json.Unmarshal([]byte(out), &env) == nil && env.IsError {
			if looksLikeAuthFailure(env.Result) {
				return "", newError(KindAuthenticationFailed, "%s", env.Result)
			}
			return "", newError(KindExecutionFailed, "claude reported an error: %s", env.Result)
		}
	}

	return UnwrapEnvelope(out), nil
}

// MakeDecision implements Provider.
func (p *CLIProvider) MakeDecision(ctx context.Context, dc Context) (Action, error) {
	p.log.Info("making decision for agent %s", dc.AgentName)

	text, err := p.exchange(ctx, dc.Prompt(), p.decisionTimeout)
	if err != nil {
		return Action{}, err
	}
	p.log.Debug("response text: %s", text)

	action, err := ParseAction(text)
	if err != nil {
		return Action{}, err
	}
	p.log.Info("decision for %s: %s", dc.AgentName, action)
	return action, nil
}

// GenerateText implements Provider.
func (p *CLIProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	return p.exchange(ctx, prompt, p.generationTimeout)
}

var _ Provider = (*CLIProvider)(nil)
