package decision

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/ShayCichocki/swarmville/internal/logging"
)

const (
	defaultMaxTokens = 1024
	apiSystemPrompt  = "You control one agent in a shared 2D office simulation. Follow the output format exactly."
)

// APIOptions configures an APIProvider.
type APIOptions struct {
	// Model is the Claude model. Empty uses DefaultAPIModel.
	Model string
	// APIKey falls back to ANTHROPIC_API_KEY when empty.
	APIKey string
	// MaxTokens bounds each response.
	MaxTokens int64
	// UseBedrock routes requests through AWS Bedrock.
	UseBedrock bool
	AWSRegion  string
	AWSProfile string
	// BaseURL overrides the API endpoint.
	BaseURL           string
	DecisionTimeout   time.Duration
	GenerationTimeout time.Duration
	Logger            *logging.Logger
}

// APIProvider makes decisions through the Anthropic Messages API.
type APIProvider struct {
	client            anthropic.Client
	model             anthropic.Model
	maxTokens         int64
	hasCredentials    bool
	decisionTimeout   time.Duration
	generationTimeout time.Duration
	log               *logging.Logger

	mu        sync.Mutex
	inputTok  int64
	outputTok int64
}

// NewAPIProvider creates an API-backed provider. Missing credentials are not
// an error here; IsAvailable reports them.
func NewAPIProvider(opts APIOptions) *APIProvider {
	var reqOpts []option.RequestOption
	hasCredentials := false

	if opts.UseBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if opts.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(opts.AWSRegion))
		}
		if opts.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.AWSProfile))
		}
		reqOpts = append(reqOpts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
		hasCredentials = true
	} else {
		apiKey := opts.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey != "" {
			reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
			hasCredentials = true
		}
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	model := anthropic.Model(opts.Model)
	if model == "" {
		model = anthropic.Model(DefaultAPIModel)
	}
	if opts.UseBedrock {
		model = bedrockModel(model)
	}

	p := &APIProvider{
		client:            anthropic.NewClient(reqOpts...),
		model:             model,
		maxTokens:         opts.MaxTokens,
		hasCredentials:    hasCredentials,
		decisionTimeout:   opts.DecisionTimeout,
		generationTimeout: opts.GenerationTimeout,
		log:               opts.Logger.With("api"),
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	if p.decisionTimeout <= 0 {
		p.decisionTimeout = DefaultDecisionTimeout
	}
	if p.generationTimeout <= 0 {
		p.generationTimeout = DefaultGenerationTimeout
	}
	return p
}

// bedrockModel converts a model name to its Bedrock cross-region profile.
func bedrockModel(model anthropic.Model) anthropic.Model {
	if strings.HasPrefix(string(model), "us.anthropic.") {
		return model
	}
	return anthropic.Model("us.anthropic." + string(model) + "-v1:0")
}

// Name implements Provider.
func (p *APIProvider) Name() string {
	return BackendAPI
}

// Model returns the model requests are sent to.
func (p *APIProvider) Model() string {
	return string(p.model)
}

// IsAvailable implements Provider.
func (p *APIProvider) IsAvailable(ctx context.Context) bool {
	return p.hasCredentials
}

// Usage returns the total input and output tokens consumed so far.
func (p *APIProvider) Usage() (input, output int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inputTok, p.outputTok
}

func (p *APIProvider) complete(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	if !p.hasCredentials {
		return "", newError(KindAuthenticationFailed, "no Anthropic API key configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: apiSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classifyAPIError(ctx, callCtx, err, timeout)
	}

	p.mu.Lock()
	p.inputTok += resp.Usage.InputTokens
	p.outputTok += resp.Usage.OutputTokens
	p.mu.Unlock()

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}
	if text.Len() == 0 {
		return "", newError(KindInvalidResponse, "response contained no text")
	}
	return text.String(), nil
}

func classifyAPIError(parent, call context.Context, err error, timeout time.Duration) error {
	if parent.Err() == nil && errors.Is(call.Err(), context.DeadlineExceeded) {
		return newError(KindTimeout, "%s", timeout)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 401 || apiErr.StatusCode == 403 {
			return newError(KindAuthenticationFailed, "status %d", apiErr.StatusCode)
		}
		return newError(KindExecutionFailed, "API status %d", apiErr.StatusCode)
	}
	return newError(KindExecutionFailed, "API error: %v", err)
}

// MakeDecision implements Provider.
func (p *APIProvider) MakeDecision(ctx context.Context, dc Context) (Action, error) {
	p.log.Info("making decision for agent %s", dc.AgentName)
	text, err := p.complete(ctx, dc.Prompt(), p.decisionTimeout)
	if err != nil {
		return Action{}, err
	}
	return ParseAction(text)
}

// GenerateText implements Provider.
func (p *APIProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	return p.complete(ctx, prompt, p.generationTimeout)
}

var _ Provider = (*APIProvider)(nil)
