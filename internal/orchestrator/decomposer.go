// Package orchestrator splits composite tasks into role-tagged subtasks and
// fans them out to freshly spawned agents.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/swarmville/internal/decision"
	"github.com/ShayCichocki/swarmville/internal/logging"
	"github.com/ShayCichocki/swarmville/pkg/models"
)

// Decomposer turns a composite task into an ordered list of subtasks.
type Decomposer interface {
	Decompose(ctx context.Context, task models.CompositeTask) ([]models.Subtask, error)
}

// KeywordDecomposer picks the first pipeline whose triggers match the task
// description, or GenericPipeline when none does. It never fails.
type KeywordDecomposer struct {
	// Pipelines overrides DefaultPipelines when non-nil.
	Pipelines []Pipeline
}

// Decompose implements Decomposer.
func (k KeywordDecomposer) Decompose(_ context.Context, task models.CompositeTask) ([]models.Subtask, error) {
	return k.Split(task), nil
}

// Split is the synchronous form of Decompose.
func (k KeywordDecomposer) Split(task models.CompositeTask) []models.Subtask {
	pipelines := k.Pipelines
	if pipelines == nil {
		pipelines = DefaultPipelines
	}
	for _, p := range pipelines {
		if p.Matches(task.Description) {
			return p.Expand(task)
		}
	}
	return GenericPipeline.Expand(task)
}

// DefaultMaxSubtasks caps how many subtasks a provider may propose.
const DefaultMaxSubtasks = 6

// decompositionPrompt asks a provider for a role split of the request.
const decompositionPrompt = `Break this request into a short ordered list of specialist roles. Each role will be played by one autonomous agent.

Request:
%s

Return ONLY a JSON array with this exact structure (no other text):
[
  {"role": "snake_case_role", "description": "What this agent should do"}
]

Guidelines:
- Use between 2 and %d roles
- Order roles the way the work should flow
- Descriptions should be one sentence`

// proposedSubtask is the JSON shape returned by the provider.
type proposedSubtask struct {
	Role        string `json:"role"`
	Description string `json:"description"`
}

var errNoSubtasks = errors.New("provider proposed no subtasks")

// ProviderDecomposer asks a decision provider to propose the role split.
// Any provider or parse failure falls back to the keyword policy, so
// Decompose only fails when the context is cancelled.
type ProviderDecomposer struct {
	provider decision.Provider
	fallback KeywordDecomposer
	max      int
	log      *logging.Logger
}

// NewProviderDecomposer creates a ProviderDecomposer. A max below one uses
// DefaultMaxSubtasks.
func NewProviderDecomposer(p decision.Provider, max int, log *logging.Logger) *ProviderDecomposer {
	if max < 1 {
		max = DefaultMaxSubtasks
	}
	return &ProviderDecomposer{provider: p, max: max, log: log.With("decomposer")}
}

// Decompose implements Decomposer.
func (d *ProviderDecomposer) Decompose(ctx context.Context, task models.CompositeTask) ([]models.Subtask, error) {
	text, err := d.provider.GenerateText(ctx, fmt.Sprintf(decompositionPrompt, task.Description, d.max))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.log.Warn("%s generation failed, using keyword policy: %v", d.provider.Name(), err)
		return d.fallback.Split(task), nil
	}

	subtasks, err := parseProposal(task, text, d.max)
	if err != nil {
		d.log.Warn("unusable proposal from %s, using keyword policy: %v", d.provider.Name(), err)
		return d.fallback.Split(task), nil
	}
	d.log.Info("%s proposed %d subtasks for %s", d.provider.Name(), len(subtasks), task.ID)
	return subtasks, nil
}

// parseProposal turns a provider response into subtasks. Agents are laid
// out along y=20 at x offsets of 20; colliding role suffixes get an index.
func parseProposal(task models.CompositeTask, text string, max int) ([]models.Subtask, error) {
	body := decision.StripCodeFence(decision.UnwrapEnvelope(text))
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var proposed []proposedSubtask
	if err := json.Unmarshal([]byte(body[start:end+1]), &proposed); err != nil {
		return nil, fmt.Errorf("parse proposal: %w", err)
	}

	seen := make(map[string]int)
	var subtasks []models.Subtask
	for _, p := range proposed {
		role := normalizeRole(p.Role)
		desc := strings.TrimSpace(p.Description)
		if role == "" || desc == "" {
			continue
		}
		if len(subtasks) == max {
			break
		}
		suffix := "_" + role
		seen[role]++
		if n := seen[role]; n > 1 {
			suffix = fmt.Sprintf("_%s_%d", role, n)
		}
		subtasks = append(subtasks, models.Subtask{
			TaskID:      task.ID + suffix,
			Role:        role,
			Description: desc,
			Position:    models.Position{X: 20 * (len(subtasks) + 1), Y: 20},
		})
	}
	if len(subtasks) == 0 {
		return nil, errNoSubtasks
	}
	return subtasks, nil
}

func normalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	return strings.Join(strings.FieldsFunc(role, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}
