// Package decision turns an agent's context into its next Action using a
// pluggable backend: an external CLI, the Anthropic API, or a mock.
package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/swarmville/pkg/models"
)

// Provider produces decisions and free-form text for agents.
type Provider interface {
	// MakeDecision returns the next action for the agent described by dc.
	// Failures are returned as *Error.
	MakeDecision(ctx context.Context, dc Context) (Action, error)

	// GenerateText returns the backend's answer to an arbitrary prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// IsAvailable probes whether the backend can be used. It never panics.
	IsAvailable(ctx context.Context) bool

	// Name is the stable backend identifier.
	Name() string
}

// Context is the snapshot of an agent that a decision is made from.
type Context struct {
	AgentID      string
	AgentName    string
	AgentRole    string
	Position     models.Position
	NearbyAgents []string
	CurrentTask  string
	RecentMemory string
}

const promptTemplate = `You are %s, a %s agent in SwarmVille office simulation.

CURRENT STATE:
- Position: (%d, %d)
- Current Task: %s
- Nearby Agents: %s

RECENT ACTIVITY:
%s

INSTRUCTION: Decide your next action and return ONLY a JSON object. No explanations, no markdown code blocks, ONLY raw JSON.

Required JSON format (choose ONE):
{"action": "move", "x": 50, "y": 50, "reason": "exploring new area"}
{"action": "wait", "reason": "observing surroundings"}
{"action": "speak", "content": "Hello!", "recipient": null}
{"action": "complete_task", "task_id": "task_123", "result": "completed successfully"}

Your response must start with { and end with } - nothing else.`

// Prompt renders the decision prompt sent to text backends.
func (dc Context) Prompt() string {
	task := dc.CurrentTask
	if task == "" {
		task = "None"
	}
	nearby := "None"
	if len(dc.NearbyAgents) > 0 {
		nearby = strings.Join(dc.NearbyAgents, ", ")
	}
	memory := dc.RecentMemory
	if memory == "" {
		memory = "No recent activity"
	}
	return fmt.Sprintf(promptTemplate,
		dc.AgentName, dc.AgentRole,
		dc.Position.X, dc.Position.Y,
		task, nearby, memory)
}
