package models

import (
	"math"
	"time"
)

// AgentState represents where an agent is in its decision cycle.
type AgentState string

const (
	// AgentStateIdle indicates the agent is resting and may start a decision.
	AgentStateIdle AgentState = "idle"
	// AgentStateListening indicates the agent received input it has not acted on.
	AgentStateListening AgentState = "listening"
	// AgentStateThinking indicates a decision is in flight.
	AgentStateThinking AgentState = "thinking"
	// AgentStateSpeaking indicates the agent is emitting speech.
	AgentStateSpeaking AgentState = "speaking"
	// AgentStateError indicates the last decision failed.
	AgentStateError AgentState = "error"
)

// AllAgentStates lists every state in declaration order.
var AllAgentStates = []AgentState{
	AgentStateIdle,
	AgentStateListening,
	AgentStateThinking,
	AgentStateSpeaking,
	AgentStateError,
}

// Valid returns true if the state is a known value.
func (s AgentState) Valid() bool {
	switch s {
	case AgentStateIdle, AgentStateListening, AgentStateThinking,
		AgentStateSpeaking, AgentStateError:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (s AgentState) String() string {
	return string(s)
}

// Position is a point on the shared 2D grid.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// DistanceTo returns the euclidean distance between two positions.
func (p Position) DistanceTo(other Position) float64 {
	dx := float64(p.X - other.X)
	dy := float64(p.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// AgentConfig describes an agent to spawn.
type AgentConfig struct {
	// Name is the display name of the agent.
	Name string `json:"name" yaml:"name"`
	// Role describes the agent's specialty (e.g. "researcher").
	Role string `json:"role" yaml:"role"`
	// Backend selects the decision provider (claude, cursor, api, mock).
	Backend string `json:"backend" yaml:"backend"`
	// Model is passed to the backend; empty uses the backend default.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// Position is where the agent starts.
	Position Position `json:"position" yaml:"position"`
	// SpaceID groups agents that share a world.
	SpaceID string `json:"space_id,omitempty" yaml:"space_id,omitempty"`
	// DecisionInterval overrides the runtime default when non-zero.
	DecisionInterval time.Duration `json:"decision_interval,omitempty" yaml:"decision_interval,omitempty"`
}

// AgentSnapshot is a read-only copy of an agent's identity and runtime state.
type AgentSnapshot struct {
	// ID is the unique identifier assigned at spawn.
	ID string `json:"id"`
	// Name is the display name of the agent.
	Name string `json:"name"`
	// Role is the agent's specialty.
	Role string `json:"role"`
	// Backend is the decision provider selector.
	Backend string `json:"backend"`
	// SpaceID groups agents that share a world.
	SpaceID string `json:"space_id,omitempty"`
	// State is the current lifecycle state.
	State AgentState `json:"state"`
	// Position is the current grid position.
	Position Position `json:"position"`
	// CurrentTask is the task being worked on, if any.
	CurrentTask string `json:"current_task,omitempty"`
	// LastStateChange is when State last changed.
	LastStateChange time.Time `json:"last_state_change"`
}
