package agent

import "github.com/ShayCichocki/swarmville/pkg/models"

// validTransitions defines the allowed state transitions.
// Key is the current state, value is the set of valid target states.
// Every state may additionally move to error.
var validTransitions = map[models.AgentState]map[models.AgentState]bool{
	models.AgentStateIdle: {
		models.AgentStateListening: true,
		models.AgentStateThinking:  true,
		models.AgentStateIdle:      true,
	},
	models.AgentStateListening: {
		models.AgentStateThinking: true,
		models.AgentStateIdle:     true,
	},
	models.AgentStateThinking: {
		models.AgentStateSpeaking: true,
		models.AgentStateIdle:     true,
	},
	// Speaking must return to idle before thinking again.
	models.AgentStateSpeaking: {
		models.AgentStateIdle: true,
	},
	models.AgentStateError: {
		models.AgentStateIdle: true,
	},
}

// CanTransition checks if a state transition is valid.
func CanTransition(from, to models.AgentState) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	if to == models.AgentStateError {
		return true
	}
	return targets[to]
}
