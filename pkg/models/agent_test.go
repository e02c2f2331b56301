package models

import (
	"encoding/json"
	"math"
	"testing"
)

func TestAgentState_Valid(t *testing.T) {
	tests := []struct {
		name  string
		state AgentState
		want  bool
	}{
		{"idle is valid", AgentStateIdle, true},
		{"listening is valid", AgentStateListening, true},
		{"thinking is valid", AgentStateThinking, true},
		{"speaking is valid", AgentStateSpeaking, true},
		{"error is valid", AgentStateError, true},
		{"empty string is invalid", AgentState(""), false},
		{"unknown state is invalid", AgentState("sleeping"), false},
		{"capitalized is invalid", AgentState("Idle"), false},
		{"task status is invalid", AgentState("completed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Valid(); got != tt.want {
				t.Errorf("AgentState(%q).Valid() = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestAgentState_AllStatesValid(t *testing.T) {
	if len(AllAgentStates) != 5 {
		t.Fatalf("len(AllAgentStates) = %d, want 5", len(AllAgentStates))
	}
	for _, s := range AllAgentStates {
		if !s.Valid() {
			t.Errorf("AllAgentStates contains invalid state %q", s)
		}
		if s.String() != string(s) {
			t.Errorf("String() = %q, want %q", s.String(), string(s))
		}
	}
}

func TestPosition_DistanceTo(t *testing.T) {
	tests := []struct {
		name string
		a, b Position
		want float64
	}{
		{"same point", Position{10, 10}, Position{10, 10}, 0},
		{"horizontal", Position{0, 0}, Position{5, 0}, 5},
		{"pythagorean", Position{0, 0}, Position{3, 4}, 5},
		{"symmetric", Position{3, 4}, Position{0, 0}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.DistanceTo(tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DistanceTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgentSnapshot_JSONShape(t *testing.T) {
	snap := AgentSnapshot{
		ID:       "a1",
		Name:     "Ada",
		Role:     "researcher",
		Backend:  "mock",
		State:    AgentStateThinking,
		Position: Position{X: 20, Y: 30},
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if raw["state"] != "thinking" {
		t.Errorf("state = %v, want thinking", raw["state"])
	}
	if _, ok := raw["current_task"]; ok {
		t.Error("current_task should be omitted when empty")
	}
	pos, ok := raw["position"].(map[string]any)
	if !ok {
		t.Fatalf("position has type %T", raw["position"])
	}
	if pos["x"] != float64(20) || pos["y"] != float64(30) {
		t.Errorf("position = %v, want x=20 y=30", pos)
	}
}
