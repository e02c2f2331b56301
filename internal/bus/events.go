package bus

import (
	"encoding/json"
	"time"

	"github.com/ShayCichocki/swarmville/pkg/models"
)

// EventType identifies the kind of domain event.
type EventType string

const (
	// EventAgentSpoke is published when an agent speaks.
	EventAgentSpoke EventType = "agent_spoke"
	// EventAgentMoved is published when an agent changes position.
	EventAgentMoved EventType = "agent_moved"
	// EventTaskAssigned is published when an agent accepts a task.
	EventTaskAssigned EventType = "task_assigned"
	// EventTaskCompleted is published when an agent completes a task.
	EventTaskCompleted EventType = "task_completed"
	// EventStateChanged is published on every legal state transition.
	EventStateChanged EventType = "agent_state_changed"
	// EventBroadcast carries an arbitrary JSON payload.
	EventBroadcast EventType = "agent_broadcast"
)

// Event is one domain event. Only the fields relevant to Type are set.
type Event struct {
	Type      EventType `json:"type"`
	AgentID   string    `json:"agent_id"`
	Timestamp time.Time `json:"timestamp"`

	// agent_spoke
	Content   string `json:"content,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	// agent_moved
	Position *models.Position `json:"position,omitempty"`
	// task_assigned, task_completed
	TaskID   string `json:"task_id,omitempty"`
	TaskName string `json:"task_name,omitempty"`
	Result   string `json:"result,omitempty"`
	// agent_state_changed
	OldState models.AgentState `json:"old_state,omitempty"`
	NewState models.AgentState `json:"new_state,omitempty"`
	// agent_broadcast
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Spoke builds an agent_spoke event.
func Spoke(agentID, content, recipient string) Event {
	return Event{Type: EventAgentSpoke, AgentID: agentID, Content: content, Recipient: recipient}
}

// Moved builds an agent_moved event.
func Moved(agentID string, pos models.Position) Event {
	return Event{Type: EventAgentMoved, AgentID: agentID, Position: &pos}
}

// TaskAssigned builds a task_assigned event.
func TaskAssigned(agentID, taskID, taskName string) Event {
	return Event{Type: EventTaskAssigned, AgentID: agentID, TaskID: taskID, TaskName: taskName}
}

// TaskCompleted builds a task_completed event.
func TaskCompleted(agentID, taskID, result string) Event {
	return Event{Type: EventTaskCompleted, AgentID: agentID, TaskID: taskID, Result: result}
}

// StateChanged builds an agent_state_changed event.
func StateChanged(agentID string, from, to models.AgentState) Event {
	return Event{Type: EventStateChanged, AgentID: agentID, OldState: from, NewState: to}
}

// Broadcast builds an agent_broadcast event with a JSON payload.
func Broadcast(agentID string, payload json.RawMessage) Event {
	return Event{Type: EventBroadcast, AgentID: agentID, Payload: payload}
}

// Lifecycle kinds carried in agent_broadcast payloads.
const (
	LifecycleSpawned    = "spawned"
	LifecycleTerminated = "terminated"
)

// Lifecycle is the payload the runtime broadcasts when agents come and go.
type Lifecycle struct {
	Kind  string                `json:"kind"`
	Agent *models.AgentSnapshot `json:"agent,omitempty"`
}

// LifecycleEvent builds an agent_broadcast event announcing a lifecycle change.
func LifecycleEvent(agentID, kind string, snap *models.AgentSnapshot) Event {
	payload, _ := json.Marshal(Lifecycle{Kind: kind, Agent: snap})
	return Broadcast(agentID, payload)
}

// Lifecycle decodes a lifecycle payload. It returns false for any other event.
func (e Event) Lifecycle() (Lifecycle, bool) {
	if e.Type != EventBroadcast || len(e.Payload) == 0 {
		return Lifecycle{}, false
	}
	var lc Lifecycle
	if err := json.Unmarshal(e.Payload, &lc); err != nil || lc.Kind == "" {
		return Lifecycle{}, false
	}
	return lc, true
}
