package models

import "time"

// TaskStatus represents the progress of a task held in an agent's memory.
type TaskStatus string

const (
	// TaskStatusAssigned indicates the task was handed to the agent.
	TaskStatusAssigned TaskStatus = "assigned"
	// TaskStatusInProgress indicates the agent is working on the task.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusAssigned, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Active returns true for statuses that still need work.
func (s TaskStatus) Active() bool {
	return s == TaskStatusAssigned || s == TaskStatusInProgress
}

// Terminal returns true for statuses that stamp a completion time.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// ConversationEntry is one line of an agent's conversation log.
type ConversationEntry struct {
	// Timestamp is when the entry was recorded.
	Timestamp time.Time `json:"timestamp"`
	// Sender is an agent ID, "user" or "system".
	Sender string `json:"sender"`
	// Content is the message text.
	Content string `json:"content"`
	// Recipient is a specific agent ID or "broadcast"; empty when unaddressed.
	Recipient string `json:"recipient,omitempty"`
}

// TaskEntry is one task in an agent's task log.
type TaskEntry struct {
	// TaskID is unique within one agent's log.
	TaskID string `json:"task_id"`
	// TaskName is a short description of the task.
	TaskName string `json:"task_name"`
	// Status is the current progress.
	Status TaskStatus `json:"status"`
	// CreatedAt is when the task was assigned.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is set once Status becomes completed or failed.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CompositeTask is an externally submitted task that is split across agents.
type CompositeTask struct {
	// ID is the parent identifier used to derive subtask IDs.
	ID string `json:"task_id" yaml:"task_id"`
	// Description is the free-form request.
	Description string `json:"description" yaml:"description"`
	// SpaceID is propagated to every spawned agent.
	SpaceID string `json:"space_id,omitempty" yaml:"space_id,omitempty"`
}

// Subtask is one role-tagged slice of a CompositeTask.
type Subtask struct {
	// TaskID is derived from the parent ID plus a role suffix.
	TaskID string `json:"task_id"`
	// Role is the specialty of the agent that will run the subtask.
	Role string `json:"agent_role"`
	// Description becomes the agent's first task name.
	Description string `json:"description"`
	// Position is where the agent is spawned.
	Position Position `json:"position"`
}
