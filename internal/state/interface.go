package state

import (
	"io"
	"time"

	"github.com/ShayCichocki/swarmville/pkg/models"
)

// AgentStore handles agent identity persistence.
type AgentStore interface {
	UpsertAgent(snap models.AgentSnapshot) error
	MarkAgentTerminated(id string, at time.Time) error
	UpdateAgentPosition(id string, pos models.Position, at time.Time) error
	UpdateAgentTask(id, taskID string, at time.Time) error
	GetAgent(id string) (*AgentRecord, error)
	ListAgents(activeOnly bool) ([]AgentRecord, error)
}

// ConversationStore handles conversation log persistence.
type ConversationStore interface {
	SaveConversation(agentID string, entry models.ConversationEntry) error
	RecentConversations(agentID string, limit int) ([]models.ConversationEntry, error)
}

// TaskStore handles task log persistence.
type TaskStore interface {
	SaveTask(agentID string, entry models.TaskEntry) error
	CompleteTask(agentID, taskID, result string, at time.Time) error
	ListTasks(agentID string, status models.TaskStatus) ([]TaskRecord, error)
}

// HistoryStore handles state transition persistence.
type HistoryStore interface {
	SaveStateChange(agentID string, from, to models.AgentState, at time.Time) error
	StateHistory(agentID string, limit int) ([]StateChange, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store composes the focused stores the event recorder writes to.
type Store interface {
	io.Closer
	Migrator
	AgentStore
	ConversationStore
	TaskStore
	HistoryStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store             = (*DB)(nil)
	_ AgentStore        = (*DB)(nil)
	_ ConversationStore = (*DB)(nil)
	_ TaskStore         = (*DB)(nil)
	_ HistoryStore      = (*DB)(nil)
)
