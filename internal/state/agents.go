package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/swarmville/pkg/models"
)

// AgentRecord is the persisted identity and last known state of an agent.
type AgentRecord struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Role         string            `json:"role"`
	Backend      string            `json:"backend"`
	SpaceID      string            `json:"space_id"`
	Position     models.Position   `json:"position"`
	State        models.AgentState `json:"state"`
	CurrentTask  string            `json:"current_task,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	TerminatedAt *time.Time        `json:"terminated_at,omitempty"`
}

// Active reports whether the agent has not been terminated.
func (a AgentRecord) Active() bool {
	return a.TerminatedAt == nil
}

// UpsertAgent inserts the snapshot or refreshes an existing row. A
// re-spawned id clears terminated_at.
func (db *DB) UpsertAgent(snap models.AgentSnapshot) error {
	now := formatTime(snap.LastStateChange)
	if snap.LastStateChange.IsZero() {
		now = formatTime(time.Now())
	}
	_, err := db.Exec(`
		INSERT INTO agents (id, name, role, backend, space_id, position_x, position_y,
			state, current_task, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			backend = excluded.backend,
			space_id = excluded.space_id,
			position_x = excluded.position_x,
			position_y = excluded.position_y,
			state = excluded.state,
			current_task = excluded.current_task,
			updated_at = excluded.updated_at,
			terminated_at = NULL
	`, snap.ID, snap.Name, snap.Role, snap.Backend, snap.SpaceID, snap.Position.X, snap.Position.Y,
		string(snap.State), nullableString(snap.CurrentTask), now, now)
	if err != nil {
		return fmt.Errorf("upsert agent %s: %w", snap.ID, err)
	}
	return nil
}

// MarkAgentTerminated stamps terminated_at on the agent row.
func (db *DB) MarkAgentTerminated(id string, at time.Time) error {
	return db.updateAgent(id, "terminated_at = ?, updated_at = ?", formatTime(at), formatTime(at))
}

// UpdateAgentPosition records the agent's latest position.
func (db *DB) UpdateAgentPosition(id string, pos models.Position, at time.Time) error {
	return db.updateAgent(id, "position_x = ?, position_y = ?, updated_at = ?", pos.X, pos.Y, formatTime(at))
}

// UpdateAgentTask records the agent's current task. An empty id clears it.
func (db *DB) UpdateAgentTask(id, taskID string, at time.Time) error {
	return db.updateAgent(id, "current_task = ?, updated_at = ?", nullableString(taskID), formatTime(at))
}

func (db *DB) updateAgent(id, set string, args ...any) error {
	result, err := db.Exec("UPDATE agents SET "+set+" WHERE id = ?", append(args, id)...)
	if err != nil {
		return fmt.Errorf("update agent %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}
	return nil
}

const agentColumns = `id, name, role, backend, space_id, position_x, position_y,
	state, current_task, created_at, updated_at, terminated_at`

// GetAgent returns one agent row.
func (db *DB) GetAgent(id string) (*AgentRecord, error) {
	row := db.QueryRow("SELECT "+agentColumns+" FROM agents WHERE id = ?", id)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("agent %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return a, nil
}

// ListAgents returns agents ordered by creation. activeOnly skips
// terminated agents.
func (db *DB) ListAgents(activeOnly bool) ([]AgentRecord, error) {
	query := "SELECT " + agentColumns + " FROM agents"
	if activeOnly {
		query += " WHERE terminated_at IS NULL"
	}
	query += " ORDER BY created_at, id"

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []AgentRecord
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(s scanner) (*AgentRecord, error) {
	var (
		a                    AgentRecord
		state                string
		task, terminated     sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&a.ID, &a.Name, &a.Role, &a.Backend, &a.SpaceID, &a.Position.X, &a.Position.Y,
		&state, &task, &createdAt, &updatedAt, &terminated)
	if err != nil {
		return nil, err
	}
	a.State = models.AgentState(state)
	a.CurrentTask = task.String
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	a.TerminatedAt = parseNullableTime(terminated)
	return &a, nil
}
