package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShayCichocki/swarmville/pkg/models"
)

// TaskRecord is a persisted agent task.
type TaskRecord struct {
	AgentID string `json:"agent_id"`
	models.TaskEntry
	Result string `json:"result,omitempty"`
}

// StateChange is one persisted lifecycle transition.
type StateChange struct {
	AgentID   string            `json:"agent_id"`
	OldState  models.AgentState `json:"old_state"`
	NewState  models.AgentState `json:"new_state"`
	Timestamp time.Time         `json:"timestamp"`
}

// SaveConversation appends one conversation entry for the agent.
func (db *DB) SaveConversation(agentID string, entry models.ConversationEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO agent_conversations (agent_id, timestamp, sender, content, recipient)
		VALUES (?, ?, ?, ?, ?)
	`, agentID, formatTime(ts), entry.Sender, entry.Content, nullableString(entry.Recipient))
	if err != nil {
		return fmt.Errorf("save conversation for %s: %w", agentID, err)
	}
	return nil
}

// RecentConversations returns up to limit entries, most recent first.
func (db *DB) RecentConversations(agentID string, limit int) ([]models.ConversationEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := db.Query(`
		SELECT timestamp, sender, content, recipient FROM agent_conversations
		WHERE agent_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("load conversations for %s: %w", agentID, err)
	}
	defer rows.Close()

	var entries []models.ConversationEntry
	for rows.Next() {
		var (
			e         models.ConversationEntry
			ts        string
			recipient sql.NullString
		)
		if err := rows.Scan(&ts, &e.Sender, &e.Content, &recipient); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		e.Recipient = recipient.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteOldConversations removes the agent's entries older than the cutoff
// and returns how many were deleted.
func (db *DB) DeleteOldConversations(agentID string, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))
	result, err := db.Exec(`
		DELETE FROM agent_conversations WHERE agent_id = ? AND timestamp < ?
	`, agentID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old conversations: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

// SaveTask records a task for the agent. Saving an existing task id resets
// it to the given entry.
func (db *DB) SaveTask(agentID string, entry models.TaskEntry) error {
	status := entry.Status
	if status == "" {
		status = models.TaskStatusAssigned
	}
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO agent_tasks (agent_id, task_id, task_name, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id, task_id) DO UPDATE SET
			task_name = excluded.task_name,
			status = excluded.status,
			created_at = excluded.created_at,
			completed_at = excluded.completed_at,
			result = NULL
	`, agentID, entry.TaskID, entry.TaskName, string(status), formatTime(created), nullableTime(entry.CompletedAt))
	if err != nil {
		return fmt.Errorf("save task %s for %s: %w", entry.TaskID, agentID, err)
	}
	return nil
}

// UpdateTaskStatus changes a task's status. Completed and Failed stamp
// completed_at; other statuses clear it.
func (db *DB) UpdateTaskStatus(agentID, taskID string, status models.TaskStatus, result string, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("update task %s: invalid status %q", taskID, status)
	}
	var completed sql.NullString
	if status.Terminal() {
		completed = sql.NullString{String: formatTime(at), Valid: true}
	}
	res, err := db.Exec(`
		UPDATE agent_tasks SET status = ?, completed_at = ?, result = ?
		WHERE agent_id = ? AND task_id = ?
	`, string(status), completed, nullableString(result), agentID, taskID)
	if err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s of %s: %w", taskID, agentID, ErrNotFound)
	}
	return nil
}

// CompleteTask marks the task completed with its result.
func (db *DB) CompleteTask(agentID, taskID, result string, at time.Time) error {
	return db.UpdateTaskStatus(agentID, taskID, models.TaskStatusCompleted, result, at)
}

// ListTasks returns the agent's tasks, newest first. An empty status
// returns every task.
func (db *DB) ListTasks(agentID string, status models.TaskStatus) ([]TaskRecord, error) {
	query := `SELECT task_id, task_name, status, created_at, completed_at, result
		FROM agent_tasks WHERE agent_id = ?`
	args := []any{agentID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks for %s: %w", agentID, err)
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var (
			t                 = TaskRecord{AgentID: agentID}
			st, created       string
			completed, result sql.NullString
		)
		if err := rows.Scan(&t.TaskID, &t.TaskName, &st, &created, &completed, &result); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = models.TaskStatus(st)
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		t.CompletedAt = parseNullableTime(completed)
		t.Result = result.String
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SaveStateChange appends a transition to the history and mirrors the new
// state onto the agent row when one exists.
func (db *DB) SaveStateChange(agentID string, from, to models.AgentState, at time.Time) error {
	ts := formatTime(at)
	return db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO agent_state_history (agent_id, old_state, new_state, timestamp)
			VALUES (?, ?, ?, ?)
		`, agentID, string(from), string(to), ts); err != nil {
			return fmt.Errorf("save state change for %s: %w", agentID, err)
		}
		if _, err := tx.Exec(`UPDATE agents SET state = ?, updated_at = ? WHERE id = ?`,
			string(to), ts, agentID); err != nil {
			return fmt.Errorf("mirror state for %s: %w", agentID, err)
		}
		return nil
	})
}

// StateHistory returns up to limit transitions, most recent first.
func (db *DB) StateHistory(agentID string, limit int) ([]StateChange, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := db.Query(`
		SELECT old_state, new_state, timestamp FROM agent_state_history
		WHERE agent_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("load state history for %s: %w", agentID, err)
	}
	defer rows.Close()

	var history []StateChange
	for rows.Next() {
		var (
			c        = StateChange{AgentID: agentID}
			from, to string
			ts       string
		)
		if err := rows.Scan(&from, &to, &ts); err != nil {
			return nil, fmt.Errorf("scan state change: %w", err)
		}
		c.OldState, c.NewState = models.AgentState(from), models.AgentState(to)
		if c.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		history = append(history, c)
	}
	return history, rows.Err()
}
