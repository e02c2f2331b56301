// Package memory holds an agent's bounded conversation log and its task log.
package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/swarmville/pkg/models"
)

// DefaultConversationLimit is the number of conversation entries kept.
const DefaultConversationLimit = 100

// summaryWindow is how many recent conversations BuildContextSummary renders.
const summaryWindow = 5

// Store is one agent's memory. It is owned by a single agent goroutine and is
// not safe for concurrent use.
type Store struct {
	// conversations is a ring buffer; head is the index of the oldest entry.
	conversations []models.ConversationEntry
	head          int
	size          int

	tasks     []models.TaskEntry
	taskIndex map[string]int

	now func() time.Time
}

// New creates a Store holding at most limit conversation entries.
// A non-positive limit uses DefaultConversationLimit.
func New(limit int) *Store {
	if limit <= 0 {
		limit = DefaultConversationLimit
	}
	return &Store{
		conversations: make([]models.ConversationEntry, limit),
		taskIndex:     make(map[string]int),
		now:           time.Now,
	}
}

// Capacity returns the maximum number of conversation entries kept.
func (s *Store) Capacity() int {
	return len(s.conversations)
}

// Len returns the number of conversation entries currently held.
func (s *Store) Len() int {
	return s.size
}

// RecordConversation appends an entry, evicting the oldest one when full.
func (s *Store) RecordConversation(sender, content, recipient string) {
	entry := models.ConversationEntry{
		Timestamp: s.now(),
		Sender:    sender,
		Content:   content,
		Recipient: recipient,
	}

	limit := len(s.conversations)
	if s.size < limit {
		s.conversations[(s.head+s.size)%limit] = entry
		s.size++
		return
	}
	s.conversations[s.head] = entry
	s.head = (s.head + 1) % limit
}

// at returns the i-th entry counting from the oldest.
func (s *Store) at(i int) models.ConversationEntry {
	return s.conversations[(s.head+i)%len(s.conversations)]
}

// Recent returns up to n entries, most recent first.
func (s *Store) Recent(n int) []models.ConversationEntry {
	if n > s.size {
		n = s.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]models.ConversationEntry, 0, n)
	for i := s.size - 1; i >= s.size-n; i-- {
		out = append(out, s.at(i))
	}
	return out
}

// Conversations returns every held entry, oldest first.
func (s *Store) Conversations() []models.ConversationEntry {
	out := make([]models.ConversationEntry, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.at(i)
	}
	return out
}

// RecordTask adds a task with status assigned. Recording an ID that is
// already present resets that entry instead of adding a second one.
func (s *Store) RecordTask(taskID, name string) {
	entry := models.TaskEntry{
		TaskID:    taskID,
		TaskName:  name,
		Status:    models.TaskStatusAssigned,
		CreatedAt: s.now(),
	}
	if idx, ok := s.taskIndex[taskID]; ok {
		s.tasks[idx] = entry
		return
	}
	s.taskIndex[taskID] = len(s.tasks)
	s.tasks = append(s.tasks, entry)
}

// SetTaskStatus updates a task in place. Completed and failed stamp
// CompletedAt; other statuses clear it. Unknown IDs are ignored and
// reported with false.
func (s *Store) SetTaskStatus(taskID string, status models.TaskStatus) bool {
	idx, ok := s.taskIndex[taskID]
	if !ok {
		return false
	}
	task := &s.tasks[idx]
	task.Status = status
	if status.Terminal() {
		now := s.now()
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
	return true
}

// Task returns a copy of the task with the given ID.
func (s *Store) Task(taskID string) (models.TaskEntry, bool) {
	idx, ok := s.taskIndex[taskID]
	if !ok {
		return models.TaskEntry{}, false
	}
	return s.tasks[idx], true
}

// Tasks returns a copy of every task in insertion order.
func (s *Store) Tasks() []models.TaskEntry {
	out := make([]models.TaskEntry, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// TasksByStatus returns every task with the given status.
func (s *Store) TasksByStatus(status models.TaskStatus) []models.TaskEntry {
	var out []models.TaskEntry
	for _, t := range s.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// ActiveTasks returns the tasks that are assigned or in progress.
func (s *Store) ActiveTasks() []models.TaskEntry {
	var out []models.TaskEntry
	for _, t := range s.tasks {
		if t.Status.Active() {
			out = append(out, t)
		}
	}
	return out
}

// BuildContextSummary renders the last few conversations, oldest first, and
// the active tasks. An empty store renders the empty string.
func (s *Store) BuildContextSummary() string {
	var b strings.Builder

	recent := s.Recent(summaryWindow)
	if len(recent) > 0 {
		b.WriteString("Recent conversations:\n")
		for i := len(recent) - 1; i >= 0; i-- {
			fmt.Fprintf(&b, "- %s: %s\n", recent[i].Sender, recent[i].Content)
		}
		b.WriteString("\n")
	}

	active := s.ActiveTasks()
	if len(active) > 0 {
		b.WriteString("Current tasks:\n")
		for _, t := range active {
			fmt.Fprintf(&b, "- [%s] %s (id: %s)\n", t.Status, t.TaskName, t.TaskID)
		}
	}

	return b.String()
}

// Clear drops every conversation and task.
func (s *Store) Clear() {
	for i := range s.conversations {
		s.conversations[i] = models.ConversationEntry{}
	}
	s.head = 0
	s.size = 0
	s.tasks = nil
	s.taskIndex = make(map[string]int)
}
