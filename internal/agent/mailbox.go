package agent

import (
	"errors"
	"sync"
)

// ErrMailboxClosed is returned by Send after the mailbox is closed.
var ErrMailboxClosed = errors.New("mailbox closed")

// MessageKind identifies a mailbox message variant.
type MessageKind int

const (
	// MessageShutdown asks the agent to exit its loop.
	MessageShutdown MessageKind = iota
	// MessageInboundText delivers text from a user or another agent.
	MessageInboundText
	// MessageTaskAssignment hands the agent a task.
	MessageTaskAssignment
)

func (k MessageKind) String() string {
	switch k {
	case MessageShutdown:
		return "shutdown"
	case MessageInboundText:
		return "inbound_text"
	case MessageTaskAssignment:
		return "task_assignment"
	default:
		return "unknown"
	}
}

// Message is one mailbox entry. Only the fields of Kind are set.
type Message struct {
	Kind     MessageKind
	From     string
	Content  string
	TaskID   string
	TaskName string
}

// Shutdown builds a shutdown message.
func Shutdown() Message {
	return Message{Kind: MessageShutdown}
}

// InboundText builds a text message from sender.
func InboundText(from, content string) Message {
	return Message{Kind: MessageInboundText, From: from, Content: content}
}

// TaskAssignment builds a task assignment.
func TaskAssignment(taskID, taskName string) Message {
	return Message{Kind: MessageTaskAssignment, TaskID: taskID, TaskName: taskName}
}

// Mailbox is an unbounded FIFO queue with a single consumer. Send never
// blocks; the consumer waits on Ready and drains with TryReceive.
type Mailbox struct {
	mu     sync.Mutex
	queue  []Message
	notify chan struct{}
	closed bool
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{notify: make(chan struct{}, 1)}
}

// Send enqueues msg.
func (m *Mailbox) Send(msg Message) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMailboxClosed
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	m.signal()
	return nil
}

func (m *Mailbox) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Ready fires when at least one message may be waiting.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.notify
}

// TryReceive dequeues the oldest message without blocking.
func (m *Mailbox) TryReceive() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return Message{}, false
	}
	msg := m.queue[0]
	m.queue[0] = Message{}
	m.queue = m.queue[1:]
	if len(m.queue) == 0 {
		m.queue = nil
	} else {
		m.signal()
	}
	return msg, true
}

// Len returns the number of queued messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Close rejects further sends. Queued messages can still be received.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}
