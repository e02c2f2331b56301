package decision

import (
	"encoding/json"
	"fmt"
)

// ActionKind names an Action variant.
type ActionKind string

const (
	ActionMove         ActionKind = "move"
	ActionWait         ActionKind = "wait"
	ActionSpeak        ActionKind = "speak"
	ActionCompleteTask ActionKind = "complete_task"
)

// Action is what an agent decided to do. Only the fields of Kind are set.
type Action struct {
	Kind ActionKind

	// move
	X, Y int
	// move and wait
	Reason string
	// speak
	Content   string
	Recipient string
	// complete_task
	TaskID string
	Result string
}

// Move builds a move action.
func Move(x, y int, reason string) Action {
	return Action{Kind: ActionMove, X: x, Y: y, Reason: reason}
}

// Wait builds a wait action.
func Wait(reason string) Action {
	return Action{Kind: ActionWait, Reason: reason}
}

// Speak builds a speak action. An empty recipient means unaddressed.
func Speak(content, recipient string) Action {
	return Action{Kind: ActionSpeak, Content: content, Recipient: recipient}
}

// CompleteTask builds a complete_task action.
func CompleteTask(taskID, result string) Action {
	return Action{Kind: ActionCompleteTask, TaskID: taskID, Result: result}
}

// Validate checks the required fields of the action's variant.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionMove:
		if a.X < 0 || a.Y < 0 {
			return newError(KindInvalidResponse, "move coordinates must be non-negative, got (%d, %d)", a.X, a.Y)
		}
	case ActionWait:
	case ActionSpeak:
		if a.Content == "" {
			return newError(KindInvalidResponse, "speak requires non-empty 'content'")
		}
	case ActionCompleteTask:
		if a.TaskID == "" {
			return newError(KindInvalidResponse, "complete_task requires 'task_id'")
		}
	default:
		return newError(KindInvalidResponse, "unknown action type: %q", a.Kind)
	}
	return nil
}

type moveJSON struct {
	Action ActionKind `json:"action"`
	X      int        `json:"x"`
	Y      int        `json:"y"`
	Reason string     `json:"reason"`
}

type waitJSON struct {
	Action ActionKind `json:"action"`
	Reason string     `json:"reason"`
}

type speakJSON struct {
	Action    ActionKind `json:"action"`
	Content   string     `json:"content"`
	Recipient *string    `json:"recipient"`
}

type completeJSON struct {
	Action ActionKind `json:"action"`
	TaskID string     `json:"task_id"`
	Result string     `json:"result"`
}

// MarshalJSON renders the action in the same grammar ParseAction reads.
func (a Action) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case ActionMove:
		return json.Marshal(moveJSON{a.Kind, a.X, a.Y, a.Reason})
	case ActionWait:
		return json.Marshal(waitJSON{a.Kind, a.Reason})
	case ActionSpeak:
		var recipient *string
		if a.Recipient != "" {
			recipient = &a.Recipient
		}
		return json.Marshal(speakJSON{a.Kind, a.Content, recipient})
	case ActionCompleteTask:
		return json.Marshal(completeJSON{a.Kind, a.TaskID, a.Result})
	default:
		return nil, fmt.Errorf("marshal action: unknown kind %q", a.Kind)
	}
}

// String renders a short human-readable form for logs.
func (a Action) String() string {
	switch a.Kind {
	case ActionMove:
		return fmt.Sprintf("move(%d, %d: %s)", a.X, a.Y, a.Reason)
	case ActionWait:
		return fmt.Sprintf("wait(%s)", a.Reason)
	case ActionSpeak:
		if a.Recipient != "" {
			return fmt.Sprintf("speak(%q -> %s)", a.Content, a.Recipient)
		}
		return fmt.Sprintf("speak(%q)", a.Content)
	case ActionCompleteTask:
		return fmt.Sprintf("complete_task(%s: %s)", a.TaskID, a.Result)
	default:
		return fmt.Sprintf("action(%s)", a.Kind)
	}
}
