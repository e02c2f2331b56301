package decision

import (
	"encoding/json"
	"math"
	"strings"
)

const (
	defaultMoveReason = "no reason provided"
	defaultWaitReason = "waiting"
	defaultResult     = "completed"
)

// envelopeFields are checked in order when unwrapping a backend response.
var envelopeFields = []string{"result", "output", "response", "message"}

// StripCodeFence removes a surrounding ``` or ```json fence.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// UnwrapEnvelope returns the first string field among result, output,
// response and message of a JSON object. An object with an "action" key is
// already an action and, like anything else, is returned as is.
func UnwrapEnvelope(raw string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &obj); err != nil {
		return raw
	}
	if _, ok := obj["action"]; ok {
		return raw
	}
	for _, field := range envelopeFields {
		v, ok := obj[field]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	return raw
}

// ParseAction parses a backend's text into an Action. It never returns a
// partially filled Action alongside an error.
func ParseAction(text string) (Action, error) {
	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return Action{}, newError(KindParse, "empty response")
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return Action{}, newError(KindParse, "JSON parse error: %v", err)
	}

	kind, ok := obj["action"].(string)
	if !ok {
		return Action{}, newError(KindInvalidResponse, "missing 'action' field")
	}

	var a Action
	switch ActionKind(kind) {
	case ActionMove:
		x, err := coordinate(obj, "x")
		if err != nil {
			return Action{}, err
		}
		y, err := coordinate(obj, "y")
		if err != nil {
			return Action{}, err
		}
		a = Move(x, y, stringField(obj, "reason", defaultMoveReason))
	case ActionWait:
		a = Wait(stringField(obj, "reason", defaultWaitReason))
	case ActionSpeak:
		a = Speak(stringField(obj, "content", ""), stringField(obj, "recipient", ""))
	case ActionCompleteTask:
		a = CompleteTask(stringField(obj, "task_id", ""), stringField(obj, "result", defaultResult))
	default:
		return Action{}, newError(KindInvalidResponse, "unknown action type: %s", kind)
	}

	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}

// coordinate reads a non-negative integer field.
func coordinate(obj map[string]interface{}, key string) (int, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return 0, newError(KindInvalidResponse, "missing '%s' field", key)
	}
	f, ok := raw.(float64)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, newError(KindInvalidResponse, "'%s' must be a non-negative integer, got %v", key, raw)
	}
	return int(f), nil
}

// stringField reads an optional string, falling back to def when the field
// is absent, null or not a string.
func stringField(obj map[string]interface{}, key, def string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return def
}
