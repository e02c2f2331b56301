package decision

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAction_RoundTrip(t *testing.T) {
	actions := []Action{
		Move(50, 75, "exploring"),
		Move(0, 0, "origin"),
		Wait("resting"),
		Speak("Hello!", "agent_2"),
		Speak("hi all", ""),
		CompleteTask("task_123", "completed successfully"),
	}

	wrappers := map[string]func(string) string{
		"raw":        func(s string) string { return s },
		"json fence": func(s string) string { return "```json\n" + s + "\n```" },
		"bare fence": func(s string) string { return "```\n" + s + "\n```" },
		"inline":     func(s string) string { return "```" + s + "```" },
		"padded":     func(s string) string { return "\n  " + s + "  \n" },
	}

	for _, a := range actions {
		data, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("Marshal(%v) failed: %v", a, err)
		}
		for name, wrap := range wrappers {
			t.Run(a.String()+"/"+name, func(t *testing.T) {
				got, err := ParseAction(wrap(string(data)))
				if err != nil {
					t.Fatalf("ParseAction failed: %v", err)
				}
				if got != a {
					t.Errorf("round trip = %+v, want %+v", got, a)
				}
			})
		}
	}
}

func TestParseAction_Defaults(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Action
	}{
		{"move reason", `{"action":"move","x":1,"y":2}`, Move(1, 2, "no reason provided")},
		{"wait reason", `{"action":"wait"}`, Wait("waiting")},
		{"null recipient", `{"action":"speak","content":"hi","recipient":null}`, Speak("hi", "")},
		{"complete result", `{"action":"complete_task","task_id":"t1"}`, CompleteTask("t1", "completed")},
		{"integral float", `{"action":"move","x":10.0,"y":3}`, Move(10, 3, "no reason provided")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if err != nil {
				t.Fatalf("ParseAction(%s) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseAction_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind ErrorKind
	}{
		{"empty", "   ", KindParse},
		{"not json", "I think I will wait", KindParse},
		{"truncated", `{"action":"move","x":1`, KindParse},
		{"missing action", `{"x":1,"y":2}`, KindInvalidResponse},
		{"unknown action", `{"action":"dance"}`, KindInvalidResponse},
		{"move missing y", `{"action":"move","x":1}`, KindInvalidResponse},
		{"move negative", `{"action":"move","x":-1,"y":2}`, KindInvalidResponse},
		{"move fractional", `{"action":"move","x":1.5,"y":2}`, KindInvalidResponse},
		{"move string coord", `{"action":"move","x":"1","y":2}`, KindInvalidResponse},
		{"speak empty", `{"action":"speak","content":""}`, KindInvalidResponse},
		{"speak missing", `{"action":"speak"}`, KindInvalidResponse},
		{"complete missing id", `{"action":"complete_task","result":"ok"}`, KindInvalidResponse},
		{"array", `[{"action":"wait"}]`, KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if err == nil {
				t.Fatalf("ParseAction(%q) = %+v, want error", tt.in, got)
			}
			if got != (Action{}) {
				t.Errorf("partial action returned with error: %+v", got)
			}
			if k := KindOf(err); k != tt.kind {
				t.Errorf("kind = %q, want %q (err: %v)", k, tt.kind, err)
			}
		})
	}
}

func TestUnwrapEnvelope(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"claude result", `{"type":"result","result":"inner"}`, "inner"},
		{"cursor output", `{"output":"out"}`, "out"},
		{"response", `{"response":"resp"}`, "resp"},
		{"message string", `{"message":"msg"}`, "msg"},
		{"result wins", `{"message":"m","result":"r"}`, "r"},
		{"non-string field skipped", `{"result":{"a":1},"output":"o"}`, "o"},
		{"no known field", `{"action":"wait"}`, `{"action":"wait"}`},
		{"bare complete_task keeps its result", `{"action":"complete_task","task_id":"t1","result":"done"}`, `{"action":"complete_task","task_id":"t1","result":"done"}`},
		{"bare speak keeps its message", `{"action":"speak","message":"hi"}`, `{"action":"speak","message":"hi"}`},
		{"not json", "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UnwrapEnvelope(tt.in); got != tt.want {
				t.Errorf("UnwrapEnvelope(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"```{\"a\":1}```", `{"a":1}`},
		{"```json {\"a\":1}```", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := StripCodeFence(tt.in); got != tt.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestError_IsAndKind(t *testing.T) {
	err := newError(KindTimeout, "30s")
	if !errors.Is(err, ErrTimeout) {
		t.Error("errors.Is(timeout, ErrTimeout) = false")
	}
	if errors.Is(err, ErrParse) {
		t.Error("errors.Is(timeout, ErrParse) = true")
	}

	var de *Error
	if !errors.As(err, &de) || de.Kind != KindTimeout {
		t.Errorf("errors.As kind = %v", de)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf(plain error) should be empty")
	}
	if got := newError(KindNotInstalled, "claude").Error(); got != "claude CLI not installed" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAction_MarshalUnknownKind(t *testing.T) {
	if _, err := json.Marshal(Action{Kind: "dance"}); err == nil {
		t.Error("expected error marshalling unknown kind")
	}
}
