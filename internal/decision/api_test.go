package decision

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

func messageResponse(text string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":            "msg_01",
		"type":          "message",
		"role":          "assistant",
		"model":         DefaultAPIModel,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"usage": map[string]interface{}{"input_tokens": 12, "output_tokens": 7},
	})
	return string(body)
}

func TestAPIProvider_MakeDecision(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Api-Key") != "sk-ant-test" {
			t.Errorf("api key header = %q", r.Header.Get("X-Api-Key"))
		}
		data, _ := io.ReadAll(r.Body)
		gotPrompt = string(data)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, messageResponse("```json\n{\"action\":\"complete_task\",\"task_id\":\"t1\",\"result\":\"done\"}\n```"))
	}))
	defer srv.Close()

	p := NewAPIProvider(APIOptions{APIKey: "sk-ant-test", BaseURL: srv.URL})
	if !p.IsAvailable(context.Background()) {
		t.Fatal("IsAvailable = false with an API key")
	}

	got, err := p.MakeDecision(context.Background(), testContext())
	if err != nil {
		t.Fatalf("MakeDecision failed: %v", err)
	}
	if want := CompleteTask("t1", "done"); got != want {
		t.Errorf("action = %+v, want %+v", got, want)
	}
	if !strings.Contains(gotPrompt, "You are Ada") {
		t.Error("request body did not contain the rendered prompt")
	}
	if !strings.Contains(gotPrompt, DefaultAPIModel) {
		t.Error("request body did not name the default model")
	}
	if in, out := p.Usage(); in != 12 || out != 7 {
		t.Errorf("Usage() = %d, %d, want 12, 7", in, out)
	}
}

func TestAPIProvider_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	p := NewAPIProvider(APIOptions{APIKey: "sk-ant-bad", BaseURL: srv.URL})
	_, err := p.GenerateText(context.Background(), "hi")
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("err = %v, want ErrAuthenticationFailed", err)
	}
}

func TestAPIProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewAPIProvider(APIOptions{APIKey: "sk-ant-test", BaseURL: srv.URL, DecisionTimeout: 150 * time.Millisecond})
	_, err := p.MakeDecision(context.Background(), testContext())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestAPIProvider_NoCredentials(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	p := NewAPIProvider(APIOptions{})
	if p.IsAvailable(context.Background()) {
		t.Error("IsAvailable = true without credentials")
	}
	if _, err := p.GenerateText(context.Background(), "hi"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("err = %v, want ErrAuthenticationFailed", err)
	}
}

func TestBedrockModel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"claude-sonnet-4-20250514", "us.anthropic.claude-sonnet-4-20250514-v1:0"},
		{"us.anthropic.claude-haiku-4-5-20251001-v1:0", "us.anthropic.claude-haiku-4-5-20251001-v1:0"},
	}
	for _, tt := range tests {
		if got := string(bedrockModel(anthropic.Model(tt.in))); got != tt.want {
			t.Errorf("bedrockModel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
