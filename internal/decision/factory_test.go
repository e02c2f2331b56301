package decision

import (
	"errors"
	"testing"
)

func TestResolveSelector(t *testing.T) {
	tests := []struct {
		selector    string
		wantBackend string
		wantModel   string
	}{
		{"claude", BackendClaude, "claude-haiku-4-5-20251001"},
		{"claude-haiku", BackendClaude, "claude-haiku-4-5-20251001"},
		{"cursor", BackendCursor, "claude-3.5-sonnet"},
		{"cursor-auto", BackendCursor, "auto"},
		{"api", BackendAPI, "claude-sonnet-4-20250514"},
		{"mock", BackendMock, "mock"},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			backend, model, err := ResolveSelector(tt.selector)
			if err != nil {
				t.Fatalf("ResolveSelector failed: %v", err)
			}
			if backend != tt.wantBackend || model != tt.wantModel {
				t.Errorf("got (%s, %s), want (%s, %s)", backend, model, tt.wantBackend, tt.wantModel)
			}
		})
	}
}

func TestResolveSelector_Unknown(t *testing.T) {
	for _, sel := range []string{"", "gpt", "Claude", "openai"} {
		if _, _, err := ResolveSelector(sel); !errors.Is(err, ErrUnknownBackend) {
			t.Errorf("ResolveSelector(%q) err = %v, want ErrUnknownBackend", sel, err)
		}
	}
}

func TestNew(t *testing.T) {
	for _, backend := range Backends {
		t.Run(backend, func(t *testing.T) {
			p, err := New(backend, "", Options{})
			if err != nil {
				t.Fatalf("New(%q) failed: %v", backend, err)
			}
			if p.Name() != backend {
				t.Errorf("Name() = %q, want %q", p.Name(), backend)
			}
		})
	}

	if _, err := New("openai", "", Options{}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("New(openai) err = %v, want ErrUnknownBackend", err)
	}
}

func TestNew_ModelOverride(t *testing.T) {
	p, err := New(BackendCursor, "auto", Options{Cursor: CLIOptions{Model: "configured"}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := p.(*CLIProvider).Model(); got != "auto" {
		t.Errorf("Model() = %q, want auto", got)
	}

	mock := NewMock()
	p, _ = New(BackendMock, "mock", Options{Mock: mock})
	if p != Provider(mock) {
		t.Error("New(mock) ignored Options.Mock")
	}
}
