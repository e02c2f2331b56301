package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, LevelWarn)

	l.Debug("debug line")
	l.Info("info line")
	l.Warn("warn line %d", 1)
	l.Error("error line")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("filtered lines were written:\n%s", out)
	}
	if !strings.Contains(out, "WARN  warn line 1") {
		t.Errorf("missing warn line:\n%s", out)
	}
	if !strings.Contains(out, "ERROR error line") {
		t.Errorf("missing error line:\n%s", out)
	}

	l.SetLevel(LevelDebug)
	l.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("SetLevel did not lower the threshold")
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriter(&buf, LevelDebug)
	child := root.With("agent").With("ada")

	child.Info("hello")
	if !strings.Contains(buf.String(), "agent.ada: hello") {
		t.Errorf("component prefix missing:\n%s", buf.String())
	}

	// Children share the root's level.
	root.SetLevel(LevelError)
	child.Info("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("child ignored root level change")
	}
}

func TestLogger_NilAndNopSafe(t *testing.T) {
	var l *Logger
	l.Info("nothing")
	l.SetLevel(LevelDebug)
	if l.With("x") != nil {
		t.Error("With on nil logger should return nil")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil logger: %v", err)
	}

	n := Nop()
	n.Error("nothing")
	if n.Enabled(LevelError) {
		t.Error("Nop logger reports enabled")
	}
	if err := n.Close(); err != nil {
		t.Errorf("Close on Nop logger: %v", err)
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "swarmville.log")
	l, err := New(Options{Path: path, Level: LevelInfo})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.Info("spawned %s", "a1")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Writes after Close are dropped.
	l.Info("after close")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "spawned a1") {
		t.Errorf("log file missing entry:\n%s", data)
	}
	if strings.Contains(string(data), "after close") {
		t.Error("entry written after Close")
	}
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, LevelDebug)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				l.With("worker").Debug("n=%d j=%d", n, j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Count(buf.String(), "\n")
	if lines != 200 {
		t.Errorf("got %d lines, want 200", lines)
	}
}
