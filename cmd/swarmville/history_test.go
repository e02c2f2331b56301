package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/swarmville/internal/state"
	"github.com/ShayCichocki/swarmville/pkg/models"
)

// seedHistory records one terminated and one running agent.
func seedHistory(t *testing.T, path string) {
	t.Helper()
	db, err := state.Open(state.DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	now := time.Now()
	steps := []error{
		db.UpsertAgent(models.AgentSnapshot{ID: "a1", Name: "Ada", Role: "researcher", Backend: "mock",
			State: models.AgentStateIdle, Position: models.Position{X: 3, Y: 4}, LastStateChange: now}),
		db.UpsertAgent(models.AgentSnapshot{ID: "b2", Name: "Bob", Role: "designer", Backend: "mock",
			State: models.AgentStateIdle, LastStateChange: now}),
		db.SaveTask("a1", models.TaskEntry{TaskID: "t1_research", TaskName: "Research: landing page", CreatedAt: now}),
		db.CompleteTask("a1", "t1_research", "found three references", now.Add(time.Second)),
		db.SaveConversation("a1", models.ConversationEntry{Timestamp: now, Sender: "user", Content: "how is it going?"}),
		db.SaveStateChange("a1", models.AgentStateIdle, models.AgentStateThinking, now),
		db.SaveStateChange("a1", models.AgentStateThinking, models.AgentStateIdle, now.Add(time.Millisecond)),
		db.MarkAgentTerminated("b2", now.Add(2*time.Second)),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("seed step %d: %v", i, err)
		}
	}
}

func openSeeded(t *testing.T) *state.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swarmville.db")
	seedHistory(t, path)
	db, err := state.Open(state.DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPrintAgents(t *testing.T) {
	db := openSeeded(t)

	tests := []struct {
		name       string
		activeOnly bool
		want       []string
		notWant    []string
	}{
		{"active only", true, []string{"Ada", "researcher", "(3,4)"}, []string{"Bob"}},
		{"all", false, []string{"Ada", "Bob", "terminated"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := printAgents(&buf, db, tt.activeOnly); err != nil {
				t.Fatalf("printAgents failed: %v", err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output should not contain %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestPrintAgentHistory(t *testing.T) {
	db := openSeeded(t)

	var buf bytes.Buffer
	if err := printAgentHistory(&buf, db, "a1", 10); err != nil {
		t.Fatalf("printAgentHistory failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Ada (researcher, mock backend)",
		"Tasks (1):",
		"[completed] Research: landing page (id: t1_research) -> found three references",
		"Conversations (latest 1):",
		"user: how is it going?",
		"State changes (latest 2):",
		"thinking -> idle",
		"idle -> thinking",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Most recent transition first.
	if strings.Index(out, "thinking -> idle") > strings.Index(out, "idle -> thinking") {
		t.Errorf("state changes not newest first:\n%s", out)
	}

	buf.Reset()
	if err := printAgentHistory(&buf, db, "b2", 10); err != nil {
		t.Fatalf("printAgentHistory(b2) failed: %v", err)
	}
	if !strings.Contains(buf.String(), "stopped:") {
		t.Errorf("terminated agent missing stop time:\n%s", buf.String())
	}

	if err := printAgentHistory(&buf, db, "nope", 10); err == nil || !strings.Contains(err.Error(), "no recorded history") {
		t.Errorf("unknown agent error = %v", err)
	}
}

func TestRunHistory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	dbPath := filepath.Join(dir, "history.db")
	cfgFile := filepath.Join(dir, "swarmville.yaml")
	if err := os.WriteFile(cfgFile, []byte("storage:\n  path: "+dbPath+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	old := configPath
	t.Cleanup(func() { configPath = old })
	configPath = cfgFile

	if err := runHistory(historyCmd, nil); err == nil || !strings.Contains(err.Error(), "no recorded history") {
		t.Fatalf("missing database error = %v", err)
	}

	seedHistory(t, dbPath)
	var buf bytes.Buffer
	historyCmd.SetOut(&buf)
	t.Cleanup(func() { historyCmd.SetOut(nil) })

	if err := runHistory(historyCmd, []string{"a1"}); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Research: landing page") {
		t.Errorf("output:\n%s", buf.String())
	}
}
