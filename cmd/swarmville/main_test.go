package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/swarmville/internal/config"
	"github.com/ShayCichocki/swarmville/internal/decision"
	"github.com/ShayCichocki/swarmville/internal/logging"
	"github.com/ShayCichocki/swarmville/internal/orchestrator"
	"github.com/ShayCichocki/swarmville/internal/swarm"
	"github.com/ShayCichocki/swarmville/internal/version"
	"github.com/ShayCichocki/swarmville/pkg/models"
)

func newTestSession(t *testing.T) *session {
	t.Helper()
	rt := swarm.New(
		swarm.WithProviderFactory(swarm.DecisionFactory(decision.Options{})),
		swarm.WithDecisionInterval(time.Hour),
		swarm.WithShutdownGrace(time.Second),
	)
	s := &session{cfg: config.Default(), log: logging.Nop(), rt: rt}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.ShutdownAll(ctx)
	})
	return s
}

func TestApplyManifest(t *testing.T) {
	s := newTestSession(t)
	m := &config.Manifest{
		Agents: []models.AgentConfig{
			{Name: "Ada", Role: "researcher", Backend: "mock"},
			{Name: "Bob", Role: "designer", Backend: "mock", Position: models.Position{X: 5, Y: 5}},
		},
		Tasks: []config.ManifestTask{
			{CompositeTask: models.CompositeTask{ID: "t1", Description: "summarise the logs"}, Backend: "mock"},
		},
	}

	if err := applyManifest(context.Background(), s, m); err != nil {
		t.Fatalf("applyManifest() error = %v", err)
	}
	// Two manifest agents plus the analyzer and executor of the generic pipeline.
	if got := s.rt.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}

	// Assignments reach the actors through their mailboxes.
	deadline := time.Now().Add(2 * time.Second)
	for {
		var tasks []string
		for _, snap := range s.rt.Snapshots() {
			if snap.CurrentTask != "" {
				tasks = append(tasks, snap.CurrentTask)
			}
		}
		if len(tasks) == 2 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("agents with tasks = %v, want 2", tasks)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestApplyManifestUnknownBackend(t *testing.T) {
	tests := []struct {
		name string
		m    *config.Manifest
	}{
		{
			name: "agent",
			m:    &config.Manifest{Agents: []models.AgentConfig{{Name: "Ada", Backend: "gpt"}}},
		},
		{
			name: "task",
			m: &config.Manifest{Tasks: []config.ManifestTask{
				{CompositeTask: models.CompositeTask{Description: "x"}, Backend: "gpt"},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			if err := applyManifest(context.Background(), s, tt.m); err == nil {
				t.Fatal("expected error for unknown backend")
			}
			if s.rt.Count() != 0 {
				t.Errorf("Count() = %d, want 0", s.rt.Count())
			}
		})
	}
}

func TestDisplayAllConfigMasksKeys(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.API.APIKey = "sk-ant-REDACTED"

	var buf bytes.Buffer
	displayAllConfig(&buf, cfg)
	out := buf.String()

	if strings.Contains(out, "secretsecret") {
		t.Error("API key printed in clear")
	}
	for _, want := range []string{"providers.api.api_key: sk-ant-...abcd", "runtime.bus_capacity:", "relay.addr:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestProbeProvidersMockAlwaysAvailable(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Claude.Path = "/nonexistent/claude"
	cfg.Providers.Cursor.Path = "/nonexistent/cursor-agent"

	var buf bytes.Buffer
	if n := probeProviders(context.Background(), &buf, cfg); n < 1 {
		t.Errorf("usable = %d, want at least mock", n)
	}
	out := buf.String()
	if !strings.Contains(out, "mock    available") {
		t.Errorf("mock not reported available:\n%s", out)
	}
	if !strings.Contains(out, "claude  unavailable") {
		t.Errorf("claude with a missing binary should be unavailable:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	if got := strings.TrimSpace(buf.String()); got != version.String() {
		t.Errorf("version output = %q", got)
	}
}

func TestWatchedConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Chdir(dir)

	old := configPath
	t.Cleanup(func() { configPath = old })

	configPath = ""
	if got := watchedConfigPath(); got != "" {
		t.Errorf("no config files: got %q", got)
	}

	project := filepath.Join(dir, config.ProjectConfigName)
	if err := os.WriteFile(project, []byte("runtime:\n  bus_capacity: 10\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := watchedConfigPath(); got != project {
		t.Errorf("project config: got %q, want %q", got, project)
	}

	configPath = "/explicit.yaml"
	if got := watchedConfigPath(); got != "/explicit.yaml" {
		t.Errorf("--config: got %q", got)
	}
}

func TestLoadConfigLogLevelOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	old := logLevel
	t.Cleanup(func() { logLevel = old })

	logLevel = "debug"
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}

	logLevel = "loud"
	if _, err := loadConfig(); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestPrintAssignments(t *testing.T) {
	var buf bytes.Buffer
	printAssignments(&buf, "t1", []orchestrator.Assignment{
		{AgentID: "a1", Subtask: models.Subtask{TaskID: "t1_analyzer", Role: "analyzer"}},
		{AgentID: "b2", Subtask: models.Subtask{TaskID: "t1_executor", Role: "executor"}},
	})
	out := buf.String()
	for _, want := range []string{"Task t1 split across 2 agents", "a1", "t1_analyzer", "b2", "t1_executor"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
