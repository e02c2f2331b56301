package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/swarmville/internal/decision"
)

// clearEnv blanks every variable that can override config values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
	t.Setenv("LLM_TIMEOUT_MS", "")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Runtime.BusCapacity != 1000 {
		t.Errorf("expected bus capacity 1000, got %d", cfg.Runtime.BusCapacity)
	}
	if cfg.Runtime.DecisionInterval != 5*time.Second {
		t.Errorf("expected decision interval 5s, got %v", cfg.Runtime.DecisionInterval)
	}
	if cfg.Timeouts.Decision != 30*time.Second || cfg.Timeouts.Generation != 120*time.Second {
		t.Errorf("unexpected timeouts %+v", cfg.Timeouts)
	}
	if cfg.Providers.Claude.Model != decision.DefaultClaudeModel {
		t.Errorf("expected claude model %s, got %s", decision.DefaultClaudeModel, cfg.Providers.Claude.Model)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Storage.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
runtime:
  bus_capacity: 50
  decision_interval: 250ms
  nearby_radius: 15
timeouts:
  decision: 10s
providers:
  claude:
    model: claude-opus
  api:
    use_bedrock: true
    aws_region: us-west-2
storage:
  enabled: true
  driver: sqlite3
  path: /tmp/swarm.db
relay:
  enabled: true
  addr: ":9000"
logging:
  level: debug
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Runtime.BusCapacity != 50 || cfg.Runtime.DecisionInterval != 250*time.Millisecond {
		t.Errorf("runtime = %+v", cfg.Runtime)
	}
	if cfg.Runtime.NearbyRadius != 15 {
		t.Errorf("nearby radius = %v", cfg.Runtime.NearbyRadius)
	}
	if cfg.Runtime.ShutdownGrace != 5*time.Second {
		t.Errorf("shutdown grace default lost: %v", cfg.Runtime.ShutdownGrace)
	}
	if cfg.Timeouts.Decision != 10*time.Second || cfg.Timeouts.Generation != 120*time.Second {
		t.Errorf("timeouts = %+v", cfg.Timeouts)
	}
	if cfg.Providers.Claude.Model != "claude-opus" || cfg.Providers.Cursor.Model != decision.DefaultCursorModel {
		t.Errorf("providers = %+v", cfg.Providers)
	}
	if !cfg.Providers.API.UseBedrock || cfg.Providers.API.AWSRegion != "us-west-2" {
		t.Errorf("api = %+v", cfg.Providers.API)
	}
	if !cfg.Storage.Enabled || cfg.Storage.Driver != "sqlite3" || cfg.Storage.Path != "/tmp/swarm.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !cfg.Relay.Enabled || cfg.Relay.Addr != ":9000" {
		t.Errorf("relay = %+v", cfg.Relay)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadFromPath_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLAUDE_MODEL", "claude-from-env")
	t.Setenv("CURSOR_CLI_PATH", "/opt/cursor-agent")
	t.Setenv("CURSOR_API_KEY", "cursor-key")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")
	t.Setenv("LLM_TIMEOUT_MS", "1500")
	t.Setenv("SWARMVILLE_RUNTIME_BUS_CAPACITY", "7")

	path := writeConfig(t, "providers:\n  claude:\n    model: from-file\n")
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Providers.Claude.Model != "claude-from-env" {
		t.Errorf("claude model = %q", cfg.Providers.Claude.Model)
	}
	if cfg.Providers.Cursor.Path != "/opt/cursor-agent" || cfg.Providers.Cursor.APIKey != "cursor-key" {
		t.Errorf("cursor = %+v", cfg.Providers.Cursor)
	}
	if cfg.Providers.API.APIKey != "sk-ant-env" {
		t.Errorf("api key = %q", cfg.Providers.API.APIKey)
	}
	if cfg.Timeouts.Decision != 1500*time.Millisecond {
		t.Errorf("decision timeout = %v", cfg.Timeouts.Decision)
	}
	if cfg.Timeouts.Generation != 1500*time.Millisecond {
		t.Errorf("generation timeout = %v, want LLM_TIMEOUT_MS applied", cfg.Timeouts.Generation)
	}
	if cfg.Runtime.BusCapacity != 7 {
		t.Errorf("bus capacity = %d", cfg.Runtime.BusCapacity)
	}
}

func TestLoadFromPath_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     string
		want    string
	}{
		{"bad driver", "storage:\n  driver: postgres\n", "", "storage.driver"},
		{"bad level", "logging:\n  level: loud\n", "", "logging.level"},
		{"zero bus", "runtime:\n  bus_capacity: 0\n", "", "bus_capacity"},
		{"bad timeout env", "", "abc", "LLM_TIMEOUT_MS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LLM_TIMEOUT_MS", tt.env)
			_, err := LoadFromPath(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}

	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	clearEnv(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	userDir := filepath.Join(xdg, "swarmville")
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatal(err)
	}
	user := "runtime:\n  bus_capacity: 10\nrelay:\n  addr: \":1111\"\n"
	if err := os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(user), 0644); err != nil {
		t.Fatal(err)
	}

	project := t.TempDir()
	nested := filepath.Join(project, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, ProjectConfigName), []byte("runtime:\n  bus_capacity: 20\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Runtime.BusCapacity != 20 {
		t.Errorf("bus capacity = %d, want project value 20", cfg.Runtime.BusCapacity)
	}
	if cfg.Relay.Addr != ":1111" {
		t.Errorf("relay addr = %q, want user value", cfg.Relay.Addr)
	}
	if GetUserConfigPath() != filepath.Join(userDir, "config.yaml") {
		t.Errorf("user config path = %s", GetUserConfigPath())
	}
}

func TestDecisionOptions(t *testing.T) {
	cfg := Default()
	cfg.Providers.Cursor.APIKey = "k"
	cfg.Providers.API.UseBedrock = true
	cfg.Timeouts.Decision = time.Second

	opts := cfg.DecisionOptions(nil)
	if opts.Claude.Path != "claude" || opts.Cursor.APIKey != "k" || !opts.API.UseBedrock {
		t.Errorf("options = %+v", opts)
	}
	if opts.DecisionTimeout != time.Second || opts.API.MaxTokens != 1024 {
		t.Errorf("timeouts = %v, max tokens = %d", opts.DecisionTimeout, opts.API.MaxTokens)
	}
}

func TestWatch(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "runtime:\n  decision_interval: 1s\n")

	reloaded := make(chan *Config, 4)
	err := Watch(path, func(cfg *Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// WatchConfig starts its watcher asynchronously.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("runtime:\n  decision_interval: 3s\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Runtime.DecisionInterval == 3*time.Second {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}

func TestWatch_MissingFile(t *testing.T) {
	if err := Watch(filepath.Join(t.TempDir(), "nope.yaml"), func(*Config, error) {}); err == nil {
		t.Error("expected error for missing file")
	}
}
