// Package config handles configuration loading and management for swarmville.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ShayCichocki/swarmville/internal/decision"
	"github.com/ShayCichocki/swarmville/internal/logging"
)

// ProjectConfigName is the per-project override file searched upwards from
// the working directory.
const ProjectConfigName = ".swarmville.yaml"

// Config holds all configuration for swarmville.
type Config struct {
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RuntimeConfig holds agent runtime settings.
type RuntimeConfig struct {
	BusCapacity      int           `mapstructure:"bus_capacity"`
	DecisionInterval time.Duration `mapstructure:"decision_interval"`
	ShutdownGrace    time.Duration `mapstructure:"shutdown_grace"`
	// NearbyRadius is the distance within which agents of the same space
	// see each other. Zero disables nearby lookups.
	NearbyRadius float64 `mapstructure:"nearby_radius"`
}

// TimeoutsConfig bounds decision provider calls.
type TimeoutsConfig struct {
	Decision   time.Duration `mapstructure:"decision"`
	Generation time.Duration `mapstructure:"generation"`
}

// ProvidersConfig holds per-backend settings.
type ProvidersConfig struct {
	Claude ClaudeConfig `mapstructure:"claude"`
	Cursor CursorConfig `mapstructure:"cursor"`
	API    APIConfig    `mapstructure:"api"`
}

// ClaudeConfig configures the Claude CLI backend.
type ClaudeConfig struct {
	Path  string `mapstructure:"path"`
	Model string `mapstructure:"model"`
}

// CursorConfig configures the cursor-agent backend.
type CursorConfig struct {
	Path   string `mapstructure:"path"`
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// APIConfig configures the Anthropic API backend.
type APIConfig struct {
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	MaxTokens  int64  `mapstructure:"max_tokens"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
	BaseURL    string `mapstructure:"base_url"`
}

// StorageConfig controls the event recorder database.
type StorageConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// RelayConfig controls the HTTP/websocket relay.
type RelayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig controls the log sink.
type LoggingConfig struct {
	Path    string `mapstructure:"path"`
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"providers.claude.model":   "CLAUDE_MODEL",
	"providers.cursor.model":   "CURSOR_MODEL",
	"providers.cursor.path":    "CURSOR_CLI_PATH",
	"providers.cursor.api_key": "CURSOR_API_KEY",
	"providers.api.api_key":    "ANTHROPIC_API_KEY",
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (SWARMVILLE_* and the provider variables)
// 2. Project config (.swarmville.yaml in current directory or parent)
// 3. User config (~/.config/swarmville/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	return decode(v)
}

// LoadFromPath loads configuration from a specific file on top of the defaults.
// Environment overrides still apply.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return decode(v)
}

// decode applies environment overrides and unmarshals the result.
func decode(v *viper.Viper) (*Config, error) {
	bindEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Providers.API.APIKey = expandEnv(cfg.Providers.API.APIKey)
	cfg.Providers.Cursor.APIKey = expandEnv(cfg.Providers.Cursor.APIKey)

	if ms := os.Getenv("LLM_TIMEOUT_MS"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("LLM_TIMEOUT_MS: invalid value %q", ms)
		}
		// One bound covers every provider call, decisions and free text alike.
		cfg.Timeouts.Decision = time.Duration(n) * time.Millisecond
		cfg.Timeouts.Generation = cfg.Timeouts.Decision
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("SWARMVILLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		// Explicit bindings win over the prefixed name.
		_ = v.BindEnv(key, env, "SWARMVILLE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
}

// Validate rejects settings the runtime cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("storage.driver: unsupported driver %q", c.Storage.Driver)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Runtime.BusCapacity < 1 {
		return fmt.Errorf("runtime.bus_capacity must be positive, got %d", c.Runtime.BusCapacity)
	}
	if c.Runtime.DecisionInterval <= 0 {
		return fmt.Errorf("runtime.decision_interval must be positive")
	}
	if c.Runtime.NearbyRadius < 0 {
		return fmt.Errorf("runtime.nearby_radius must not be negative")
	}
	return nil
}

// DecisionOptions builds the provider factory options from the config.
func (c *Config) DecisionOptions(log *logging.Logger) decision.Options {
	return decision.Options{
		Claude: decision.CLIOptions{
			Path:  c.Providers.Claude.Path,
			Model: c.Providers.Claude.Model,
		},
		Cursor: decision.CLIOptions{
			Path:   c.Providers.Cursor.Path,
			Model:  c.Providers.Cursor.Model,
			APIKey: c.Providers.Cursor.APIKey,
		},
		API: decision.APIOptions{
			Model:      c.Providers.API.Model,
			APIKey:     c.Providers.API.APIKey,
			MaxTokens:  c.Providers.API.MaxTokens,
			UseBedrock: c.Providers.API.UseBedrock,
			AWSRegion:  c.Providers.API.AWSRegion,
			AWSProfile: c.Providers.API.AWSProfile,
			BaseURL:    c.Providers.API.BaseURL,
		},
		DecisionTimeout:   c.Timeouts.Decision,
		GenerationTimeout: c.Timeouts.Generation,
		Logger:            log,
	}
}

// Watch reloads the file at path whenever it changes and hands the result
// to fn. Reload errors are passed to fn with a nil config. Watching lasts
// for the life of the process.
func Watch(path string, fn func(*Config, error)) error {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config from %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		fn(LoadFromPath(path))
	})
	v.WatchConfig()
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("runtime.bus_capacity", 1000)
	v.SetDefault("runtime.decision_interval", "5s")
	v.SetDefault("runtime.shutdown_grace", "5s")
	v.SetDefault("runtime.nearby_radius", 0)

	v.SetDefault("timeouts.decision", decision.DefaultDecisionTimeout.String())
	v.SetDefault("timeouts.generation", decision.DefaultGenerationTimeout.String())

	v.SetDefault("providers.claude.path", "claude")
	v.SetDefault("providers.claude.model", decision.DefaultClaudeModel)
	v.SetDefault("providers.cursor.path", "cursor-agent")
	v.SetDefault("providers.cursor.model", decision.DefaultCursorModel)
	v.SetDefault("providers.cursor.api_key", "")
	v.SetDefault("providers.api.model", decision.DefaultAPIModel)
	v.SetDefault("providers.api.api_key", "")
	v.SetDefault("providers.api.max_tokens", 1024)
	v.SetDefault("providers.api.use_bedrock", false)
	v.SetDefault("providers.api.aws_region", "")
	v.SetDefault("providers.api.aws_profile", "")
	v.SetDefault("providers.api.base_url", "")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "swarmville.db")

	v.SetDefault("relay.enabled", false)
	v.SetDefault("relay.addr", "127.0.0.1:8765")

	v.SetDefault("logging.path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
}

// getUserConfigDir returns the XDG config directory for swarmville.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "swarmville")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "swarmville")
	}
	return filepath.Join(home, ".config", "swarmville")
}

// findProjectConfig searches for .swarmville.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			BusCapacity:      1000,
			DecisionInterval: 5 * time.Second,
			ShutdownGrace:    5 * time.Second,
		},
		Timeouts: TimeoutsConfig{
			Decision:   decision.DefaultDecisionTimeout,
			Generation: decision.DefaultGenerationTimeout,
		},
		Providers: ProvidersConfig{
			Claude: ClaudeConfig{Path: "claude", Model: decision.DefaultClaudeModel},
			Cursor: CursorConfig{Path: "cursor-agent", Model: decision.DefaultCursorModel},
			API:    APIConfig{Model: decision.DefaultAPIModel, MaxTokens: 1024},
		},
		Storage: StorageConfig{Driver: "sqlite", Path: "swarmville.db"},
		Relay:   RelayConfig{Addr: "127.0.0.1:8765"},
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}
