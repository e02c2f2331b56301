package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// GetAPIKey returns the Anthropic API key.
// It checks in order: environment variable, config file.
func GetAPIKey(cfg *Config) (string, error) {
	var configured string
	if cfg != nil {
		configured = cfg.Providers.API.APIKey
	}
	key, _ := resolveKey("ANTHROPIC_API_KEY", configured)
	if key == "" {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// ValidateAPIKey performs basic validation on an Anthropic API key.
// It checks format but does not verify the key with the API.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}
	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}
	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the Anthropic API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	var configured string
	if cfg != nil {
		configured = cfg.Providers.API.APIKey
	}
	_, src := resolveKey("ANTHROPIC_API_KEY", configured)
	return src
}

// GetCursorKeySource returns where the cursor-agent API key was sourced from.
func GetCursorKeySource(cfg *Config) KeySource {
	var configured string
	if cfg != nil {
		configured = cfg.Providers.Cursor.APIKey
	}
	_, src := resolveKey("CURSOR_API_KEY", configured)
	return src
}

// resolveKey prefers the environment, then a configured value with any
// ${VAR} references expanded. Unresolved references count as unset.
func resolveKey(env, configured string) (string, KeySource) {
	if key := os.Getenv(env); key != "" {
		return key, KeySourceEnv
	}
	if configured != "" {
		key := os.ExpandEnv(configured)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, KeySourceConfig
		}
	}
	return "", KeySourceNone
}
