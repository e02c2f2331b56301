package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarmville/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after layering defaults, the user config
(~/.config/swarmville/config.yaml), the nearest .swarmville.yaml, and
SWARMVILLE_* environment variables. API keys are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		displayAllConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(out io.Writer, cfg *config.Config) {
	p := func(key string, value any) { fmt.Fprintf(out, "%s: %v\n", key, value) }

	p("runtime.bus_capacity", cfg.Runtime.BusCapacity)
	p("runtime.decision_interval", cfg.Runtime.DecisionInterval)
	p("runtime.shutdown_grace", cfg.Runtime.ShutdownGrace)
	p("runtime.nearby_radius", cfg.Runtime.NearbyRadius)
	p("timeouts.decision", cfg.Timeouts.Decision)
	p("timeouts.generation", cfg.Timeouts.Generation)
	p("providers.claude.path", cfg.Providers.Claude.Path)
	p("providers.claude.model", cfg.Providers.Claude.Model)
	p("providers.cursor.path", cfg.Providers.Cursor.Path)
	p("providers.cursor.model", cfg.Providers.Cursor.Model)
	p("providers.cursor.api_key", config.MaskAPIKey(cfg.Providers.Cursor.APIKey))
	p("providers.api.model", cfg.Providers.API.Model)
	p("providers.api.api_key", config.MaskAPIKey(cfg.Providers.API.APIKey))
	p("providers.api.max_tokens", cfg.Providers.API.MaxTokens)
	p("providers.api.use_bedrock", cfg.Providers.API.UseBedrock)
	p("storage.enabled", cfg.Storage.Enabled)
	p("storage.driver", cfg.Storage.Driver)
	p("storage.path", cfg.Storage.Path)
	p("relay.enabled", cfg.Relay.Enabled)
	p("relay.addr", cfg.Relay.Addr)
	p("logging.path", cfg.Logging.Path)
	p("logging.level", cfg.Logging.Level)
	p("logging.console", cfg.Logging.Console)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "user config:    %s\n", config.GetUserConfigPath())
	project := config.GetProjectConfigPath()
	if project == "" {
		project = "(none)"
	}
	fmt.Fprintf(out, "project config: %s\n", project)
}
