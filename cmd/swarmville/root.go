package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "swarmville",
	Short: "Autonomous agent swarm runtime",
	Long: `Swarmville runs a swarm of autonomous agents on a shared 2D grid.

Each agent is an actor that reacts to messages, a decision timer, and
events from its neighbours. Decisions come from a pluggable backend:
the Claude CLI, cursor-agent, the Anthropic API, or a local mock.

Composite tasks are split into role-specific subtasks and fanned out
to freshly spawned agents.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config plus .swarmville.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(orchestrateCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
