package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarmville/internal/config"
	"github.com/ShayCichocki/swarmville/internal/decision"
	"github.com/ShayCichocki/swarmville/internal/logging"
)

// probeTimeout bounds each availability check.
const probeTimeout = 5 * time.Second

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Check which decision backends are usable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		out := cmd.OutOrStdout()
		probeProviders(cmd.Context(), out, cfg)

		fmt.Fprintln(out)
		fmt.Fprintf(out, "ANTHROPIC_API_KEY: %s (%s)\n", maskedKey(cfg), config.GetAPIKeySource(cfg))
		fmt.Fprintf(out, "CURSOR_API_KEY:    %s\n", config.GetCursorKeySource(cfg))
		return nil
	},
}

// probeProviders prints one line per backend. It returns how many are usable.
func probeProviders(ctx context.Context, out io.Writer, cfg *config.Config) int {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := cfg.DecisionOptions(logging.Nop())

	usable := 0
	for _, backend := range decision.Backends {
		p, err := decision.New(backend, "", opts)
		if err != nil {
			printStatus(out, "✗", fmt.Sprintf("%-7s %v", backend, err), color.FgRed)
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		ok := p.IsAvailable(probeCtx)
		cancel()

		if ok {
			usable++
			printStatus(out, "✓", fmt.Sprintf("%-7s available", backend), color.FgGreen)
		} else {
			printStatus(out, "✗", fmt.Sprintf("%-7s unavailable", backend), color.FgYellow)
		}
	}
	return usable
}

func maskedKey(cfg *config.Config) string {
	key, err := config.GetAPIKey(cfg)
	if err != nil {
		return config.MaskAPIKey("")
	}
	return config.MaskAPIKey(key)
}

func printStatus(out io.Writer, symbol, message string, attr color.Attribute) {
	c := color.New(attr)
	fmt.Fprintf(out, "%s %s\n", c.Sprint(symbol), message)
}
