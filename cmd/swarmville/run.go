package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarmville/internal/config"
	"github.com/ShayCichocki/swarmville/internal/orchestrator"
)

var (
	runManifest string
	runTUI      bool
	runDuration time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the runtime and spawn the agents in a manifest",
	Long: `Start the agent runtime and keep it running until interrupted.

The manifest lists agents to spawn and composite tasks to orchestrate:

  agents:
    - name: Ada
      role: researcher
      backend: mock
      position: {x: 10, y: 10}
  tasks:
    - task_id: landing
      description: Create a React landing page
      backend: cursor-auto

Storage and the websocket relay start when enabled in the config.`,
	Args: cobra.NoArgs,
	RunE: runSwarm,
}

func init() {
	runCmd.Flags().StringVarP(&runManifest, "manifest", "m", "", "Swarm manifest (YAML)")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show the live dashboard")
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "Stop after this long (0 runs until interrupted)")
}

func runSwarm(cmd *cobra.Command, args []string) error {
	var manifest *config.Manifest
	if runManifest != "" {
		m, err := config.LoadManifest(runManifest)
		if err != nil {
			return err
		}
		manifest = m
	}

	ctx, stop := signalContext()
	defer stop()

	s, err := startSession(ctx, runTUI)
	if err != nil {
		return err
	}
	defer s.close()

	if manifest != nil {
		if err := applyManifest(ctx, s, manifest); err != nil {
			return ignoreCancel(err)
		}
	}

	s.log.Info("swarm running with %d agents", s.rt.Count())
	return s.wait(ctx, runDuration, runTUI)
}

// applyManifest spawns the listed agents, then orchestrates each task.
func applyManifest(ctx context.Context, s *session, m *config.Manifest) error {
	for _, a := range m.Agents {
		id, err := s.rt.Spawn(ctx, a)
		if err != nil {
			return fmt.Errorf("spawn %s: %w", a.Name, err)
		}
		s.log.Info("spawned %s (%s) as %s", a.Name, a.Role, id)
	}

	orch := orchestrator.New(s.rt, orchestrator.WithLogger(s.log))
	for _, t := range m.Tasks {
		task := orchestrator.NewTask(t.ID, t.Description, t.SpaceID)
		ids, err := orch.Execute(ctx, task, t.Backend)
		if err != nil {
			return fmt.Errorf("task %s: %w", task.ID, err)
		}
		s.log.Info("task %s fanned out to %d agents", task.ID, len(ids))
	}
	return nil
}
