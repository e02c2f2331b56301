package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarmville/internal/decision"
	"github.com/ShayCichocki/swarmville/internal/orchestrator"
)

var (
	orchBackend  string
	orchTaskID   string
	orchSpaceID  string
	orchPlanWith string
	orchDuration time.Duration
	orchTUI      bool
)

var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate <description>",
	Short: "Split one composite task across freshly spawned agents",
	Long: `Decompose a composite task into role-specific subtasks, spawn one agent
per subtask, and assign each its slice of the work.

Backends: claude, claude-haiku, cursor, cursor-auto, api, mock.

By default the split is keyword based ("react page" gets a four-stage
frontend pipeline, everything else an analyzer and an executor). With
--plan-with the named backend proposes the subtasks and the keyword
split is the fallback.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOrchestrate,
}

func init() {
	orchestrateCmd.Flags().StringVarP(&orchBackend, "backend", "b", "claude", "Backend selector for spawned agents")
	orchestrateCmd.Flags().StringVar(&orchTaskID, "task-id", "", "Parent task id (default: generated)")
	orchestrateCmd.Flags().StringVar(&orchSpaceID, "space", "", "Space id given to every spawned agent")
	orchestrateCmd.Flags().StringVar(&orchPlanWith, "plan-with", "", "Backend selector that proposes the subtasks")
	orchestrateCmd.Flags().DurationVar(&orchDuration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	orchestrateCmd.Flags().BoolVar(&orchTUI, "tui", false, "Show the live dashboard")
}

func runOrchestrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	s, err := startSession(ctx, orchTUI)
	if err != nil {
		return err
	}
	defer s.close()

	var opts []orchestrator.Option
	opts = append(opts, orchestrator.WithLogger(s.log))
	if orchPlanWith != "" {
		backend, model, err := decision.ResolveSelector(orchPlanWith)
		if err != nil {
			return err
		}
		planner, err := decision.New(backend, model, s.cfg.DecisionOptions(s.log))
		if err != nil {
			return err
		}
		opts = append(opts, orchestrator.WithDecomposer(
			orchestrator.NewProviderDecomposer(planner, orchestrator.DefaultMaxSubtasks, s.log)))
	}
	orch := orchestrator.New(s.rt, opts...)

	task := orchestrator.NewTask(orchTaskID, strings.Join(args, " "), orchSpaceID)
	assignments, err := orch.Dispatch(ctx, task, orchBackend)
	if err != nil {
		return ignoreCancel(err)
	}
	printAssignments(cmd.OutOrStdout(), task.ID, assignments)

	return s.wait(ctx, orchDuration, orchTUI)
}

func printAssignments(out io.Writer, taskID string, assignments []orchestrator.Assignment) {
	fmt.Fprintf(out, "Task %s split across %d agents:\n", taskID, len(assignments))
	for _, a := range assignments {
		fmt.Fprintf(out, "  %s  %-20s %s\n", a.AgentID, a.Subtask.Role, a.Subtask.TaskID)
	}
}
