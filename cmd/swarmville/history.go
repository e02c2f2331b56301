package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/swarmville/internal/state"
)

var (
	historyAll   bool
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history [agent-id]",
	Short: "Show what the recorder stored",
	Long: `Read the storage database written by 'run' and 'orchestrate' when
storage.enabled is set.

Without an argument, lists recorded agents (--all includes terminated
ones). With an agent id, shows that agent's tasks, recent conversations,
and state transitions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "Include terminated agents")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Conversations and transitions to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !fileExists(cfg.Storage.Path) {
		return fmt.Errorf("no recorded history at %s (enable storage.enabled to record)", cfg.Storage.Path)
	}

	db, err := state.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate storage: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return printAgents(out, db, !historyAll)
	}
	return printAgentHistory(out, db, args[0], historyLimit)
}

// historyReader is the read side of the store used by the history command.
type historyReader interface {
	state.AgentStore
	state.ConversationStore
	state.TaskStore
	state.HistoryStore
}

func printAgents(out io.Writer, db historyReader, activeOnly bool) error {
	agents, err := db.ListAgents(activeOnly)
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Fprintln(out, "No agents recorded")
		return nil
	}
	for _, a := range agents {
		status := string(a.State)
		if !a.Active() {
			status = "terminated"
		}
		fmt.Fprintf(out, "%-36s  %-18s %-20s %-10s (%d,%d)\n",
			a.ID, a.Name, a.Role, status, a.Position.X, a.Position.Y)
	}
	return nil
}

func printAgentHistory(out io.Writer, db historyReader, id string, limit int) error {
	a, err := db.GetAgent(id)
	if errors.Is(err, state.ErrNotFound) {
		return fmt.Errorf("agent %s has no recorded history", id)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s (%s, %s backend)\n", a.Name, a.Role, a.Backend)
	fmt.Fprintf(out, "  state:    %s at (%d,%d)\n", a.State, a.Position.X, a.Position.Y)
	fmt.Fprintf(out, "  created:  %s\n", a.CreatedAt.Local().Format(time.DateTime))
	if a.TerminatedAt != nil {
		fmt.Fprintf(out, "  stopped:  %s\n", a.TerminatedAt.Local().Format(time.DateTime))
	}

	tasks, err := db.ListTasks(id, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTasks (%d):\n", len(tasks))
	for _, t := range tasks {
		line := fmt.Sprintf("  [%s] %s (id: %s)", t.Status, t.TaskName, t.TaskID)
		if t.Result != "" {
			line += " -> " + t.Result
		}
		fmt.Fprintln(out, line)
	}

	convs, err := db.RecentConversations(id, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nConversations (latest %d):\n", len(convs))
	for _, c := range convs {
		fmt.Fprintf(out, "  %s %s: %s\n", c.Timestamp.Local().Format(time.TimeOnly), c.Sender, c.Content)
	}

	changes, err := db.StateHistory(id, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nState changes (latest %d):\n", len(changes))
	for _, c := range changes {
		fmt.Fprintf(out, "  %s %s -> %s\n", c.Timestamp.Local().Format(time.TimeOnly), c.OldState, c.NewState)
	}
	return nil
}
