package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ShayCichocki/swarmville/internal/decision"
	"github.com/ShayCichocki/swarmville/internal/logging"
	"github.com/ShayCichocki/swarmville/pkg/models"
)

// Spawner is the part of the agent runtime the orchestrator drives.
type Spawner interface {
	Spawn(ctx context.Context, cfg models.AgentConfig) (string, error)
	AssignTask(id, taskID, taskName string) error
	Terminate(ctx context.Context, id string) error
}

// TaskOrchestrator decomposes composite tasks and spawns one agent per
// subtask.
type TaskOrchestrator struct {
	spawner    Spawner
	decomposer Decomposer
	log        *logging.Logger
}

// Option configures a TaskOrchestrator.
type Option func(*TaskOrchestrator)

// WithDecomposer replaces the default KeywordDecomposer.
func WithDecomposer(d Decomposer) Option {
	return func(o *TaskOrchestrator) { o.decomposer = d }
}

// WithLogger sets the orchestrator logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *TaskOrchestrator) { o.log = l }
}

// New creates a TaskOrchestrator backed by the given spawner.
func New(spawner Spawner, opts ...Option) *TaskOrchestrator {
	o := &TaskOrchestrator{spawner: spawner, decomposer: KeywordDecomposer{}}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With("orchestrator")
	return o
}

// NewTask builds a composite task, generating an id when none is given.
func NewTask(id, description, spaceID string) models.CompositeTask {
	if id == "" {
		id = "task_" + uuid.New().String()[:8]
	}
	return models.CompositeTask{ID: id, Description: description, SpaceID: spaceID}
}

// Decompose splits the task with the configured decomposer.
func (o *TaskOrchestrator) Decompose(ctx context.Context, task models.CompositeTask) ([]models.Subtask, error) {
	subtasks, err := o.decomposer.Decompose(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("decompose %s: %w", task.ID, err)
	}
	return subtasks, nil
}

// Assignment pairs a spawned agent with the subtask it was given.
type Assignment struct {
	AgentID string
	Subtask models.Subtask
}

// Execute decomposes the task and, for each subtask in order, spawns an
// agent with the selected backend and assigns the subtask as its first
// task. It returns the spawned agent ids in subtask order.
//
// If any spawn or assignment fails, every agent already spawned for this
// task is terminated and the error names the failing subtask.
func (o *TaskOrchestrator) Execute(ctx context.Context, task models.CompositeTask, selector string) ([]string, error) {
	assignments, err := o.Dispatch(ctx, task, selector)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(assignments))
	for i, a := range assignments {
		ids[i] = a.AgentID
	}
	return ids, nil
}

// Dispatch is Execute, returning each agent together with its subtask.
func (o *TaskOrchestrator) Dispatch(ctx context.Context, task models.CompositeTask, selector string) ([]Assignment, error) {
	backend, model, err := decision.ResolveSelector(selector)
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", task.ID, err)
	}

	subtasks, err := o.Decompose(ctx, task)
	if err != nil {
		return nil, err
	}
	o.log.Info("task %s decomposed into %d subtasks (backend %s, model %s)", task.ID, len(subtasks), backend, model)

	ids := make([]string, 0, len(subtasks))
	assignments := make([]Assignment, 0, len(subtasks))
	for _, st := range subtasks {
		cfg := models.AgentConfig{
			Name:     st.Role + " Agent",
			Role:     st.Role,
			Backend:  backend,
			Model:    model,
			Position: st.Position,
			SpaceID:  task.SpaceID,
		}

		id, err := o.spawner.Spawn(ctx, cfg)
		if err != nil {
			o.rollback(ctx, task.ID, ids)
			return nil, fmt.Errorf("subtask %s: spawn: %w", st.TaskID, err)
		}
		ids = append(ids, id)

		if err := o.spawner.AssignTask(id, st.TaskID, st.Description); err != nil {
			o.rollback(ctx, task.ID, ids)
			return nil, fmt.Errorf("subtask %s: assign: %w", st.TaskID, err)
		}
		assignments = append(assignments, Assignment{AgentID: id, Subtask: st})
		o.log.Info("spawned %s agent %s for %s", st.Role, id, st.TaskID)
	}

	o.log.Info("task %s fan-out complete: %d agents", task.ID, len(ids))
	return assignments, nil
}

// rollback terminates the agents spawned so far, newest first. It runs even
// when ctx is already cancelled.
func (o *TaskOrchestrator) rollback(ctx context.Context, taskID string, ids []string) {
	if len(ids) == 0 {
		return
	}
	o.log.Warn("rolling back %d agents of task %s", len(ids), taskID)
	cleanup := context.WithoutCancel(ctx)
	var errs []error
	for i := len(ids) - 1; i >= 0; i-- {
		if err := o.spawner.Terminate(cleanup, ids[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		o.log.Error("rollback of task %s incomplete: %v", taskID, err)
	}
}
