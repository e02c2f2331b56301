// Package swarm supervises running agents: it spawns them, routes commands
// to their mailboxes, and shuts them down.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/swarmville/internal/agent"
	"github.com/ShayCichocki/swarmville/internal/bus"
	"github.com/ShayCichocki/swarmville/internal/decision"
	"github.com/ShayCichocki/swarmville/internal/logging"
	"github.com/ShayCichocki/swarmville/pkg/models"
)

// Common errors for runtime operations.
var (
	// ErrAgentNotFound indicates no running agent has the given ID.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrProviderUnavailable indicates the requested backend failed its probe.
	ErrProviderUnavailable = errors.New("decision provider unavailable")
	// ErrUnknownBackend indicates a backend selector outside the known set.
	ErrUnknownBackend = decision.ErrUnknownBackend
)

// DefaultShutdownGrace bounds how long Terminate waits for an agent to exit.
const DefaultShutdownGrace = 5 * time.Second

// ProviderFactory builds the decision provider for a spawn request.
type ProviderFactory func(backend, model string) (decision.Provider, error)

// DecisionFactory returns a ProviderFactory backed by decision.New.
func DecisionFactory(opts decision.Options) ProviderFactory {
	return func(backend, model string) (decision.Provider, error) {
		return decision.New(backend, model, opts)
	}
}

// handle is the runtime's control surface for one agent.
type handle struct {
	agent   *agent.Agent
	mailbox *agent.Mailbox
	cancel  context.CancelFunc
}

// Runtime is the agent registry. Operations on different agents never
// contend on a shared lock.
type Runtime struct {
	agents sync.Map // agent ID -> *handle
	count  atomic.Int64

	bus          *bus.Bus
	factory      ProviderFactory
	interval     atomic.Int64
	grace        time.Duration
	nearbyRadius float64
	log          *logging.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithBus uses an existing bus instead of creating one.
func WithBus(b *bus.Bus) Option {
	return func(r *Runtime) { r.bus = b }
}

// WithBusCapacity sets the per-subscriber buffer of the runtime's bus.
func WithBusCapacity(n int) Option {
	return func(r *Runtime) { r.bus = bus.New(n) }
}

// WithProviderFactory sets how spawn requests resolve their backend.
func WithProviderFactory(f ProviderFactory) Option {
	return func(r *Runtime) { r.factory = f }
}

// WithDecisionInterval sets the default decision cadence for new agents.
func WithDecisionInterval(d time.Duration) Option {
	return func(r *Runtime) { r.SetDecisionInterval(d) }
}

// WithShutdownGrace sets how long Terminate waits before cancelling.
func WithShutdownGrace(d time.Duration) Option {
	return func(r *Runtime) { r.grace = d }
}

// WithNearbyRadius makes agents see others in the same space within radius.
// Zero leaves the nearby list empty.
func WithNearbyRadius(radius float64) Option {
	return func(r *Runtime) { r.nearbyRadius = radius }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runtime) { r.log = l }
}

// New creates an empty runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{grace: DefaultShutdownGrace}
	r.interval.Store(int64(agent.DefaultDecisionInterval))
	for _, opt := range opts {
		opt(r)
	}
	if r.bus == nil {
		r.bus = bus.New(bus.DefaultCapacity)
	}
	if r.factory == nil {
		r.factory = DecisionFactory(decision.Options{Logger: r.log})
	}
	if r.grace <= 0 {
		r.grace = DefaultShutdownGrace
	}
	r.log = r.log.With("runtime")
	return r
}

// Bus returns the shared event bus.
func (r *Runtime) Bus() *bus.Bus {
	return r.bus
}

// SetDecisionInterval changes the cadence used for agents spawned from now on.
func (r *Runtime) SetDecisionInterval(d time.Duration) {
	if d > 0 {
		r.interval.Store(int64(d))
	}
}

// DecisionInterval returns the cadence new agents get by default.
func (r *Runtime) DecisionInterval() time.Duration {
	return time.Duration(r.interval.Load())
}

// Spawn resolves the backend, probes it, and starts a new agent. It never
// substitutes a different backend when the requested one is unusable.
func (r *Runtime) Spawn(ctx context.Context, cfg models.AgentConfig) (string, error) {
	if cfg.Backend == "" {
		return "", fmt.Errorf("spawn %s: %w: empty backend", cfg.Name, ErrUnknownBackend)
	}
	provider, err := r.factory(cfg.Backend, cfg.Model)
	if err != nil {
		return "", fmt.Errorf("spawn %s: %w", cfg.Name, err)
	}
	if !provider.IsAvailable(ctx) {
		return "", fmt.Errorf("spawn %s: %w: %s", cfg.Name, ErrProviderUnavailable, provider.Name())
	}

	opts := []agent.Option{
		agent.WithProvider(provider),
		agent.WithDecisionInterval(r.DecisionInterval()),
		agent.WithLogger(r.log),
	}
	if r.nearbyRadius > 0 {
		opts = append(opts, agent.WithNearby(r.nearby))
	}

	mb := agent.NewMailbox()
	a := agent.New(cfg, mb, r.bus, opts...)
	agentCtx, cancel := context.WithCancel(context.Background())
	h := &handle{agent: a, mailbox: mb, cancel: cancel}

	r.agents.Store(a.ID(), h)
	r.count.Add(1)

	snap := a.Snapshot()
	r.bus.Publish(bus.LifecycleEvent(a.ID(), bus.LifecycleSpawned, &snap))
	go a.Run(agentCtx)

	r.log.Info("spawned %s (%s, backend %s) as %s", cfg.Name, cfg.Role, provider.Name(), a.ID())
	return a.ID(), nil
}

func (r *Runtime) lookup(id string) (*handle, error) {
	v, ok := r.agents.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return v.(*handle), nil
}

// Terminate removes the agent, asks it to stop, and waits up to the grace
// period. If the agent has not exited by then its context is cancelled and
// Terminate returns without waiting further.
func (r *Runtime) Terminate(ctx context.Context, id string) error {
	v, ok := r.agents.LoadAndDelete(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	r.count.Add(-1)
	h := v.(*handle)

	h.mailbox.Send(agent.Shutdown())
	h.mailbox.Close()

	timer := time.NewTimer(r.grace)
	defer timer.Stop()

	select {
	case <-h.agent.Done():
	case <-timer.C:
		r.log.Warn("agent %s did not stop within %s, cancelling", id, r.grace)
	case <-ctx.Done():
		r.log.Warn("terminate of %s abandoned: %v", id, ctx.Err())
	}
	h.cancel()

	snap := h.agent.Snapshot()
	r.bus.Publish(bus.LifecycleEvent(id, bus.LifecycleTerminated, &snap))
	r.log.Info("terminated %s", id)
	return nil
}

func (r *Runtime) deliver(id string, msg agent.Message) error {
	h, err := r.lookup(id)
	if err != nil {
		return err
	}
	if err := h.mailbox.Send(msg); err != nil {
		// Lost a race with Terminate.
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	return nil
}

// SendMessage delivers text to an agent's mailbox.
func (r *Runtime) SendMessage(id, from, content string) error {
	return r.deliver(id, agent.InboundText(from, content))
}

// AssignTask delivers a task to an agent's mailbox.
func (r *Runtime) AssignTask(id, taskID, taskName string) error {
	return r.deliver(id, agent.TaskAssignment(taskID, taskName))
}

// ListIDs returns the IDs of all registered agents, sorted.
func (r *Runtime) ListIDs() []string {
	var ids []string
	r.agents.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}

// Exists reports whether id is registered.
func (r *Runtime) Exists(id string) bool {
	_, ok := r.agents.Load(id)
	return ok
}

// Count returns the number of registered agents.
func (r *Runtime) Count() int {
	return int(r.count.Load())
}

// Snapshot returns one agent's current state.
func (r *Runtime) Snapshot(id string) (models.AgentSnapshot, error) {
	h, err := r.lookup(id)
	if err != nil {
		return models.AgentSnapshot{}, err
	}
	return h.agent.Snapshot(), nil
}

// Snapshots returns the state of every registered agent, sorted by name then ID.
func (r *Runtime) Snapshots() []models.AgentSnapshot {
	var out []models.AgentSnapshot
	r.agents.Range(func(_, v any) bool {
		out = append(out, v.(*handle).agent.Snapshot())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// nearby lists agents in the same space within the configured radius.
func (r *Runtime) nearby(self models.AgentSnapshot) []string {
	var names []string
	r.agents.Range(func(_, v any) bool {
		other := v.(*handle).agent.Snapshot()
		if other.ID != self.ID && other.SpaceID == self.SpaceID &&
			self.Position.DistanceTo(other.Position) <= r.nearbyRadius {
			names = append(names, other.Name)
		}
		return true
	})
	sort.Strings(names)
	return names
}

// ShutdownAll terminates every registered agent concurrently. Individual
// failures are collected and do not stop the others.
func (r *Runtime) ShutdownAll(ctx context.Context) error {
	ids := r.ListIDs()
	if len(ids) == 0 {
		return nil
	}
	r.log.Info("shutting down %d agents", len(ids))

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = r.Terminate(ctx, id)
		}(i, id)
	}
	wg.Wait()
	return errors.Join(errs...)
}
