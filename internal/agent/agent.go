// Package agent implements the autonomous agent actor: one goroutine per
// agent that reacts to its mailbox, a decision timer, and the shared bus.
package agent

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/swarmville/internal/bus"
	"github.com/ShayCichocki/swarmville/internal/decision"
	"github.com/ShayCichocki/swarmville/internal/logging"
	"github.com/ShayCichocki/swarmville/internal/memory"
	"github.com/ShayCichocki/swarmville/pkg/models"
)

// DefaultDecisionInterval is how often an idle agent decides what to do.
const DefaultDecisionInterval = 5 * time.Second

// NearbyFunc lists the names of agents near the given agent.
type NearbyFunc func(self models.AgentSnapshot) []string

// Agent is one autonomous actor. All mutable fields are owned by the
// goroutine running Run; other goroutines read them through Snapshot.
type Agent struct {
	id      string
	name    string
	role    string
	backend string
	spaceID string

	state           models.AgentState
	position        models.Position
	currentTask     string
	lastStateChange time.Time

	memory   *memory.Store
	mailbox  *Mailbox
	bus      *bus.Bus
	interval time.Duration
	provider decision.Provider
	nearby   NearbyFunc
	rng      *rand.Rand
	log      *logging.Logger

	observed uint64

	snapshot atomic.Pointer[models.AgentSnapshot]
	started  atomic.Bool
	done     chan struct{}
}

// Option configures an Agent.
type Option func(*Agent)

// WithProvider binds a decision provider. Without one the agent picks a
// random move, wait or speak each cycle.
func WithProvider(p decision.Provider) Option {
	return func(a *Agent) { a.provider = p }
}

// WithDecisionInterval sets the decision cadence used when the config does
// not set one.
func WithDecisionInterval(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Agent) { a.log = l }
}

// WithNearby supplies the nearby-agent lookup used in decision contexts.
func WithNearby(fn NearbyFunc) Option {
	return func(a *Agent) { a.nearby = fn }
}

// WithRand sets the source used for provider-less decisions.
func WithRand(r *rand.Rand) Option {
	return func(a *Agent) { a.rng = r }
}

// WithID sets the agent ID instead of generating one.
func WithID(id string) Option {
	return func(a *Agent) { a.id = id }
}

// WithMemoryLimit sets the conversation capacity.
func WithMemoryLimit(n int) Option {
	return func(a *Agent) { a.memory = memory.New(n) }
}

// New creates an agent in the idle state. It does nothing until Run is called.
func New(cfg models.AgentConfig, mailbox *Mailbox, b *bus.Bus, opts ...Option) *Agent {
	a := &Agent{
		name:            cfg.Name,
		role:            cfg.Role,
		backend:         cfg.Backend,
		spaceID:         cfg.SpaceID,
		state:           models.AgentStateIdle,
		position:        cfg.Position,
		lastStateChange: time.Now(),
		memory:          memory.New(memory.DefaultConversationLimit),
		mailbox:         mailbox,
		bus:             b,
		interval:        DefaultDecisionInterval,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if cfg.DecisionInterval > 0 {
		a.interval = cfg.DecisionInterval
	}
	if a.id == "" {
		a.id = uuid.New().String()
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	a.log = a.log.With("agent").With(a.name)
	a.publishSnapshot()
	return a
}

// ID returns the agent's unique identifier.
func (a *Agent) ID() string {
	return a.id
}

// Name returns the agent's display name.
func (a *Agent) Name() string {
	return a.name
}

// Snapshot returns a copy of the agent's current state. Safe for concurrent use.
func (a *Agent) Snapshot() models.AgentSnapshot {
	return *a.snapshot.Load()
}

// Done is closed once Run has returned.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// Memory returns the agent's memory store. It is owned by the Run goroutine
// and may only be inspected before Run starts or after Done is closed.
func (a *Agent) Memory() *memory.Store {
	return a.memory
}

func (a *Agent) publishSnapshot() {
	a.snapshot.Store(&models.AgentSnapshot{
		ID:              a.id,
		Name:            a.name,
		Role:            a.role,
		Backend:         a.backend,
		SpaceID:         a.spaceID,
		State:           a.state,
		Position:        a.position,
		CurrentTask:     a.currentTask,
		LastStateChange: a.lastStateChange,
	})
}

// Run is the agent loop. It returns on a Shutdown message or when ctx is
// cancelled. Run must be called at most once.
func (a *Agent) Run(ctx context.Context) {
	if !a.started.CompareAndSwap(false, true) {
		a.log.Warn("Run called twice, ignoring")
		return
	}
	defer close(a.done)

	sub := a.bus.Subscribe()
	defer sub.Close()
	events := sub.C()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.log.Info("started %s (%s) as %s", a.name, a.role, a.id)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("context cancelled, stopping after observing %d events", a.observed)
			return

		case <-a.mailbox.Ready():
			msg, ok := a.mailbox.TryReceive()
			if !ok {
				continue
			}
			if msg.Kind == MessageShutdown {
				a.log.Info("shutting down after observing %d events", a.observed)
				return
			}
			a.handleMessage(msg)

		case <-ticker.C:
			a.decide(ctx)

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			a.observe(ev)
		}
	}
}

func (a *Agent) handleMessage(msg Message) {
	switch msg.Kind {
	case MessageInboundText:
		a.memory.RecordConversation(msg.From, msg.Content, a.id)
		if a.state == models.AgentStateIdle {
			a.transitionState(models.AgentStateListening)
		}

	case MessageTaskAssignment:
		a.memory.RecordTask(msg.TaskID, msg.TaskName)
		a.currentTask = msg.TaskID
		a.publishSnapshot()
		a.bus.Publish(bus.TaskAssigned(a.id, msg.TaskID, msg.TaskName))
		a.log.Info("assigned task %s: %s", msg.TaskID, msg.TaskName)
	}
}

// observe receives bus events from other agents. They are counted but not
// acted on yet.
func (a *Agent) observe(ev bus.Event) {
	if ev.AgentID != a.id {
		a.observed++
	}
}

func (a *Agent) decisionContext() decision.Context {
	dc := decision.Context{
		AgentID:      a.id,
		AgentName:    a.name,
		AgentRole:    a.role,
		Position:     a.position,
		CurrentTask:  a.currentTask,
		RecentMemory: a.memory.BuildContextSummary(),
	}
	if a.nearby != nil {
		dc.NearbyAgents = a.nearby(a.Snapshot())
	}
	return dc
}

// decide runs one decision cycle if the agent is idle.
func (a *Agent) decide(ctx context.Context) {
	if a.state != models.AgentStateIdle {
		return
	}
	a.transitionState(models.AgentStateThinking)

	var action decision.Action
	if a.provider != nil {
		act, err := a.provider.MakeDecision(ctx, a.decisionContext())
		if err != nil {
			a.log.Error("decision failed via %s: %v", a.provider.Name(), err)
			a.transitionState(models.AgentStateError)
			a.transitionState(models.AgentStateIdle)
			return
		}
		action = act
	} else {
		action = a.randomAction()
	}

	a.executeAction(action)
	a.transitionState(models.AgentStateIdle)
}

func (a *Agent) randomAction() decision.Action {
	switch a.rng.Intn(3) {
	case 0:
		return decision.Move(a.rng.Intn(100), a.rng.Intn(100), "exploring")
	case 1:
		return decision.Wait("resting")
	default:
		return decision.Speak(a.name+" is thinking...", "broadcast")
	}
}

func (a *Agent) executeAction(action decision.Action) {
	a.log.Debug("executing %s", action)

	switch action.Kind {
	case decision.ActionMove:
		a.position = models.Position{X: action.X, Y: action.Y}
		a.publishSnapshot()
		a.memory.RecordConversation("system",
			fmt.Sprintf("Moved to (%d, %d) - %s", action.X, action.Y, action.Reason), "")
		a.bus.Publish(bus.Moved(a.id, a.position))

	case decision.ActionWait:
		a.memory.RecordConversation("system", "Waiting - "+action.Reason, "")

	case decision.ActionSpeak:
		a.transitionState(models.AgentStateSpeaking)
		a.memory.RecordConversation(a.id, action.Content, action.Recipient)
		a.bus.Publish(bus.Spoke(a.id, action.Content, action.Recipient))

	case decision.ActionCompleteTask:
		a.memory.SetTaskStatus(action.TaskID, models.TaskStatusCompleted)
		a.currentTask = ""
		a.publishSnapshot()
		a.bus.Publish(bus.TaskCompleted(a.id, action.TaskID, action.Result))
		a.log.Info("completed task %s: %s", action.TaskID, action.Result)

	default:
		a.log.Warn("ignoring unknown action %q", action.Kind)
	}
}

// transitionState is the only place the agent's state changes. Illegal
// transitions are logged and dropped.
func (a *Agent) transitionState(to models.AgentState) bool {
	from := a.state
	if !CanTransition(from, to) {
		a.log.Warn("invalid state transition: %s -> %s", from, to)
		return false
	}

	a.state = to
	a.lastStateChange = time.Now()
	a.publishSnapshot()
	a.bus.Publish(bus.StateChanged(a.id, from, to))
	a.log.Debug("transitioned: %s -> %s", from, to)
	return true
}
