package state

import (
	"context"

	"github.com/ShayCichocki/swarmville/internal/bus"
	"github.com/ShayCichocki/swarmville/internal/logging"
	"github.com/ShayCichocki/swarmville/pkg/models"
)

// Recorder persists bus events. Write failures are logged and skipped; the
// recorder never blocks publishers and never stops on a bad event.
type Recorder struct {
	store  Store
	sub    *bus.Subscription
	log    *logging.Logger
	lagged uint64
}

// NewRecorder subscribes to b immediately so no event published after this
// call is missed.
func NewRecorder(store Store, b *bus.Bus, log *logging.Logger) *Recorder {
	return &Recorder{store: store, sub: b.Subscribe(), log: log.With("recorder")}
}

// Run consumes events until ctx is cancelled or the subscription closes.
// The subscription is released on return.
func (r *Recorder) Run(ctx context.Context) {
	defer r.sub.Close()
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return
		case ev, ok := <-r.sub.C():
			if !ok {
				return
			}
			r.Record(ev)
		}
	}
}

// drain records whatever is already buffered.
func (r *Recorder) drain() {
	for {
		select {
		case ev, ok := <-r.sub.C():
			if !ok {
				return
			}
			r.Record(ev)
		default:
			return
		}
	}
}

// Record writes one event to the store.
func (r *Recorder) Record(ev bus.Event) {
	if n := r.sub.Lagged(); n > r.lagged {
		r.log.Warn("dropped %d events", n-r.lagged)
		r.lagged = n
	}

	var err error
	switch ev.Type {
	case bus.EventBroadcast:
		err = r.recordBroadcast(ev)
	case bus.EventAgentSpoke:
		err = r.store.SaveConversation(ev.AgentID, models.ConversationEntry{
			Timestamp: ev.Timestamp,
			Sender:    ev.AgentID,
			Content:   ev.Content,
			Recipient: ev.Recipient,
		})
	case bus.EventAgentMoved:
		if ev.Position != nil {
			err = r.store.UpdateAgentPosition(ev.AgentID, *ev.Position, ev.Timestamp)
		}
	case bus.EventTaskAssigned:
		err = r.store.SaveTask(ev.AgentID, models.TaskEntry{
			TaskID:    ev.TaskID,
			TaskName:  ev.TaskName,
			Status:    models.TaskStatusAssigned,
			CreatedAt: ev.Timestamp,
		})
		if err == nil {
			err = r.store.UpdateAgentTask(ev.AgentID, ev.TaskID, ev.Timestamp)
		}
	case bus.EventTaskCompleted:
		err = r.store.CompleteTask(ev.AgentID, ev.TaskID, ev.Result, ev.Timestamp)
		if err == nil {
			err = r.store.UpdateAgentTask(ev.AgentID, "", ev.Timestamp)
		}
	case bus.EventStateChanged:
		err = r.store.SaveStateChange(ev.AgentID, ev.OldState, ev.NewState, ev.Timestamp)
	}
	if err != nil {
		r.log.Warn("record %s for %s: %v", ev.Type, ev.AgentID, err)
	}
}

func (r *Recorder) recordBroadcast(ev bus.Event) error {
	lc, ok := ev.Lifecycle()
	if !ok {
		return nil
	}
	switch lc.Kind {
	case bus.LifecycleSpawned:
		if lc.Agent != nil {
			return r.store.UpsertAgent(*lc.Agent)
		}
	case bus.LifecycleTerminated:
		return r.store.MarkAgentTerminated(ev.AgentID, ev.Timestamp)
	}
	return nil
}
