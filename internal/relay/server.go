// Package relay exposes agent snapshots over HTTP and streams bus events
// to websocket clients.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ShayCichocki/swarmville/internal/bus"
	"github.com/ShayCichocki/swarmville/internal/logging"
	"github.com/ShayCichocki/swarmville/pkg/models"
)

// DefaultAddr is used when Options.Addr is empty.
const DefaultAddr = "127.0.0.1:8765"

// Registry is the runtime surface the relay reads from and forwards to.
type Registry interface {
	Snapshot(id string) (models.AgentSnapshot, error)
	Snapshots() []models.AgentSnapshot
	SendMessage(id, from, content string) error
	AssignTask(id, taskID, taskName string) error
}

// Options configures the relay.
type Options struct {
	Addr   string
	Logger *logging.Logger
	// WriteTimeout bounds each websocket frame write.
	WriteTimeout time.Duration
}

// Server hosts the HTTP API and the websocket event stream.
type Server struct {
	registry     Registry
	bus          *bus.Bus
	log          *logging.Logger
	writeTimeout time.Duration
	httpServer   *http.Server

	// stop ends every open event stream on Shutdown.
	stop        context.Context
	stopStreams context.CancelFunc
	streams     sync.WaitGroup

	mu      sync.Mutex
	addr    string
	closing bool
}

// New constructs a relay server. It does not listen until Start.
func New(registry Registry, b *bus.Bus, opts Options) *Server {
	addr := opts.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	wt := opts.WriteTimeout
	if wt <= 0 {
		wt = 15 * time.Second
	}

	srv := &Server{
		registry:     registry,
		bus:          b,
		log:          opts.Logger.With("relay"),
		writeTimeout: wt,
		addr:         addr,
	}
	srv.stop, srv.stopStreams = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	srv.setupRoutes(mux)

	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           corsMiddleware(srv.logMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return srv.stop },
	}
	return srv
}

func (srv *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	mux.HandleFunc("GET /agents", srv.handleListAgents)
	mux.HandleFunc("GET /agents/{id}", srv.handleGetAgent)
	mux.HandleFunc("POST /agents/{id}/messages", srv.handleSendMessage)
	mux.HandleFunc("POST /agents/{id}/tasks", srv.handleAssignTask)
	mux.HandleFunc("GET /ws", srv.handleEvents)
}

// Handler returns the root handler, for tests and embedding.
func (srv *Server) Handler() http.Handler {
	return srv.httpServer.Handler
}

// Start listens and serves in a background goroutine and returns immediately.
func (srv *Server) Start() error {
	ln, err := net.Listen("tcp", srv.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("relay listen: %w", err)
	}

	srv.mu.Lock()
	srv.addr = ln.Addr().String()
	srv.mu.Unlock()

	go func() {
		if err := srv.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("server stopped: %v", err)
		}
	}()
	srv.log.Info("listening on %s", srv.Addr())
	return nil
}

// Shutdown stops accepting requests, closes every open event stream with
// StatusGoingAway, and waits for the stream handlers to release their bus
// subscriptions or for ctx to expire.
func (srv *Server) Shutdown(ctx context.Context) error {
	srv.mu.Lock()
	srv.closing = true
	srv.mu.Unlock()
	srv.stopStreams()

	err := srv.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		srv.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = fmt.Errorf("relay shutdown: event streams still open: %w", ctx.Err())
		}
	}
	return err
}

// trackStream registers an event stream. It reports false once Shutdown
// has begun.
func (srv *Server) trackStream() bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.closing {
		return false
	}
	srv.streams.Add(1)
	return true
}

// Addr returns the bound address once started, or the configured one.
func (srv *Server) Addr() string {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.addr
}
