package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ShayCichocki/swarmville/internal/config"
	"github.com/ShayCichocki/swarmville/internal/logging"
	"github.com/ShayCichocki/swarmville/internal/relay"
	"github.com/ShayCichocki/swarmville/internal/state"
	"github.com/ShayCichocki/swarmville/internal/swarm"
	"github.com/ShayCichocki/swarmville/internal/tui"
)

// shutdownTimeout bounds ShutdownAll and the relay drain on exit.
const shutdownTimeout = 15 * time.Second

// session owns everything a run command starts and tears down.
type session struct {
	cfg *config.Config
	log *logging.Logger
	rt  *swarm.Runtime

	db           *state.DB
	recorderEnd  context.CancelFunc
	recorderDone chan struct{}
	relay        *relay.Server
}

// loadConfig honours --config and --log-level.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return nil, err
		}
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// watchedConfigPath is the file hot reload follows: --config, then the
// project file, then the user file if present.
func watchedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if p := config.GetProjectConfigPath(); p != "" {
		return p
	}
	if p := config.GetUserConfigPath(); fileExists(p) {
		return p
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// startSession builds the runtime and its optional recorder and relay.
// The console log is muted when the dashboard owns the terminal.
func startSession(ctx context.Context, withTUI bool) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	log, err := logging.New(logging.Options{
		Path:    cfg.Logging.Path,
		Level:   level,
		Console: cfg.Logging.Console && !withTUI,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	rt := swarm.New(
		swarm.WithBusCapacity(cfg.Runtime.BusCapacity),
		swarm.WithProviderFactory(swarm.DecisionFactory(cfg.DecisionOptions(log))),
		swarm.WithDecisionInterval(cfg.Runtime.DecisionInterval),
		swarm.WithShutdownGrace(cfg.Runtime.ShutdownGrace),
		swarm.WithNearbyRadius(cfg.Runtime.NearbyRadius),
		swarm.WithLogger(log),
	)
	s := &session{cfg: cfg, log: log, rt: rt}

	if cfg.Storage.Enabled {
		if err := s.startRecorder(ctx); err != nil {
			s.close()
			return nil, err
		}
	}

	if cfg.Relay.Enabled {
		s.relay = relay.New(rt, rt.Bus(), relay.Options{Addr: cfg.Relay.Addr, Logger: log})
		if err := s.relay.Start(); err != nil {
			s.close()
			return nil, err
		}
		log.Info("relay listening on %s", s.relay.Addr())
	}

	s.watchConfig()
	return s, nil
}

func (s *session) startRecorder(ctx context.Context) error {
	db, err := state.Open(s.cfg.Storage.Driver, s.cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("migrate storage: %w", err)
	}
	s.db = db

	rec := state.NewRecorder(db, s.rt.Bus(), s.log)
	recCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.recorderEnd = cancel
	s.recorderDone = make(chan struct{})
	go func() {
		defer close(s.recorderDone)
		rec.Run(recCtx)
	}()
	s.log.Info("recording to %s (%s)", db.Path(), db.Driver())
	return nil
}

// watchConfig applies decision_interval and logging.level changes live.
func (s *session) watchConfig() {
	path := watchedConfigPath()
	if path == "" {
		return
	}
	err := config.Watch(path, func(cfg *config.Config, err error) {
		if err != nil {
			s.log.Warn("config reload failed: %v", err)
			return
		}
		s.rt.SetDecisionInterval(cfg.Runtime.DecisionInterval)
		if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
			s.log.SetLevel(level)
		}
		s.log.Info("config reloaded from %s", path)
	})
	if err != nil {
		s.log.Warn("config watch disabled: %v", err)
	}
}

// wait blocks until ctx ends, the duration elapses, or the dashboard quits.
func (s *session) wait(ctx context.Context, d time.Duration, withTUI bool) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	if withTUI {
		return tui.Run(ctx, s.rt, s.rt.Bus(), tui.DefaultRefresh)
	}
	<-ctx.Done()
	return nil
}

// close stops agents first so their final events reach the recorder.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.rt.ShutdownAll(ctx); err != nil {
		s.log.Warn("shutdown: %v", err)
	}
	if s.relay != nil {
		if err := s.relay.Shutdown(ctx); err != nil {
			s.log.Warn("relay shutdown: %v", err)
		}
	}
	if s.recorderEnd != nil {
		s.recorderEnd()
		<-s.recorderDone
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("close storage: %v", err)
		}
	}
	s.log.Close()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// ignoreCancel treats a cancelled run as a clean exit.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
