// Package app wires the tracker runtime: it owns the emulator client, the
// poll scheduler, the per-title engine and the optional health and journal
// side channels.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	platformgrpc "github.com/louisbranch/pokeachieve/internal/platform/grpc"
	"github.com/louisbranch/pokeachieve/internal/platform/timeouts"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/catalog"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/engine"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/poll"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/registry"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/retroarch"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/storage"
	journalsqlite "github.com/louisbranch/pokeachieve/internal/services/tracker/storage/sqlite"
)

// HealthService is the gRPC health service name reporting emulator reach.
const HealthService = "tracker.retroarch"

// Callback names registered with the scheduler.
const (
	callbackTitle        = "title"
	callbackAchievements = "achievements"
)

// RuntimeConfig configures the tracker runtime. Zero values select defaults;
// empty HealthAddr and JournalPath disable those side channels.
type RuntimeConfig struct {
	Client           retroarch.Config
	PollInterval     time.Duration
	JoinTimeout      time.Duration
	FailureThreshold int
	ReconnectTimeout time.Duration

	HealthAddr       string
	JournalPath      string
	JournalRetention time.Duration

	Registry *registry.Registry
	Provider catalog.DefinitionProvider
	Sink     Sink
	Journal  storage.FailureStore
}

// Runtime is a configured tracker.
type Runtime struct {
	cfg       RuntimeConfig
	client    *retroarch.Client
	scheduler *poll.Scheduler
	registry  *registry.Registry
	provider  catalog.DefinitionProvider
	sink      Sink
	journal   storage.FailureStore
	health    *platformgrpc.HealthReporter

	// owned by the poll goroutine
	reportedTitle string
	engine        *engine.Engine
	stalled       bool

	current    atomic.Pointer[engine.Engine]
	healthAddr atomic.Pointer[string]
	forwarders sync.WaitGroup
}

// New builds a runtime without touching the network.
func New(cfg RuntimeConfig) *Runtime {
	if cfg.Registry == nil {
		cfg.Registry = registry.Default()
	}
	if cfg.Provider == nil {
		cfg.Provider = catalog.NewProvider(cfg.Registry)
	}
	if cfg.Sink == nil {
		cfg.Sink = LogSink{}
	}
	if cfg.ReconnectTimeout <= 0 {
		cfg.ReconnectTimeout = timeouts.Reconnect
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = poll.DefaultFailureThreshold
	}
	r := &Runtime{
		cfg:      cfg,
		client:   retroarch.NewClient(cfg.Client),
		registry: cfg.Registry,
		provider: cfg.Provider,
		sink:     cfg.Sink,
		journal:  cfg.Journal,
	}
	return r
}

// Run starts the runtime and blocks until ctx is done.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	return New(cfg).Run(ctx)
}

// Run connects, starts polling and blocks until ctx is done, then shuts
// everything down.
func (r *Runtime) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if r.journal == nil && r.cfg.JournalPath != "" {
		store, err := journalsqlite.Open(ctx, r.cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open failure journal: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("close failure journal: %v", err)
			}
		}()
		r.journal = store
	}
	r.pruneJournal(ctx)

	if err := r.client.Connect(); err != nil {
		return fmt.Errorf("connect retroarch: %w", err)
	}
	defer r.client.Disconnect()

	if r.cfg.HealthAddr != "" {
		reporter, err := platformgrpc.ListenHealth(r.cfg.HealthAddr, HealthService)
		if err != nil {
			return fmt.Errorf("start health server: %w", err)
		}
		reporter.SetServing(HealthService, true)
		reporter.Start()
		r.health = reporter
		defer reporter.Stop()
		addr := reporter.Addr().String()
		r.healthAddr.Store(&addr)
		log.Printf("health server listening on %s", addr)
	}

	pollCfg := poll.Config{
		Interval:         r.cfg.PollInterval,
		JoinTimeout:      r.cfg.JoinTimeout,
		FailureThreshold: r.cfg.FailureThreshold,
		Observer:         r,
	}
	if r.journal != nil {
		pollCfg.Recorder = journalRecorder{store: r.journal}
	}
	r.scheduler = poll.New(r.client, pollCfg)
	if err := r.scheduler.Register(callbackTitle, r.watchTitle); err != nil {
		return err
	}
	if err := r.scheduler.Register(callbackAchievements, r.checkAchievements); err != nil {
		return err
	}

	log.Printf("tracking retroarch at %s", r.client.Addr())
	if err := r.scheduler.Start(ctx, r.cfg.PollInterval); err != nil {
		return fmt.Errorf("start poll scheduler: %w", err)
	}
	<-ctx.Done()

	if err := r.scheduler.Stop(); err != nil {
		log.Printf("stop poll scheduler: %v (running: %t)", err, r.scheduler.Running())
		return nil
	}
	log.Printf("poll scheduler ran %d ticks", r.scheduler.Ticks())
	// the loop has exited, so this goroutine now owns the engine
	r.retire()
	r.forwarders.Wait()
	return nil
}

// Client returns the shared emulator client.
func (r *Runtime) Client() *retroarch.Client {
	return r.client
}

// HealthAddr returns the bound health server address once it is listening.
func (r *Runtime) HealthAddr() (string, bool) {
	addr := r.healthAddr.Load()
	if addr == nil {
		return "", false
	}
	return *addr, true
}

// Snapshot returns the progress of the active engine, if any.
func (r *Runtime) Snapshot() (engine.Snapshot, bool) {
	e := r.current.Load()
	if e == nil {
		return engine.Snapshot{}, false
	}
	return e.Snapshot(), true
}

func (r *Runtime) pruneJournal(ctx context.Context) {
	if r.journal == nil || r.cfg.JournalRetention <= 0 {
		return
	}
	n, err := r.journal.PruneFailures(ctx, time.Now().Add(-r.cfg.JournalRetention))
	if err != nil {
		log.Printf("prune failure journal: %v", err)
		return
	}
	if n > 0 {
		log.Printf("pruned %d failure journal records", n)
	}
}
