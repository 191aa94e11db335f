// Package poll drives periodic check callbacks against one emulator client
// from a single background goroutine.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
	"github.com/louisbranch/pokeachieve/internal/platform/timeouts"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/retroarch"
)

// DefaultFailureThreshold is the run of unanswered commands treated as a
// lost connection.
const DefaultFailureThreshold = 3

// ErrJoinTimeout is returned by Stop when the loop did not exit in time.
var ErrJoinTimeout = errors.New("poll loop did not stop before join timeout")

// ErrStillStopping is returned by Start while a stopped loop has not exited.
var ErrStillStopping = errors.New("previous poll loop is still running")

// Callback runs once per tick with the shared client.
type Callback func(ctx context.Context, client *retroarch.Client) error

// FailureKind classifies a recorded failure.
type FailureKind string

const (
	FailureCallbackError        FailureKind = "callback_error"
	FailureCallbackPanic        FailureKind = "callback_panic"
	FailureConnectivityLost     FailureKind = "connectivity_lost"
	FailureConnectivityRestored FailureKind = "connectivity_restored"
)

// Failure is one isolated callback failure or connectivity transition.
type Failure struct {
	Source string
	Kind   FailureKind
	Detail string
	At     time.Time
}

// FailureRecorder receives failures. Implementations must not block for
// long; they run on the scheduler goroutine.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, failure Failure)
}

// ConnectivityObserver is told when the client crosses the failure
// threshold in either direction.
type ConnectivityObserver interface {
	ConnectivityChanged(ctx context.Context, connected bool)
}

// Config configures a Scheduler.
type Config struct {
	Interval         time.Duration
	JoinTimeout      time.Duration
	FailureThreshold int
	Recorder         FailureRecorder
	Observer         ConnectivityObserver
}

type namedCallback struct {
	name string
	fn   Callback
}

// Scheduler invokes registered callbacks in registration order on every
// tick. Cadence is best effort: a slow callback delays the rest of its tick
// and the start of the next.
type Scheduler struct {
	client *retroarch.Client
	cfg    Config
	tracer trace.Tracer
	now    func() time.Time

	mu        sync.Mutex
	callbacks []namedCallback
	cancel    context.CancelFunc
	stop      chan struct{}
	done      chan struct{}

	ticks atomic.Int64
	// owned by the loop goroutine
	connected bool
}

// New returns a stopped scheduler bound to client.
func New(client *retroarch.Client, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = timeouts.PollInterval
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = timeouts.Join
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	return &Scheduler{
		client:    client,
		cfg:       cfg,
		tracer:    otel.Tracer("github.com/louisbranch/pokeachieve/internal/services/tracker/poll"),
		now:       time.Now,
		connected: true,
	}
}

// Register appends a named callback. Callbacks registered while running
// take effect on the next tick.
func (s *Scheduler) Register(name string, fn Callback) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("callback name is required")
	}
	if fn == nil {
		return fmt.Errorf("callback %s is nil", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cb := range s.callbacks {
		if cb.name == name {
			return fmt.Errorf("callback %s already registered", name)
		}
	}
	s.callbacks = append(s.callbacks, namedCallback{name: name, fn: fn})
	return nil
}

// Running reports whether a loop goroutine is alive, including one that was
// told to stop but has not exited yet.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aliveLocked()
}

// aliveLocked reports whether the last loop is still running and forgets it
// once it has exited.
func (s *Scheduler) aliveLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		s.done = nil
		return false
	default:
		return true
	}
}

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

// Start launches the loop. interval overrides the configured interval when
// positive. Starting a running scheduler does nothing; starting while a
// stopped loop is still inside a callback returns ErrStillStopping.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if interval <= 0 {
		interval = s.cfg.Interval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aliveLocked() {
		if s.stop == nil {
			return ErrStillStopping
		}
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ctx, interval, s.stop, s.done)
	log.Printf("poll scheduler started, interval %s", interval)
	return nil
}

// Stop signals the loop and waits up to the join timeout for it to exit.
// After ErrJoinTimeout the loop still counts as running until it returns;
// calling Stop again waits for it once more. Stopping a stopped scheduler
// does nothing.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	stop, done, cancel := s.stop, s.done, s.cancel
	s.stop, s.cancel = nil, nil
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	if stop != nil {
		close(stop)
		cancel()
	}

	timer := time.NewTimer(s.cfg.JoinTimeout)
	defer timer.Stop()
	select {
	case <-done:
		s.mu.Lock()
		if s.done == done {
			s.done = nil
		}
		s.mu.Unlock()
		log.Printf("poll scheduler stopped")
		return nil
	case <-timer.C:
		return ErrJoinTimeout
	}
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.tick(ctx, stop)
		timer.Reset(interval)
	}
}

// RunOnce runs a single tick on the calling goroutine. It must not be used
// while the loop is running.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.tick(ctx, nil)
}

func (s *Scheduler) tick(ctx context.Context, stop <-chan struct{}) {
	s.mu.Lock()
	callbacks := append([]namedCallback(nil), s.callbacks...)
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "poll.tick", trace.WithAttributes(
		attribute.Int("poll.callbacks", len(callbacks)),
	))
	defer span.End()

	for _, cb := range callbacks {
		if stopped(stop) || ctx.Err() != nil {
			return
		}
		s.run(ctx, cb)
	}
	s.ticks.Add(1)
	s.observeConnectivity(ctx)
}

func stopped(stop <-chan struct{}) bool {
	if stop == nil {
		return false
	}
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

// run isolates one callback: a returned error or a panic is recorded and
// the tick continues.
func (s *Scheduler) run(ctx context.Context, cb namedCallback) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("poll callback %s panicked: %v\n%s", cb.name, r, debug.Stack())
			s.record(ctx, Failure{Source: cb.name, Kind: FailureCallbackPanic, Detail: fmt.Sprint(r)})
		}
	}()
	if err := cb.fn(ctx, s.client); err != nil {
		if ctx.Err() != nil {
			return
		}
		detail := err.Error()
		if code := apperrors.CodeOf(err); code.Recoverable() {
			detail = fmt.Sprintf("%s: %s", code, detail)
		}
		log.Printf("poll callback %s: %s", cb.name, detail)
		s.record(ctx, Failure{Source: cb.name, Kind: FailureCallbackError, Detail: detail})
	}
}

func (s *Scheduler) observeConnectivity(ctx context.Context) {
	if s.client == nil {
		return
	}
	failures := s.client.ConsecutiveFailures()
	connected := failures < s.cfg.FailureThreshold
	if connected == s.connected {
		return
	}
	s.connected = connected
	failure := Failure{Source: s.client.Addr(), Kind: FailureConnectivityRestored, Detail: "emulator answering again"}
	if !connected {
		failure.Kind = FailureConnectivityLost
		failure.Detail = fmt.Sprintf("%d consecutive commands unanswered", failures)
	}
	log.Printf("retroarch %s: %s", failure.Kind, failure.Detail)
	s.record(ctx, failure)
	if s.cfg.Observer != nil {
		s.cfg.Observer.ConnectivityChanged(ctx, connected)
	}
}

func (s *Scheduler) record(ctx context.Context, failure Failure) {
	if s.cfg.Recorder == nil {
		return
	}
	if failure.At.IsZero() {
		failure.At = s.now().UTC()
	}
	s.cfg.Recorder.RecordFailure(ctx, failure)
}
