// Package engine evaluates a title's achievement definitions against live
// memory and owns their unlock state for one session.
//
// An Engine is driven from the poll goroutine only. Other goroutines observe
// it through Snapshot and the Unlocks channel.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/condition"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/derived"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/memcache"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/registry"
)

// Config builds an Engine.
type Config struct {
	Title       string
	Definitions []Definition
	Reader      memcache.ByteReader
	// Layout enables derived checks; nil leaves them unavailable.
	Layout    *registry.MemoryConfig
	CacheSize int
	Now       func() time.Time
}

// Snapshot is an immutable copy of engine state published after each pass.
type Snapshot struct {
	SessionID string
	Title     string
	Progress  []Progress
	Unlocked  int
	Total     int
	Passes    int64
	At        time.Time
}

// Engine evaluates one title's definitions for one session.
type Engine struct {
	title     string
	sessionID string
	defs      []compiled
	cache     *memcache.Cache
	checker   *derived.Checker
	now       func() time.Time
	tracer    trace.Tracer

	progress []Progress
	unlocked map[string]struct{}
	index    map[string]int
	passes   int64

	events   chan UnlockEvent
	closed   bool
	snapshot atomic.Pointer[Snapshot]
}

// New compiles the definitions and starts a session. Definitions whose
// condition or tag is malformed are logged here once and stay locked for
// the session.
func New(cfg Config) (*Engine, error) {
	if cfg.Reader == nil {
		return nil, fmt.Errorf("memory reader is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	cache, err := memcache.New(cfg.Reader, cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		title:     cfg.Title,
		sessionID: uuid.NewString(),
		cache:     cache,
		now:       now,
		tracer:    otel.Tracer("github.com/louisbranch/pokeachieve/internal/services/tracker/engine"),
		unlocked:  make(map[string]struct{}),
		index:     make(map[string]int, len(cfg.Definitions)),
		events:    make(chan UnlockEvent, len(cfg.Definitions)),
	}
	if cfg.Layout != nil {
		e.checker = derived.NewChecker(cache, *cfg.Layout)
	}

	for _, def := range cfg.Definitions {
		id := strings.TrimSpace(def.ID)
		if id == "" {
			return nil, apperrors.New(apperrors.CodeConfig, "achievement id is required")
		}
		if _, dup := e.index[id]; dup {
			return nil, apperrors.New(apperrors.CodeConfig, fmt.Sprintf("duplicate achievement id %s", id))
		}
		def.ID = id
		c, err := compile(def)
		if err != nil {
			log.Printf("achievement %s disabled: %v", id, err)
		}
		if c.kind == evaluateDerived && e.checker == nil {
			log.Printf("achievement %s disabled: no memory layout for %q", id, cfg.Title)
			c.kind = evaluateNone
		}
		e.index[id] = len(e.defs)
		e.defs = append(e.defs, c)
		e.progress = append(e.progress, Progress{ID: id, Target: c.target})
	}
	e.publish()
	return e, nil
}

// SessionID identifies this engine instance.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Title returns the title the engine was built for.
func (e *Engine) Title() string {
	return e.title
}

// Unlocks delivers unlock events. The buffer holds one event per
// definition, so the engine never blocks on a slow consumer.
func (e *Engine) Unlocks() <-chan UnlockEvent {
	return e.events
}

// Close ends the session and closes the Unlocks channel. Buffered events
// remain readable. It must be called from the goroutine driving CheckAll.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	close(e.events)
}

// Snapshot returns the state published by the last pass.
func (e *Engine) Snapshot() Snapshot {
	s := e.snapshot.Load()
	if s == nil {
		return Snapshot{}
	}
	out := *s
	out.Progress = append([]Progress(nil), s.Progress...)
	return out
}

// Unlocked reports whether id was unlocked as of the last pass.
func (e *Engine) Unlocked(id string) bool {
	s := e.snapshot.Load()
	if s == nil {
		return false
	}
	for _, p := range s.Progress {
		if p.ID == id {
			return p.Unlocked
		}
	}
	return false
}

// UnlockedCount returns the number of unlocked achievements as of the last
// pass.
func (e *Engine) UnlockedCount() int {
	s := e.snapshot.Load()
	if s == nil {
		return 0
	}
	return s.Unlocked
}

// CheckAll evaluates every locked achievement in definition order and
// returns the events for the ones that unlocked in this pass. A failed read
// leaves its achievement locked and the pass continues.
func (e *Engine) CheckAll(ctx context.Context) []UnlockEvent {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.closed {
		return nil
	}
	ctx, span := e.tracer.Start(ctx, "engine.check_all", trace.WithAttributes(
		attribute.String("tracker.title", e.title),
		attribute.String("tracker.session_id", e.sessionID),
	))
	defer span.End()

	e.cache.Purge()
	var unlocked []UnlockEvent
	for i := range e.defs {
		if ctx.Err() != nil {
			break
		}
		c := &e.defs[i]
		if _, done := e.unlocked[c.def.ID]; done {
			continue
		}
		met, current := e.evaluate(ctx, c)
		e.progress[i].Current = current
		if !met {
			continue
		}
		event := e.unlock(i)
		unlocked = append(unlocked, event)
	}
	e.passes++
	e.publish()

	hits, misses := e.cache.Stats()
	span.SetAttributes(
		attribute.Int("tracker.unlocked_this_pass", len(unlocked)),
		attribute.Int("tracker.unlocked_total", len(e.unlocked)),
		attribute.Int("tracker.cache_hits", hits),
		attribute.Int("tracker.cache_misses", misses),
	)
	return unlocked
}

func (e *Engine) evaluate(ctx context.Context, c *compiled) (bool, int) {
	switch c.kind {
	case evaluateMemory:
		value, ok := e.cache.ReadByte(ctx, c.address)
		if !ok {
			return false, 0
		}
		if condition.Evaluate(int64(value), c.cond) {
			return true, c.target
		}
		return false, 0
	case evaluateDerived:
		result := e.checker.Evaluate(ctx, c.check, c.def.TargetValue)
		return result.Met, result.Current
	default:
		return false, 0
	}
}

func (e *Engine) unlock(i int) UnlockEvent {
	def := e.defs[i].def
	e.unlocked[def.ID] = struct{}{}
	e.progress[i].Unlocked = true
	if e.progress[i].Current < e.progress[i].Target {
		e.progress[i].Current = e.progress[i].Target
	}
	event := UnlockEvent{
		AchievementID: def.ID,
		Name:          def.Name,
		Points:        def.Points,
		SessionID:     e.sessionID,
		UnlockedAt:    e.now().UTC(),
	}
	// capacity equals the number of definitions and each id sends once
	e.events <- event
	log.Printf("achievement unlocked: %s (%s)", def.Name, def.ID)
	return event
}

func (e *Engine) publish() {
	s := &Snapshot{
		SessionID: e.sessionID,
		Title:     e.title,
		Progress:  append([]Progress(nil), e.progress...),
		Unlocked:  len(e.unlocked),
		Total:     len(e.defs),
		Passes:    e.passes,
		At:        e.now().UTC(),
	}
	e.snapshot.Store(s)
}
