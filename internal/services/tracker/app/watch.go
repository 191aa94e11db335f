package app

import (
	"context"
	"fmt"
	"log"

	apperrors "github.com/louisbranch/pokeachieve/internal/platform/errors"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/engine"
	"github.com/louisbranch/pokeachieve/internal/services/tracker/retroarch"
)

// watchTitle follows the loaded content. A new title retires the current
// engine and starts a fresh session; unloading content retires it without
// a replacement. An unanswered status leaves everything as it is. A closed
// socket is reopened first, so a failed reconnect is retried every tick.
func (r *Runtime) watchTitle(ctx context.Context, client *retroarch.Client) error {
	if !client.Connected() {
		if err := client.Connect(); err != nil {
			return fmt.Errorf("reopen retroarch socket: %w", err)
		}
		log.Printf("retroarch socket reopened")
	}
	status := client.GetStatus(ctx)
	if status.State == retroarch.StateDisconnected {
		return nil
	}
	if !status.HasContent() {
		if r.reportedTitle != "" {
			log.Printf("content unloaded (%s)", status.State)
			r.retire()
			r.reportedTitle = ""
		}
		return nil
	}
	if status.Title == r.reportedTitle {
		return nil
	}
	return r.switchTitle(ctx, status)
}

func (r *Runtime) switchTitle(ctx context.Context, status retroarch.Status) error {
	r.retire()
	reported := status.Title
	r.reportedTitle = reported

	key, layout, ok := r.registry.Resolve(reported, status.Platform)
	if !ok {
		log.Printf("no memory layout for %q on %q; achievements unavailable", reported, status.Platform)
		return nil
	}
	defs, err := r.provider.Definitions(key)
	if apperrors.HasCode(err, apperrors.CodeConfig) {
		log.Printf("no achievements for %s: %v", key, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load definitions for %s: %w", key, err)
	}
	e, err := engine.New(engine.Config{
		Title:       key,
		Definitions: defs,
		Reader:      gatedReader{client: r.client, threshold: r.cfg.FailureThreshold},
		Layout:      &layout,
	})
	if err != nil {
		return fmt.Errorf("build engine for %s: %w", key, err)
	}
	r.engine = e
	r.current.Store(e)
	r.forward(ctx, e)
	log.Printf("tracking %s as %s: %d achievements, session %s", reported, key, len(defs), e.SessionID())
	return nil
}

// retire closes the active engine. Its forwarder drains the buffered events
// and exits.
func (r *Runtime) retire() {
	if r.engine == nil {
		return
	}
	r.engine.Close()
	r.engine = nil
	r.current.Store(nil)
}

func (r *Runtime) forward(ctx context.Context, e *engine.Engine) {
	sinkCtx := context.WithoutCancel(ctx)
	r.forwarders.Add(1)
	go func() {
		defer r.forwarders.Done()
		for event := range e.Unlocks() {
			r.sink.Unlocked(sinkCtx, event)
		}
	}()
}

// checkAchievements runs one engine pass. Passes are skipped while the
// emulator is unreachable so that every read does not wait out its timeout.
func (r *Runtime) checkAchievements(ctx context.Context, client *retroarch.Client) error {
	if r.engine == nil {
		return nil
	}
	if client.ConsecutiveFailures() >= r.cfg.FailureThreshold {
		if !r.stalled {
			log.Printf("emulator unreachable; pausing achievement checks")
			r.stalled = true
		}
		return nil
	}
	r.stalled = false
	r.engine.CheckAll(ctx)
	return nil
}

// gatedReader fails reads without a round trip once the emulator has stopped
// answering, so a pass that loses the emulator midway ends quickly.
type gatedReader struct {
	client    *retroarch.Client
	threshold int
}

func (g gatedReader) ReadByte(ctx context.Context, address uint32) (byte, bool) {
	if g.client.ConsecutiveFailures() >= g.threshold {
		return 0, false
	}
	return g.client.ReadByte(ctx, address)
}
