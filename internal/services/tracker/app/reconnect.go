package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/louisbranch/pokeachieve/internal/services/tracker/retroarch"
)

var errNoStatus = errors.New("emulator did not answer status")

// ConnectivityChanged implements poll.ConnectivityObserver. It runs on the
// poll goroutine.
func (r *Runtime) ConnectivityChanged(ctx context.Context, connected bool) {
	r.health.SetServing(HealthService, connected)
	if connected {
		log.Printf("retroarch reachable at %s", r.client.Addr())
		return
	}
	if err := r.reconnect(ctx); err != nil {
		log.Printf("reconnect retroarch: %v", err)
	}
}

// reconnect rebinds the socket and waits for a status reply, backing off
// exponentially up to the reconnect timeout. The next tick reports the
// restored state. A socket that cannot be reopened stops the retries;
// watchTitle tries again on every later tick.
func (r *Runtime) reconnect(ctx context.Context) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		r.client.Disconnect()
		if err := r.client.Connect(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if status := r.client.GetStatus(ctx); status.State == retroarch.StateDisconnected {
			return struct{}{}, errNoStatus
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(r.cfg.ReconnectTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Printf("reconnect attempt %d failed: %v; retrying in %s", attempt, err, next)
		}),
	)
	if err != nil {
		return err
	}
	log.Printf("reconnected to retroarch after %d attempts", attempt)
	return nil
}
