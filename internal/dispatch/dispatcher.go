// ABOUTME: Per-user dispatcher: serial FIFO handling per key, concurrent across keys
// ABOUTME: A worker goroutine exists only while its key has queued events
package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/fitai/intake-bot/internal/core"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by Dispatch after Close
var ErrClosed = errors.New("dispatcher closed")

// Handler processes one event
type Handler func(ctx context.Context, ev core.Event) error

// Dispatcher fans events out to one worker per user
type Dispatcher struct {
	ctx     context.Context
	handler Handler
	logger  zerolog.Logger

	mu     sync.Mutex
	queues map[string][]core.Event
	closed bool
	wg     sync.WaitGroup
}

// New creates a dispatcher. ctx is passed to every handler call.
func New(ctx context.Context, handler Handler, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		ctx:     ctx,
		handler: handler,
		logger:  logger.With().Str("component", "dispatch").Logger(),
		queues:  make(map[string][]core.Event),
	}
}

// Dispatch queues ev behind any pending events of the same user
func (d *Dispatcher) Dispatch(ev core.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	key := ev.ExternalUserID
	pending, active := d.queues[key]
	d.queues[key] = append(pending, ev)
	if !active {
		d.wg.Add(1)
		go d.drain(key)
	}
	return nil
}

// Close stops accepting events and waits for queued events to finish
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}

// Pending returns the number of users with queued or in-flight events
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

func (d *Dispatcher) drain(key string) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		pending := d.queues[key]
		if len(pending) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		ev := pending[0]
		d.queues[key] = pending[1:]
		d.mu.Unlock()

		d.handle(ev)
	}
}

func (d *Dispatcher) handle(ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Interface("panic", r).
				Str("external_user_id", ev.ExternalUserID).
				Msg("event handler panicked")
		}
	}()

	if err := d.handler(d.ctx, ev); err != nil {
		d.logger.Warn().Err(err).
			Str("external_user_id", ev.ExternalUserID).
			Msg("event handling failed")
	}
}
