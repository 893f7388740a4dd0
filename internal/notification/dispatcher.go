// Package notification runs booking notifications on a small worker pool
// so that request handlers never wait on the broker.
package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/table-reservation/internal/lib/logger/sl"
	"github.com/iliyamo/table-reservation/internal/queue"
)

// Publisher delivers one event to the outside world.
type Publisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Dispatcher manages a pool of workers that publish booking events.
type Dispatcher struct {
	size    int
	jobs    chan queue.BookingEvent
	pub     Publisher
	timeout time.Duration
	log     *slog.Logger
}

// NewDispatcher creates a dispatcher with size workers and a queue of
// depth pending events.  Each publish gets at most timeout.
func NewDispatcher(size, depth int, timeout time.Duration, pub Publisher, log *slog.Logger) *Dispatcher {
	if size < 1 {
		size = 1
	}
	if depth < 1 {
		depth = size
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		size:    size,
		jobs:    make(chan queue.BookingEvent, depth),
		pub:     pub,
		timeout: timeout,
		log:     log.With(slog.String("op", "notification.Dispatcher")),
	}
}

// Start launches the worker goroutines.  They exit when ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.size; i++ {
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	d.log.Debug("worker started", slog.Int("worker", id))
	for {
		select {
		case ev := <-d.jobs:
			d.publish(ctx, ev)
		case <-ctx.Done():
			d.log.Debug("worker shutting down", slog.Int("worker", id))
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, ev queue.BookingEvent) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.pub.Publish(ctx, ev); err != nil {
		d.log.Warn("notification not delivered",
			slog.String("queue", ev.Queue()),
			slog.Uint64("booking_id", ev.BookingID),
			sl.Err(err),
		)
	}
}

// Dispatch queues an event without blocking.  When the queue is full the
// event is dropped and false is returned.
func (d *Dispatcher) Dispatch(ev queue.BookingEvent) bool {
	select {
	case d.jobs <- ev:
		return true
	default:
		d.log.Warn("notification queue full, dropping event",
			slog.String("queue", ev.Queue()),
			slog.Uint64("booking_id", ev.BookingID),
		)
		return false
	}
}
