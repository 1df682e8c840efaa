// Package notify delivers lifecycle events (code created, company launched,
// user deleted) to side channels outside the synchronized stores.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/metrics"
	"github.com/dangerclosesec/masteradmin/internal/model"
)

// EventType discriminates lifecycle events on the wire.
type EventType string

const (
	EventAccessCode        EventType = "accesscode"
	EventAccessCodeDeleted EventType = "accesscodedeleted"
	EventCompanyLaunched   EventType = "companylaunched"
	EventUserDeleted       EventType = "userdeleted"
)

// Deleted reports whether the event marks a removal.
func (t EventType) Deleted() bool {
	switch t {
	case EventAccessCodeDeleted, EventUserDeleted:
		return true
	}
	return false
}

type Event struct {
	Type       EventType
	Record     model.Record
	OccurredAt time.Time

	// Extra carries values that are not part of the record, such as the
	// generated admin password of a launched company.
	Extra map[string]any
}

func NewEvent(t EventType, rec model.Record) Event {
	return Event{Type: t, Record: rec.Clone(), OccurredAt: time.Now().UTC()}
}

// Payload flattens the event into {type, ...record, deleted_at}.
func (e Event) Payload() map[string]any {
	out := make(map[string]any, len(e.Record)+2)
	for k, v := range e.Record {
		out[k] = v
	}
	out["type"] = string(e.Type)
	if e.Type.Deleted() {
		out["deleted_at"] = e.OccurredAt.Format(time.RFC3339)
	}
	return out
}

// Notifier is a lifecycle event sink.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, e Event) error
}

// Dispatcher sends events without blocking the caller. Failures are logged
// and counted, never returned.
type Dispatcher struct {
	sinks   []Notifier
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	done    chan struct{}
	queue   chan Event

	mu     sync.RWMutex
	closed bool
}

const dispatchQueueSize = 64

func NewDispatcher(logger *slog.Logger, m *metrics.Metrics, timeout time.Duration, sinks ...Notifier) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger,
		metrics: m,
		done:    make(chan struct{}),
		queue:   make(chan Event, dispatchQueueSize),
	}
	go d.run()
	return d
}

// Dispatch queues e. When the queue is full, or the dispatcher is closed,
// the event is dropped.
func (d *Dispatcher) Dispatch(e Event) {
	if d == nil || len(d.sinks) == 0 {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("notification dispatcher closed, dropping event", "type", e.Type)
		return
	}
	select {
	case d.queue <- e:
	default:
		d.logger.Warn("notification queue full, dropping event", "type", e.Type)
	}
}

// Close drains queued events and stops the worker. It is safe to call more
// than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		for _, sink := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			err := sink.Notify(ctx, e)
			cancel()

			d.metrics.ObserveNotification(sink.Name(), err)
			if err != nil {
				d.logger.Warn("notification failed",
					"sink", sink.Name(),
					"type", e.Type,
					"error", err,
				)
			}
		}
	}
}
