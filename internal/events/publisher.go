// Package events broadcasts snapshots of the synchronized model to
// in-process listeners.
package events

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/model"
)

// Snapshot is the full state handed to listeners. Listeners share one
// snapshot per publish and must not modify it.
type Snapshot struct {
	Companies           []model.Record   `json:"companies"`
	Users               []model.Record   `json:"users"`
	AccessCodes         []model.Record   `json:"accessCodes"`
	Organizations       map[string][]any `json:"organizations"`
	Categories          []any            `json:"categories"`
	Roles               []any            `json:"roles"`
	DisciplinaryActions []any            `json:"disciplinaryActions"`
	Timestamp           time.Time        `json:"timestamp"`
}

// Listener receives every published snapshot.
type Listener func(Snapshot)

type subscription struct {
	id       uint64
	listener Listener
}

// Publisher fans snapshots out to listeners in registration order.
type Publisher struct {
	mu     sync.Mutex
	subs   []subscription
	nextID uint64
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{logger: logger}
}

// Subscribe registers l and returns a function that removes it again.
func (p *Publisher) Subscribe(l Listener) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	p.subs = append(p.subs, subscription{id: id, listener: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			for i, s := range p.subs {
				if s.id == id {
					p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish calls every listener synchronously. A panicking listener is logged
// and does not stop delivery to the rest.
func (p *Publisher) Publish(s Snapshot) {
	p.mu.Lock()
	subs := append([]subscription(nil), p.subs...)
	p.mu.Unlock()

	for _, sub := range subs {
		p.deliver(sub, s)
	}
}

// Len returns the number of registered listeners.
func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *Publisher) deliver(sub subscription, s Snapshot) {
	defer func() {
		if rvr := recover(); rvr != nil {
			p.logger.Error("snapshot listener panicked",
				"listener", sub.id,
				"panic", rvr,
				"stack", string(debug.Stack()),
			)
		}
	}()
	sub.listener(s)
}
