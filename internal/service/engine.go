// internal/service/engine.go
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/events"
	"github.com/dangerclosesec/masteradmin/internal/localstore"
	"github.com/dangerclosesec/masteradmin/internal/metrics"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/normalize"
	"github.com/dangerclosesec/masteradmin/internal/notify"
	"github.com/dangerclosesec/masteradmin/internal/remote"
	"github.com/go-playground/validator/v10"
)

// State is the synchronization state of one entity kind.
type State int

const (
	// Clean means memory matches the last persisted merge.
	Clean State = iota
	// DirtyLocal means a local mutation is waiting on its remote write.
	DirtyLocal
	// Reconciling means a merge pass is running.
	Reconciling
)

func (s State) String() string {
	switch s {
	case DirtyLocal:
		return "dirty-local"
	case Reconciling:
		return "reconciling"
	default:
		return "clean"
	}
}

type kindState struct {
	pending     int
	reconciling bool
}

// EventSink receives lifecycle events. *notify.Dispatcher implements it.
type EventSink interface {
	Dispatch(e notify.Event)
}

type nopSink struct{}

func (nopSink) Dispatch(notify.Event) {}

// Engine owns the in-memory collections. Every mutation goes through it:
// memory and the local store are updated synchronously, the remote write
// runs in the background.
type Engine struct {
	mu          sync.Mutex
	publishMu   sync.Mutex
	collections map[model.Kind][]model.Record
	states      map[model.Kind]*kindState

	store     *localstore.Store
	remote    *remote.Resilient
	publisher *events.Publisher
	sink      EventSink
	metrics   *metrics.Metrics
	logger    *slog.Logger
	validate  *validator.Validate

	pollInterval     time.Duration
	reconcileTimeout time.Duration

	writes      sync.WaitGroup
	startOnce   sync.Once
	stopOnce    sync.Once
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithEventSink(sink EventSink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithPollInterval sets how often the local store is checked for drift when
// it cannot push change notifications.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithReconcileTimeout bounds a full merge pass started by Bootstrap or
// Reconcile. Background remote writes it triggers are not bounded by it.
func WithReconcileTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.reconcileTimeout = d
		}
	}
}

// NewEngine creates an engine over store. primary may be nil, in which case
// the engine runs local-only.
func NewEngine(store *localstore.Store, primary remote.Client, publisher *events.Publisher, opts ...Option) *Engine {
	e := &Engine{
		collections:      make(map[model.Kind][]model.Record, len(model.Kinds)),
		states:           make(map[model.Kind]*kindState, len(model.Kinds)),
		store:            store,
		publisher:        publisher,
		sink:             nopSink{},
		logger:           slog.Default(),
		validate:         validator.New(),
		pollInterval:     time.Second,
		reconcileTimeout: 5 * time.Minute,
		stopChan:         make(chan struct{}),
		stoppedChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.publisher == nil {
		e.publisher = events.NewPublisher(e.logger)
	}
	for _, kind := range model.Kinds {
		e.collections[kind] = []model.Record{}
		e.states[kind] = &kindState{}
	}

	// The engine persists every mutation locally before the remote call, so
	// the remote layer must not re-apply failed writes on its own.
	e.remote = remote.NewResilient(primary, remote.NewLocalClient(store),
		remote.WithLogger(e.logger),
		remote.WithMetrics(e.metrics),
		remote.WithoutLocalApply(),
	)
	return e
}

// Publisher returns the change publisher snapshots are sent to.
func (e *Engine) Publisher() *events.Publisher {
	return e.publisher
}

// Backend names the configured remote store.
func (e *Engine) Backend() string {
	return e.remote.Backend()
}

// State reports the synchronization state of kind.
func (e *Engine) State(kind model.Kind) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked(kind)
}

// States reports the synchronization state of every kind by name.
func (e *Engine) States() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(model.Kinds))
	for _, kind := range model.Kinds {
		out[string(kind)] = e.stateLocked(kind).String()
	}
	return out
}

func (e *Engine) stateLocked(kind model.Kind) State {
	st := e.states[kind]
	switch {
	case st == nil:
		return Clean
	case st.reconciling:
		return Reconciling
	case st.pending > 0:
		return DirtyLocal
	}
	return Clean
}

func (e *Engine) setReconciling(kind model.Kind, on bool) {
	e.mu.Lock()
	e.states[kind].reconciling = on
	e.mu.Unlock()
}

// Wait blocks until every background remote write has finished.
func (e *Engine) Wait() {
	e.writes.Wait()
}

// commitLocked normalizes records, makes them the in-memory collection of
// kind and persists them. Callers hold e.mu.
func (e *Engine) commitLocked(ctx context.Context, kind model.Kind, records []model.Record) {
	records = normalize.NormalizeAll(records, kind)
	e.collections[kind] = records
	e.store.SaveCollection(ctx, kind, records)
}

// writeBehind runs fn against the remote store in the background. kind stays
// DirtyLocal until fn returns. Nothing runs in local-only mode.
func (e *Engine) writeBehind(ctx context.Context, kind model.Kind, fn func(ctx context.Context)) {
	if !e.remote.HasRemote() {
		return
	}

	e.mu.Lock()
	e.states[kind].pending++
	e.mu.Unlock()

	e.metrics.RemoteWriteStarted()
	e.writes.Add(1)
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer e.writes.Done()
		defer e.metrics.RemoteWriteFinished()
		defer func() {
			e.mu.Lock()
			e.states[kind].pending--
			e.mu.Unlock()
		}()
		fn(ctx)
	}()
}

// Snapshot returns a copy of the current state, including the aggregates
// kept next to the collections.
func (e *Engine) Snapshot(ctx context.Context) events.Snapshot {
	e.mu.Lock()
	snap := events.Snapshot{
		Companies:   model.CloneAll(e.collections[model.KindCompany]),
		Users:       model.CloneAll(e.collections[model.KindUser]),
		AccessCodes: model.CloneAll(e.collections[model.KindAccessCode]),
	}
	e.mu.Unlock()

	snap.Organizations = map[string][]any{}
	e.store.LoadJSON(ctx, localstore.KeyOrganizations, &snap.Organizations)
	snap.Categories = loadList(ctx, e.store, localstore.KeyCategories)
	snap.Roles = loadList(ctx, e.store, localstore.KeyRoles)
	snap.DisciplinaryActions = loadList(ctx, e.store, localstore.KeyDisciplinaryActions)
	snap.Timestamp = time.Now().UTC()
	return snap
}

func loadList(ctx context.Context, store *localstore.Store, key string) []any {
	out := []any{}
	store.LoadJSON(ctx, key, &out)
	return out
}

// publish persists the analytics aggregate and broadcasts a snapshot.
// Publishes are serialized so listeners never see an older snapshot after a
// newer one. Listeners must not call back into engine mutations.
func (e *Engine) publish(ctx context.Context) {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	snap := e.Snapshot(ctx)

	stats := computeAnalytics(snap)
	e.store.SaveJSON(ctx, localstore.KeyAnalytics, stats)

	e.publisher.Publish(snap)
	e.metrics.ObservePublish(map[string]int{
		string(model.KindCompany):    len(snap.Companies),
		string(model.KindUser):       len(snap.Users),
		string(model.KindAccessCode): len(snap.AccessCodes),
	})
}

func (e *Engine) emit(t notify.EventType, rec model.Record) {
	e.sink.Dispatch(notify.NewEvent(t, rec))
}
