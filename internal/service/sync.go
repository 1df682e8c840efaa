// internal/service/sync.go
package service

import (
	"context"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/localstore"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/normalize"
)

// Reconcile triggers.
const (
	TriggerBootstrap = "bootstrap"
	TriggerManual    = "manual"
	TriggerPoll      = "poll"
	TriggerWatch     = "watch"
)

// Bootstrap loads the local store, merges it with the remote collections
// and publishes the result. It is meant to run once at startup.
func (e *Engine) Bootstrap(ctx context.Context) error {
	return e.reconcile(ctx, TriggerBootstrap)
}

// Reconcile runs a full merge pass against the remote store on demand.
func (e *Engine) Reconcile(ctx context.Context) error {
	return e.reconcile(ctx, TriggerManual)
}

func (e *Engine) reconcile(ctx context.Context, trigger string) error {
	ctx, cancel := context.WithTimeout(ctx, e.reconcileTimeout)
	defer cancel()

	e.logger.Info("starting reconciliation", "trigger", trigger, "backend", e.remote.Backend())

	for _, kind := range model.Kinds {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.reconcileKind(ctx, kind, trigger)
	}

	e.publish(ctx)
	e.logger.Info("completed reconciliation", "trigger", trigger)
	return nil
}

func (e *Engine) reconcileKind(ctx context.Context, kind model.Kind, trigger string) {
	started := time.Now()
	e.setReconciling(kind, true)
	defer e.setReconciling(kind, false)
	defer e.metrics.ObserveReconcile(string(kind), trigger, started)

	// A failed list leaves remoteRecords empty, so the merge degrades to the
	// local collection.
	// Merge sees the raw remote records so that fields the remote omits are
	// told apart from fields it cleared.
	rawRemote, reachable := e.remote.ListRemote(ctx, kind)
	remoteRecords := normalize.NormalizeAll(rawRemote, kind)

	e.mu.Lock()
	local := Merge(kind, e.collections[kind], e.store.LoadCollection(ctx, kind))
	merged := Merge(kind, local, rawRemote)
	e.commitLocked(ctx, kind, merged)
	e.mu.Unlock()

	e.logger.Info("merged collection",
		"kind", kind,
		"local", len(local),
		"remote", len(remoteRecords),
		"merged", len(merged),
		"remote_reachable", reachable,
	)

	if reachable {
		e.writeBack(ctx, kind, merged, remoteRecords)
	}
}

// writeBack pushes records the remote is missing, and sequence unions the
// remote does not hold yet.
func (e *Engine) writeBack(ctx context.Context, kind model.Kind, merged, remoteRecords []model.Record) {
	remoteByKey := make(map[string]model.Record, len(remoteRecords))
	for _, r := range remoteRecords {
		if key := normalize.NaturalKey(kind, r); key != "" {
			remoteByKey[key] = r
		}
	}

	for _, rec := range merged {
		r, ok := remoteByKey[normalize.NaturalKey(kind, rec)]
		if !ok {
			e.writeBehind(ctx, kind, func(ctx context.Context) {
				if ack := e.remote.Create(ctx, kind, rec); ack != nil {
					e.absorb(ctx, kind, rec.ID(), ack)
				}
			})
			continue
		}
		if patch := sequencePatch(kind, rec, r); patch != nil {
			id := r.ID()
			e.writeBehind(ctx, kind, func(ctx context.Context) {
				e.remote.Update(ctx, kind, id, patch)
			})
		}
	}
}

// absorb folds a remote acknowledgement into the record that had id
// locally and republishes when anything changed.
func (e *Engine) absorb(ctx context.Context, kind model.Kind, id string, ack model.Record) {
	e.mu.Lock()
	records := e.collections[kind]
	i := indexOf(records, id)
	if i < 0 {
		e.mu.Unlock()
		return
	}
	updated := absorbAck(kind, records[i], ack)
	if model.EqualCollections([]model.Record{records[i]}, []model.Record{updated}) {
		e.mu.Unlock()
		return
	}
	next := model.CloneAll(records)
	next[i] = updated
	e.commitLocked(ctx, kind, next)
	e.mu.Unlock()

	e.publish(ctx)
}

// Start runs the drift loop until Stop is called or ctx ends. When the local
// store can push change notifications they drive the loop; otherwise the
// store is polled every poll interval.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)

		changed := make(chan string, 16)
		watching, err := e.store.Watch(ctx, func(key string) {
			select {
			case changed <- key:
			default:
			}
		})
		if err != nil {
			e.logger.Warn("local store watch failed, polling instead", "error", err)
		}

		go func() {
			defer close(e.stoppedChan)
			defer cancel()

			var tick <-chan time.Time
			if !watching {
				ticker := time.NewTicker(e.pollInterval)
				defer ticker.Stop()
				tick = ticker.C
			}
			e.logger.Info("sync loop started", "watching", watching, "poll_interval", e.pollInterval)

			for {
				select {
				case <-tick:
					e.checkDrift(ctx, TriggerPoll, model.Kinds...)
				case key := <-changed:
					if kind, ok := localstore.KindForKey(key); ok {
						e.checkDrift(ctx, TriggerWatch, kind)
					}
				case <-e.stopChan:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	})
}

// Stop halts the drift loop. In-flight remote writes are not waited for; use
// Wait for that.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
	e.startOnce.Do(func() {
		close(e.stoppedChan)
	})
	<-e.stoppedChan
}

// checkDrift compares the stored collections with memory. On a difference
// the stored fields win, records only held in memory survive, and a
// snapshot is published.
func (e *Engine) checkDrift(ctx context.Context, trigger string, kinds ...model.Kind) {
	drifted := false
	for _, kind := range kinds {
		if e.absorbDrift(ctx, kind, trigger) {
			drifted = true
		}
	}
	if drifted {
		e.publish(ctx)
	}
}

func (e *Engine) absorbDrift(ctx context.Context, kind model.Kind, trigger string) bool {
	stored := e.store.LoadCollection(ctx, kind)

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.collections[kind]
	if model.EqualCollections(stored, current) {
		return false
	}

	started := time.Now()
	e.states[kind].reconciling = true
	defer func() { e.states[kind].reconciling = false }()

	merged := Merge(kind, current, stored)
	e.collections[kind] = merged
	if !model.EqualCollections(merged, stored) {
		e.store.SaveCollection(ctx, kind, merged)
	}

	e.metrics.ObserveReconcile(string(kind), trigger, started)
	e.logger.Info("local store drift absorbed",
		"kind", kind,
		"trigger", trigger,
		"stored", len(stored),
		"memory", len(current),
		"merged", len(merged),
	)
	return true
}
