package service

import (
	"context"
	"fmt"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/normalize"
)

func (e *Engine) validateInput(input any) error {
	if err := e.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func notFound(kind model.Kind) error {
	switch kind {
	case model.KindCompany:
		return domain.ErrCompanyNotFound
	case model.KindUser:
		return domain.ErrUserNotFound
	default:
		return domain.ErrAccessCodeNotFound
	}
}

// insert appends rec to memory and the local store, publishes, and creates
// it remotely in the background. check, if set, sees the current collection
// under the lock and can reject the insert.
func (e *Engine) insert(ctx context.Context, kind model.Kind, rec model.Record, check func([]model.Record) error) (model.Record, error) {
	rec = normalize.Normalize(rec, kind)

	e.mu.Lock()
	if check != nil {
		if err := check(e.collections[kind]); err != nil {
			e.mu.Unlock()
			return nil, err
		}
	}
	next := append(model.CloneAll(e.collections[kind]), rec)
	e.commitLocked(ctx, kind, next)
	e.mu.Unlock()

	e.publish(ctx)
	e.remoteCreate(ctx, kind, rec)
	return rec.Clone(), nil
}

func (e *Engine) remoteCreate(ctx context.Context, kind model.Kind, rec model.Record) {
	rec = rec.Clone()
	e.writeBehind(ctx, kind, func(ctx context.Context) {
		if ack := e.remote.Create(ctx, kind, rec); ack != nil {
			e.absorb(ctx, kind, rec.ID(), ack)
		}
	})
}

// patch applies a partial update to the record with id.
func (e *Engine) patch(ctx context.Context, kind model.Kind, id string, changes model.Record) (model.Record, error) {
	changes = normalize.Patch(changes, kind)
	delete(changes, "id")

	e.mu.Lock()
	records := model.CloneAll(e.collections[kind])
	i := indexOf(records, id)
	if i < 0 {
		e.mu.Unlock()
		return nil, notFound(kind)
	}
	for k, v := range changes {
		records[i][k] = v
	}
	records[i] = normalize.Normalize(records[i], kind)
	updated := records[i].Clone()
	e.commitLocked(ctx, kind, records)
	e.mu.Unlock()

	e.publish(ctx)
	e.remoteUpdate(ctx, kind, updated.ID(), changes)
	return updated, nil
}

func (e *Engine) remoteUpdate(ctx context.Context, kind model.Kind, id string, changes model.Record) {
	changes = changes.Clone()
	e.writeBehind(ctx, kind, func(ctx context.Context) {
		if ack := e.remote.Update(ctx, kind, id, changes); ack != nil {
			e.absorb(ctx, kind, id, ack)
		}
	})
}

// remove deletes every record matching one of ids and returns the removed
// records.
func (e *Engine) remove(ctx context.Context, kind model.Kind, ids ...string) []model.Record {
	e.mu.Lock()
	current := e.collections[kind]
	kept := make([]model.Record, 0, len(current))
	var removed []model.Record
	for _, r := range current {
		if matchesAny(r["id"], ids) {
			removed = append(removed, r.Clone())
			continue
		}
		kept = append(kept, r)
	}
	if len(removed) > 0 {
		e.commitLocked(ctx, kind, model.CloneAll(kept))
	}
	e.mu.Unlock()

	if len(removed) == 0 {
		return nil
	}

	e.publish(ctx)
	for _, r := range removed {
		id := r.ID()
		e.writeBehind(ctx, kind, func(ctx context.Context) {
			e.remote.Delete(ctx, kind, id)
		})
	}
	return removed
}

func matchesAny(id any, ids []string) bool {
	for _, candidate := range ids {
		if normalize.IDsEqual(id, candidate) {
			return true
		}
	}
	return false
}
