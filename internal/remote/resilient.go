// internal/remote/resilient.go
package remote

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/dangerclosesec/masteradmin/internal/metrics"
	"github.com/dangerclosesec/masteradmin/internal/model"
)

// Resilient applies the fallback policy on top of a Client:
//   - a failed list returns the local collection
//   - a failed create, update or delete returns nil or false and the
//     operation is applied to the local store instead
//   - a failed or empty lookup is retried against the local store
//
// No method returns an error. With a nil primary every call is served
// locally.
type Resilient struct {
	primary    Client
	local      *LocalClient
	applyLocal bool
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Resilient)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resilient) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resilient) {
		r.metrics = m
	}
}

// WithoutLocalApply disables the local re-application of failed writes.
// Callers that have already persisted the mutation locally use it so that a
// late fallback cannot overwrite newer local state.
func WithoutLocalApply() Option {
	return func(r *Resilient) {
		r.applyLocal = false
	}
}

func NewResilient(primary Client, local *LocalClient, opts ...Option) *Resilient {
	r := &Resilient{
		primary:    primary,
		local:      local,
		applyLocal: true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasRemote reports whether a remote client is configured.
func (r *Resilient) HasRemote() bool {
	return r.primary != nil
}

// Backend names the configured remote, or "local".
func (r *Resilient) Backend() string {
	if r.primary == nil {
		return r.local.Name()
	}
	return r.primary.Name()
}

// Local returns the local client used for fallbacks.
func (r *Resilient) Local() *LocalClient {
	return r.local
}

func (r *Resilient) failed(kind model.Kind, op string, err error) {
	r.logger.Warn("remote operation failed, using local store",
		"kind", kind,
		"op", op,
		"backend", r.primary.Name(),
		"error", err,
	)
	r.metrics.ObserveFallback(string(kind), op)
}

// ListRemote lists the remote collection without falling back. ok is false
// when no remote is configured or the call failed.
func (r *Resilient) ListRemote(ctx context.Context, kind model.Kind) ([]model.Record, bool) {
	if r.primary == nil {
		return nil, false
	}
	op := listOpName(kind)
	records, err := operationsFor(r.primary, kind).list(ctx)
	r.metrics.ObserveRemote(r.primary.Name(), op, err)
	if err != nil {
		r.logger.Warn("remote list failed", "kind", kind, "backend", r.primary.Name(), "error", err)
		return nil, false
	}
	return records, true
}

// List returns the remote collection, or the local one if the remote fails.
func (r *Resilient) List(ctx context.Context, kind model.Kind) []model.Record {
	if records, ok := r.ListRemote(ctx, kind); ok {
		return records
	}
	if r.primary != nil {
		r.metrics.ObserveFallback(string(kind), "list")
	}
	return r.local.list(ctx, kind)
}

// Create returns the created record, or nil when the remote failed.
func (r *Resilient) Create(ctx context.Context, kind model.Kind, rec model.Record) model.Record {
	if r.primary == nil {
		if !r.applyLocal {
			return nil
		}
		return r.local.create(ctx, kind, rec)
	}
	op := opName("create", kind)
	created, err := operationsFor(r.primary, kind).create(ctx, rec)
	r.metrics.ObserveRemote(r.primary.Name(), op, err)
	if err != nil {
		r.failed(kind, op, err)
		if r.applyLocal {
			r.local.create(ctx, kind, rec)
		}
		return nil
	}
	return created
}

// Update returns the updated record, or nil when the remote failed.
func (r *Resilient) Update(ctx context.Context, kind model.Kind, id string, patch model.Record) model.Record {
	if r.primary == nil {
		if !r.applyLocal {
			return nil
		}
		updated, err := r.local.update(ctx, kind, id, patch)
		if err != nil {
			return nil
		}
		return updated
	}
	op := opName("update", kind)
	updated, err := operationsFor(r.primary, kind).update(ctx, id, patch)
	r.metrics.ObserveRemote(r.primary.Name(), op, err)
	if err != nil {
		r.failed(kind, op, err)
		if r.applyLocal {
			if _, lerr := r.local.update(ctx, kind, id, patch); lerr != nil {
				r.logger.Warn("local fallback update missed", "kind", kind, "id", id, "error", lerr)
			}
		}
		return nil
	}
	return updated
}

// Delete reports whether the remote delete succeeded.
func (r *Resilient) Delete(ctx context.Context, kind model.Kind, id string) bool {
	if r.primary == nil {
		if !r.applyLocal {
			return false
		}
		return r.local.delete(ctx, kind, id) == nil
	}
	op := opName("delete", kind)
	err := operationsFor(r.primary, kind).delete(ctx, id)
	r.metrics.ObserveRemote(r.primary.Name(), op, err)
	if err != nil {
		r.failed(kind, op, err)
		if r.applyLocal {
			if lerr := r.local.delete(ctx, kind, id); lerr != nil && !errors.Is(lerr, domain.ErrNotFound) {
				r.logger.Warn("local fallback delete failed", "kind", kind, "id", id, "error", lerr)
			}
		}
		return false
	}
	return true
}

// FindAccessCodeByCode returns the matching active code or nil.
func (r *Resilient) FindAccessCodeByCode(ctx context.Context, code string) model.Record {
	if r.primary != nil {
		found, err := r.primary.FindAccessCodeByCode(ctx, code)
		r.metrics.ObserveRemote(r.primary.Name(), "findAccessCodeByCode", err)
		if err == nil && found != nil {
			return found
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			r.failed(model.KindAccessCode, "findAccessCodeByCode", err)
		}
	}
	found, err := r.local.FindAccessCodeByCode(ctx, code)
	if err != nil {
		return nil
	}
	return found
}

// FindCompanyByName returns the company with the exact name or nil.
func (r *Resilient) FindCompanyByName(ctx context.Context, name string) model.Record {
	if r.primary != nil {
		found, err := r.primary.FindCompanyByName(ctx, name)
		r.metrics.ObserveRemote(r.primary.Name(), "findCompanyByName", err)
		if err == nil && found != nil {
			return found
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			r.failed(model.KindCompany, "findCompanyByName", err)
		}
	}
	found, err := r.local.FindCompanyByName(ctx, name)
	if err != nil {
		return nil
	}
	return found
}

func (r *Resilient) GetUsers(ctx context.Context) []model.Record {
	return r.List(ctx, model.KindUser)
}

func (r *Resilient) CreateUser(ctx context.Context, user model.Record) model.Record {
	return r.Create(ctx, model.KindUser, user)
}

func (r *Resilient) UpdateUser(ctx context.Context, id string, updates model.Record) model.Record {
	return r.Update(ctx, model.KindUser, id, updates)
}

func (r *Resilient) DeleteUser(ctx context.Context, id string) bool {
	return r.Delete(ctx, model.KindUser, id)
}

func (r *Resilient) GetCompanies(ctx context.Context) []model.Record {
	return r.List(ctx, model.KindCompany)
}

func (r *Resilient) CreateCompany(ctx context.Context, company model.Record) model.Record {
	return r.Create(ctx, model.KindCompany, company)
}

func (r *Resilient) UpdateCompany(ctx context.Context, id string, updates model.Record) model.Record {
	return r.Update(ctx, model.KindCompany, id, updates)
}

func (r *Resilient) DeleteCompany(ctx context.Context, id string) bool {
	return r.Delete(ctx, model.KindCompany, id)
}

func (r *Resilient) GetAccessCodes(ctx context.Context) []model.Record {
	return r.List(ctx, model.KindAccessCode)
}

func (r *Resilient) CreateAccessCode(ctx context.Context, code model.Record) model.Record {
	return r.Create(ctx, model.KindAccessCode, code)
}

func (r *Resilient) UpdateAccessCode(ctx context.Context, id string, updates model.Record) model.Record {
	return r.Update(ctx, model.KindAccessCode, id, updates)
}

func (r *Resilient) DeleteAccessCode(ctx context.Context, id string) bool {
	return r.Delete(ctx, model.KindAccessCode, id)
}
