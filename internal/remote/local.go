package remote

import (
	"context"
	"strings"
	"sync"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/dangerclosesec/masteradmin/internal/localstore"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/normalize"
	"github.com/google/uuid"
)

// LocalClient serves the remote operation surface from the local store. It
// backs local-only mode and is the fallback of Resilient.
type LocalClient struct {
	store *localstore.Store
	mu    sync.Mutex
}

func NewLocalClient(store *localstore.Store) *LocalClient {
	return &LocalClient{store: store}
}

func (c *LocalClient) Name() string {
	return "local"
}

// NewID returns a fresh id for a record of kind.
func NewID(kind model.Kind) string {
	return idPrefix(kind) + "-" + uuid.NewString()
}

func notFound(kind model.Kind) error {
	switch kind {
	case model.KindUser:
		return domain.ErrUserNotFound
	case model.KindCompany:
		return domain.ErrCompanyNotFound
	default:
		return domain.ErrAccessCodeNotFound
	}
}

func (c *LocalClient) list(ctx context.Context, kind model.Kind) []model.Record {
	return c.store.LoadCollection(ctx, kind)
}

// create upserts by id, so applying the same create twice leaves one record.
func (c *LocalClient) create(ctx context.Context, kind model.Kind, r model.Record) model.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := normalize.Normalize(r.Clone(), kind)
	if rec.ID() == "" {
		rec["id"] = NewID(kind)
	}

	records := c.store.LoadCollection(ctx, kind)
	replaced := false
	for i, existing := range records {
		if normalize.IDsEqual(existing["id"], rec["id"]) {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	c.store.SaveCollection(ctx, kind, records)
	return rec.Clone()
}

func (c *LocalClient) update(ctx context.Context, kind model.Kind, id string, patch model.Record) (model.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := c.store.LoadCollection(ctx, kind)
	for i, existing := range records {
		if !normalize.IDsEqual(existing["id"], id) {
			continue
		}
		merged := existing.Clone()
		for k, v := range normalize.Patch(patch, kind) {
			if k == "id" {
				continue
			}
			merged[k] = v
		}
		records[i] = normalize.Normalize(merged, kind)
		c.store.SaveCollection(ctx, kind, records)
		return records[i].Clone(), nil
	}
	return nil, notFound(kind)
}

func (c *LocalClient) delete(ctx context.Context, kind model.Kind, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := c.store.LoadCollection(ctx, kind)
	kept := records[:0]
	for _, existing := range records {
		if !normalize.IDsEqual(existing["id"], id) {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(records) {
		return notFound(kind)
	}
	c.store.SaveCollection(ctx, kind, kept)
	return nil
}

func (c *LocalClient) GetUsers(ctx context.Context) ([]model.Record, error) {
	return c.list(ctx, model.KindUser), nil
}

func (c *LocalClient) CreateUser(ctx context.Context, user model.Record) (model.Record, error) {
	return c.create(ctx, model.KindUser, user), nil
}

func (c *LocalClient) UpdateUser(ctx context.Context, id string, updates model.Record) (model.Record, error) {
	return c.update(ctx, model.KindUser, id, updates)
}

func (c *LocalClient) DeleteUser(ctx context.Context, id string) error {
	return c.delete(ctx, model.KindUser, id)
}

func (c *LocalClient) GetCompanies(ctx context.Context) ([]model.Record, error) {
	return c.list(ctx, model.KindCompany), nil
}

func (c *LocalClient) CreateCompany(ctx context.Context, company model.Record) (model.Record, error) {
	return c.create(ctx, model.KindCompany, company), nil
}

func (c *LocalClient) FindCompanyByName(ctx context.Context, name string) (model.Record, error) {
	for _, r := range c.list(ctx, model.KindCompany) {
		if r.String("name") == name {
			return r, nil
		}
	}
	return nil, domain.ErrCompanyNotFound
}

func (c *LocalClient) UpdateCompany(ctx context.Context, id string, updates model.Record) (model.Record, error) {
	return c.update(ctx, model.KindCompany, id, updates)
}

func (c *LocalClient) DeleteCompany(ctx context.Context, id string) error {
	return c.delete(ctx, model.KindCompany, id)
}

func (c *LocalClient) GetAccessCodes(ctx context.Context) ([]model.Record, error) {
	return c.list(ctx, model.KindAccessCode), nil
}

func (c *LocalClient) CreateAccessCode(ctx context.Context, code model.Record) (model.Record, error) {
	return c.create(ctx, model.KindAccessCode, code), nil
}

func (c *LocalClient) UpdateAccessCode(ctx context.Context, id string, updates model.Record) (model.Record, error) {
	return c.update(ctx, model.KindAccessCode, id, updates)
}

func (c *LocalClient) DeleteAccessCode(ctx context.Context, id string) error {
	return c.delete(ctx, model.KindAccessCode, id)
}

func (c *LocalClient) FindAccessCodeByCode(ctx context.Context, code string) (model.Record, error) {
	if r := MatchAccessCode(c.list(ctx, model.KindAccessCode), code); r != nil {
		return r, nil
	}
	return nil, domain.ErrAccessCodeNotFound
}

// MatchAccessCode finds an active code. The term is matched exactly first,
// then exactly in uppercase, then case-insensitively, so legacy mixed-case
// codes stay reachable.
func MatchAccessCode(records []model.Record, term string) model.Record {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	upper := strings.ToUpper(term)

	active := make([]model.Record, 0, len(records))
	for _, r := range records {
		status := r.String("status")
		if status == "" || status == model.StatusActive {
			active = append(active, r)
		}
	}

	matchers := []func(code string) bool{
		func(code string) bool { return code == term },
		func(code string) bool { return code == upper },
		func(code string) bool { return strings.ToUpper(code) == upper },
	}
	for _, match := range matchers {
		for _, r := range active {
			if match(strings.TrimSpace(r.String("code"))) {
				return r.Clone()
			}
		}
	}
	return nil
}
