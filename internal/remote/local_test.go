package remote

import (
	"context"
	"testing"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/dangerclosesec/masteradmin/internal/localstore"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)
	return store
}

func TestMatchAccessCode(t *testing.T) {
	codes := []model.Record{
		{"id": "1", "code": "ABC123", "status": "active"},
		{"id": "2", "code": "legacyMixed", "status": "active"},
		{"id": "3", "code": "OLD", "status": "suspended"},
		{"id": "4", "code": "NOSTATUS"},
	}

	tests := []struct {
		term   string
		expect string
	}{
		{"abc123", "1"},
		{"ABC123", "1"},
		{" abc123 ", "1"},
		{"legacyMixed", "2"},
		{"LEGACYMIXED", "2"},
		{"legacymixed", "2"},
		{"old", ""},
		{"nostatus", "4"},
		{"", ""},
		{"missing", ""},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := MatchAccessCode(codes, tt.term)
			if tt.expect == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.expect, got.ID())
		})
	}
}

func TestMatchAccessCodePrefersExactMatch(t *testing.T) {
	codes := []model.Record{
		{"id": "upper", "code": "MIXED"},
		{"id": "mixed", "code": "Mixed"},
	}

	assert.Equal(t, "mixed", MatchAccessCode(codes, "Mixed").ID())
	assert.Equal(t, "upper", MatchAccessCode(codes, "mixed").ID())
}

func TestLocalClientCreateUpsertsByID(t *testing.T) {
	ctx := context.Background()
	c := NewLocalClient(newTestStore(t))

	created, err := c.CreateAccessCode(ctx, model.Record{"code": "LAUNCH"})
	require.NoError(t, err)
	assert.Contains(t, created.ID(), "code-")

	again := created.Clone()
	again["description"] = "second write"
	_, err = c.CreateAccessCode(ctx, again)
	require.NoError(t, err)

	codes, err := c.GetAccessCodes(ctx)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "second write", codes[0].String("description"))
}

func TestLocalClientToleratesNumericIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	store.SaveCollection(ctx, model.KindUser, []model.Record{
		{"id": 5, "username": "five"},
		{"id": "u2", "username": "two"},
	})
	c := NewLocalClient(store)

	updated, err := c.UpdateUser(ctx, "5", model.Record{"role": "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, "admin", updated.String("role"))

	require.NoError(t, c.DeleteUser(ctx, "5"))

	users, err := c.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID())

	assert.ErrorIs(t, c.DeleteUser(ctx, "5"), domain.ErrUserNotFound)
	assert.ErrorIs(t, c.DeleteUser(ctx, "5"), domain.ErrNotFound)
}

func TestLocalClientUpdatePatchesBothSpellings(t *testing.T) {
	ctx := context.Background()
	c := NewLocalClient(newTestStore(t))

	company, err := c.CreateCompany(ctx, model.Record{"name": "Acme", "adminPassword": "old"})
	require.NoError(t, err)

	updated, err := c.UpdateCompany(ctx, company.ID(), model.Record{"admin_password": "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.String("adminPassword"))
	assert.Equal(t, "new", updated.String("admin_password"))

	found, err := c.FindCompanyByName(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "new", found.String("adminPassword"))

	_, err = c.FindCompanyByName(ctx, "acme")
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)

	_, err = c.UpdateCompany(ctx, "missing", model.Record{"status": "suspended"})
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)
}
