// Package remote talks to the remote data source. Two interchangeable
// clients exist, one over database tables and one over a single webhook
// endpoint, plus a local client over the local store. Resilient wraps any
// of them with the local fallback policy.
package remote

import (
	"context"

	"github.com/dangerclosesec/masteradmin/internal/model"
)

// Client is the remote operation surface. Implementations return errors;
// Resilient turns them into local fallbacks.
//
// List results carry the fields the remote actually holds. A field the remote
// does not send is left out rather than defaulted, so a merge can tell an
// omitted field from a cleared one.
type Client interface {
	Name() string

	GetUsers(ctx context.Context) ([]model.Record, error)
	CreateUser(ctx context.Context, user model.Record) (model.Record, error)
	UpdateUser(ctx context.Context, id string, updates model.Record) (model.Record, error)
	DeleteUser(ctx context.Context, id string) error

	GetCompanies(ctx context.Context) ([]model.Record, error)
	CreateCompany(ctx context.Context, company model.Record) (model.Record, error)
	FindCompanyByName(ctx context.Context, name string) (model.Record, error)
	UpdateCompany(ctx context.Context, id string, updates model.Record) (model.Record, error)
	DeleteCompany(ctx context.Context, id string) error

	GetAccessCodes(ctx context.Context) ([]model.Record, error)
	CreateAccessCode(ctx context.Context, code model.Record) (model.Record, error)
	UpdateAccessCode(ctx context.Context, id string, updates model.Record) (model.Record, error)
	DeleteAccessCode(ctx context.Context, id string) error
	FindAccessCodeByCode(ctx context.Context, code string) (model.Record, error)
}

// operations binds the per-kind methods of a Client so callers can work on a
// kind generically.
type operations struct {
	list   func(ctx context.Context) ([]model.Record, error)
	create func(ctx context.Context, r model.Record) (model.Record, error)
	update func(ctx context.Context, id string, patch model.Record) (model.Record, error)
	delete func(ctx context.Context, id string) error
}

func operationsFor(c Client, kind model.Kind) operations {
	switch kind {
	case model.KindUser:
		return operations{c.GetUsers, c.CreateUser, c.UpdateUser, c.DeleteUser}
	case model.KindCompany:
		return operations{c.GetCompanies, c.CreateCompany, c.UpdateCompany, c.DeleteCompany}
	default:
		return operations{c.GetAccessCodes, c.CreateAccessCode, c.UpdateAccessCode, c.DeleteAccessCode}
	}
}

// idPrefix is the prefix of locally assigned ids.
func idPrefix(kind model.Kind) string {
	switch kind {
	case model.KindUser:
		return "user"
	case model.KindCompany:
		return "company"
	default:
		return "code"
	}
}

func opName(verb string, kind model.Kind) string {
	switch kind {
	case model.KindUser:
		return verb + "User"
	case model.KindCompany:
		return verb + "Company"
	default:
		return verb + "AccessCode"
	}
}

func listOpName(kind model.Kind) string {
	switch kind {
	case model.KindUser:
		return "getUsers"
	case model.KindCompany:
		return "getCompanies"
	default:
		return "getAccessCodes"
	}
}
