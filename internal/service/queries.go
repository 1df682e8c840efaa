package service

import (
	"context"
	"strings"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/dangerclosesec/masteradmin/internal/events"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/remote"
)

func (e *Engine) list(kind model.Kind) []model.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.CloneAll(e.collections[kind])
}

func (e *Engine) Companies() []model.Record {
	return e.list(model.KindCompany)
}

func (e *Engine) Users() []model.Record {
	return e.list(model.KindUser)
}

func (e *Engine) AccessCodes() []model.Record {
	return e.list(model.KindAccessCode)
}

// ActiveAccessCodes returns the codes a company can still be launched with.
// Exhausted codes are never included.
func (e *Engine) ActiveAccessCodes() []model.Record {
	var out []model.Record
	for _, r := range e.AccessCodes() {
		code, err := model.Decode[model.AccessCode](r)
		if err != nil {
			continue
		}
		if code.Available() {
			out = append(out, r)
		}
	}
	return out
}

// FindAccessCode looks code up in memory first, then in the remote and local
// stores. The match is exact first and case-insensitive second.
func (e *Engine) FindAccessCode(ctx context.Context, code string) (model.Record, error) {
	if found := remote.MatchAccessCode(e.AccessCodes(), code); found != nil {
		return found, nil
	}
	if found := e.remote.FindAccessCodeByCode(ctx, code); found != nil {
		return found, nil
	}
	return nil, domain.ErrAccessCodeNotFound
}

// FindCompanyByName returns the company with exactly this name.
func (e *Engine) FindCompanyByName(ctx context.Context, name string) (model.Record, error) {
	name = strings.TrimSpace(name)
	for _, r := range e.Companies() {
		if r.String("name") == name {
			return r, nil
		}
	}
	if found := e.remote.FindCompanyByName(ctx, name); found != nil {
		return found, nil
	}
	return nil, domain.ErrCompanyNotFound
}

func (e *Engine) findByID(kind model.Kind, id string) (model.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	records := e.collections[kind]
	if i := indexOf(records, id); i >= 0 {
		return records[i].Clone(), true
	}
	return nil, false
}

// Company returns the company with id.
func (e *Engine) Company(id string) (model.Record, error) {
	if r, ok := e.findByID(model.KindCompany, id); ok {
		return r, nil
	}
	return nil, domain.ErrCompanyNotFound
}

// User returns the user with id. Numeric and string ids match each other.
func (e *Engine) User(id string) (model.Record, error) {
	if r, ok := e.findByID(model.KindUser, id); ok {
		return r, nil
	}
	return nil, domain.ErrUserNotFound
}

// Analytics recomputes the dashboard aggregate from the current state.
func (e *Engine) Analytics(ctx context.Context) model.Analytics {
	return computeAnalytics(e.Snapshot(ctx))
}

func computeAnalytics(s events.Snapshot) model.Analytics {
	a := model.Analytics{
		TotalCompanies:   len(s.Companies),
		TotalUsers:       len(s.Users),
		TotalAccessCodes: len(s.AccessCodes),
		UpdatedAt:        s.Timestamp.Format(time.RFC3339),
	}
	for _, c := range s.Companies {
		if c.String("status") == model.StatusActive {
			a.ActiveCompanies++
		}
		a.TotalPolicies += c.Int("policies")
	}
	for _, r := range s.AccessCodes {
		if code, err := model.Decode[model.AccessCode](r); err == nil && code.Available() {
			a.ActiveCodes++
		}
	}
	return a
}
