// internal/service/access_codes.go
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/notify"
	"github.com/dangerclosesec/masteradmin/internal/remote"
)

const (
	defaultCodeDescription = "Access Code"
	defaultMaxCompanies    = 10
)

type CreateAccessCodeInput struct {
	Code         string  `json:"code" validate:"required"`
	Description  string  `json:"description"`
	ExpiryDate   *string `json:"expiryDate" validate:"omitempty,datetime=2006-01-02"`
	MaxCompanies int     `json:"maxCompanies" validate:"gte=0"`
}

type UpdateAccessCodeInput struct {
	Description  *string `json:"description"`
	ExpiryDate   *string `json:"expiryDate" validate:"omitempty,datetime=2006-01-02"`
	MaxCompanies *int    `json:"maxCompanies" validate:"omitempty,gte=1"`
	Status       *string `json:"status" validate:"omitempty,oneof=active suspended inactive"`
}

// CreateAccessCode adds a new code. A code whose token already exists is
// rejected before anything is written.
func (e *Engine) CreateAccessCode(ctx context.Context, input CreateAccessCodeInput) (model.Record, error) {
	input.Code = strings.TrimSpace(input.Code)
	if err := e.validateInput(input); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = defaultCodeDescription
	}
	maxCompanies := input.MaxCompanies
	if maxCompanies == 0 {
		maxCompanies = defaultMaxCompanies
	}

	rec := model.Record{
		"id":           remote.NewID(model.KindAccessCode),
		"code":         input.Code,
		"description":  description,
		"maxCompanies": maxCompanies,
		"usedBy":       []string{},
		"status":       model.StatusActive,
	}
	if input.ExpiryDate != nil && *input.ExpiryDate != "" {
		rec["expiryDate"] = *input.ExpiryDate
	}

	created, err := e.insert(ctx, model.KindAccessCode, rec, func(codes []model.Record) error {
		for _, r := range codes {
			if r.String("code") == input.Code {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateAccessCode, input.Code)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(notify.EventAccessCode, created)

	e.logger.Info("access code created", "code", input.Code, "id", created.ID())
	return created, nil
}

func (e *Engine) UpdateAccessCode(ctx context.Context, id string, input UpdateAccessCodeInput) (model.Record, error) {
	if err := e.validateInput(input); err != nil {
		return nil, err
	}

	changes := model.Record{}
	if input.Description != nil {
		changes["description"] = *input.Description
	}
	if input.ExpiryDate != nil {
		changes["expiryDate"] = *input.ExpiryDate
	}
	if input.MaxCompanies != nil {
		changes["maxCompanies"] = *input.MaxCompanies
	}
	if input.Status != nil {
		changes["status"] = *input.Status
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}

	return e.patch(ctx, model.KindAccessCode, id, changes)
}

func (e *Engine) DeleteAccessCode(ctx context.Context, id string) error {
	removed := e.remove(ctx, model.KindAccessCode, id)
	if len(removed) == 0 {
		return domain.ErrAccessCodeNotFound
	}
	e.emit(notify.EventAccessCodeDeleted, removed[0])
	return nil
}

// codeIndexLocked finds a code by token regardless of its status: exact
// match first, then the uppercased term, then case-insensitively.
func codeIndexLocked(codes []model.Record, term string) int {
	term = strings.TrimSpace(term)
	if term == "" {
		return -1
	}
	upper := strings.ToUpper(term)
	matchers := []func(code string) bool{
		func(code string) bool { return code == term },
		func(code string) bool { return code == upper },
		func(code string) bool { return strings.ToUpper(code) == upper },
	}
	for _, match := range matchers {
		for i, r := range codes {
			if match(strings.TrimSpace(r.String("code"))) {
				return i
			}
		}
	}
	return -1
}
