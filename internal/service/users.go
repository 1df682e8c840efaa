// internal/service/users.go
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/normalize"
	"github.com/dangerclosesec/masteradmin/internal/notify"
	"github.com/dangerclosesec/masteradmin/internal/remote"
)

type CreateUserInput struct {
	Username   string `json:"username" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	FullName   string `json:"fullName"`
	Company    string `json:"company"`
	CompanyID  string `json:"companyId"`
	Role       string `json:"role"`
	IsAdmin    bool   `json:"isAdmin"`
	Password   string `json:"password"`
	AccessCode string `json:"accessCode"`
}

// UpdateUserInput is a partial update. Nil fields are left alone and an
// empty password keeps the current one.
type UpdateUserInput struct {
	Username *string `json:"username" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	FullName *string `json:"fullName"`
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"isAdmin"`
	Status   *string `json:"status" validate:"omitempty,oneof=active suspended inactive"`
}

func (e *Engine) CreateUser(ctx context.Context, input CreateUserInput) (model.Record, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := e.validateInput(input); err != nil {
		return nil, err
	}

	rec := model.Record{
		"id":         remote.NewID(model.KindUser),
		"username":   input.Username,
		"email":      strings.TrimSpace(input.Email),
		"fullName":   input.FullName,
		"company":    input.Company,
		"companyId":  input.CompanyID,
		"role":       normalize.NormalizeRole(input.Role),
		"isAdmin":    input.IsAdmin,
		"password":   input.Password,
		"accessCode": input.AccessCode,
		"status":     model.StatusActive,
	}
	return e.insert(ctx, model.KindUser, rec, nil)
}

func (e *Engine) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (model.Record, error) {
	if err := e.validateInput(input); err != nil {
		return nil, err
	}

	changes := model.Record{}
	if input.Username != nil {
		changes["username"] = strings.TrimSpace(*input.Username)
	}
	if input.Email != nil {
		changes["email"] = strings.TrimSpace(*input.Email)
	}
	if input.FullName != nil {
		changes["fullName"] = *input.FullName
	}
	if input.Password != nil && *input.Password != "" {
		changes["password"] = *input.Password
	}
	if input.IsAdmin != nil {
		changes["isAdmin"] = *input.IsAdmin
	}
	if input.Status != nil {
		changes["status"] = *input.Status
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}

	return e.patch(ctx, model.KindUser, id, changes)
}

// ChangeUserRole sets the role of a user. Only user and admin are accepted,
// in any case.
func (e *Engine) ChangeUserRole(ctx context.Context, id, role string) (model.Record, error) {
	role = strings.TrimSpace(role)
	if !strings.EqualFold(role, model.RoleAdmin) && !strings.EqualFold(role, model.RoleUser) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	return e.patch(ctx, model.KindUser, id, model.Record{"role": normalize.NormalizeRole(role)})
}

// ToggleUserAdmin sets the isAdmin flag. The role field is independent of
// the flag but is normalized on the way.
func (e *Engine) ToggleUserAdmin(ctx context.Context, id string, isAdmin bool) (model.Record, error) {
	user, err := e.User(id)
	if err != nil {
		return nil, err
	}
	return e.patch(ctx, model.KindUser, id, model.Record{
		"isAdmin": isAdmin,
		"role":    normalize.NormalizeRole(user.String("role")),
	})
}

// BulkSetCompanyAdmins sets isAdmin on every user of a company whose flag
// differs and returns how many users changed.
func (e *Engine) BulkSetCompanyAdmins(ctx context.Context, companyID string, isAdmin bool) (int, error) {
	company, err := e.Company(companyID)
	if err != nil {
		return 0, err
	}
	name := company.String("name")

	e.mu.Lock()
	users := model.CloneAll(e.collections[model.KindUser])
	var changed []string
	for i, u := range users {
		if u.String("company") != name || u.Bool("isAdmin") == isAdmin {
			continue
		}
		u["isAdmin"] = isAdmin
		u["is_admin"] = isAdmin
		users[i] = normalize.Normalize(u, model.KindUser)
		changed = append(changed, u.ID())
	}
	if len(changed) > 0 {
		e.commitLocked(ctx, model.KindUser, users)
	}
	e.mu.Unlock()

	if len(changed) == 0 {
		return 0, nil
	}

	e.publish(ctx)
	for _, id := range changed {
		e.remoteUpdate(ctx, model.KindUser, id, model.Record{"isAdmin": isAdmin})
	}

	e.logger.Info("bulk admin update", "company", name, "is_admin", isAdmin, "users", len(changed))
	return len(changed), nil
}

// DeleteUser removes a user. Numeric and string ids match each other.
func (e *Engine) DeleteUser(ctx context.Context, id string) error {
	removed := e.remove(ctx, model.KindUser, id)
	if len(removed) == 0 {
		return domain.ErrUserNotFound
	}
	e.emit(notify.EventUserDeleted, removed[0])
	return nil
}

// BulkDeleteUsers removes every user in ids and returns how many were
// found.
func (e *Engine) BulkDeleteUsers(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no users selected", domain.ErrInvalidInput)
	}
	removed := e.remove(ctx, model.KindUser, ids...)
	if len(removed) == 0 {
		return 0, domain.ErrUserNotFound
	}
	for _, r := range removed {
		e.emit(notify.EventUserDeleted, r)
	}
	return len(removed), nil
}
