// internal/service/companies.go
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/dangerclosesec/masteradmin/internal/localstore"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/normalize"
	"github.com/dangerclosesec/masteradmin/internal/notify"
	"github.com/dangerclosesec/masteradmin/internal/remote"
)

type LaunchCompanyInput struct {
	Name          string `json:"name" validate:"required"`
	AdminName     string `json:"adminName"`
	AdminEmail    string `json:"adminEmail" validate:"required,email"`
	AdminUsername string `json:"adminUsername" validate:"required"`
	AccessCode    string `json:"accessCode" validate:"required"`
}

type LaunchResult struct {
	Company    model.Record `json:"company"`
	AdminUser  model.Record `json:"adminUser"`
	AccessCode model.Record `json:"accessCode"`

	// AdminPassword is the generated initial password of the admin user.
	AdminPassword string `json:"adminPassword"`
}

type SetCompanyPasswordInput struct {
	Password        string `json:"password" validate:"required,min=4"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type CompanyWebhooks struct {
	Advisor    string `json:"advisor" validate:"omitempty,url"`
	Generator  string `json:"generator" validate:"omitempty,url"`
	Summarizer string `json:"summarizer" validate:"omitempty,url"`
	Email      string `json:"email" validate:"omitempty,url"`
}

// LaunchCompany creates a company and its admin user against an access code
// and records the company in the code's usedBy list. The code must exist and
// still be available; otherwise nothing is written.
func (e *Engine) LaunchCompany(ctx context.Context, input LaunchCompanyInput) (*LaunchResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.AccessCode = strings.TrimSpace(input.AccessCode)
	if err := e.validateInput(input); err != nil {
		return nil, err
	}

	password, err := generatePassword(8)
	if err != nil {
		return nil, fmt.Errorf("generating admin password: %w", err)
	}

	now := time.Now().UTC()
	companyID := remote.NewID(model.KindCompany)
	signupDate := now.Format("2006-01-02")
	lastActive := now.Format(time.RFC3339)

	e.mu.Lock()
	codes := model.CloneAll(e.collections[model.KindAccessCode])
	i := codeIndexLocked(codes, input.AccessCode)
	if i < 0 {
		e.mu.Unlock()
		return nil, domain.ErrAccessCodeNotFound
	}
	code, err := model.Decode[model.AccessCode](codes[i])
	if err != nil || !code.Available() {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrNoActiveAccessCode, codes[i].String("code"))
	}

	company := normalize.Normalize(model.Record{
		"id":            companyID,
		"name":          input.Name,
		"adminName":     input.AdminName,
		"adminEmail":    input.AdminEmail,
		"adminUsername": input.AdminUsername,
		"adminPassword": password,
		"accessCode":    code.Code,
		"signupDate":    signupDate,
		"lastActive":    lastActive,
		"status":        model.StatusActive,
		"users":         1,
		"policies":      0,
	}, model.KindCompany)

	admin := normalize.Normalize(model.Record{
		"id":         "user-" + companyID + "-admin",
		"username":   input.AdminUsername,
		"email":      input.AdminEmail,
		"fullName":   input.AdminName,
		"password":   password,
		"company":    input.Name,
		"companyId":  companyID,
		"role":       model.RoleAdmin,
		"accessCode": code.Code,
		"created":    signupDate,
		"lastLogin":  lastActive,
		"status":     model.StatusActive,
	}, model.KindUser)

	usedBy := union(code.UsedBy, []string{input.Name})
	codes[i]["usedBy"] = usedBy
	codes[i]["used_by"] = append([]string{}, usedBy...)
	codes[i] = normalize.Normalize(codes[i], model.KindAccessCode)
	updatedCode := codes[i].Clone()

	e.commitLocked(ctx, model.KindCompany, append(model.CloneAll(e.collections[model.KindCompany]), company))
	e.commitLocked(ctx, model.KindUser, append(model.CloneAll(e.collections[model.KindUser]), admin))
	e.commitLocked(ctx, model.KindAccessCode, codes)
	e.registerOrganizationLocked(ctx, input.Name)
	e.mu.Unlock()

	e.publish(ctx)

	e.remoteCreate(ctx, model.KindCompany, company)
	e.remoteCreate(ctx, model.KindUser, admin)
	e.remoteUpdate(ctx, model.KindAccessCode, updatedCode.ID(), model.Record{"usedBy": usedBy})

	launched := notify.NewEvent(notify.EventCompanyLaunched, company)
	launched.Extra = map[string]any{"adminPassword": password}
	e.sink.Dispatch(launched)

	e.logger.Info("company launched",
		"company", input.Name,
		"id", companyID,
		"access_code", code.Code,
		"used", len(usedBy),
		"max", code.MaxCompanies,
	)

	return &LaunchResult{
		Company:       company.Clone(),
		AdminUser:     admin.Clone(),
		AccessCode:    updatedCode,
		AdminPassword: password,
	}, nil
}

// registerOrganizationLocked adds an empty organization list for a new
// company unless one exists.
func (e *Engine) registerOrganizationLocked(ctx context.Context, name string) {
	orgs := map[string]any{}
	e.store.LoadJSON(ctx, localstore.KeyOrganizations, &orgs)
	if _, ok := orgs[name]; ok {
		return
	}
	orgs[name] = []any{}
	e.store.SaveJSON(ctx, localstore.KeyOrganizations, orgs)
}

// UpdateCompany applies a partial update. The id cannot be changed.
func (e *Engine) UpdateCompany(ctx context.Context, id string, changes model.Record) (model.Record, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	return e.patch(ctx, model.KindCompany, id, changes)
}

// SetCompanyPassword replaces the admin password of a company.
func (e *Engine) SetCompanyPassword(ctx context.Context, id string, input SetCompanyPasswordInput) (model.Record, error) {
	if input.Password != input.ConfirmPassword {
		return nil, domain.ErrPasswordsDoNotMatch
	}
	if err := e.validateInput(input); err != nil {
		return nil, errors.Join(domain.ErrPasswordTooWeak, err)
	}
	return e.patch(ctx, model.KindCompany, id, model.Record{"adminPassword": input.Password})
}

func (e *Engine) SetCompanyAPIKey(ctx context.Context, id, apiKey string) (model.Record, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api key is required", domain.ErrInvalidInput)
	}
	return e.patch(ctx, model.KindCompany, id, model.Record{"apiKey": apiKey})
}

// SetCompanyWebhooks replaces all four webhook URLs. Empty strings clear a
// URL.
func (e *Engine) SetCompanyWebhooks(ctx context.Context, id string, hooks CompanyWebhooks) (model.Record, error) {
	hooks = CompanyWebhooks{
		Advisor:    strings.TrimSpace(hooks.Advisor),
		Generator:  strings.TrimSpace(hooks.Generator),
		Summarizer: strings.TrimSpace(hooks.Summarizer),
		Email:      strings.TrimSpace(hooks.Email),
	}
	if err := e.validateInput(hooks); err != nil {
		return nil, err
	}
	return e.patch(ctx, model.KindCompany, id, model.Record{
		"webhookAdvisorUrl":    hooks.Advisor,
		"webhookGeneratorUrl":  hooks.Generator,
		"webhookSummarizerUrl": hooks.Summarizer,
		"webhookEmailUrl":      hooks.Email,
	})
}

// ToggleCompanySuspension flips an active company to suspended and anything
// else back to active.
func (e *Engine) ToggleCompanySuspension(ctx context.Context, id string) (model.Record, error) {
	company, err := e.Company(id)
	if err != nil {
		return nil, err
	}
	status := model.StatusSuspended
	if company.String("status") != model.StatusActive {
		status = model.StatusActive
	}
	return e.patch(ctx, model.KindCompany, id, model.Record{"status": status})
}

const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func generatePassword(n int) (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[idx.Int64()]
	}
	return string(out), nil
}
