// internal/remote/webhook.go
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/normalize"
)

// WebhookConfig represents the configuration for the webhook client
type WebhookConfig struct {
	// URL is the single endpoint every action is posted to
	URL string
	// HTTPClient is an optional custom HTTP client
	HTTPClient *http.Client
	// Timeout bounds each call. Zero leaves it to the HTTP client.
	Timeout time.Duration
}

// WebhookClient sends every operation as a POST of {"action": ..., ...payload}
// to one endpoint and accepts the loose response shapes such endpoints
// produce: a bare array, {"data": [...]}, {"data": {...}} or a named key.
type WebhookClient struct {
	config WebhookConfig
	client *http.Client
}

func NewWebhookClient(config WebhookConfig) *WebhookClient {
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookClient{config: config, client: client}
}

func (c *WebhookClient) Name() string {
	return "webhook"
}

// WebhookError is returned for non-2xx responses and {"error": ...} bodies.
type WebhookError struct {
	Action     string
	StatusCode int
	Message    string
}

func (e *WebhookError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook %s: %s (Status: %d)", e.Action, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("webhook %s: %s", e.Action, e.Message)
}

func (e *WebhookError) Unwrap() error {
	return domain.ErrRemoteUnavailable
}

// call posts the action and returns the decoded body.
func (c *WebhookClient) call(ctx context.Context, action string, payload map[string]any) (any, error) {
	if c.config.URL == "" {
		return nil, &WebhookError{Action: action, Message: "webhook url not configured"}
	}
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	body := map[string]any{"action": action}
	for k, v := range payload {
		body[k] = v
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w: %w", domain.ErrRemoteUnavailable, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = fmt.Sprintf("request failed with status code %d", httpResp.StatusCode)
		}
		return nil, &WebhookError{Action: action, StatusCode: httpResp.StatusCode, Message: msg}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if obj, ok := result.(map[string]any); ok {
		if e, exists := obj["error"]; exists && e != nil && e != false && e != "" {
			return nil, &WebhookError{Action: action, Message: fmt.Sprint(errorMessage(e))}
		}
	}
	return result, nil
}

func errorMessage(e any) any {
	if obj, ok := e.(map[string]any); ok {
		if msg, ok := obj["message"]; ok {
			return msg
		}
	}
	return e
}

// unwrapList extracts a collection from a response.
func unwrapList(result any, named string) []model.Record {
	switch v := result.(type) {
	case []any:
		return toRecords(v)
	case map[string]any:
		if list, ok := v["data"].([]any); ok {
			return toRecords(list)
		}
		if list, ok := v[named].([]any); ok {
			return toRecords(list)
		}
	}
	return []model.Record{}
}

// unwrapOne extracts a single record from a response.
func unwrapOne(result any, named string) model.Record {
	switch v := result.(type) {
	case []any:
		if recs := toRecords(v); len(recs) > 0 {
			return recs[0]
		}
	case map[string]any:
		switch data := v["data"].(type) {
		case []any:
			if recs := toRecords(data); len(recs) > 0 {
				return recs[0]
			}
		case map[string]any:
			return model.Record(data)
		}
		if obj, ok := v[named].(map[string]any); ok {
			return model.Record(obj)
		}
	}
	return nil
}

func toRecords(items []any) []model.Record {
	out := make([]model.Record, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, model.Record(obj))
		}
	}
	return out
}

func (c *WebhookClient) list(ctx context.Context, kind model.Kind, action, named string) ([]model.Record, error) {
	result, err := c.call(ctx, action, nil)
	if err != nil {
		return nil, err
	}
	return expandAll(unwrapList(result, named), kind), nil
}

// expandAll spells every field a listed record carries both ways without
// filling in defaults for the fields it lacks.
func expandAll(records []model.Record, kind model.Kind) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		out = append(out, normalize.Patch(r, kind))
	}
	return out
}

func (c *WebhookClient) one(ctx context.Context, kind model.Kind, action, named string, payload map[string]any) (model.Record, error) {
	result, err := c.call(ctx, action, payload)
	if err != nil {
		return nil, err
	}
	r := unwrapOne(result, named)
	if r == nil {
		return nil, fmt.Errorf("webhook %s: %w", action, domain.ErrEmptyResponse)
	}
	return normalize.Normalize(r, kind), nil
}

func (c *WebhookClient) remove(ctx context.Context, action string, payload map[string]any) error {
	result, err := c.call(ctx, action, payload)
	if err != nil {
		return err
	}
	if obj, ok := result.(map[string]any); ok {
		if success, ok := obj["success"].(bool); ok && !success {
			return &WebhookError{Action: action, Message: "endpoint reported failure"}
		}
	}
	return nil
}

func (c *WebhookClient) GetUsers(ctx context.Context) ([]model.Record, error) {
	result, err := c.call(ctx, "getUsers", nil)
	if err != nil {
		return nil, err
	}
	users := unwrapList(result, "users")

	// Profiles may reference their company only by id.
	if obj, ok := result.(map[string]any); ok {
		if names, ok := obj["companiesMap"].(map[string]any); ok {
			for _, u := range users {
				if u.String("company") != "" {
					continue
				}
				if name, ok := names[u.String("company_id")].(string); ok {
					u["company"] = name
				}
			}
		}
	}
	return expandAll(users, model.KindUser), nil
}

func (c *WebhookClient) CreateUser(ctx context.Context, user model.Record) (model.Record, error) {
	return c.one(ctx, model.KindUser, "createUser", "user", map[string]any{
		"userData": normalize.ToCanonical(user, model.KindUser),
	})
}

func (c *WebhookClient) UpdateUser(ctx context.Context, id string, updates model.Record) (model.Record, error) {
	return c.one(ctx, model.KindUser, "updateUser", "user", map[string]any{
		"userId":  id,
		"updates": canonicalPatch(updates, model.KindUser),
	})
}

func (c *WebhookClient) DeleteUser(ctx context.Context, id string) error {
	return c.remove(ctx, "deleteUser", map[string]any{"userId": id})
}

func (c *WebhookClient) GetCompanies(ctx context.Context) ([]model.Record, error) {
	return c.list(ctx, model.KindCompany, "getCompanies", "companies")
}

func (c *WebhookClient) CreateCompany(ctx context.Context, company model.Record) (model.Record, error) {
	return c.one(ctx, model.KindCompany, "createCompany", "company", map[string]any{
		"company": normalize.ToCanonical(company, model.KindCompany),
	})
}

func (c *WebhookClient) FindCompanyByName(ctx context.Context, name string) (model.Record, error) {
	r, err := c.one(ctx, model.KindCompany, "findCompanyByName", "company", map[string]any{"name": name})
	if err != nil && errors.Is(err, domain.ErrEmptyResponse) {
		return nil, domain.ErrCompanyNotFound
	}
	return r, err
}

func (c *WebhookClient) UpdateCompany(ctx context.Context, id string, updates model.Record) (model.Record, error) {
	return c.one(ctx, model.KindCompany, "updateCompany", "company", map[string]any{
		"companyId": id,
		"updates":   canonicalPatch(updates, model.KindCompany),
	})
}

func (c *WebhookClient) DeleteCompany(ctx context.Context, id string) error {
	return c.remove(ctx, "deleteCompany", map[string]any{"companyId": id})
}

func (c *WebhookClient) GetAccessCodes(ctx context.Context) ([]model.Record, error) {
	return c.list(ctx, model.KindAccessCode, "getAccessCodes", "accessCodes")
}

func (c *WebhookClient) CreateAccessCode(ctx context.Context, code model.Record) (model.Record, error) {
	return c.one(ctx, model.KindAccessCode, "createAccessCode", "accessCode", map[string]any{
		"accessCode": normalize.ToCanonical(code, model.KindAccessCode),
	})
}

func (c *WebhookClient) UpdateAccessCode(ctx context.Context, id string, updates model.Record) (model.Record, error) {
	return c.one(ctx, model.KindAccessCode, "updateAccessCode", "accessCode", map[string]any{
		"codeId":  id,
		"updates": canonicalPatch(updates, model.KindAccessCode),
	})
}

func (c *WebhookClient) DeleteAccessCode(ctx context.Context, id string) error {
	return c.remove(ctx, "deleteAccessCode", map[string]any{"codeId": id})
}

// FindAccessCodeByCode sends the trimmed uppercase code.
func (c *WebhookClient) FindAccessCodeByCode(ctx context.Context, code string) (model.Record, error) {
	search := strings.ToUpper(strings.TrimSpace(code))
	r, err := c.one(ctx, model.KindAccessCode, "findAccessCodeByCode", "accessCode", map[string]any{"code": search})
	if err != nil && errors.Is(err, domain.ErrEmptyResponse) {
		return nil, domain.ErrAccessCodeNotFound
	}
	return r, err
}

// canonicalPatch keeps only the snake_case spelling of each patched field.
func canonicalPatch(patch model.Record, kind model.Kind) model.Record {
	expanded := normalize.Patch(patch, kind)
	out := make(model.Record, len(expanded))
	display := make(map[string]bool)
	for _, f := range normalize.Fields(kind) {
		if f.Display != f.Canonical {
			display[f.Display] = true
		}
	}
	for k, v := range expanded {
		if !display[k] {
			out[k] = v
		}
	}
	return out
}
