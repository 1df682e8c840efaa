package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// webhookServer answers each action with the configured body and records
// every request payload.
func webhookServer(t *testing.T, responses map[string]string) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		requests = append(requests, body)
		mu.Unlock()

		action, _ := body["action"].(string)
		resp, ok := responses[action]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("unknown action"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestWebhookListShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"id":"1","code":"A"},{"id":"2","code":"B"}]`, 2},
		{"data array", `{"data":[{"id":"1","code":"A"}]}`, 1},
		{"named key", `{"accessCodes":[{"id":"1","code":"A"}]}`, 1},
		{"unrecognized", `{"something":"else"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := webhookServer(t, map[string]string{"getAccessCodes": tt.body})
			c := NewWebhookClient(WebhookConfig{URL: server.URL})

			codes, err := c.GetAccessCodes(context.Background())
			require.NoError(t, err)
			assert.Len(t, codes, tt.want)
			for _, code := range codes {
				assert.NotEmpty(t, code.String("code"))
			}
		})
	}
}

func TestWebhookListKeepsFieldPresence(t *testing.T) {
	body := `[{"id":"1","code":"A","description":"","max_companies":0}]`
	server, _ := webhookServer(t, map[string]string{"getAccessCodes": body})
	c := NewWebhookClient(WebhookConfig{URL: server.URL})

	codes, err := c.GetAccessCodes(context.Background())
	require.NoError(t, err)
	require.Len(t, codes, 1)

	code := codes[0]
	assert.Equal(t, "A", code.String("code"))
	assert.Contains(t, code, "description")
	assert.Equal(t, "", code.String("description"))
	assert.Contains(t, code, "maxCompanies")
	assert.Equal(t, 0, code.Int("maxCompanies"))
	// Not sent, so not defaulted.
	assert.NotContains(t, code, "status")
	assert.NotContains(t, code, "usedBy")
}

func TestWebhookSingleShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare array", `[{"id":"c1","name":"Acme"}]`},
		{"data array", `{"data":[{"id":"c1","name":"Acme"}]}`},
		{"data object", `{"data":{"id":"c1","name":"Acme"}}`},
		{"named key", `{"company":{"id":"c1","name":"Acme"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests := webhookServer(t, map[string]string{"createCompany": tt.body})
			c := NewWebhookClient(WebhookConfig{URL: server.URL})

			created, err := c.CreateCompany(context.Background(), model.Record{"name": "Acme", "adminEmail": "a@acme.test"})
			require.NoError(t, err)
			assert.Equal(t, "c1", created.ID())

			require.Len(t, *requests, 1)
			payload := (*requests)[0]["company"].(map[string]any)
			assert.Equal(t, "a@acme.test", payload["admin_email"])
			assert.NotContains(t, payload, "adminEmail")
		})
	}
}

func TestWebhookErrors(t *testing.T) {
	server, _ := webhookServer(t, map[string]string{
		"getUsers":          `{"error":"database offline"}`,
		"createUser":        `{"success":true}`,
		"deleteUser":        `{"success":false}`,
		"findCompanyByName": `{"data":[]}`,
	})
	c := NewWebhookClient(WebhookConfig{URL: server.URL})
	ctx := context.Background()

	_, err := c.GetUsers(ctx)
	var webhookErr *WebhookError
	require.ErrorAs(t, err, &webhookErr)
	assert.Contains(t, webhookErr.Message, "database offline")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)

	_, err = c.CreateUser(ctx, model.Record{"username": "bob"})
	assert.ErrorIs(t, err, domain.ErrEmptyResponse)

	assert.Error(t, c.DeleteUser(ctx, "u1"))

	_, err = c.FindCompanyByName(ctx, "Acme")
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)

	_, err = c.GetCompanies(ctx)
	require.ErrorAs(t, err, &webhookErr)
	assert.Equal(t, http.StatusNotFound, webhookErr.StatusCode)

	_, err = NewWebhookClient(WebhookConfig{}).GetCompanies(ctx)
	assert.Error(t, err)
}

func TestWebhookPayloads(t *testing.T) {
	server, requests := webhookServer(t, map[string]string{
		"findAccessCodeByCode": `{"accessCode":{"id":"1","code":"ABC123"}}`,
		"updateAccessCode":     `{"data":{"id":"1","code":"ABC123","used_by":["Acme"]}}`,
		"deleteAccessCode":     `{}`,
		"getUsers":             `{"data":[{"id":"u1","company_id":"c1"}],"companiesMap":{"c1":"Acme"}}`,
	})
	c := NewWebhookClient(WebhookConfig{URL: server.URL})
	ctx := context.Background()

	found, err := c.FindAccessCodeByCode(ctx, " abc123 ")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", found.String("code"))

	updated, err := c.UpdateAccessCode(ctx, "1", model.Record{"usedBy": []string{"Acme"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, updated.Strings("usedBy"))

	require.NoError(t, c.DeleteAccessCode(ctx, "1"))

	users, err := c.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Acme", users[0].String("company"))

	reqs := *requests
	require.Len(t, reqs, 4)
	assert.Equal(t, "ABC123", reqs[0]["code"])
	assert.Equal(t, "1", reqs[1]["codeId"])
	assert.Equal(t, []any{"Acme"}, reqs[1]["updates"].(map[string]any)["used_by"])
	assert.NotContains(t, reqs[1]["updates"], "usedBy")
	assert.Equal(t, "deleteAccessCode", reqs[2]["action"])
	assert.Equal(t, "1", reqs[2]["codeId"])
}
