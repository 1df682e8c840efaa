package handler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/auth"
	"github.com/dangerclosesec/masteradmin/internal/handler"
	"github.com/dangerclosesec/masteradmin/internal/localstore"
	"github.com/dangerclosesec/masteradmin/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *service.Engine) {
	t.Helper()
	store, err := localstore.NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)

	engine := service.NewEngine(store, nil, nil)
	require.NoError(t, engine.Bootstrap(context.Background()))

	h := handler.NewAdminHandler(engine)
	r := chi.NewRouter()
	r.Get("/events", h.Events)
	r.Group(h.Routes)
	return r, engine
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestAccessCodeEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := do(t, r, http.MethodPost, "/access-codes", `{"code":"LAUNCH2025","maxCompanies":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := body["id"].(string)
	assert.Equal(t, "LAUNCH2025", body["code"])

	rec, _ = do(t, r, http.MethodPost, "/access-codes", `{"code":"LAUNCH2025"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, r, http.MethodPost, "/access-codes", `{"code":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, r, http.MethodGet, "/access-codes/lookup?code=launch2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, body["id"])

	rec, _ = do(t, r, http.MethodGet, "/access-codes/lookup?code=missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, r, http.MethodPut, "/access-codes/"+id, `{"status":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, r, http.MethodPut, "/access-codes/"+id, `{"description":"Spring launch"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Spring launch", body["description"])

	rec, _ = do(t, r, http.MethodDelete, "/access-codes/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, r, http.MethodDelete, "/access-codes/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLaunchEndpoint(t *testing.T) {
	r, engine := newTestRouter(t)

	rec, _ := do(t, r, http.MethodPost, "/access-codes", `{"code":"ONE","maxCompanies":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := do(t, r, http.MethodPost, "/companies", `{"name":"Acme","adminEmail":"admin@acme.test","adminUsername":"acme","accessCode":"ONE"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, body["adminPassword"], 8)
	company := body["company"].(map[string]any)
	companyID := company["id"].(string)

	rec, _ = do(t, r, http.MethodPost, "/companies", `{"name":"Beta","adminEmail":"admin@beta.test","adminUsername":"beta","accessCode":"one"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = do(t, r, http.MethodGet, "/access-codes/active", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec, body = do(t, r, http.MethodGet, "/companies/lookup?name=Acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, companyID, body["id"])

	rec, _ = do(t, r, http.MethodPut, "/companies/"+companyID+"/password", `{"password":"abcd","confirmPassword":"dcba"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, r, http.MethodPost, "/companies/"+companyID+"/suspension", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "suspended", body["status"])

	rec, body = do(t, r, http.MethodPut, "/companies/"+companyID+"/admins", `{"isAdmin":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, body = do(t, r, http.MethodGet, "/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["totalCompanies"])
	assert.EqualValues(t, 0, body["activeCompanies"])

	assert.Len(t, engine.Users(), 1)
}

func TestUserEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := do(t, r, http.MethodPost, "/users", `{"username":"bob","role":"Admin"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := body["id"].(string)
	assert.Equal(t, "admin", body["role"])

	rec, _ = do(t, r, http.MethodPut, "/users/"+id+"/role", `{"role":"superuser"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, r, http.MethodPut, "/users/"+id+"/admin", `{"isAdmin":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["isAdmin"])

	rec, _ = do(t, r, http.MethodGet, "/users/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, r, http.MethodPost, "/users/bulk-delete", `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, r, http.MethodPost, "/users/bulk-delete", `{"ids":["`+id+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
}

func TestSyncEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := do(t, r, http.MethodPost, "/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "local", body["backend"])
	assert.Equal(t, map[string]any{"company": "clean", "user": "clean", "access_code": "clean"}, body["states"])
}

func TestEventStream(t *testing.T) {
	r, engine := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	next := func() map[string]any {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && data != "":
				assert.Equal(t, "snapshot", event)
				var out map[string]any
				require.NoError(t, json.Unmarshal([]byte(data), &out))
				return out
			}
		}
	}

	first := next()
	assert.Empty(t, first["users"])

	_, err = engine.CreateUser(ctx, service.CreateUserInput{Username: "streamed"})
	require.NoError(t, err)

	second := next()
	users := second["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "streamed", users[0].(map[string]any)["username"])
}

func TestLoginHandler(t *testing.T) {
	hasher := auth.NewPasswordHasherWithConfig(auth.PasswordConfig{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8})
	hash, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	tm := auth.NewTokenManager("secret", time.Hour)
	h := handler.NewAuthHandler(auth.NewAdmin("root@example.test", hash, hasher, tm))

	rec, body := do(t, http.HandlerFunc(h.LoginHandler), http.MethodPost, "/api/auth/login", `{"email":"root@example.test","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	_, err = tm.Validate(body["token"].(string))
	assert.NoError(t, err)

	rec, body = do(t, http.HandlerFunc(h.LoginHandler), http.MethodPost, "/api/auth/login", `{"email":"root@example.test","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "login_failed", body["status"])
	assert.Nil(t, body["token"])

	rec, _ = do(t, http.HandlerFunc(h.LoginHandler), http.MethodPost, "/api/auth/login", `nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
