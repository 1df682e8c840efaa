package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/domain"
	"github.com/dangerclosesec/masteradmin/internal/events"
	"github.com/dangerclosesec/masteradmin/internal/localstore"
	"github.com/dangerclosesec/masteradmin/internal/mocks"
	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/notify"
	"github.com/dangerclosesec/masteradmin/internal/remote"
	"github.com/dangerclosesec/masteradmin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errOffline = errors.New("connection refused")

func newTestStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.NewSQLiteStore(":memory:", nil)
	require.NoError(t, err)
	return store
}

type recordingSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (s *recordingSink) Dispatch(e notify.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) types() []notify.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notify.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// newLocalEngine returns a bootstrapped engine without a remote store.
func newLocalEngine(t *testing.T, opts ...service.Option) (*service.Engine, *localstore.Store) {
	t.Helper()
	store := newTestStore(t)
	engine := service.NewEngine(store, nil, nil, opts...)
	require.NoError(t, engine.Bootstrap(context.Background()))
	return engine, store
}

// newRemoteEngine returns an engine over a mock remote. It is not
// bootstrapped.
func newRemoteEngine(t *testing.T, opts ...service.Option) (*service.Engine, *mocks.MockClient, *localstore.Store) {
	t.Helper()
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockClient(ctrl)
	primary.EXPECT().Name().Return("mock").AnyTimes()

	store := newTestStore(t)
	return service.NewEngine(store, primary, events.NewPublisher(nil), opts...), primary, store
}

func stubEmptyLists(primary *mocks.MockClient) {
	primary.EXPECT().GetCompanies(gomock.Any()).Return([]model.Record{}, nil)
	primary.EXPECT().GetUsers(gomock.Any()).Return([]model.Record{}, nil)
	primary.EXPECT().GetAccessCodes(gomock.Any()).Return([]model.Record{}, nil)
}

func TestCreateAccessCodeSurvivesRemoteFailure(t *testing.T) {
	ctx := context.Background()
	engine, primary, store := newRemoteEngine(t)
	stubEmptyLists(primary)
	require.NoError(t, engine.Bootstrap(ctx))

	release := make(chan struct{})
	primary.EXPECT().CreateAccessCode(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, code model.Record) (model.Record, error) {
			<-release
			return nil, errOffline
		})

	created, err := engine.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: "OFFLINE1"})
	require.NoError(t, err)

	// Durable locally before the remote call resolves.
	assert.Equal(t, service.DirtyLocal, engine.State(model.KindAccessCode))
	stored := store.LoadCollection(ctx, model.KindAccessCode)
	require.Len(t, stored, 1)
	assert.Equal(t, created.ID(), stored[0].ID())

	close(release)
	engine.Wait()

	assert.Equal(t, service.Clean, engine.State(model.KindAccessCode))
	stored = store.LoadCollection(ctx, model.KindAccessCode)
	require.Len(t, stored, 1)
	assert.Equal(t, "OFFLINE1", stored[0].String("code"))
	assert.Len(t, engine.AccessCodes(), 1)
}

func TestCreateAccessCodeAbsorbsRemoteID(t *testing.T) {
	ctx := context.Background()
	engine, primary, _ := newRemoteEngine(t)
	stubEmptyLists(primary)
	require.NoError(t, engine.Bootstrap(ctx))

	primary.EXPECT().CreateAccessCode(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, code model.Record) (model.Record, error) {
			assert.Equal(t, "REMOTE1", code.String("code"))
			ack := code.Clone()
			ack["id"] = 42
			return ack, nil
		})

	_, err := engine.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: "REMOTE1", MaxCompanies: 3})
	require.NoError(t, err)
	engine.Wait()

	codes := engine.AccessCodes()
	require.Len(t, codes, 1)
	assert.Equal(t, "42", codes[0].ID())
	assert.Equal(t, 3, codes[0].Int("maxCompanies"))
}

func TestCreateAccessCodeRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	engine, _ := newLocalEngine(t)

	_, err := engine.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: "DUP"})
	require.NoError(t, err)

	_, err = engine.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: " DUP "})
	assert.ErrorIs(t, err, domain.ErrDuplicateAccessCode)

	_, err = engine.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Len(t, engine.AccessCodes(), 1)
}

func TestCreateAccessCodeDefaults(t *testing.T) {
	engine, _ := newLocalEngine(t)

	created, err := engine.CreateAccessCode(context.Background(), service.CreateAccessCodeInput{Code: "DEFAULTS"})
	require.NoError(t, err)

	code, err := model.Decode[model.AccessCode](created)
	require.NoError(t, err)
	assert.Equal(t, 10, code.MaxCompanies)
	assert.Equal(t, "Access Code", code.Description)
	assert.Empty(t, code.UsedBy)
	assert.Nil(t, code.ExpiryDate)
	assert.Equal(t, time.Now().Format("2006-01-02"), code.CreatedDate)
	assert.True(t, code.Available())
}

func TestLaunchCapacity(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	engine, store := newLocalEngine(t, service.WithEventSink(sink))

	_, err := engine.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: "LAUNCH2025", MaxCompanies: 2})
	require.NoError(t, err)

	for _, name := range []string{"Acme", "Beta"} {
		res, err := engine.LaunchCompany(ctx, service.LaunchCompanyInput{
			Name:          name,
			AdminEmail:    "admin@" + name + ".test",
			AdminUsername: name + "_admin",
			AccessCode:    "LAUNCH2025",
		})
		require.NoError(t, err)
		assert.Len(t, res.AdminPassword, 8)
		assert.Equal(t, "user-"+res.Company.ID()+"-admin", res.AdminUser.ID())
		assert.Equal(t, model.RoleAdmin, res.AdminUser.String("role"))
	}

	code, err := engine.FindAccessCode(ctx, "LAUNCH2025")
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Beta"}, code.Strings("usedBy"))

	for _, r := range engine.ActiveAccessCodes() {
		assert.NotEqual(t, "LAUNCH2025", r.String("code"))
	}

	_, err = engine.LaunchCompany(ctx, service.LaunchCompanyInput{
		Name:          "Gamma",
		AdminEmail:    "admin@gamma.test",
		AdminUsername: "gamma_admin",
		AccessCode:    "LAUNCH2025",
	})
	assert.ErrorIs(t, err, domain.ErrNoActiveAccessCode)
	assert.ErrorContains(t, err, "LAUNCH2025")

	assert.Len(t, engine.Companies(), 2)
	assert.Len(t, engine.Users(), 2)
	assert.Len(t, store.LoadCollection(ctx, model.KindCompany), 2)

	orgs := map[string][]any{}
	require.True(t, store.LoadJSON(ctx, localstore.KeyOrganizations, &orgs))
	assert.Contains(t, orgs, "Acme")
	assert.Contains(t, orgs, "Beta")

	assert.Equal(t, []notify.EventType{
		notify.EventAccessCode,
		notify.EventCompanyLaunched,
		notify.EventCompanyLaunched,
	}, sink.types())
}

func TestLaunchUnknownCode(t *testing.T) {
	engine, _ := newLocalEngine(t)

	_, err := engine.LaunchCompany(context.Background(), service.LaunchCompanyInput{
		Name:          "Acme",
		AdminEmail:    "admin@acme.test",
		AdminUsername: "acme_admin",
		AccessCode:    "NOPE",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, engine.Companies())
}

func TestLaunchWritesBehind(t *testing.T) {
	ctx := context.Background()
	engine, primary, _ := newRemoteEngine(t)
	stubEmptyLists(primary)
	require.NoError(t, engine.Bootstrap(ctx))

	primary.EXPECT().CreateAccessCode(gomock.Any(), gomock.Any()).Return(nil, errOffline)
	_, err := engine.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: "BEHIND"})
	require.NoError(t, err)
	engine.Wait()

	primary.EXPECT().CreateCompany(gomock.Any(), gomock.Any()).Return(nil, errOffline)
	primary.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, user model.Record) (model.Record, error) {
			return model.Record{"id": "remote-user-1"}, nil
		})
	primary.EXPECT().UpdateAccessCode(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, id string, updates model.Record) (model.Record, error) {
			assert.Equal(t, []string{"Acme"}, updates.Strings("usedBy"))
			return nil, errOffline
		})

	_, err = engine.LaunchCompany(ctx, service.LaunchCompanyInput{
		Name:          "Acme",
		AdminEmail:    "admin@acme.test",
		AdminUsername: "acme_admin",
		AccessCode:    "behind",
	})
	require.NoError(t, err)
	engine.Wait()

	users := engine.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "remote-user-1", users[0].ID())
	assert.Equal(t, "acme_admin", users[0].String("username"))
}

func TestFindAccessCodeCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	engine, _ := newLocalEngine(t)

	_, err := engine.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: "ABC123"})
	require.NoError(t, err)

	lower, err := engine.FindAccessCode(ctx, "abc123")
	require.NoError(t, err)
	upper, err := engine.FindAccessCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, upper.ID(), lower.ID())

	_, err = engine.FindAccessCode(ctx, "XYZ")
	assert.ErrorIs(t, err, domain.ErrAccessCodeNotFound)
}

func TestDeleteUserNumericID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	store.SaveJSON(ctx, localstore.KeyUsers, []map[string]any{
		{"id": 5, "username": "bob"},
		{"id": "u2", "username": "eve"},
	})

	sink := &recordingSink{}
	engine := service.NewEngine(store, nil, nil, service.WithEventSink(sink))
	require.NoError(t, engine.Bootstrap(ctx))
	require.Len(t, engine.Users(), 2)

	require.NoError(t, engine.DeleteUser(ctx, "5"))

	users := engine.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID())
	assert.Len(t, store.LoadCollection(ctx, model.KindUser), 1)
	assert.Equal(t, []notify.EventType{notify.EventUserDeleted}, sink.types())

	assert.ErrorIs(t, engine.DeleteUser(ctx, "5"), domain.ErrUserNotFound)
}

func TestBulkDeleteUsers(t *testing.T) {
	ctx := context.Background()
	engine, _ := newLocalEngine(t)

	var created []string
	for _, name := range []string{"a", "b", "c"} {
		u, err := engine.CreateUser(ctx, service.CreateUserInput{Username: name})
		require.NoError(t, err)
		created = append(created, u.ID())
	}

	n, err := engine.BulkDeleteUsers(ctx, []string{created[0], created[2], "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{created[1]}, ids(engine.Users()))

	_, err = engine.BulkDeleteUsers(ctx, []string{"missing"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRoleNormalization(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	store.SaveJSON(ctx, localstore.KeyUsers, []map[string]any{
		{"id": "u1", "username": "bob", "role": "Admin"},
		{"id": "u2", "username": "eve", "role": "USER"},
		{"id": "u3", "username": "kim", "role": "Owner"},
	})
	engine := service.NewEngine(store, nil, nil)
	require.NoError(t, engine.Bootstrap(ctx))

	for _, id := range []string{"u1", "u2", "u3"} {
		for _, flag := range []bool{true, false} {
			u, err := engine.ToggleUserAdmin(ctx, id, flag)
			require.NoError(t, err)
			assert.Contains(t, []string{model.RoleUser, model.RoleAdmin}, u.String("role"))
			assert.Equal(t, flag, u.Bool("isAdmin"))
		}
	}

	u, err := engine.ChangeUserRole(ctx, "u2", "Admin")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.String("role"))

	u, err = engine.ChangeUserRole(ctx, "u2", "user")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.String("role"))

	_, err = engine.ChangeUserRole(ctx, "u2", "superuser")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestBulkSetCompanyAdmins(t *testing.T) {
	ctx := context.Background()
	engine, _ := newLocalEngine(t)

	_, err := engine.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: "BULK"})
	require.NoError(t, err)
	res, err := engine.LaunchCompany(ctx, service.LaunchCompanyInput{
		Name: "Acme", AdminEmail: "a@acme.test", AdminUsername: "acme_admin", AccessCode: "BULK",
	})
	require.NoError(t, err)

	for _, name := range []string{"x", "y"} {
		_, err := engine.CreateUser(ctx, service.CreateUserInput{Username: name, Company: "Acme"})
		require.NoError(t, err)
	}
	_, err = engine.CreateUser(ctx, service.CreateUserInput{Username: "other", Company: "Beta"})
	require.NoError(t, err)

	n, err := engine.BulkSetCompanyAdmins(ctx, res.Company.ID(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = engine.BulkSetCompanyAdmins(ctx, res.Company.ID(), true)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, u := range engine.Users() {
		assert.Equal(t, u.String("company") == "Acme", u.Bool("isAdmin"), u.String("username"))
	}
}

func TestCompanyMutations(t *testing.T) {
	ctx := context.Background()
	engine, _ := newLocalEngine(t)

	_, err := engine.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: "CO"})
	require.NoError(t, err)
	res, err := engine.LaunchCompany(ctx, service.LaunchCompanyInput{
		Name: "Acme", AdminEmail: "a@acme.test", AdminUsername: "acme_admin", AccessCode: "CO",
	})
	require.NoError(t, err)
	id := res.Company.ID()

	t.Run("password", func(t *testing.T) {
		_, err := engine.SetCompanyPassword(ctx, id, service.SetCompanyPasswordInput{Password: "abcd", ConfirmPassword: "abce"})
		assert.ErrorIs(t, err, domain.ErrPasswordsDoNotMatch)

		_, err = engine.SetCompanyPassword(ctx, id, service.SetCompanyPasswordInput{Password: "abc", ConfirmPassword: "abc"})
		assert.ErrorIs(t, err, domain.ErrPasswordTooWeak)

		c, err := engine.SetCompanyPassword(ctx, id, service.SetCompanyPasswordInput{Password: "abcd", ConfirmPassword: "abcd"})
		require.NoError(t, err)
		assert.Equal(t, "abcd", c.String("adminPassword"))
		assert.Equal(t, "abcd", c.String("admin_password"))
	})

	t.Run("api key", func(t *testing.T) {
		_, err := engine.SetCompanyAPIKey(ctx, id, "  ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		c, err := engine.SetCompanyAPIKey(ctx, id, "sk-test")
		require.NoError(t, err)
		assert.Equal(t, "sk-test", c.String("api_key"))
	})

	t.Run("webhooks", func(t *testing.T) {
		_, err := engine.SetCompanyWebhooks(ctx, id, service.CompanyWebhooks{Advisor: "not a url"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		c, err := engine.SetCompanyWebhooks(ctx, id, service.CompanyWebhooks{Advisor: "https://hooks.example.test/advisor"})
		require.NoError(t, err)
		assert.Equal(t, "https://hooks.example.test/advisor", c.String("webhook_advisor_url"))
		assert.Equal(t, "", c.String("webhookEmailUrl"))
	})

	t.Run("suspension", func(t *testing.T) {
		c, err := engine.ToggleCompanySuspension(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusSuspended, c.String("status"))

		c, err = engine.ToggleCompanySuspension(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusActive, c.String("status"))
	})

	t.Run("update keeps id", func(t *testing.T) {
		c, err := engine.UpdateCompany(ctx, id, model.Record{"id": "hijack", "policies": 4})
		require.NoError(t, err)
		assert.Equal(t, id, c.ID())
		assert.Equal(t, 4, engine.Analytics(ctx).TotalPolicies)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := engine.ToggleCompanySuspension(ctx, "company-missing")
		assert.ErrorIs(t, err, domain.ErrCompanyNotFound)
	})
}

func TestUpdateAndDeleteAccessCode(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	engine, _ := newLocalEngine(t, service.WithEventSink(sink))

	code, err := engine.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: "EDIT"})
	require.NoError(t, err)

	status := model.StatusSuspended
	updated, err := engine.UpdateAccessCode(ctx, code.ID(), service.UpdateAccessCodeInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuspended, updated.String("status"))
	assert.Empty(t, engine.ActiveAccessCodes())

	_, err = engine.UpdateAccessCode(ctx, code.ID(), service.UpdateAccessCodeInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, engine.DeleteAccessCode(ctx, code.ID()))
	assert.Empty(t, engine.AccessCodes())
	assert.ErrorIs(t, engine.DeleteAccessCode(ctx, code.ID()), domain.ErrAccessCodeNotFound)

	assert.Equal(t, []notify.EventType{notify.EventAccessCode, notify.EventAccessCodeDeleted}, sink.types())
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	engine, _ := newLocalEngine(t)

	u, err := engine.CreateUser(ctx, service.CreateUserInput{Username: "bob", Password: "old"})
	require.NoError(t, err)

	empty := ""
	email := "bob@example.test"
	admin := true
	updated, err := engine.UpdateUser(ctx, u.ID(), service.UpdateUserInput{Email: &email, Password: &empty, IsAdmin: &admin})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.test", updated.String("email"))
	assert.Equal(t, "old", updated.String("password"))
	assert.True(t, updated.Bool("is_admin"))

	bad := "nope"
	_, err = engine.UpdateUser(ctx, u.ID(), service.UpdateUserInput{Email: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBootstrapMergesAndWritesBack(t *testing.T) {
	ctx := context.Background()
	engine, primary, store := newRemoteEngine(t)

	store.SaveCollection(ctx, model.KindUser, []model.Record{{"id": "u1", "username": "bob"}})
	store.SaveCollection(ctx, model.KindAccessCode, []model.Record{{"id": "code-1", "code": "SHARED", "usedBy": []string{"Acme"}}})

	primary.EXPECT().GetCompanies(gomock.Any()).Return(nil, errOffline)
	primary.EXPECT().GetUsers(gomock.Any()).Return([]model.Record{{"id": "u2", "username": "eve"}}, nil)
	primary.EXPECT().GetAccessCodes(gomock.Any()).Return([]model.Record{
		{"id": 7, "code": "SHARED", "used_by": []any{"Beta"}},
	}, nil)

	primary.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, user model.Record) (model.Record, error) {
			assert.Equal(t, "u1", user.ID())
			return user, nil
		})
	primary.EXPECT().UpdateAccessCode(gomock.Any(), "7", gomock.Any()).DoAndReturn(
		func(ctx context.Context, id string, updates model.Record) (model.Record, error) {
			assert.ElementsMatch(t, []string{"Acme", "Beta"}, updates.Strings("usedBy"))
			return nil, errOffline
		})

	var (
		mu        sync.Mutex
		snapshots []events.Snapshot
	)
	engine.Publisher().Subscribe(func(s events.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, s)
	})

	require.NoError(t, engine.Bootstrap(ctx))
	engine.Wait()

	assert.ElementsMatch(t, []string{"u1", "u2"}, ids(engine.Users()))
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids(store.LoadCollection(ctx, model.KindUser)))

	codes := engine.AccessCodes()
	require.Len(t, codes, 1)
	assert.Equal(t, []string{"Acme", "Beta"}, codes[0].Strings("usedBy"))
	assert.Equal(t, "7", codes[0].ID())

	mu.Lock()
	require.NotEmpty(t, snapshots)
	assert.Len(t, snapshots[0].Users, 2)
	mu.Unlock()

	var stats model.Analytics
	require.True(t, store.LoadJSON(ctx, localstore.KeyAnalytics, &stats))
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalAccessCodes)
}

func TestPollAbsorbsDrift(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	engine := service.NewEngine(store, nil, nil, service.WithPollInterval(10*time.Millisecond))
	require.NoError(t, engine.Bootstrap(ctx))

	mine, err := engine.CreateUser(ctx, service.CreateUserInput{Username: "mine"})
	require.NoError(t, err)

	published := make(chan events.Snapshot, 8)
	engine.Publisher().Subscribe(func(s events.Snapshot) {
		select {
		case published <- s:
		default:
		}
	})

	engine.Start(ctx)
	defer engine.Stop()

	// Another process replaces the stored collection.
	store.SaveCollection(ctx, model.KindUser, []model.Record{{"id": "theirs", "username": "other"}})

	select {
	case snap := <-published:
		assert.ElementsMatch(t, []string{"theirs", mine.ID()}, ids(snap.Users))
	case <-time.After(2 * time.Second):
		t.Fatal("drift was not published")
	}

	assert.Eventually(t, func() bool {
		return len(store.LoadCollection(ctx, model.KindUser)) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestPollKeepsClearedValues(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := service.NewEngine(store, nil, nil, service.WithPollInterval(10*time.Millisecond))
	require.NoError(t, first.Bootstrap(ctx))
	user, err := first.CreateUser(ctx, service.CreateUserInput{Username: "ann", IsAdmin: true})
	require.NoError(t, err)
	code, err := first.CreateAccessCode(ctx, service.CreateAccessCodeInput{Code: "PROMO", Description: "promo"})
	require.NoError(t, err)

	// A second process sharing the store.
	second := service.NewEngine(store, nil, nil)
	require.NoError(t, second.Bootstrap(ctx))

	first.Start(ctx)
	defer first.Stop()

	_, err = second.ToggleUserAdmin(ctx, user.ID(), false)
	require.NoError(t, err)
	empty := ""
	_, err = second.UpdateAccessCode(ctx, code.ID(), service.UpdateAccessCodeInput{Description: &empty})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		users, codes := first.Users(), first.AccessCodes()
		return len(users) == 1 && !users[0].Bool("isAdmin") &&
			len(codes) == 1 && codes[0].String("description") == ""
	}, 2*time.Second, 10*time.Millisecond)

	// Let a few more polls run; the cleared values must not be written back.
	time.Sleep(50 * time.Millisecond)
	storedUsers := store.LoadCollection(ctx, model.KindUser)
	require.Len(t, storedUsers, 1)
	assert.False(t, storedUsers[0].Bool("isAdmin"))
	storedCodes := store.LoadCollection(ctx, model.KindAccessCode)
	require.Len(t, storedCodes, 1)
	assert.Equal(t, "", storedCodes[0].String("description"))
}

func TestBootstrapTakesClearedRemoteValues(t *testing.T) {
	ctx := context.Background()
	engine, primary, store := newRemoteEngine(t)

	store.SaveCollection(ctx, model.KindUser, []model.Record{
		{"id": "u1", "username": "ann", "isAdmin": true, "fullName": "Ann Lee"},
	})

	primary.EXPECT().GetCompanies(gomock.Any()).Return([]model.Record{}, nil)
	primary.EXPECT().GetUsers(gomock.Any()).Return([]model.Record{
		{"id": "u1", "username": "ann", "is_admin": false},
	}, nil)
	primary.EXPECT().GetAccessCodes(gomock.Any()).Return([]model.Record{}, nil)

	require.NoError(t, engine.Bootstrap(ctx))
	engine.Wait()

	users := engine.Users()
	require.Len(t, users, 1)
	assert.False(t, users[0].Bool("isAdmin"))
	// Not sent by the remote, so the local value stays.
	assert.Equal(t, "Ann Lee", users[0].String("fullName"))
}

func TestReconcileTimeout(t *testing.T) {
	engine, primary, _ := newRemoteEngine(t, service.WithReconcileTimeout(20*time.Millisecond))

	blockUntilDone := func(ctx context.Context) ([]model.Record, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	primary.EXPECT().GetCompanies(gomock.Any()).DoAndReturn(blockUntilDone).AnyTimes()
	primary.EXPECT().GetUsers(gomock.Any()).DoAndReturn(blockUntilDone).AnyTimes()
	primary.EXPECT().GetAccessCodes(gomock.Any()).DoAndReturn(blockUntilDone).AnyTimes()

	done := make(chan error, 1)
	go func() { done <- engine.Reconcile(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("reconcile ignored its timeout")
	}
}

func TestPublishedSnapshotsNeverGoBack(t *testing.T) {
	ctx := context.Background()
	engine, _ := newLocalEngine(t)

	var (
		mu    sync.Mutex
		sizes []int
	)
	engine.Publisher().Subscribe(func(s events.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, len(s.Users))
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := engine.CreateUser(ctx, service.CreateUserInput{Username: fmt.Sprintf("user%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sizes, 50)
	for i := 1; i < len(sizes); i++ {
		assert.LessOrEqual(t, sizes[i-1], sizes[i], "snapshot %d is older than the one before it", i)
	}
	assert.Equal(t, 50, sizes[len(sizes)-1])
}

func TestStopWithoutStart(t *testing.T) {
	engine := service.NewEngine(newTestStore(t), nil, nil)
	assert.NotPanics(t, engine.Stop)
}

func TestLocalOnlyBackend(t *testing.T) {
	engine, _ := newLocalEngine(t)
	assert.Equal(t, "local", engine.Backend())
	assert.Equal(t, service.Clean, engine.State(model.KindUser))
	assert.Equal(t, "clean", service.Clean.String())
}

func TestGeneratedIDs(t *testing.T) {
	engine, _ := newLocalEngine(t)
	code, err := engine.CreateAccessCode(context.Background(), service.CreateAccessCodeInput{Code: "IDS"})
	require.NoError(t, err)
	assert.Regexp(t, `^code-`, code.ID())
	assert.Regexp(t, `^user-`, remote.NewID(model.KindUser))
}
