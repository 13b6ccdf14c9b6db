package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/sociusfit/internal/client/api"
	"github.com/dmitrijs2005/sociusfit/internal/client/auth"
	"github.com/dmitrijs2005/sociusfit/internal/client/credentials"
	"github.com/dmitrijs2005/sociusfit/internal/common"
	"github.com/dmitrijs2005/sociusfit/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeAuth struct {
	LoginResp    *api.AuthResponse
	LoginErr     error
	RegisterResp *api.AuthResponse
	RegisterErr  error
	LogoutErr    error

	Calls           int
	LastRegister    api.RegisterRequest
	LastLoginEmail  string
	LastLogoutToken string
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (*api.AuthResponse, error) {
	f.Calls++
	f.LastLoginEmail = email
	return f.LoginResp, f.LoginErr
}

func (f *fakeAuth) Register(_ context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	f.Calls++
	f.LastRegister = req
	return f.RegisterResp, f.RegisterErr
}

func (f *fakeAuth) Logout(_ context.Context, accessToken string) error {
	f.Calls++
	f.LastLogoutToken = accessToken
	return f.LogoutErr
}

type fakeProfile struct {
	User  *api.User
	Err   error
	Calls int
}

func (f *fakeProfile) Me(context.Context) (*api.User, error) {
	f.Calls++
	return f.User, f.Err
}

type fakeNotifier struct {
	handlers []auth.ForcedLogoutHandler
}

func (f *fakeNotifier) OnForcedLogout(h auth.ForcedLogoutHandler) {
	f.handlers = append(f.handlers, h)
}

type brokenClear struct {
	*credentials.MemoryBackend
}

func (brokenClear) Clear(context.Context) error { return errors.New("disk full") }

// ---- helpers ----

type harness struct {
	svc      SessionService
	store    *credentials.Store
	auth     *fakeAuth
	profile  *fakeProfile
	notifier *fakeNotifier
}

func newHarnessWith(t *testing.T, backend credentials.Backend) *harness {
	t.Helper()
	h := &harness{
		store:    credentials.NewStore(context.Background(), backend, logging.Nop()),
		auth:     &fakeAuth{},
		profile:  &fakeProfile{},
		notifier: &fakeNotifier{},
	}
	h.svc = NewSessionService(h.store, h.auth, h.profile, h.notifier, logging.Nop())
	return h
}

func newHarness(t *testing.T, initial credentials.Record) *harness {
	t.Helper()
	return newHarnessWith(t, credentials.NewMemoryBackend(initial))
}

func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

// ---- login ----

func TestLogin_StoresTokens(t *testing.T) {
	h := newHarness(t, credentials.Record{})
	h.auth.LoginResp = &api.AuthResponse{
		AccessToken:  "T1",
		RefreshToken: "R1",
		User:         &api.User{ID: "u1", Email: "a@b.co"},
	}

	sess, err := h.svc.Login(context.Background(), " a@b.co ", "x")

	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, "T1", sess.AccessToken)
	assert.True(t, sess.ExpiresAt.IsZero())
	assert.Equal(t, "a@b.co", h.auth.LastLoginEmail)
	assert.Equal(t, credentials.Record{AccessToken: "T1", RefreshToken: "R1", UserID: "u1"}, h.store.Snapshot())
	assert.True(t, h.svc.IsAuthenticated())

	token, ok := h.svc.GetToken()
	assert.True(t, ok)
	assert.Equal(t, "T1", token)
}

func TestLogin_ReplacesPreviousSession(t *testing.T) {
	h := newHarness(t, credentials.Record{AccessToken: "OLD", RefreshToken: "ROLD", UserID: "u0"})
	h.auth.LoginResp = &api.AuthResponse{AccessToken: "T1", User: &api.User{ID: "u1"}}

	_, err := h.svc.Login(context.Background(), "a@b.co", "x")

	require.NoError(t, err)
	assert.Equal(t, credentials.Record{AccessToken: "T1", UserID: "u1"}, h.store.Snapshot(),
		"a login without refresh token must not keep the old one")
}

func TestLogin_UserIDAndExpiryFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	h := newHarness(t, credentials.Record{})
	h.auth.LoginResp = &api.AuthResponse{AccessToken: signedToken(t, "sub-7", exp)}

	sess, err := h.svc.Login(context.Background(), "a@b.co", "x")

	require.NoError(t, err)
	assert.Equal(t, "sub-7", sess.UserID)
	assert.True(t, exp.Equal(sess.ExpiresAt))
	assert.Equal(t, "sub-7", h.store.Snapshot().UserID)
}

func TestLogin_FailureKeepsStoredCredentials(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"invalid credentials", common.ErrInvalidCredentials},
		{"network", common.ErrNetwork},
		{"server", common.ErrServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := credentials.Record{AccessToken: "OLD", RefreshToken: "ROLD", UserID: "u0"}
			h := newHarness(t, prev)
			h.auth.LoginErr = tt.err

			sess, err := h.svc.Login(context.Background(), "a@b.co", "x")

			assert.Nil(t, sess)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, prev, h.store.Snapshot())
		})
	}
}

func TestLogin_ValidationMakesNoCall(t *testing.T) {
	tests := []struct {
		name, email, password string
		field                 string
	}{
		{"blank email", "  ", "x", "email"},
		{"malformed email", "not-an-email", "x", "email"},
		{"empty password", "a@b.co", "", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, credentials.Record{})

			_, err := h.svc.Login(context.Background(), tt.email, tt.password)

			require.ErrorIs(t, err, common.ErrValidation)
			var verr *common.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, verr.Has(tt.field), verr.Error())
			assert.Zero(t, h.auth.Calls)
		})
	}
}

func TestLogin_StorageFailure(t *testing.T) {
	h := newHarnessWith(t, brokenWrite{credentials.NewMemoryBackend(credentials.Record{})})
	h.auth.LoginResp = &api.AuthResponse{AccessToken: "T1"}

	_, err := h.svc.Login(context.Background(), "a@b.co", "x")

	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
	assert.False(t, h.svc.IsAuthenticated())
}

type brokenWrite struct {
	*credentials.MemoryBackend
}

func (brokenWrite) Write(context.Context, credentials.Record, bool) error {
	return errors.New("read-only")
}

// ---- register ----

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name                         string
		first, last, email, password string
		want                         []string
	}{
		{name: "valid", first: "Ada", last: "Lovelace", email: "ada@example.com", password: "secret123"},
		{name: "short first name", first: "A", last: "Lovelace", email: "ada@example.com", password: "secret123", want: []string{"firstName"}},
		{name: "blank last name", first: "Ada", last: "   ", email: "ada@example.com", password: "secret123", want: []string{"lastName"}},
		{name: "padded short name", first: " A ", last: "Lovelace", email: "ada@example.com", password: "secret123", want: []string{"firstName"}},
		{name: "bad email", first: "Ada", last: "Lovelace", email: "ada@", password: "secret123", want: []string{"email"}},
		{name: "short password", first: "Ada", last: "Lovelace", email: "ada@example.com", password: "abc1", want: []string{"password"}},
		{name: "password without digit", first: "Ada", last: "Lovelace", email: "ada@example.com", password: "longpassword", want: []string{"password"}},
		{name: "everything wrong", first: "", last: "L", email: "x", password: "pw", want: []string{"firstName", "lastName", "email", "password"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, credentials.Record{})
			h.auth.RegisterResp = &api.AuthResponse{AccessToken: "T1", User: &api.User{ID: "u1"}}

			_, err := h.svc.Register(context.Background(), tt.first, tt.last, tt.email, tt.password)

			if tt.want == nil {
				require.NoError(t, err)
				assert.Equal(t, 1, h.auth.Calls)
				return
			}

			var verr *common.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, common.ErrValidation)

			got := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("rejected fields mismatch (-want +got):\n%s", diff)
			}
			assert.Zero(t, h.auth.Calls, "no network call on invalid input")
		})
	}
}

func TestRegister_SendsTrimmedInput(t *testing.T) {
	h := newHarness(t, credentials.Record{})
	h.auth.RegisterResp = &api.AuthResponse{AccessToken: "T1", RefreshToken: "R1", User: &api.User{ID: "u1"}}

	sess, err := h.svc.Register(context.Background(), "  Ada ", "Lovelace ", " ada@example.com", "secret123")

	require.NoError(t, err)
	want := api.RegisterRequest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "secret123"}
	if diff := cmp.Diff(want, h.auth.LastRegister); diff != "" {
		t.Errorf("register request mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, credentials.Record{AccessToken: "T1", RefreshToken: "R1", UserID: "u1"}, h.store.Snapshot())
}

func TestRegister_ConflictKeepsStore(t *testing.T) {
	h := newHarness(t, credentials.Record{})
	h.auth.RegisterErr = common.ErrAlreadyExists

	_, err := h.svc.Register(context.Background(), "Ada", "Lovelace", "ada@example.com", "secret123")

	assert.ErrorIs(t, err, common.ErrAlreadyExists)
	assert.False(t, h.svc.IsAuthenticated())
}

// ---- logout ----

func TestLogout_ClearsEvenWhenRemoteFails(t *testing.T) {
	h := newHarness(t, credentials.Record{AccessToken: "T1", RefreshToken: "R1", UserID: "u1"})
	h.auth.LogoutErr = common.ErrNetwork

	err := h.svc.Logout(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "T1", h.auth.LastLogoutToken)
	assert.True(t, h.store.Snapshot().IsZero())
	assert.False(t, h.svc.IsAuthenticated())

	token, ok := h.svc.GetToken()
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestLogout_CancelledContextStillClears(t *testing.T) {
	h := newHarness(t, credentials.Record{AccessToken: "T1"})
	h.auth.LogoutErr = context.Canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.svc.Logout(ctx))
	assert.False(t, h.svc.IsAuthenticated())
}

func TestLogout_WithoutSessionSkipsRemote(t *testing.T) {
	h := newHarness(t, credentials.Record{})

	require.NoError(t, h.svc.Logout(context.Background()))
	assert.Zero(t, h.auth.Calls)
}

func TestLogout_StorageFailureIsReturned(t *testing.T) {
	h := newHarnessWith(t, brokenClear{credentials.NewMemoryBackend(credentials.Record{AccessToken: "T1"})})

	err := h.svc.Logout(context.Background())

	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
}

// ---- queries ----

func TestCurrentUser(t *testing.T) {
	h := newHarness(t, credentials.Record{})
	_, err := h.svc.CurrentUser(context.Background())
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)
	assert.Zero(t, h.profile.Calls)

	h = newHarness(t, credentials.Record{AccessToken: "T1"})
	h.profile.User = &api.User{ID: "u1", FirstName: "Ada"}
	u, err := h.svc.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.FirstName)
}

func TestOnForcedLogout_RegistersWithCoordinator(t *testing.T) {
	h := newHarness(t, credentials.Record{})
	var got error
	h.svc.OnForcedLogout(func(reason error) { got = reason })

	require.Len(t, h.notifier.handlers, 1)
	h.notifier.handlers[0](common.ErrSessionExpired)
	assert.ErrorIs(t, got, common.ErrSessionExpired)
}
