package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/sociusfit/internal/client/api"
	"github.com/dmitrijs2005/sociusfit/internal/client/authtest"
	"github.com/dmitrijs2005/sociusfit/internal/client/transport"
	"github.com/dmitrijs2005/sociusfit/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthClient(t *testing.T, url string) *api.AuthClient {
	t.Helper()
	c, err := transport.New(url)
	require.NoError(t, err)
	return api.NewAuthClient(c)
}

func stub(t *testing.T, status int, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestLogin_Success(t *testing.T) {
	url := stub(t, http.StatusOK, `{"accessToken":"T1","refreshToken":"R1","user":{"id":"u1","firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","profileComplete":true}}`)

	resp, err := newAuthClient(t, url).Login(context.Background(), "ada@example.com", "secret123")

	require.NoError(t, err)
	assert.Equal(t, "T1", resp.AccessToken)
	assert.Equal(t, "R1", resp.RefreshToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, api.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", ProfileComplete: true}, *resp.User)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{"bad password", http.StatusUnauthorized, `{"message":"invalid email or password"}`, common.ErrInvalidCredentials, "invalid email or password"},
		{"forbidden", http.StatusForbidden, ``, common.ErrInvalidCredentials, ""},
		{"server", http.StatusBadGateway, `upstream down`, common.ErrServer, ""},
		{"rejected", http.StatusBadRequest, `{"message":"email required"}`, common.ErrRequestRejected, "email required"},
		{"no token", http.StatusOK, `{"refreshToken":"R1"}`, common.ErrMalformedResponse, ""},
		{"not json", http.StatusOK, `<html>`, common.ErrMalformedResponse, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newAuthClient(t, stub(t, tt.status, tt.body)).Login(context.Background(), "a@b.co", "x")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			if tt.message != "" {
				var se *transport.StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tt.status, se.Status)
				assert.Equal(t, tt.message, se.Message)
			}
		})
	}
}

func TestRegister_AgainstBackend(t *testing.T) {
	backend := authtest.NewBackend()
	c := newAuthClient(t, backend.Start(t).URL)
	req := api.RegisterRequest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "secret123"}

	resp, err := c.Register(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Ada", resp.User.FirstName)

	_, err = c.Register(context.Background(), req)
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
}

func TestRefresh(t *testing.T) {
	backend := authtest.NewBackend()
	backend.AddUser("Ada", "Lovelace", "ada@example.com", "secret123")
	_, refresh := backend.IssueSession("ada@example.com")
	c := newAuthClient(t, backend.Start(t).URL)

	pair, err := c.Refresh(context.Background(), refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Empty(t, pair.RefreshToken, "not rotated")

	_, err = c.Refresh(context.Background(), "unknown")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestRefresh_MissingAccessToken(t *testing.T) {
	_, err := newAuthClient(t, stub(t, http.StatusOK, `{"refreshToken":"R2"}`)).Refresh(context.Background(), "R1")

	assert.ErrorIs(t, err, common.ErrMalformedResponse)
	assert.ErrorIs(t, err, common.ErrServer)
}

func TestLogout_SendsBearer(t *testing.T) {
	backend := authtest.NewBackend()
	backend.AddUser("Ada", "Lovelace", "ada@example.com", "secret123")
	access, _ := backend.IssueSession("ada@example.com")
	c := newAuthClient(t, backend.Start(t).URL)

	require.NoError(t, c.Logout(context.Background(), access))
	assert.Equal(t, []string{"Bearer " + access}, backend.AuthHeaders(api.PathLogout))

	err := c.Logout(context.Background(), access)
	assert.ErrorIs(t, err, common.ErrUnauthorized, "token already invalidated")
}

func TestMe(t *testing.T) {
	backend := authtest.NewBackend()
	backend.AddUser("Ada", "Lovelace", "ada@example.com", "secret123")
	access, _ := backend.IssueSession("ada@example.com")
	srv := backend.Start(t)

	base, err := transport.New(srv.URL)
	require.NoError(t, err)
	withToken := func(token string) transport.Interceptor {
		return func(next http.RoundTripper) http.RoundTripper {
			return transport.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
				req = req.Clone(req.Context())
				req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
				return next.RoundTrip(req)
			})
		}
	}

	me, err := api.NewUserClient(base.With(withToken(access))).Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	_, err = api.NewUserClient(base.With(withToken("stale"))).Me(context.Background())
	assert.ErrorIs(t, err, common.ErrSessionExpired)
}
