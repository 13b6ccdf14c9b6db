package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

func TestIsAuthEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/auth/login", true},
		{"/auth/register", true},
		{"/auth/refresh", true},
		{"/auth/oauth/google", true},
		{"/auth/logout", false},
		{"/users/me", false},
		{"/workouts/42", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthEndpoint(tt.path))
		})
	}
}

func newRequest(t *testing.T, path string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://api.test"+path, nil)
	require.NoError(t, err)
	return req
}

func TestInject(t *testing.T) {
	tests := []struct {
		name  string
		token string
		path  string
		want  string
	}{
		{name: "protected with token", token: "T1", path: "/users/me", want: "Bearer T1"},
		{name: "protected without token", token: "", path: "/users/me", want: ""},
		{name: "blank token", token: "  ", path: "/users/me", want: ""},
		{name: "login", token: "T1", path: "/auth/login", want: ""},
		{name: "refresh", token: "T1", path: "/auth/refresh", want: ""},
		{name: "logout carries token", token: "T1", path: "/auth/logout", want: "Bearer T1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, tt.path)
			got := NewHeaderInjector(staticToken(tt.token)).Inject(req)

			assert.Equal(t, tt.want, got.Header.Get("Authorization"))
			assert.Empty(t, req.Header.Get("Authorization"), "caller's request must not change")
		})
	}
}

func TestInject_IsIdempotent(t *testing.T) {
	h := NewHeaderInjector(staticToken("T1"))

	once := h.Inject(newRequest(t, "/users/me"))
	twice := h.Inject(once)

	assert.Same(t, once, twice)
	assert.Equal(t, []string{"Bearer T1"}, twice.Header.Values("Authorization"))
}

func TestInject_ReplacesStaleHeader(t *testing.T) {
	req := newRequest(t, "/users/me")
	req.Header.Set("Authorization", "Bearer OLD")

	got := NewHeaderInjector(staticToken("NEW")).Inject(req)

	assert.Equal(t, "Bearer NEW", got.Header.Get("Authorization"))
	assert.Equal(t, "Bearer OLD", req.Header.Get("Authorization"))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"", "", false},
		{"Bearer", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
