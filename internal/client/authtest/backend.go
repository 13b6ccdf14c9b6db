// Package authtest runs an in-process fake of the SociusFit auth backend
// for tests: login, registration, refresh, logout and a protected /users/me.
package authtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// SigningKey signs the access tokens issued by the fake.
var SigningKey = []byte("authtest-signing-key")

// User is a registered account of the fake.
type User struct {
	ID              string `json:"id"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	ProfileComplete bool   `json:"profileComplete"`
	password        string
}

// Backend is the fake. Exported fields may be changed between requests.
type Backend struct {
	// RotateRefresh makes refresh return a new refresh token.
	RotateRefresh bool
	// OmitRefreshOnLogin makes login/register answer without a refresh token.
	OmitRefreshOnLogin bool
	// RefreshStatus, when non-zero, is returned by /auth/refresh.
	RefreshStatus int
	// RefreshDelay is slept inside /auth/refresh before answering.
	RefreshDelay time.Duration
	// AccessTTL is the lifetime written into issued access tokens.
	AccessTTL time.Duration

	mu       sync.Mutex
	users    map[string]*User  // by email
	access   map[string]string // access token -> user id
	refresh  map[string]string // refresh token -> user id
	calls    map[string]int
	auth     map[string][]string // path -> Authorization headers seen
	byUserID map[string]*User
}

func NewBackend() *Backend {
	return &Backend{
		AccessTTL: 15 * time.Minute,
		users:     make(map[string]*User),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
		calls:     make(map[string]int),
		auth:      make(map[string][]string),
		byUserID:  make(map[string]*User),
	}
}

// Start serves the fake on an httptest server closed at test cleanup.
func (b *Backend) Start(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(b.record)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", b.login)
		r.Post("/register", b.register)
		r.Post("/refresh", b.refreshTokens)
		r.Post("/logout", b.logout)
	})
	r.With(b.requireBearer).Get("/users/me", b.me)
	return r
}

// AddUser registers an account directly.
func (b *Backend) AddUser(firstName, lastName, email, password string) User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.addUserLocked(firstName, lastName, email, password)
}

// IssueSession creates tokens for the user with the given email.
func (b *Backend) IssueSession(email string) (accessToken, refreshToken string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[strings.ToLower(email)]
	return b.issueAccessLocked(u.ID), b.issueRefreshLocked(u.ID)
}

// ExpireAccess makes every outstanding access token invalid.
func (b *Backend) ExpireAccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]string)
}

// RevokeRefresh makes every outstanding refresh token invalid.
func (b *Backend) RevokeRefresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh = make(map[string]string)
}

// Calls returns how many requests hit path.
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// TotalCalls returns the number of requests received.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// AuthHeaders returns the Authorization headers received on path, in order.
func (b *Backend) AuthHeaders(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.auth[path]...)
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.URL.Path]++
		b.auth[r.URL.Path] = append(b.auth[r.URL.Path], r.Header.Get("Authorization"))
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type credentialsBody struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refreshToken"`
}

type authBody struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in credentialsBody
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[strings.ToLower(in.Email)]
	if !ok || u.password != in.Password {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, b.sessionLocked(u))
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in credentialsBody
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[strings.ToLower(in.Email)]; exists {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	u := b.addUserLocked(in.FirstName, in.LastName, in.Email, in.Password)
	writeJSON(w, http.StatusCreated, b.sessionLocked(u))
}

func (b *Backend) refreshTokens(w http.ResponseWriter, r *http.Request) {
	var in credentialsBody
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	delay, status := b.RefreshDelay, b.RefreshStatus
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if status != 0 {
		writeError(w, status, "refresh disabled")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	userID, ok := b.refresh[in.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	out := authBody{AccessToken: b.issueAccessLocked(userID)}
	if b.RotateRefresh {
		delete(b.refresh, in.RefreshToken)
		out.RefreshToken = b.issueRefreshLocked(userID)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	token := bearer(r)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.access[token]; !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	delete(b.access, token)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		userID, err := userIDFromToken(token, SigningKey)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		b.mu.Lock()
		_, live := b.access[token]
		b.mu.Unlock()
		if !live {
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		}
		r.Header.Set("X-User-ID", userID)
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	u := b.byUserID[r.Header.Get("X-User-ID")]
	b.mu.Unlock()
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) addUserLocked(firstName, lastName, email, password string) *User {
	u := &User{
		ID:        uuid.NewString(),
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		password:  password,
	}
	b.users[strings.ToLower(email)] = u
	b.byUserID[u.ID] = u
	return u
}

func (b *Backend) sessionLocked(u *User) authBody {
	out := authBody{AccessToken: b.issueAccessLocked(u.ID), User: u}
	if !b.OmitRefreshOnLogin {
		out.RefreshToken = b.issueRefreshLocked(u.ID)
	}
	return out
}

func (b *Backend) issueAccessLocked(userID string) string {
	signed, err := signAccessToken(userID, SigningKey, b.AccessTTL)
	if err != nil {
		panic(err)
	}
	b.access[signed] = userID
	return signed
}

func (b *Backend) issueRefreshLocked(userID string) string {
	token := newRefreshToken()
	b.refresh[token] = userID
	return token
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
