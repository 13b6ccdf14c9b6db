// Package services contains application services for the SociusFit client.
// This file defines the session facade: login, registration, logout and
// the read-only session queries the rest of the application depends on.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/sociusfit/internal/client/api"
	"github.com/dmitrijs2005/sociusfit/internal/client/auth"
	"github.com/dmitrijs2005/sociusfit/internal/client/credentials"
	"github.com/dmitrijs2005/sociusfit/internal/common"
	"github.com/dmitrijs2005/sociusfit/internal/logging"
	"github.com/go-playground/validator/v10"
)

// SessionService is the authentication surface of the client.
//
// Contract:
//   - Login/Register: validate input, call the backend, replace the stored
//     credentials on success. A failure never touches stored credentials.
//   - Logout: best-effort remote logout, then always clear local credentials.
//   - IsAuthenticated/GetToken: non-blocking reads of the stored token.
//   - CurrentUser: protected profile call; it goes through token refresh.
//   - OnForcedLogout: h runs when a session could not be refreshed.
//
// All blocking methods honor context cancellation.
type SessionService interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	Register(ctx context.Context, firstName, lastName, email, password string) (*Session, error)
	Logout(ctx context.Context) error
	IsAuthenticated() bool
	GetToken() (string, bool)
	CurrentUser(ctx context.Context) (*api.User, error)
	OnForcedLogout(h auth.ForcedLogoutHandler)
}

// Session describes a freshly started session.
type Session struct {
	UserID      string
	User        *api.User
	AccessToken string
	// ExpiresAt is read from the access token when it is a JWT; zero otherwise.
	ExpiresAt time.Time
}

// AuthAPI is the subset of api.AuthClient used by the facade.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

// ProfileAPI is the subset of api.UserClient used by the facade.
type ProfileAPI interface {
	Me(ctx context.Context) (*api.User, error)
}

// CredentialStore is the subset of credentials.Store used by the facade.
type CredentialStore interface {
	AccessToken() string
	Replace(ctx context.Context, rec credentials.Record) error
	Clear(ctx context.Context) error
}

// ForcedLogoutSource is implemented by auth.RefreshCoordinator.
type ForcedLogoutSource interface {
	OnForcedLogout(h auth.ForcedLogoutHandler)
}

type sessionService struct {
	store    CredentialStore
	auth     AuthAPI
	profile  ProfileAPI
	refresh  ForcedLogoutSource
	validate *validator.Validate
	logger   logging.Logger
}

// NewSessionService wires the facade. It is created once by the host and
// shared by reference.
func NewSessionService(store CredentialStore, authAPI AuthAPI, profile ProfileAPI, refresh ForcedLogoutSource, logger logging.Logger) SessionService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &sessionService{
		store:    store,
		auth:     authAPI,
		profile:  profile,
		refresh:  refresh,
		validate: newValidator(),
		logger:   logger,
	}
}

func (s *sessionService) Login(ctx context.Context, email, password string) (*Session, error) {
	in := loginInput{Email: strings.TrimSpace(email), Password: password}
	if err := s.check(in); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	resp, err := s.auth.Login(ctx, in.Email, in.Password)
	if err != nil {
		s.logger.Info(ctx, "login failed", "error", err)
		return nil, err
	}
	return s.start(ctx, "login", resp)
}

func (s *sessionService) Register(ctx context.Context, firstName, lastName, email, password string) (*Session, error) {
	in := registrationInput{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.TrimSpace(email),
		Password:  password,
	}
	if err := s.check(in); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	resp, err := s.auth.Register(ctx, api.RegisterRequest{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
	})
	if err != nil {
		s.logger.Info(ctx, "registration failed", "error", err)
		return nil, err
	}
	return s.start(ctx, "register", resp)
}

// start persists the tokens of a successful login or registration.
func (s *sessionService) start(ctx context.Context, op string, resp *api.AuthResponse) (*Session, error) {
	sess := newSession(resp)
	rec := credentials.Record{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       sess.UserID,
	}
	if err := s.store.Replace(ctx, rec); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info(ctx, "session started", "op", op, "user_id", sess.UserID,
		"refreshable", resp.RefreshToken != "")
	return sess, nil
}

func newSession(resp *api.AuthResponse) *Session {
	sess := &Session{User: resp.User, AccessToken: resp.AccessToken}
	if resp.User != nil {
		sess.UserID = resp.User.ID
	}
	if claims, ok := auth.PeekClaims(resp.AccessToken); ok {
		if sess.UserID == "" {
			sess.UserID = claims.Subject
		}
		sess.ExpiresAt = claims.ExpiresAt
	}
	return sess
}

// Logout only fails when local credentials could not be cleared.
func (s *sessionService) Logout(ctx context.Context) error {
	if token := s.store.AccessToken(); token != "" {
		if err := s.auth.Logout(ctx, token); err != nil {
			s.logger.Warn(ctx, "remote logout failed, clearing local session anyway", "error", err)
		}
	}

	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Info(ctx, "logged out")
	return nil
}

func (s *sessionService) IsAuthenticated() bool {
	return s.store.AccessToken() != ""
}

func (s *sessionService) GetToken() (string, bool) {
	token := s.store.AccessToken()
	return token, token != ""
}

func (s *sessionService) CurrentUser(ctx context.Context) (*api.User, error) {
	if !s.IsAuthenticated() {
		return nil, common.ErrNotAuthenticated
	}
	return s.profile.Me(ctx)
}

func (s *sessionService) OnForcedLogout(h auth.ForcedLogoutHandler) {
	s.refresh.OnForcedLogout(h)
}
