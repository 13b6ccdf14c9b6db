// Package api wraps the SociusFit backend endpoints used by the session
// layer. The clients are stateless; every call can be retried by the caller.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/sociusfit/internal/client/transport"
	"github.com/dmitrijs2005/sociusfit/internal/common"
)

// AuthClient calls the authentication endpoints. It must be built on a
// transport.Client without the refresh coordinator in front.
type AuthClient struct {
	http *transport.Client
}

func NewAuthClient(c *transport.Client) *AuthClient {
	return &AuthClient{http: c}
}

// Login exchanges credentials for tokens. A 401/403 answer is reported as
// common.ErrInvalidCredentials.
func (c *AuthClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.http.DoJSON(ctx, http.MethodPost, PathLogin, LoginRequest{Email: email, Password: password}, &out, nil)
	if err != nil {
		return nil, fmt.Errorf("login: %w", classify(err, map[int]error{
			http.StatusUnauthorized: common.ErrInvalidCredentials,
			http.StatusForbidden:    common.ErrInvalidCredentials,
		}))
	}
	if err := out.validate(); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &out, nil
}

// Register creates an account and returns its first session.
func (c *AuthClient) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, PathRegister, req, &out, nil); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if err := out.validate(); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var out TokenPair
	if err := c.http.DoJSON(ctx, http.MethodPost, PathRefresh, RefreshRequest{RefreshToken: refreshToken}, &out, nil); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, fmt.Errorf("refresh: no access token: %w", common.ErrMalformedResponse)
	}
	return &out, nil
}

// Logout asks the backend to invalidate the session of accessToken.
func (c *AuthClient) Logout(ctx context.Context, accessToken string) error {
	var header http.Header
	if accessToken != "" {
		header = http.Header{common.AuthorizationHeaderName: {common.BearerScheme + " " + accessToken}}
	}
	if err := c.http.DoJSON(ctx, http.MethodPost, PathLogout, nil, nil, header); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (r *AuthResponse) validate() error {
	if strings.TrimSpace(r.AccessToken) == "" {
		return fmt.Errorf("no access token: %w", common.ErrMalformedResponse)
	}
	return nil
}

// classify re-tags a *transport.StatusError whose status has an
// endpoint-specific meaning.
func classify(err error, byStatus map[int]error) error {
	var se *transport.StatusError
	if !errors.As(err, &se) {
		return err
	}
	if kind, ok := byStatus[se.Status]; ok {
		return se.WithKind(kind)
	}
	return err
}
