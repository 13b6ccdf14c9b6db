package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sociusfit/internal/client/api"
	"github.com/dmitrijs2005/sociusfit/internal/client/credentials"
	"github.com/dmitrijs2005/sociusfit/internal/client/metrics"
	"github.com/dmitrijs2005/sociusfit/internal/client/transport"
	"github.com/dmitrijs2005/sociusfit/internal/common"
	"github.com/dmitrijs2005/sociusfit/internal/logging"
)

const DefaultRefreshTimeout = 10 * time.Second

// maxDrain bounds how much of a discarded 401 body is read before the
// connection is reused.
const maxDrain = 4 << 10

// Refresher exchanges a refresh token for new tokens.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*api.TokenPair, error)
}

// CredentialStore is the part of credentials.Store the coordinator uses.
type CredentialStore interface {
	Snapshot() credentials.Record
	AccessToken() string
	Put(ctx context.Context, rec credentials.Record) error
	Clear(ctx context.Context) error
}

// ForcedLogoutHandler is called after the coordinator cleared the store
// because the session could not be refreshed.
type ForcedLogoutHandler func(reason error)

type Option func(*RefreshCoordinator)

func WithLogger(l logging.Logger) Option {
	return func(c *RefreshCoordinator) {
		c.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *RefreshCoordinator) {
		c.metrics = m
	}
}

// WithRefreshTimeout bounds a single refresh call. The bound is applied on
// a context detached from the caller, so it is the only deadline the
// refresh sees.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *RefreshCoordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithForcedLogoutHandler(h ForcedLogoutHandler) Option {
	return func(c *RefreshCoordinator) {
		c.handlers = append(c.handlers, h)
	}
}

// RefreshCoordinator recovers requests rejected with 401 by refreshing the
// session once and replaying the request.
type RefreshCoordinator struct {
	store     CredentialStore
	refresher Refresher
	logger    logging.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration

	// mu is the refresh critical section.
	mu sync.Mutex

	hmu      sync.RWMutex
	handlers []ForcedLogoutHandler
}

func NewRefreshCoordinator(store CredentialStore, refresher Refresher, opts ...Option) *RefreshCoordinator {
	c := &RefreshCoordinator{
		store:     store,
		refresher: refresher,
		logger:    logging.Nop(),
		timeout:   DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnForcedLogout registers h. Handlers run on the goroutine of the request
// that triggered the logout, after the critical section is released.
func (c *RefreshCoordinator) OnForcedLogout(h ForcedLogoutHandler) {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Interceptor must be placed before the HeaderInjector so the replayed
// request picks up the refreshed token.
func (c *RefreshCoordinator) Interceptor() transport.Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return transport.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return c.roundTrip(next, req)
		})
	}
}

// outcome of the critical section for one failed request.
type outcome int

const (
	giveUp outcome = iota
	retry
	forcedLogout
)

func (c *RefreshCoordinator) roundTrip(next http.RoundTripper, req *http.Request) (*http.Response, error) {
	sent := c.store.AccessToken()

	resp, err := next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || IsAuthEndpoint(req.URL.Path) {
		return resp, err
	}

	ctx := req.Context()
	carried := carriedToken(resp, sent)

	result, reason := c.recoverSession(ctx, carried)
	switch result {
	case forcedLogout:
		c.notify(reason)
		return resp, nil
	case giveUp:
		return resp, nil
	}

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		c.logger.Warn(ctx, "request body cannot be replayed, returning 401",
			"method", req.Method, "path", req.URL.Path)
		return resp, nil
	}
	replay, err := replayable(req)
	if err != nil {
		c.logger.Warn(ctx, "rebuild request failed", "path", req.URL.Path, "error", err)
		return resp, nil
	}
	discard(resp)

	// The replay bypasses this coordinator, so a second 401 is returned as is.
	return next.RoundTrip(replay)
}

// recoverSession runs the refresh critical section for a request that was
// rejected while carrying the token carried.
func (c *RefreshCoordinator) recoverSession(ctx context.Context, carried string) (outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.store.Snapshot()
	if carried == "" && current.AccessToken == "" {
		// Sent without a session; there is nothing to refresh or end.
		return giveUp, nil
	}
	if current.AccessToken != carried {
		if current.AccessToken == "" {
			// A concurrent caller already ended the session.
			return giveUp, nil
		}
		c.metrics.ObserveRefresh(metrics.RefreshSuperseded)
		c.logger.Debug(ctx, "token already refreshed, retrying")
		return retry, nil
	}

	// The refresh must commit even if the caller goes away.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if strings.TrimSpace(current.RefreshToken) == "" {
		c.metrics.ObserveRefresh(metrics.RefreshNoToken)
		return forcedLogout, c.forceLogout(rctx, fmt.Errorf("%w: no refresh token", common.ErrSessionExpired))
	}

	pair, err := c.refresher.Refresh(rctx, current.RefreshToken)
	if err != nil {
		c.metrics.ObserveRefresh(metrics.RefreshFailed)
		return forcedLogout, c.forceLogout(rctx, fmt.Errorf("%w: %w", common.ErrSessionExpired, err))
	}

	update := credentials.Record{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	if err := c.store.Put(rctx, update); err != nil {
		c.metrics.ObserveRefresh(metrics.RefreshFailed)
		return forcedLogout, c.forceLogout(rctx, fmt.Errorf("%w: %w", common.ErrSessionExpired, err))
	}

	c.metrics.ObserveRefresh(metrics.RefreshSucceeded)
	c.logger.Info(ctx, "access token refreshed", "rotated", pair.RefreshToken != "")
	return retry, nil
}

func (c *RefreshCoordinator) forceLogout(ctx context.Context, reason error) error {
	c.logger.Warn(ctx, "session ended, clearing credentials", "reason", reason)
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error(ctx, "clear credentials after failed refresh", "error", err)
		reason = errors.Join(reason, err)
	}
	c.metrics.ObserveForcedLogout()
	return reason
}

func (c *RefreshCoordinator) notify(reason error) {
	c.hmu.RLock()
	handlers := append([]ForcedLogoutHandler(nil), c.handlers...)
	c.hmu.RUnlock()

	for _, h := range handlers {
		h(reason)
	}
}

// carriedToken returns the bearer token the rejected request was sent
// with. resp.Request is the request as it left the chain; sent is the
// stored token read before forwarding.
func carriedToken(resp *http.Response, sent string) string {
	if resp.Request != nil {
		if token, ok := bearerToken(resp.Request.Header.Get(common.AuthorizationHeaderName)); ok {
			return token
		}
	}
	return sent
}

func replayable(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}

func discard(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	_ = resp.Body.Close()
}
