package auth

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/sociusfit/internal/client/transport"
	"github.com/dmitrijs2005/sociusfit/internal/common"
)

// TokenSource returns the current access token without blocking.
type TokenSource interface {
	AccessToken() string
}

type HeaderInjector struct {
	tokens TokenSource
}

func NewHeaderInjector(tokens TokenSource) *HeaderInjector {
	return &HeaderInjector{tokens: tokens}
}

// Inject returns req with "Authorization: Bearer <token>" set. Requests to
// auth endpoints and requests made while no token is stored are returned
// as they are. req itself is never modified.
func (h *HeaderInjector) Inject(req *http.Request) *http.Request {
	if IsAuthEndpoint(req.URL.Path) {
		return req
	}
	token := strings.TrimSpace(h.tokens.AccessToken())
	if token == "" {
		return req
	}

	value := bearerValue(token)
	if req.Header.Get(common.AuthorizationHeaderName) == value {
		return req
	}
	clone := req.Clone(req.Context())
	clone.Header.Set(common.AuthorizationHeaderName, value)
	return clone
}

func (h *HeaderInjector) Interceptor() transport.Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return transport.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return next.RoundTrip(h.Inject(req))
		})
	}
}

func bearerValue(token string) string {
	return common.BearerScheme + " " + token
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	return strings.TrimSpace(token), true
}
