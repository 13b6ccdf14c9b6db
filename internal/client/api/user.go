package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/sociusfit/internal/client/transport"
	"github.com/dmitrijs2005/sociusfit/internal/common"
)

// UserClient calls protected user endpoints. It expects a transport.Client
// carrying the auth header injector and the refresh coordinator, so a 401
// reaching it means the session could not be recovered.
type UserClient struct {
	http *transport.Client
}

func NewUserClient(c *transport.Client) *UserClient {
	return &UserClient{http: c}
}

// Me returns the authenticated user's summary.
func (c *UserClient) Me(ctx context.Context) (*User, error) {
	var out User
	err := c.http.DoJSON(ctx, http.MethodGet, PathMe, nil, &out, nil)
	if err != nil {
		return nil, fmt.Errorf("me: %w", classify(err, map[int]error{
			http.StatusUnauthorized: common.ErrSessionExpired,
		}))
	}
	return &out, nil
}
