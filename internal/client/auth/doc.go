// Package auth attaches credentials to outgoing requests and keeps the
// session alive.
//
// HeaderInjector adds the bearer token from the credential store to every
// request that does not target an authentication endpoint.
// RefreshCoordinator watches for 401 answers, refreshes the access token
// once under a mutex, and replays the failed request a single time. When
// the session cannot be refreshed it clears the store and notifies the
// registered forced-logout handlers.
package auth
