// Package transport is the HTTP layer of the client: a JSON request helper
// on top of net/http and a pluggable interceptor chain.
//
// A Client owns a base chain (request id, tracing, logging, metrics). The
// session layer derives a second Client with With, adding the refresh
// coordinator and the auth header injector in front of the base chain, so
// that auth endpoints and protected endpoints share one connection pool.
//
// Non-2xx responses become *StatusError, which unwraps to the common error
// taxonomy; transport failures wrap common.ErrNetwork.
package transport
