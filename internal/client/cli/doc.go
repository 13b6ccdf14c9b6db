// Package cli provides the SociusFit command-line client.
//
// It wires configuration, the local session database, the HTTP transport
// with token refresh, and the session service, then exposes them as cobra
// commands:
//
//   - register: create an account and start a session
//   - login / logout
//   - status: show whether a session is stored and when its token expires
//   - me: fetch the signed-in user's profile (refreshes the token if needed)
//
// Every invocation builds a fresh App from the configuration and closes it
// when the command returns. The session survives between invocations in
// the SQLite database.
package cli
