// Package credentials is the client's Credential Store: the single owner of
// the access token, refresh token and user id of the current session.
//
// # Layout
//
// A Store keeps an in-memory copy of the Record in front of a durable
// Backend. Writes (Put, Replace, Clear) go to the backend first and update
// the copy only when the backend accepted them, under one mutex, so readers
// never see a half-written record. AccessToken reads the copy without
// locking and is the path used by the HTTP interceptors.
//
// Backends:
//   - MemoryBackend: process-local, used by tests and throwaway sessions.
//   - SQLiteBackend: the metadata table of the client database, optionally
//     sealed with cryptox.Sealer.
//
// # Errors
//
// Any backend failure is reported wrapped in common.ErrStorageUnavailable;
// it is never turned into an empty record with a nil error.
//
// # Observing
//
// Observe returns a channel that first yields the current access token and
// then every change. A slow reader only ever sees the newest value.
package credentials
