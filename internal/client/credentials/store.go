package credentials

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/sociusfit/internal/common"
	"github.com/dmitrijs2005/sociusfit/internal/logging"
)

// Store is the Credential Store. It is safe for concurrent use.
type Store struct {
	backend Backend
	logger  logging.Logger

	// mu serialises writes and guards subs; cache is read without it.
	mu    sync.Mutex
	cache atomic.Pointer[Record]
	subs  map[chan string]struct{}
}

// NewStore loads the persisted record into memory. A failed load is logged
// as storage-unavailable and leaves the store empty, which read paths treat
// as logged out; the next successful Get repopulates it.
func NewStore(ctx context.Context, backend Backend, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Store{
		backend: backend,
		logger:  logger.With("component", "credentials"),
		subs:    make(map[chan string]struct{}),
	}
	s.cache.Store(&Record{})

	if _, err := s.Get(ctx); err != nil {
		s.logger.Error(ctx, "initial credential load failed", "error", err)
	}
	return s
}

// Get reads the backend and returns the current record.
func (s *Store) Get(ctx context.Context) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Warn(ctx, "credential storage unavailable", "op", "get", "error", err)
		return Record{}, fmt.Errorf("load credentials: %w: %w", common.ErrStorageUnavailable, err)
	}
	s.swap(rec.normalized())
	return rec.normalized(), nil
}

// Snapshot returns the in-memory record without touching the backend.
func (s *Store) Snapshot() Record {
	return *s.cache.Load()
}

// AccessToken returns the cached access token. It never blocks.
func (s *Store) AccessToken() string {
	return s.cache.Load().AccessToken
}

// Authenticated reports whether a non-blank access token is cached.
func (s *Store) Authenticated() bool {
	return s.cache.Load().Authenticated()
}

// Put writes the non-empty fields of rec and keeps the others.
func (s *Store) Put(ctx context.Context, rec Record) error {
	return s.write(ctx, "put", rec.normalized(), false)
}

// Replace overwrites the whole record; fields empty in rec are removed.
func (s *Store) Replace(ctx context.Context, rec Record) error {
	return s.write(ctx, "replace", rec.normalized(), true)
}

// Clear removes every field.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Clear(ctx); err != nil {
		s.logger.Warn(ctx, "credential storage unavailable", "op", "clear", "error", err)
		return fmt.Errorf("clear credentials: %w: %w", common.ErrStorageUnavailable, err)
	}
	s.swap(Record{})
	return nil
}

func (s *Store) write(ctx context.Context, op string, rec Record, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Write(ctx, rec, replace); err != nil {
		s.logger.Warn(ctx, "credential storage unavailable", "op", op, "error", err)
		return fmt.Errorf("%s credentials: %w: %w", op, common.ErrStorageUnavailable, err)
	}

	next := rec
	if !replace {
		next = s.cache.Load().merge(rec)
	}
	s.swap(next)
	return nil
}

// swap installs next and notifies observers if the access token changed.
// Callers hold mu.
func (s *Store) swap(next Record) {
	prev := s.cache.Swap(&next)
	if prev.AccessToken == next.AccessToken {
		return
	}
	for ch := range s.subs {
		offer(ch, next.AccessToken)
	}
}

// Observe streams the access token: the current value first, then every
// change, until ctx is done. The channel is closed afterwards. Observe can be
// called again at any time to resubscribe.
func (s *Store) Observe(ctx context.Context) <-chan string {
	ch := make(chan string, 1)

	s.mu.Lock()
	ch <- s.cache.Load().AccessToken
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// offer delivers v, replacing a value the subscriber has not read yet.
func offer(ch chan string, v string) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
