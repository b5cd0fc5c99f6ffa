// Package session owns the owner credential lifecycle: one persisted slot,
// one in-memory copy, and the login/logout operations that keep the two and
// the API client in step.
package session

import (
	"context"
	"os"
	"strings"
	"sync"

	"tavolo/internal/bookingapi"
)

// FileStore persists the credential as a single file. Absence of the file
// means unauthenticated.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed credential store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Get(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (f *FileStore) Set(_ context.Context, token string) error {
	return os.WriteFile(f.path, []byte(token), 0o600)
}

func (f *FileStore) Clear(_ context.Context) error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Store is the single source of truth for "is there a logged-in owner".
// All credential writes funnel through the API client, which owns the one
// code path touching the persisted slot, so memory and disk cannot diverge.
type Store struct {
	client *bookingapi.Client

	mu    sync.RWMutex
	token string

	subsMu      sync.Mutex
	subscribers []func(token string)

	ready chan struct{}
}

// NewStore builds a store bound to the given client and adopts any
// persisted credential as initial state. The client has already installed
// that credential on itself during construction; re-installing here is
// idempotent.
func NewStore(client *bookingapi.Client) *Store {
	s := &Store{
		client: client,
		ready:  make(chan struct{}),
	}
	if saved := client.Credential(); saved != "" {
		s.token = saved
	}
	close(s.ready)
	return s
}

// Ready is closed once initialization from the persisted slot finished.
// The route guard waits on it (bounded by a grace interval) before deciding.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Token returns the current credential, or "" when unauthenticated. The
// read is synchronous: a caller running right after Login observes the new
// value with no intermediate absent state.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a credential is present. Presence only;
// validity is enforced by the remote API on each request.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// Login installs token as the current credential and propagates it to the
// API client (header + persisted slot) before returning.
func (s *Store) Login(ctx context.Context, token string) error {
	if err := s.client.SetCredential(ctx, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.notify(token)
	return nil
}

// Logout clears the credential everywhere. Logging out while already
// unauthenticated is a no-op.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.client.ClearCredential(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.notify("")
	return nil
}

// Subscribe registers fn to run after every credential change.
func (s *Store) Subscribe(fn func(token string)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) notify(token string) {
	s.subsMu.Lock()
	subs := make([]func(string), len(s.subscribers))
	copy(subs, s.subscribers)
	s.subsMu.Unlock()
	for _, fn := range subs {
		fn(token)
	}
}
