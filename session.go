package authclient

import (
	"context"
	"sync"
)

// SessionSnapshot is a consistent token/claims pair. Authenticated is derived
// from the token being present, never stored on its own.
type SessionSnapshot struct {
	Token         string
	Claims        *TokenClaims
	Authenticated bool
}

// SessionStore is the process-wide authoritative record of the current token
// and the identity derived from it. In-memory state and durable storage are
// written under one lock so no reader observes a mismatched pair. Durable
// writes are best effort: memory wins, storage failures are logged.
type SessionStore struct {
	mu       sync.RWMutex
	token    string
	claims   *TokenClaims
	storage  TokenStorage
	logger   Logger
	onChange func(SessionSnapshot)
}

func NewSessionStore(storage TokenStorage) *SessionStore {
	if storage == nil {
		storage = NewMemoryTokenStorage()
	}
	return &SessionStore{
		storage: storage,
		logger:  defLogger{},
	}
}

func (s *SessionStore) WithLogger(logger Logger) *SessionStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithOnChange registers a hook invoked after every session mutation, with
// the snapshot that mutation produced. The UI layer uses it to re-render.
func (s *SessionStore) WithOnChange(fn func(SessionSnapshot)) *SessionStore {
	s.onChange = fn
	return s
}

// Login decodes the token and installs it as the current session, writing
// through to durable storage.
func (s *SessionStore) Login(ctx context.Context, token string) error {
	claims, err := DecodeToken(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	if err := s.storage.Save(ctx, token); err != nil {
		s.logger.Warn("session store failed to persist token: %v", err)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Adopt installs an already-persisted token without writing it back. Used by
// silent reauthentication at process start.
func (s *SessionStore) Adopt(token string) error {
	claims, err := DecodeToken(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Logout clears memory and durable storage. Idempotent: tearing down an
// already-empty session produces no duplicate side effects.
func (s *SessionStore) Logout(ctx context.Context) {
	s.mu.Lock()
	if s.token == "" && s.claims == nil {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.claims = nil
	if err := s.storage.Clear(ctx); err != nil {
		s.logger.Warn("session store failed to clear stored token: %v", err)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

// UpdateIdentity merges partial identity attributes into the current claims
// without touching the token. Known keys (name, email, role) update their
// fields; everything else lands in claim metadata.
func (s *SessionStore) UpdateIdentity(partial map[string]any) {
	if len(partial) == 0 {
		return
	}

	s.mu.Lock()
	if s.claims == nil {
		s.mu.Unlock()
		return
	}
	for key, val := range partial {
		switch key {
		case "name":
			if v, ok := val.(string); ok {
				s.claims.Name = v
			}
		case "email":
			if v, ok := val.(string); ok {
				s.claims.Email = v
			}
		case "role":
			if v, ok := val.(string); ok {
				s.claims.UserRole = v
			}
		default:
			if s.claims.Metadata == nil {
				s.claims.Metadata = map[string]any{}
			}
			s.claims.Metadata[key] = val
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
}

// IsAuthenticated is derived from token presence.
func (s *SessionStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *SessionStore) Claims() *TokenClaims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

// Snapshot returns a consistent view of the session.
func (s *SessionStore) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *SessionStore) snapshotLocked() SessionSnapshot {
	return SessionSnapshot{
		Token:         s.token,
		Claims:        s.claims,
		Authenticated: s.token != "",
	}
}

func (s *SessionStore) notify(snapshot SessionSnapshot) {
	if s.onChange != nil {
		s.onChange(snapshot)
	}
}
