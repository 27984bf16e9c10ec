package auth

import (
	"context"
	"sync"
	"time"

	"atlasmark.io/internal/audit"
	"atlasmark.io/internal/rbac"
)

// memCredentials is an in-memory CredentialStore keyed by id and email.
type memCredentials struct {
	mu    sync.Mutex
	byID  map[string]*Credential
	byEml map[string]*Credential
}

func newMemCredentials(creds ...*Credential) *memCredentials {
	s := &memCredentials{byID: map[string]*Credential{}, byEml: map[string]*Credential{}}
	for _, c := range creds {
		cp := *c
		s.byID[cp.ID] = &cp
		s.byEml[cp.Email] = &cp
	}
	return s
}

func (s *memCredentials) FindByEmail(_ context.Context, email string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byEml[email]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memCredentials) FindByID(_ context.Context, id string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byID[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memCredentials) Create(_ context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEml[cred.Email]; ok {
		return ErrAlreadyExists
	}
	cp := *cred
	s.byID[cp.ID] = &cp
	s.byEml[cp.Email] = &cp
	return nil
}

func (s *memCredentials) UpdatePassword(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[userID]
	if !ok {
		return ErrNotFound
	}
	c.PasswordHash = hash
	return nil
}

func (s *memCredentials) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[userID]
	if !ok {
		return ErrNotFound
	}
	c.LastLoginAt = &at
	return nil
}

func (s *memCredentials) SetActive(_ context.Context, userID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[userID]
	if !ok {
		return ErrNotFound
	}
	c.IsActive = active
	return nil
}

func (s *memCredentials) setRole(userID string, role rbac.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byID[userID]; ok {
		c.Role = role
	}
}

// memSessions is an in-memory SessionStore keyed by token.
type memSessions struct {
	mu      sync.Mutex
	byToken map[string]*Session
	now     func() time.Time
}

func newMemSessions() *memSessions {
	return &memSessions{byToken: map[string]*Session{}, now: time.Now}
}

func (s *memSessions) Create(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.byToken[cp.Token] = &cp
	return nil
}

func (s *memSessions) FindByToken(_ context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byToken[token]; ok {
		cp := *sess
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memSessions) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byToken[token]; !ok {
		return ErrNotFound
	}
	delete(s.byToken, token)
	return nil
}

func (s *memSessions) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	var n int64
	for token, sess := range s.byToken {
		if !now.Before(sess.ExpiresAt) {
			delete(s.byToken, token)
			n++
		}
	}
	return n, nil
}

func (s *memSessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byToken)
}

// captureSink records audit entries for assertions.
type captureSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *captureSink) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *captureSink) byAction(action string) []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Entry
	for _, e := range s.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

func mustHash(t interface{ Fatalf(string, ...any) }, password string) string {
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}
