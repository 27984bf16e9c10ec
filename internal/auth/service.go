package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"atlasmark.io/internal/audit"
	"atlasmark.io/internal/obs"
	"atlasmark.io/internal/rbac"
)

const defaultSessionTTL = 24 * time.Hour

// Service orchestrates login, logout, password changes and token
// verification. All collaborators are injected; tests run it against
// in-memory fakes.
type Service struct {
	creds      CredentialStore
	sessions   SessionStore
	recorder   *audit.Recorder
	codec      *TokenCodec
	now        func() time.Time
	sessionTTL time.Duration
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithSessionTTL configures session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// NewService constructs the auth service.
func NewService(creds CredentialStore, sessions SessionStore, recorder *audit.Recorder, codec *TokenCodec, opts ...Option) (*Service, error) {
	if creds == nil || sessions == nil || codec == nil {
		return nil, errors.New("auth: credential store, session store and codec are required")
	}
	if recorder == nil {
		recorder = audit.NewRecorder(nil)
	}
	svc := &Service{
		creds:      creds,
		sessions:   sessions,
		recorder:   recorder,
		codec:      codec,
		now:        time.Now,
		sessionTTL: defaultSessionTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// LoginInput carries credentials plus request metadata for the session row.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult bundles the minted token and the freshly built profile.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Profile   *rbac.UserProfile
}

// Login authenticates credentials and opens a new session. Prior sessions for
// the same user stay valid: concurrent sessions are permitted by design.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		obs.CountLogin("failed")
		return LoginResult{}, ErrInvalidCredentials
	}

	cred, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.CountLogin("failed")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !cred.IsActive {
		obs.CountLogin("deactivated")
		return LoginResult{}, ErrAccountDeactivated
	}
	if err := VerifyPassword(cred.PasswordHash, in.Password); err != nil {
		s.recorder.Record(ctx, audit.Entry{
			UserID:    cred.ID,
			UserEmail: cred.Email,
			Action:    audit.ActionLoginFailed,
			Resource:  "session",
			Details:   map[string]any{"reason": "password mismatch"},
			IPAddress: in.IPAddress,
			UserAgent: in.UserAgent,
			BranchID:  cred.BranchID,
		})
		obs.CountLogin("failed")
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.creds.TouchLastLogin(ctx, cred.ID, now); err != nil {
		return LoginResult{}, err
	}
	cred.LastLoginAt = &now

	sessionID := uuid.NewString()
	expiresAt := now.Add(s.sessionTTL)
	token, err := s.codec.Sign(cred.ID, cred.Email, cred.Role, sessionID, now, expiresAt)
	if err != nil {
		return LoginResult{}, err
	}
	session := &Session{
		ID:        sessionID,
		UserID:    cred.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return LoginResult{}, err
	}

	s.recorder.Record(ctx, audit.Entry{
		UserID:     cred.ID,
		UserEmail:  cred.Email,
		Action:     audit.ActionUserLogin,
		Resource:   "session",
		ResourceID: sessionID,
		Details:    map[string]any{"expires_at": expiresAt.Format(time.RFC3339)},
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
		BranchID:   cred.BranchID,
	})
	obs.CountLogin("success")

	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Profile:   ProfileFromCredential(cred),
	}, nil
}

// VerifyToken resolves a token to a fresh profile. Signature validity alone is
// never sufficient: the session row must exist and be unexpired, and the
// profile is rebuilt from the user's current persisted role so a role change
// mid-session takes effect on the next request.
func (s *Service) VerifyToken(ctx context.Context, token string) (*rbac.UserProfile, error) {
	if _, err := s.codec.Verify(token); err != nil {
		return nil, ErrInvalidToken
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !s.now().UTC().Before(session.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	cred, err := s.creds.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !cred.IsActive {
		return nil, ErrInvalidToken
	}
	return ProfileFromCredential(cred), nil
}

// Logout revokes the session matching token. It always reports success, even
// for an unknown or expired token, so logout cannot serve as a validity
// oracle.
func (s *Service) Logout(ctx context.Context, token, ip, userAgent string) error {
	entry := audit.Entry{
		Action:    audit.ActionUserLogout,
		Resource:  "session",
		IPAddress: ip,
		UserAgent: userAgent,
	}
	// Best-effort claim decode only to attribute the audit entry; the claims
	// decide nothing else here.
	if claims, err := s.codec.Verify(token); err == nil {
		entry.UserID = claims.Subject
		entry.UserEmail = claims.Email
		entry.ResourceID = claims.SessionID
	}
	if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
		obs.LogEvent("warn", "session delete failed on logout", map[string]any{"error": err.Error()})
	}
	s.recorder.Record(ctx, entry)
	return nil
}

// ChangePassword verifies the current password and stores a new hash. The
// caller is already authenticated, so a mismatch returns a specific error.
// Existing sessions are intentionally left valid.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	cred, err := s.creds.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(cred.PasswordHash, current); err != nil {
		return ErrPasswordMismatch
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.creds.UpdatePassword(ctx, cred.ID, hash); err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Entry{
		UserID:    cred.ID,
		UserEmail: cred.Email,
		Action:    audit.ActionPasswordChanged,
		Resource:  "user",
		BranchID:  cred.BranchID,
	})
	return nil
}

// SweepExpired deletes expired session rows. Purely an optimization: expiry
// is enforced lazily on every verification.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

// ProfileFromCredential builds a profile with permissions snapshotted from
// the catalog for the credential's current role.
func ProfileFromCredential(cred *Credential) *rbac.UserProfile {
	profile := &rbac.UserProfile{
		ID:          cred.ID,
		Email:       cred.Email,
		Name:        cred.Name,
		Role:        cred.Role,
		BranchID:    cred.BranchID,
		AgentNumber: cred.AgentNumber,
		IsActive:    cred.IsActive,
		CreatedAt:   cred.CreatedAt,
		UpdatedAt:   cred.UpdatedAt,
		LastLoginAt: cred.LastLoginAt,
	}
	profile.AttachPermissions()
	return profile
}
