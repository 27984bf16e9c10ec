package auth

import (
	"context"
	"time"

	"atlasmark.io/internal/rbac"
)

// Credential is the persisted user record as the credential store sees it.
type Credential struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         rbac.Role
	BranchID     *string
	AgentNumber  *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// Session is persisted proof that a login remains valid. The row, not the
// token's embedded claims, is the single source of truth for validity and
// revocation. A session past ExpiresAt is logically invalid even before any
// sweep deletes it.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// CredentialStore looks up and maintains stored credentials.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	FindByID(ctx context.Context, id string) (*Credential, error)
	Create(ctx context.Context, cred *Credential) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
	SetActive(ctx context.Context, userID string, active bool) error
}

// SessionStore persists session records keyed by the exact token string.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	FindByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
