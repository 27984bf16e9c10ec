package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"atlasmark.io/internal/rbac"
)

const defaultIssuer = "atlasmark"

// Claims are the session token payload. The signature proves origin only:
// the session row is authoritative for revocation, and role/email here are
// never used as authorization inputs.
type Claims struct {
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	SessionID string    `json:"sid"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies compact session tokens using HS256.
type TokenCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenCodec builds a codec from the signing secret loaded at startup.
func NewTokenCodec(secret string) (*TokenCodec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	return &TokenCodec{secret: []byte(secret), issuer: defaultIssuer, now: time.Now}, nil
}

// WithClock overrides the time source used for expiry checks so the codec
// and the surrounding service can share one clock in tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// Sign mints a token for the given identity and session.
func (c *TokenCodec) Sign(userID, email string, role rbac.Role, sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("auth: userID is required")
	}
	if !expiresAt.After(issuedAt) {
		return "", errors.New("auth: expiry must be after issue time")
	}
	claims := Claims{
		Email:     email,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt.UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks the signature and required claims. Any failure collapses to
// ErrInvalidToken; callers never learn which check tripped.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != c.issuer {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || c.now().UTC().After(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
