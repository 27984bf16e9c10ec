package pg

import (
	"context"
	"database/sql"
	"errors"

	"atlasmark.io/internal/auth"
)

var _ auth.SessionStore = (*SessionStore)(nil)

// SessionStore implements auth.SessionStore over the sessions table. The row
// keyed by the exact token string is authoritative for revocation.
type SessionStore struct {
	db *sql.DB
}

func (s *SessionStore) Create(ctx context.Context, session *auth.Session) error {
	_, err := s.db.ExecContext(ctx, `
		insert into sessions(id, user_id, token, expires_at, ip_address, user_agent, created_at)
		values ($1,$2,$3,$4,$5,$6,$7)`,
		session.ID, session.UserID, session.Token, session.ExpiresAt,
		session.IPAddress, session.UserAgent, session.CreatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return auth.ErrAlreadyExists
	}
	return err
}

func (s *SessionStore) FindByToken(ctx context.Context, token string) (*auth.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, user_id, token, expires_at, ip_address, user_agent, created_at
		from sessions where token = $1`, token)
	var session auth.Session
	err := row.Scan(
		&session.ID, &session.UserID, &session.Token, &session.ExpiresAt,
		&session.IPAddress, &session.UserAgent, &session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `delete from sessions where token = $1`, token)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from sessions where expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
