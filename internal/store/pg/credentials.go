package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"atlasmark.io/internal/auth"
)

var _ auth.CredentialStore = (*CredentialStore)(nil)

// CredentialStore implements auth.CredentialStore over the users table.
type CredentialStore struct {
	db *sql.DB
}

const credentialColumns = `id, email, name, password_hash, role, branch_id, agent_number, is_active, created_at, updated_at, last_login_at`

func scanCredential(row interface{ Scan(...any) error }) (*auth.Credential, error) {
	var cred auth.Credential
	err := row.Scan(
		&cred.ID, &cred.Email, &cred.Name, &cred.PasswordHash, &cred.Role,
		&cred.BranchID, &cred.AgentNumber, &cred.IsActive,
		&cred.CreatedAt, &cred.UpdatedAt, &cred.LastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+credentialColumns+` from users where email = $1`, email)
	return scanCredential(row)
}

func (s *CredentialStore) FindByID(ctx context.Context, id string) (*auth.Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+credentialColumns+` from users where id = $1`, id)
	return scanCredential(row)
}

func (s *CredentialStore) Create(ctx context.Context, cred *auth.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users(id, email, name, password_hash, role, branch_id, agent_number, is_active, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		cred.ID, cred.Email, cred.Name, cred.PasswordHash, cred.Role,
		cred.BranchID, cred.AgentNumber, cred.IsActive, cred.CreatedAt, cred.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return auth.ErrAlreadyExists
	}
	return err
}

func (s *CredentialStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash = $2, updated_at = now() where id = $1`,
		userID, passwordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *CredentialStore) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login_at = $2, updated_at = now() where id = $1`,
		userID, at)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *CredentialStore) SetActive(ctx context.Context, userID string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`update users set is_active = $2, updated_at = now() where id = $1`,
		userID, active)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
