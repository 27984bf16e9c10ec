package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store bundles the PostgreSQL-backed collaborators behind one pool.
type Store struct {
	db *sql.DB
}

// Open connects with tuned pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing pool. Used by tests with sqlmock.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Credentials returns the credential store view.
func (s *Store) Credentials() *CredentialStore { return &CredentialStore{db: s.db} }

// Sessions returns the session store view.
func (s *Store) Sessions() *SessionStore { return &SessionStore{db: s.db} }

// Audit returns the append-only audit sink view.
func (s *Store) Audit() *AuditStore { return &AuditStore{db: s.db} }

// Reports returns the report store view.
func (s *Store) Reports() *ReportStore { return &ReportStore{db: s.db} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
