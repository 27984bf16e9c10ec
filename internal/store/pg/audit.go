package pg

import (
	"context"
	"database/sql"
	"encoding/json"

	"atlasmark.io/internal/audit"
	"atlasmark.io/internal/ids"
)

var _ audit.Sink = (*AuditStore)(nil)

// AuditStore appends entries to the audit_log table. Rows are never updated
// or deleted; there is intentionally no write path for either.
type AuditStore struct {
	db *sql.DB
}

func (s *AuditStore) Append(ctx context.Context, entry *audit.Entry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into audit_log(id, user_id, user_email, action, resource, resource_id, details, ip_address, user_agent, branch_id, occurred_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		entry.ID, entry.UserID, entry.UserEmail, entry.Action, entry.Resource,
		entry.ResourceID, details, entry.IPAddress, entry.UserAgent,
		entry.BranchID, entry.OccurredAt,
	)
	return err
}
