package audit

import (
	"context"
	"encoding/json"
	"time"

	"atlasmark.io/internal/obs"
)

// Security-relevant actions recorded by the core.
const (
	ActionUserLogin          = "USER_LOGIN"
	ActionLoginFailed        = "LOGIN_FAILED"
	ActionUserLogout         = "USER_LOGOUT"
	ActionPasswordChanged    = "PASSWORD_CHANGED"
	ActionPermissionDenied   = "PERMISSION_DENIED"
	ActionRoleAccessDenied   = "ROLE_ACCESS_DENIED"
	ActionBranchAccessDenied = "BRANCH_ACCESS_DENIED"
	ActionUserCreated        = "USER_CREATED"
	ActionUserDeactivated    = "USER_DEACTIVATED"
)

// Entry is an immutable record of one security-relevant event. Entries are
// never mutated or deleted once written.
type Entry struct {
	ID         string         `json:"id,omitempty"`
	UserID     string         `json:"user_id"`
	UserEmail  string         `json:"user_email"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	BranchID   *string        `json:"branch_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Sink appends entries to an append-only log.
type Sink interface {
	Append(ctx context.Context, entry *Entry) error
}

// Recorder wraps a Sink with fire-and-forget semantics: a failed write is
// logged locally and counted, never propagated, so audit logging cannot
// abort or delay the decision that triggered it.
type Recorder struct {
	sink Sink
	now  func() time.Time
}

// NewRecorder builds a Recorder. A nil sink falls back to the log sink.
func NewRecorder(sink Sink) *Recorder {
	if sink == nil {
		sink = LogSink{}
	}
	return &Recorder{sink: sink, now: time.Now}
}

// WithClock overrides the time source. Used by tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	if now != nil {
		r.now = now
	}
	return r
}

// Record appends the entry, stamping OccurredAt if unset. Errors are swallowed.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = r.now().UTC()
	}
	if err := r.sink.Append(ctx, &entry); err != nil {
		obs.CountAuditDrop()
		obs.LogEvent("error", "audit append failed", map[string]any{
			"action": entry.Action,
			"error":  err.Error(),
		})
	}
}

// LogSink writes entries as JSON lines through the shared logger. It is the
// default sink for local development and the fallback when no database is
// configured.
type LogSink struct{}

func (LogSink) Append(_ context.Context, entry *Entry) error {
	payload := map[string]any{
		"ts":     entry.OccurredAt.Format(time.RFC3339Nano),
		"type":   "audit",
		"action": entry.Action,
	}
	if entry.UserID != "" {
		payload["user_id"] = entry.UserID
	}
	if entry.UserEmail != "" {
		payload["user_email"] = entry.UserEmail
	}
	if entry.Resource != "" {
		payload["resource"] = entry.Resource
	}
	if entry.ResourceID != "" {
		payload["resource_id"] = entry.ResourceID
	}
	if entry.IPAddress != "" {
		payload["ip_address"] = entry.IPAddress
	}
	if entry.BranchID != nil {
		payload["branch_id"] = *entry.BranchID
	}
	if len(entry.Details) > 0 {
		payload["details"] = entry.Details
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
