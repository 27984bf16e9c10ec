package report

import (
	"context"
	"errors"
	"time"

	"atlasmark.io/internal/rbac"
)

var (
	ErrNotFound     = errors.New("report: not found")
	ErrInvalidInput = errors.New("report: invalid input")
	ErrBranchDenied = errors.New("report: branch access denied")
)

// MediaReport records paid-media activity for one campaign and period.
// Monetary amounts are minor units (cents).
type MediaReport struct {
	ID           string    `json:"id"`
	BranchID     string    `json:"branch_id"`
	CampaignName string    `json:"campaign_name"`
	Channel      string    `json:"channel"`
	Spend        int64     `json:"spend"`
	Impressions  int64     `json:"impressions"`
	Clicks       int64     `json:"clicks"`
	Leads        int64     `json:"leads"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SalesReport records bookings closed by an agent for one period.
type SalesReport struct {
	ID          string    `json:"id"`
	BranchID    string    `json:"branch_id"`
	AgentNumber string    `json:"agent_number"`
	Bookings    int64     `json:"bookings"`
	Revenue     int64     `json:"revenue"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary aggregates both report kinds under the caller's scope.
type Summary struct {
	MediaReports int64 `json:"media_reports"`
	SalesReports int64 `json:"sales_reports"`
	TotalSpend   int64 `json:"total_spend"`
	TotalLeads   int64 `json:"total_leads"`
	TotalRevenue int64 `json:"total_revenue"`
}

// Scope is the complete handshake with the storage layer: the declarative
// data filters plus the caller's identity. The store is responsible for
// translating RestrictToOwn into an authorship predicate and BranchID /
// AgentNumber into column predicates.
type Scope struct {
	rbac.DataFilters
	UserID string
}

// ScopeFor derives the storage scope for a profile.
func ScopeFor(profile *rbac.UserProfile) Scope {
	return Scope{
		DataFilters: rbac.DataFiltersFor(profile),
		UserID:      profile.ID,
	}
}

// Store is the persistence collaborator. Every read takes a Scope; there is
// no unscoped read path.
type Store interface {
	CreateMedia(ctx context.Context, report *MediaReport) error
	ListMedia(ctx context.Context, scope Scope) ([]MediaReport, error)
	GetMedia(ctx context.Context, scope Scope, id string) (*MediaReport, error)
	CreateSales(ctx context.Context, report *SalesReport) error
	ListSales(ctx context.Context, scope Scope) ([]SalesReport, error)
	Summary(ctx context.Context, scope Scope) (Summary, error)
}
