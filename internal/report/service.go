package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"atlasmark.io/internal/ids"
	"atlasmark.io/internal/rbac"
)

// Service validates report input and applies per-caller scoping before the
// store sees anything.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs the report service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("report: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// WithClock overrides the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// canFileFor reports whether the actor may author reports for the branch.
// Roles that are not branch-scoped (media buyers work across branches) file
// anywhere; what they read back is still confined by authorship scoping.
func canFileFor(actor *rbac.UserProfile, branchID string) bool {
	if actor == nil {
		return false
	}
	if !actor.Role.BranchScoped() {
		return true
	}
	return rbac.CanAccessBranch(actor, branchID)
}

// CreateMediaInput is the payload for a new media report.
type CreateMediaInput struct {
	BranchID     string
	CampaignName string
	Channel      string
	Spend        int64
	Impressions  int64
	Clicks       int64
	Leads        int64
	PeriodStart  time.Time
	PeriodEnd    time.Time
}

// CreateMedia validates and persists a media report authored by the caller.
func (s *Service) CreateMedia(ctx context.Context, actor *rbac.UserProfile, in CreateMediaInput) (*MediaReport, error) {
	if strings.TrimSpace(in.CampaignName) == "" {
		return nil, fmt.Errorf("%w: campaign_name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.BranchID) == "" {
		return nil, fmt.Errorf("%w: branch_id is required", ErrInvalidInput)
	}
	if in.Spend < 0 || in.Impressions < 0 || in.Clicks < 0 || in.Leads < 0 {
		return nil, fmt.Errorf("%w: metrics must be >= 0", ErrInvalidInput)
	}
	if !in.PeriodEnd.After(in.PeriodStart) {
		return nil, fmt.Errorf("%w: period_end must be after period_start", ErrInvalidInput)
	}
	if !canFileFor(actor, in.BranchID) {
		return nil, ErrBranchDenied
	}

	now := s.now().UTC()
	rep := &MediaReport{
		ID:           ids.New(),
		BranchID:     in.BranchID,
		CampaignName: strings.TrimSpace(in.CampaignName),
		Channel:      strings.ToLower(strings.TrimSpace(in.Channel)),
		Spend:        in.Spend,
		Impressions:  in.Impressions,
		Clicks:       in.Clicks,
		Leads:        in.Leads,
		PeriodStart:  in.PeriodStart,
		PeriodEnd:    in.PeriodEnd,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateMedia(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// ListMedia returns media reports visible under the caller's scope.
func (s *Service) ListMedia(ctx context.Context, actor *rbac.UserProfile) ([]MediaReport, error) {
	return s.store.ListMedia(ctx, ScopeFor(actor))
}

// GetMedia returns a single media report if it falls inside the caller's scope.
func (s *Service) GetMedia(ctx context.Context, actor *rbac.UserProfile, id string) (*MediaReport, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: report id is required", ErrInvalidInput)
	}
	return s.store.GetMedia(ctx, ScopeFor(actor), id)
}

// CreateSalesInput is the payload for a new sales report.
type CreateSalesInput struct {
	BranchID    string
	AgentNumber string
	Bookings    int64
	Revenue     int64
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// CreateSales validates and persists a sales report authored by the caller.
// A sales agent may only file under their own agent number.
func (s *Service) CreateSales(ctx context.Context, actor *rbac.UserProfile, in CreateSalesInput) (*SalesReport, error) {
	if strings.TrimSpace(in.BranchID) == "" {
		return nil, fmt.Errorf("%w: branch_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.AgentNumber) == "" {
		return nil, fmt.Errorf("%w: agent_number is required", ErrInvalidInput)
	}
	if in.Bookings < 0 || in.Revenue < 0 {
		return nil, fmt.Errorf("%w: metrics must be >= 0", ErrInvalidInput)
	}
	if !in.PeriodEnd.After(in.PeriodStart) {
		return nil, fmt.Errorf("%w: period_end must be after period_start", ErrInvalidInput)
	}
	if !canFileFor(actor, in.BranchID) {
		return nil, ErrBranchDenied
	}
	if actor.Role == rbac.RoleSalesAgent {
		if actor.AgentNumber == nil || *actor.AgentNumber != in.AgentNumber {
			return nil, fmt.Errorf("%w: agents may only file under their own agent number", ErrInvalidInput)
		}
	}

	now := s.now().UTC()
	rep := &SalesReport{
		ID:          ids.New(),
		BranchID:    in.BranchID,
		AgentNumber: strings.TrimSpace(in.AgentNumber),
		Bookings:    in.Bookings,
		Revenue:     in.Revenue,
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateSales(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// ListSales returns sales reports visible under the caller's scope.
func (s *Service) ListSales(ctx context.Context, actor *rbac.UserProfile) ([]SalesReport, error) {
	return s.store.ListSales(ctx, ScopeFor(actor))
}

// Summary aggregates the caller's visible reports for dashboards.
func (s *Service) Summary(ctx context.Context, actor *rbac.UserProfile) (Summary, error) {
	return s.store.Summary(ctx, ScopeFor(actor))
}

// BranchSummary aggregates one branch. Branch visibility must be checked
// upstream; the caller's own scope still applies on top, so an
// authorship-restricted caller sees only their rows even here.
func (s *Service) BranchSummary(ctx context.Context, actor *rbac.UserProfile, branchID string) (Summary, error) {
	branchID = strings.TrimSpace(branchID)
	if branchID == "" {
		return Summary{}, fmt.Errorf("%w: branch_id is required", ErrInvalidInput)
	}
	scope := ScopeFor(actor)
	scope.BranchID = &branchID
	return s.store.Summary(ctx, scope)
}
