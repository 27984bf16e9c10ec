package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"atlasmark.io/internal/report"
)

var _ report.Store = (*ReportStore)(nil)

// ReportStore implements report.Store. This is where the declarative scope
// becomes SQL: RestrictToOwn turns into an authorship predicate, BranchID and
// AgentNumber into column predicates. Scoped reads have no bypass.
type ReportStore struct {
	db *sql.DB
}

// scopeClause renders the scope as a WHERE fragment starting at argument
// position firstArg. An empty scope yields no predicate (full visibility).
func scopeClause(scope report.Scope, firstArg int, agentColumn bool) (string, []any) {
	var (
		conds []string
		args  []any
		pos   = firstArg
	)
	if scope.BranchID != nil {
		conds = append(conds, fmt.Sprintf("branch_id = $%d", pos))
		args = append(args, *scope.BranchID)
		pos++
	}
	if scope.RestrictToOwn {
		conds = append(conds, fmt.Sprintf("created_by = $%d", pos))
		args = append(args, scope.UserID)
		pos++
	}
	if agentColumn && scope.AgentNumber != nil {
		conds = append(conds, fmt.Sprintf("agent_number = $%d", pos))
		args = append(args, *scope.AgentNumber)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " where " + strings.Join(conds, " and "), args
}

const mediaColumns = `id, branch_id, campaign_name, channel, spend, impressions, clicks, leads, period_start, period_end, created_by, created_at, updated_at`

func (s *ReportStore) CreateMedia(ctx context.Context, rep *report.MediaReport) error {
	_, err := s.db.ExecContext(ctx, `
		insert into media_reports(`+mediaColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		rep.ID, rep.BranchID, rep.CampaignName, rep.Channel, rep.Spend,
		rep.Impressions, rep.Clicks, rep.Leads, rep.PeriodStart, rep.PeriodEnd,
		rep.CreatedBy, rep.CreatedAt, rep.UpdatedAt,
	)
	return err
}

func scanMedia(row interface{ Scan(...any) error }, rep *report.MediaReport) error {
	return row.Scan(
		&rep.ID, &rep.BranchID, &rep.CampaignName, &rep.Channel, &rep.Spend,
		&rep.Impressions, &rep.Clicks, &rep.Leads, &rep.PeriodStart, &rep.PeriodEnd,
		&rep.CreatedBy, &rep.CreatedAt, &rep.UpdatedAt,
	)
}

func (s *ReportStore) ListMedia(ctx context.Context, scope report.Scope) ([]report.MediaReport, error) {
	clause, args := scopeClause(scope, 1, false)
	rows, err := s.db.QueryContext(ctx,
		`select `+mediaColumns+` from media_reports`+clause+` order by period_start desc, id desc`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []report.MediaReport
	for rows.Next() {
		var rep report.MediaReport
		if err := scanMedia(rows, &rep); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (s *ReportStore) GetMedia(ctx context.Context, scope report.Scope, id string) (*report.MediaReport, error) {
	clause, args := scopeClause(scope, 2, false)
	if clause == "" {
		clause = " where id = $1"
	} else {
		clause += " and id = $1"
	}
	row := s.db.QueryRowContext(ctx,
		`select `+mediaColumns+` from media_reports`+clause, append([]any{id}, args...)...)
	var rep report.MediaReport
	if err := scanMedia(row, &rep); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, report.ErrNotFound
		}
		return nil, err
	}
	return &rep, nil
}

const salesColumns = `id, branch_id, agent_number, bookings, revenue, period_start, period_end, created_by, created_at, updated_at`

func (s *ReportStore) CreateSales(ctx context.Context, rep *report.SalesReport) error {
	_, err := s.db.ExecContext(ctx, `
		insert into sales_reports(`+salesColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rep.ID, rep.BranchID, rep.AgentNumber, rep.Bookings, rep.Revenue,
		rep.PeriodStart, rep.PeriodEnd, rep.CreatedBy, rep.CreatedAt, rep.UpdatedAt,
	)
	return err
}

func (s *ReportStore) ListSales(ctx context.Context, scope report.Scope) ([]report.SalesReport, error) {
	clause, args := scopeClause(scope, 1, true)
	rows, err := s.db.QueryContext(ctx,
		`select `+salesColumns+` from sales_reports`+clause+` order by period_start desc, id desc`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []report.SalesReport
	for rows.Next() {
		var rep report.SalesReport
		if err := rows.Scan(
			&rep.ID, &rep.BranchID, &rep.AgentNumber, &rep.Bookings, &rep.Revenue,
			&rep.PeriodStart, &rep.PeriodEnd, &rep.CreatedBy, &rep.CreatedAt, &rep.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (s *ReportStore) Summary(ctx context.Context, scope report.Scope) (report.Summary, error) {
	var sum report.Summary

	mediaClause, mediaArgs := scopeClause(scope, 1, false)
	row := s.db.QueryRowContext(ctx,
		`select count(*), coalesce(sum(spend),0), coalesce(sum(leads),0) from media_reports`+mediaClause, mediaArgs...)
	if err := row.Scan(&sum.MediaReports, &sum.TotalSpend, &sum.TotalLeads); err != nil {
		return report.Summary{}, err
	}

	salesClause, salesArgs := scopeClause(scope, 1, true)
	row = s.db.QueryRowContext(ctx,
		`select count(*), coalesce(sum(revenue),0) from sales_reports`+salesClause, salesArgs...)
	if err := row.Scan(&sum.SalesReports, &sum.TotalRevenue); err != nil {
		return report.Summary{}, err
	}
	return sum, nil
}
