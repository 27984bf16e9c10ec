package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"atlasmark.io/internal/audit"
	"atlasmark.io/internal/auth"
	"atlasmark.io/internal/obs"
	"atlasmark.io/internal/report"
)

type createMediaRequest struct {
	BranchID     string    `json:"branch_id"`
	CampaignName string    `json:"campaign_name"`
	Channel      string    `json:"channel"`
	Spend        int64     `json:"spend"`
	Impressions  int64     `json:"impressions"`
	Clicks       int64     `json:"clicks"`
	Leads        int64     `json:"leads"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
}

func (a *API) handleCreateMedia(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ProfileFromContext(r.Context())

	var req createMediaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := a.reports.CreateMedia(r.Context(), actor, report.CreateMediaInput{
		BranchID:     req.BranchID,
		CampaignName: req.CampaignName,
		Channel:      req.Channel,
		Spend:        req.Spend,
		Impressions:  req.Impressions,
		Clicks:       req.Clicks,
		Leads:        req.Leads,
		PeriodStart:  req.PeriodStart,
		PeriodEnd:    req.PeriodEnd,
	})
	if err != nil {
		a.handleReportError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/reports/media/%s", rep.ID))
	writeJSON(w, http.StatusCreated, rep)
}

func (a *API) handleListMedia(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ProfileFromContext(r.Context())

	items, err := a.reports.ListMedia(r.Context(), actor)
	if err != nil {
		a.handleReportError(w, r, err)
		return
	}
	if items == nil {
		items = []report.MediaReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ProfileFromContext(r.Context())

	rep, err := a.reports.GetMedia(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		a.handleReportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type createSalesRequest struct {
	BranchID    string    `json:"branch_id"`
	AgentNumber string    `json:"agent_number"`
	Bookings    int64     `json:"bookings"`
	Revenue     int64     `json:"revenue"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

func (a *API) handleCreateSales(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ProfileFromContext(r.Context())

	var req createSalesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := a.reports.CreateSales(r.Context(), actor, report.CreateSalesInput{
		BranchID:    req.BranchID,
		AgentNumber: req.AgentNumber,
		Bookings:    req.Bookings,
		Revenue:     req.Revenue,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
	})
	if err != nil {
		a.handleReportError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/reports/sales/%s", rep.ID))
	writeJSON(w, http.StatusCreated, rep)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ProfileFromContext(r.Context())

	items, err := a.reports.ListSales(r.Context(), actor)
	if err != nil {
		a.handleReportError(w, r, err)
		return
	}
	if items == nil {
		items = []report.SalesReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ProfileFromContext(r.Context())

	sum, err := a.reports.Summary(r.Context(), actor)
	if err != nil {
		a.handleReportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleBranchSummary serves the branch dashboard. The branch guard has
// already verified visibility.
func (a *API) handleBranchSummary(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ProfileFromContext(r.Context())
	branchID := r.PathValue("branchID")

	sum, err := a.reports.BranchSummary(r.Context(), actor, branchID)
	if err != nil {
		a.handleReportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"branch_id": branchID,
		"summary":   sum,
	})
}

func (a *API) handleReportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, report.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, report.ErrBranchDenied):
		// Denials decided inside the service land in the same audit trail
		// as the ones caught by the route guards.
		profile, _ := auth.ProfileFromContext(r.Context())
		a.auditDenial(r, profile, audit.ActionBranchAccessDenied, nil)
		obs.CountDenial("branch")
		writeForbidden(w, codeBranchAccessDenied, nil)
	case errors.Is(err, report.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "report not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
