package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"atlasmark.io/internal/audit"
	"atlasmark.io/internal/auth"
	"atlasmark.io/internal/obs"
	"atlasmark.io/internal/rbac"
	"atlasmark.io/internal/report"
)

// ReadyProbe checks downstream readiness (database ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer. Route guards are declared inline with each route so
// the evaluation order is visible at the registration site.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	users      *auth.UserAdmin
	reports    *report.Service
	recorder   *audit.Recorder
	readyProbe ReadyProbe
	version    string
}

// New wires routes and their guard chains.
func New(authSvc *auth.Service, users *auth.UserAdmin, reports *report.Service, recorder *audit.Recorder, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       authSvc,
		users:      users,
		reports:    reports,
		recorder:   recorder,
		readyProbe: rp,
		version:    version,
	}

	// health/ready/info
	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReady)
	a.mux.HandleFunc("GET /v1/info", a.handleInfo)

	// Prometheus metrics
	a.mux.Handle("GET /metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("POST /v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("POST /v1/auth/logout", a.handleLogout)
	a.mux.Handle("GET /v1/auth/me", a.secured(http.HandlerFunc(a.handleMe)))
	a.mux.Handle("POST /v1/auth/password", a.secured(http.HandlerFunc(a.handleChangePassword)))

	// user administration
	a.mux.Handle("POST /v1/users", a.secured(http.HandlerFunc(a.handleCreateUser),
		a.requirePermissions(rbac.PermManageUsers)))
	a.mux.Handle("GET /v1/users/{id}", a.secured(http.HandlerFunc(a.handleGetUser)))
	a.mux.Handle("POST /v1/users/{id}/deactivate", a.secured(http.HandlerFunc(a.handleDeactivateUser),
		a.requireRole(rbac.RoleSuperAdmin, rbac.RoleBranchManager),
		a.requirePermissions(rbac.PermManageUsers)))

	// reports
	a.mux.Handle("GET /v1/reports/media", a.secured(http.HandlerFunc(a.handleListMedia),
		a.requirePermissions(rbac.PermViewMediaReports)))
	a.mux.Handle("POST /v1/reports/media", a.secured(http.HandlerFunc(a.handleCreateMedia),
		a.requirePermissions(rbac.PermCreateMediaReports)))
	a.mux.Handle("GET /v1/reports/media/{id}", a.secured(http.HandlerFunc(a.handleGetMedia),
		a.requirePermissions(rbac.PermViewMediaReports)))
	a.mux.Handle("GET /v1/reports/sales", a.secured(http.HandlerFunc(a.handleListSales),
		a.requirePermissions(rbac.PermViewSalesReports)))
	a.mux.Handle("POST /v1/reports/sales", a.secured(http.HandlerFunc(a.handleCreateSales),
		a.requirePermissions(rbac.PermCreateSalesReports)))
	a.mux.Handle("GET /v1/reports/summary", a.secured(http.HandlerFunc(a.handleSummary),
		a.requireAnyPermission(rbac.PermViewAnalytics, rbac.PermViewDashboards)))
	a.mux.Handle("GET /v1/branches/{branchID}/summary", a.secured(http.HandlerFunc(a.handleBranchSummary),
		a.requirePermissions(rbac.PermViewAnalytics),
		a.requireBranchAccess(func(r *http.Request) string { return r.PathValue("branchID") })))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the server handler with the outer middleware applied.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = SecurityHeaders(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 20, 10)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
