package httpapi

import (
	"net/http"
	"strings"

	"atlasmark.io/internal/audit"
	"atlasmark.io/internal/auth"
	"atlasmark.io/internal/obs"
	"atlasmark.io/internal/rbac"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
	authCookie   = "auth-token"
)

const (
	codePermissionDenied   = "PERMISSION_DENIED"
	codeRoleAccessDenied   = "ROLE_ACCESS_DENIED"
	codeBranchAccessDenied = "BRANCH_ACCESS_DENIED"
)

// Guard inspects a request and either lets evaluation continue (possibly
// with an enriched request) or writes a terminal response. Guards run in the
// order a route declares them; the handler runs only if every guard passes.
type Guard func(w http.ResponseWriter, r *http.Request) (*http.Request, bool)

// Chain evaluates guards in declared order before the handler.
func Chain(h http.Handler, guards ...Guard) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, guard := range guards {
			next, ok := guard(w, r)
			if !ok {
				return
			}
			r = next
		}
		h.ServeHTTP(w, r)
	})
}

// secured prepends the authentication guard to the route's own guards.
func (a *API) secured(h http.Handler, guards ...Guard) http.Handler {
	all := make([]Guard, 0, len(guards)+1)
	all = append(all, a.requireAuth())
	all = append(all, guards...)
	return Chain(h, all...)
}

// requireAuth extracts the token (Bearer header first, cookie fallback),
// verifies it and attaches the fresh profile to the request context.
func (a *API) requireAuth() Guard {
	return func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		token := extractToken(r)
		if token == "" {
			writeAuthError(w, "Authentication required")
			return r, false
		}
		profile, err := a.auth.VerifyToken(r.Context(), token)
		if err != nil {
			writeAuthError(w, "Invalid or expired token")
			return r, false
		}
		ctx := auth.ContextWithProfile(r.Context(), profile)
		ctx = auth.ContextWithToken(ctx, token)
		return r.WithContext(ctx), true
	}
}

// requirePermissions passes only when the profile holds every listed
// permission. AND semantics.
func (a *API) requirePermissions(required ...rbac.Permission) Guard {
	return func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		profile, ok := auth.ProfileFromContext(r.Context())
		if !ok {
			writeAuthError(w, "Authentication required")
			return r, false
		}
		if !profile.Permissions.HasAll(required...) {
			a.auditDenial(r, profile, audit.ActionPermissionDenied, map[string]any{
				"required": permissionStrings(required),
				"actual":   permissionStrings(profile.Permissions.Sorted()),
			})
			obs.CountDenial("permission")
			writeForbidden(w, codePermissionDenied, map[string]any{
				"required": permissionStrings(required),
			})
			return r, false
		}
		return r, true
	}
}

// requireAnyPermission passes when the profile holds at least one of the
// listed permissions. OR semantics.
func (a *API) requireAnyPermission(required ...rbac.Permission) Guard {
	return func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		profile, ok := auth.ProfileFromContext(r.Context())
		if !ok {
			writeAuthError(w, "Authentication required")
			return r, false
		}
		if !profile.Permissions.HasAny(required...) {
			a.auditDenial(r, profile, audit.ActionPermissionDenied, map[string]any{
				"required_any": permissionStrings(required),
				"actual":       permissionStrings(profile.Permissions.Sorted()),
			})
			obs.CountDenial("permission")
			writeForbidden(w, codePermissionDenied, map[string]any{
				"required_any": permissionStrings(required),
			})
			return r, false
		}
		return r, true
	}
}

// requireRole passes only for exact role-set membership.
func (a *API) requireRole(roles ...rbac.Role) Guard {
	return func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		profile, ok := auth.ProfileFromContext(r.Context())
		if !ok {
			writeAuthError(w, "Authentication required")
			return r, false
		}
		for _, role := range roles {
			if profile.Role == role {
				return r, true
			}
		}
		a.auditDenial(r, profile, audit.ActionRoleAccessDenied, map[string]any{
			"required": roleStrings(roles),
			"actual":   string(profile.Role),
		})
		obs.CountDenial("role")
		writeForbidden(w, codeRoleAccessDenied, map[string]any{
			"required": roleStrings(roles),
		})
		return r, false
	}
}

// requireBranchAccess derives the target branch from the request via the
// supplied extractor and checks branch visibility.
func (a *API) requireBranchAccess(extract func(r *http.Request) string) Guard {
	return func(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
		profile, ok := auth.ProfileFromContext(r.Context())
		if !ok {
			writeAuthError(w, "Authentication required")
			return r, false
		}
		branchID := strings.TrimSpace(extract(r))
		if branchID == "" {
			writeError(w, r, http.StatusBadRequest, "branch id is required")
			return r, false
		}
		if !rbac.CanAccessBranch(profile, branchID) {
			a.auditDenial(r, profile, audit.ActionBranchAccessDenied, map[string]any{
				"branch_id": branchID,
			})
			obs.CountDenial("branch")
			writeForbidden(w, codeBranchAccessDenied, map[string]any{
				"required": []string{branchID},
			})
			return r, false
		}
		return r, true
	}
}

func (a *API) auditDenial(r *http.Request, profile *rbac.UserProfile, action string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["path"] = r.URL.Path
	details["method"] = r.Method
	a.recorder.Record(r.Context(), audit.Entry{
		UserID:    profile.ID,
		UserEmail: profile.Email,
		Action:    action,
		Resource:  "http",
		Details:   details,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		BranchID:  profile.BranchID,
	})
}

// extractToken prefers the Authorization header and falls back to the named
// cookie used by browser clients.
func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header != "" && strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerPrefix)) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	if cookie, err := r.Cookie(authCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func permissionStrings(perms []rbac.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func roleStrings(roles []rbac.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
