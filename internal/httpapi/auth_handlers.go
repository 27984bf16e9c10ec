package httpapi

import (
	"errors"
	"net/http"
	"time"

	"atlasmark.io/internal/auth"
	"atlasmark.io/internal/rbac"
	"atlasmark.io/internal/report"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Profile   *rbac.UserProfile `json:"profile"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.auth.Login(r.Context(), auth.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountDeactivated):
			writeAuthError(w, "Account is deactivated")
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeAuthError(w, "Invalid email or password")
		default:
			writeError(w, r, http.StatusInternalServerError, "authentication error")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Profile:   result.Profile,
	})
}

// handleLogout always reports success, even without a valid token, so the
// endpoint cannot be used to probe token validity.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	_ = a.auth.Logout(r.Context(), token, clientIP(r), r.UserAgent())

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

// handleMe returns the fresh profile plus the data-filter policy downstream
// queries must apply for this caller.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, _ := auth.ProfileFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"profile": profile,
		"filters": report.ScopeFor(profile),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	profile, _ := auth.ProfileFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	err := a.auth.ChangePassword(r.Context(), profile.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordMismatch):
			writeError(w, r, http.StatusBadRequest, "current password is incorrect")
		case errors.Is(err, auth.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "user not found")
		default:
			writeError(w, r, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Password changed"})
}
