package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"atlasmark.io/internal/auth"
	"atlasmark.io/internal/obs"
	"atlasmark.io/internal/rbac"
)

type createUserRequest struct {
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Password    string  `json:"password"`
	Role        string  `json:"role"`
	BranchID    *string `json:"branch_id"`
	AgentNumber *string `json:"agent_number"`
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ProfileFromContext(r.Context())

	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, ok := rbac.ParseRole(req.Role)
	if !ok {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown role %q", req.Role))
		return
	}

	profile, verdict, err := a.users.CreateUser(r.Context(), actor, auth.CreateUserInput{
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
		Role:        role,
		BranchID:    req.BranchID,
		AgentNumber: req.AgentNumber,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if !verdict.Valid {
		// Structured validation result, rendered directly for the caller.
		writeJSON(w, http.StatusUnprocessableEntity, verdict)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", profile.ID))
	writeJSON(w, http.StatusCreated, profile)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ProfileFromContext(r.Context())

	profile, err := a.users.GetUser(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ProfileFromContext(r.Context())

	if err := a.users.DeactivateUser(r.Context(), actor, r.PathValue("id")); err != nil {
		handleAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrForbidden):
		obs.CountDenial("permission")
		writeForbidden(w, codePermissionDenied, nil)
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "operation failed")
	}
}
