package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"account-service/internal/service"
	"account-service/internal/util"
)

var errMissingUserID = errors.New("user id is required")

// UserHandler exposes the account profile endpoints.
type UserHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewUserHandler(auth *service.AuthService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		auth:   auth,
		logger: logger,
	}
}

// RegisterRoutes mounts the user endpoints. All of them require an access
// token.
func (h *UserHandler) RegisterRoutes(router chi.Router, authMW *AuthMiddleware) {
	router.Route("/users", func(r chi.Router) {
		r.Use(authMW.RequireAuth)
		r.Get("/{userID}", h.GetUser)
		r.Put("/{userID}", h.UpdateProfile)
		r.Post("/{userID}/change-password", h.ChangePassword)
	})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, errMissingUserID, "Invalid request")
		return
	}
	if userID != userIDFromContext(r.Context()) {
		respondWithError(w, http.StatusForbidden, service.ErrForbidden, "Access denied")
		return
	}

	user, err := h.auth.GetUser(r.Context(), userID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get user")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(user, "User retrieved successfully"))
}

type updateProfileRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
}

func (r updateProfileRequest) validate() error {
	if r.Email != nil && !util.IsValidEmail(*r.Email) {
		return errInvalidEmail
	}
	if r.Mobile != nil && !util.IsValidMobile(*r.Mobile) {
		return errInvalidMobile
	}
	if r.FullName != nil && util.SanitizeInput(*r.FullName) == "" {
		return errMissingFullName
	}
	return nil
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, errMissingUserID, "Invalid request")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, errInvalidBody, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Validation failed")
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), userIDFromContext(r.Context()), userID, service.ProfileUpdate{
		FullName: req.FullName,
		Email:    req.Email,
		Mobile:   req.Mobile,
	})
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(user, "Profile updated successfully"))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID != userIDFromContext(r.Context()) {
		respondWithError(w, http.StatusForbidden, service.ErrForbidden, "Access denied")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, errInvalidBody, "Invalid request body")
		return
	}
	if !util.IsValidPassword(req.NewPassword) {
		respondWithError(w, http.StatusBadRequest, errWeakPassword, "Validation failed")
		return
	}

	if err := h.auth.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to change password")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Password changed successfully"))
}
