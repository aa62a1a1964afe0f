package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"account-service/internal/service"
	"account-service/internal/util"
)

const refreshCookieName = "refreshToken"

var (
	errInvalidBody     = errors.New("invalid request body")
	errInvalidEmail    = errors.New("invalid email address")
	errInvalidMobile   = errors.New("invalid mobile number, expected E.164 format")
	errWeakPassword    = errors.New("password must be at least 8 characters with a letter and a digit")
	errMissingFullName = errors.New("full name is required")
	errMissingToken    = errors.New("token is required")
	errMissingRefresh  = errors.New("refresh token is required")
	errMissingCode     = errors.New("verification code is required")
)

// AuthHandler exposes the authentication flows over HTTP.
type AuthHandler struct {
	auth   *service.AuthService
	secure bool
	logger *zap.Logger
}

// NewAuthHandler creates the auth handler. secure controls whether the
// refresh cookie is marked Secure; it should track whether TLS terminates
// at this process.
func NewAuthHandler(auth *service.AuthService, secure bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		secure: secure,
		logger: logger,
	}
}

// RegisterRoutes mounts the auth endpoints. Protected routes require an
// access token.
func (h *AuthHandler) RegisterRoutes(router chi.Router, authMW *AuthMiddleware) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/refresh-tokens", h.RefreshTokens)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
		r.Post("/verify-email", h.VerifyEmail)

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAuth)
			r.Post("/resend-otp", h.ResendOTP)
			r.Post("/verify-otp", h.VerifyOTP)
			r.Post("/transaction-pin", h.SetTransactionPin)
		})
	})
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

func (r registerRequest) validate() error {
	if util.SanitizeInput(r.FullName) == "" {
		return errMissingFullName
	}
	if !util.IsValidEmail(r.Email) {
		return errInvalidEmail
	}
	if !util.IsValidMobile(r.Mobile) {
		return errInvalidMobile
	}
	if !util.IsValidPassword(r.Password) {
		return errWeakPassword
	}
	return nil
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, errInvalidBody, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Validation failed")
		return
	}

	user, pair, err := h.auth.Register(r.Context(), service.RegisterInput{
		FullName: util.SanitizeInput(req.FullName),
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: req.Password,
	})
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Registration failed")
		return
	}

	h.setRefreshCookie(w, pair)
	respondWithJSON(w, http.StatusCreated, successResponse(map[string]interface{}{
		"user":   user,
		"tokens": pair,
	}, "User registered successfully"))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, errInvalidBody, "Invalid request body")
		return
	}
	if !util.IsValidEmail(req.Email) || req.Password == "" {
		respondWithError(w, http.StatusUnauthorized, service.ErrInvalidCredentials, "Login failed")
		return
	}

	user, pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Login failed")
		return
	}

	h.setRefreshCookie(w, pair)
	respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"user":   user,
		"tokens": pair,
	}, "Logged in successfully"))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken, err := h.refreshTokenFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Logout failed")
		return
	}

	if err := h.auth.Logout(r.Context(), refreshToken); err != nil {
		respondWithError(w, getStatusCode(err), err, "Logout failed")
		return
	}

	h.clearRefreshCookie(w)
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Logged out successfully"))
}

func (h *AuthHandler) RefreshTokens(w http.ResponseWriter, r *http.Request) {
	refreshToken, err := h.refreshTokenFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Token refresh failed")
		return
	}

	pair, err := h.auth.RefreshTokens(r.Context(), refreshToken)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Token refresh failed")
		return
	}

	h.setRefreshCookie(w, pair)
	respondWithJSON(w, http.StatusOK, successResponse(pair, "Tokens refreshed successfully"))
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, errInvalidBody, "Invalid request body")
		return
	}
	if !util.IsValidEmail(req.Email) {
		respondWithError(w, http.StatusBadRequest, errInvalidEmail, "Validation failed")
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		respondWithError(w, getStatusCode(err), err, "Password reset request failed")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Password reset email sent"))
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, errMissingToken, "Password reset failed")
		return
	}

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, errInvalidBody, "Invalid request body")
		return
	}
	if !util.IsValidPassword(req.Password) {
		respondWithError(w, http.StatusBadRequest, errWeakPassword, "Validation failed")
		return
	}

	if err := h.auth.ResetPassword(r.Context(), token, req.Password); err != nil {
		respondWithError(w, getStatusCode(err), err, "Password reset failed")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Password reset successfully"))
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusBadRequest, errMissingToken, "Email verification failed")
		return
	}

	if err := h.auth.VerifyEmailByToken(r.Context(), token); err != nil {
		respondWithError(w, getStatusCode(err), err, "Email verification failed")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Email verified successfully"))
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	if err := h.auth.ResendOTP(r.Context(), userID); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to resend verification code")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Verification code sent"))
}

type verifyOTPRequest struct {
	Code string `json:"code"`
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, errInvalidBody, "Invalid request body")
		return
	}
	if req.Code == "" || !util.IsNumeric(req.Code) {
		respondWithError(w, http.StatusBadRequest, errMissingCode, "Validation failed")
		return
	}

	if err := h.auth.VerifyOTP(r.Context(), userID, req.Code); err != nil {
		respondWithError(w, getStatusCode(err), err, "Verification failed")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Email verified successfully"))
}

type transactionPinRequest struct {
	Pin        string `json:"pin"`
	ConfirmPin string `json:"confirmPin"`
}

func (h *AuthHandler) SetTransactionPin(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req transactionPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, errInvalidBody, "Invalid request body")
		return
	}

	if err := h.auth.SetTransactionPin(r.Context(), userID, req.Pin, req.ConfirmPin); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to set transaction pin")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Transaction pin set successfully"))
}

// refreshTokenFromRequest reads the refresh token from the cookie, falling
// back to the request body for non-browser clients.
func (h *AuthHandler) refreshTokenFromRequest(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken, nil
	}
	return "", errMissingRefresh
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, pair *service.AuthPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/api/v1/auth",
		MaxAge:   int(pair.RefreshCookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
