package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"account-service/internal/models"
	"account-service/internal/service"
)

type contextKey string

const userIDKey contextKey = "user_id"

var errMissingBearer = errors.New("missing or malformed authorization header")

// AuthMiddleware gates routes behind a valid access token.
type AuthMiddleware struct {
	tokens *service.TokenService
}

func NewAuthMiddleware(tokens *service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth verifies the bearer access token and stores its subject in
// the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, err, "Authentication required")
			return
		}

		record, err := m.tokens.Verify(r.Context(), tokenString, models.PurposeAccess)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, err, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, record.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingBearer
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errMissingBearer
	}
	return parts[1], nil
}

// userIDFromContext returns the authenticated subject set by RequireAuth.
func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
