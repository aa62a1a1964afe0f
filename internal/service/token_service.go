package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"account-service/internal/config"
	"account-service/internal/models"
	"account-service/internal/repository/redis"
	"account-service/internal/repository/scylla"
	"account-service/internal/util"
)

// Claims is the JWT payload for every token this service signs. The type
// claim pins a token to a single purpose.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

// AuthPair is the access/refresh credential set handed out on login and
// refresh. RefreshCookieMaxAge is shaved below the real expiry so the
// cookie dies before the token it carries does.
type AuthPair struct {
	AccessToken         string        `json:"accessToken"`
	AccessExpires       time.Time     `json:"accessExpires"`
	RefreshToken        string        `json:"refreshToken"`
	RefreshExpires      time.Time     `json:"refreshExpires"`
	RefreshCookieMaxAge time.Duration `json:"-"`
}

// TokenService signs, persists and verifies purpose-bound JWTs. Every
// issued token is backed by a store record so it can be revoked or consumed
// before its embedded expiry.
type TokenService struct {
	tokens scylla.TokenRepository
	cache  *redis.TokenCache
	cfg    *config.JWTConfig
	logger *zap.Logger
}

func NewTokenService(tokens scylla.TokenRepository, cache *redis.TokenCache, cfg *config.JWTConfig, logger *zap.Logger) *TokenService {
	return &TokenService{
		tokens: tokens,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// lifetime returns the configured validity window for a purpose.
func (s *TokenService) lifetime(purpose string) time.Duration {
	switch purpose {
	case models.PurposeAccess:
		return time.Duration(s.cfg.AccessExpirationMinutes) * time.Minute
	case models.PurposeRefresh:
		return time.Duration(s.cfg.RefreshExpirationDays) * 24 * time.Hour
	case models.PurposeResetPassword:
		return time.Duration(s.cfg.ResetPasswordExpirationMinutes) * time.Minute
	case models.PurposeEmailVerification:
		return time.Duration(s.cfg.EmailVerificationExpirationDays) * 24 * time.Hour
	case models.PurposeOTP:
		return time.Duration(s.cfg.OTPExpirationMinutes) * time.Minute
	}
	return time.Duration(s.cfg.AccessExpirationMinutes) * time.Minute
}

func (s *TokenService) sign(userID, purpose string, issuedAt, expiresAt time.Time) (string, error) {
	// The jti keeps two tokens minted within the same second distinct.
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type: purpose,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Issue signs a token for the given purpose and persists its record.
// Returns the signed string and its expiry.
func (s *TokenService) Issue(ctx context.Context, userID, purpose string) (string, time.Time, error) {
	if !models.ValidPurpose(purpose) {
		return "", time.Time{}, fmt.Errorf("%w: unknown purpose %q", ErrInvalidToken, purpose)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.lifetime(purpose))

	signed, err := s.sign(userID, purpose, now, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}

	record := &models.Token{
		Token:     signed,
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.tokens.CreateToken(ctx, record); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store token: %w", err)
	}

	util.Debug("Token issued",
		zap.String("user_id", userID),
		zap.String("purpose", purpose),
		zap.Time("expires_at", expiresAt))

	return signed, expiresAt, nil
}

// refreshCookieSlack keeps the refresh cookie from outliving its token by
// expiring the cookie slightly before the token itself.
const refreshCookieSlack = 5 * time.Minute

// IssueAuthPair mints the access/refresh pair handed out on login. The two
// store writes are not coordinated: if the refresh write fails the access
// token stays persisted and simply expires, unused.
func (s *TokenService) IssueAuthPair(ctx context.Context, userID string) (*AuthPair, error) {
	now := time.Now().UTC()

	accessToken, accessExpires, err := s.Issue(ctx, userID, models.PurposeAccess)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExpires, err := s.Issue(ctx, userID, models.PurposeRefresh)
	if err != nil {
		return nil, err
	}

	return &AuthPair{
		AccessToken:         accessToken,
		AccessExpires:       accessExpires,
		RefreshToken:        refreshToken,
		RefreshExpires:      refreshExpires,
		RefreshCookieMaxAge: refreshExpires.Sub(now) - refreshCookieSlack,
	}, nil
}

// parse checks the signature and the purpose claim. It does not consult the
// store.
func (s *TokenService) parse(tokenString, purpose string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != purpose {
		return nil, fmt.Errorf("%w: purpose mismatch", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Verify validates a token for a purpose and returns its record: signature
// and purpose claim first, then the revocation cache, then the store record
// with a matching subject.
func (s *TokenService) Verify(ctx context.Context, tokenString, purpose string) (*models.Token, error) {
	claims, err := s.parse(tokenString, purpose)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		revoked, err := s.cache.IsRevoked(ctx, tokenString)
		if err != nil {
			// Cache trouble must not lock everyone out; the store below
			// stays authoritative.
			util.Warn("Revocation cache unavailable during verify", zap.Error(err))
		} else if revoked {
			return nil, ErrTokenNotFound
		}
	}

	record, err := s.tokens.GetToken(ctx, tokenString, purpose)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if record.UserID != claims.Subject {
		return nil, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}
	if time.Now().UTC().After(record.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return record, nil
}

// Revoke deletes a token's record and marks it revoked in the cache for the
// remainder of its lifetime. Unknown tokens return ErrTokenNotFound.
func (s *TokenService) Revoke(ctx context.Context, tokenString, purpose string) error {
	record, err := s.tokens.GetToken(ctx, tokenString, purpose)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("failed to look up token: %w", err)
	}

	if err := s.tokens.DeleteToken(ctx, record); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	if s.cache != nil {
		if ttl := time.Until(record.ExpiresAt); ttl > 0 {
			if err := s.cache.MarkRevoked(ctx, tokenString, ttl); err != nil {
				util.Warn("Failed to mark token revoked in cache", zap.Error(err))
			}
		}
	}

	util.Info("Token revoked",
		zap.String("user_id", record.UserID),
		zap.String("purpose", record.Purpose))
	return nil
}

// DeleteByUserAndPurpose drops every token a user holds for one purpose.
// Used to invalidate outstanding reset links once a password changes.
func (s *TokenService) DeleteByUserAndPurpose(ctx context.Context, userID, purpose string) (int, error) {
	count, err := s.tokens.DeleteByUserAndPurpose(ctx, userID, purpose)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tokens: %w", err)
	}
	if count > 0 {
		util.Info("Tokens deleted",
			zap.String("user_id", userID),
			zap.String("purpose", purpose),
			zap.Int("count", count))
	}
	return count, nil
}
