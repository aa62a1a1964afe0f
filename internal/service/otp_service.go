package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"account-service/internal/config"
	"account-service/internal/hashing"
	"account-service/internal/models"
	"account-service/internal/repository/scylla"
	"account-service/internal/util"
)

// OTPService issues and checks the short numeric codes used for email
// verification. Only the bcrypt digest is stored; the plaintext code goes
// out once in the notification and is never persisted.
type OTPService struct {
	users  scylla.UserRepository
	hasher *hashing.Hasher
	ttl    time.Duration
	logger *zap.Logger
}

func NewOTPService(users scylla.UserRepository, hasher *hashing.Hasher, cfg *config.JWTConfig, logger *zap.Logger) *OTPService {
	return &OTPService{
		users:  users,
		hasher: hasher,
		ttl:    time.Duration(cfg.OTPExpirationMinutes) * time.Minute,
		logger: logger,
	}
}

// randomCode draws a uniform 5-digit code, 10000 through 99999.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		return "", fmt.Errorf("failed to draw random code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+10000), nil
}

// Generate mints a fresh code for the user and stores its digest and
// expiry. A pending code, used or not, is overwritten. Returns the
// plaintext code for delivery.
func (s *OTPService) Generate(ctx context.Context, user *models.User) (string, error) {
	code, err := randomCode()
	if err != nil {
		return "", err
	}

	digest, err := s.hasher.HashOTP(code)
	if err != nil {
		return "", fmt.Errorf("failed to hash verification code: %w", err)
	}

	expires := time.Now().UTC().Add(s.ttl)
	user.OTPHash = digest
	user.OTPExpires = &expires

	if err := s.users.SaveUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to store verification code: %w", err)
	}

	util.Info("Verification code generated",
		zap.String("user_id", user.UserID),
		zap.Time("expires_at", expires))

	return code, nil
}

// Verify checks a submitted code against the user's pending one. On success
// the pending code is cleared and the user saved, so a code can only be
// redeemed once. The caller decides what the successful verification means.
func (s *OTPService) Verify(ctx context.Context, user *models.User, code string) error {
	if !user.HasPendingOTP() {
		return ErrOTPMissing
	}
	if time.Now().UTC().After(*user.OTPExpires) {
		return ErrOTPExpired
	}
	if !s.hasher.Compare(code, user.OTPHash) {
		util.Warn("Verification code mismatch", zap.String("user_id", user.UserID))
		return ErrOTPMismatch
	}

	user.ClearOTP()
	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to clear verification code: %w", err)
	}

	util.Info("Verification code accepted", zap.String("user_id", user.UserID))
	return nil
}
