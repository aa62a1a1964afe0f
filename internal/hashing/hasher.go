package hashing

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"account-service/internal/config"
)

// Hasher produces one-way bcrypt digests for the three credential kinds the
// service stores. Costs differ per kind: passwords live the longest, OTPs
// for minutes, so the work factors are tuned accordingly.
type Hasher struct {
	passwordCost int
	pinCost      int
	otpCost      int
}

func NewHasher(cfg *config.Config) *Hasher {
	return &Hasher{
		passwordCost: clampCost(cfg.Hashing.PasswordCost),
		pinCost:      clampCost(cfg.Hashing.PinCost),
		otpCost:      clampCost(cfg.Hashing.OTPCost),
	}
}

func clampCost(cost int) int {
	if cost < bcrypt.MinCost {
		return bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		return bcrypt.MaxCost
	}
	return cost
}

func (h *Hasher) HashPassword(password string) (string, error) {
	return h.hash(password, h.passwordCost)
}

func (h *Hasher) HashPin(pin string) (string, error) {
	return h.hash(pin, h.pinCost)
}

func (h *Hasher) HashOTP(otp string) (string, error) {
	return h.hash(otp, h.otpCost)
}

func (h *Hasher) hash(plaintext string, cost int) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(digest), nil
}

// Compare reports whether plaintext matches the stored digest. bcrypt's
// comparison is constant-time on the derived key.
func (h *Hasher) Compare(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
