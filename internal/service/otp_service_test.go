package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/config"
	"account-service/internal/hashing"
	"account-service/internal/models"
	"account-service/internal/util"
)

func testHasher() *hashing.Hasher {
	return hashing.NewHasher(&config.Config{
		Hashing: config.HashingConfig{
			PasswordCost: 4,
			PinCost:      4,
			OTPCost:      4,
		},
	})
}

func newTestOTPService(users *fakeUserRepo) *OTPService {
	return NewOTPService(users, testHasher(), testJWTConfig(), util.Get())
}

func seedUser(t *testing.T, users *fakeUserRepo) *models.User {
	t.Helper()
	user := &models.User{
		UserID:    "user-1",
		FullName:  "Ada Lovelace",
		Email:     "ada@example.com",
		Mobile:    "+15550001111",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, users.CreateUser(context.Background(), user))
	return user
}

func TestOTPGenerateAndVerify(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := newTestOTPService(users)
	user := seedUser(t, users)

	code, err := svc.Generate(ctx, user)
	require.NoError(t, err)

	// Always a 5-digit code.
	require.Len(t, code, 5)
	n, err := strconv.Atoi(code)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 10000)
	assert.LessOrEqual(t, n, 99999)

	// Only the digest is stored.
	stored, err := users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.OTPHash)
	assert.NotEqual(t, code, stored.OTPHash)
	require.NotNil(t, stored.OTPExpires)

	require.NoError(t, svc.Verify(ctx, user, code))
	assert.False(t, user.HasPendingOTP())
}

func TestOTPVerifyIsSingleUse(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := newTestOTPService(users)
	user := seedUser(t, users)

	code, err := svc.Generate(ctx, user)
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, user, code))

	err = svc.Verify(ctx, user, code)
	assert.ErrorIs(t, err, ErrOTPMissing)
}

func TestOTPVerifyMismatchKeepsCodePending(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := newTestOTPService(users)
	user := seedUser(t, users)

	code, err := svc.Generate(ctx, user)
	require.NoError(t, err)

	wrong := "00000"
	if wrong == code {
		wrong = "99999"
	}
	err = svc.Verify(ctx, user, wrong)
	assert.ErrorIs(t, err, ErrOTPMismatch)

	// A failed attempt does not burn the code.
	require.NoError(t, svc.Verify(ctx, user, code))
}

func TestOTPVerifyExpired(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := newTestOTPService(users)
	user := seedUser(t, users)

	code, err := svc.Generate(ctx, user)
	require.NoError(t, err)

	expired := time.Now().UTC().Add(-time.Minute)
	user.OTPExpires = &expired

	err = svc.Verify(ctx, user, code)
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestOTPVerifyWithoutPendingCode(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := newTestOTPService(users)
	user := seedUser(t, users)

	err := svc.Verify(ctx, user, "12345")
	assert.ErrorIs(t, err, ErrOTPMissing)
}

func TestOTPVerifyHashWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := newTestOTPService(users)
	user := seedUser(t, users)

	// A row carrying a digest but no expiry counts as no pending code.
	user.OTPHash = "$2a$04$abcdefghijklmnopqrstuv"
	user.OTPExpires = nil

	err := svc.Verify(ctx, user, "12345")
	assert.ErrorIs(t, err, ErrOTPMissing)
}

func TestOTPGenerateReplacesPendingCode(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	svc := newTestOTPService(users)
	user := seedUser(t, users)

	first, err := svc.Generate(ctx, user)
	require.NoError(t, err)
	second, err := svc.Generate(ctx, user)
	require.NoError(t, err)

	if first != second {
		err = svc.Verify(ctx, user, first)
		assert.ErrorIs(t, err, ErrOTPMismatch)
	}
	require.NoError(t, svc.Verify(ctx, user, second))
}
