package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/bucketing"
	"account-service/internal/config"
	"account-service/internal/models"
	"account-service/internal/notifier"
	"account-service/internal/util"
)

type authFixture struct {
	users    *fakeUserRepo
	tokens   *fakeTokenRepo
	recorder *countingRecorder
	svc      *AuthService
}

func newAuthFixture() *authFixture {
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	recorder := &countingRecorder{}
	hasher := testHasher()
	cfg := &config.Config{
		Bucketing: config.BucketingConfig{UserBuckets: 16, EventBuckets: 4},
	}

	tokenSvc := NewTokenService(tokens, nil, testJWTConfig(), util.Get())
	otpSvc := NewOTPService(users, hasher, testJWTConfig(), util.Get())

	svc := NewAuthService(users, tokenSvc, otpSvc, hasher, nil, recorder, bucketing.NewManager(cfg), util.Get())
	return &authFixture{
		users:    users,
		tokens:   tokens,
		recorder: recorder,
		svc:      svc,
	}
}

func registerInput() RegisterInput {
	return RegisterInput{
		FullName: "Ada Lovelace",
		Email:    "Ada@Example.com",
		Mobile:   "+15550001111",
		Password: "sup3rsecret",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	user, pair, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	assert.NotEmpty(t, user.UserID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.False(t, user.IsEmailVerified)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "sup3rsecret", user.PasswordHash)

	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	// The verification code is seeded at registration.
	stored, err := fx.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.True(t, stored.HasPendingOTP())

	assert.True(t, fx.recorder.has(models.EventUserRegistered))
	assert.True(t, fx.recorder.has(models.EventOTPGenerated))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	_, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	dup := registerInput()
	dup.Mobile = "+15550002222"
	_, _, err = fx.svc.Register(ctx, dup)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterDuplicateMobile(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	_, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	dup := registerInput()
	dup.Email = "other@example.com"
	_, _, err = fx.svc.Register(ctx, dup)
	assert.ErrorIs(t, err, ErrMobileTaken)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	registered, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	user, pair, err := fx.svc.Login(ctx, "ada@example.com", "sup3rsecret")
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, user.UserID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.True(t, fx.recorder.has(models.EventUserLogin))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	_, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	_, _, wrongPassword := fx.svc.Login(ctx, "ada@example.com", "not-the-password")
	_, _, unknownEmail := fx.svc.Login(ctx, "nobody@example.com", "sup3rsecret")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestRepeatedLoginFailures(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	_, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := fx.svc.Login(ctx, "ada@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// The account is not locked out.
	_, _, err = fx.svc.Login(ctx, "ada@example.com", "sup3rsecret")
	assert.NoError(t, err)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	_, pair, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, fx.svc.Logout(ctx, pair.RefreshToken))
	assert.True(t, fx.recorder.has(models.EventUserLogout))

	// A consumed refresh token cannot be replayed.
	err = fx.svc.Logout(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestLogoutUnknownToken(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	err := fx.svc.Logout(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokensRotates(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	_, pair, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	fresh, err := fx.svc.RefreshTokens(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, fresh.RefreshToken)
	assert.True(t, fx.recorder.has(models.EventTokensRefreshed))

	// The old refresh token was consumed by the rotation.
	_, err = fx.svc.RefreshTokens(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = fx.svc.RefreshTokens(ctx, fresh.RefreshToken)
	assert.NoError(t, err)
}

func TestVerifyOTPMarksEmailVerified(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	user, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	// Reach into the store and regenerate a known code.
	stored, err := fx.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	otpSvc := NewOTPService(fx.users, testHasher(), testJWTConfig(), util.Get())
	code, err := otpSvc.Generate(ctx, stored)
	require.NoError(t, err)

	require.NoError(t, fx.svc.VerifyOTP(ctx, user.UserID, code))

	verified, err := fx.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.True(t, verified.IsEmailVerified)
	assert.False(t, verified.HasPendingOTP())
	assert.True(t, fx.recorder.has(models.EventEmailVerified))
}

func TestSetTransactionPin(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	user, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, fx.svc.SetTransactionPin(ctx, user.UserID, "4321", "4321"))

	stored, err := fx.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.TransactionPinHash)
	assert.NotEqual(t, "4321", stored.TransactionPinHash)
	assert.True(t, fx.recorder.has(models.EventPinSet))
}

func TestSetTransactionPinValidation(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	user, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	assert.ErrorIs(t, fx.svc.SetTransactionPin(ctx, user.UserID, "12a4", "12a4"), ErrInvalidPin)
	assert.ErrorIs(t, fx.svc.SetTransactionPin(ctx, user.UserID, "123", "123"), ErrInvalidPin)
	assert.ErrorIs(t, fx.svc.SetTransactionPin(ctx, user.UserID, "12345", "12345"), ErrInvalidPin)
	assert.ErrorIs(t, fx.svc.SetTransactionPin(ctx, user.UserID, "1234", "4321"), ErrPinMismatch)

	// Failed attempts leave the stored pin untouched.
	stored, err := fx.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Empty(t, stored.TransactionPinHash)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	user, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	err = fx.svc.ChangePassword(ctx, user.UserID, "wrong", "newpassw0rd", "newpassw0rd")
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = fx.svc.ChangePassword(ctx, user.UserID, "sup3rsecret", "newpassw0rd", "different")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	require.NoError(t, fx.svc.ChangePassword(ctx, user.UserID, "sup3rsecret", "newpassw0rd", "newpassw0rd"))

	_, _, err = fx.svc.Login(ctx, "ada@example.com", "sup3rsecret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = fx.svc.Login(ctx, "ada@example.com", "newpassw0rd")
	assert.NoError(t, err)
}

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	_, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, fx.svc.ForgotPassword(ctx, "ada@example.com"))

	// Grab the reset token the way the emailed link would carry it.
	var resetToken string
	fx.tokens.mu.Lock()
	for key, token := range fx.tokens.tokens {
		if token.Purpose == models.PurposeResetPassword {
			resetToken = key
		}
	}
	fx.tokens.mu.Unlock()
	require.NotEmpty(t, resetToken)

	require.NoError(t, fx.svc.ResetPassword(ctx, resetToken, "freshpassw0rd"))
	assert.True(t, fx.recorder.has(models.EventPasswordReset))

	_, _, err = fx.svc.Login(ctx, "ada@example.com", "freshpassw0rd")
	assert.NoError(t, err)

	// The redeemed token cannot be replayed.
	err = fx.svc.ResetPassword(ctx, resetToken, "anotherpassw0rd")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRegisterMailsVerificationCodeAndLink(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	hasher := testHasher()
	cfg := &config.Config{
		Bucketing: config.BucketingConfig{UserBuckets: 16, EventBuckets: 4},
	}
	sink := &recordingNotifier{}
	mailer := notifier.NewMailer(sink, &config.EmailConfig{ClientURL: "https://app.example.com"})

	tokenSvc := NewTokenService(tokens, nil, testJWTConfig(), util.Get())
	otpSvc := NewOTPService(users, hasher, testJWTConfig(), util.Get())
	svc := NewAuthService(users, tokenSvc, otpSvc, hasher, mailer, nil, bucketing.NewManager(cfg), util.Get())

	user, _, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	require.Len(t, sink.mails, 2)
	assert.Equal(t, "Email Verification Code", sink.mails[0].subject)
	assert.Equal(t, "Verify email", sink.mails[1].subject)

	// The mailed link carries a live verification token.
	idx := strings.Index(sink.mails[1].body, "token=")
	require.NotEqual(t, -1, idx)
	linkToken := sink.mails[1].body[idx+len("token="):]
	if cut := strings.IndexAny(linkToken, " \n"); cut != -1 {
		linkToken = linkToken[:cut]
	}

	require.NoError(t, svc.VerifyEmailByToken(ctx, linkToken))
	verified, err := users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.True(t, verified.IsEmailVerified)
}

func TestVerifyEmailByToken(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	user, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	tokenSvc := NewTokenService(fx.tokens, nil, testJWTConfig(), util.Get())
	linkToken, _, err := tokenSvc.Issue(ctx, user.UserID, models.PurposeEmailVerification)
	require.NoError(t, err)

	require.NoError(t, fx.svc.VerifyEmailByToken(ctx, linkToken))

	verified, err := fx.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.True(t, verified.IsEmailVerified)
	assert.False(t, verified.HasPendingOTP())

	// A redeemed link is gone.
	err = fx.svc.VerifyEmailByToken(ctx, linkToken)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	err := fx.svc.ForgotPassword(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrEmailNotFound)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	user, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	// Mark verified first so the email change visibly resets it.
	stored, err := fx.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	stored.IsEmailVerified = true
	require.NoError(t, fx.users.SaveUser(ctx, stored))

	newName := "Ada King"
	newEmail := "countess@example.com"
	updated, err := fx.svc.UpdateProfile(ctx, user.UserID, user.UserID, ProfileUpdate{
		FullName: &newName,
		Email:    &newEmail,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada King", updated.FullName)
	assert.Equal(t, "countess@example.com", updated.Email)
	assert.False(t, updated.IsEmailVerified)
	assert.True(t, fx.recorder.has(models.EventProfileUpdated))
}

func TestUpdateProfileForbiddenForOtherUsers(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	user, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	newName := "Mallory"
	_, err = fx.svc.UpdateProfile(ctx, "someone-else", user.UserID, ProfileUpdate{FullName: &newName})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateProfileDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture()

	first, _, err := fx.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	second := registerInput()
	second.Email = "grace@example.com"
	second.Mobile = "+15550002222"
	other, _, err := fx.svc.Register(ctx, second)
	require.NoError(t, err)

	taken := first.Email
	_, err = fx.svc.UpdateProfile(ctx, other.UserID, other.UserID, ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailTaken)
}
