package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"account-service/internal/bucketing"
	"account-service/internal/models"
	"account-service/internal/notifier"
	"account-service/internal/repository/scylla"
	"account-service/internal/util"
)

// RegisterInput is the payload for account creation. Fields arrive
// validated and sanitized by the handler layer.
type RegisterInput struct {
	FullName string
	Email    string
	Mobile   string
	Password string
}

// ProfileUpdate carries the fields a user may change on their own account.
// Nil means leave unchanged.
type ProfileUpdate struct {
	FullName *string
	Email    *string
	Mobile   *string
}

// AuthService orchestrates the account flows: registration, login, email
// verification, password lifecycle and profile changes. It owns no storage
// of its own; everything goes through the repositories and token service.
type AuthService struct {
	users     scylla.UserRepository
	tokens    *TokenService
	otp       *OTPService
	hasher    credentialHasher
	mailer    *notifier.Mailer
	recorder  EventRecorder
	bucketing *bucketing.Manager
	logger    *zap.Logger
}

// credentialHasher is the slice of hashing.Hasher the auth flows need.
type credentialHasher interface {
	HashPassword(password string) (string, error)
	HashPin(pin string) (string, error)
	Compare(plaintext, digest string) bool
}

func NewAuthService(
	users scylla.UserRepository,
	tokens *TokenService,
	otp *OTPService,
	hasher credentialHasher,
	mailer *notifier.Mailer,
	recorder EventRecorder,
	bucketingMgr *bucketing.Manager,
	logger *zap.Logger,
) *AuthService {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		otp:       otp,
		hasher:    hasher,
		mailer:    mailer,
		recorder:  recorder,
		bucketing: bucketingMgr,
		logger:    logger,
	}
}

// Register creates an account, seeds its email verification code and logs
// the new user straight in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, *AuthPair, error) {
	email := util.NormalizeEmail(input.Email)

	if taken, err := s.users.IsEmailTaken(ctx, email); err != nil {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	} else if taken {
		return nil, nil, ErrEmailTaken
	}
	if taken, err := s.users.IsMobileTaken(ctx, input.Mobile); err != nil {
		return nil, nil, fmt.Errorf("failed to check mobile: %w", err)
	} else if taken {
		return nil, nil, ErrMobileTaken
	}

	passwordHash, err := s.hasher.HashPassword(input.Password)
	if err != nil {
		return nil, nil, err
	}

	userID := uuid.New().String()
	user := &models.User{
		UserBucket:   s.bucketing.UserBucket(userID),
		UserID:       userID,
		FullName:     input.FullName,
		Email:        email,
		Mobile:       input.Mobile,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// The mapping tables are the real uniqueness check; the lookups
		// above only exist for the common case.
		switch {
		case errors.Is(err, scylla.ErrEmailTaken):
			return nil, nil, ErrEmailTaken
		case errors.Is(err, scylla.ErrMobileTaken):
			return nil, nil, ErrMobileTaken
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendVerificationCode(ctx, user)

	pair, err := s.tokens.IssueAuthPair(ctx, user.UserID)
	if err != nil {
		return nil, nil, err
	}

	s.recorder.Record(ctx, user.UserID, models.EventUserRegistered, "")
	util.Info("User registered", zap.String("user_id", user.UserID))

	return user, pair, nil
}

// Login checks the email/password pair and mints fresh tokens. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *AuthPair, error) {
	email = util.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			util.Warn("Login attempt for unknown email")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Compare(password, user.PasswordHash) {
		s.recorder.Record(ctx, user.UserID, models.EventLoginFailed, "password mismatch")
		util.Warn("Login password mismatch", zap.String("user_id", user.UserID))
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssueAuthPair(ctx, user.UserID)
	if err != nil {
		return nil, nil, err
	}

	s.recorder.Record(ctx, user.UserID, models.EventUserLogin, "")
	return user, pair, nil
}

// Logout revokes the presented refresh token. An unknown token is an error
// so a stolen-then-revoked token cannot be "logged out" silently twice.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	record, err := s.tokens.Verify(ctx, refreshToken, models.PurposeRefresh)
	if err != nil {
		return err
	}
	if err := s.tokens.Revoke(ctx, refreshToken, models.PurposeRefresh); err != nil {
		return err
	}
	s.recorder.Record(ctx, record.UserID, models.EventUserLogout, "")
	return nil
}

// RefreshTokens rotates an auth pair: the presented refresh token is
// consumed and a fresh pair issued. A replayed refresh token fails.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*AuthPair, error) {
	record, err := s.tokens.Verify(ctx, refreshToken, models.PurposeRefresh)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Revoke(ctx, refreshToken, models.PurposeRefresh); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssueAuthPair(ctx, record.UserID)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, record.UserID, models.EventTokensRefreshed, "")
	return pair, nil
}

// ResendOTP mints a fresh email verification code for the user, replacing
// any pending one.
func (s *AuthService) ResendOTP(ctx context.Context, userID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	code, err := s.otp.Generate(ctx, user)
	if err != nil {
		return err
	}
	s.deliverVerificationCode(ctx, user, code)
	s.sendVerificationLink(ctx, user)
	s.recorder.Record(ctx, user.UserID, models.EventOTPGenerated, "")
	return nil
}

// VerifyOTP redeems the user's pending verification code and marks the
// email verified.
func (s *AuthService) VerifyOTP(ctx context.Context, userID, code string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.otp.Verify(ctx, user, code); err != nil {
		return err
	}

	user.IsEmailVerified = true
	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	s.recorder.Record(ctx, user.UserID, models.EventOTPVerified, "")
	s.recorder.Record(ctx, user.UserID, models.EventEmailVerified, "otp")
	return nil
}

// VerifyEmailByToken redeems a verify-by-link token and marks the email
// verified. Outstanding verification tokens for the user are dropped.
func (s *AuthService) VerifyEmailByToken(ctx context.Context, tokenString string) error {
	record, err := s.tokens.Verify(ctx, tokenString, models.PurposeEmailVerification)
	if err != nil {
		return err
	}

	user, err := s.getUser(ctx, record.UserID)
	if err != nil {
		return err
	}

	user.IsEmailVerified = true
	user.ClearOTP()
	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	if _, err := s.tokens.DeleteByUserAndPurpose(ctx, user.UserID, models.PurposeEmailVerification); err != nil {
		util.Warn("Failed to drop verification tokens", zap.Error(err))
	}

	s.recorder.Record(ctx, user.UserID, models.EventEmailVerified, "link")
	return nil
}

// SetTransactionPin stores the user's 4-digit transaction pin.
func (s *AuthService) SetTransactionPin(ctx context.Context, userID, pin, confirmPin string) error {
	if len(pin) != 4 || !util.IsNumeric(pin) {
		return ErrInvalidPin
	}
	if pin != confirmPin {
		return ErrPinMismatch
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	pinHash, err := s.hasher.HashPin(pin)
	if err != nil {
		return err
	}
	user.TransactionPinHash = pinHash

	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to store pin: %w", err)
	}

	s.recorder.Record(ctx, user.UserID, models.EventPinSet, "")
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, newPassword, confirm string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Compare(current, user.PasswordHash) {
		return ErrWrongPassword
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}

	passwordHash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash

	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}

	s.recorder.Record(ctx, user.UserID, models.EventPasswordChanged, "")
	return nil
}

// ForgotPassword mails a signed reset link to the account's email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = util.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return ErrEmailNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	resetToken, _, err := s.tokens.Issue(ctx, user.UserID, models.PurposeResetPassword)
	if err != nil {
		return err
	}

	if s.mailer != nil {
		if err := s.mailer.SendResetPassword(ctx, user.Email, resetToken); err != nil {
			util.Warn("Failed to send reset password email",
				zap.String("user_id", user.UserID),
				zap.Error(err))
		}
	}
	return nil
}

// ResetPassword redeems a reset token and stores the new password. Every
// outstanding reset token for the user is dropped afterwards.
func (s *AuthService) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	record, err := s.tokens.Verify(ctx, tokenString, models.PurposeResetPassword)
	if err != nil {
		return err
	}

	user, err := s.getUser(ctx, record.UserID)
	if err != nil {
		return err
	}

	passwordHash, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash

	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}

	if _, err := s.tokens.DeleteByUserAndPurpose(ctx, user.UserID, models.PurposeResetPassword); err != nil {
		util.Warn("Failed to drop reset tokens", zap.Error(err))
	}

	s.recorder.Record(ctx, user.UserID, models.EventPasswordReset, "")
	return nil
}

// UpdateProfile applies the allowed profile changes. Only the account owner
// may change their profile. An email change resets verification and sends a
// fresh code.
func (s *AuthService) UpdateProfile(ctx context.Context, actorID, targetID string, update ProfileUpdate) (*models.User, error) {
	if actorID != targetID {
		return nil, ErrForbidden
	}

	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if update.FullName != nil {
		user.FullName = util.SanitizeInput(*update.FullName)
		if err := s.users.SaveUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to save profile: %w", err)
		}
	}

	if update.Email != nil {
		newEmail := util.NormalizeEmail(*update.Email)
		if newEmail != user.Email {
			if err := s.users.ChangeEmail(ctx, user, newEmail); err != nil {
				if errors.Is(err, scylla.ErrEmailTaken) {
					return nil, ErrEmailTaken
				}
				return nil, fmt.Errorf("failed to change email: %w", err)
			}
			s.sendVerificationCode(ctx, user)
		}
	}

	if update.Mobile != nil && *update.Mobile != user.Mobile {
		if err := s.users.ChangeMobile(ctx, user, *update.Mobile); err != nil {
			if errors.Is(err, scylla.ErrMobileTaken) {
				return nil, ErrMobileTaken
			}
			return nil, fmt.Errorf("failed to change mobile: %w", err)
		}
	}

	s.recorder.Record(ctx, user.UserID, models.EventProfileUpdated, "")
	return user, nil
}

// GetUser returns the account record for handlers that render a profile.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.getUser(ctx, userID)
}

func (s *AuthService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// sendVerificationCode mints a code plus a verify-by-link token and mails
// both. Delivery problems are logged, never surfaced; the user can always
// ask for a resend.
func (s *AuthService) sendVerificationCode(ctx context.Context, user *models.User) {
	code, err := s.otp.Generate(ctx, user)
	if err != nil {
		util.Warn("Failed to generate verification code",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return
	}
	s.deliverVerificationCode(ctx, user, code)
	s.sendVerificationLink(ctx, user)
	s.recorder.Record(ctx, user.UserID, models.EventOTPGenerated, "")
}

// sendVerificationLink issues an email verification token and mails the
// link carrying it. Either email channel can verify the address.
func (s *AuthService) sendVerificationLink(ctx context.Context, user *models.User) {
	if s.mailer == nil {
		return
	}
	token, _, err := s.tokens.Issue(ctx, user.UserID, models.PurposeEmailVerification)
	if err != nil {
		util.Warn("Failed to issue email verification token",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return
	}
	if err := s.mailer.SendEmailVerification(ctx, user.Email, token); err != nil {
		util.Warn("Failed to send verification link email",
			zap.String("user_id", user.UserID),
			zap.Error(err))
	}
}

func (s *AuthService) deliverVerificationCode(ctx context.Context, user *models.User, code string) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendVerificationOTP(ctx, user.Email, code); err != nil {
		util.Warn("Failed to send verification code email",
			zap.String("user_id", user.UserID),
			zap.Error(err))
	}
}
