package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"account-service/internal/bucketing"
	"account-service/internal/models"
	"account-service/internal/util"
)

type userRepository struct {
	client    *ScyllaClient
	bucketing *bucketing.Manager
}

func NewUserRepository(client *ScyllaClient, bucketingMgr *bucketing.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{
		client:    client,
		bucketing: bucketingMgr,
	}
}

// CreateUser claims the email and mobile mapping rows with LWT inserts, then
// writes the user row. The mapping tables are the real uniqueness constraint;
// application-level taken checks only produce friendlier errors in the
// common case.
func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}
	user.UserBucket = r.bucketing.UserBucket(user.UserID)

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = &now

	var existingID string
	applied, err := WithContext(ctx, r.client.Prepared.CreateEmailToUser.Bind(user.Email, user.UserID)).
		ScanCAS(&existingID)
	if err != nil {
		return fmt.Errorf("failed to claim email mapping: %w", err)
	}
	if !applied {
		return fmt.Errorf("%w: %s", ErrEmailTaken, user.Email)
	}

	applied, err = WithContext(ctx, r.client.Prepared.CreateMobileToUser.Bind(user.Mobile, user.UserID)).
		ScanCAS(&existingID)
	if err != nil || !applied {
		// Roll back the email claim so a retry with a different mobile works.
		if delErr := WithContext(ctx, r.client.Prepared.DeleteEmailToUser.Bind(user.Email)).Exec(); delErr != nil {
			util.Warn("failed to release email mapping after mobile conflict",
				zap.String("email", user.Email),
				zap.Error(delErr))
		}
		if err != nil {
			return fmt.Errorf("failed to claim mobile mapping: %w", err)
		}
		return fmt.Errorf("%w: %s", ErrMobileTaken, user.Mobile)
	}

	err = WithContext(ctx, r.client.Prepared.CreateUser.Bind(
		user.UserBucket, user.UserID, user.FullName, user.Email, user.Mobile,
		user.PasswordHash, user.TransactionPinHash, user.IsEmailVerified,
		user.OTPHash, otpExpiresValue(user.OTPExpires), user.Role,
		user.CreatedAt, user.UpdatedAt)).Exec()
	if err != nil {
		util.Error("Failed to create user",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	util.Info("User created",
		zap.String("user_id", user.UserID),
		zap.Int("user_bucket", user.UserBucket))

	return nil
}

func (r *userRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	var otpExpires time.Time

	err := WithContext(ctx, r.client.Prepared.GetUserByID.Bind(userID)).Scan(
		&user.UserBucket, &user.UserID, &user.FullName, &user.Email, &user.Mobile,
		&user.PasswordHash, &user.TransactionPinHash, &user.IsEmailVerified,
		&user.OTPHash, &otpExpires, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		util.Error("Failed to get user by ID",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	if !otpExpires.IsZero() {
		user.OTPExpires = &otpExpires
	}
	return user, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var userID string
	err := WithContext(ctx, r.client.Prepared.GetUserIDByEmail.Bind(email)).Scan(&userID)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("%w: email %s", ErrNotFound, email)
		}
		return nil, fmt.Errorf("failed to resolve email: %w", err)
	}
	return r.GetUserByID(ctx, userID)
}

func (r *userRepository) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	var userID string
	err := WithContext(ctx, r.client.Prepared.GetUserIDByEmail.Bind(email)).Scan(&userID)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return true, nil
}

func (r *userRepository) IsMobileTaken(ctx context.Context, mobile string) (bool, error) {
	var userID string
	err := WithContext(ctx, r.client.Prepared.GetUserIDByMobile.Bind(mobile)).Scan(&userID)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check mobile: %w", err)
	}
	return true, nil
}

// SaveUser persists the mutable, non-identity columns. Email and mobile
// changes go through ChangeEmail/ChangeMobile so the mapping tables stay
// consistent.
func (r *userRepository) SaveUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.UpdatedAt = &now

	err := WithContext(ctx, r.client.Prepared.SaveUser.Bind(
		user.FullName, user.PasswordHash, user.TransactionPinHash,
		user.IsEmailVerified, user.OTPHash, otpExpiresValue(user.OTPExpires),
		user.UpdatedAt, user.UserID)).Exec()
	if err != nil {
		util.Error("Failed to save user",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *userRepository) ChangeEmail(ctx context.Context, user *models.User, newEmail string) error {
	var existingID string
	applied, err := WithContext(ctx, r.client.Prepared.CreateEmailToUser.Bind(newEmail, user.UserID)).
		ScanCAS(&existingID)
	if err != nil {
		return fmt.Errorf("failed to claim email mapping: %w", err)
	}
	if !applied {
		return fmt.Errorf("%w: %s", ErrEmailTaken, newEmail)
	}

	if err := WithContext(ctx, r.client.Prepared.DeleteEmailToUser.Bind(user.Email)).Exec(); err != nil {
		util.Warn("failed to delete previous email mapping",
			zap.String("user_id", user.UserID),
			zap.Error(err))
	}

	now := time.Now().UTC()
	// A changed address has not been verified.
	err = WithContext(ctx, r.client.Prepared.UpdateUserEmail.Bind(newEmail, false, now, user.UserID)).Exec()
	if err != nil {
		return fmt.Errorf("failed to update user email: %w", err)
	}

	user.Email = newEmail
	user.IsEmailVerified = false
	user.UpdatedAt = &now
	return nil
}

func (r *userRepository) ChangeMobile(ctx context.Context, user *models.User, newMobile string) error {
	var existingID string
	applied, err := WithContext(ctx, r.client.Prepared.CreateMobileToUser.Bind(newMobile, user.UserID)).
		ScanCAS(&existingID)
	if err != nil {
		return fmt.Errorf("failed to claim mobile mapping: %w", err)
	}
	if !applied {
		return fmt.Errorf("%w: %s", ErrMobileTaken, newMobile)
	}

	if err := WithContext(ctx, r.client.Prepared.DeleteMobileToUser.Bind(user.Mobile)).Exec(); err != nil {
		util.Warn("failed to delete previous mobile mapping",
			zap.String("user_id", user.UserID),
			zap.Error(err))
	}

	now := time.Now().UTC()
	err = WithContext(ctx, r.client.Prepared.UpdateUserMobile.Bind(newMobile, now, user.UserID)).Exec()
	if err != nil {
		return fmt.Errorf("failed to update user mobile: %w", err)
	}

	user.Mobile = newMobile
	user.UpdatedAt = &now
	return nil
}

func (r *userRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}

// otpExpiresValue maps the optional expiry onto the timestamp column; a zero
// value reads back as no pending expiry.
func otpExpiresValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
