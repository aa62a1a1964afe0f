package scylla

import (
	"context"
	"errors"

	"account-service/internal/models"
)

// Storage-layer sentinels. Services translate these into their own error
// vocabulary with errors.Is.
var (
	ErrNotFound    = errors.New("record not found")
	ErrEmailTaken  = errors.New("email already mapped to a user")
	ErrMobileTaken = errors.New("mobile already mapped to a user")
)

// UserRepository is the credential-store contract for account records.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	IsMobileTaken(ctx context.Context, mobile string) (bool, error)
	SaveUser(ctx context.Context, user *models.User) error
	ChangeEmail(ctx context.Context, user *models.User, newEmail string) error
	ChangeMobile(ctx context.Context, user *models.User, newMobile string) error
	HealthCheck(ctx context.Context) error
}

// TokenRepository is the credential-store contract for token records.
type TokenRepository interface {
	CreateToken(ctx context.Context, token *models.Token) error
	GetToken(ctx context.Context, tokenString, purpose string) (*models.Token, error)
	DeleteToken(ctx context.Context, token *models.Token) error
	DeleteByUserAndPurpose(ctx context.Context, userID, purpose string) (int, error)
}
