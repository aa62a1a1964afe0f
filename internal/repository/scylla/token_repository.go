package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"account-service/internal/models"
	"account-service/internal/util"
)

type tokenRepository struct {
	client *ScyllaClient
}

func NewTokenRepository(client *ScyllaClient, logger *zap.Logger) TokenRepository {
	return &tokenRepository{client: client}
}

// CreateToken writes the lookup row and the per-user row in one logged batch
// so purpose-scoped cleanup always sees the token.
func (r *tokenRepository) CreateToken(ctx context.Context, token *models.Token) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	batch := r.client.Session.NewBatch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.CreateToken.Statement(),
		token.Token, token.UserID, token.Purpose, token.ExpiresAt,
		token.Blacklisted, token.Used, token.CreatedAt)

	batch.Query(r.client.Prepared.CreateTokenByUser.Statement(),
		token.UserID, token.Purpose, token.Token, token.ExpiresAt)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create token",
			zap.String("user_id", token.UserID),
			zap.String("purpose", token.Purpose),
			zap.Error(err))
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// GetToken returns the matching non-blacklisted record for the given token
// string and purpose, or ErrNotFound.
func (r *tokenRepository) GetToken(ctx context.Context, tokenString, purpose string) (*models.Token, error) {
	token := &models.Token{}

	err := WithContext(ctx, r.client.Prepared.GetToken.Bind(tokenString)).Scan(
		&token.Token, &token.UserID, &token.Purpose, &token.ExpiresAt,
		&token.Blacklisted, &token.Used, &token.CreatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("%w: token", ErrNotFound)
		}
		util.Error("Failed to get token",
			zap.String("purpose", purpose),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if token.Purpose != purpose || token.Blacklisted {
		return nil, fmt.Errorf("%w: token", ErrNotFound)
	}

	return token, nil
}

func (r *tokenRepository) DeleteToken(ctx context.Context, token *models.Token) error {
	batch := r.client.Session.NewBatch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.DeleteToken.Statement(), token.Token)
	batch.Query(r.client.Prepared.DeleteTokenByUser.Statement(),
		token.UserID, token.Purpose, token.Token)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to delete token",
			zap.String("user_id", token.UserID),
			zap.String("purpose", token.Purpose),
			zap.Error(err))
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return nil
}

// DeleteByUserAndPurpose removes every token of one purpose for a user and
// returns how many lookup rows were removed. Used when a verification or
// reset token is consumed.
func (r *tokenRepository) DeleteByUserAndPurpose(ctx context.Context, userID, purpose string) (int, error) {
	iter := WithContext(ctx, r.client.Prepared.GetTokensByPurpose.Bind(userID, purpose)).Iter()

	var tokenString string
	count := 0
	for iter.Scan(&tokenString) {
		if err := WithContext(ctx, r.client.Prepared.DeleteToken.Bind(tokenString)).Exec(); err != nil {
			util.Warn("failed to delete token lookup row",
				zap.String("user_id", userID),
				zap.String("purpose", purpose),
				zap.Error(err))
			continue
		}
		count++
	}
	if err := iter.Close(); err != nil {
		return count, fmt.Errorf("failed to list tokens for cleanup: %w", err)
	}

	if err := WithContext(ctx, r.client.Prepared.DeleteUserPurpose.Bind(userID, purpose)).Exec(); err != nil {
		return count, fmt.Errorf("failed to delete token range: %w", err)
	}

	return count, nil
}
