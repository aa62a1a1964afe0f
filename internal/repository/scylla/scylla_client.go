package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"account-service/internal/config"
	"account-service/internal/util"
)

// PreparedStatements holds the statements the repositories execute. They are
// prepared once at startup so schema drift fails fast.
type PreparedStatements struct {
	CreateUser          *gocql.Query
	CreateEmailToUser   *gocql.Query
	CreateMobileToUser  *gocql.Query
	DeleteEmailToUser   *gocql.Query
	DeleteMobileToUser  *gocql.Query
	GetUserByID         *gocql.Query
	GetUserIDByEmail    *gocql.Query
	GetUserIDByMobile   *gocql.Query
	SaveUser            *gocql.Query
	UpdateUserEmail     *gocql.Query
	UpdateUserMobile    *gocql.Query
	CreateToken         *gocql.Query
	CreateTokenByUser   *gocql.Query
	GetToken            *gocql.Query
	DeleteToken         *gocql.Query
	DeleteTokenByUser   *gocql.Query
	GetTokensByPurpose  *gocql.Query
	DeleteUserPurpose   *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.Mutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	prepared.CreateUser = s.Session.Query(`
        INSERT INTO users_by_id (
            user_bucket, user_id, full_name, email, mobile,
            password_hash, transaction_pin_hash, is_email_verified,
            otp_hash, otp_expires, role, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	// LWT inserts on the mapping tables are the uniqueness enforcement
	// point for email and mobile.
	prepared.CreateEmailToUser = s.Session.Query(`
        INSERT INTO email_to_user (email, user_id) VALUES (?, ?) IF NOT EXISTS`)

	prepared.CreateMobileToUser = s.Session.Query(`
        INSERT INTO mobile_to_user (mobile, user_id) VALUES (?, ?) IF NOT EXISTS`)

	prepared.DeleteEmailToUser = s.Session.Query(`
        DELETE FROM email_to_user WHERE email = ?`)

	prepared.DeleteMobileToUser = s.Session.Query(`
        DELETE FROM mobile_to_user WHERE mobile = ?`)

	prepared.GetUserByID = s.Session.Query(`
        SELECT user_bucket, user_id, full_name, email, mobile,
               password_hash, transaction_pin_hash, is_email_verified,
               otp_hash, otp_expires, role, created_at, updated_at
        FROM users_by_id WHERE user_id = ?`)

	prepared.GetUserIDByEmail = s.Session.Query(`
        SELECT user_id FROM email_to_user WHERE email = ?`)

	prepared.GetUserIDByMobile = s.Session.Query(`
        SELECT user_id FROM mobile_to_user WHERE mobile = ?`)

	prepared.SaveUser = s.Session.Query(`
        UPDATE users_by_id SET
            full_name = ?, password_hash = ?, transaction_pin_hash = ?,
            is_email_verified = ?, otp_hash = ?, otp_expires = ?, updated_at = ?
        WHERE user_id = ?`)

	prepared.UpdateUserEmail = s.Session.Query(`
        UPDATE users_by_id SET email = ?, is_email_verified = ?, updated_at = ? WHERE user_id = ?`)

	prepared.UpdateUserMobile = s.Session.Query(`
        UPDATE users_by_id SET mobile = ?, updated_at = ? WHERE user_id = ?`)

	prepared.CreateToken = s.Session.Query(`
        INSERT INTO tokens_by_token (token, user_id, purpose, expires_at, blacklisted, used, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)

	prepared.CreateTokenByUser = s.Session.Query(`
        INSERT INTO tokens_by_user (user_id, purpose, token, expires_at)
        VALUES (?, ?, ?, ?)`)

	prepared.GetToken = s.Session.Query(`
        SELECT token, user_id, purpose, expires_at, blacklisted, used, created_at
        FROM tokens_by_token WHERE token = ?`)

	prepared.DeleteToken = s.Session.Query(`
        DELETE FROM tokens_by_token WHERE token = ?`)

	prepared.DeleteTokenByUser = s.Session.Query(`
        DELETE FROM tokens_by_user WHERE user_id = ? AND purpose = ? AND token = ?`)

	prepared.GetTokensByPurpose = s.Session.Query(`
        SELECT token FROM tokens_by_user WHERE user_id = ? AND purpose = ?`)

	prepared.DeleteUserPurpose = s.Session.Query(`
        DELETE FROM tokens_by_user WHERE user_id = ? AND purpose = ?`)

	s.Prepared = prepared
	s.isPrepared = true
	return nil
}

// ExecuteBatch runs a logged batch with the session defaults.
func (s *ScyllaClient) ExecuteBatch(batch *gocql.Batch) error {
	return s.Session.ExecuteBatch(batch)
}

func (s *ScyllaClient) HealthCheck() error {
	var now time.Time
	if err := s.Session.Query(`SELECT now() FROM system.local`).Scan(&now); err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
	}
}

// WithContext binds a prepared query to the request context before execution.
func WithContext(ctx context.Context, q *gocql.Query) *gocql.Query {
	if ctx == nil {
		return q
	}
	return q.WithContext(ctx)
}
