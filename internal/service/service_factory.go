package service

import (
	"go.uber.org/zap"

	"account-service/internal/bucketing"
	"account-service/internal/config"
	"account-service/internal/hashing"
	"account-service/internal/notifier"
	"account-service/internal/repository/redis"
	"account-service/internal/repository/scylla"
)

// ServiceFactory wires the service layer and hands out singletons.
type ServiceFactory struct {
	userRepo     scylla.UserRepository
	tokenRepo    scylla.TokenRepository
	tokenCache   *redis.TokenCache
	hasher       *hashing.Hasher
	mailer       *notifier.Mailer
	recorder     EventRecorder
	bucketingMgr *bucketing.Manager
	cfg          *config.Config
	logger       *zap.Logger

	tokenService *TokenService
	otpService   *OTPService
	authService  *AuthService
}

func NewServiceFactory(
	userRepo scylla.UserRepository,
	tokenRepo scylla.TokenRepository,
	tokenCache *redis.TokenCache,
	hasher *hashing.Hasher,
	mailer *notifier.Mailer,
	recorder EventRecorder,
	bucketingMgr *bucketing.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceFactory {
	return &ServiceFactory{
		userRepo:     userRepo,
		tokenRepo:    tokenRepo,
		tokenCache:   tokenCache,
		hasher:       hasher,
		mailer:       mailer,
		recorder:     recorder,
		bucketingMgr: bucketingMgr,
		cfg:          cfg,
		logger:       logger,
	}
}

// TokenService returns the token service instance (singleton).
func (f *ServiceFactory) TokenService() *TokenService {
	if f.tokenService == nil {
		f.tokenService = NewTokenService(f.tokenRepo, f.tokenCache, &f.cfg.JWT, f.logger)
	}
	return f.tokenService
}

// OTPService returns the OTP service instance (singleton).
func (f *ServiceFactory) OTPService() *OTPService {
	if f.otpService == nil {
		f.otpService = NewOTPService(f.userRepo, f.hasher, &f.cfg.JWT, f.logger)
	}
	return f.otpService
}

// AuthService returns the auth service instance (singleton).
func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(
			f.userRepo,
			f.TokenService(),
			f.OTPService(),
			f.hasher,
			f.mailer,
			f.recorder,
			f.bucketingMgr,
			f.logger,
		)
	}
	return f.authService
}
