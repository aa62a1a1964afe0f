package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"account-service/internal/bucketing"
	"account-service/internal/client"
	"account-service/internal/config"
	"account-service/internal/hashing"
	"account-service/internal/notifier"
	"account-service/internal/repository/redis"
	"account-service/internal/repository/scylla"
	"account-service/internal/service"
	"account-service/internal/tls"
	"account-service/internal/util"
)

// Factory owns the lifecycle of every application dependency: external
// clients, repositories and the service layer. It is built once in main
// and closed once on shutdown.
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	redisClient   *client.RedisClient
	scyllaClient  *scylla.ScyllaClient
	kafkaProducer *client.KafkaProducer
	esClient      *client.ESClient

	hasher       *hashing.Hasher
	bucketingMgr *bucketing.Manager
	mailer       *notifier.Mailer

	userRepository  scylla.UserRepository
	tokenRepository scylla.TokenRepository
	tokenCache      *redis.TokenCache
	serviceFactory  *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory loads configuration and initializes all dependencies. In
// production any unhealthy critical client aborts startup; in development
// problems are logged and startup continues so the service can run against
// a partial stack.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		factory.tlsManager = tls.NewTLSManager(&tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		})
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	factory.initializeComponents()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("email_enabled", cfg.Email.Enabled),
	)

	return factory, nil
}

func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	if redisClient, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = redisClient
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	if scyllaClient, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = scyllaClient
		if err := f.scyllaClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// The audit trail is best-effort, so a missing broker never stops
	// startup.
	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed, proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	if esClient, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
		util.Warn("Elasticsearch initialization failed, proceeding without audit search", util.ErrorField(err))
	} else {
		f.esClient = esClient
		if err := f.esClient.HealthCheck(); err != nil {
			util.Warn("Elasticsearch health check failed", util.ErrorField(err))
		} else {
			util.Info("Elasticsearch client initialized and healthy")
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

func (f *Factory) initializeComponents() {
	f.hasher = hashing.NewHasher(f.config)
	f.bucketingMgr = bucketing.NewManager(f.config)

	var sender notifier.Notifier
	if f.config.Email.Enabled {
		sender = notifier.NewSMTPNotifier(&f.config.Email)
	} else {
		sender = notifier.LogNotifier{}
	}
	f.mailer = notifier.NewMailer(sender, &f.config.Email)

	if f.scyllaClient != nil {
		f.userRepository = scylla.NewUserRepository(f.scyllaClient, f.bucketingMgr, util.Get())
		f.tokenRepository = scylla.NewTokenRepository(f.scyllaClient, util.Get())
	}
	if f.redisClient != nil {
		f.tokenCache = redis.NewTokenCache(f.redisClient)
	}

	recorder := service.NewAuditRecorder(f.kafkaProducer, f.esClient, f.bucketingMgr)

	f.serviceFactory = service.NewServiceFactory(
		f.userRepository,
		f.tokenRepository,
		f.tokenCache,
		f.hasher,
		f.mailer,
		recorder,
		f.bucketingMgr,
		f.config,
		util.Get(),
	)
}

// HealthCheck probes every dependency concurrently and returns the
// failures keyed by component name.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	var mu sync.Mutex
	healthErrors := make(map[string]error)
	record := func(name string, err error) {
		mu.Lock()
		healthErrors[name] = err
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if f.redisClient == nil {
			record("redis", fmt.Errorf("redis client not initialized"))
			return nil
		}
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			record("redis", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.scyllaClient == nil {
			record("scylla", fmt.Errorf("scylla client not initialized"))
			return nil
		}
		if err := f.scyllaClient.HealthCheck(); err != nil {
			record("scylla", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.esClient != nil {
			if err := f.esClient.HealthCheck(); err != nil {
				record("elasticsearch", err)
			}
		}
		return nil
	})

	g.Go(func() error {
		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
				record("kafka", err)
			}
		}
		return nil
	})

	g.Go(func() error {
		if f.userRepository == nil {
			record("user_repository", fmt.Errorf("user repository not initialized"))
			return nil
		}
		if err := f.userRepository.HealthCheck(ctx); err != nil {
			record("user_repository", err)
		}
		return nil
	})

	g.Wait()
	return healthErrors
}

// IsHealthy reports whether every critical dependency is reachable. The
// audit pipeline is advisory and does not affect the verdict.
func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	delete(healthErrors, "elasticsearch")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.esClient != nil {
			f.esClient.Close()
			util.Info("Elasticsearch client closed")
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			util.Info("ScyllaDB client closed")
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		util.Sync()
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	return f.serviceFactory
}
