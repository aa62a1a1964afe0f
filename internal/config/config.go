package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process-wide configuration. It is loaded once at startup
// and injected into the components that need it; nothing reads the
// environment after LoadConfig returns.
type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	JWT           JWTConfig
	Hashing       HashingConfig
	Scylla        ScyllaConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Elasticsearch ElasticsearchConfig
	Email         EmailConfig
	Bucketing     BucketingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	EnableTLS    bool
	CertFile     string
	KeyFile      string
	AutoCert     bool
	Domain       string
	AutoCertDir  string
	Email        string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// JWTConfig carries the signing secret and the per-purpose token lifetimes.
type JWTConfig struct {
	Secret                          string
	AccessExpirationMinutes         int
	RefreshExpirationDays           int
	ResetPasswordExpirationMinutes  int
	EmailVerificationExpirationDays int
	OTPExpirationMinutes            int
}

type HashingConfig struct {
	PasswordCost int
	PinCost      int
	OTPCost      int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type KafkaConfig struct {
	Brokers         []string
	AuthEventsTopic string
}

type ElasticsearchConfig struct {
	URL        string
	Username   string
	Password   string
	AuditIndex string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
	ClientURL    string
	Enabled      bool
}

type BucketingConfig struct {
	UserBuckets  int
	EventBuckets int
}

// LoadConfig reads configuration from the environment, applying .env first
// when present (development convenience, ignored in production images).
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			EnableTLS:    getEnvBool("SERVER_ENABLE_TLS", false),
			CertFile:     getEnv("SERVER_CERT_FILE", ""),
			KeyFile:      getEnv("SERVER_KEY_FILE", ""),
			AutoCert:     getEnvBool("SERVER_AUTO_CERT", false),
			Domain:       getEnv("SERVER_DOMAIN", ""),
			AutoCertDir:  getEnv("SERVER_AUTOCERT_DIR", "/var/lib/account-service/certs"),
			Email:        getEnv("SERVER_ACME_EMAIL", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		JWT: JWTConfig{
			Secret:                          getEnv("JWT_SECRET", "dev-only-secret-change-me"),
			AccessExpirationMinutes:         getEnvInt("JWT_ACCESS_EXPIRATION_MINUTES", 30),
			RefreshExpirationDays:           getEnvInt("JWT_REFRESH_EXPIRATION_DAYS", 30),
			ResetPasswordExpirationMinutes:  getEnvInt("JWT_RESET_PASSWORD_EXPIRATION_MINUTES", 10),
			EmailVerificationExpirationDays: getEnvInt("JWT_EMAIL_VERIFICATION_EXPIRATION_DAYS", 1),
			OTPExpirationMinutes:            getEnvInt("JWT_OTP_EXPIRATION_MINUTES", 10),
		},
		Hashing: HashingConfig{
			PasswordCost: getEnvInt("BCRYPT_PASSWORD_COST", 10),
			PinCost:      getEnvInt("BCRYPT_PIN_COST", 8),
			OTPCost:      getEnvInt("BCRYPT_OTP_COST", 6),
		},
		Scylla: ScyllaConfig{
			Nodes:    getEnvSlice("SCYLLA_NODES", []string{"127.0.0.1:9042"}),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "accounts"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
		},
		Kafka: KafkaConfig{
			Brokers:         getEnvSlice("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
			AuthEventsTopic: getEnv("KAFKA_AUTH_EVENTS_TOPIC", "auth-events"),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:        getEnv("ELASTICSEARCH_URL", "http://127.0.0.1:9200"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			AuditIndex: getEnv("ELASTICSEARCH_AUDIT_INDEX", "auth-audit"),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("EMAIL_FROM", "no-reply@localhost"),
			ClientURL:    getEnv("CLIENT_URL", "http://localhost:3000"),
			Enabled:      getEnvBool("EMAIL_ENABLED", false),
		},
		Bucketing: BucketingConfig{
			UserBuckets:  getEnvInt("USER_BUCKETS", 256),
			EventBuckets: getEnvInt("EVENT_BUCKETS", 64),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
