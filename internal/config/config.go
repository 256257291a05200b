// Package config provides configuration management for the OrcSync hub.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like DATABASE_URL, SERVER_PORT)
// 3. Default values
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"orcsync.io/hub/internal/registry"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	River    RiverConfig    `mapstructure:"river"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Media    MediaConfig    `mapstructure:"media"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings. One pgx pool
// backs GORM and River both.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// RiverConfig contains River Queue settings. Capture and ingest run on
// separate queues so a flood of pushed batches cannot starve local capture.
type RiverConfig struct {
	CaptureWorkers              int           `mapstructure:"capture_workers"`
	IngestWorkers               int           `mapstructure:"ingest_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
	RescueStuckJobsAfter        time.Duration `mapstructure:"rescue_stuck_jobs_after"`
}

// SyncConfig contains the synchronization engine settings.
type SyncConfig struct {
	// Models is the enabled subset of the built-in entity catalog.
	Models []string `mapstructure:"models"`

	// CaptureBackoff and IngestBackoff seed the exponential retry
	// schedules of the two workers; the retry count and the 60s cap
	// are fixed.
	CaptureBackoff time.Duration `mapstructure:"capture_backoff"`
	IngestBackoff  time.Duration `mapstructure:"ingest_backoff"`

	// IngestSoftTimeout bounds one batch application; the queue's rescuer
	// provides the hard stop.
	IngestSoftTimeout time.Duration `mapstructure:"ingest_soft_timeout"`
}

// MediaConfig contains blob storage settings for file-type entity fields.
type MediaConfig struct {
	Driver  string `mapstructure:"driver"` // disk or s3
	Root    string `mapstructure:"root"`
	BaseURL string `mapstructure:"base_url"`

	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
}

// SecurityConfig contains the operator auth settings.
// The JWT signing key is auto-generated on first boot if missing.
type SecurityConfig struct {
	JWTSigningKey string        `mapstructure:"jwt_signing_key"`
	JWTIssuer     string        `mapstructure:"jwt_issuer"`
	JWTExpiresIn  time.Duration `mapstructure:"jwt_expires_in"`

	// OperatorUsername and OperatorPasswordHash (bcrypt) gate /auth/login.
	// Login stays disabled until both are set.
	OperatorUsername     string `mapstructure:"operator_username"`
	OperatorPasswordHash string `mapstructure:"operator_password_hash"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize  int `mapstructure:"general_pool_size"`
	SnapshotPoolSize int `mapstructure:"snapshot_pool_size"`
}

// CORSConfig contains cross-origin settings for the operator UI.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`

	// UnsafeAllowAllOrigins opts into a wildcard origin. Intended for
	// local development only; it forces credentials off.
	UnsafeAllowAllOrigins bool `mapstructure:"unsafe_allow_all_origins"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from file and environment variables.
// Standard environment variables without prefix (DATABASE_URL, SERVER_PORT, etc.).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/orcsync")

	// Environment variable override.
	// No prefix: uses standard names like DATABASE_URL, SERVER_PORT, LOG_LEVEL
	// Maps nested config: database.max_conns → DATABASE_MAX_CONNS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The model list keeps its historical env name alongside SYNC_MODELS.
	if err := v.BindEnv("sync.models", "SYNCHRONIZABLE_MODELS", "SYNC_MODELS"); err != nil {
		return nil, fmt.Errorf("bind sync.models: %w", err)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Sync.Models = normalizeModels(cfg.Sync.Models)

	// Auto-generate secrets on first boot if missing.
	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// normalizeModels flattens the list form YAML provides and the comma- or
// space-separated single string environment variables provide.
func normalizeModels(raw []string) []string {
	var out []string
	for _, item := range raw {
		parts := strings.FieldsFunc(item, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		out = append(out, parts...)
	}
	return out
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if len(c.Security.JWTSigningKey) < 32 {
		return fmt.Errorf("security.jwt_signing_key must be at least 32 characters")
	}
	if len(c.Sync.Models) == 0 {
		return fmt.Errorf("sync.models must name at least one synchronizable model")
	}
	switch c.Media.Driver {
	case "disk":
	case "s3":
		if c.Media.S3Bucket == "" {
			return fmt.Errorf("media.s3_bucket is required when media.driver is s3")
		}
	default:
		return fmt.Errorf("media.driver must be disk or s3, got %q", c.Media.Driver)
	}
	if c.River.CaptureWorkers < 1 || c.River.IngestWorkers < 1 {
		return fmt.Errorf("river.capture_workers and river.ingest_workers must be at least 1")
	}
	return nil
}

// ensureSecrets auto-generates missing secrets on first boot.
func (c *Config) ensureSecrets() error {
	if c.Security.JWTSigningKey == "" {
		key, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate jwt signing key: %w", err)
		}
		c.Security.JWTSigningKey = key
		logBootstrapWarn(
			"auto-generated jwt_signing_key; set SECURITY_JWT_SIGNING_KEY env var for persistence",
			zap.Int("length", len(key)),
		)
	}
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})

	bootstrapLogger.Warn(msg, fields...)
}

// generateSecureRandomHex produces a hex-encoded string of n random bytes.
func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database (one shared pool)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "orcsync")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "orcsync")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.statement_timeout", "30s")
	v.SetDefault("database.auto_migrate", false)

	// River
	v.SetDefault("river.capture_workers", 10)
	v.SetDefault("river.ingest_workers", 5)
	v.SetDefault("river.completed_job_retention_period", "24h")
	v.SetDefault("river.rescue_stuck_jobs_after", "6m")

	// Sync
	v.SetDefault("sync.models", registry.AllTags())
	v.SetDefault("sync.capture_backoff", "5s")
	v.SetDefault("sync.ingest_backoff", "10s")
	v.SetDefault("sync.ingest_soft_timeout", "5m")

	// Media
	v.SetDefault("media.driver", "disk")
	v.SetDefault("media.root", "./media")
	v.SetDefault("media.base_url", "http://localhost:8080/media")

	// Security
	v.SetDefault("security.jwt_issuer", "orcsync-hub")
	v.SetDefault("security.jwt_expires_in", "12h")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Worker pools
	v.SetDefault("worker.general_pool_size", 100)
	v.SetDefault("worker.snapshot_pool_size", 32)

	// CORS
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.unsafe_allow_all_origins", false)
}
