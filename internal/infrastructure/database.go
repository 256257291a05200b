// Package infrastructure provides database and connection pool setup.
//
// A single pgxpool serves GORM (via stdlib.OpenDBFromPool) and River, so
// the HTTP handlers, the capture/ingest workers, and the job queue share
// one set of connections instead of three.
package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"orcsync.io/hub/internal/config"
	"orcsync.io/hub/internal/jobs"
	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/pkg/logger"
)

// DatabaseClients contains all database-related clients.
// All clients share a single pgxpool connection pool.
type DatabaseClients struct {
	// Pool is the shared connection pool (GORM + River).
	Pool *pgxpool.Pool

	// DB is the *sql.DB wrapper around Pool for GORM.
	// Created via stdlib.OpenDBFromPool to reuse pgxpool connections.
	DB *sql.DB

	// Gorm is the ORM handle backed by the shared pool.
	Gorm *gorm.DB

	// RiverClient is the River job queue client backed by the shared pool.
	RiverClient *river.Client[pgx.Tx]
}

// NewDatabaseClients creates database clients with a shared connection pool.
func NewDatabaseClients(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseClients, error) {
	dsn := cfg.DSN()

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute
	if cfg.StatementTimeout > 0 {
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] =
			fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	// All timestamps are stored and compared in UTC.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Wrap the pool for GORM instead of letting it open its own pool
	// (doubles connections otherwise).
	db := stdlib.OpenDBFromPool(pool)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		// TranslateError turns pgconn unique-violation errors into
		// gorm.ErrDuplicatedKey, which the admin handlers match on.
		TranslateError: true,
		// SQL logging goes through zap, not GORM's stdout logger.
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	logger.Info("Database connection pool created",
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Int32("min_conns", cfg.MinConns),
	)

	return &DatabaseClients{
		Pool: pool,
		DB:   db,
		Gorm: gormDB,
	}, nil
}

// AutoMigrate runs GORM schema migration and River queue table migration.
// Only use in development; production should use managed migrations.
func (c *DatabaseClients) AutoMigrate(ctx context.Context) error {
	logger.Info("Running schema auto-migration...")
	if err := c.Gorm.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("schema auto-migrate: %w", err)
	}
	logger.Info("Schema auto-migration completed")

	logger.Info("Running River migration...")
	migrator, err := rivermigrate.New(riverpgxv5.New(c.Pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if len(res.Versions) > 0 {
		logger.Info("River migration completed",
			zap.Int("versions_applied", len(res.Versions)),
		)
	} else {
		logger.Info("River migration: already up-to-date")
	}

	return nil
}

// InitRiverClient creates a River client with registered workers.
// Called after NewDatabaseClients; workers param comes from bootstrap.
//
// Capture and ingest run on separate queues so a flood of pushed batches
// cannot starve local mutation capture.
func (c *DatabaseClients) InitRiverClient(workers *river.Workers, cfg config.RiverConfig) error {
	riverClient, err := river.NewClient(riverpgxv5.New(c.Pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			jobs.QueueCapture: {MaxWorkers: cfg.CaptureWorkers},
			jobs.QueueIngest:  {MaxWorkers: cfg.IngestWorkers},
		},
		Workers:                     workers,
		CompletedJobRetentionPeriod: cfg.CompletedJobRetentionPeriod,
		RescueStuckJobsAfter:        cfg.RescueStuckJobsAfter,
	})
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}
	c.RiverClient = riverClient
	logger.Info("River client initialized",
		zap.Int("capture_workers", cfg.CaptureWorkers),
		zap.Int("ingest_workers", cfg.IngestWorkers),
	)
	return nil
}

// Close closes all connection pools gracefully.
func (c *DatabaseClients) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
