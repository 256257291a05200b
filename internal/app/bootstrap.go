// Package app is the composition root. Bootstrap stays orchestration-only:
// it builds the dependency graph and hands back an Application; all domain
// behavior lives in the packages it wires together.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"orcsync.io/hub/internal/api/handlers"
	"orcsync.io/hub/internal/api/middleware"
	"orcsync.io/hub/internal/config"
	"orcsync.io/hub/internal/infrastructure"
	"orcsync.io/hub/internal/jobs"
	"orcsync.io/hub/internal/ledger"
	"orcsync.io/hub/internal/media"
	"orcsync.io/hub/internal/pipeline"
	"orcsync.io/hub/internal/pkg/worker"
	"orcsync.io/hub/internal/registry"
	"orcsync.io/hub/internal/repository"
)

// Application holds composed application dependencies.
type Application struct {
	Config *config.Config
	Router *gin.Engine
	DB     *infrastructure.DatabaseClients
	Pools  *worker.Pools

	// Repo is the capture-aware persistence surface. The HTTP layer does
	// not touch it; seeding and local tooling do.
	Repo *repository.Repository
}

// Bootstrap initializes all dependencies using manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	reg, err := registry.New(cfg.Sync.Models)
	if err != nil {
		return nil, fmt.Errorf("build entity registry: %w", err)
	}

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	// Dev-mode: auto-create schema and River queue tables.
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize:  cfg.Worker.GeneralPoolSize,
		SnapshotPoolSize: cfg.Worker.SnapshotPoolSize,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	store, err := newMediaStore(ctx, cfg.Media)
	if err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init media store: %w", err)
	}
	files := media.Resolver{Store: store}

	led := ledger.New(db.Gorm)
	serializer := pipeline.NewSerializer(db.Gorm, reg, files)
	ingestor := pipeline.NewIngestor(db.Gorm, reg, led, store)

	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.NewCaptureWorker(db.Gorm, led, reg, cfg.Sync.CaptureBackoff))
	river.AddWorker(workers, jobs.NewIngestWorker(ingestor, cfg.Sync.IngestBackoff, cfg.Sync.IngestSoftTimeout))
	if err := db.InitRiverClient(workers, cfg.River); err != nil {
		pools.Shutdown()
		db.Close()
		return nil, fmt.Errorf("init river workers: %w", err)
	}

	enqueuer := jobs.NewRiverEnqueuer(db.RiverClient)

	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte(cfg.Security.JWTSigningKey),
		Issuer:     cfg.Security.JWTIssuer,
		ExpiresIn:  cfg.Security.JWTExpiresIn,
	}
	server := handlers.NewServer(handlers.ServerDeps{
		DB:         db.Gorm,
		Pool:       db.Pool,
		JWTCfg:     jwtCfg,
		Registry:   reg,
		Ledger:     led,
		Serializer: serializer,
		Enqueuer:   enqueuer,
		Pools:      pools,
		Operator: handlers.OperatorCredentials{
			Username:     cfg.Security.OperatorUsername,
			PasswordHash: cfg.Security.OperatorPasswordHash,
		},
	})

	return &Application{
		Config: cfg,
		Router: newRouter(cfg, server, db.Gorm, jwtCfg.SigningKey),
		DB:     db,
		Pools:  pools,
		Repo:   repository.New(db.Gorm, reg, files, enqueuer),
	}, nil
}

func newMediaStore(ctx context.Context, cfg config.MediaConfig) (media.Store, error) {
	switch cfg.Driver {
	case "s3":
		return media.NewS3Store(ctx, media.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			BaseURL:   cfg.BaseURL,
		})
	default:
		return media.NewDiskStore(cfg.Root, cfg.BaseURL), nil
	}
}
