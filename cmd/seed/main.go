// Package main provides development data seeding for the OrcSync hub:
// stations with API credentials plus a small sample of synchronized domain
// data. Creates go through the capture-aware repository, so the seeded
// baseline is distributed to the stations like any other local mutation.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/config"
	"orcsync.io/hub/internal/infrastructure"
	"orcsync.io/hub/internal/jobs"
	"orcsync.io/hub/internal/media"
	"orcsync.io/hub/internal/model"
	"orcsync.io/hub/internal/pkg/logger"
	"orcsync.io/hub/internal/registry"
	"orcsync.io/hub/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	// Schema and River migrations are expected to be executed before
	// seeding. This command only performs idempotent data bootstrap.

	reg, err := registry.New(cfg.Sync.Models)
	if err != nil {
		return fmt.Errorf("build entity registry: %w", err)
	}

	// Insert-only River client: seeding enqueues capture jobs that a running
	// hub processes, it does not work them itself.
	riverClient, err := river.NewClient(riverpgxv5.New(db.Pool), &river.Config{})
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}

	files := media.Resolver{Store: media.NewDiskStore(cfg.Media.Root, cfg.Media.BaseURL)}
	repo := repository.New(db.Gorm, reg, files, jobs.NewRiverEnqueuer(riverClient))

	logger.Info("Starting data seeding...")

	if err := seedStations(ctx, db.Gorm, repo); err != nil {
		return fmt.Errorf("seed stations: %w", err)
	}
	if err := seedSampleGraph(ctx, db.Gorm, repo); err != nil {
		return fmt.Errorf("seed sample data: %w", err)
	}

	logger.Info("Data seeding completed successfully")
	return nil
}

// stationSeed defines one development station for seeding.
type stationSeed struct {
	Name    string
	BaseURL string
}

func stationSeeds() []stationSeed {
	return []stationSeed{
		{Name: "Station A", BaseURL: "http://localhost:8001"},
		{Name: "Station B", BaseURL: "http://localhost:8002"},
		{Name: "Station C", BaseURL: "http://localhost:8003"},
	}
}

// seedStations creates the development stations and one API credential each.
// Station rows go through the repository so their creation is captured;
// credentials are hub-local and written directly.
func seedStations(ctx context.Context, db *gorm.DB, repo *repository.Repository) error {
	for _, seed := range stationSeeds() {
		station := &model.Station{Name: seed.Name}
		created, err := ensure(ctx, db, repo, station, "name = ?", seed.Name)
		if err != nil {
			return fmt.Errorf("station %s: %w", seed.Name, err)
		}
		if created {
			logger.Info("Seeded station", zap.String("station", seed.Name), zap.Int("id", station.ID))
		} else {
			logger.Info("Station already exists, skipping", zap.String("station", seed.Name))
		}

		var cred model.StationCredential
		err = db.WithContext(ctx).Where("station_id = ?", station.ID).First(&cred).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			key, err := generateAPIKey()
			if err != nil {
				return err
			}
			cred = model.StationCredential{StationID: station.ID, APIKey: key, BaseURL: seed.BaseURL}
			if err := db.WithContext(ctx).Create(&cred).Error; err != nil {
				return fmt.Errorf("credential for %s: %w", seed.Name, err)
			}
			// Development seeder: the key is printed once so the station
			// agent can be configured with it.
			logger.Info("Seeded station credential",
				zap.String("station", seed.Name),
				zap.String("api_key", key),
			)
		case err != nil:
			return fmt.Errorf("lookup credential for %s: %w", seed.Name, err)
		default:
			logger.Info("Station credential already exists, skipping", zap.String("station", seed.Name))
		}
	}
	return nil
}

// seedSampleGraph creates a small related sample: a commodity, a payment
// method, and a truck with its owner.
func seedSampleGraph(ctx context.Context, db *gorm.DB, repo *repository.Repository) error {
	commodity := &model.Commodity{Name: "Coffee", HSCode: "0901.21", Unit: "kg"}
	if _, err := ensure(ctx, db, repo, commodity, "name = ?", commodity.Name); err != nil {
		return fmt.Errorf("commodity: %w", err)
	}

	payment := &model.PaymentMethod{Name: "Cash", Code: "CASH"}
	if _, err := ensure(ctx, db, repo, payment, "code = ?", payment.Code); err != nil {
		return fmt.Errorf("payment method: %w", err)
	}

	owner := &model.TruckOwner{
		Name:        "Abdi Logistics PLC",
		TINNumber:   "0023456789",
		PhoneNumber: "+251911000000",
	}
	if _, err := ensure(ctx, db, repo, owner, "tin_number = ?", owner.TINNumber); err != nil {
		return fmt.Errorf("truck owner: %w", err)
	}

	truck := &model.Truck{
		PlateNumber:   "ET-3-A12345",
		ChassisNumber: "JHBLF1234K1000001",
		ModelName:     "Sino Howo 371",
		OwnerID:       &owner.ID,
	}
	created, err := ensure(ctx, db, repo, truck, "plate_number = ?", truck.PlateNumber)
	if err != nil {
		return fmt.Errorf("truck: %w", err)
	}
	if created {
		logger.Info("Seeded sample data",
			zap.String("commodity", commodity.Name),
			zap.String("payment_method", payment.Code),
			zap.String("truck", truck.PlateNumber),
		)
	} else {
		logger.Info("Sample data already exists, skipping")
	}
	return nil
}

// ensure creates e through the capture-aware repository unless a row already
// matches the query; an existing row is loaded into e so callers can use its
// primary key.
func ensure(ctx context.Context, db *gorm.DB, repo *repository.Repository, e model.Entity, query string, args ...any) (bool, error) {
	err := db.WithContext(ctx).Where(query, args...).First(e).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := repo.Create(ctx, e); err != nil {
		return false, err
	}
	return true, nil
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
