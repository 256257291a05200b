// Package main seeds deterministic fixtures for live end-to-end tests of
// the sync protocol: two stations with fixed API keys and a small domain
// graph whose capture events flow through the normal pipeline.
//
// This command is test-environment only and is intentionally idempotent.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/shopspring/decimal"
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

const (
	defaultAlphaName   = "e2e-alpha"
	defaultAlphaAPIKey = "e2e-alpha-api-key-000000000000000000000001"
	defaultBetaName    = "e2e-beta"
	defaultBetaAPIKey  = "e2e-beta-api-key-0000000000000000000000002"

	defaultDeclarationID     = "00000000-0000-4000-8000-0000000000d1"
	defaultDeclarationNumber = "E2E-DECL-0001"
	defaultCheckInID         = "00000000-0000-4000-8000-0000000000c1"
)

type fixtureConfig struct {
	AlphaName   string
	AlphaAPIKey string
	BetaName    string
	BetaAPIKey  string

	DeclarationID     string
	DeclarationNumber string
	CheckInID         string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "e2e-seed error: %v\n", err)
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

	fx := loadFixtureConfig()

	reg, err := registry.New(cfg.Sync.Models)
	if err != nil {
		return fmt.Errorf("build entity registry: %w", err)
	}
	riverClient, err := river.NewClient(riverpgxv5.New(db.Pool), &river.Config{})
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}
	files := media.Resolver{Store: media.NewDiskStore(cfg.Media.Root, cfg.Media.BaseURL)}
	repo := repository.New(db.Gorm, reg, files, jobs.NewRiverEnqueuer(riverClient))

	alpha, err := ensureStation(ctx, db.Gorm, repo, fx.AlphaName, fx.AlphaAPIKey)
	if err != nil {
		return fmt.Errorf("ensure alpha station: %w", err)
	}
	if _, err := ensureStation(ctx, db.Gorm, repo, fx.BetaName, fx.BetaAPIKey); err != nil {
		return fmt.Errorf("ensure beta station: %w", err)
	}

	if err := ensureDomainGraph(ctx, db.Gorm, repo, fx, alpha.ID); err != nil {
		return fmt.Errorf("ensure domain graph: %w", err)
	}

	fmt.Printf("e2e fixtures ready (stations=%s,%s declaration=%s)\n",
		fx.AlphaName, fx.BetaName, fx.DeclarationNumber,
	)
	return nil
}

func loadFixtureConfig() fixtureConfig {
	return fixtureConfig{
		AlphaName:         envOrDefault("E2E_ALPHA_STATION", defaultAlphaName),
		AlphaAPIKey:       envOrDefault("E2E_ALPHA_API_KEY", defaultAlphaAPIKey),
		BetaName:          envOrDefault("E2E_BETA_STATION", defaultBetaName),
		BetaAPIKey:        envOrDefault("E2E_BETA_API_KEY", defaultBetaAPIKey),
		DeclarationID:     envOrDefault("E2E_DECLARATION_ID", defaultDeclarationID),
		DeclarationNumber: envOrDefault("E2E_DECLARATION_NUMBER", defaultDeclarationNumber),
		CheckInID:         envOrDefault("E2E_CHECKIN_ID", defaultCheckInID),
	}
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// ensureStation creates the named station plus a credential carrying the
// fixed API key, so live tests can authenticate without log scraping.
func ensureStation(ctx context.Context, db *gorm.DB, repo *repository.Repository, name, apiKey string) (*model.Station, error) {
	station := &model.Station{Name: name}
	err := db.WithContext(ctx).Where("name = ?", name).First(station).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := repo.Create(ctx, station); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	var cred model.StationCredential
	err = db.WithContext(ctx).Where("station_id = ?", station.ID).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cred = model.StationCredential{StationID: station.ID, APIKey: apiKey}
		if err := db.WithContext(ctx).Create(&cred).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return station, nil
}

// ensureDomainGraph creates a commodity, payment method, truck owner and
// truck, one declaration referencing them under a fixed UUID, and a check-in
// of that declaration at the alpha station.
func ensureDomainGraph(ctx context.Context, db *gorm.DB, repo *repository.Repository, fx fixtureConfig, alphaID int) error {
	commodity := &model.Commodity{Name: "E2E Sesame", HSCode: "1207.40", Unit: "kg"}
	if err := ensureBy(ctx, db, repo, commodity, "name = ?", commodity.Name); err != nil {
		return err
	}
	payment := &model.PaymentMethod{Name: "E2E Bank Transfer", Code: "E2E-BANK"}
	if err := ensureBy(ctx, db, repo, payment, "code = ?", payment.Code); err != nil {
		return err
	}
	owner := &model.TruckOwner{Name: "E2E Transport", TINNumber: "E2E0000001"}
	if err := ensureBy(ctx, db, repo, owner, "tin_number = ?", owner.TINNumber); err != nil {
		return err
	}
	truck := &model.Truck{
		PlateNumber:   "E2E-PLATE-01",
		ChassisNumber: "E2ECHASSIS000000001",
		ModelName:     "E2E Model",
		OwnerID:       &owner.ID,
	}
	if err := ensureBy(ctx, db, repo, truck, "plate_number = ?", truck.PlateNumber); err != nil {
		return err
	}

	declID, err := uuid.Parse(fx.DeclarationID)
	if err != nil {
		return fmt.Errorf("parse declaration id: %w", err)
	}
	decl := &model.Declaration{
		ID:              declID,
		Number:          fx.DeclarationNumber,
		DeclaredAt:      time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		TotalValue:      decimal.NewFromInt(125000),
		ExporterName:    "E2E Exports",
		CommodityID:     &commodity.ID,
		PaymentMethodID: &payment.ID,
		TruckID:         &truck.ID,
	}
	if err := ensureBy(ctx, db, repo, decl, "id = ?", declID); err != nil {
		return err
	}

	checkInID, err := uuid.Parse(fx.CheckInID)
	if err != nil {
		return fmt.Errorf("parse check-in id: %w", err)
	}
	checkIn := &model.CheckIn{
		ID:            checkInID,
		DeclarationID: &declID,
		StationID:     &alphaID,
		CheckedInAt:   time.Date(2025, 1, 15, 11, 30, 0, 0, time.UTC),
		Note:          "e2e fixture",
	}
	return ensureBy(ctx, db, repo, checkIn, "id = ?", checkInID)
}

func ensureBy(ctx context.Context, db *gorm.DB, repo *repository.Repository, e model.Entity, query string, args ...any) error {
	err := db.WithContext(ctx).Where(query, args...).First(e).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return repo.Create(ctx, e)
}
