// Package handlers implements the hub's HTTP surface: the station-facing
// sync endpoints (push, get-pending, acknowledge), the operator
// configuration API behind JWT, and health probes.
//
// Station endpoints keep the flat wire bodies the field agents already
// parse; operator endpoints use the code/message envelope rendered by the
// error-handler middleware.
package handlers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/api/middleware"
	"orcsync.io/hub/internal/ledger"
	"orcsync.io/hub/internal/pipeline"
	"orcsync.io/hub/internal/pkg/worker"
	"orcsync.io/hub/internal/registry"
)

// IngestEnqueuer queues a validated pushed batch for background application.
// Satisfied by jobs.RiverEnqueuer.
type IngestEnqueuer interface {
	EnqueueIngest(ctx context.Context, sourceStationID int, changes []pipeline.InboundChange) (int64, error)
}

// OperatorCredentials is the single operator login checked by /auth/login.
type OperatorCredentials struct {
	Username     string
	PasswordHash string
}

// Server implements all API handlers.
type Server struct {
	db         *gorm.DB
	pool       *pgxpool.Pool
	jwtCfg     middleware.JWTConfig
	reg        *registry.Registry
	led        *ledger.Ledger
	serializer *pipeline.Serializer
	enqueuer   IngestEnqueuer
	pools      *worker.Pools
	operator   OperatorCredentials
}

// ServerDeps holds all dependencies for creating a Server.
// Manual DI, no Wire/Dig.
type ServerDeps struct {
	DB         *gorm.DB
	Pool       *pgxpool.Pool
	JWTCfg     middleware.JWTConfig
	Registry   *registry.Registry
	Ledger     *ledger.Ledger
	Serializer *pipeline.Serializer
	Enqueuer   IngestEnqueuer
	Pools      *worker.Pools
	Operator   OperatorCredentials
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		db:         deps.DB,
		pool:       deps.Pool,
		jwtCfg:     deps.JWTCfg,
		reg:        deps.Registry,
		led:        deps.Ledger,
		serializer: deps.Serializer,
		enqueuer:   deps.Enqueuer,
		pools:      deps.Pools,
		operator:   deps.Operator,
	}
}
