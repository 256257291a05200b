package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/api/handlers"
	"orcsync.io/hub/internal/api/middleware"
	"orcsync.io/hub/internal/config"
	"orcsync.io/hub/internal/metrics"
	"orcsync.io/hub/internal/pkg/logger"
)

// defaultAllowedOrigins is the dev-frontend allowlist used when no origins
// are configured.
var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
}

// newRouter assembles the HTTP surface. Station-facing sync routes and the
// sync-config admin routes keep their legacy paths, trailing slashes
// included, so deployed station agents and admin frontends keep working.
// Go-native additions (health, metrics, login, log level) follow the usual
// conventions instead.
func newRouter(cfg *config.Config, server *handlers.Server, db *gorm.DB, signingKey []byte) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	router.Use(cors.New(buildCORSConfig(cfg)))

	router.GET("/health/live", server.GetLiveness)
	router.GET("/health/ready", server.GetReadiness)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.POST("/auth/login", server.Login)

	// Station-facing sync endpoints, authenticated by per-station API key.
	station := router.Group("/", middleware.APIKeyAuth(db))
	{
		station.POST("/push/", server.Push)
		station.GET("/get-pending/", server.GetPending)
		station.POST("/acknowledge/", server.Acknowledge)
	}

	// Operator surface: sync target administration behind JWT auth.
	admin := router.Group("/", middleware.JWTAuth(signingKey))
	{
		admin.GET("/sync-configs/", server.ListSyncConfigs)
		admin.POST("/sync-configs/", server.CreateSyncConfig)
		// Read alias kept for older admin frontends.
		admin.GET("/sync-configs-list/", server.ListSyncConfigs)
		admin.GET("/sync-configs/:id/", server.GetSyncConfig)
		admin.PATCH("/sync-configs/:id/", server.UpdateSyncConfig)
		admin.DELETE("/sync-configs/:id/", server.DeleteSyncConfig)
		admin.GET("/workstation-list/", server.ListWorkstations)

		// Runtime log level: GET returns the current level, PUT changes it.
		admin.GET("/log/level", gin.WrapH(logger.HTTPHandler()))
		admin.PUT("/log/level", gin.WrapH(logger.HTTPHandler()))
	}

	return router
}

// buildCORSConfig translates the config section into a gin-contrib/cors
// policy. A literal "*" origin is stripped unless the unsafe flag is set;
// browsers refuse credentialed wildcard responses anyway, so the wildcard
// path also forces credentials off.
func buildCORSConfig(cfg *config.Config) cors.Config {
	out := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if cfg.CORS.UnsafeAllowAllOrigins {
		out.AllowAllOrigins = true
		out.AllowCredentials = false
		return out
	}

	origins := make([]string, 0, len(cfg.CORS.AllowedOrigins))
	for _, origin := range cfg.CORS.AllowedOrigins {
		if origin == "*" {
			continue
		}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins...)
	}
	out.AllowOrigins = origins
	return out
}
