package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orcsync.io/hub/internal/testutil"
)

func healthRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.GET("/health/live", s.GetLiveness)
	r.GET("/health/ready", s.GetReadiness)
	return r
}

func TestLiveness(t *testing.T) {
	r := healthRouter(NewServer(ServerDeps{}))

	w := getJSON(t, r, "/health/live")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestReadiness_DatabaseUp(t *testing.T) {
	t.Parallel()
	pool := testutil.OpenPGXPool(t, "health-ready")
	r := healthRouter(NewServer(ServerDeps{Pool: pool}))

	w := getJSON(t, r, "/health/ready")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok", "checks": {"database": "ok"}}`, w.Body.String())
}

func TestReadiness_DatabaseDown(t *testing.T) {
	t.Parallel()
	pool := testutil.OpenPGXPool(t, "health-down")
	pool.Close()
	r := healthRouter(NewServer(ServerDeps{Pool: pool}))

	w := getJSON(t, r, "/health/ready")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status": "degraded", "checks": {"database": "error"}}`, w.Body.String())
}
