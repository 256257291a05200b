package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAPIKeyHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantKey string
		wantOK  bool
	}{
		{"canonical", "Api-Key abc123def456", "abc123def456", true},
		{"lowercase scheme", "api-key abc123def456", "abc123def456", true},
		{"uppercase scheme", "API-KEY abc123def456", "abc123def456", true},
		{"extra whitespace", "Api-Key   abc123def456", "abc123def456", true},
		{"empty", "", "", false},
		{"scheme only", "Api-Key", "", false},
		{"trailing fields", "Api-Key abc def", "", false},
		{"bearer scheme", "Bearer abc123def456", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := parseAPIKeyHeader(tt.header)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

// Malformed headers are rejected before any credential lookup, so the
// middleware runs with a nil DB handle here.
func TestAPIKeyAuth_RejectsMalformedHeader(t *testing.T) {
	router := gin.New()
	router.Use(APIKeyAuth(nil))
	router.POST("/push", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for _, header := range []string{"", "Bearer abc", "Api-Key", "Api-Key a b"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/push", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
		assert.JSONEq(t, `{"detail": "Invalid or missing API Key."}`, w.Body.String())
	}
}

func TestStationFromContext_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	station, ok := StationFromContext(c)
	assert.False(t, ok)
	assert.Nil(t, station)
}
