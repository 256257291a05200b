package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"orcsync.io/hub/internal/model"
)

const (
	// apiKeyScheme is the Authorization scheme station agents present.
	apiKeyScheme = "api-key"

	// ContextStation is the Gin context key holding the authenticated *model.Station.
	ContextStation = "station"
)

// APIKeyAuth returns a Gin middleware that authenticates station agents by
// their issued API key. The Authorization header carries `Api-Key <key>`;
// the matching credential's station is stored in the Gin context for the
// sync handlers.
//
// Failures use the flat {"detail": ...} body station agents parse, not the
// code/message envelope of the operator API.
func APIKeyAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := parseAPIKeyHeader(c.GetHeader("Authorization"))
		if !ok {
			abortAPIKey(c)
			return
		}

		var cred model.StationCredential
		err := db.WithContext(c.Request.Context()).
			Preload("Station").
			Where("api_key = ?", key).
			First(&cred).Error
		if err != nil || cred.Station == nil {
			abortAPIKey(c)
			return
		}

		c.Set(ContextStation, cred.Station)
		c.Next()
	}
}

// parseAPIKeyHeader extracts the key from an `Api-Key <key>` header. The
// scheme match is case-insensitive and the header must have exactly two
// whitespace-separated fields.
func parseAPIKeyHeader(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], apiKeyScheme) {
		return "", false
	}
	return parts[1], true
}

func abortAPIKey(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"detail": "Invalid or missing API Key.",
	})
}

// StationFromContext returns the station authenticated by APIKeyAuth.
func StationFromContext(c *gin.Context) (*model.Station, bool) {
	v, ok := c.Get(ContextStation)
	if !ok {
		return nil, false
	}
	s, ok := v.(*model.Station)
	return s, ok
}
