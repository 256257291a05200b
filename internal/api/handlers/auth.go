package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"orcsync.io/hub/internal/api/middleware"
	"orcsync.io/hub/internal/pkg/logger"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login — exchanges the configured operator
// credentials for the bearer token the admin endpoints require.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "username and password are required",
		})
		return
	}

	if s.operator.Username == "" || s.operator.PasswordHash == "" {
		logger.Warn("login rejected: no operator account configured")
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "INVALID_CREDENTIALS",
			"message": "invalid username or password",
		})
		return
	}

	// Constant-time username check; bcrypt covers the password.
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.operator.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(s.operator.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		logger.Warn("login failed: invalid credentials")
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "INVALID_CREDENTIALS",
			"message": "invalid username or password",
		})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(s.jwtCfg, req.Username)
	if err != nil {
		logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "An internal error occurred",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}
