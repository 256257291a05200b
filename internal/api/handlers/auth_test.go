package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"orcsync.io/hub/internal/api/middleware"
)

func authRouter(t *testing.T, operator OperatorCredentials) *gin.Engine {
	t.Helper()
	s := NewServer(ServerDeps{
		JWTCfg: middleware.JWTConfig{
			SigningKey: []byte("test-signing-key-1234567890123456"),
			Issuer:     "orcsync-hub",
			ExpiresIn:  time.Hour,
		},
		Operator: operator,
	})
	r := gin.New()
	r.POST("/auth/login", s.Login)
	return r
}

func TestLogin_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	r := authRouter(t, OperatorCredentials{Username: "admin", PasswordHash: string(hash)})
	w := postJSON(t, r, "/auth/login", `{"username": "admin", "password": "hunter2"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["expires_at"])
}

func TestLogin_Rejections(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	operator := OperatorCredentials{Username: "admin", PasswordHash: string(hash)}

	tests := []struct {
		name     string
		operator OperatorCredentials
		body     string
		wantCode int
	}{
		{"wrong password", operator, `{"username": "admin", "password": "wrong"}`, http.StatusUnauthorized},
		{"wrong username", operator, `{"username": "root", "password": "hunter2"}`, http.StatusUnauthorized},
		{"missing password", operator, `{"username": "admin"}`, http.StatusBadRequest},
		{"empty body", operator, `{}`, http.StatusBadRequest},
		{"no operator configured", OperatorCredentials{}, `{"username": "admin", "password": "hunter2"}`, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := authRouter(t, tt.operator)
			w := postJSON(t, r, "/auth/login", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
