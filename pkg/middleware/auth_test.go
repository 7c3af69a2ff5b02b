package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskflow/pkg/jwt"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func newAuthRouter(jwtService *jwt.Service) *gin.Engine {
	router := setupTestRouter()
	router.Use(AuthMiddleware(jwtService))
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "role": c.GetString("role")})
	})
	return router
}

func TestAuthMiddleware_SetsCaller(t *testing.T) {
	jwtService := jwt.NewService("test-secret-key")
	token, err := jwtService.GenerateToken("user-123", "admin")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newAuthRouter(jwtService).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user-123", body["user_id"])
	assert.Equal(t, "admin", body["role"])
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	jwtService := jwt.NewService("test-secret-key")

	expired, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, jwt.Claims{
		UserID: "user-123",
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("test-secret-key"))
	require.NoError(t, err)

	cases := []struct {
		name    string
		header  string
		message string
	}{
		{"no header", "", "Authorization header required"},
		{"not bearer", "Token abc", "Invalid authorization format"},
		{"garbage token", "Bearer invalid-token", "Invalid or expired token"},
		{"expired token", "Bearer " + expired, "Invalid or expired token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			newAuthRouter(jwtService).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tc.message)
		})
	}
}
