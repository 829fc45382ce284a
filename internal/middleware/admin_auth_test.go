package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mixpool-backend/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	router := gin.New()
	guard := NewAdminAuthMiddleware(logger)
	router.GET("/admin", guard.RequireAdminAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": c.GetString("admin_username")})
	})
	return router
}

func adminRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func signAdminToken(t *testing.T, secret, role string, expiresIn time.Duration) string {
	t.Helper()
	claims := handlers.AdminJWTClaims{
		Username: "admin",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "mixpool-backend-admin",
			Subject:   "admin",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestRequireAdminAuthRejections(t *testing.T) {
	router := adminRouter()

	rec := adminRequest(router, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_AUTH_HEADER")

	rec = adminRequest(router, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_AUTH_FORMAT")

	rec = adminRequest(router, "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMPTY_TOKEN")

	rec = adminRequest(router, "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
}

func TestRequireAdminAuthAcceptsAdminToken(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "middleware-test-secret")
	router := adminRouter()

	token := signAdminToken(t, "middleware-test-secret", "admin", time.Hour)
	rec := adminRequest(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin")
}

func TestRequireAdminAuthRejectsNonAdminRole(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "middleware-test-secret")
	router := adminRouter()

	token := signAdminToken(t, "middleware-test-secret", "viewer", time.Hour)
	rec := adminRequest(router, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "INSUFFICIENT_PERMISSIONS")
}

func TestRequireAdminAuthRejectsExpiredToken(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "middleware-test-secret")
	router := adminRouter()

	token := signAdminToken(t, "middleware-test-secret", "admin", -time.Minute)
	rec := adminRequest(router, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
}

func TestRequireAuthRejections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	router := gin.New()
	guard := NewAuthMiddleware(logger)
	router.GET("/wallet", guard.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"wallet": c.GetString("wallet_address")})
	})

	req := httptest.NewRequest(http.MethodGet, "/wallet", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_AUTH_HEADER")

	req = httptest.NewRequest(http.MethodGet, "/wallet", nil)
	req.Header.Set("Authorization", "Bearer bogus.token.here")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
}
