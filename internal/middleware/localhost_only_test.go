package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func restrictedRouter(allowedIPs []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	router := gin.New()
	guard := NewLocalhostOnly(logger, allowedIPs)
	router.GET("/admin", guard.Restrict(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func requestFrom(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRestrictAllowsLoopback(t *testing.T) {
	router := restrictedRouter(nil)

	assert.Equal(t, http.StatusOK, requestFrom(router, "127.0.0.1:52100").Code)
	assert.Equal(t, http.StatusOK, requestFrom(router, "[::1]:52100").Code)
}

func TestRestrictRejectsUnlistedIP(t *testing.T) {
	router := restrictedRouter(nil)

	rec := requestFrom(router, "203.0.113.9:52100")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "IP_NOT_ALLOWED")
}

func TestRestrictHonorsExactWhitelist(t *testing.T) {
	router := restrictedRouter([]string{"203.0.113.9"})

	assert.Equal(t, http.StatusOK, requestFrom(router, "203.0.113.9:52100").Code)
	assert.Equal(t, http.StatusForbidden, requestFrom(router, "203.0.113.10:52100").Code)
}

func TestRestrictHonorsCIDRWhitelist(t *testing.T) {
	router := restrictedRouter([]string{"10.8.0.0/24"})

	assert.Equal(t, http.StatusOK, requestFrom(router, "10.8.0.77:52100").Code)
	assert.Equal(t, http.StatusForbidden, requestFrom(router, "10.9.0.77:52100").Code)
}

func TestIsLocalhost(t *testing.T) {
	assert.True(t, isLocalhost("127.0.0.1"))
	assert.True(t, isLocalhost("::1"))
	assert.True(t, isLocalhost("localhost"))
	assert.False(t, isLocalhost("192.168.1.1"))
	assert.False(t, isLocalhost(""))
}
