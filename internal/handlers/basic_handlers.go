package handlers

import (
	"net/http"

	"mixpool-backend/internal/config"

	"github.com/gin-gonic/gin"
)

// PingHandler liveness probe
// GET /ping
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// HealthCheckHandler service health summary
// GET /health
func HealthCheckHandler(c *gin.Context) {
	storage := "postgres"
	if config.AppConfig != nil && config.AppConfig.Storage.Mode != "" {
		storage = config.AppConfig.Storage.Mode
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "mixpool-backend",
		"storage": storage,
	})
}
