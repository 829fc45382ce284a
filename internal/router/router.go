package router

import (
	"mixpool-backend/internal/app"
	"mixpool-backend/internal/config"
	"mixpool-backend/internal/handlers"
	"mixpool-backend/internal/middleware"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsOrigins resolves the allowed origin list.
// Priority: Environment Variable > YAML Config > Default (*)
func corsOrigins() (origins []string, allowCredentials bool, maxAge int) {
	allowCredentials = true
	maxAge = 3600

	if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
		for _, o := range strings.Split(envOrigins, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
		return origins, allowCredentials, maxAge
	}

	if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
		origins = config.AppConfig.CORS.AllowedOrigins
		allowCredentials = config.AppConfig.CORS.AllowCredentials
		if config.AppConfig.CORS.MaxAge > 0 {
			maxAge = config.AppConfig.CORS.MaxAge
		}
		return origins, allowCredentials, maxAge
	}

	return []string{"*"}, allowCredentials, maxAge
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if strings.TrimSpace(a) == origin {
			return true
		}
	}
	return false
}

// corsMiddleware CORS middleware. The origin list is resolved per
// request so environment overrides take effect without a restart.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigins, allowCredentials, maxAge := corsOrigins()

		wildcard := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"
		if wildcard {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			if originAllowed(origin, allowedOrigins) {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				logrus.WithFields(logrus.Fields{
					"request_origin":  origin,
					"allowed_origins": allowedOrigins,
					"path":            c.Request.URL.Path,
					"method":          c.Request.Method,
					"remote_addr":     c.ClientIP(),
				}).Warn("🚫 CORS: Request blocked - Origin not in whitelist")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		// Preflight requests are answered here so proxies always see
		// the CORS headers.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		c.Next()
	}
}

// SetupRouter builds the HTTP surface of the pool service. Public pool
// endpoints carry no authentication at all: deposits and withdrawals
// prove themselves through commitments and withdrawal credentials, not
// through accounts. The fee update requires a wallet JWT, and the admin
// surface sits behind the IP whitelist plus an admin JWT.
func SetupRouter(container *app.ServiceContainer) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	logger := logrus.New()
	var allowedIPs []string
	if config.AppConfig != nil && len(config.AppConfig.Admin.AllowedIPs) > 0 {
		allowedIPs = config.AppConfig.Admin.AllowedIPs
		logger.WithFields(logrus.Fields{
			"allowed_ips": allowedIPs,
			"count":       len(allowedIPs),
		}).Info("Admin API IP whitelist configured")
	} else {
		logger.Info("No admin.allowedIPs configured, using localhost-only mode")
	}

	localhostOnly := middleware.NewLocalhostOnly(logger, allowedIPs)
	authMiddleware := middleware.NewAuthMiddleware(logger)
	adminAuthMiddleware := middleware.NewAdminAuthMiddleware(logger)

	// ============ Health ============
	r.GET("/ping", handlers.PingHandler)
	r.GET("/health", handlers.HealthCheckHandler)

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ WebSocket Event Feed ============
	r.GET("/ws", container.WebSocketHandler.HandleWebSocketHandler)

	// ============ API Routes ============
	api := r.Group("/api/v1")
	{
		// ============ Wallet Authentication ============
		auth := api.Group("/auth")
		{
			auth.POST("/nonce", container.AuthHandler.GenerateNonceHandler)
			auth.POST("/login", container.AuthHandler.AuthenticateHandler)
		}

		// ============ Mixing Pool ============
		pool := api.Group("/mixer")
		{
			pool.POST("/deposit", container.MixerHandler.DepositHandler)
			pool.POST("/withdraw", container.MixerHandler.WithdrawHandler)
			pool.GET("/config", container.MixerHandler.ConfigHandler)
			pool.GET("/stats", container.MixerHandler.StatsHandler)
			pool.GET("/commitments/:commitment", container.MixerHandler.CommitmentStatusHandler)
			pool.GET("/tokens/:token", container.MixerHandler.SpentTokenHandler)

			// Owner-only: the engine compares the JWT wallet against
			// the pool owner.
			pool.PUT("/fee", authMiddleware.RequireAuth(), container.MixerHandler.UpdateFeeHandler)
		}

		// ============ Admin (IP whitelisted) ============
		admin := api.Group("/admin")
		admin.Use(localhostOnly.Restrict())
		{
			adminAuth := admin.Group("/auth")
			{
				adminAuth.POST("/login", container.AdminAuthHandler.AdminLoginHandler)
				adminAuth.POST("/totp/generate", container.AdminAuthHandler.GenerateTOTPSecretHandler)
			}

			secured := admin.Group("")
			secured.Use(adminAuthMiddleware.RequireAdminAuth())
			{
				secured.POST("/mixer/init", container.MixerHandler.InitPoolHandler)
				secured.GET("/transfers", container.AdminIntentsHandler.ListTransfersHandler)
				secured.GET("/transfers/:id", container.AdminIntentsHandler.GetTransferHandler)
				secured.POST("/transfers/:id/retry", container.AdminIntentsHandler.RetryTransferHandler)
				secured.GET("/ws/connections", container.AdminIntentsHandler.WSConnectionsHandler)
			}
		}
	}

	// ============ NoRoute handler for 404 ============
	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path

		if len(path) >= 4 && path[:4] != "/api" {
			c.JSON(http.StatusNotFound, gin.H{
				"message":    "Endpoint not found",
				"path":       path,
				"suggestion": "Check /api/v1 endpoints for available APIs",
			})
			return
		}

		c.JSON(http.StatusNotFound, gin.H{
			"message":    "API endpoint not found",
			"path":       path,
			"suggestion": "Check documentation for available /api/v1 endpoints",
		})
	})

	return r
}
