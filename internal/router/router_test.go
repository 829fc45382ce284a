package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mixpool-backend/internal/app"
	"mixpool-backend/internal/clients"
	"mixpool-backend/internal/handlers"
	"mixpool-backend/internal/mixer"
	"mixpool-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testContainer assembles the container by hand on the in-memory store,
// the same shape InitializeContainer builds in memory mode.
func testContainer(t *testing.T) *app.ServiceContainer {
	t.Helper()

	queue := services.NewMemoryIntentQueue()
	mem := mixer.NewMemStores()
	mem.UseIntentStore(queue)

	verifier, err := mixer.NewVerifier(mixer.SchemeSecretReveal)
	require.NoError(t, err)

	engine := mixer.NewEngine(mixer.EngineConfig{
		Denominations: mixer.DefaultDenominations(),
		MinDelay:      time.Hour,
		Verifier:      verifier,
		Runner:        mem,
		Stores:        mem.Stores(),
	})

	push := services.NewWebSocketPushService()
	dispatcher := services.NewSettlementDispatcher(queue, clients.NewSettlementClient("http://127.0.0.1:1"), push)
	svc := services.NewMixerService(engine, dispatcher, push)

	return &app.ServiceContainer{
		Engine:               engine,
		IntentQueue:          queue,
		MixerService:         svc,
		SettlementDispatcher: dispatcher,
		PushService:          push,
		MixerHandler:         handlers.NewMixerHandler(svc),
		AuthHandler:          handlers.NewAuthHandler(),
		AdminAuthHandler:     handlers.NewAdminAuthHandler(),
		AdminIntentsHandler:  handlers.NewAdminIntentsHandler(queue, dispatcher, push),
		WebSocketHandler:     handlers.NewWebSocketHandler(push),
	}
}

func serve(router *gin.Engine, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSetupRouterHealthEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(testContainer(t))

	rec := serve(router, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pong")

	rec = serve(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")

	rec = serve(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupRouterNoRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(testContainer(t))

	rec := serve(router, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Endpoint not found")

	rec = serve(router, http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "API endpoint not found")
}

func TestSetupRouterCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(testContainer(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/mixer/config", nil)
	req.Header.Set("Origin", "http://example.test")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestSetupRouterMountsPoolEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(testContainer(t))

	// Uninitialized pool: the handler is reachable and answers 503
	rec := serve(router, http.MethodGet, "/api/v1/mixer/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Config is readable before initialization
	rec = serve(router, http.MethodGet, "/api/v1/mixer/config", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "secret_reveal")
}

func TestSetupRouterFeeRequiresWalletJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(testContainer(t))

	rec := serve(router, http.MethodPut, "/api/v1/mixer/fee", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_AUTH_HEADER")
}

func TestSetupRouterAdminLayering(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(testContainer(t))

	// Non-local callers never reach the admin handlers
	rec := serve(router, http.MethodGet, "/api/v1/admin/transfers", "203.0.113.9:40000")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "IP_NOT_ALLOWED")

	// Local callers pass the IP gate and hit the JWT check
	rec = serve(router, http.MethodGet, "/api/v1/admin/transfers", "127.0.0.1:40000")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_AUTH_HEADER")
}
