package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"mixpool-backend/internal/clients"
	"mixpool-backend/internal/config"
	"mixpool-backend/internal/db"
	"mixpool-backend/internal/handlers"
	"mixpool-backend/internal/mixer"
	"mixpool-backend/internal/repository"
	"mixpool-backend/internal/services"
)

// ServiceContainer wires the pool engine, its storage backend, the
// settlement pipeline and the HTTP handlers together.
type ServiceContainer struct {
	// Core domain
	Engine       *mixer.Engine
	IntentQueue  services.IntentQueue
	MixerService *services.MixerService

	// Settlement & push
	SettlementClient     *clients.SettlementClient
	SettlementDispatcher *services.SettlementDispatcher
	PushService          *services.WebSocketPushService
	MonitoringService    *services.MonitoringService

	// HTTP handlers
	MixerHandler        *handlers.MixerHandler
	AuthHandler         *handlers.AuthHandler
	AdminAuthHandler    *handlers.AdminAuthHandler
	AdminIntentsHandler *handlers.AdminIntentsHandler
	WebSocketHandler    *handlers.WebSocketHandler
}

// Global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container once. Subsequent calls return
// the same instance.
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		log.Println("🚀 Initializing Service Container...")

		container := &ServiceContainer{}

		if err := container.initEngine(); err != nil {
			initErr = fmt.Errorf("failed to initialize pool engine: %w", err)
			return
		}
		container.initServices()
		if err := container.autoInitPool(); err != nil {
			initErr = err
			return
		}
		container.initHandlers()

		Container = container
		log.Println("✅ Service Container initialized successfully")
	})

	return Container, initErr
}

// initEngine builds the pool state machine on the configured storage
// backend. Postgres is the default; memory mode runs the same engine
// against in-process stores and is meant for development.
func (c *ServiceContainer) initEngine() error {
	cfg := config.AppConfig
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	scheme, err := mixer.ParseScheme(cfg.Mixer.Scheme)
	if err != nil {
		return err
	}
	verifier, err := mixer.NewVerifier(scheme)
	if err != nil {
		return err
	}

	denominations := mixer.DefaultDenominations()
	if len(cfg.Mixer.Denominations) > 0 {
		denominations, err = mixer.ParseDenominations(cfg.Mixer.Denominations)
		if err != nil {
			return fmt.Errorf("invalid denominations: %w", err)
		}
	}

	minDelay, err := cfg.Mixer.ParseMinDelay()
	if err != nil {
		return fmt.Errorf("invalid minDelay: %w", err)
	}

	var stores mixer.Stores
	var runner mixer.TxRunner

	switch cfg.Storage.Mode {
	case "memory":
		log.Println("📦 Storage: in-memory (pool state is lost on restart)")
		mem := mixer.NewMemStores()
		queue := services.NewMemoryIntentQueue()
		mem.UseIntentStore(queue)
		stores = mem.Stores()
		runner = mem
		c.IntentQueue = queue
	default: // postgres
		if db.DB == nil {
			return fmt.Errorf("storage mode is postgres but the database is not connected")
		}
		log.Println("📦 Storage: postgres")
		stores = repository.NewStores(db.DB)
		runner = repository.NewTxRunner(db.DB)
		c.IntentQueue = repository.NewTransferIntentRepository(db.DB)
	}

	c.Engine = mixer.NewEngine(mixer.EngineConfig{
		Denominations: denominations,
		MinDelay:      minDelay,
		Verifier:      verifier,
		Runner:        runner,
		Stores:        stores,
	})

	log.Printf("🔧 Pool engine ready: scheme=%s minDelay=%s denominations=%d",
		scheme, minDelay, denominations.Len())

	// Surface persisted pool state at startup; a pool that has never
	// been initialized is not an error here.
	ctx := context.Background()
	switch err := c.Engine.Restore(ctx); {
	case err == nil:
		log.Printf("📦 Pool state restored: owner=%s fee=%dbp",
			c.Engine.Owner(ctx), c.Engine.FeeBasisPoints(ctx))
	case errors.Is(err, mixer.ErrNotInitialized):
		log.Println("📦 Pool awaiting initialization")
	default:
		return fmt.Errorf("failed to load pool state: %w", err)
	}
	return nil
}

// initServices builds the settlement pipeline and the push feed
func (c *ServiceContainer) initServices() {
	c.PushService = services.NewWebSocketPushService()

	c.SettlementClient = clients.NewSettlementClient(config.GetSettlementURL())
	c.SettlementDispatcher = services.NewSettlementDispatcher(c.IntentQueue, c.SettlementClient, c.PushService)

	c.MixerService = services.NewMixerService(c.Engine, c.SettlementDispatcher, c.PushService)

	// db.DB is nil in memory mode; the monitoring service skips the
	// database gauges in that case.
	c.MonitoringService = services.NewMonitoringService(db.DB, c.IntentQueue)
}

// autoInitPool bootstraps the pool from the config file when mixer.autoInit
// is set. A pool that is already initialized keeps its stored owner and fee.
func (c *ServiceContainer) autoInitPool() error {
	cfg := config.AppConfig
	if cfg == nil || !cfg.Mixer.AutoInit {
		return nil
	}

	err := c.MixerService.Init(context.Background(), cfg.Mixer.Owner, cfg.Mixer.FeeBasisPoints)
	switch {
	case errors.Is(err, mixer.ErrAlreadyInitialized):
		log.Println("📦 Pool already initialized, keeping stored owner and fee")
	case err != nil:
		return fmt.Errorf("pool auto-init failed: %w", err)
	}
	return nil
}

// initHandlers builds the HTTP layer on top of the services
func (c *ServiceContainer) initHandlers() {
	c.MixerHandler = handlers.NewMixerHandler(c.MixerService)
	c.AuthHandler = handlers.NewAuthHandler()
	c.AdminAuthHandler = handlers.NewAdminAuthHandler()
	c.AdminIntentsHandler = handlers.NewAdminIntentsHandler(c.IntentQueue, c.SettlementDispatcher, c.PushService)
	c.WebSocketHandler = handlers.NewWebSocketHandler(c.PushService)
}

// Start launches the background workers
func (c *ServiceContainer) Start() {
	c.SettlementDispatcher.Start()
	c.MonitoringService.Start()
}

// Cleanup stops the background workers
func (c *ServiceContainer) Cleanup() {
	log.Println("🧹 Cleaning up Service Container...")

	if c.MonitoringService != nil {
		c.MonitoringService.Stop()
	}
	if c.SettlementDispatcher != nil {
		c.SettlementDispatcher.Stop()
	}

	log.Println("✅ Service Container cleaned up")
}
