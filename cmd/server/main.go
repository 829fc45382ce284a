package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mixpool-backend/internal/app"
	"mixpool-backend/internal/config"
	"mixpool-backend/internal/db"
	"mixpool-backend/internal/events"
	"mixpool-backend/internal/router"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: config.yaml, config.local.yaml preferred if present)")
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	if config.AppConfig.Storage.Mode == "postgres" {
		db.InitDB()
		defer db.CloseDB()
	}

	container, err := app.InitializeContainer()
	if err != nil {
		log.Fatalf("❌ Failed to initialize services: %v", err)
	}

	// The event bus is optional: pool operations never depend on it.
	if err := events.InitNATSServices(); err != nil {
		log.Printf("⚠️ NATS event publishing disabled: %v", err)
	}
	defer events.Close()

	container.Start()
	defer container.Cleanup()

	r := router.SetupRouter(container)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Server.Host, config.AppConfig.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 MixPool backend listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutdown signal received, draining...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Forced shutdown: %v", err)
	}

	log.Println("✅ Server stopped")
}
