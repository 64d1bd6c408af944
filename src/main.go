package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/pgpulse/pgpulse/src/api"
	"github.com/pgpulse/pgpulse/src/config"
	"github.com/pgpulse/pgpulse/src/db"
	"github.com/pgpulse/pgpulse/src/monitor"
	"github.com/pgpulse/pgpulse/src/provider"
	"github.com/pgpulse/pgpulse/src/recorder"
)

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)

	log.Info("Starting database performance monitor...")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level and format
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}
	if cfg.Logging.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the monitored database
	pool, err := db.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Optional long-term metrics sink
	var sink recorder.Sink
	if cfg.Recorder.Enabled {
		pgSink, err := recorder.NewPostgresSink(cfg.Recorder.DSN)
		if err != nil {
			log.Fatalf("Failed to open recorder sink: %v", err)
		}
		defer pgSink.Close()

		if err := pgSink.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare recorder schema: %v", err)
		}
		sink = pgSink

		log.Info("Recorder sink enabled")
	}

	// Build the monitoring engine
	engine := monitor.New(
		provider.NewPostgresProvider(pool),
		sink,
		cfg.Thresholds,
		log,
		monitor.Options{
			Interval:        cfg.Collection.Interval,
			SubQueryTimeout: cfg.Collection.SubQueryTimeout,
			HistoryCapacity: cfg.Collection.HistoryCapacity,
			TrendWindow:     cfg.Collection.TrendWindow,
		},
	)

	go engine.Start(ctx)

	log.Info("Started monitoring engine")

	// Setup HTTP router
	handler := api.NewHandler(engine, log)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Starting HTTP server on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down gracefully...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}

	log.Info("Database performance monitor stopped")
}
