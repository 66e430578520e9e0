package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/voltrip/internal/adapters/bolt"
	"github.com/samirrijal/voltrip/internal/adapters/directions"
	"github.com/samirrijal/voltrip/internal/adapters/http"
	natsadapter "github.com/samirrijal/voltrip/internal/adapters/nats"
	"github.com/samirrijal/voltrip/internal/adapters/postgres"
	"github.com/samirrijal/voltrip/internal/adapters/valkey"
	"github.com/samirrijal/voltrip/internal/core/ports"
	"github.com/samirrijal/voltrip/internal/core/usecases"
	"github.com/samirrijal/voltrip/internal/pkg/config"
	"github.com/samirrijal/voltrip/internal/pkg/logging"
	"github.com/samirrijal/voltrip/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("voltrip-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "voltrip-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	coverage, err := usecases.ParseLegCoverage(cfg.Discovery.LegCoverage)
	if err != nil {
		log.Fatalf("discovery: %v", err)
	}

	// Charger directory
	var db *postgres.DB
	var directory ports.ChargerDirectory
	switch cfg.Chargers.Source {
	case "postgres":
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		go db.ReportPoolMetrics(ctx, 15*time.Second)
		directory = postgres.NewChargerRepo(db)
	default:
		directory = bolt.New(bolt.Options{
			BaseURL:   cfg.Chargers.BaseURL,
			AppToken:  cfg.Chargers.AppToken,
			AuthToken: cfg.Chargers.AuthToken,
			Timeout:   cfg.Chargers.QueryTimeout(),
			Zoom:      cfg.Chargers.Zoom,
			MinZoom:   cfg.Chargers.MinZoom,
			MaxZoom:   cfg.Chargers.MaxZoom,
			Radius:    cfg.Chargers.Radius,
		})
	}
	slog.Info("charger directory configured", "source", cfg.Chargers.Source)

	// Cache
	var cacheSvc ports.CacheService
	var cachePinger http.Pinger
	cache, err := valkey.New(cfg.Valkey.Addr, "voltrip")
	if err != nil {
		slog.Warn("valkey unavailable, charger lookups are not cached", "error", err)
	} else {
		defer cache.Close()
		cacheSvc, cachePinger = cache, cache
	}

	// NATS
	deps := &http.Dependencies{DB: db, Cache: cachePinger, NATSPrefix: cfg.NATS.SubjectPrefix}
	presenters := usecases.MultiPresenter{usecases.LogPresenter{}}
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		slog.Warn("nats unavailable, session events are not relayed", "error", err)
	} else {
		defer pub.Close()
		presenters = append(presenters, pub)
		deps.Surveys = pub
		deps.NATS = pub.Conn()
	}

	// Use cases
	provider := directions.New(cfg.Directions.BaseURL, cfg.Directions.APIKey, cfg.Route.RouteTimeout())
	directorySvc := usecases.NewDirectoryService(directory, cacheSvc, cfg.Chargers.CacheTTL, cfg.Chargers.QueryTimeout())
	deps.Sessions = usecases.NewSessionManager(provider, directorySvc, presenters, usecases.SessionConfig{
		Scanner:           usecases.NewScanner(cfg.Discovery.ThresholdMeters, cfg.Discovery.MaxTriggers, cfg.Discovery.PadMeters),
		Coverage:          coverage,
		ExploreAlternates: cfg.Discovery.ExploreAlternates,
		RouteTimeout:      cfg.Route.RouteTimeout(),
		MaxWaypoints:      cfg.Route.MaxWaypoints,
	})

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Voltrip API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "ETag, Link, Location",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
