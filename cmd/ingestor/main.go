package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samirrijal/voltrip/internal/adapters/bolt"
	"github.com/samirrijal/voltrip/internal/adapters/postgres"
	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/usecases"
	"github.com/samirrijal/voltrip/internal/pkg/config"
	"github.com/samirrijal/voltrip/internal/pkg/logging"
)

// Manifest lists the regions to import.
type Manifest struct {
	Source  string        `json:"source"`
	Regions []RegionEntry `json:"regions"`
}

// RegionEntry is one rectangular import area.
type RegionEntry struct {
	Name       string             `json:"name"`
	Bounds     domain.BoundingBox `json:"bounds"`
	CellMeters float64            `json:"cell_meters"`
}

func main() {
	cfg, err := config.Load("voltrip-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "voltrip-ingestor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manifestPath := "regions.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}
	if manifest.Source == "" {
		manifest.Source = "bolt"
	}

	// Optional CLI arg: comma-separated region names
	nameFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, n := range strings.Split(os.Args[2], ",") {
			nameFilter[strings.TrimSpace(n)] = true
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	remote := bolt.New(bolt.Options{
		BaseURL:   cfg.Chargers.BaseURL,
		AppToken:  cfg.Chargers.AppToken,
		AuthToken: cfg.Chargers.AuthToken,
		Timeout:   cfg.Chargers.QueryTimeout(),
		Zoom:      cfg.Chargers.Zoom,
		MinZoom:   cfg.Chargers.MinZoom,
		MaxZoom:   cfg.Chargers.MaxZoom,
		Radius:    cfg.Chargers.Radius,
	})
	repo := postgres.NewChargerRepo(db)
	svc := usecases.NewImportService(remote, repo, 4)

	slog.Info("charger import starting", "regions", len(manifest.Regions), "source", manifest.Source)

	for _, region := range manifest.Regions {
		if len(nameFilter) > 0 && !nameFilter[region.Name] {
			continue
		}
		stats, err := svc.Import(ctx, manifest.Source, region.Bounds, region.CellMeters)
		if err != nil {
			slog.Error("region import failed", "region", region.Name, "error", err)
			continue
		}
		slog.Info("region imported",
			"region", region.Name,
			"cells", stats.Cells,
			"failed_cells", stats.Failed,
			"chargers", stats.Chargers,
			"stored", stats.Stored,
		)
	}

	total, err := repo.Count(ctx)
	if err != nil {
		slog.Warn("count chargers", "error", err)
	}
	slog.Info("charger import complete", "total_chargers", total)
}
