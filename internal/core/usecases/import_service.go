package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/ports"
)

// maxGridCells caps the remote queries of one import.
const maxGridCells = 10000

// ImportStats summarizes a grid import.
type ImportStats struct {
	Cells    int
	Failed   int
	Chargers int
	Stored   int
}

// ImportService copies chargers from a remote directory into the local repository.
type ImportService struct {
	remote      ports.ChargerDirectory
	repo        ports.ChargerRepository
	concurrency int
}

// NewImportService creates a new ImportService.
func NewImportService(remote ports.ChargerDirectory, repo ports.ChargerRepository, concurrency int) *ImportService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &ImportService{remote: remote, repo: repo, concurrency: concurrency}
}

// GridCells splits box into cells roughly cellMeters on a side, row by row
// from the south-west corner.
func GridCells(box domain.BoundingBox, cellMeters float64) ([]domain.BoundingBox, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("invalid region %s", box)
	}
	if cellMeters <= 0 {
		return []domain.BoundingBox{box}, nil
	}

	midLat := (box.MinLat + box.MaxLat) / 2
	latStep := cellMeters / 111320.0
	lngStep := cellMeters / (111320.0 * math.Max(math.Cos(midLat*math.Pi/180), 0.01))

	rows := int(math.Max(1, math.Ceil((box.MaxLat-box.MinLat)/latStep)))
	cols := int(math.Max(1, math.Ceil((box.MaxLng-box.MinLng)/lngStep)))
	if rows*cols > maxGridCells {
		return nil, fmt.Errorf("region %s needs %d cells, limit is %d", box, rows*cols, maxGridCells)
	}

	cells := make([]domain.BoundingBox, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cells = append(cells, domain.BoundingBox{
				MinLat: box.MinLat + float64(r)*latStep,
				MaxLat: math.Min(box.MinLat+float64(r+1)*latStep, box.MaxLat),
				MinLng: box.MinLng + float64(c)*lngStep,
				MaxLng: math.Min(box.MinLng+float64(c+1)*lngStep, box.MaxLng),
			})
		}
	}
	return cells, nil
}

// Import queries every cell of region and stores what it finds under source.
// Failing cells are logged and counted; the import carries on.
func (s *ImportService) Import(ctx context.Context, source string, region domain.BoundingBox, cellMeters float64) (ImportStats, error) {
	cells, err := GridCells(region, cellMeters)
	if err != nil {
		return ImportStats{}, err
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		seen  = make(map[string]struct{})
		found []domain.Charger
		stats = ImportStats{Cells: len(cells)}
	)
	sem := make(chan struct{}, s.concurrency)

cellLoop:
	for _, cell := range cells {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break cellLoop
		}
		wg.Add(1)
		go func(cell domain.BoundingBox) {
			defer wg.Done()
			defer func() { <-sem }()

			chargers, err := s.remote.QueryAvailable(ctx, cell)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				slog.Warn("import cell failed", "cell", cell.String(), "error", err)
				return
			}
			for _, c := range chargers {
				if _, dup := seen[c.Key()]; dup {
					continue
				}
				seen[c.Key()] = struct{}{}
				found = append(found, c)
			}
		}(cell)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	stats.Chargers = len(found)
	stored, err := s.repo.UpsertBatch(ctx, source, found)
	stats.Stored = stored
	if err != nil {
		return stats, fmt.Errorf("store chargers: %w", err)
	}
	return stats, nil
}
