package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/ports"
	"github.com/samirrijal/voltrip/internal/pkg/metrics"
)

// DirectoryService fronts a ChargerDirectory with a read-through cache, a
// per-query deadline, and merging of overlapping box queries.
type DirectoryService struct {
	dir      ports.ChargerDirectory
	cache    ports.CacheService
	cacheTTL int
	timeout  time.Duration
}

// NewDirectoryService creates a new DirectoryService. cache may be nil.
func NewDirectoryService(dir ports.ChargerDirectory, cache ports.CacheService, cacheTTLSeconds int, timeout time.Duration) *DirectoryService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DirectoryService{dir: dir, cache: cache, cacheTTL: cacheTTLSeconds, timeout: timeout}
}

// DiscoveryResult is the merged outcome of several box queries.
type DiscoveryResult struct {
	Chargers []domain.Charger
	Queried  int
	Errors   []error
}

// Empty reports whether every successful query came back without chargers.
func (r DiscoveryResult) Empty() bool { return len(r.Chargers) == 0 }

// Failed reports whether every query failed.
func (r DiscoveryResult) Failed() bool { return r.Queried > 0 && len(r.Errors) == r.Queried }

// QueryAvailable returns chargers inside box, consulting the cache first.
func (s *DirectoryService) QueryAvailable(ctx context.Context, box domain.BoundingBox) ([]domain.Charger, error) {
	cacheKey := "chargers:box:" + box.String()
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var chargers []domain.Charger
			if err := json.Unmarshal(data, &chargers); err == nil {
				metrics.CacheHits.WithLabelValues("chargers").Inc()
				return chargers, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("chargers").Inc()
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	chargers, err := s.dir.QueryAvailable(qctx, box)
	if err != nil {
		metrics.DiscoveryErrors.Inc()
		return nil, classifyExternal(err)
	}
	if chargers == nil {
		chargers = []domain.Charger{}
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if data, err := json.Marshal(chargers); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}

	return chargers, nil
}

// Discover queries every box in order and merges the results, dropping
// duplicates by position and id. A failing box does not stop the others.
func (s *DirectoryService) Discover(ctx context.Context, boxes []domain.BoundingBox) DiscoveryResult {
	var res DiscoveryResult
	seen := make(map[string]struct{})

	for _, box := range boxes {
		if err := ctx.Err(); err != nil {
			res.Queried++
			res.Errors = append(res.Errors, classifyExternal(err))
			continue
		}

		res.Queried++
		metrics.DiscoveryQueries.Inc()

		chargers, err := s.QueryAvailable(ctx, box)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("query %s: %w", box, err))
			continue
		}
		for _, c := range chargers {
			if _, dup := seen[c.Key()]; dup {
				continue
			}
			seen[c.Key()] = struct{}{}
			res.Chargers = append(res.Chargers, c)
		}
	}

	return res
}

// classifyExternal maps transport-level failures onto the domain taxonomy.
func classifyExternal(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, domain.ErrServiceError),
		errors.Is(err, domain.ErrRouteComputationFailed):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrServiceError, err)
	}
}
