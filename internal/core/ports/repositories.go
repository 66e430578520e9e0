package ports

import (
	"context"

	"github.com/samirrijal/voltrip/internal/core/domain"
)

// ChargerRepository persists chargers for the local directory.
type ChargerRepository interface {
	ChargerDirectory
	UpsertBatch(ctx context.Context, source string, chargers []domain.Charger) (int, error)
	Count(ctx context.Context) (int, error)
}
