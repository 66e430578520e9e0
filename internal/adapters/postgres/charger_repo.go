package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/voltrip/internal/core/domain"
)

// ChargerRepo implements ports.ChargerRepository on a PostGIS table.
type ChargerRepo struct {
	db *DB
}

// NewChargerRepo creates a new ChargerRepo.
func NewChargerRepo(db *DB) *ChargerRepo {
	return &ChargerRepo{db: db}
}

const upsertCharger = `
	INSERT INTO chargers (source, charger_id, position_key, location)
	VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326))
	ON CONFLICT (source, position_key, charger_id) DO UPDATE
	SET location = EXCLUDED.location, seen_at = now()
`

// UpsertBatch stores chargers from source using pgx.Batch and returns the
// number of rows written.
func (r *ChargerRepo) UpsertBatch(ctx context.Context, source string, chargers []domain.Charger) (int, error) {
	if len(chargers) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, c := range chargers {
		batch.Queue(upsertCharger, source, c.ID, c.Position.Key(), c.Position.Lng, c.Position.Lat)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	n := 0
	for range chargers {
		tag, err := br.Exec()
		if err != nil {
			return n, fmt.Errorf("batch exec: %w", err)
		}
		n += int(tag.RowsAffected())
	}
	return n, nil
}

// QueryAvailable returns chargers whose location falls inside box.
func (r *ChargerRepo) QueryAvailable(ctx context.Context, box domain.BoundingBox) ([]domain.Charger, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("%w: invalid box %s", domain.ErrServiceError, box)
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT charger_id,
		       ST_Y(location) AS lat,
		       ST_X(location) AS lng
		FROM chargers
		WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY id
	`, box.MinLng, box.MinLat, box.MaxLng, box.MaxLat)
	if err != nil {
		return nil, fmt.Errorf("%w: query chargers: %v", domain.ErrServiceError, err)
	}
	defer rows.Close()

	chargers := []domain.Charger{}
	for rows.Next() {
		var c domain.Charger
		if err := rows.Scan(&c.ID, &c.Position.Lat, &c.Position.Lng); err != nil {
			return nil, fmt.Errorf("%w: scan charger: %v", domain.ErrServiceError, err)
		}
		chargers = append(chargers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceError, err)
	}
	return chargers, nil
}

// Count returns the number of stored chargers.
func (r *ChargerRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM chargers`).Scan(&n)
	return n, err
}
