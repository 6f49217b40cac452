package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/UnLuCkYcOdEr69/Weatherly/internal/models"
)

// collector receives cache operation metrics.
type collector interface {
	IncCacheOp(operation, result string)
	ObserveCacheOp(operation string, d time.Duration)
}

// SnapshotRepository stores one weather snapshot per rounded coordinate
// pair. Rows are upserted in place and never deleted; entries older than
// the TTL are treated as misses and reclaimed by the next overwrite.
type SnapshotRepository struct {
	DB        *sql.DB
	log       zerolog.Logger
	m         collector
	ttl       time.Duration
	precision int
}

// NewSnapshotRepository constructs a repository with logger context and a
// metrics collector. precision is the number of decimal places kept when
// rounding coordinates into row keys.
func NewSnapshotRepository(
	db *sql.DB,
	logger zerolog.Logger,
	m collector,
	ttl time.Duration,
	precision int,
) *SnapshotRepository {
	logger = logger.With().Str("component", "SnapshotRepository").Logger()
	return &SnapshotRepository{DB: db, log: logger, m: m, ttl: ttl, precision: precision}
}

// Key derives the cache row id from a coordinate pair. Requests within
// half a rounding step of each other share a row.
func (r *SnapshotRepository) Key(lat, lon float64) string {
	return fmt.Sprintf("%.*f_%.*f", r.precision, lat, r.precision, lon)
}

// Get returns the cached snapshot for the rounded coordinates if one exists
// and is younger than the TTL. Stale rows behave as misses but stay in
// place. Storage failures propagate; they are never reported as misses.
func (r *SnapshotRepository) Get(
	ctx context.Context,
	lat, lon float64,
) (models.WeatherSnapshot, bool, error) {
	start := time.Now()
	id := r.Key(lat, lon)

	var (
		payload  string
		storedAt int64
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT data, timestamp FROM weather_cache WHERE id = ?`, id,
	).Scan(&payload, &storedAt)
	dur := time.Since(start)
	r.m.ObserveCacheOp("get", dur)

	if errors.Is(err, sql.ErrNoRows) {
		r.log.Debug().Ctx(ctx).Str("key", id).Msg("cache miss")
		r.m.IncCacheOp("get", "miss")
		return models.WeatherSnapshot{}, false, nil
	}
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("key", id).Msg("failed to query cache row")
		r.m.IncCacheOp("get", "error")
		return models.WeatherSnapshot{}, false, err
	}

	age := time.Since(time.UnixMilli(storedAt))
	if age >= r.ttl {
		r.log.Debug().Ctx(ctx).
			Str("key", id).
			Dur("age", age).
			Msg("cache entry stale, treating as miss")
		r.m.IncCacheOp("get", "stale")
		return models.WeatherSnapshot{}, false, nil
	}

	var snapshot models.WeatherSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("key", id).Msg("failed to unmarshal cached snapshot")
		r.m.IncCacheOp("get", "error")
		return models.WeatherSnapshot{}, false, err
	}

	r.log.Info().Ctx(ctx).
		Str("key", id).
		Dur("age", age).
		Dur("duration", dur).
		Msg("cache hit")
	r.m.IncCacheOp("get", "hit")
	return snapshot, true, nil
}

// Put upserts the snapshot for the rounded coordinates with the current
// timestamp.
func (r *SnapshotRepository) Put(
	ctx context.Context,
	lat, lon float64,
	snapshot models.WeatherSnapshot,
) error {
	start := time.Now()
	id := r.Key(lat, lon)

	payload, err := json.Marshal(snapshot)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("key", id).Msg("failed to marshal snapshot")
		r.m.IncCacheOp("put", "error")
		return err
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT OR REPLACE INTO weather_cache (id, lat, lon, data, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		id, lat, lon, string(payload), time.Now().UnixMilli(),
	)
	dur := time.Since(start)
	r.m.ObserveCacheOp("put", dur)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).
			Str("key", id).
			Dur("duration", dur).
			Msg("failed to write cache row")
		r.m.IncCacheOp("put", "error")
		return err
	}

	r.log.Info().Ctx(ctx).
		Str("key", id).
		Dur("duration", dur).
		Msg("snapshot cached")
	r.m.IncCacheOp("put", "write")
	return nil
}
