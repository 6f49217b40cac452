package sqlite_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/UnLuCkYcOdEr69/Weatherly/internal/models"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/repository/sqlite"
)

const createTable = `
CREATE TABLE IF NOT EXISTS weather_cache (
    id TEXT PRIMARY KEY,
    lat REAL,
    lon REAL,
    data TEXT,
    timestamp INTEGER
)`

type noopCollector struct{}

func (noopCollector) IncCacheOp(string, string)            {}
func (noopCollector) ObserveCacheOp(string, time.Duration) {}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	source := filepath.Join(t.TempDir(), "cache.db")
	db, err := sql.Open("sqlite", "file:"+source+"?cache=shared&mode=rwc")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	_, err = db.Exec(createTable)
	require.NoError(t, err)
	return db
}

func newTestRepo(t *testing.T, db *sql.DB) *sqlite.SnapshotRepository {
	t.Helper()
	return sqlite.NewSnapshotRepository(db, zerolog.Nop(), noopCollector{}, 15*time.Minute, 2)
}

func testSnapshot() models.WeatherSnapshot {
	return models.WeatherSnapshot{
		Temp:            21.5,
		FeelsLike:       22.1,
		Humidity:        55,
		Description:     "scattered clouds",
		Icon:            "03d",
		WindSpeed:       4.2,
		RainProbability: 30,
		AQI:             2,
		City:            "Lviv",
		Forecast: []models.ForecastPoint{
			{Time: "12:00", Temp: 22, RainProb: 30, Icon: "03d"},
			{Time: "15:00", Temp: 23, RainProb: 10, Icon: "02d"},
		},
	}
}

func TestSnapshotRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, newTestDB(t))
	want := testSnapshot()

	require.NoError(t, repo.Put(ctx, 49.8397, 24.0297, want))

	got, ok, err := repo.Get(ctx, 49.8397, 24.0297)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSnapshotRepository_MissOnUnknownCoordinates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, newTestDB(t))

	_, ok, err := repo.Get(ctx, 10.0, 20.0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotRepository_CoordinateRounding(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, newTestDB(t))

	require.NoError(t, repo.Put(ctx, 12.345, 67.891, testSnapshot()))

	// Within the 2-decimal rounding step these share a row.
	assert.Equal(t, repo.Key(12.345, 67.891), repo.Key(12.344, 67.893))

	got, ok, err := repo.Get(ctx, 12.344, 67.893)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testSnapshot(), got)
}

func TestSnapshotRepository_UpsertReplacesRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := newTestRepo(t, db)

	first := testSnapshot()
	require.NoError(t, repo.Put(ctx, 50.45, 30.52, first))

	second := testSnapshot()
	second.Temp = 30
	require.NoError(t, repo.Put(ctx, 50.45, 30.52, second))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM weather_cache`).Scan(&count))
	assert.Equal(t, 1, count)

	got, ok, err := repo.Get(ctx, 50.45, 30.52)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, got)
}

func TestSnapshotRepository_StaleEntryBehavesAsMissWithoutDeletion(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := newTestRepo(t, db)

	payload, err := json.Marshal(testSnapshot())
	require.NoError(t, err)

	staleAt := time.Now().Add(-16 * time.Minute).UnixMilli()
	_, err = db.Exec(
		`INSERT OR REPLACE INTO weather_cache (id, lat, lon, data, timestamp) VALUES (?, ?, ?, ?, ?)`,
		repo.Key(50.45, 30.52), 50.45, 30.52, string(payload), staleAt,
	)
	require.NoError(t, err)

	_, ok, err := repo.Get(ctx, 50.45, 30.52)
	require.NoError(t, err)
	assert.False(t, ok)

	// The stale row stays in place until overwritten.
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM weather_cache`).Scan(&count))
	assert.Equal(t, 1, count)

	// A fresh Put for the same key succeeds and is retrievable again.
	require.NoError(t, repo.Put(ctx, 50.45, 30.52, testSnapshot()))
	_, ok, err = repo.Get(ctx, 50.45, 30.52)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSnapshotRepository_StorageErrorPropagates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite.NewSnapshotRepository(db, zerolog.Nop(), noopCollector{}, 15*time.Minute, 2)

	_, err := db.Exec(`DROP TABLE weather_cache`)
	require.NoError(t, err)

	_, _, err = repo.Get(ctx, 50.45, 30.52)
	assert.Error(t, err)

	err = repo.Put(ctx, 50.45, 30.52, testSnapshot())
	assert.Error(t, err)
}
