package warehouse

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "warehouse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedBronze(t *testing.T, db *sql.DB, rows [][2]any) {
	t.Helper()
	_, err := db.Exec(`CREATE TABLE bronze_daily_weather (city_id INTEGER, date TEXT)`)
	require.NoError(t, err)
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO bronze_daily_weather (city_id, date) VALUES (?, ?)`, r[0], r[1])
		require.NoError(t, err)
	}
}

func TestRowCount_MissingTableIsNil(t *testing.T) {
	db := newTestDB(t)
	n, err := RowCount(context.Background(), db, "bronze_daily_weather")
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestRowCount_EmptyTableIsZero(t *testing.T) {
	db := newTestDB(t)
	seedBronze(t, db, nil)
	n, err := RowCount(context.Background(), db, "bronze_daily_weather")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Zero(t, *n)
}

func TestMaxDate(t *testing.T) {
	db := newTestDB(t)
	seedBronze(t, db, [][2]any{
		{1, "2024-03-01"},
		{1, "2024-03-05"},
		{2, "2024-02-28"},
	})

	max, err := MaxDate(context.Background(), db, "bronze_daily_weather", "date")
	require.NoError(t, err)
	require.NotNil(t, max)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *max)
}

func TestMaxDate_MissingTableIsNil(t *testing.T) {
	db := newTestDB(t)
	max, err := MaxDate(context.Background(), db, "bronze_daily_weather", "date")
	require.NoError(t, err)
	assert.Nil(t, max)
}

func TestMaxMonth(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Exec(`CREATE TABLE gold_ml_features (city_id INTEGER, year INTEGER, month INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO gold_ml_features VALUES (1, 2023, 12), (1, 2024, 2), (2, 2024, 1)`)
	require.NoError(t, err)

	max, err := MaxMonth(context.Background(), db, "gold_ml_features")
	require.NoError(t, err)
	require.NotNil(t, max)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *max)
}

func TestMaxMonth_EmptyTableIsNil(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Exec(`CREATE TABLE gold_ml_features (city_id INTEGER, year INTEGER, month INTEGER)`)
	require.NoError(t, err)

	max, err := MaxMonth(context.Background(), db, "gold_ml_features")
	require.NoError(t, err)
	assert.Nil(t, max)
}

func TestRebuildDimCity_FullOverwrite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, RebuildDimCity(ctx, db, []DimCityRow{
		{CityID: 1, CityName: "Denver", CountryCode: "US", Latitude: 39.7, Longitude: -105.0, Timezone: "America/Denver"},
		{CityID: 2, CityName: "Lisbon", CountryCode: "PT", Latitude: 38.7, Longitude: -9.1, Timezone: "Europe/Lisbon"},
	}))

	// Rebuild with a different set replaces the previous contents.
	require.NoError(t, RebuildDimCity(ctx, db, []DimCityRow{
		{CityID: 3, CityName: "Oslo", CountryCode: "NO", Latitude: 59.9, Longitude: 10.8, Timezone: "Europe/Oslo"},
	}))

	cities, err := LoadDimCity(ctx, db)
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, int64(3), cities[0].CityID)
	assert.Equal(t, "Oslo", cities[0].CityName)
	assert.Equal(t, "Europe/Oslo", cities[0].Timezone)
}

func TestBronzeCitySummaries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedBronze(t, db, [][2]any{
		{1, "2024-03-01"},
		{1, "2024-03-02"},
		{1, "2024-03-03"},
		{2, "2024-01-15"},
	})
	require.NoError(t, RebuildDimCity(ctx, db, []DimCityRow{
		{CityID: 1, CityName: "Denver", CountryCode: "US"},
	}))

	sums, err := BronzeCitySummaries(ctx, db)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	assert.Equal(t, int64(1), sums[0].CityID)
	assert.Equal(t, "Denver", sums[0].CityName)
	assert.Equal(t, int64(3), sums[0].Days)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), sums[0].FirstDate)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), sums[0].LastDate)

	// City 2 has no dimension row but still appears.
	assert.Equal(t, int64(2), sums[1].CityID)
	assert.Empty(t, sums[1].CityName)
}

func TestBronzeCitySummaries_MissingTableIsError(t *testing.T) {
	db := newTestDB(t)
	_, err := BronzeCitySummaries(context.Background(), db)
	require.Error(t, err)
}
