package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/climate-pipeline/internal/model"
	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

func newTestStore(t *testing.T, clock clockwork.Clock) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.db")
	return New(path, clock), path
}

func seedBronze(t *testing.T, path string, dates []string) {
	t.Helper()
	db, err := warehouse.Open(path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS bronze_daily_weather (city_id INTEGER, date TEXT)`)
	require.NoError(t, err)
	for _, d := range dates {
		_, err := db.Exec(`INSERT INTO bronze_daily_weather (city_id, date) VALUES (1, ?)`, d)
		require.NoError(t, err)
	}
}

func i64(v int64) *int64 { return &v }

func TestInsert_AssignsSequentialIDs(t *testing.T) {
	store, _ := newTestStore(t, nil)
	ctx := context.Background()

	rec := model.PipelineRunRecord{
		FlowName:        "climate-daily",
		RunMode:         model.RunModeDaily,
		Status:          model.RunStatusSuccess,
		StartedAt:       time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC),
		FinishedAt:      time.Date(2024, 6, 1, 5, 2, 0, 0, time.UTC),
		FreshnessStatus: model.FreshnessFresh,
	}

	id1, err := store.Insert(ctx, rec)
	require.NoError(t, err)
	id2, err := store.Insert(ctx, rec)
	require.NoError(t, err)

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
}

func TestList_NewestFirstRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, nil)
	ctx := context.Background()

	first := model.PipelineRunRecord{
		FlowName:        "climate-backfill",
		RunMode:         model.RunModeBackfill,
		Status:          model.RunStatusSuccess,
		StartedAt:       time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC),
		FinishedAt:      time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC),
		RowsBronze:      i64(100),
		RowsGoldML:      i64(12),
		RowsBronzeDelta: i64(100),
		RowsGoldMLDelta: i64(12),
		BronzeMaxDate:   timePtr(time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)),
		FreshnessStatus: model.FreshnessFresh,
	}
	second := model.PipelineRunRecord{
		FlowName:        "climate-daily",
		RunMode:         model.RunModeDaily,
		Status:          model.RunStatusFailed,
		StartedAt:       time.Date(2024, 6, 2, 5, 0, 0, 0, time.UTC),
		FinishedAt:      time.Date(2024, 6, 2, 5, 1, 0, 0, time.UTC),
		FreshnessStatus: model.FreshnessUnknown,
	}

	_, err := store.Insert(ctx, first)
	require.NoError(t, err)
	_, err = store.Insert(ctx, second)
	require.NoError(t, err)

	recs, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "climate-daily", recs[0].FlowName)
	assert.Equal(t, model.RunStatusFailed, recs[0].Status)
	assert.Nil(t, recs[0].RowsBronze)
	assert.Nil(t, recs[0].BronzeMaxDate)

	assert.Equal(t, "climate-backfill", recs[1].FlowName)
	require.NotNil(t, recs[1].RowsBronze)
	assert.Equal(t, int64(100), *recs[1].RowsBronze)
	require.NotNil(t, recs[1].BronzeMaxDate)
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), *recs[1].BronzeMaxDate)
}

func TestList_MissingTableIsEmpty(t *testing.T) {
	store, _ := newTestStore(t, nil)
	recs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestComputeRunStats_EmptyWarehouse(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC))
	store, _ := newTestStore(t, clock)

	stats, err := store.ComputeRunStats(context.Background())
	require.NoError(t, err)

	assert.Nil(t, stats.RowsBronze)
	assert.Nil(t, stats.RowsGoldML)
	assert.Nil(t, stats.BronzeMaxDate)
	assert.Equal(t, model.FreshnessUnknown, stats.FreshnessStatus)
}

func TestComputeRunStats_DeltaAgainstLastSuccess(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC))
	store, path := newTestStore(t, clock)
	ctx := context.Background()

	// Run 1 succeeded with 10 bronze rows; run 2 failed with 12. Deltas must
	// compare against run 1, the most recent success.
	_, err := store.Insert(ctx, model.PipelineRunRecord{
		FlowName: "climate-daily", RunMode: model.RunModeDaily, Status: model.RunStatusSuccess,
		StartedAt:  time.Date(2024, 5, 31, 5, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 5, 31, 5, 1, 0, 0, time.UTC),
		RowsBronze: i64(10), FreshnessStatus: model.FreshnessFresh,
	})
	require.NoError(t, err)
	_, err = store.Insert(ctx, model.PipelineRunRecord{
		FlowName: "climate-daily", RunMode: model.RunModeDaily, Status: model.RunStatusFailed,
		StartedAt:  time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 6, 1, 5, 1, 0, 0, time.UTC),
		RowsBronze: i64(12), FreshnessStatus: model.FreshnessFresh,
	})
	require.NoError(t, err)

	dates := make([]string, 0, 15)
	for d := 1; d <= 15; d++ {
		dates = append(dates, time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02"))
	}
	seedBronze(t, path, dates)

	stats, err := store.ComputeRunStats(ctx)
	require.NoError(t, err)

	require.NotNil(t, stats.RowsBronze)
	assert.Equal(t, int64(15), *stats.RowsBronze)
	require.NotNil(t, stats.RowsBronzeDelta)
	assert.Equal(t, int64(5), *stats.RowsBronzeDelta)
}

func TestComputeRunStats_NoPriorSuccessDeltaEqualsCount(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 16, 8, 0, 0, 0, time.UTC))
	store, path := newTestStore(t, clock)

	seedBronze(t, path, []string{"2024-05-14", "2024-05-15"})

	stats, err := store.ComputeRunStats(context.Background())
	require.NoError(t, err)

	require.NotNil(t, stats.RowsBronzeDelta)
	assert.Equal(t, int64(2), *stats.RowsBronzeDelta)
	assert.Equal(t, model.FreshnessFresh, stats.FreshnessStatus)
}

func TestComputeRunStats_FreshnessFromBronzeLag(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC))
	store, path := newTestStore(t, clock)

	seedBronze(t, path, []string{"2024-06-05"}) // 5 days behind

	stats, err := store.ComputeRunStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.FreshnessStale, stats.FreshnessStatus)
	require.NotNil(t, stats.BronzeMaxDate)
	assert.Equal(t, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), *stats.BronzeMaxDate)
}

func timePtr(t time.Time) *time.Time { return &t }
