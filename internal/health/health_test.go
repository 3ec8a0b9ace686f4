package health

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/climate-pipeline/internal/mlmetrics"
	"github.com/sells-group/climate-pipeline/internal/model"
	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

func seedWarehouse(t *testing.T, lastDates map[int64]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.db")
	db, err := warehouse.Open(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE bronze_daily_weather (city_id INTEGER, date TEXT)`)
	require.NoError(t, err)
	for cityID, last := range lastDates {
		_, err := db.Exec(`INSERT INTO bronze_daily_weather VALUES (?, ?)`, cityID, last)
		require.NoError(t, err)
	}
	return path
}

func testClock() clockwork.Clock {
	return clockwork.NewFakeClockAt(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC))
}

func TestCheckIngestion_AllFresh(t *testing.T) {
	path := seedWarehouse(t, map[int64]string{1: "2024-06-09", 2: "2024-06-10"})

	report, err := CheckIngestion(context.Background(), path, testClock())
	require.NoError(t, err)
	assert.Equal(t, CodeOK, report.Code)
	assert.Equal(t, 2, report.Counts[model.FreshnessFresh])
}

func TestCheckIngestion_StaleWarns(t *testing.T) {
	path := seedWarehouse(t, map[int64]string{1: "2024-06-09", 2: "2024-06-05"})

	report, err := CheckIngestion(context.Background(), path, testClock())
	require.NoError(t, err)
	assert.Equal(t, CodeWarn, report.Code)
	assert.Equal(t, 1, report.Counts[model.FreshnessStale])
}

func TestCheckIngestion_VeryStaleIsCritical(t *testing.T) {
	path := seedWarehouse(t, map[int64]string{1: "2024-06-09", 2: "2024-05-01"})

	report, err := CheckIngestion(context.Background(), path, testClock())
	require.NoError(t, err)
	assert.Equal(t, CodeCritical, report.Code)
}

func TestCheckIngestion_MissingWarehouseIsStructural(t *testing.T) {
	_, err := CheckIngestion(context.Background(),
		filepath.Join(t.TempDir(), "absent.db"), testClock())
	require.Error(t, err)
}

func TestCheckIngestion_EmptyBronzeIsStructural(t *testing.T) {
	path := seedWarehouse(t, nil)
	_, err := CheckIngestion(context.Background(), path, testClock())
	require.Error(t, err)
}

func defaultThresholds() Thresholds {
	return Thresholds{MinAccuracy: 0.80, MinROCAUC: 0.60, MinPositiveRatio: 0.01}
}

func seedMetrics(t *testing.T, rec model.MLMetricRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.db")
	store := mlmetrics.New(path, clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	_, err := store.Insert(context.Background(), rec)
	require.NoError(t, err)
	return path
}

func passingRecord() model.MLMetricRecord {
	auc := 0.72
	return model.MLMetricRecord{
		FlowName: "climate-daily", RunMode: model.RunModeDaily,
		ModelName: "event_classifier", ModelVersion: "logreg-v1",
		TrainSize: 100, TestSize: 40,
		PositiveClassRatio: 0.15, Accuracy: 0.88, ROCAUC: &auc,
	}
}

func TestCheckML_PassingThresholds(t *testing.T) {
	path := seedMetrics(t, passingRecord())

	report, err := CheckML(context.Background(), path, defaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, CodeOK, report.Code)
	assert.Empty(t, report.Failures)
}

func TestCheckML_LowAccuracyWarns(t *testing.T) {
	rec := passingRecord()
	rec.Accuracy = 0.7
	path := seedMetrics(t, rec)

	report, err := CheckML(context.Background(), path, defaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, CodeWarn, report.Code)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0], "accuracy")
}

func TestCheckML_MissingROCAUCFails(t *testing.T) {
	rec := passingRecord()
	rec.ROCAUC = nil
	path := seedMetrics(t, rec)

	report, err := CheckML(context.Background(), path, defaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, CodeWarn, report.Code)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0], "roc_auc")
}

func TestCheckML_MultipleFailures(t *testing.T) {
	rec := passingRecord()
	rec.Accuracy = 0.5
	rec.PositiveClassRatio = 0.001
	path := seedMetrics(t, rec)

	report, err := CheckML(context.Background(), path, defaultThresholds())
	require.NoError(t, err)
	assert.Len(t, report.Failures, 2)
}

func TestCheckML_EmptyLogIsStructural(t *testing.T) {
	// Warehouse exists but holds no metrics table.
	path := seedWarehouse(t, map[int64]string{1: "2024-06-09"})
	_, err := CheckML(context.Background(), path, defaultThresholds())
	require.Error(t, err)
}
