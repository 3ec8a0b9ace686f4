// Package health implements operational checks over the warehouse: ingestion
// freshness per city and ML metric thresholds. Results carry process exit
// codes so CI can gate on them.
package health

import (
	"context"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/sells-group/climate-pipeline/internal/mlmetrics"
	"github.com/sells-group/climate-pipeline/internal/model"
	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

// Exit codes reported by the health verbs. Structural covers a missing
// warehouse, missing table, or empty data set.
const (
	CodeOK         = 0
	CodeWarn       = 1
	CodeCritical   = 2
	CodeStructural = 3
)

// CityFreshness is one city's ingestion coverage with its classification.
type CityFreshness struct {
	warehouse.BronzeCitySummary
	Freshness model.FreshnessStatus
}

// IngestionReport summarizes bronze coverage across all cities.
type IngestionReport struct {
	Cities []CityFreshness
	Counts map[model.FreshnessStatus]int
	Code   int
}

// CheckIngestion classifies every city's bronze freshness. Any very_stale
// city is critical; stale or unknown cities warn. Structural problems are
// returned as an error, which callers map to CodeStructural.
func CheckIngestion(ctx context.Context, warehousePath string, clock clockwork.Clock) (*IngestionReport, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if _, err := os.Stat(warehousePath); err != nil {
		return nil, eris.Wrapf(err, "health: warehouse not found at %s", warehousePath)
	}

	db, err := warehouse.Open(warehousePath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	sums, err := warehouse.BronzeCitySummaries(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(sums) == 0 {
		return nil, eris.New("health: bronze_daily_weather is empty, run the pipeline first")
	}

	report := &IngestionReport{Counts: map[model.FreshnessStatus]int{}}
	now := clock.Now()
	for _, s := range sums {
		last := s.LastDate
		fresh := model.ClassifyFreshness(&last, now)
		report.Cities = append(report.Cities, CityFreshness{BronzeCitySummary: s, Freshness: fresh})
		report.Counts[fresh]++
	}

	switch {
	case report.Counts[model.FreshnessVeryStale] > 0:
		report.Code = CodeCritical
	case report.Counts[model.FreshnessStale] > 0 || report.Counts[model.FreshnessUnknown] > 0:
		report.Code = CodeWarn
	default:
		report.Code = CodeOK
	}
	return report, nil
}

// Thresholds are the minimum acceptable values for the latest training run.
type Thresholds struct {
	MinAccuracy      float64
	MinROCAUC        float64
	MinPositiveRatio float64
}

// MLReport is the latest metric record evaluated against thresholds.
type MLReport struct {
	Latest   model.MLMetricRecord
	Failures []string
	Code     int
}

// CheckML evaluates the newest pipeline_ml_metrics row. A missing or empty
// metrics log is structural. An absent ROC-AUC fails the ROC-AUC threshold:
// a single-class test set means the model was never exercised on events.
func CheckML(ctx context.Context, warehousePath string, th Thresholds) (*MLReport, error) {
	if _, err := os.Stat(warehousePath); err != nil {
		return nil, eris.Wrapf(err, "health: warehouse not found at %s", warehousePath)
	}

	latest, err := mlmetrics.New(warehousePath, nil).Latest(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, eris.New("health: pipeline_ml_metrics is empty, train a model first")
	}

	report := &MLReport{Latest: *latest}
	if latest.Accuracy < th.MinAccuracy {
		report.Failures = append(report.Failures,
			fmt.Sprintf("accuracy %.3f < min_accuracy %.3f", latest.Accuracy, th.MinAccuracy))
	}
	switch {
	case latest.ROCAUC == nil:
		report.Failures = append(report.Failures,
			fmt.Sprintf("roc_auc unavailable (single-class test set), min_roc_auc %.3f", th.MinROCAUC))
	case *latest.ROCAUC < th.MinROCAUC:
		report.Failures = append(report.Failures,
			fmt.Sprintf("roc_auc %.3f < min_roc_auc %.3f", *latest.ROCAUC, th.MinROCAUC))
	}
	if latest.PositiveClassRatio < th.MinPositiveRatio {
		report.Failures = append(report.Failures,
			fmt.Sprintf("positive_class_ratio %.4f < min_positive_ratio %.4f",
				latest.PositiveClassRatio, th.MinPositiveRatio))
	}

	if len(report.Failures) > 0 {
		report.Code = CodeWarn
	}
	return report, nil
}
