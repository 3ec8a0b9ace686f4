package model

import "time"

// RunMode distinguishes incremental daily runs from historical backfills.
type RunMode string

const (
	RunModeDaily    RunMode = "daily"
	RunModeBackfill RunMode = "backfill"
)

// RunStatus is the terminal status of a pipeline execution.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// FreshnessStatus classifies how far the newest warehouse data lags behind now.
type FreshnessStatus string

const (
	FreshnessFresh     FreshnessStatus = "fresh"
	FreshnessStale     FreshnessStatus = "stale"
	FreshnessVeryStale FreshnessStatus = "very_stale"
	FreshnessUnknown   FreshnessStatus = "unknown"
)

// ClassifyFreshness maps the lag between now and the newest bronze date to a
// freshness status. A missing date classifies as unknown.
//
//	lag <= 1 day  -> fresh
//	lag <= 7 days -> stale
//	lag >  7 days -> very_stale
func ClassifyFreshness(maxDate *time.Time, now time.Time) FreshnessStatus {
	if maxDate == nil {
		return FreshnessUnknown
	}
	today := now.UTC().Truncate(24 * time.Hour)
	day := maxDate.UTC().Truncate(24 * time.Hour)
	lagDays := int(today.Sub(day).Hours() / 24)

	switch {
	case lagDays <= 1:
		return FreshnessFresh
	case lagDays <= 7:
		return FreshnessStale
	default:
		return FreshnessVeryStale
	}
}

// PipelineRunRecord is one row of the append-only pipeline_runs log. Records
// are never updated or deleted after insert.
type PipelineRunRecord struct {
	ID              int64           `json:"id"`
	FlowName        string          `json:"flow_name"`
	RunMode         RunMode         `json:"run_mode"`
	Status          RunStatus       `json:"status"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	RowsBronze      *int64          `json:"rows_bronze,omitempty"`
	RowsGoldML      *int64          `json:"rows_gold_ml,omitempty"`
	RowsBronzeDelta *int64          `json:"rows_bronze_delta,omitempty"`
	RowsGoldMLDelta *int64          `json:"rows_gold_ml_delta,omitempty"`
	BronzeMaxDate   *time.Time      `json:"bronze_max_date,omitempty"`
	GoldMLMaxDate   *time.Time      `json:"gold_ml_max_date,omitempty"`
	FreshnessStatus FreshnessStatus `json:"freshness_status"`
}

// RunStats holds the derived warehouse state captured for one run. Deltas are
// relative to the most recent prior record with status = success; with no
// prior success the delta equals the current count.
type RunStats struct {
	RowsBronze      *int64          `json:"rows_bronze,omitempty"`
	RowsGoldML      *int64          `json:"rows_gold_ml,omitempty"`
	RowsBronzeDelta *int64          `json:"rows_bronze_delta,omitempty"`
	RowsGoldMLDelta *int64          `json:"rows_gold_ml_delta,omitempty"`
	BronzeMaxDate   *time.Time      `json:"bronze_max_date,omitempty"`
	GoldMLMaxDate   *time.Time      `json:"gold_ml_max_date,omitempty"`
	FreshnessStatus FreshnessStatus `json:"freshness_status"`
}

// MLMetricRecord is one row of the append-only pipeline_ml_metrics log.
// PipelineRunID is a weak reference to pipeline_runs.id: it may be absent
// (standalone training) or dangle, since logging order between the two
// stores is not guaranteed.
type MLMetricRecord struct {
	ID                 int64     `json:"id"`
	PipelineRunID      *int64    `json:"pipeline_run_id,omitempty"`
	FlowName           string    `json:"flow_name"`
	RunMode            RunMode   `json:"run_mode"`
	ModelName          string    `json:"model_name"`
	ModelVersion       string    `json:"model_version"`
	TrainSize          int64     `json:"train_size"`
	TestSize           int64     `json:"test_size"`
	PositiveClassRatio float64   `json:"positive_class_ratio"`
	Accuracy           float64   `json:"accuracy"`
	ROCAUC             *float64  `json:"roc_auc,omitempty"`
	Precision0         float64   `json:"precision_0"`
	Recall0            float64   `json:"recall_0"`
	F10                float64   `json:"f1_0"`
	Precision1         float64   `json:"precision_1"`
	Recall1            float64   `json:"recall_1"`
	F11                float64   `json:"f1_1"`
	CreatedAt          time.Time `json:"created_at"`
}
