package mlearn

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/climate-pipeline/internal/model"
	"github.com/sells-group/climate-pipeline/internal/observability"
	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

// ModelName identifies the baseline learner in the metrics log.
const ModelName = "event_classifier"

// ModelVersion tracks the persisted model format.
const ModelVersion = "logreg-v1"

// TrainConfig locates inputs and outputs of one training run.
type TrainConfig struct {
	WarehousePath string
	FeatureTable  string
	ModelPath     string
	MetricsPath   string
	TrainFraction float64
	Epochs        int
	LearningRate  float64
}

// RunMeta ties a training run to the pipeline execution that requested it.
// A zero value means standalone training.
type RunMeta struct {
	FlowName      string
	RunMode       model.RunMode
	PipelineRunID *int64
}

// MetricsSink records training metrics. Writes through it are best effort.
type MetricsSink interface {
	Insert(ctx context.Context, rec model.MLMetricRecord) (int64, error)
}

// TrainResult reports what a training run produced.
type TrainResult struct {
	Eval      Evaluation
	ModelPath string
}

// Train loads the feature table, fits the baseline classifier on the
// temporal split, evaluates it, and persists the model plus a metrics
// sidecar. When sink is non-nil the evaluation is also appended to the
// metrics log; a failure there is logged and swallowed, training output is
// already on disk at that point.
func Train(ctx context.Context, cfg TrainConfig, sink MetricsSink, meta RunMeta) (*TrainResult, error) {
	timer := prometheus.NewTimer(observability.TrainingDuration)
	defer timer.ObserveDuration()

	db, err := warehouse.Open(cfg.WarehousePath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ds, err := LoadDataset(ctx, db, cfg.FeatureTable, true)
	if err != nil {
		return nil, err
	}
	train, test, err := TemporalSplit(ds, cfg.TrainFraction)
	if err != nil {
		return nil, err
	}

	zap.L().Info("training baseline classifier",
		zap.Int("rows", len(ds.Rows)),
		zap.Int("train", len(train.Rows)),
		zap.Int("test", len(test.Rows)),
	)

	clf := NewLogisticRegression(cfg.Epochs, cfg.LearningRate)
	if err := clf.Fit(train.X(), train.Y()); err != nil {
		return nil, err
	}

	eval := Evaluate(test.Y(), clf.Predict(test.X()), clf.PredictProba(test.X()))
	eval.TrainSize = len(train.Rows)

	if err := clf.Save(cfg.ModelPath); err != nil {
		return nil, err
	}
	if err := writeMetricsSidecar(cfg, eval); err != nil {
		return nil, err
	}
	zap.L().Info("saved baseline model",
		zap.String("model", cfg.ModelPath),
		zap.String("metrics", cfg.MetricsPath),
		zap.Float64("accuracy", eval.Accuracy),
	)

	if sink != nil {
		rec := model.MLMetricRecord{
			PipelineRunID:      meta.PipelineRunID,
			FlowName:           meta.FlowName,
			RunMode:            meta.RunMode,
			ModelName:          ModelName,
			ModelVersion:       ModelVersion,
			TrainSize:          int64(eval.TrainSize),
			TestSize:           int64(eval.TestSize),
			PositiveClassRatio: eval.PositiveRatio,
			Accuracy:           eval.Accuracy,
			ROCAUC:             eval.ROCAUC,
			Precision0:         eval.Class0.Precision,
			Recall0:            eval.Class0.Recall,
			F10:                eval.Class0.F1,
			Precision1:         eval.Class1.Precision,
			Recall1:            eval.Class1.Recall,
			F11:                eval.Class1.F1,
		}
		if _, err := sink.Insert(ctx, rec); err != nil {
			observability.ObservabilityWriteFailures.Inc()
			zap.L().Error("metrics log write failed, continuing", zap.Error(err))
		}
	}

	return &TrainResult{Eval: eval, ModelPath: cfg.ModelPath}, nil
}

type metricsSidecar struct {
	Evaluation
	FeatureColumns []string `json:"feature_columns"`
	TargetColumn   string   `json:"target_column"`
	TrainFraction  float64  `json:"train_fraction"`
	ModelName      string   `json:"model_name"`
	ModelVersion   string   `json:"model_version"`
}

func writeMetricsSidecar(cfg TrainConfig, eval Evaluation) error {
	sidecar := metricsSidecar{
		Evaluation:     eval,
		FeatureColumns: FeatureColumns,
		TargetColumn:   TargetColumn,
		TrainFraction:  cfg.TrainFraction,
		ModelName:      ModelName,
		ModelVersion:   ModelVersion,
	}
	if err := os.MkdirAll(filepath.Dir(cfg.MetricsPath), 0o755); err != nil {
		return eris.Wrapf(err, "mlearn: create metrics dir for %s", cfg.MetricsPath)
	}
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return eris.Wrap(err, "mlearn: marshal metrics")
	}
	return eris.Wrapf(os.WriteFile(cfg.MetricsPath, data, 0o644), "mlearn: write metrics %s", cfg.MetricsPath)
}
