// Package pipeline orchestrates the end-to-end flows: ingestion into the
// landing zone, warehouse transformation, model training, and run logging.
// Steps run strictly sequentially.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/climate-pipeline/internal/model"
	"github.com/sells-group/climate-pipeline/internal/observability"
	"github.com/sells-group/climate-pipeline/internal/transform"
)

// FlowNameDaily and FlowNameBackfill identify the two flows in the run log.
const (
	FlowNameDaily    = "daily-climate-pipeline"
	FlowNameBackfill = "backfill-climate-pipeline"
)

// Ingestor feeds the raw landing zone.
type Ingestor interface {
	Backfill(ctx context.Context, cities []model.City, start, end time.Time) (model.IngestionSummary, error)
	Recent(ctx context.Context, cities []model.City) (model.IngestionSummary, error)
}

// Trainer refreshes the baseline model from the transformed warehouse.
type Trainer interface {
	Train(ctx context.Context, flowName string, mode model.RunMode) error
}

// RunLog records pipeline executions.
type RunLog interface {
	ComputeRunStats(ctx context.Context) (model.RunStats, error)
	Insert(ctx context.Context, rec model.PipelineRunRecord) (int64, error)
}

// Pipeline wires the flow steps together.
type Pipeline struct {
	Ingestor    Ingestor
	Transformer transform.Transformer
	Trainer     Trainer
	RunLog      RunLog
	Cities      []model.City
	Clock       clockwork.Clock
}

// New creates a Pipeline. A nil clock defaults to the real clock.
func New(ing Ingestor, tr transform.Transformer, trainer Trainer, runLog RunLog, cities []model.City, clock clockwork.Clock) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		Ingestor:    ing,
		Transformer: tr,
		Trainer:     trainer,
		RunLog:      runLog,
		Cities:      cities,
		Clock:       clock,
	}
}

// RunDaily executes the incremental flow: recent ingestion, transformation,
// training, then run logging.
func (p *Pipeline) RunDaily(ctx context.Context) error {
	return p.run(ctx, FlowNameDaily, model.RunModeDaily, func(ctx context.Context) (model.IngestionSummary, error) {
		return p.Ingestor.Recent(ctx, p.Cities)
	})
}

// RunBackfill executes the historical flow over [start, end].
func (p *Pipeline) RunBackfill(ctx context.Context, start, end time.Time) error {
	return p.run(ctx, FlowNameBackfill, model.RunModeBackfill, func(ctx context.Context) (model.IngestionSummary, error) {
		return p.Ingestor.Backfill(ctx, p.Cities, start, end)
	})
}

func (p *Pipeline) run(ctx context.Context, flowName string, mode model.RunMode, ingest func(context.Context) (model.IngestionSummary, error)) error {
	startedAt := p.Clock.Now().UTC()
	log := zap.L().With(
		zap.String("flow", flowName),
		zap.String("mode", string(mode)),
		zap.String("run_id", uuid.NewString()),
	)
	log.Info("starting pipeline run")

	err := p.steps(ctx, flowName, mode, ingest, log)

	status := model.RunStatusSuccess
	if err != nil {
		status = model.RunStatusFailed
	}
	finishedAt := p.Clock.Now().UTC()
	p.logRun(ctx, flowName, mode, status, startedAt, finishedAt, log)
	observability.PipelineRuns.WithLabelValues(string(mode), string(status)).Inc()

	if err != nil {
		return err
	}
	log.Info("pipeline run finished", zap.Duration("elapsed", finishedAt.Sub(startedAt)))
	return nil
}

func (p *Pipeline) steps(ctx context.Context, flowName string, mode model.RunMode, ingest func(context.Context) (model.IngestionSummary, error), log *zap.Logger) error {
	summary, err := ingest(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: ingestion")
	}
	if err := summary.Err(); err != nil {
		return eris.Wrap(err, "pipeline: ingestion")
	}
	log.Info("ingestion finished",
		zap.Int("requests", summary.TotalRequests),
		zap.Int("successes", summary.Successes),
		zap.Int("failures", summary.Failures),
		zap.Strings("failed_cities", summary.FailedCities),
	)

	if err := p.Transformer.Run(ctx); err != nil {
		return eris.Wrap(err, "pipeline: transform")
	}

	if err := p.Trainer.Train(ctx, flowName, mode); err != nil {
		return eris.Wrap(err, "pipeline: train")
	}
	return nil
}

// logRun records the execution in the run log. The write is best effort: a
// stats or insert failure is counted and logged but never fails the flow.
func (p *Pipeline) logRun(ctx context.Context, flowName string, mode model.RunMode, status model.RunStatus, startedAt, finishedAt time.Time, log *zap.Logger) {
	rec := model.PipelineRunRecord{
		FlowName:        flowName,
		RunMode:         mode,
		Status:          status,
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
		FreshnessStatus: model.FreshnessUnknown,
	}

	stats, err := p.RunLog.ComputeRunStats(ctx)
	if err != nil {
		observability.ObservabilityWriteFailures.Inc()
		log.Error("run stats computation failed, recording run without stats", zap.Error(err))
	} else {
		rec.RowsBronze = stats.RowsBronze
		rec.RowsGoldML = stats.RowsGoldML
		rec.RowsBronzeDelta = stats.RowsBronzeDelta
		rec.RowsGoldMLDelta = stats.RowsGoldMLDelta
		rec.BronzeMaxDate = stats.BronzeMaxDate
		rec.GoldMLMaxDate = stats.GoldMLMaxDate
		rec.FreshnessStatus = stats.FreshnessStatus
	}

	if _, err := p.RunLog.Insert(ctx, rec); err != nil {
		observability.ObservabilityWriteFailures.Inc()
		log.Error("run log write failed, continuing", zap.Error(err))
	}
}
