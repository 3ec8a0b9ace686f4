// Package mlmetrics maintains the append-only pipeline_ml_metrics log inside
// the warehouse. Training writes one row per completed model fit, whether it
// ran inside a pipeline or standalone.
package mlmetrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/sells-group/climate-pipeline/internal/model"
	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

// Store reads and appends ML metric records. Each operation opens a
// short-lived connection, matching the runlog store.
type Store struct {
	path  string
	clock clockwork.Clock
}

// New creates a Store over the warehouse at path.
func New(path string, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{path: path, clock: clock}
}

const metricsSchema = `
CREATE TABLE IF NOT EXISTS pipeline_ml_metrics (
	id                   INTEGER PRIMARY KEY,
	pipeline_run_id      INTEGER,
	flow_name            TEXT NOT NULL,
	run_mode             TEXT NOT NULL,
	model_name           TEXT NOT NULL,
	model_version        TEXT NOT NULL,
	train_size           INTEGER NOT NULL,
	test_size            INTEGER NOT NULL,
	positive_class_ratio REAL NOT NULL,
	accuracy             REAL NOT NULL,
	roc_auc              REAL,
	precision_0          REAL NOT NULL,
	recall_0             REAL NOT NULL,
	f1_0                 REAL NOT NULL,
	precision_1          REAL NOT NULL,
	recall_1             REAL NOT NULL,
	f1_1                 REAL NOT NULL,
	created_at           DATETIME NOT NULL
)`

// EnsureSchema creates the pipeline_ml_metrics table when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db, err := warehouse.Open(s.path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, metricsSchema)
	return eris.Wrap(err, "mlmetrics: ensure schema")
}

// Insert appends one record and returns its assigned id. Ids are MAX(id)+1
// under the same single-writer assumption as pipeline_runs. PipelineRunID is
// stored as given and never validated against pipeline_runs; it may dangle.
func (s *Store) Insert(ctx context.Context, rec model.MLMetricRecord) (int64, error) {
	db, err := warehouse.Open(s.path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, metricsSchema); err != nil {
		return 0, eris.Wrap(err, "mlmetrics: ensure schema")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "mlmetrics: begin insert")
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM pipeline_ml_metrics`,
	).Scan(&id); err != nil {
		return 0, eris.Wrap(err, "mlmetrics: next id")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO pipeline_ml_metrics (
	id, pipeline_run_id, flow_name, run_mode, model_name, model_version,
	train_size, test_size, positive_class_ratio, accuracy, roc_auc,
	precision_0, recall_0, f1_0, precision_1, recall_1, f1_1, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.PipelineRunID, rec.FlowName, string(rec.RunMode),
		rec.ModelName, rec.ModelVersion, rec.TrainSize, rec.TestSize,
		rec.PositiveClassRatio, rec.Accuracy, rec.ROCAUC,
		rec.Precision0, rec.Recall0, rec.F10,
		rec.Precision1, rec.Recall1, rec.F11,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, eris.Wrap(err, "mlmetrics: insert record")
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "mlmetrics: commit insert")
	}
	return id, nil
}

// Latest returns the newest record by created_at, or nil when the table is
// missing or empty.
func (s *Store) Latest(ctx context.Context) (*model.MLMetricRecord, error) {
	recs, err := s.List(ctx, 1)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}

// List returns up to limit records, newest first. Limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]model.MLMetricRecord, error) {
	db, err := warehouse.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ok, err := warehouse.TableExists(ctx, db, "pipeline_ml_metrics")
	if err != nil || !ok {
		return nil, err
	}

	q := `
SELECT id, pipeline_run_id, flow_name, run_mode, model_name, model_version,
       train_size, test_size, positive_class_ratio, accuracy, roc_auc,
       precision_0, recall_0, f1_0, precision_1, recall_1, f1_1, created_at
FROM pipeline_ml_metrics
ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "mlmetrics: list")
	}
	defer rows.Close()

	var out []model.MLMetricRecord
	for rows.Next() {
		var rec model.MLMetricRecord
		var mode, createdAt string
		var runID sql.NullInt64
		var rocAUC sql.NullFloat64

		err := rows.Scan(&rec.ID, &runID, &rec.FlowName, &mode,
			&rec.ModelName, &rec.ModelVersion, &rec.TrainSize, &rec.TestSize,
			&rec.PositiveClassRatio, &rec.Accuracy, &rocAUC,
			&rec.Precision0, &rec.Recall0, &rec.F10,
			&rec.Precision1, &rec.Recall1, &rec.F11, &createdAt)
		if err != nil {
			return nil, eris.Wrap(err, "mlmetrics: scan record")
		}

		rec.RunMode = model.RunMode(mode)
		if runID.Valid {
			v := runID.Int64
			rec.PipelineRunID = &v
		}
		if rocAUC.Valid {
			v := rocAUC.Float64
			rec.ROCAUC = &v
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, eris.Wrapf(err, "mlmetrics: parse created_at %q", createdAt)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "mlmetrics: iterate")
}
