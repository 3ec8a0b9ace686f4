// Package runlog maintains the append-only pipeline_runs log inside the
// warehouse. The log records one row per pipeline execution together with
// warehouse state captured at completion time.
package runlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"

	"github.com/sells-group/climate-pipeline/internal/model"
	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

const (
	bronzeTable = "bronze_daily_weather"
	goldTable   = "gold_ml_features"
)

// Store reads and appends pipeline run records. Every operation opens a
// short-lived connection so the warehouse file stays available to the
// external transformation tool between calls.
type Store struct {
	path  string
	clock clockwork.Clock
}

// New creates a Store over the warehouse at path. A nil clock defaults to
// the real clock.
func New(path string, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{path: path, clock: clock}
}

const runsSchema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id                 INTEGER PRIMARY KEY,
	flow_name          TEXT NOT NULL,
	run_mode           TEXT NOT NULL,
	status             TEXT NOT NULL,
	started_at         DATETIME NOT NULL,
	finished_at        DATETIME NOT NULL,
	rows_bronze        INTEGER,
	rows_gold_ml       INTEGER,
	rows_bronze_delta  INTEGER,
	rows_gold_ml_delta INTEGER,
	bronze_max_date    TEXT,
	gold_ml_max_date   TEXT,
	freshness_status   TEXT NOT NULL DEFAULT 'unknown'
)`

// EnsureSchema creates the pipeline_runs table when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db, err := warehouse.Open(s.path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, runsSchema)
	return eris.Wrap(err, "runlog: ensure schema")
}

// Insert appends one record and returns its assigned id. Ids are assigned as
// MAX(id)+1 inside a transaction, which is safe only because the pipeline is
// the single writer of this log.
func (s *Store) Insert(ctx context.Context, rec model.PipelineRunRecord) (int64, error) {
	db, err := warehouse.Open(s.path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, runsSchema); err != nil {
		return 0, eris.Wrap(err, "runlog: ensure schema")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "runlog: begin insert")
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) + 1 FROM pipeline_runs`,
	).Scan(&id); err != nil {
		return 0, eris.Wrap(err, "runlog: next id")
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO pipeline_runs (
	id, flow_name, run_mode, status, started_at, finished_at,
	rows_bronze, rows_gold_ml, rows_bronze_delta, rows_gold_ml_delta,
	bronze_max_date, gold_ml_max_date, freshness_status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.FlowName, string(rec.RunMode), string(rec.Status),
		rec.StartedAt.UTC().Format(time.RFC3339), rec.FinishedAt.UTC().Format(time.RFC3339),
		rec.RowsBronze, rec.RowsGoldML, rec.RowsBronzeDelta, rec.RowsGoldMLDelta,
		dateOrNil(rec.BronzeMaxDate), dateOrNil(rec.GoldMLMaxDate),
		string(rec.FreshnessStatus),
	)
	if err != nil {
		return 0, eris.Wrap(err, "runlog: insert record")
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "runlog: commit insert")
	}
	return id, nil
}

// ComputeRunStats derives the current warehouse state without writing
// anything. Deltas compare against the most recent prior record with status
// success; with no prior success the delta equals the current count.
func (s *Store) ComputeRunStats(ctx context.Context) (model.RunStats, error) {
	db, err := warehouse.Open(s.path)
	if err != nil {
		return model.RunStats{}, err
	}
	defer db.Close()

	var stats model.RunStats
	if stats.RowsBronze, err = warehouse.RowCount(ctx, db, bronzeTable); err != nil {
		return stats, err
	}
	if stats.RowsGoldML, err = warehouse.RowCount(ctx, db, goldTable); err != nil {
		return stats, err
	}
	if stats.BronzeMaxDate, err = warehouse.MaxDate(ctx, db, bronzeTable, "date"); err != nil {
		return stats, err
	}
	if stats.GoldMLMaxDate, err = warehouse.MaxMonth(ctx, db, goldTable); err != nil {
		return stats, err
	}

	prevBronze, prevGold, err := s.lastSuccessCounts(ctx, db)
	if err != nil {
		return stats, err
	}
	stats.RowsBronzeDelta = delta(stats.RowsBronze, prevBronze)
	stats.RowsGoldMLDelta = delta(stats.RowsGoldML, prevGold)

	stats.FreshnessStatus = model.ClassifyFreshness(stats.BronzeMaxDate, s.clock.Now())
	return stats, nil
}

// List returns up to limit records, newest first. Limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]model.PipelineRunRecord, error) {
	db, err := warehouse.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ok, err := warehouse.TableExists(ctx, db, "pipeline_runs")
	if err != nil || !ok {
		return nil, err
	}

	q := `
SELECT id, flow_name, run_mode, status, started_at, finished_at,
       rows_bronze, rows_gold_ml, rows_bronze_delta, rows_gold_ml_delta,
       bronze_max_date, gold_ml_max_date, freshness_status
FROM pipeline_runs
ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list")
	}
	defer rows.Close()

	var out []model.PipelineRunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "runlog: iterate")
}

func (s *Store) lastSuccessCounts(ctx context.Context, db *sql.DB) (*int64, *int64, error) {
	ok, err := warehouse.TableExists(ctx, db, "pipeline_runs")
	if err != nil || !ok {
		return nil, nil, err
	}
	var bronze, gold sql.NullInt64
	err = db.QueryRowContext(ctx, `
SELECT rows_bronze, rows_gold_ml FROM pipeline_runs
WHERE status = 'success'
ORDER BY started_at DESC, id DESC
LIMIT 1`).Scan(&bronze, &gold)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "runlog: last success")
	}
	return nullableInt(bronze), nullableInt(gold), nil
}

func scanRun(rows *sql.Rows) (model.PipelineRunRecord, error) {
	var rec model.PipelineRunRecord
	var mode, status, freshness, startedAt, finishedAt string
	var bronzeRows, goldRows, bronzeDelta, goldDelta sql.NullInt64
	var bronzeMax, goldMax sql.NullString

	err := rows.Scan(&rec.ID, &rec.FlowName, &mode, &status, &startedAt, &finishedAt,
		&bronzeRows, &goldRows, &bronzeDelta, &goldDelta,
		&bronzeMax, &goldMax, &freshness)
	if err != nil {
		return rec, eris.Wrap(err, "runlog: scan record")
	}

	rec.RunMode = model.RunMode(mode)
	rec.Status = model.RunStatus(status)
	rec.FreshnessStatus = model.FreshnessStatus(freshness)
	if rec.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return rec, eris.Wrapf(err, "runlog: parse started_at %q", startedAt)
	}
	if rec.FinishedAt, err = time.Parse(time.RFC3339, finishedAt); err != nil {
		return rec, eris.Wrapf(err, "runlog: parse finished_at %q", finishedAt)
	}
	rec.RowsBronze = nullableInt(bronzeRows)
	rec.RowsGoldML = nullableInt(goldRows)
	rec.RowsBronzeDelta = nullableInt(bronzeDelta)
	rec.RowsGoldMLDelta = nullableInt(goldDelta)
	if rec.BronzeMaxDate, err = nullableDate(bronzeMax); err != nil {
		return rec, err
	}
	if rec.GoldMLMaxDate, err = nullableDate(goldMax); err != nil {
		return rec, err
	}
	return rec, nil
}

func delta(cur, prev *int64) *int64 {
	if cur == nil {
		return nil
	}
	var base int64
	if prev != nil {
		base = *prev
	}
	d := *cur - base
	return &d
}

func dateOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format("2006-01-02")
}

func nullableInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullableDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s.String, time.UTC)
	if err != nil {
		return nil, eris.Wrapf(err, "runlog: parse date %q", s.String)
	}
	return &t, nil
}
