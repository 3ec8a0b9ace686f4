package mlearn

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

// PredictConfig locates inputs and outputs of one scoring run.
type PredictConfig struct {
	WarehousePath string
	FeatureTable  string
	ModelPath     string
	OutputTable   string
	OutputCSV     string
}

// PredictResult reports what a scoring run produced.
type PredictResult struct {
	Rows        int
	Events      int
	OutputTable string
	OutputCSV   string
}

// Predict scores every usable feature row and replaces the predictions table
// and CSV export. Probabilities come from the first capability the model
// supports: calibrated probabilities, a decision score squashed through the
// logistic function, or hard labels read as 0/1.
func Predict(ctx context.Context, cfg PredictConfig, clf Classifier) (*PredictResult, error) {
	db, err := warehouse.Open(cfg.WarehousePath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ds, err := LoadDataset(ctx, db, cfg.FeatureTable, false)
	if err != nil {
		return nil, err
	}

	probs := scoreProbabilities(clf, ds.X())
	preds := make([]int, len(probs))
	events := 0
	for i, p := range probs {
		if p >= 0.5 {
			preds[i] = 1
			events++
		}
	}

	if err := writePredictionTable(ctx, db, cfg.OutputTable, ds, preds, probs); err != nil {
		return nil, err
	}
	if err := writePredictionCSV(cfg.OutputCSV, ds, preds, probs); err != nil {
		return nil, err
	}

	zap.L().Info("scored feature rows",
		zap.Int("rows", len(ds.Rows)),
		zap.Int("predicted_events", events),
		zap.String("table", cfg.OutputTable),
		zap.String("csv", cfg.OutputCSV),
	)
	return &PredictResult{
		Rows:        len(ds.Rows),
		Events:      events,
		OutputTable: cfg.OutputTable,
		OutputCSV:   cfg.OutputCSV,
	}, nil
}

func scoreProbabilities(clf Classifier, x [][]float64) []float64 {
	switch m := clf.(type) {
	case ProbabilityEstimator:
		return m.PredictProba(x)
	case DecisionScorer:
		scores := m.DecisionFunction(x)
		for i, s := range scores {
			scores[i] = sigmoid(s)
		}
		return scores
	default:
		preds := clf.Predict(x)
		out := make([]float64, len(preds))
		for i, p := range preds {
			out[i] = float64(p)
		}
		return out
	}
}

func writePredictionTable(ctx context.Context, db *sql.DB, table string, ds *Dataset, preds []int, probs []float64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "mlearn: begin predictions write")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS "`+table+`"`); err != nil {
		return eris.Wrapf(err, "mlearn: drop %s", table)
	}
	if _, err := tx.ExecContext(ctx, `
CREATE TABLE "`+table+`" (
	city_id                INTEGER NOT NULL,
	city_name              TEXT,
	country_code           TEXT,
	year                   INTEGER NOT NULL,
	month                  INTEGER NOT NULL,
	anomaly_tmean_c        REAL NOT NULL,
	pred_event_next_month  INTEGER NOT NULL,
	prob_event_next_month  REAL NOT NULL
)`); err != nil {
		return eris.Wrapf(err, "mlearn: create %s", table)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO "`+table+`" (
	city_id, city_name, country_code, year, month,
	anomaly_tmean_c, pred_event_next_month, prob_event_next_month
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrapf(err, "mlearn: prepare %s insert", table)
	}
	defer stmt.Close()

	for i, r := range ds.Rows {
		if _, err := stmt.ExecContext(ctx,
			r.CityID, r.CityName, r.CountryCode, r.Year, r.Month,
			r.Features[0], preds[i], probs[i],
		); err != nil {
			return eris.Wrapf(err, "mlearn: insert prediction row %d", i)
		}
	}
	return eris.Wrapf(tx.Commit(), "mlearn: commit %s", table)
}

func writePredictionCSV(path string, ds *Dataset, preds []int, probs []float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "mlearn: create csv dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "mlearn: create csv %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"city_id", "city_name", "country_code", "year", "month",
		"anomaly_tmean_c", "pred_event_next_month", "prob_event_next_month"}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "mlearn: write csv header")
	}
	for i, r := range ds.Rows {
		row := []string{
			fmt.Sprintf("%d", r.CityID),
			r.CityName,
			r.CountryCode,
			fmt.Sprintf("%d", r.Year),
			fmt.Sprintf("%d", r.Month),
			fmt.Sprintf("%g", r.Features[0]),
			fmt.Sprintf("%d", preds[i]),
			fmt.Sprintf("%g", probs[i]),
		}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "mlearn: write csv row %d", i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "mlearn: flush csv")
	}
	return eris.Wrapf(f.Close(), "mlearn: close csv %s", path)
}
