// Package mlearn trains and scores the baseline climate event classifier on
// the monthly feature table produced by the transformation layer.
package mlearn

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

// TargetColumn is the label predicted by the classifier.
const TargetColumn = "is_event_next_month"

// FeatureColumns is the fixed feature set of the baseline model. Order
// matters: persisted models store weights in this order.
var FeatureColumns = []string{
	"anomaly_tmean_c",
	"roll_mean_3",
	"roll_mean_6",
	"roll_std_3",
	"roll_std_6",
	"delta_1m",
	"delta_3m",
	"max_lagged_corr",
	"lead_lag_months",
	"sin_month",
	"cos_month",
}

// Row is one monthly observation with its identifiers and feature vector.
type Row struct {
	CityID      int64
	CityName    string
	CountryCode string
	Year        int
	Month       int
	Features    []float64
	Target      int
}

// Dataset is an ordered set of feature rows. Rows are sorted by
// (city_id, year, month) so index-based splits are temporal per city.
type Dataset struct {
	Rows []Row
}

// X returns the feature matrix in row order.
func (d *Dataset) X() [][]float64 {
	out := make([][]float64, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Features
	}
	return out
}

// Y returns the label vector in row order.
func (d *Dataset) Y() []int {
	out := make([]int, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Target
	}
	return out
}

// LoadDataset reads the feature table, drops rows with a NULL in any feature
// column, and sorts by (city_id, year, month). A missing table, missing
// column, or empty result is a structural error. When withTarget is false
// the label column is not required and Target is left zero.
func LoadDataset(ctx context.Context, db *sql.DB, table string, withTarget bool) (*Dataset, error) {
	ok, err := warehouse.TableExists(ctx, db, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, eris.Errorf("mlearn: table %s does not exist", table)
	}

	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	required := append([]string{"city_id", "year", "month"}, FeatureColumns...)
	if withTarget {
		required = append(required, TargetColumn)
	}
	var missing []string
	for _, c := range required {
		if !cols[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("mlearn: table %s is missing columns: %s",
			table, strings.Join(missing, ", "))
	}

	selected := []string{"city_id", "year", "month"}
	hasName, hasCountry := cols["city_name"], cols["country_code"]
	if hasName {
		selected = append(selected, "city_name")
	}
	if hasCountry {
		selected = append(selected, "country_code")
	}
	selected = append(selected, FeatureColumns...)
	if withTarget {
		selected = append(selected, TargetColumn)
	}

	rows, err := db.QueryContext(ctx, `SELECT `+strings.Join(selected, ", ")+` FROM "`+table+`"`)
	if err != nil {
		return nil, eris.Wrapf(err, "mlearn: load %s", table)
	}
	defer rows.Close()

	ds := &Dataset{}
	for rows.Next() {
		var r Row
		features := make([]sql.NullFloat64, len(FeatureColumns))
		var target sql.NullFloat64

		dest := []any{&r.CityID, &r.Year, &r.Month}
		if hasName {
			dest = append(dest, &r.CityName)
		}
		if hasCountry {
			dest = append(dest, &r.CountryCode)
		}
		for i := range features {
			dest = append(dest, &features[i])
		}
		if withTarget {
			dest = append(dest, &target)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrapf(err, "mlearn: scan %s row", table)
		}

		complete := true
		r.Features = make([]float64, len(features))
		for i, f := range features {
			if !f.Valid {
				complete = false
				break
			}
			r.Features[i] = f.Float64
		}
		if !complete {
			continue
		}
		if withTarget {
			if !target.Valid {
				continue
			}
			if target.Float64 != 0 {
				r.Target = 1
			}
		}
		ds.Rows = append(ds.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "mlearn: iterate %s", table)
	}
	if len(ds.Rows) == 0 {
		return nil, eris.Errorf("mlearn: table %s has no usable rows", table)
	}

	sort.SliceStable(ds.Rows, func(i, j int) bool {
		a, b := ds.Rows[i], ds.Rows[j]
		if a.CityID != b.CityID {
			return a.CityID < b.CityID
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return ds, nil
}

// TemporalSplit splits the dataset at floor(n * fraction) without shuffling.
// Fraction must lie strictly between 0 and 1 and both sides must be
// non-empty.
func TemporalSplit(d *Dataset, fraction float64) (train, test *Dataset, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, eris.Errorf("mlearn: train fraction must be in (0, 1), got %v", fraction)
	}
	cutoff := int(float64(len(d.Rows)) * fraction)
	if cutoff == 0 || cutoff == len(d.Rows) {
		return nil, nil, eris.Errorf("mlearn: split of %d rows at fraction %v leaves an empty side",
			len(d.Rows), fraction)
	}
	return &Dataset{Rows: d.Rows[:cutoff]}, &Dataset{Rows: d.Rows[cutoff:]}, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, eris.Wrapf(err, "mlearn: columns of %s", table)
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "mlearn: scan column name")
		}
		cols[name] = true
	}
	return cols, eris.Wrapf(rows.Err(), "mlearn: iterate columns of %s", table)
}
