// Package warehouse provides shared access to the embedded SQLite warehouse.
// Callers open a connection per operation and close it when done; the
// warehouse file is also written by the external transformation tool, so no
// long-lived handles are held.
package warehouse

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Open opens the warehouse database at path and configures WAL mode.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "warehouse: exec %s", pragma)
		}
	}
	return db, nil
}

// TableExists reports whether a table with the given name exists.
func TableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "warehouse: check table %s", name)
	}
	return n > 0, nil
}

// RowCount returns the number of rows in the table, or nil when the table
// does not exist. Absence is distinct from emptiness for run stats.
func RowCount(ctx context.Context, db *sql.DB, table string) (*int64, error) {
	ok, err := TableExists(ctx, db, table)
	if err != nil || !ok {
		return nil, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "`+table+`"`).Scan(&n); err != nil {
		return nil, eris.Wrapf(err, "warehouse: count %s", table)
	}
	return &n, nil
}

// MaxDate returns the maximum value of a date column, parsed as a UTC
// calendar date. Nil when the table is missing or empty.
func MaxDate(ctx context.Context, db *sql.DB, table, column string) (*time.Time, error) {
	ok, err := TableExists(ctx, db, table)
	if err != nil || !ok {
		return nil, err
	}
	var raw sql.NullString
	if err := db.QueryRowContext(ctx,
		`SELECT MAX("`+column+`") FROM "`+table+`"`,
	).Scan(&raw); err != nil {
		return nil, eris.Wrapf(err, "warehouse: max %s.%s", table, column)
	}
	if !raw.Valid {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw.String[:minInt(len(raw.String), 10)], time.UTC)
	if err != nil {
		return nil, eris.Wrapf(err, "warehouse: parse %s.%s value %q", table, column, raw.String)
	}
	return &t, nil
}

// MaxMonth returns the first day of the latest (year, month) pair in the
// table, or nil when the table is missing or empty. Feature tables carry a
// monthly grain rather than a date column.
func MaxMonth(ctx context.Context, db *sql.DB, table string) (*time.Time, error) {
	ok, err := TableExists(ctx, db, table)
	if err != nil || !ok {
		return nil, err
	}
	var year, month sql.NullInt64
	err = db.QueryRowContext(ctx,
		`SELECT year, month FROM "`+table+`" ORDER BY year DESC, month DESC LIMIT 1`,
	).Scan(&year, &month)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "warehouse: max month of %s", table)
	}
	if !year.Valid || !month.Valid {
		return nil, nil
	}
	t := time.Date(int(year.Int64), time.Month(month.Int64), 1, 0, 0, 0, 0, time.UTC)
	return &t, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
