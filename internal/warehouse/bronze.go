package warehouse

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
)

// BronzeCitySummary aggregates ingestion coverage for one city.
type BronzeCitySummary struct {
	CityID      int64
	CityName    string
	CountryCode string
	FirstDate   time.Time
	LastDate    time.Time
	Days        int64
}

// BronzeCitySummaries summarizes bronze_daily_weather per city, joined with
// dim_city for display names. Returns an error when the bronze table is
// missing; an existing but empty table yields an empty slice.
func BronzeCitySummaries(ctx context.Context, db *sql.DB) ([]BronzeCitySummary, error) {
	ok, err := TableExists(ctx, db, "bronze_daily_weather")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, eris.New("warehouse: bronze_daily_weather does not exist")
	}

	hasDim, err := TableExists(ctx, db, "dim_city")
	if err != nil {
		return nil, err
	}

	query := `
SELECT b.city_id, COALESCE(c.city_name, ''), COALESCE(c.country_code, ''),
       MIN(b.date), MAX(b.date), COUNT(*)
FROM bronze_daily_weather b
LEFT JOIN dim_city c ON c.city_id = b.city_id
GROUP BY b.city_id, c.city_name, c.country_code
ORDER BY b.city_id`
	if !hasDim {
		query = `
SELECT b.city_id, '', '', MIN(b.date), MAX(b.date), COUNT(*)
FROM bronze_daily_weather b
GROUP BY b.city_id
ORDER BY b.city_id`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: bronze city summary")
	}
	defer rows.Close()

	var out []BronzeCitySummary
	for rows.Next() {
		var s BronzeCitySummary
		var first, last string
		if err := rows.Scan(&s.CityID, &s.CityName, &s.CountryCode, &first, &last, &s.Days); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan bronze summary row")
		}
		if s.FirstDate, err = parseDay(first); err != nil {
			return nil, err
		}
		if s.LastDate, err = parseDay(last); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, eris.Wrap(rows.Err(), "warehouse: iterate bronze summary")
}

func parseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s[:minInt(len(s), 10)], time.UTC)
	return t, eris.Wrapf(err, "warehouse: parse date %q", s)
}
