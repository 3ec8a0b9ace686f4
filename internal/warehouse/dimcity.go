package warehouse

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/sells-group/climate-pipeline/internal/model"
)

// DimCityRow is one resolved city in the warehouse city dimension.
type DimCityRow struct {
	CityID      int64
	CityName    string
	CountryCode string
	Latitude    float64
	Longitude   float64
	Timezone    string
	Admin1      string
	Population  int64
	RawFile     string
}

// RebuildDimCity replaces the dim_city table with the given rows. The
// dimension is small and fully derived, so a full overwrite is simpler than
// reconciling updates.
func RebuildDimCity(ctx context.Context, db *sql.DB, rows []DimCityRow) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "warehouse: begin dim_city rebuild")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS dim_city`); err != nil {
		return eris.Wrap(err, "warehouse: drop dim_city")
	}
	if _, err := tx.ExecContext(ctx, `
CREATE TABLE dim_city (
	city_id            INTEGER PRIMARY KEY,
	city_name          TEXT NOT NULL,
	country_code       TEXT NOT NULL,
	latitude           REAL NOT NULL,
	longitude          REAL NOT NULL,
	timezone           TEXT,
	admin1             TEXT,
	population         INTEGER,
	raw_geocoding_file TEXT
)`); err != nil {
		return eris.Wrap(err, "warehouse: create dim_city")
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO dim_city (
	city_id, city_name, country_code, latitude, longitude,
	timezone, admin1, population, raw_geocoding_file
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "warehouse: prepare dim_city insert")
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.CityID, r.CityName, r.CountryCode, r.Latitude, r.Longitude,
			r.Timezone, r.Admin1, r.Population, r.RawFile,
		); err != nil {
			return eris.Wrapf(err, "warehouse: insert dim_city row %d", r.CityID)
		}
	}

	return eris.Wrap(tx.Commit(), "warehouse: commit dim_city rebuild")
}

// LoadDimCity reads the city dimension ordered by city_id.
func LoadDimCity(ctx context.Context, db *sql.DB) ([]model.City, error) {
	rows, err := db.QueryContext(ctx, `
SELECT city_id, city_name, country_code, latitude, longitude, COALESCE(timezone, '')
FROM dim_city ORDER BY city_id`)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: load dim_city")
	}
	defer rows.Close()

	var cities []model.City
	for rows.Next() {
		var c model.City
		if err := rows.Scan(&c.CityID, &c.CityName, &c.CountryCode, &c.Latitude, &c.Longitude, &c.Timezone); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan dim_city row")
		}
		cities = append(cities, c)
	}
	return cities, eris.Wrap(rows.Err(), "warehouse: iterate dim_city")
}
