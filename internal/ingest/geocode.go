package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/climate-pipeline/internal/config"
	"github.com/sells-group/climate-pipeline/internal/landing"
	"github.com/sells-group/climate-pipeline/internal/openmeteo"
	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

// Geocoder resolves a city name to coordinates.
type Geocoder interface {
	GeocodeCity(ctx context.Context, name, countryCode string) (*openmeteo.GeocodeResult, error)
}

// GeocodeSummary reports what a dimension refresh resolved.
type GeocodeSummary struct {
	Cities   int
	Resolved int
	Skipped  []string
}

// RefreshCityDimension geocodes every configured city, writes one raw JSON
// artifact per resolved city under rawDir, and rebuilds the dim_city table.
// Cities without a geocoding match are skipped, not fatal.
func RefreshCityDimension(ctx context.Context, geo Geocoder, cities []config.CityEntry, rawDir, warehousePath string) (GeocodeSummary, error) {
	summary := GeocodeSummary{Cities: len(cities)}

	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return summary, eris.Wrapf(err, "ingest: create geocoding dir %s", rawDir)
	}

	var rows []warehouse.DimCityRow
	for _, city := range cities {
		log := zap.L().With(zap.Int64("city_id", city.CityID), zap.String("city", city.Name))

		result, err := geo.GeocodeCity(ctx, city.Name, city.CountryCode)
		if err != nil {
			return summary, eris.Wrapf(err, "ingest: geocode %s", city.Name)
		}
		if result == nil {
			log.Error("no geocoding result, skipping city")
			summary.Skipped = append(summary.Skipped, city.Name)
			continue
		}

		rawFile := fmt.Sprintf("%d_%s.json", city.CityID, landing.Slugify(city.Name))
		if err := writeGeocodeArtifact(filepath.Join(rawDir, rawFile), result); err != nil {
			return summary, err
		}

		rows = append(rows, warehouse.DimCityRow{
			CityID:      city.CityID,
			CityName:    result.Name,
			CountryCode: result.CountryCode,
			Latitude:    result.Latitude,
			Longitude:   result.Longitude,
			Timezone:    result.Timezone,
			Admin1:      result.Admin1,
			Population:  result.Population,
			RawFile:     rawFile,
		})
		summary.Resolved++
		log.Info("resolved city",
			zap.Float64("lat", result.Latitude),
			zap.Float64("lon", result.Longitude),
			zap.String("timezone", result.Timezone),
		)
	}

	db, err := warehouse.Open(warehousePath)
	if err != nil {
		return summary, err
	}
	defer db.Close()
	if err := warehouse.RebuildDimCity(ctx, db, rows); err != nil {
		return summary, err
	}

	zap.L().Info("rebuilt city dimension",
		zap.Int("resolved", summary.Resolved),
		zap.Strings("skipped", summary.Skipped),
	)
	return summary, nil
}

func writeGeocodeArtifact(path string, result *openmeteo.GeocodeResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "ingest: marshal geocode result")
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "ingest: write %s", path)
}
