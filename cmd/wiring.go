package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/climate-pipeline/internal/ingest"
	"github.com/sells-group/climate-pipeline/internal/landing"
	"github.com/sells-group/climate-pipeline/internal/mlearn"
	"github.com/sells-group/climate-pipeline/internal/model"
	"github.com/sells-group/climate-pipeline/internal/openmeteo"
	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

func newOpenMeteoClient() *openmeteo.Client {
	return openmeteo.New(openmeteo.Options{
		GeocodingBaseURL:  cfg.OpenMeteo.GeocodingBaseURL,
		HistoricalBaseURL: cfg.OpenMeteo.HistoricalBaseURL,
		Timeout:           time.Duration(cfg.OpenMeteo.TimeoutSecs) * time.Second,
	})
}

func newIngestor() *ingest.Ingestor {
	zone := landing.NewZone(cfg.Data.RawWeatherDir)
	return ingest.New(newOpenMeteoClient(), zone, ingest.Options{
		Variables:    cfg.OpenMeteo.DailyVariables,
		MaxRetries:   cfg.Ingestion.MaxRetries,
		BackoffBase:  secs(cfg.Ingestion.BackoffBaseSecs),
		RequestDelay: secs(cfg.Ingestion.RequestDelaySecs),
	})
}

// loadCityDimension reads resolved cities from the warehouse. The dimension
// is built by the geocode verb, which must run before any ingestion.
func loadCityDimension(ctx context.Context) ([]model.City, error) {
	db, err := warehouse.Open(cfg.Warehouse.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ok, err := warehouse.TableExists(ctx, db, "dim_city")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, eris.New("dim_city not found in warehouse, run `climate-pipeline geocode` first")
	}

	cities, err := warehouse.LoadDimCity(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(cities) == 0 {
		return nil, eris.New("dim_city is empty, run `climate-pipeline geocode` first")
	}
	return cities, nil
}

func trainConfig() mlearn.TrainConfig {
	return mlearn.TrainConfig{
		WarehousePath: cfg.Warehouse.Path,
		FeatureTable:  cfg.ML.FeatureTable,
		ModelPath:     cfg.ML.ModelPath,
		MetricsPath:   cfg.ML.MetricsPath,
		TrainFraction: cfg.ML.TrainFraction,
		Epochs:        cfg.ML.Epochs,
		LearningRate:  cfg.ML.LearningRate,
	}
}

func parseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "invalid date %q, want YYYY-MM-DD", value)
	}
	return t, nil
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
