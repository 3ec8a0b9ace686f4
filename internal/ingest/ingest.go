// Package ingest implements windowed ingestion of daily weather observations
// into the raw landing zone. Backfill mode covers a fixed historical window
// and skips already-materialized (city, year) artifacts; recent mode always
// re-fetches the current year through yesterday and overwrites.
package ingest

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/climate-pipeline/internal/landing"
	"github.com/sells-group/climate-pipeline/internal/model"
	"github.com/sells-group/climate-pipeline/internal/observability"
	"github.com/sells-group/climate-pipeline/internal/openmeteo"
	"github.com/sells-group/climate-pipeline/internal/resilience"
)

// Source fetches historical daily weather for a coordinate window.
type Source interface {
	FetchDailyHistory(ctx context.Context, req openmeteo.HistoryRequest) (json.RawMessage, error)
}

// Options controls retry, pacing, and the requested variable set.
type Options struct {
	// Variables is the daily variable list requested from the source and
	// validated in each response.
	Variables []string

	// MaxRetries is the total number of attempts per (city, window) before
	// the city is recorded as failed. Default: 3.
	MaxRetries int

	// BackoffBase is the delay before the first retry, doubling each attempt.
	// Default: 500ms.
	BackoffBase time.Duration

	// RequestDelay is the fixed pause between consecutive requests, to be
	// polite to the upstream API. Zero disables the pause.
	RequestDelay time.Duration

	// Clock supplies "now" for recent-mode windowing. Defaults to the real
	// clock.
	Clock clockwork.Clock
}

// Ingestor runs windowed ingestion against a source and a landing zone.
// Cities are processed strictly sequentially.
type Ingestor struct {
	src  Source
	zone *landing.Zone
	opts Options
}

// New creates an Ingestor.
func New(src Source, zone *landing.Zone, opts Options) *Ingestor {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Ingestor{src: src, zone: zone, opts: opts}
}

// Backfill ingests the historical window [start, end] for every city,
// skipping (city, year) windows that are already materialized. A single
// city's failure never aborts the run; it is recorded in the summary.
func (in *Ingestor) Backfill(ctx context.Context, cities []model.City, start, end time.Time) (model.IngestionSummary, error) {
	summary := model.IngestionSummary{Mode: model.RunModeBackfill, Cities: len(cities)}

	start, end = dateOnly(start), dateOnly(end)
	if start.After(end) {
		return summary, eris.Errorf("ingest: start date %s after end date %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	years := YearRange(start, end)
	zap.L().Info("backfill ingestion",
		zap.Int("cities", len(cities)),
		zap.Ints("years", years),
	)

	failed := map[string]bool{}
	for _, city := range cities {
		slug := landing.Slugify(city.CityName)
		log := zap.L().With(zap.Int64("city_id", city.CityID), zap.String("city", city.CityName))

		for _, year := range years {
			ws, we := ClampYearWindow(start, end, year)
			if ws.After(we) {
				continue // outside global window
			}
			if in.zone.Exists(slug, year) {
				log.Info("skipping materialized window", zap.Int("year", year))
				continue
			}

			summary.TotalRequests++
			if err := in.fetchWindow(ctx, city, slug, year, ws, we); err != nil {
				log.Error("window ingestion failed", zap.Int("year", year), zap.Error(err))
				summary.Failures++
				failed[city.CityName] = true
				observability.IngestRequests.WithLabelValues("failure").Inc()
				continue
			}
			summary.Successes++
			observability.IngestRequests.WithLabelValues("success").Inc()

			in.pause(ctx)
		}
	}

	summary.FailedCities = sortedKeys(failed)
	return summary, nil
}

// Recent ingests year-to-date data (January 1 through yesterday) for every
// city, always overwriting the current-year artifact. On January 1, when
// yesterday falls in the prior year, nothing is fetched and an empty summary
// is returned.
func (in *Ingestor) Recent(ctx context.Context, cities []model.City) (model.IngestionSummary, error) {
	summary := model.IngestionSummary{Mode: model.RunModeDaily, Cities: len(cities)}

	today := dateOnly(in.opts.Clock.Now())
	yesterday := today.AddDate(0, 0, -1)
	yearStart := time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	if yesterday.Before(yearStart) {
		zap.L().Warn("recent mode: yesterday precedes the current year, nothing to fetch",
			zap.Time("yesterday", yesterday),
		)
		return summary, nil
	}

	zap.L().Info("recent ingestion",
		zap.Int("cities", len(cities)),
		zap.Time("start", yearStart),
		zap.Time("end", yesterday),
	)

	failed := map[string]bool{}
	year := today.Year()
	for _, city := range cities {
		slug := landing.Slugify(city.CityName)

		summary.TotalRequests++
		if err := in.fetchWindow(ctx, city, slug, year, yearStart, yesterday); err != nil {
			zap.L().Error("recent window ingestion failed",
				zap.Int64("city_id", city.CityID),
				zap.String("city", city.CityName),
				zap.Error(err),
			)
			summary.Failures++
			failed[city.CityName] = true
			observability.IngestRequests.WithLabelValues("failure").Inc()
			continue
		}
		summary.Successes++
		observability.IngestRequests.WithLabelValues("success").Inc()

		in.pause(ctx)
	}

	summary.FailedCities = sortedKeys(failed)
	return summary, nil
}

// fetchWindow requests one (city, year) window with retry, validates the
// response shape, and persists the raw payload on success. Validation
// failures are retriable: a malformed response may be temporary.
func (in *Ingestor) fetchWindow(ctx context.Context, city model.City, slug string, year int, start, end time.Time) error {
	cfg := resilience.RetryConfig{
		MaxAttempts:    in.opts.MaxRetries,
		InitialBackoff: in.opts.BackoffBase,
		Multiplier:     2.0,
		ShouldRetry:    func(error) bool { return true },
		OnRetry:        resilience.RetryLogger("ingest", "fetch_window"),
	}

	raw, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (json.RawMessage, error) {
		raw, err := in.src.FetchDailyHistory(ctx, openmeteo.HistoryRequest{
			Latitude:       city.Latitude,
			Longitude:      city.Longitude,
			StartDate:      start,
			EndDate:        end,
			DailyVariables: in.opts.Variables,
			Timezone:       city.Timezone,
		})
		if err != nil {
			return nil, err
		}
		if _, err := ParseDaily(raw, in.opts.Variables); err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		return eris.Wrapf(err, "fetch window %s/%d", slug, year)
	}

	if err := in.zone.Write(slug, year, raw); err != nil {
		return err
	}

	zap.L().Info("materialized window",
		zap.String("city", city.CityName),
		zap.Int("year", year),
		zap.String("path", in.zone.Path(slug, year)),
	)
	return nil
}

func (in *Ingestor) pause(ctx context.Context) {
	if in.opts.RequestDelay <= 0 {
		return
	}
	timer := time.NewTimer(in.opts.RequestDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
