// Package openmeteo provides a client for the Open-Meteo geocoding and
// historical weather archive APIs.
package openmeteo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/climate-pipeline/internal/resilience"
)

// Options configures the Open-Meteo client.
type Options struct {
	GeocodingBaseURL  string
	HistoricalBaseURL string
	Timeout           time.Duration
	// RateLimit is the steady request rate against the API. Open-Meteo's free
	// tier tolerates roughly 10 req/s.
	RateLimit rate.Limit
	// Retry governs transport-level retries on 429 and 5xx responses. This is
	// independent of, and nested inside, any retry the caller wraps around a
	// whole fetch.
	Retry resilience.RetryConfig
}

// Client calls the Open-Meteo geocoding and archive endpoints.
type Client struct {
	httpClient *http.Client
	opts       Options
	limiter    *rate.Limiter
}

// New creates an Open-Meteo client with the given options.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 10
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.RetryConfig{
			MaxAttempts:    5,
			InitialBackoff: 2 * time.Second,
			Multiplier:     2.0,
		}
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
		limiter:    rate.NewLimiter(opts.RateLimit, 1),
	}
}

// GeocodeResult is the best geocoding match for a city name.
type GeocodeResult struct {
	Name        string  `json:"name"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
	Admin1      string  `json:"admin1,omitempty"`
	Population  int64   `json:"population,omitempty"`
}

type geocodeResponse struct {
	Results []GeocodeResult `json:"results"`
}

// GeocodeCity resolves a city name (optionally filtered by country code) to
// its best match. A city with no results returns (nil, nil); the caller
// decides whether that is fatal.
func (c *Client) GeocodeCity(ctx context.Context, name, countryCode string) (*GeocodeResult, error) {
	params := url.Values{
		"name":     {name},
		"count":    {"1"},
		"language": {"en"},
	}
	if countryCode != "" {
		params.Set("country_code", countryCode)
	}

	body, err := c.get(ctx, c.opts.GeocodingBaseURL, params)
	if err != nil {
		return nil, eris.Wrapf(err, "openmeteo: geocode %s", name)
	}

	var resp geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrapf(err, "openmeteo: parse geocode response for %s", name)
	}
	if len(resp.Results) == 0 {
		zap.L().Warn("no geocoding results",
			zap.String("city", name),
			zap.String("country_code", countryCode),
		)
		return nil, nil
	}

	best := resp.Results[0]
	zap.L().Info("geocoded city",
		zap.String("city", name),
		zap.String("match", best.Name),
		zap.Float64("lat", best.Latitude),
		zap.Float64("lon", best.Longitude),
		zap.String("tz", best.Timezone),
	)
	return &best, nil
}

// HistoryRequest describes one historical daily-weather fetch.
type HistoryRequest struct {
	Latitude       float64
	Longitude      float64
	StartDate      time.Time
	EndDate        time.Time
	DailyVariables []string
	Timezone       string
}

// FetchDailyHistory fetches daily historical weather for a coordinate and
// date range. It returns the raw JSON payload; shape validation is the
// caller's concern.
func (c *Client) FetchDailyHistory(ctx context.Context, req HistoryRequest) (json.RawMessage, error) {
	tz := req.Timezone
	if tz == "" {
		tz = "auto"
	}
	params := url.Values{
		"latitude":   {strconv.FormatFloat(req.Latitude, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(req.Longitude, 'f', 4, 64)},
		"start_date": {req.StartDate.Format("2006-01-02")},
		"end_date":   {req.EndDate.Format("2006-01-02")},
		"daily":      {strings.Join(req.DailyVariables, ",")},
		"timezone":   {tz},
	}

	body, err := c.get(ctx, c.opts.HistoricalBaseURL, params)
	if err != nil {
		return nil, eris.Wrapf(err, "openmeteo: fetch daily history %s to %s",
			req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))
	}
	return json.RawMessage(body), nil
}

// get performs a rate-limited GET with transport-level retry on 429/5xx.
func (c *Client) get(ctx context.Context, baseURL string, params url.Values) ([]byte, error) {
	cfg := c.opts.Retry
	cfg.OnRetry = resilience.RetryLogger("openmeteo", "get")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		reqURL := baseURL + "?" + params.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "build request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("unexpected status %d from %s", resp.StatusCode, baseURL)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		return body, nil
	})
}
