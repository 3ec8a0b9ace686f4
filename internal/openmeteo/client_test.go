package openmeteo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/climate-pipeline/internal/resilience"
)

func fastRetry(maxAttempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		Sleep:          func(context.Context, time.Duration) {},
	}
}

func TestGeocodeCity_BestMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lisbon", r.URL.Query().Get("name"))
		assert.Equal(t, "PT", r.URL.Query().Get("country_code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"name":"Lisbon","country_code":"PT","latitude":38.7167,"longitude":-9.1333,"timezone":"Europe/Lisbon","population":517802}]}`))
	}))
	defer srv.Close()

	c := New(Options{GeocodingBaseURL: srv.URL, Retry: fastRetry(3)})
	got, err := c.GeocodeCity(context.Background(), "Lisbon", "PT")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Lisbon", got.Name)
	assert.InDelta(t, 38.7167, got.Latitude, 1e-6)
	assert.Equal(t, "Europe/Lisbon", got.Timezone)
}

func TestGeocodeCity_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := New(Options{GeocodingBaseURL: srv.URL, Retry: fastRetry(3)})
	got, err := c.GeocodeCity(context.Background(), "Atlantis", "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFetchDailyHistory_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"daily":{"time":["2024-01-01"],"temperature_2m_mean":[11.5]}}`))
	}))
	defer srv.Close()

	c := New(Options{HistoricalBaseURL: srv.URL, Retry: fastRetry(5)})
	raw, err := c.FetchDailyHistory(context.Background(), HistoryRequest{
		Latitude:       38.7,
		Longitude:      -9.1,
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DailyVariables: []string{"temperature_2m_mean"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "temperature_2m_mean")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDailyHistory_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Options{HistoricalBaseURL: srv.URL, Retry: fastRetry(3)})
	_, err := c.FetchDailyHistory(context.Background(), HistoryRequest{
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		DailyVariables: []string{"temperature_2m_mean"},
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDailyHistory_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Options{HistoricalBaseURL: srv.URL, Retry: fastRetry(5)})
	_, err := c.FetchDailyHistory(context.Background(), HistoryRequest{
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
