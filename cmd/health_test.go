package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/climate-pipeline/internal/health"
	"github.com/sells-group/climate-pipeline/internal/model"
	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

func TestFormatIngestionReport(t *testing.T) {
	report := &health.IngestionReport{
		Cities: []health.CityFreshness{{
			BronzeCitySummary: warehouse.BronzeCitySummary{
				CityID:      1,
				CityName:    "Denver",
				CountryCode: "US",
				FirstDate:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				LastDate:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
				Days:        1613,
			},
			Freshness: model.FreshnessStale,
		}},
		Counts: map[model.FreshnessStatus]int{model.FreshnessStale: 1},
		Code:   health.CodeWarn,
	}

	var buf bytes.Buffer
	formatIngestionReport(&buf, report)

	out := buf.String()
	assert.Contains(t, out, "Denver")
	assert.Contains(t, out, "2020-01-01")
	assert.Contains(t, out, "2024-06-01")
	assert.Contains(t, out, "stale")
}

func TestExitErrorMessage(t *testing.T) {
	err := &exitError{code: 2, msg: "very stale"}
	assert.Equal(t, "very stale", err.Error())
	assert.Equal(t, 2, err.code)
}
