package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/climate-pipeline/internal/model"
)

func TestCountWithDelta(t *testing.T) {
	count, delta := int64(120), int64(-5)
	assert.Equal(t, "-", countWithDelta(nil, nil))
	assert.Equal(t, "120", countWithDelta(&count, nil))
	assert.Equal(t, "120 (-5)", countWithDelta(&count, &delta))

	up := int64(7)
	assert.Equal(t, "120 (+7)", countWithDelta(&count, &up))
}

func TestFormatRuns(t *testing.T) {
	bronze, bronzeDelta := int64(365), int64(31)
	recs := []model.PipelineRunRecord{{
		ID:              3,
		FlowName:        "daily-climate-pipeline",
		RunMode:         model.RunModeDaily,
		Status:          model.RunStatusSuccess,
		StartedAt:       time.Date(2024, 6, 2, 5, 0, 0, 0, time.UTC),
		FinishedAt:      time.Date(2024, 6, 2, 5, 3, 0, 0, time.UTC),
		RowsBronze:      &bronze,
		RowsBronzeDelta: &bronzeDelta,
		FreshnessStatus: model.FreshnessFresh,
	}}

	var buf bytes.Buffer
	formatRuns(&buf, recs)

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "daily-climate-pipeline")
	assert.Contains(t, out, "365 (+31)")
	assert.Contains(t, out, "fresh")
}
