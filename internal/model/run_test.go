package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFreshness_Lags(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		lagDays int
		want    FreshnessStatus
	}{
		{"same day", 0, FreshnessFresh},
		{"one day", 1, FreshnessFresh},
		{"two days", 2, FreshnessStale},
		{"seven days", 7, FreshnessStale},
		{"eight days", 8, FreshnessVeryStale},
		{"hundred days", 100, FreshnessVeryStale},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := now.AddDate(0, 0, -tc.lagDays)
			assert.Equal(t, tc.want, ClassifyFreshness(&d, now))
		})
	}
}

func TestClassifyFreshness_NilDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, FreshnessUnknown, ClassifyFreshness(nil, now))
}

func TestClassifyFreshness_FutureDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	d := now.AddDate(0, 0, 1)
	assert.Equal(t, FreshnessFresh, ClassifyFreshness(&d, now))
}
