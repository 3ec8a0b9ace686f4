package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/climate-pipeline/internal/config"
	"github.com/sells-group/climate-pipeline/internal/openmeteo"
	"github.com/sells-group/climate-pipeline/internal/warehouse"
)

type fakeGeocoder struct {
	results map[string]*openmeteo.GeocodeResult
	err     error
}

func (f *fakeGeocoder) GeocodeCity(_ context.Context, name, _ string) (*openmeteo.GeocodeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results[name], nil
}

func TestRefreshCityDimension(t *testing.T) {
	dir := t.TempDir()
	rawDir := filepath.Join(dir, "geocoding")
	warehousePath := filepath.Join(dir, "warehouse.db")

	geo := &fakeGeocoder{results: map[string]*openmeteo.GeocodeResult{
		"Denver": {Name: "Denver", CountryCode: "US", Latitude: 39.7, Longitude: -105.0, Timezone: "America/Denver", Population: 715522},
		"Lisbon": {Name: "Lisbon", CountryCode: "PT", Latitude: 38.7, Longitude: -9.1, Timezone: "Europe/Lisbon"},
	}}
	cities := []config.CityEntry{
		{CityID: 1, Name: "Denver", CountryCode: "US"},
		{CityID: 2, Name: "Lisbon", CountryCode: "PT"},
		{CityID: 3, Name: "Atlantis", CountryCode: "XX"}, // no match
	}

	sum, err := RefreshCityDimension(context.Background(), geo, cities, rawDir, warehousePath)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Cities)
	assert.Equal(t, 2, sum.Resolved)
	assert.Equal(t, []string{"Atlantis"}, sum.Skipped)

	// Raw artifacts for resolved cities only.
	_, err = os.Stat(filepath.Join(rawDir, "1_denver.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(rawDir, "2_lisbon.json"))
	assert.NoError(t, err)

	db, err := warehouse.Open(warehousePath)
	require.NoError(t, err)
	defer db.Close()
	rows, err := warehouse.LoadDimCity(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Denver", rows[0].CityName)
	assert.Equal(t, "Europe/Lisbon", rows[1].Timezone)
}

func TestRefreshCityDimension_GeocodeErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	geo := &fakeGeocoder{err: fmt.Errorf("upstream unavailable")}

	_, err := RefreshCityDimension(context.Background(), geo,
		[]config.CityEntry{{CityID: 1, Name: "Denver"}},
		filepath.Join(dir, "geocoding"), filepath.Join(dir, "warehouse.db"))
	require.Error(t, err)
}
