package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CityEntry is one configured city before geocoding resolves coordinates.
type CityEntry struct {
	CityID      int64  `yaml:"city_id"`
	Name        string `yaml:"name"`
	CountryCode string `yaml:"country_code"`
}

type citiesFile struct {
	Cities []CityEntry `yaml:"cities"`
}

// LoadCities parses the configured cities YAML file.
func LoadCities(path string) ([]CityEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read cities file %s", path)
	}

	var f citiesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrapf(err, "config: parse cities file %s", path)
	}
	if len(f.Cities) == 0 {
		return nil, eris.Errorf("config: no cities defined in %s", path)
	}
	return f.Cities, nil
}
