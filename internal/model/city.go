package model

// City is an immutable reference entity resolved once by geocoding and
// consumed by ingestion. Re-running geocoding rebuilds the whole set.
type City struct {
	CityID      int64   `json:"city_id" yaml:"city_id"`
	CityName    string  `json:"city_name" yaml:"name"`
	CountryCode string  `json:"country_code" yaml:"country_code"`
	Latitude    float64 `json:"latitude" yaml:"-"`
	Longitude   float64 `json:"longitude" yaml:"-"`
	Timezone    string  `json:"timezone" yaml:"-"`
}
