package model

import "github.com/rotisserie/eris"

// IngestionSummary is the per-invocation result of an ingestion run. It is
// handed back to the orchestrator and never persisted.
type IngestionSummary struct {
	Mode          RunMode  `json:"mode"`
	Cities        int      `json:"cities"`
	TotalRequests int      `json:"total_requests"`
	Successes     int      `json:"successes"`
	Failures      int      `json:"failures"`
	FailedCities  []string `json:"failed_cities,omitempty"`
}

// Err reports whether the invocation as a whole failed. Partial failure is a
// warning-level outcome: only zero successes out of a non-zero number of
// attempted requests is fatal.
func (s IngestionSummary) Err() error {
	if s.TotalRequests > 0 && s.Successes == 0 {
		return eris.Errorf("ingestion: all %d requests failed", s.TotalRequests)
	}
	return nil
}
