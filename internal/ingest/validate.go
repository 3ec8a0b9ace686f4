package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

// InvalidPayloadError reports an upstream response that failed shape
// validation. It is retriable at the ingestion level: a malformed response
// may be a temporary upstream glitch.
type InvalidPayloadError struct {
	Reason string
}

func (e *InvalidPayloadError) Error() string {
	return "invalid payload: " + e.Reason
}

// DailyBlock is the validated daily section of an archive response: an
// ordered list of dates plus, per requested variable, a parallel list of
// values of equal length. Individual values may be null.
type DailyBlock struct {
	Time   []string
	Values map[string][]*float64
}

type archiveResponse struct {
	Daily map[string]json.RawMessage `json:"daily"`
}

// ParseDaily validates a raw archive payload against the requested variable
// list. Any missing key, empty time axis, or length mismatch yields an
// InvalidPayloadError; the payload is never silently truncated.
func ParseDaily(raw json.RawMessage, requiredVars []string) (*DailyBlock, error) {
	var resp archiveResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, eris.Wrap(err, "parse archive payload")
	}
	if resp.Daily == nil {
		return nil, &InvalidPayloadError{Reason: "missing 'daily' block"}
	}

	timeRaw, ok := resp.Daily["time"]
	if !ok {
		return nil, &InvalidPayloadError{Reason: "missing 'daily.time' series"}
	}
	var times []string
	if err := json.Unmarshal(timeRaw, &times); err != nil {
		return nil, &InvalidPayloadError{Reason: "'daily.time' is not a list of dates"}
	}
	if len(times) == 0 {
		return nil, &InvalidPayloadError{Reason: "'daily.time' is empty"}
	}

	block := &DailyBlock{
		Time:   times,
		Values: make(map[string][]*float64, len(requiredVars)),
	}
	for _, v := range requiredVars {
		varRaw, ok := resp.Daily[v]
		if !ok {
			return nil, &InvalidPayloadError{Reason: fmt.Sprintf("missing variable %q", v)}
		}
		var vals []*float64
		if err := json.Unmarshal(varRaw, &vals); err != nil {
			return nil, &InvalidPayloadError{Reason: fmt.Sprintf("variable %q is not a numeric list", v)}
		}
		if len(vals) != len(times) {
			return nil, &InvalidPayloadError{Reason: fmt.Sprintf(
				"variable %q has %d values for %d dates", v, len(vals), len(times))}
		}
		block.Values[v] = vals
	}

	return block, nil
}
