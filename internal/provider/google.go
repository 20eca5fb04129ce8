package provider

import (
	"fmt"

	"github.com/smukkama/airquality-server/internal/aqi"
)

// parseGoogle reads a currentConditions response. The payload carries no
// location, so the station comes from the fetch target.
func parseGoogle(p Payload) ([]Candidate, error) {
	if p.Station == nil {
		return nil, fmt.Errorf("%w: google payload without a target station", ErrUnrecognizedPayload)
	}
	ts, err := ParseTimestamp(str(p.Data, "dateTime"), nil)
	if err != nil {
		return nil, err
	}
	list, ok := p.Data["pollutants"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: google payload has no pollutants", ErrUnrecognizedPayload)
	}

	var out []Candidate
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		code := str(entry, "code")
		if code == "" {
			continue
		}
		conc, ok := object(entry, "concentration")
		if !ok {
			continue
		}
		v, ok := number(conc, "value")
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Station:   *p.Station,
			Pollutant: aqi.NormalizeName(code),
			Timestamp: ts,
			Value:     v,
			Unit:      str(conc, "units"),
		})
	}
	return out, nil
}
