package provider

import (
	"fmt"

	"github.com/smukkama/airquality-server/internal/aqi"
)

// parseIQAir handles the city endpoint, which only reports a US AQI. The
// PM2.5 concentration is estimated back from that index.
func parseIQAir(p Payload) ([]Candidate, error) {
	if status := str(p.Data, "status"); status != "" && status != "success" {
		return nil, fmt.Errorf("%w: iqair status %q", ErrUnrecognizedPayload, status)
	}
	data, ok := object(p.Data, "data")
	if !ok {
		return nil, fmt.Errorf("%w: iqair payload has no data", ErrUnrecognizedPayload)
	}
	city := str(data, "city")
	if city == "" {
		return nil, fmt.Errorf("%w: iqair payload has no city", ErrUnrecognizedPayload)
	}

	station := StationRef{
		Name:    city + " IQAir Station",
		City:    city,
		Country: str(data, "country"),
	}
	if loc, ok := object(data, "location"); ok {
		// GeoJSON order: [lon, lat]
		station.Longitude, station.Latitude, _ = pair(loc, "coordinates")
	}

	current, ok := object(data, "current")
	if !ok {
		return nil, fmt.Errorf("%w: iqair payload has no current conditions", ErrUnrecognizedPayload)
	}
	pollution, ok := object(current, "pollution")
	if !ok {
		return nil, fmt.Errorf("%w: iqair payload has no pollution", ErrUnrecognizedPayload)
	}
	ts, err := ParseTimestamp(str(pollution, "ts"), nil)
	if err != nil {
		return nil, err
	}
	us, ok := number(pollution, "aqius")
	if !ok {
		return nil, fmt.Errorf("%w: iqair payload has no aqius", ErrUnrecognizedPayload)
	}

	index := int(us)
	conc, err := aqi.EstimateConcentration(aqi.PM25, index)
	if err != nil {
		return nil, err
	}
	return []Candidate{{
		Station:     station,
		Pollutant:   aqi.PM25,
		Timestamp:   ts,
		Value:       conc,
		Unit:        string(aqi.MicrogramsPerCubicMeter),
		ReportedAQI: &index,
	}}, nil
}
