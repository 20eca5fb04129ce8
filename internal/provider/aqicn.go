package provider

import (
	"fmt"
	"time"

	"github.com/smukkama/airquality-server/internal/aqi"
)

type codeUnit struct {
	pollutant string
	unit      aqi.Unit
}

// AQICN reports individual pollutants under data.iaqi.<code>.v
var aqicnCodes = []struct {
	code string
	codeUnit
}{
	{"pm25", codeUnit{aqi.PM25, aqi.MicrogramsPerCubicMeter}},
	{"pm10", codeUnit{aqi.PM10, aqi.MicrogramsPerCubicMeter}},
	{"o3", codeUnit{aqi.O3, aqi.PartsPerBillion}},
	{"no2", codeUnit{aqi.NO2, aqi.PartsPerBillion}},
	{"so2", codeUnit{aqi.SO2, aqi.PartsPerBillion}},
	{"co", codeUnit{aqi.CO, aqi.PartsPerMillion}},
}

func parseAQICN(p Payload) ([]Candidate, error) {
	if status := str(p.Data, "status"); status != "" && status != "ok" {
		return nil, fmt.Errorf("%w: aqicn status %q", ErrUnrecognizedPayload, status)
	}
	data, ok := object(p.Data, "data")
	if !ok {
		return nil, fmt.Errorf("%w: aqicn payload has no data", ErrUnrecognizedPayload)
	}

	city, ok := object(data, "city")
	if !ok || str(city, "name") == "" {
		return nil, fmt.Errorf("%w: aqicn payload has no city", ErrUnrecognizedPayload)
	}
	cityName := str(city, "name")
	station := StationRef{
		Name: cityName + " Station",
		City: cityName,
	}
	station.Latitude, station.Longitude, _ = pair(city, "geo")

	ts, err := aqicnTime(data)
	if err != nil {
		return nil, err
	}

	iaqi, ok := object(data, "iaqi")
	if !ok {
		return nil, fmt.Errorf("%w: aqicn payload has no iaqi", ErrUnrecognizedPayload)
	}

	var out []Candidate
	for _, c := range aqicnCodes {
		entry, ok := object(iaqi, c.code)
		if !ok {
			continue
		}
		v, ok := number(entry, "v")
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Station:   station,
			Pollutant: c.pollutant,
			Timestamp: ts,
			Value:     v,
			Unit:      string(c.unit),
		})
	}
	return out, nil
}

// aqicnTime prefers data.time.iso; otherwise data.time.s is local time at
// the data.time.tz offset.
func aqicnTime(data map[string]any) (time.Time, error) {
	t, ok := object(data, "time")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: aqicn payload has no time", ErrUnrecognizedPayload)
	}
	if iso := str(t, "iso"); iso != "" {
		return ParseTimestamp(iso, nil)
	}

	loc := time.UTC
	if tz := str(t, "tz"); tz != "" {
		l, err := ParseOffset(tz)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
		}
		loc = l
	}
	return ParseTimestamp(str(t, "s"), loc)
}
