package aqi

import (
	"fmt"
	"math"
)

// MaxIndex is the AQI returned for concentrations above every band.
const MaxIndex = 500

// bandEpsilon absorbs float error from unit conversion at band edges.
const bandEpsilon = 1e-9

// PlaceholderAQI is returned by Index for pollutants that have no breakpoint
// table. It is a fixed "moderate" value, not an estimate.
const PlaceholderAQI = 75

// Band maps a concentration range onto an AQI range.
type Band struct {
	ConcLow, ConcHigh float64
	AQILow, AQIHigh   int
}

// Table is the breakpoint table for one pollutant, expressed in the unit the
// EPA publishes it in.
type Table struct {
	Unit  Unit
	Bands []Band
}

var breakpoints = map[string]Table{
	PM25: {Unit: MicrogramsPerCubicMeter, Bands: []Band{
		{0, 12.0, 0, 50},
		{12.1, 35.4, 51, 100},
		{35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200},
		{150.5, 250.4, 201, 300},
		{250.5, 500.4, 301, 500},
	}},
	PM10: {Unit: MicrogramsPerCubicMeter, Bands: []Band{
		{0, 54, 0, 50},
		{55, 154, 51, 100},
		{155, 254, 101, 150},
		{255, 354, 151, 200},
		{355, 424, 201, 300},
		{425, 604, 301, 500},
	}},
	O3: {Unit: PartsPerBillion, Bands: []Band{
		{0, 54, 0, 50},
		{55, 70, 51, 100},
		{71, 85, 101, 150},
		{86, 105, 151, 200},
		{106, 200, 201, 300},
	}},
	NO2: {Unit: PartsPerBillion, Bands: []Band{
		{0, 53, 0, 50},
		{54, 100, 51, 100},
		{101, 360, 101, 150},
		{361, 649, 151, 200},
		{650, 1249, 201, 300},
	}},
	SO2: {Unit: PartsPerBillion, Bands: []Band{
		{0, 35, 0, 50},
		{36, 75, 51, 100},
		{76, 185, 101, 150},
		{186, 304, 151, 200},
		{305, 604, 201, 300},
	}},
	CO: {Unit: PartsPerMillion, Bands: []Band{
		{0, 4.4, 0, 50},
		{4.5, 9.4, 51, 100},
		{9.5, 12.4, 101, 150},
		{12.5, 15.4, 151, 200},
		{15.5, 30.4, 201, 300},
	}},
}

// Breakpoints returns the table for pollutant.
func Breakpoints(pollutant string) (Table, bool) {
	t, ok := breakpoints[pollutant]
	return t, ok
}

// Index computes the AQI for a canonical (µg/m³) concentration by linear
// interpolation inside the band that contains it:
//
//	aqi = round((aqiHigh-aqiLow)/(concHigh-concLow) * (conc-concLow) + aqiLow)
//
// Published tables leave gaps between bands at their reporting precision
// (12.0 / 12.1 for PM2.5); a value in a gap belongs to the upper band and is
// clamped to its lower edge. Concentrations above every band saturate at
// MaxIndex. Pollutants without a table get PlaceholderAQI.
func Index(pollutant string, canonical float64) int {
	table, ok := Breakpoints(pollutant)
	if !ok {
		return PlaceholderAQI
	}
	f, _ := factor(pollutant, table.Unit)
	conc := canonical / f
	if conc <= 0 || math.IsNaN(conc) {
		return 0
	}

	for _, b := range table.Bands {
		if conc > b.ConcHigh+bandEpsilon {
			continue
		}
		if conc < b.ConcLow {
			conc = b.ConcLow
		}
		conc = math.Min(conc, b.ConcHigh)
		slope := float64(b.AQIHigh-b.AQILow) / (b.ConcHigh - b.ConcLow)
		return int(math.Round(slope*(conc-b.ConcLow) + float64(b.AQILow)))
	}
	return MaxIndex
}

// EstimateConcentration inverts Index: it returns the canonical concentration
// that corresponds to index inside the band containing it. Indexes above the
// highest band saturate at that band's upper concentration.
func EstimateConcentration(pollutant string, index int) (float64, error) {
	table, ok := Breakpoints(pollutant)
	if !ok {
		return 0, fmt.Errorf("%w: no breakpoints for %q", ErrUnknownPollutant, pollutant)
	}
	f, _ := factor(pollutant, table.Unit)
	if index <= 0 {
		return 0, nil
	}

	for _, b := range table.Bands {
		if index >= b.AQILow && index <= b.AQIHigh {
			conc := b.ConcLow + float64(index-b.AQILow)*(b.ConcHigh-b.ConcLow)/float64(b.AQIHigh-b.AQILow)
			return conc * f, nil
		}
	}
	last := table.Bands[len(table.Bands)-1]
	return last.ConcHigh * f, nil
}

// Category names the health band an AQI value falls in.
func Category(index int) string {
	switch {
	case index <= 50:
		return "Good"
	case index <= 100:
		return "Moderate"
	case index <= 150:
		return "Unhealthy for Sensitive Groups"
	case index <= 200:
		return "Unhealthy"
	case index <= 300:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}

// HealthAdvice returns the general-population recommendation for index.
func HealthAdvice(index int) string {
	switch {
	case index <= 50:
		return "Air quality is satisfactory. Enjoy outdoor activities."
	case index <= 100:
		return "Unusually sensitive people should consider reducing prolonged outdoor exertion."
	case index <= 150:
		return "Sensitive groups should reduce prolonged or heavy outdoor exertion."
	case index <= 200:
		return "Everyone should reduce prolonged outdoor exertion; sensitive groups should avoid it."
	case index <= 300:
		return "Avoid outdoor exertion. Keep windows closed."
	default:
		return "Health alert: remain indoors and keep activity levels low."
	}
}
