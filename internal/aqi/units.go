package aqi

import (
	"errors"
	"fmt"
	"strings"
)

// Unit is a concentration unit.
type Unit string

const (
	MicrogramsPerCubicMeter Unit = "µg/m³"
	PartsPerBillion         Unit = "ppb"
	PartsPerMillion         Unit = "ppm"
)

// CanonicalUnit is the unit every Reading value is stored in.
const CanonicalUnit = MicrogramsPerCubicMeter

var (
	ErrUnsupportedUnit  = errors.New("unsupported unit")
	ErrUnknownPollutant = errors.New("unknown pollutant")
)

var unitAliases = map[string]Unit{
	"µg/m³":                      MicrogramsPerCubicMeter,
	"μg/m³":                      MicrogramsPerCubicMeter,
	"ug/m3":                      MicrogramsPerCubicMeter,
	"µg/m3":                      MicrogramsPerCubicMeter,
	"μg/m3":                      MicrogramsPerCubicMeter,
	"micrograms_per_cubic_meter": MicrogramsPerCubicMeter,
	"ppb":                        PartsPerBillion,
	"parts_per_billion":          PartsPerBillion,
	"ppm":                        PartsPerMillion,
	"parts_per_million":          PartsPerMillion,
}

// ParseUnit recognizes the unit spellings used by the supported providers.
func ParseUnit(s string) (Unit, error) {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedUnit, s)
}

// Gas conversion factors to µg/m³ at 25 °C and 1 atm.
var ppbToCanonical = map[string]float64{
	NO2: 1.88,
	O3:  1.96,
	SO2: 2.62,
}

var ppmToCanonical = map[string]float64{
	CO: 1145,
}

// factor returns the multiplier that turns a value in unit u into µg/m³.
func factor(pollutant string, u Unit) (float64, bool) {
	switch u {
	case MicrogramsPerCubicMeter:
		return 1, true
	case PartsPerBillion:
		if f, ok := ppbToCanonical[pollutant]; ok {
			return f, true
		}
		if f, ok := ppmToCanonical[pollutant]; ok {
			return f / 1000, true
		}
	case PartsPerMillion:
		if f, ok := ppmToCanonical[pollutant]; ok {
			return f, true
		}
		if f, ok := ppbToCanonical[pollutant]; ok {
			return f * 1000, true
		}
	}
	return 0, false
}

// Canonicalize converts value, reported in unit, to the canonical unit for
// pollutant. Values already in µg/m³ are returned unchanged. Mixing-ratio
// units are only accepted for the gases that have a conversion factor.
func Canonicalize(pollutant string, value float64, unit string) (float64, error) {
	u, err := ParseUnit(unit)
	if err != nil {
		return 0, err
	}
	f, ok := factor(pollutant, u)
	if !ok {
		return 0, fmt.Errorf("%w: %s reported in %s", ErrUnsupportedUnit, pollutant, u)
	}
	return value * f, nil
}
