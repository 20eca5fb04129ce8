// Package aqi converts provider-reported concentrations into canonical units
// and maps them to US EPA style Air Quality Index values.
package aqi

import "strings"

// Pollutant names as stored in the pollutants catalog.
const (
	PM25 = "PM2.5"
	PM10 = "PM10"
	O3   = "O3"
	NO2  = "NO2"
	SO2  = "SO2"
	CO   = "CO"
)

// Pollutants lists the catalog entries every deployment must seed.
var Pollutants = []string{PM25, PM10, O3, NO2, SO2, CO}

var pollutantCodes = map[string]string{
	"pm25":  PM25,
	"pm2.5": PM25,
	"pm2_5": PM25,
	"pm10":  PM10,
	"o3":    O3,
	"no2":   NO2,
	"so2":   SO2,
	"co":    CO,
}

// NormalizeName maps a provider pollutant code ("pm25", "no2", ...) to its
// catalog name. Unknown codes are upper-cased and returned as-is.
func NormalizeName(code string) string {
	code = strings.TrimSpace(code)
	if name, ok := pollutantCodes[strings.ToLower(code)]; ok {
		return name
	}
	return strings.ToUpper(code)
}
