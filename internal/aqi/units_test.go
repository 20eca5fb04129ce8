package aqi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name      string
		pollutant string
		value     float64
		unit      string
		expected  float64
	}{
		{"NO2 ppb", NO2, 40, "ppb", 75.2},
		{"O3 ppb", O3, 50, "PARTS_PER_BILLION", 98},
		{"SO2 ppb", SO2, 10, "ppb", 26.2},
		{"CO ppm", CO, 2, "ppm", 2290},
		{"CO ppb", CO, 1000, "ppb", 1145},
		{"PM2.5 identity", PM25, 35.5, "µg/m³", 35.5},
		{"PM10 google spelling", PM10, 80, "MICROGRAMS_PER_CUBIC_METER", 80},
		{"greek mu", PM25, 12, "μg/m³", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.pollutant, tt.value, tt.unit)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestCanonicalize_Rejects(t *testing.T) {
	t.Run("unknown unit", func(t *testing.T) {
		_, err := Canonicalize(NO2, 1, "furlongs")
		require.ErrorIs(t, err, ErrUnsupportedUnit)
	})

	t.Run("particulates in ppb", func(t *testing.T) {
		_, err := Canonicalize(PM25, 1, "ppb")
		require.ErrorIs(t, err, ErrUnsupportedUnit)
	})
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, PM25, NormalizeName("pm25"))
	assert.Equal(t, PM25, NormalizeName("PM2.5"))
	assert.Equal(t, NO2, NormalizeName(" no2 "))
	assert.Equal(t, "NH3", NormalizeName("nh3"))
}
