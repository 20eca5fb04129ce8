package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/airquality-server/internal/aqi"
	"github.com/smukkama/airquality-server/internal/provider"
)

func TestNormalize_DropReasons(t *testing.T) {
	lookup, err := provider.NewLookup(context.Background(), newMemStore(), false)
	require.NoError(t, err)

	providerID := int64(1)
	n := &normalizer{lookup: lookup, providerID: &providerID, logger: testLogger()}

	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	bogota := provider.StationRef{Name: "Bogota Station", City: "Bogota"}
	cands := []provider.Candidate{
		{Station: bogota, Pollutant: aqi.NO2, Timestamp: ts, Value: 40, Unit: "ppb"},
		{Station: bogota, Pollutant: "NH3", Timestamp: ts, Value: 4, Unit: "µg/m³"},
		{Station: bogota, Pollutant: aqi.PM25, Timestamp: ts, Value: 10, Unit: "furlongs"},
		{Station: bogota, Pollutant: aqi.PM10, Timestamp: ts, Value: -3, Unit: "µg/m³"},
		{Station: provider.StationRef{Name: "Pasto Station", City: "Pasto"}, Pollutant: aqi.PM25, Timestamp: ts, Value: 5, Unit: "µg/m³"},
	}

	readings, stats, err := n.Normalize(context.Background(), []byte(`{}`), cands)
	require.NoError(t, err)

	assert.Equal(t, NormalizeStats{Candidates: 5, Unresolved: 1, UnknownPollutant: 1, Invalid: 2}, stats)
	assert.Equal(t, 4, stats.Dropped())
	require.Len(t, readings, 1)
	assert.InDelta(t, 75.2, readings[0].Value, 1e-9)
	assert.Equal(t, aqi.Index(aqi.NO2, 75.2), readings[0].AQI)
	assert.Equal(t, &providerID, readings[0].ProviderID)
}

func TestClampIndex(t *testing.T) {
	assert.Equal(t, 0, clampIndex(-4))
	assert.Equal(t, 151, clampIndex(151))
	assert.Equal(t, aqi.MaxIndex, clampIndex(999))
}
