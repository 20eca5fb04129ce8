package ingestion

import (
	"context"
	"log/slog"
	"math"

	"github.com/smukkama/airquality-server/internal/aqi"
	"github.com/smukkama/airquality-server/internal/database"
	"github.com/smukkama/airquality-server/internal/provider"
)

// NormalizeStats counts candidates dropped before storage
type NormalizeStats struct {
	Candidates       int `json:"candidates"`
	Unresolved       int `json:"unresolved"`
	UnknownPollutant int `json:"unknown_pollutant"`
	Invalid          int `json:"invalid"`
}

func (s *NormalizeStats) add(o NormalizeStats) {
	s.Candidates += o.Candidates
	s.Unresolved += o.Unresolved
	s.UnknownPollutant += o.UnknownPollutant
	s.Invalid += o.Invalid
}

// Dropped is the number of candidates that did not become readings
func (s NormalizeStats) Dropped() int {
	return s.Unresolved + s.UnknownPollutant + s.Invalid
}

// normalizer turns candidates into canonical readings for one provider batch
type normalizer struct {
	lookup     *provider.Lookup
	providerID *int64
	logger     *slog.Logger
}

// Normalize converts the candidates of one payload. raw is stored on every
// resulting reading. Only a lost database session is returned as an error;
// every other problem drops the candidate and is counted.
func (n *normalizer) Normalize(ctx context.Context, raw []byte, cands []provider.Candidate) ([]database.Reading, NormalizeStats, error) {
	stats := NormalizeStats{Candidates: len(cands)}
	readings := make([]database.Reading, 0, len(cands))

	for _, c := range cands {
		pollutantID, ok := n.lookup.PollutantID(c.Pollutant)
		if !ok {
			stats.UnknownPollutant++
			n.logger.Debug("unknown pollutant", "pollutant", c.Pollutant, "station", c.Station.Name)
			continue
		}

		value, err := aqi.Canonicalize(c.Pollutant, c.Value, c.Unit)
		if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			stats.Invalid++
			n.logger.Warn("invalid measurement",
				"pollutant", c.Pollutant, "value", c.Value, "unit", c.Unit, "error", err)
			continue
		}

		stationID, found, err := n.lookup.StationID(ctx, c.Station, n.providerID)
		if err != nil {
			if ctx.Err() != nil || database.IsConnectionError(err) {
				return nil, stats, err
			}
			stats.Invalid++
			n.logger.Error("station lookup failed", "station", c.Station.Name, "city", c.Station.City, "error", err)
			continue
		}
		if !found {
			stats.Unresolved++
			n.logger.Debug("unknown station", "station", c.Station.Name, "city", c.Station.City)
			continue
		}

		index := aqi.Index(c.Pollutant, value)
		if c.ReportedAQI != nil {
			index = clampIndex(*c.ReportedAQI)
		}

		readings = append(readings, database.Reading{
			StationID:   stationID,
			PollutantID: pollutantID,
			ProviderID:  n.providerID,
			Timestamp:   c.Timestamp.UTC(),
			Value:       value,
			AQI:         index,
			RawPayload:  raw,
		})
	}
	return readings, stats, nil
}

func clampIndex(i int) int {
	return max(0, min(i, aqi.MaxIndex))
}
