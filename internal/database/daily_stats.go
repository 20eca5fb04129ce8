package database

import (
	"context"
)

// UpsertDailyStat writes the rollup for (station, pollutant, date), replacing
// any earlier values. created reports whether a new row was inserted.
func (db *DB) UpsertDailyStat(ctx context.Context, s *DailyStat) (created bool, err error) {
	query := `
		INSERT INTO daily_stats (
			station_id, pollutant_id, date, avg_value, avg_aqi, max_aqi, min_aqi, readings_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (station_id, pollutant_id, date) DO UPDATE
		SET avg_value = EXCLUDED.avg_value,
		    avg_aqi = EXCLUDED.avg_aqi,
		    max_aqi = EXCLUDED.max_aqi,
		    min_aqi = EXCLUDED.min_aqi,
		    readings_count = EXCLUDED.readings_count,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING id, (xmax = 0) AS inserted
	`

	err = db.QueryRowContext(ctx, query,
		s.StationID,
		s.PollutantID,
		s.Date.Format("2006-01-02"),
		s.AvgValue,
		s.AvgAQI,
		s.MaxAQI,
		s.MinAQI,
		s.ReadingsCount,
	).Scan(&s.ID, &created)

	return created, err
}
