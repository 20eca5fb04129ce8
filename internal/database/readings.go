package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// InsertReading stores r unless a reading for the same station, pollutant
// and timestamp already exists. inserted is false for such duplicates.
func (db *DB) InsertReading(ctx context.Context, r *Reading) (inserted bool, err error) {
	query := `
		INSERT INTO readings (
			station_id, pollutant_id, provider_id, recorded_at, value, aqi, raw_payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT uq_reading DO NOTHING
		RETURNING id, created_at
	`

	var raw any
	if len(r.RawPayload) > 0 {
		raw = string(r.RawPayload)
	}

	err = db.QueryRowContext(ctx, query,
		r.StationID,
		r.PollutantID,
		r.ProviderID,
		r.Timestamp.UTC(),
		r.Value,
		r.AQI,
		raw,
	).Scan(&r.ID, &r.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) || IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LatestReading returns the newest reading for the station and pollutant
// recorded at or after since, or nil, nil if there is none.
func (db *DB) LatestReading(ctx context.Context, stationID, pollutantID int64, since time.Time) (*Reading, error) {
	query := `
		SELECT id, station_id, pollutant_id, recorded_at, value, COALESCE(aqi, 0), created_at
		FROM readings
		WHERE station_id = $1 AND pollutant_id = $2 AND recorded_at >= $3
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	var r Reading
	err := db.QueryRowContext(ctx, query, stationID, pollutantID, since.UTC()).Scan(
		&r.ID,
		&r.StationID,
		&r.PollutantID,
		&r.Timestamp,
		&r.Value,
		&r.AQI,
		&r.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// ReadingsBetween returns every reading with start <= recorded_at < end,
// ordered by station, pollutant and time.
func (db *DB) ReadingsBetween(ctx context.Context, start, end time.Time) ([]ReadingSample, error) {
	query := `
		SELECT station_id, pollutant_id, recorded_at, value, aqi
		FROM readings
		WHERE recorded_at >= $1 AND recorded_at < $2
		ORDER BY station_id, pollutant_id, recorded_at
	`

	rows, err := db.QueryContext(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []ReadingSample
	for rows.Next() {
		var (
			s   ReadingSample
			aqi sql.NullInt64
		)
		if err := rows.Scan(&s.StationID, &s.PollutantID, &s.Timestamp, &s.Value, &aqi); err != nil {
			return nil, err
		}
		if aqi.Valid {
			v := int(aqi.Int64)
			s.AQI = &v
		}
		samples = append(samples, s)
	}

	return samples, rows.Err()
}
