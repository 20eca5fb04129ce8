package database

import (
	"context"
	"database/sql"
)

// EnsureProvider inserts the provider or refreshes its kind, endpoint and
// interval, filling in p.ID either way.
func (db *DB) EnsureProvider(ctx context.Context, p *Provider) error {
	query := `
		INSERT INTO providers (name, kind, api_endpoint, ingestion_frequency_minutes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET kind = EXCLUDED.kind,
		    api_endpoint = EXCLUDED.api_endpoint,
		    ingestion_frequency_minutes = EXCLUDED.ingestion_frequency_minutes
		RETURNING id, created_at
	`
	return db.QueryRowContext(ctx, query, p.Name, p.Kind, p.Endpoint, p.IntervalMinutes).
		Scan(&p.ID, &p.CreatedAt)
}

// ListPollutants returns the pollutant catalog
func (db *DB) ListPollutants(ctx context.Context) ([]*Pollutant, error) {
	query := `
		SELECT id, name, unit, COALESCE(description, '')
		FROM pollutants
		ORDER BY id
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pollutants []*Pollutant
	for rows.Next() {
		var p Pollutant
		if err := rows.Scan(&p.ID, &p.Name, &p.Unit, &p.Description); err != nil {
			return nil, err
		}
		pollutants = append(pollutants, &p)
	}

	return pollutants, rows.Err()
}

const stationColumns = `id, name, city, country, latitude, longitude, region, provider_id, created_at`

func scanStation(row interface{ Scan(...any) error }) (*Station, error) {
	var (
		s          Station
		region     sql.NullString
		providerID sql.NullInt64
	)
	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.City,
		&s.Country,
		&s.Latitude,
		&s.Longitude,
		&region,
		&providerID,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	if region.Valid {
		s.Region = &region.String
	}
	if providerID.Valid {
		s.ProviderID = &providerID.Int64
	}
	return &s, nil
}

// ListStations returns every known station
func (db *DB) ListStations(ctx context.Context) ([]*Station, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+stationColumns+` FROM stations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []*Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}

	return stations, rows.Err()
}

// CreateStation inserts s, or returns the existing row's id if a station with
// the same (name, city) was created concurrently.
func (db *DB) CreateStation(ctx context.Context, s *Station) error {
	query := `
		INSERT INTO stations (name, city, country, latitude, longitude, region, provider_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name, city) DO UPDATE
		SET name = EXCLUDED.name
		RETURNING id, created_at
	`
	return db.QueryRowContext(ctx, query,
		s.Name,
		s.City,
		s.Country,
		s.Latitude,
		s.Longitude,
		s.Region,
		s.ProviderID,
	).Scan(&s.ID, &s.CreatedAt)
}
