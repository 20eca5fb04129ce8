package provider

import (
	"context"
	"fmt"

	"github.com/smukkama/airquality-server/internal/database"
)

// CatalogSource is the part of the store the lookup reads from
type CatalogSource interface {
	ListPollutants(ctx context.Context) ([]*database.Pollutant, error)
	ListStations(ctx context.Context) ([]*database.Station, error)
	CreateStation(ctx context.Context, s *database.Station) error
}

// Lookup is a read-through cache of pollutant and station ids, built at the
// start of one normalization batch and discarded afterwards. It is not safe
// for concurrent use.
type Lookup struct {
	source     CatalogSource
	autoCreate bool
	pollutants map[string]int64
	stations   map[StationKey]int64
}

// NewLookup loads the pollutant and station catalogs. When autoCreate is set
// unknown stations are created on first sight instead of being reported as
// missing.
func NewLookup(ctx context.Context, source CatalogSource, autoCreate bool) (*Lookup, error) {
	pollutants, err := source.ListPollutants(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pollutants: %w", err)
	}
	stations, err := source.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}

	l := &Lookup{
		source:     source,
		autoCreate: autoCreate,
		pollutants: make(map[string]int64, len(pollutants)),
		stations:   make(map[StationKey]int64, len(stations)),
	}
	for _, p := range pollutants {
		l.pollutants[p.Name] = p.ID
	}
	for _, s := range stations {
		l.stations[StationKey{Name: s.Name, City: s.City}] = s.ID
	}
	return l, nil
}

// PollutantID returns the id of a canonical pollutant name
func (l *Lookup) PollutantID(name string) (int64, bool) {
	id, ok := l.pollutants[name]
	return id, ok
}

// StationID resolves ref to a station id. found is false when the station
// is unknown and auto-creation is off.
func (l *Lookup) StationID(ctx context.Context, ref StationRef, providerID *int64) (id int64, found bool, err error) {
	key := ref.Key()
	if id, ok := l.stations[key]; ok {
		return id, true, nil
	}
	if !l.autoCreate {
		return 0, false, nil
	}

	st := &database.Station{
		Name:       ref.Name,
		City:       ref.City,
		Country:    ref.Country,
		Latitude:   ref.Latitude,
		Longitude:  ref.Longitude,
		ProviderID: providerID,
	}
	if err := l.source.CreateStation(ctx, st); err != nil {
		return 0, false, fmt.Errorf("create station %s/%s: %w", ref.Name, ref.City, err)
	}
	l.stations[key] = st.ID
	return st.ID, true, nil
}
