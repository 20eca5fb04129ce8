package ingestion

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/smukkama/airquality-server/internal/database"
	"github.com/smukkama/airquality-server/internal/protocol"
	"github.com/smukkama/airquality-server/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type readingKey struct {
	station, pollutant int64
	ts                 time.Time
}

// memStore enforces the reading uniqueness key in memory
type memStore struct {
	mu         sync.Mutex
	pollutants []*database.Pollutant
	stations   []*database.Station
	providers  map[string]int64
	readings   map[readingKey]database.Reading
	nextID     int64

	pingErr   error
	insertErr func(r *database.Reading) error
}

func newMemStore() *memStore {
	return &memStore{
		pollutants: []*database.Pollutant{
			{ID: 1, Name: "PM2.5"}, {ID: 2, Name: "PM10"}, {ID: 3, Name: "O3"},
			{ID: 4, Name: "NO2"}, {ID: 5, Name: "SO2"}, {ID: 6, Name: "CO"},
		},
		stations: []*database.Station{
			{ID: 10, Name: "Bogota Station", City: "Bogota"},
			{ID: 11, Name: "Medellin IQAir Station", City: "Medellin"},
		},
		providers: map[string]int64{},
		readings:  map[readingKey]database.Reading{},
		nextID:    100,
	}
}

func (m *memStore) PingContext(context.Context) error { return m.pingErr }

func (m *memStore) EnsureProvider(_ context.Context, p *database.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.providers[p.Name]; ok {
		p.ID = id
		return nil
	}
	m.nextID++
	p.ID = m.nextID
	m.providers[p.Name] = p.ID
	return nil
}

func (m *memStore) ListPollutants(context.Context) ([]*database.Pollutant, error) {
	return m.pollutants, nil
}

func (m *memStore) ListStations(context.Context) ([]*database.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*database.Station(nil), m.stations...), nil
}

func (m *memStore) CreateStation(_ context.Context, s *database.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.stations {
		if existing.Name == s.Name && existing.City == s.City {
			s.ID = existing.ID
			return nil
		}
	}
	m.nextID++
	s.ID = m.nextID
	m.stations = append(m.stations, s)
	return nil
}

func (m *memStore) InsertReading(ctx context.Context, r *database.Reading) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if m.insertErr != nil {
		if err := m.insertErr(r); err != nil {
			return false, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := readingKey{r.StationID, r.PollutantID, r.Timestamp.UTC()}
	if _, ok := m.readings[key]; ok {
		return false, nil
	}
	m.nextID++
	r.ID = m.nextID
	m.readings[key] = *r
	return true, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.readings)
}

func (m *memStore) all() []database.Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.Reading, 0, len(m.readings))
	for _, r := range m.readings {
		out = append(out, r)
	}
	return out
}

// staticFetcher serves canned documents per provider name
type staticFetcher struct {
	docs map[string][]string
	errs map[string]error
}

func (f *staticFetcher) Fetch(_ context.Context, src provider.Source) ([]provider.Payload, error) {
	var out []provider.Payload
	for i, doc := range f.docs[src.Name] {
		var station *provider.StationRef
		if i < len(src.Targets) {
			station = src.Targets[i].Station
		}
		p, err := provider.DecodePayload([]byte(doc), station)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, f.errs[src.Name]
}

type memAudit struct {
	mu      sync.Mutex
	entries []protocol.IngestionLogEntry
}

func (a *memAudit) Record(_ context.Context, e protocol.IngestionLogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *memAudit) byStatus(status string) []protocol.IngestionLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []protocol.IngestionLogEntry
	for _, e := range a.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

var errBadConn = errors.Join(errors.New("connection reset"), driver.ErrBadConn)
