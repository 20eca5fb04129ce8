package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StationRef identifies a station by (Name, City). The geolocation is only
// used when the station has to be created.
type StationRef struct {
	Name      string
	City      string
	Country   string
	Latitude  float64
	Longitude float64
}

// Key returns the lookup key for the station
func (s StationRef) Key() StationKey {
	return StationKey{Name: s.Name, City: s.City}
}

// StationKey is the identity of a station
type StationKey struct {
	Name string
	City string
}

// Payload is one document fetched from a provider
type Payload struct {
	Data map[string]any
	Raw  []byte
	// Station is the configured identity for providers whose payload carries
	// no location.
	Station *StationRef
}

// Candidate is a reading extracted from a payload, still in provider units
type Candidate struct {
	Station   StationRef
	Pollutant string
	Timestamp time.Time // UTC
	Value     float64
	Unit      string
	// ReportedAQI is set when the source reports the index itself and the
	// concentration was estimated from it.
	ReportedAQI *int
}

// DecodePayload parses a JSON document into a Payload
func DecodePayload(raw []byte, station *StationRef) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	if data == nil {
		return Payload{}, fmt.Errorf("%w: empty document", ErrUnrecognizedPayload)
	}
	return Payload{Data: data, Raw: raw, Station: station}, nil
}

func object(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key].(map[string]any)
	return v, ok
}

func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func number(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// pair reads a two-element numeric array such as a coordinate
func pair(m map[string]any, key string) (float64, float64, bool) {
	arr, ok := m[key].([]any)
	if !ok || len(arr) < 2 {
		return 0, 0, false
	}
	a, okA := toFloat(arr[0])
	b, okB := toFloat(arr[1])
	return a, b, okA && okB
}
