package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smukkama/airquality-server/internal/provider"
)

// ProviderConfig is one entry of the providers file. Kind is resolved while
// loading, from the explicit kind or else from the name.
type ProviderConfig struct {
	Name     string         `yaml:"name"`
	KindName string         `yaml:"kind"`
	Endpoint string         `yaml:"endpoint"`
	Interval time.Duration  `yaml:"interval"`
	Targets  []TargetConfig `yaml:"targets"`

	Kind provider.Kind `yaml:"-"`
}

type TargetConfig struct {
	Path    string            `yaml:"path"`
	Query   map[string]string `yaml:"query"`
	Station *StationConfig    `yaml:"station"`
}

type StationConfig struct {
	Name      string  `yaml:"name"`
	City      string  `yaml:"city"`
	Country   string  `yaml:"country"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

type providersFile struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// LoadProviders reads the providers file at path. A missing file yields
// DefaultProviders.
func LoadProviders(path string) ([]ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultProviders(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}
	return ParseProviders(data)
}

// ParseProviders decodes a providers document and resolves each kind
func ParseProviders(data []byte) ([]ProviderConfig, error) {
	var file providersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse providers file: %w", err)
	}

	for i := range file.Providers {
		p := &file.Providers[i]
		if p.Name == "" {
			return nil, fmt.Errorf("provider #%d has no name", i+1)
		}
		if p.Endpoint == "" {
			return nil, fmt.Errorf("provider %q has no endpoint", p.Name)
		}
		if p.Interval <= 0 {
			p.Interval = 60 * time.Minute
		}
		kind, err := provider.ResolveKind(p.KindName, p.Name)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", p.Name, err)
		}
		p.Kind = kind
	}
	return file.Providers, nil
}

// Source converts the entry into the fetcher's representation
func (p ProviderConfig) Source() provider.Source {
	src := provider.Source{
		Name:     p.Name,
		Kind:     p.Kind,
		Endpoint: p.Endpoint,
		Interval: p.Interval,
	}
	for _, t := range p.Targets {
		target := provider.Target{Path: t.Path}
		if len(t.Query) > 0 {
			target.Query = url.Values{}
			for k, v := range t.Query {
				target.Query.Set(k, v)
			}
		}
		if t.Station != nil {
			target.Station = &provider.StationRef{
				Name:      t.Station.Name,
				City:      t.Station.City,
				Country:   t.Station.Country,
				Latitude:  t.Station.Latitude,
				Longitude: t.Station.Longitude,
			}
		}
		src.Targets = append(src.Targets, target)
	}
	return src
}

// DefaultProviders are the three mock providers used when no file is present
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Name:     "AQICN Mock",
			Endpoint: "https://api.waqi.info/feed/",
			Interval: 30 * time.Minute,
			Kind:     provider.KindAQICN,
			Targets: []TargetConfig{
				{Path: "bogota/"}, {Path: "medellin/"}, {Path: "cali/"},
				{Path: "barranquilla/"}, {Path: "cartagena/"},
			},
		},
		{
			Name:     "Google Air Quality Mock",
			Endpoint: "https://airquality.googleapis.com/v1/currentConditions:lookup",
			Interval: 30 * time.Minute,
			Kind:     provider.KindGoogle,
			Targets: []TargetConfig{
				{
					Query:   map[string]string{"latitude": "4.6097", "longitude": "-74.0817"},
					Station: &StationConfig{Name: "Bogota Google Station", City: "Bogota", Country: "Colombia", Latitude: 4.6097, Longitude: -74.0817},
				},
				{
					Query:   map[string]string{"latitude": "6.2442", "longitude": "-75.5812"},
					Station: &StationConfig{Name: "Medellin Google Station", City: "Medellin", Country: "Colombia", Latitude: 6.2442, Longitude: -75.5812},
				},
			},
		},
		{
			Name:     "IQAir Mock",
			Endpoint: "https://api.airvisual.com/v2/city",
			Interval: 60 * time.Minute,
			Kind:     provider.KindIQAir,
			Targets: []TargetConfig{
				{Query: map[string]string{"city": "Bogota", "state": "Bogota D.C.", "country": "Colombia"}},
				{Query: map[string]string{"city": "Medellin", "state": "Antioquia", "country": "Colombia"}},
			},
		},
	}
}
