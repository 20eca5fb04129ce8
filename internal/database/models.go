package database

import (
	"time"
)

// Provider is an external air-quality data source
type Provider struct {
	ID              int64
	Name            string
	Kind            string
	Endpoint        string
	IntervalMinutes int
	CreatedAt       time.Time
}

// Station is a monitoring location readings are attributed to
type Station struct {
	ID         int64
	Name       string
	City       string
	Country    string
	Latitude   float64
	Longitude  float64
	Region     *string
	ProviderID *int64
	CreatedAt  time.Time
}

// Pollutant is a catalog entry (PM2.5, NO2, ...)
type Pollutant struct {
	ID          int64
	Name        string
	Unit        string
	Description string
}

// Reading is one canonical measurement. (StationID, PollutantID, Timestamp)
// is unique.
type Reading struct {
	ID          int64
	StationID   int64
	PollutantID int64
	ProviderID  *int64
	Timestamp   time.Time
	Value       float64 // canonical unit
	AQI         int
	RawPayload  []byte // JSON
	CreatedAt   time.Time
}

// ReadingSample is the projection of a Reading used for aggregation
type ReadingSample struct {
	StationID   int64
	PollutantID int64
	Timestamp   time.Time
	Value       float64
	AQI         *int
}

// DailyStat is the per-day rollup for one station and pollutant
type DailyStat struct {
	ID            int64
	StationID     int64
	PollutantID   int64
	Date          time.Time
	AvgValue      *float64
	AvgAQI        *int
	MaxAQI        *int
	MinAQI        *int
	ReadingsCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Alert is a user-owned threshold rule
type Alert struct {
	ID                 int64
	UserID             int64
	StationID          int64
	PollutantID        int64
	Threshold          float64
	TriggerCondition   string
	NotificationMethod string
	IsActive           bool
	TriggeredAt        *time.Time
	CreatedAt          time.Time
}

// AlertRule is an Alert joined with the names needed to notify about it
type AlertRule struct {
	Alert
	StationName   string
	StationCity   string
	PollutantName string
	UserName      string
	UserEmail     string
}
