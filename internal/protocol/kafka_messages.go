package protocol

import (
	"encoding/json"
	"time"
)

// Ingestion log statuses
const (
	IngestionSuccess            = "success"
	IngestionFailed             = "failed"
	IngestionNormalizationError = "normalization_error"
)

// MaxRecordSample bounds the raw record attached to normalization errors
const MaxRecordSample = 500

// IngestionLogEntry is the audit record published once per provider per
// run, and once per payload that failed normalization
type IngestionLogEntry struct {
	RunID          string    `json:"run_id"`
	Timestamp      time.Time `json:"timestamp"`
	Provider       string    `json:"provider"`
	Status         string    `json:"status"`
	RecordsFetched int       `json:"records_fetched"`
	Saved          int       `json:"saved,omitempty"`
	Duplicates     int       `json:"duplicates,omitempty"`
	Error          string    `json:"error,omitempty"`
	RecordSample   string    `json:"record_sample,omitempty"`
}

// SampleRecord truncates raw to MaxRecordSample bytes
func SampleRecord(raw []byte) string {
	if len(raw) <= MaxRecordSample {
		return string(raw)
	}
	return string(raw[:MaxRecordSample])
}

// AlertNotification is the in-app feed message for a triggered alert
type AlertNotification struct {
	Type          string    `json:"type"` // ALERT_TRIGGERED
	AlertID       int64     `json:"alert_id"`
	UserID        int64     `json:"user_id"`
	UserName      string    `json:"user_name,omitempty"`
	StationName   string    `json:"station_name"`
	PollutantName string    `json:"pollutant_name"`
	Condition     string    `json:"condition"`
	Threshold     float64   `json:"threshold"`
	Value         float64   `json:"value"`
	AQI           int       `json:"aqi"`
	Category      string    `json:"category"`
	RecordedAt    time.Time `json:"recorded_at"`
	SentAt        time.Time `json:"sent_at"`
}

const AlertTypeTriggered = "ALERT_TRIGGERED"

// EncodeIngestionLogEntry encodes an IngestionLogEntry to JSON
func EncodeIngestionLogEntry(e *IngestionLogEntry) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeIngestionLogEntry decodes JSON to IngestionLogEntry
func DecodeIngestionLogEntry(data []byte) (*IngestionLogEntry, error) {
	var e IngestionLogEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// EncodeAlertNotification encodes an AlertNotification to JSON
func EncodeAlertNotification(n *AlertNotification) ([]byte, error) {
	return json.Marshal(n)
}

// DecodeAlertNotification decodes JSON to AlertNotification
func DecodeAlertNotification(data []byte) (*AlertNotification, error) {
	var n AlertNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
