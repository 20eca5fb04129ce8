// Package notification delivers triggered alerts over Telegram, email and
// the in-app Kafka feed.
package notification

import (
	"context"
	"errors"
	"time"
)

// Channel names as stored in alerts.notification_method
const (
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
	ChannelInApp    = "in-app"
	MethodAll       = "all"
)

var (
	// ErrChannelDisabled is returned by senders missing credentials
	ErrChannelDisabled = errors.New("notification channel not configured")
	ErrUnknownMethod   = errors.New("unknown notification method")
)

// AlertDetails describes the alert that fired
type AlertDetails struct {
	AlertID       int64
	UserID        int64
	UserName      string
	UserEmail     string
	StationName   string
	StationCity   string
	PollutantName string
	Threshold     float64
	Condition     string
}

// ReadingDetails is the reading that met the condition
type ReadingDetails struct {
	Value     float64
	AQI       int
	Timestamp time.Time
}

// Sender delivers an alert over one channel. A nil error means delivered.
type Sender interface {
	SendAlert(ctx context.Context, alert AlertDetails, reading ReadingDetails) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, alert AlertDetails, reading ReadingDetails) error

func (f SenderFunc) SendAlert(ctx context.Context, alert AlertDetails, reading ReadingDetails) error {
	return f(ctx, alert, reading)
}
