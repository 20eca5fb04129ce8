package notification

import (
	"context"
	"strconv"
	"time"

	"github.com/smukkama/airquality-server/internal/aqi"
	"github.com/smukkama/airquality-server/internal/protocol"
	"github.com/smukkama/airquality-server/internal/queue"
)

// InAppSender publishes alerts to the in-app notification feed topic,
// keyed by user so one user's feed stays ordered.
type InAppSender struct {
	publisher queue.Publisher
	now       func() time.Time
}

func NewInAppSender(p queue.Publisher) *InAppSender {
	return &InAppSender{publisher: p, now: time.Now}
}

func (s *InAppSender) SendAlert(ctx context.Context, alert AlertDetails, reading ReadingDetails) error {
	if s.publisher == nil {
		return ErrChannelDisabled
	}
	msg := &protocol.AlertNotification{
		Type:          protocol.AlertTypeTriggered,
		AlertID:       alert.AlertID,
		UserID:        alert.UserID,
		UserName:      alert.UserName,
		StationName:   alert.StationName,
		PollutantName: alert.PollutantName,
		Condition:     alert.Condition,
		Threshold:     alert.Threshold,
		Value:         reading.Value,
		AQI:           reading.AQI,
		Category:      aqi.Category(reading.AQI),
		RecordedAt:    reading.Timestamp.UTC(),
		SentAt:        s.now().UTC(),
	}
	value, err := protocol.EncodeAlertNotification(msg)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, strconv.FormatInt(alert.UserID, 10), value)
}
