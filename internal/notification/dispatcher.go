package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/smukkama/airquality-server/internal/observability"
)

// Result reports per-channel delivery of one dispatch
type Result struct {
	Attempted []string
	Delivered []string
	Errors    map[string]error
}

// OK reports whether at least one channel delivered the alert
func (r Result) OK() bool {
	return len(r.Delivered) > 0
}

// Dispatcher routes an alert to the channels its notification method names
type Dispatcher struct {
	senders map[string]Sender
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. Channels without a sender are reported
// as ErrChannelDisabled when selected.
func NewDispatcher(senders map[string]Sender, metrics *observability.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		senders: senders,
		metrics: metrics,
		logger:  logger.With("component", "notification"),
	}
}

// Channels expands a notification method into channel names
func Channels(method string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case ChannelTelegram:
		return []string{ChannelTelegram}, nil
	case ChannelEmail:
		return []string{ChannelEmail}, nil
	case ChannelInApp, "in_app", "inapp":
		return []string{ChannelInApp}, nil
	case MethodAll:
		return []string{ChannelTelegram, ChannelEmail, ChannelInApp}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

// Dispatch sends the alert over every channel of method. Each channel is
// attempted regardless of the others failing.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, alert AlertDetails, reading ReadingDetails) Result {
	res := Result{Errors: map[string]error{}}

	channels, err := Channels(method)
	if err != nil {
		d.logger.Warn("unknown notification method", "alert_id", alert.AlertID, "method", method)
		res.Errors[method] = err
		return res
	}

	for _, ch := range channels {
		res.Attempted = append(res.Attempted, ch)

		sender, ok := d.senders[ch]
		if !ok || sender == nil {
			err = ErrChannelDisabled
		} else {
			err = sender.SendAlert(ctx, alert, reading)
		}

		if err != nil {
			res.Errors[ch] = err
			d.metrics.Notifications.WithLabelValues(ch, "error").Inc()
			d.logger.Warn("notification failed", "alert_id", alert.AlertID, "channel", ch, "error", err)
			continue
		}
		res.Delivered = append(res.Delivered, ch)
		d.metrics.Notifications.WithLabelValues(ch, "success").Inc()
		d.logger.Info("notification sent",
			"alert_id", alert.AlertID, "channel", ch,
			"station", alert.StationName, "pollutant", alert.PollutantName)
	}
	return res
}
