package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/smukkama/airquality-server/internal/aqi"
	"github.com/smukkama/airquality-server/pkg/config"
)

// TelegramSender posts alerts to a chat through the Bot API sendMessage
// method.
type TelegramSender struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

// NewTelegramSender creates a Telegram sender whose requests give up after
// cfg.Timeout
func NewTelegramSender(cfg config.TelegramConfig) *TelegramSender {
	return &TelegramSender{
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *TelegramSender) SendAlert(ctx context.Context, alert AlertDetails, reading ReadingDetails) error {
	if t.token == "" || t.chatID == "" {
		return ErrChannelDisabled
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      FormatTelegramMessage(alert, reading),
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", stripURL(err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out sendMessageResponse
	if err := json.Unmarshal(body, &out); err != nil || resp.StatusCode != http.StatusOK || !out.OK {
		desc := out.Description
		if desc == "" {
			desc = string(body)
		}
		return fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, desc)
	}
	return nil
}

// FormatTelegramMessage renders the HTML message body for an alert
func FormatTelegramMessage(alert AlertDetails, reading ReadingDetails) string {
	esc := html.EscapeString
	var b strings.Builder

	fmt.Fprintf(&b, "<b>AIR QUALITY ALERT</b>\n\n")
	fmt.Fprintf(&b, "<b>Station:</b> %s\n", esc(alert.StationName))
	fmt.Fprintf(&b, "<b>Pollutant:</b> %s\n\n", esc(alert.PollutantName))
	fmt.Fprintf(&b, "<b>Current values:</b>\n")
	fmt.Fprintf(&b, "• Concentration: %.2f\n", reading.Value)
	fmt.Fprintf(&b, "• AQI: %d\n", reading.AQI)
	fmt.Fprintf(&b, "• Threshold: %g\n", alert.Threshold)
	fmt.Fprintf(&b, "• Condition: %s\n\n", esc(alert.Condition))
	fmt.Fprintf(&b, "<b>Level:</b> %s\n", esc(aqi.Category(reading.AQI)))
	fmt.Fprintf(&b, "<b>Time:</b> %s\n\n", reading.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "<b>Recommendation:</b>\n%s", esc(aqi.HealthAdvice(reading.AQI)))
	return b.String()
}

// stripURL drops the request URL, which carries the bot token, from
// transport errors.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}
