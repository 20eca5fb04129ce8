package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/smukkama/airquality-server/internal/aqi"
	"github.com/smukkama/airquality-server/pkg/config"
)

var emailTemplate = template.Must(template.New("alert").Parse(`
Air Quality Alert
=================

Hello {{.UserName}},

Station: {{.StationName}}{{if .StationCity}} ({{.StationCity}}){{end}}
Pollutant: {{.PollutantName}}
Current Value: {{printf "%.2f" .Value}} µg/m³
AQI: {{.AQI}} ({{.Category}})
Alert Condition: {{.Condition}} {{.Threshold}}
Measured At: {{.Timestamp}}

Recommendation:
{{.Advice}}

---
Air Quality Monitor
`))

type emailView struct {
	AlertDetails
	ReadingDetails
	Category string
	Advice   string
}

// EmailSender sends alerts to the alert owner's address over SMTP
type EmailSender struct {
	config   config.SMTPConfig
	sendMail func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now      func() time.Time
}

// NewEmailSender creates a new email sender
func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	e := &EmailSender{config: cfg, now: time.Now}
	e.sendMail = e.deliver
	return e
}

// headerSafe keeps untrusted values from starting a new header line
var headerSafe = strings.NewReplacer("\r", " ", "\n", " ")

// SendAlert renders and sends the alert email. The SMTP exchange is bounded
// by ctx and the configured timeout.
func (e *EmailSender) SendAlert(ctx context.Context, alert AlertDetails, reading ReadingDetails) error {
	if !e.config.Enabled() {
		return ErrChannelDisabled
	}
	if alert.UserEmail == "" {
		return fmt.Errorf("alert %d has no recipient address", alert.AlertID)
	}
	if strings.ContainsAny(alert.UserEmail, "\r\n") {
		return fmt.Errorf("alert %d has an invalid recipient address", alert.AlertID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := renderEmail(alert, reading)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	subject := fmt.Sprintf("Air quality alert: %s at %s", alert.PollutantName, alert.StationName)

	message := fmt.Sprintf("From: %s\r\n", headerSafe.Replace(e.config.From))
	message += fmt.Sprintf("To: %s\r\n", alert.UserEmail)
	message += fmt.Sprintf("Subject: %s\r\n", headerSafe.Replace(subject))
	message += fmt.Sprintf("Date: %s\r\n", e.now().Format(time.RFC1123Z))
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n"
	message += body

	var auth smtp.Auth
	if e.config.Username != "" {
		auth = smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	}

	addr := net.JoinHostPort(e.config.Host, strconv.Itoa(e.config.Port))
	if err := e.sendMail(ctx, addr, auth, e.config.From, []string{alert.UserEmail}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// deliver is smtp.SendMail with the connection deadline taken from ctx
func (e *EmailSender) deliver(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// cancellation without a deadline still unblocks pending reads
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	err = smtpExchange(conn, e.config.Host, a, from, to, msg)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	case errors.Is(err, os.ErrDeadlineExceeded):
		// the conn deadline can fire just before ctx's own timer
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func smtpExchange(conn net.Conn, host string, a smtp.Auth, from string, to []string, msg []byte) error {
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := c.Rcpt(addr); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func renderEmail(alert AlertDetails, reading ReadingDetails) (string, error) {
	view := emailView{
		AlertDetails:   alert,
		ReadingDetails: reading,
		Category:       aqi.Category(reading.AQI),
		Advice:         aqi.HealthAdvice(reading.AQI),
	}
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
