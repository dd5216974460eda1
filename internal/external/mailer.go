package external

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

type EmailConfig struct {
	APIKey string `envconfig:"API_KEY"`
	From   string `envconfig:"FROM" default:"PitchUp <onboarding@resend.dev>"`
	AppURL string `ignored:"true"`
}

// BookingConfirmation is what the confirmation email shows.
type BookingConfirmation struct {
	VenueName string
	Date      string
	Time      string
	Price     string
	Reference string
}

type emailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type Mailer struct {
	emails emailSender
	from   string
	appURL string
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`
<div style="font-family: sans-serif; color: #333;">
  <h1>You're all set!</h1>
  <p>Your booking at <strong>{{.VenueName}}</strong> has been confirmed.</p>
  <div style="background: #f4f4f5; padding: 20px; border-radius: 12px; margin: 20px 0;">
    <p><strong>Date:</strong> {{.Date}}</p>
    <p><strong>Time:</strong> {{.Time}}</p>
    <p><strong>Price:</strong> {{.Price}}</p>
    <p><strong>Reference:</strong> {{.Reference}}</p>
  </div>
  <p>Please arrive 10 minutes early. Have a great game!</p>
  <a href="{{.BookingsURL}}">View My Bookings</a>
</div>`))

// NewMailer returns a mailer that only logs when no API key is configured.
func NewMailer(cfg EmailConfig) *Mailer {
	m := &Mailer{from: cfg.From, appURL: cfg.AppURL}
	if cfg.APIKey != "" {
		m.emails = resend.NewClient(cfg.APIKey).Emails
	}
	return m
}

func (m *Mailer) Enabled() bool {
	return m.emails != nil
}

func (m *Mailer) SendBookingConfirmation(ctx context.Context, to string, details BookingConfirmation) error {
	if !m.Enabled() {
		slog.InfoContext(ctx, "Email API key missing, skipping confirmation email",
			"to", to, "venue", details.VenueName, "reference", details.Reference)
		return nil
	}

	html, err := renderConfirmation(details, m.appURL+"/bookings")
	if err != nil {
		return fmt.Errorf("failed to render confirmation email: %w", err)
	}

	sent, err := m.emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: fmt.Sprintf("Booking Confirmed: %s", details.VenueName),
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	slog.InfoContext(ctx, "Confirmation email sent", "to", to, "email_id", sent.Id, "reference", details.Reference)
	return nil
}

func renderConfirmation(details BookingConfirmation, bookingsURL string) (string, error) {
	var buf bytes.Buffer
	err := confirmationTemplate.Execute(&buf, struct {
		BookingConfirmation
		BookingsURL string
	}{details, bookingsURL})
	return buf.String(), err
}
