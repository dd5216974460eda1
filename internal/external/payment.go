package external

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "pitchup/internal/errors"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Correlation metadata keys attached to every checkout session.
const (
	MetadataSlotID = "slotId"
	MetadataUserID = "userId"
)

// The provider rejects session expiries less than 30 minutes away.
const minSessionLifetime = 31 * time.Minute

// EventCheckoutCompleted is the only provider event that finalizes a booking.
const EventCheckoutCompleted = "checkout.session.completed"

type PaymentClient struct {
	api           *client.API
	webhookSecret string
	currency      string
	successURL    string
	cancelURL     string
}

type PaymentConfig struct {
	SecretKey     string `envconfig:"SECRET_KEY"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	Currency      string `envconfig:"CURRENCY" default:"eur"`
	SuccessURL    string `envconfig:"SUCCESS_URL"`
	CancelURL     string `envconfig:"CANCEL_URL"`
}

// SessionRequest describes one hosted checkout for a single slot.
type SessionRequest struct {
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
	ExpiresAt   time.Time
	ReferenceID string
}

type Session struct {
	ID  string
	URL string
}

// PaymentEvent is the verified subset of a provider event the booking flow needs.
type PaymentEvent struct {
	ID            string
	Type          string
	SessionID     string
	SlotID        string
	UserID        string
	Amount        int64
	Currency      string
	CustomerEmail string
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	return &PaymentClient{
		api:           client.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
		currency:      cfg.Currency,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

// Currency is the default settlement currency for new sessions.
func (pc *PaymentClient) Currency() string {
	return pc.currency
}

func (pc *PaymentClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := pc.sessionParams(req)
	params.Context = ctx

	s, err := pc.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", apperrors.ErrUpstream, err)
	}

	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (pc *PaymentClient) sessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	currency := req.Currency
	if currency == "" {
		currency = pc.currency
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(req.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(pc.successURL),
		CancelURL:  stripe.String(pc.cancelURL),
	}

	if !req.ExpiresAt.IsZero() {
		expires := req.ExpiresAt
		if earliest := time.Now().Add(minSessionLifetime); expires.Before(earliest) {
			expires = earliest
		}
		params.ExpiresAt = stripe.Int64(expires.Unix())
	}
	if req.ReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ReferenceID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	return params
}

// VerifyAndParse checks the signature header against the raw payload before
// decoding anything from it. Signature failures wrap ErrInvalidSignature; a
// verified payload that is not an event wraps ErrMalformedEvent.
func (pc *PaymentClient) VerifyAndParse(payload []byte, signature string) (*PaymentEvent, error) {
	if pc.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret is not configured", apperrors.ErrInvalidSignature)
	}

	if err := webhook.ValidatePayload(payload, signature, pc.webhookSecret); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedEvent, err)
	}

	result := &PaymentEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if result.Type != EventCheckoutCompleted || event.Data == nil {
		return result, nil
	}

	// An undecodable object is returned without correlation data.
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return result, nil
	}

	result.SessionID = session.ID
	result.SlotID = session.Metadata[MetadataSlotID]
	result.UserID = session.Metadata[MetadataUserID]
	result.Amount = session.AmountTotal
	result.Currency = string(session.Currency)
	if session.CustomerDetails != nil {
		result.CustomerEmail = session.CustomerDetails.Email
	}

	return result, nil
}
