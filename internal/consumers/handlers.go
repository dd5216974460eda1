package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"pitchup/internal/external"
	"pitchup/internal/metrics"
	"pitchup/internal/models"

	"github.com/nats-io/stan.go"
)

type SlotReader interface {
	GetByID(ctx context.Context, id string) (*models.Slot, error)
}

type VenueReader interface {
	GetByID(ctx context.Context, id string) (*models.Venue, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type Notifier interface {
	SendBookingConfirmation(ctx context.Context, to string, details external.BookingConfirmation) error
}

type Handlers struct {
	slots  SlotReader
	venues VenueReader
	users  UserReader
	mailer Notifier
}

func NewHandlers(slots SlotReader, venues VenueReader, users UserReader, mailer Notifier) *Handlers {
	return &Handlers{
		slots:  slots,
		venues: venues,
		users:  users,
		mailer: mailer,
	}
}

// HandleBookingConfirmed sends the confirmation email. Delivery is best
// effort, so the message is acknowledged whatever happens.
func (h *Handlers) HandleBookingConfirmed(m *stan.Msg) {
	h.notifyBookingConfirmed(context.Background(), m.Data)
	ack(m)
}

func (h *Handlers) notifyBookingConfirmed(ctx context.Context, data []byte) string {
	var event models.BookingConfirmedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("Failed to unmarshal booking confirmed event", "error", err)
		return h.count(metrics.ResultRejected)
	}

	log := slog.With("booking_id", event.BookingID, "slot_id", event.SlotID, "user_id", event.UserID)

	to, err := h.recipient(ctx, &event)
	if err != nil {
		log.Error("Failed to resolve confirmation recipient", "error", err)
		return h.count(metrics.ResultError)
	}
	if to == "" {
		log.Warn("No email address for booking, skipping confirmation")
		return h.count(metrics.ResultSkipped)
	}

	details, err := h.confirmationDetails(ctx, &event)
	if err != nil {
		log.Error("Failed to build confirmation email", "error", err)
		return h.count(metrics.ResultError)
	}

	if err := h.mailer.SendBookingConfirmation(ctx, to, details); err != nil {
		log.Error("Failed to send confirmation email", "error", err)
		return h.count(metrics.ResultError)
	}

	return h.count(metrics.ResultOK)
}

func (h *Handlers) count(result string) string {
	metrics.NotificationsTotal.WithLabelValues(result).Inc()
	return result
}

// recipient prefers the address the payment provider collected.
func (h *Handlers) recipient(ctx context.Context, event *models.BookingConfirmedEvent) (string, error) {
	if event.CustomerEmail != "" {
		return event.CustomerEmail, nil
	}

	user, err := h.users.GetByID(ctx, event.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return "", nil
	}
	return user.Email, nil
}

func (h *Handlers) confirmationDetails(ctx context.Context, event *models.BookingConfirmedEvent) (external.BookingConfirmation, error) {
	slot, err := h.slots.GetByID(ctx, event.SlotID)
	if err != nil {
		return external.BookingConfirmation{}, fmt.Errorf("failed to get slot: %w", err)
	}
	if slot == nil {
		return external.BookingConfirmation{}, fmt.Errorf("slot %s not found", event.SlotID)
	}

	venueName := "your venue"
	venue, err := h.venues.GetByID(ctx, slot.VenueID)
	if err != nil {
		return external.BookingConfirmation{}, fmt.Errorf("failed to get venue: %w", err)
	}
	if venue != nil && venue.Name != nil {
		venueName = *venue.Name
	}

	start := slot.StartTime.UTC()
	return external.BookingConfirmation{
		VenueName: venueName,
		Date:      start.Format("Monday, 2 January 2006"),
		Time:      start.Format("15:04"),
		Price:     fmt.Sprintf("%s %s", models.FormatAmount(event.Amount), strings.ToUpper(event.Currency)),
		Reference: event.BookingID,
	}, nil
}

func (h *Handlers) HandleBookingCancelled(m *stan.Msg) {
	var event models.BookingCancelledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking cancelled event", "error", err)
	} else {
		slog.Info("Booking cancelled",
			"booking_id", event.BookingID, "slot_id", event.SlotID, "user_id", event.UserID, "reason", event.Reason)
	}
	ack(m)
}

// HandlePaymentOrphaned surfaces payments captured for a slot that another
// payment already booked. They need a manual refund.
func (h *Handlers) HandlePaymentOrphaned(m *stan.Msg) {
	var event models.PaymentOrphanedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment orphaned event", "error", err)
	} else {
		slog.Error("Orphaned payment requires refund",
			"slot_id", event.SlotID,
			"user_id", event.UserID,
			"payment_ref", event.PaymentRef,
			"amount", models.FormatAmount(event.Amount),
			"currency", event.Currency)
	}
	ack(m)
}

func (h *Handlers) HandleSlotsReclaimed(m *stan.Msg) {
	var event models.SlotsReclaimedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal slots reclaimed event", "error", err)
	} else {
		slog.Info("Expired slot locks reclaimed", "released", event.Released, "at", event.Timestamp)
	}
	ack(m)
}

// ack also acknowledges undecodable messages so they are not redelivered forever.
func ack(m *stan.Msg) {
	if err := m.Ack(); err != nil {
		slog.Error("Failed to ack message", "subject", m.Subject, "sequence", m.Sequence, "error", err)
	}
}
