package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "pitchup/internal/errors"
	"pitchup/internal/external"
	"pitchup/internal/logger"
	"pitchup/internal/metrics"
	"pitchup/internal/models"

	"github.com/google/uuid"
)

// Payment event outcomes, used as metric labels.
const (
	outcomeBooked       = "booked"
	outcomeIgnored      = "ignored"
	outcomeMalformed    = "malformed"
	outcomeDuplicate    = "duplicate"
	outcomeOrphaned     = "orphaned"
	outcomeInsertFailed = "insert_failed"
	outcomeInconsistent = "inconsistent"
	outcomeBadSignature = "bad_signature"
)

type PaymentService struct {
	slots     SlotStore
	bookings  BookingStore
	payments  PaymentGateway
	publisher EventPublisher
	now       func() time.Time
	newID     func() string
}

func NewPaymentService(slots SlotStore, bookings BookingStore, payments PaymentGateway, publisher EventPublisher) *PaymentService {
	return &PaymentService{
		slots:     slots,
		bookings:  bookings,
		payments:  payments,
		publisher: publisher,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// HandlePaymentEvent finalizes a booking from a provider event. The only
// error it returns is ErrInvalidSignature; once the signature is verified
// every downstream failure, including an undecodable body, is logged and the
// event is acknowledged.
func (s *PaymentService) HandlePaymentEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.payments.VerifyAndParse(payload, signature)
	if errors.Is(err, apperrors.ErrMalformedEvent) {
		metrics.PaymentEventsTotal.WithLabelValues(outcomeMalformed).Inc()
		logger.WithContext(ctx).Warn("Acknowledging verified payment event that could not be decoded", "error", err)
		return nil
	}
	if err != nil {
		metrics.PaymentEventsTotal.WithLabelValues(outcomeBadSignature).Inc()
		logger.WithContext(ctx).Warn("Payment event signature verification failed", "error", err)
		if !errors.Is(err, apperrors.ErrInvalidSignature) {
			err = fmt.Errorf("%w: %v", apperrors.ErrInvalidSignature, err)
		}
		return err
	}

	log := logger.WithContext(ctx).With("event_id", event.ID, "event_type", event.Type)

	if event.Type != external.EventCheckoutCompleted {
		metrics.PaymentEventsTotal.WithLabelValues(outcomeIgnored).Inc()
		log.Debug("Ignoring payment event type")
		return nil
	}

	if event.SlotID == "" || event.UserID == "" || event.SessionID == "" {
		metrics.PaymentEventsTotal.WithLabelValues(outcomeMalformed).Inc()
		log.Warn("Completed checkout without correlation metadata",
			"session_id", event.SessionID, "slot_id", event.SlotID, "user_id", event.UserID)
		return nil
	}

	s.finalize(ctx, event)
	return nil
}

// finalize ignores caller cancellation: once payment is captured both the
// insert and the slot update have to run.
func (s *PaymentService) finalize(ctx context.Context, event *external.PaymentEvent) {
	ctx = context.WithoutCancel(ctx)
	log := logger.WithContext(ctx).With(
		"slot_id", event.SlotID,
		"user_id", event.UserID,
		"payment_ref", event.SessionID,
	)
	now := s.now()

	booking := &models.Booking{
		ID:         s.newID(),
		UserID:     event.UserID,
		SlotID:     event.SlotID,
		PaymentRef: event.SessionID,
		Amount:     event.Amount,
		Currency:   event.Currency,
	}

	outcome, err := s.bookings.CreateConfirmed(ctx, booking)
	recorded := err == nil
	switch {
	case err != nil:
		log.Error("Failed to record booking, marking slot booked anyway", "error", err)
	case outcome == models.InsertDuplicatePayment:
		metrics.PaymentEventsTotal.WithLabelValues(outcomeDuplicate).Inc()
		log.Info("Payment event already processed", "booking_id", booking.ID)
		if booking.Status != models.BookingConfirmed {
			return
		}
		// A retry after a failed slot update repairs the slot.
		if err := s.slots.MarkBooked(ctx, booking.SlotID, booking.UserID); err != nil {
			metrics.PaymentEventsTotal.WithLabelValues(outcomeInconsistent).Inc()
			log.Error("Paid slot could not be marked booked, operator action required",
				"booking_id", booking.ID,
				"error", fmt.Errorf("%w: %v", apperrors.ErrInconsistency, err))
		}
		return
	case outcome == models.InsertSlotTaken:
		metrics.PaymentEventsTotal.WithLabelValues(outcomeOrphaned).Inc()
		log.Error("Payment captured for a slot already booked by another payment, operator action required",
			"amount", event.Amount, "currency", event.Currency)
		orphan := models.PaymentOrphanedEvent{
			SlotID:     event.SlotID,
			UserID:     event.UserID,
			PaymentRef: event.SessionID,
			Amount:     event.Amount,
			Currency:   event.Currency,
			Timestamp:  now,
		}
		if err := s.publisher.PublishAsync(models.EventPaymentOrphaned, orphan); err != nil {
			log.Error("Failed to publish orphaned payment event", "error", err, "event_type", models.EventPaymentOrphaned)
		}
		return
	}

	if err := s.slots.MarkBooked(ctx, event.SlotID, event.UserID); err != nil {
		metrics.PaymentEventsTotal.WithLabelValues(outcomeInconsistent).Inc()
		log.Error("Paid slot could not be marked booked, operator action required",
			"booking_id", booking.ID,
			"error", fmt.Errorf("%w: %v", apperrors.ErrInconsistency, err))
	} else if recorded {
		metrics.PaymentEventsTotal.WithLabelValues(outcomeBooked).Inc()
		log.Info("Booking confirmed", "booking_id", booking.ID)
	} else {
		metrics.PaymentEventsTotal.WithLabelValues(outcomeInsertFailed).Inc()
	}

	if !recorded {
		return
	}

	confirmed := models.BookingConfirmedEvent{
		BookingID:     booking.ID,
		SlotID:        booking.SlotID,
		UserID:        booking.UserID,
		PaymentRef:    booking.PaymentRef,
		Amount:        booking.Amount,
		Currency:      booking.Currency,
		CustomerEmail: event.CustomerEmail,
		Timestamp:     now,
	}
	if err := s.publisher.PublishAsync(models.EventBookingConfirmed, confirmed); err != nil {
		log.Error("Failed to publish booking confirmed event", "error", err, "event_type", models.EventBookingConfirmed)
	}
}
