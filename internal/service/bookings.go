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
)

type BookingService struct {
	slots     SlotStore
	bookings  BookingStore
	venues    VenueCatalog
	payments  PaymentGateway
	publisher EventPublisher
	policy    Policy
	now       func() time.Time
}

func NewBookingService(slots SlotStore, bookings BookingStore, venues VenueCatalog, payments PaymentGateway, publisher EventPublisher, policy Policy) *BookingService {
	return &BookingService{
		slots:     slots,
		bookings:  bookings,
		venues:    venues,
		payments:  payments,
		publisher: publisher,
		policy:    policy,
		now:       time.Now,
	}
}

// InitiateCheckout locks the slot for userID and opens a payment session for it.
// A provider failure leaves the lock in place until the reclaimer releases it.
func (s *BookingService) InitiateCheckout(ctx context.Context, slotID, userID string) (*models.CheckoutResponse, error) {
	log := logger.WithContext(ctx).With("slot_id", slotID, "user_id", userID)

	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	if slot == nil {
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultNotFound).Inc()
		return nil, fmt.Errorf("%w: slot %s", apperrors.ErrNotFound, slotID)
	}

	now := s.now()
	if !slot.AvailableAt(now) {
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultConflict).Inc()
		log.Info("Slot is not available for checkout", "status", slot.Status)
		return nil, fmt.Errorf("%w: slot %s is %s", apperrors.ErrConflict, slotID, slot.Status)
	}

	venue, err := s.venues.GetByID(ctx, slot.VenueID)
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	if venue == nil || venue.Name == nil || venue.PricePerHour == nil || *venue.PricePerHour <= 0 {
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultError).Inc()
		log.Error("Venue has no name or price", "venue_id", slot.VenueID)
		return nil, fmt.Errorf("%w: venue %s", apperrors.ErrConfiguration, slot.VenueID)
	}

	until := now.Add(s.policy.LockDuration)
	acquired, err := s.slots.AcquireLock(ctx, slotID, userID, until, now)
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to lock slot: %w", err)
	}
	if !acquired {
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultConflict).Inc()
		log.Info("Lost the race for the slot lock")
		return nil, fmt.Errorf("%w: slot %s was taken concurrently", apperrors.ErrConflict, slotID)
	}

	session, err := s.payments.CreateSession(ctx, external.SessionRequest{
		Amount:      *venue.PricePerHour,
		Currency:    s.policy.Currency,
		Description: fmt.Sprintf("%s - %s", *venue.Name, slot.StartTime.UTC().Format("Mon 2 Jan 2006 15:04")),
		Metadata: map[string]string{
			external.MetadataSlotID: slotID,
			external.MetadataUserID: userID,
		},
		ExpiresAt:   now.Add(s.policy.SessionExpiry),
		ReferenceID: slotID,
	})
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(metrics.ResultError).Inc()
		log.Error("Payment session failed, slot stays pending until reclaimed",
			"locked_until", until, "error", err)
		if !errors.Is(err, apperrors.ErrUpstream) {
			err = fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
		}
		return nil, err
	}

	metrics.CheckoutsTotal.WithLabelValues(metrics.ResultOK).Inc()
	log.Info("Checkout session created", "session_id", session.ID, "locked_until", until)

	event := models.SlotLockedEvent{
		SlotID:      slotID,
		UserID:      userID,
		LockedUntil: until,
		SessionID:   session.ID,
		Timestamp:   now,
	}
	if err := s.publisher.PublishAsync(models.EventSlotLocked, event); err != nil {
		log.Error("Failed to publish slot locked event", "error", err, "event_type", models.EventSlotLocked)
	}

	return &models.CheckoutResponse{URL: session.URL, SessionID: session.ID}, nil
}

// CancelBooking cancels a confirmed booking owned by userID and frees its
// slot. The two writes are separate; a failed slot release after the booking
// was cancelled is reported as ErrInconsistency.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID string) error {
	log := logger.WithContext(ctx).With("booking_id", bookingID, "user_id", userID)

	booking, err := s.bookings.GetByIDForUser(ctx, bookingID, userID)
	if err != nil {
		metrics.CancellationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil || booking.Slot == nil {
		metrics.CancellationsTotal.WithLabelValues(metrics.ResultNotFound).Inc()
		return fmt.Errorf("%w: booking %s", apperrors.ErrNotFound, bookingID)
	}
	if booking.Status != models.BookingConfirmed {
		metrics.CancellationsTotal.WithLabelValues(metrics.ResultConflict).Inc()
		return fmt.Errorf("%w: booking %s is %s", apperrors.ErrConflict, bookingID, booking.Status)
	}

	now := s.now()
	deadline := booking.Slot.StartTime.Add(-s.policy.CancellationCutoff)
	if now.After(deadline) {
		metrics.CancellationsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		log.Info("Cancellation past cutoff", "start_time", booking.Slot.StartTime, "deadline", deadline)
		return fmt.Errorf("%w: cancellation closed at %s", apperrors.ErrPolicyViolation, deadline.UTC().Format(time.RFC3339))
	}

	cancelled, err := s.bookings.MarkCancelled(ctx, booking.ID, now)
	if err != nil {
		metrics.CancellationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if !cancelled {
		metrics.CancellationsTotal.WithLabelValues(metrics.ResultConflict).Inc()
		return fmt.Errorf("%w: booking %s was cancelled concurrently", apperrors.ErrConflict, bookingID)
	}

	released, err := s.slots.Release(ctx, booking.SlotID)
	if err != nil {
		metrics.CancellationsTotal.WithLabelValues(metrics.ResultError).Inc()
		log.Error("Booking cancelled but slot release failed, operator action required",
			"slot_id", booking.SlotID,
			"payment_ref", booking.PaymentRef,
			"error", err)
		return fmt.Errorf("%w: booking %s cancelled, slot %s not released: %v",
			apperrors.ErrInconsistency, booking.ID, booking.SlotID, err)
	}
	if !released {
		log.Warn("Slot was not booked when its booking was cancelled", "slot_id", booking.SlotID)
	}

	metrics.CancellationsTotal.WithLabelValues(metrics.ResultOK).Inc()
	log.Info("Booking cancelled", "slot_id", booking.SlotID)

	event := models.BookingCancelledEvent{
		BookingID: booking.ID,
		SlotID:    booking.SlotID,
		UserID:    userID,
		Reason:    "User cancellation",
		Timestamp: now,
	}
	if err := s.publisher.PublishAsync(models.EventBookingCancelled, event); err != nil {
		log.Error("Failed to publish booking cancelled event", "error", err, "event_type", models.EventBookingCancelled)
	}

	return nil
}

func (s *BookingService) List(ctx context.Context, userID string) ([]models.ListBookingsResponseItem, error) {
	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}

	result := make([]models.ListBookingsResponseItem, len(bookings))
	for i, booking := range bookings {
		result[i] = models.ListBookingsResponseItem{
			ID:         booking.ID,
			SlotID:     booking.SlotID,
			VenueID:    booking.VenueID,
			VenueName:  booking.VenueName,
			StartTime:  booking.StartTime.UTC().Format(time.RFC3339),
			Amount:     models.FormatAmount(booking.Amount),
			Currency:   booking.Currency,
			Status:     booking.Status,
			PaymentRef: booking.PaymentRef,
		}
	}

	return result, nil
}
