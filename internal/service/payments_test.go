package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	apperrors "pitchup/internal/errors"
	"pitchup/internal/external"
	"pitchup/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlePaymentEvent_ConfirmsBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testPolicy)
	f.addSlot("slot-1", 48*time.Hour)

	resp, err := f.bookings.InitiateCheckout(ctx, "slot-1", "user-1")
	require.NoError(t, err)

	err = f.payments.HandlePaymentEvent(ctx, completedPayload(resp.SessionID, "slot-1", "user-1"), "valid")
	require.NoError(t, err)

	slot := f.store.slot("slot-1")
	assert.Equal(t, models.SlotBooked, slot.Status)
	assert.Nil(t, slot.LockedUntil)
	assert.Equal(t, "user-1", *slot.HolderID)

	confirmed := f.store.confirmedFor("slot-1")
	require.Len(t, confirmed, 1)
	assert.Equal(t, "user-1", confirmed[0].UserID)
	assert.Equal(t, resp.SessionID, confirmed[0].PaymentRef)
	assert.Equal(t, int64(4500), confirmed[0].Amount)

	assert.Equal(t, []string{models.EventSlotLocked, models.EventBookingConfirmed}, f.publisher.subjects())
	event, ok := f.publisher.messages[1].data.(models.BookingConfirmedEvent)
	require.True(t, ok)
	assert.Equal(t, confirmed[0].ID, event.BookingID)
	assert.Equal(t, "user-1@pitchup.test", event.CustomerEmail)
}

func TestHandlePaymentEvent_RejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testPolicy)
	f.addSlot("slot-1", 48*time.Hour)
	before := f.store.slot("slot-1")

	err := f.payments.HandlePaymentEvent(ctx, completedPayload("cs_forged", "slot-1", "user-1"), "t=1,v1=forged")
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)

	assert.Equal(t, before, f.store.slot("slot-1"))
	assert.Zero(t, f.store.bookingCount())
	assert.Empty(t, f.publisher.subjects())
}

func TestHandlePaymentEvent_AcknowledgesWithoutMutation(t *testing.T) {
	ctx := context.Background()

	otherType, _ := json.Marshal(external.PaymentEvent{ID: "evt_1", Type: "payment_intent.created"})
	noMetadata, _ := json.Marshal(external.PaymentEvent{
		ID:        "evt_2",
		Type:      external.EventCheckoutCompleted,
		SessionID: "cs_test_x",
	})
	noSlot, _ := json.Marshal(external.PaymentEvent{
		ID:        "evt_3",
		Type:      external.EventCheckoutCompleted,
		SessionID: "cs_test_y",
		UserID:    "user-1",
	})

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "unrelated event type", payload: otherType},
		{name: "completed session without metadata", payload: noMetadata},
		{name: "completed session without slot", payload: noSlot},
		{name: "verified body that is not an event", payload: []byte("not json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(testPolicy)
			f.addSlot("slot-1", 48*time.Hour)
			before := f.store.slot("slot-1")

			err := f.payments.HandlePaymentEvent(ctx, tt.payload, "valid")
			assert.NoError(t, err)
			assert.Equal(t, before, f.store.slot("slot-1"))
			assert.Zero(t, f.store.bookingCount())
			assert.Zero(t, f.store.markBookedRuns)
		})
	}
}

func TestHandlePaymentEvent_DuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testPolicy)
	f.addSlot("slot-1", 48*time.Hour)

	resp, err := f.bookings.InitiateCheckout(ctx, "slot-1", "user-1")
	require.NoError(t, err)
	payload := completedPayload(resp.SessionID, "slot-1", "user-1")

	require.NoError(t, f.payments.HandlePaymentEvent(ctx, payload, "valid"))
	require.NoError(t, f.payments.HandlePaymentEvent(ctx, payload, "valid"))

	assert.Equal(t, 1, f.store.bookingCount())
	assert.Equal(t, models.SlotBooked, f.store.slot("slot-1").Status)
	assert.Equal(t, []string{models.EventSlotLocked, models.EventBookingConfirmed}, f.publisher.subjects())

	// A replay after cancellation must not book the freed slot again.
	booking := f.store.confirmedFor("slot-1")[0]
	require.NoError(t, f.bookings.CancelBooking(ctx, booking.ID, "user-1"))
	runs := f.store.markBookedRuns
	require.NoError(t, f.payments.HandlePaymentEvent(ctx, payload, "valid"))

	assert.Equal(t, models.SlotAvailable, f.store.slot("slot-1").Status)
	assert.Empty(t, f.store.confirmedFor("slot-1"))
	assert.Equal(t, 1, f.store.bookingCount())
	assert.Equal(t, runs, f.store.markBookedRuns)
}

func TestHandlePaymentEvent_RetryRepairsSlotAfterFailedUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testPolicy)
	f.addSlot("slot-1", 48*time.Hour)

	resp, err := f.bookings.InitiateCheckout(ctx, "slot-1", "user-1")
	require.NoError(t, err)
	payload := completedPayload(resp.SessionID, "slot-1", "user-1")

	f.store.markBookedErr = errStoreDown
	require.NoError(t, f.payments.HandlePaymentEvent(ctx, payload, "valid"))
	require.Len(t, f.store.confirmedFor("slot-1"), 1)
	require.Equal(t, models.SlotPending, f.store.slot("slot-1").Status)

	f.store.markBookedErr = nil
	require.NoError(t, f.payments.HandlePaymentEvent(ctx, payload, "valid"))

	slot := f.store.slot("slot-1")
	assert.Equal(t, models.SlotBooked, slot.Status)
	assert.Equal(t, "user-1", *slot.HolderID)
	assert.Equal(t, 1, f.store.bookingCount())

	// The repaired slot must survive the reclaim sweep and stay unbookable.
	f.clock.Advance(11 * time.Minute)
	released, err := f.slots.ReclaimExpiredLocks(ctx)
	require.NoError(t, err)
	assert.Zero(t, released)
	assert.Equal(t, models.SlotBooked, f.store.slot("slot-1").Status)

	_, err = f.bookings.InitiateCheckout(ctx, "slot-1", "user-2")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestHandlePaymentEvent_FinalizesAfterCallerCancels(t *testing.T) {
	f := newFixture(testPolicy)
	f.addSlot("slot-1", 48*time.Hour)

	resp, err := f.bookings.InitiateCheckout(context.Background(), "slot-1", "user-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.store.ctxCheck = true

	err = f.payments.HandlePaymentEvent(ctx, completedPayload(resp.SessionID, "slot-1", "user-1"), "valid")
	require.NoError(t, err)

	assert.Equal(t, models.SlotBooked, f.store.slot("slot-1").Status)
	assert.Len(t, f.store.confirmedFor("slot-1"), 1)
}

func TestHandlePaymentEvent_SecondPaymentForSameSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testPolicy)
	f.addSlot("slot-1", 48*time.Hour)

	first, err := f.bookings.InitiateCheckout(ctx, "slot-1", "user-1")
	require.NoError(t, err)

	// The first lock lapses and a second customer checks out the same slot.
	f.clock.Advance(11 * time.Minute)
	second, err := f.bookings.InitiateCheckout(ctx, "slot-1", "user-2")
	require.NoError(t, err)

	require.NoError(t, f.payments.HandlePaymentEvent(ctx, completedPayload(first.SessionID, "slot-1", "user-1"), "valid"))
	require.NoError(t, f.payments.HandlePaymentEvent(ctx, completedPayload(second.SessionID, "slot-1", "user-2"), "valid"))

	confirmed := f.store.confirmedFor("slot-1")
	require.Len(t, confirmed, 1)
	assert.Equal(t, "user-1", confirmed[0].UserID)

	slot := f.store.slot("slot-1")
	assert.Equal(t, models.SlotBooked, slot.Status)
	assert.Equal(t, "user-1", *slot.HolderID)
	assert.Equal(t, 1, f.store.markBookedRuns)

	assert.Contains(t, f.publisher.subjects(), models.EventPaymentOrphaned)
}

func TestHandlePaymentEvent_InsertFailureStillBooksSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testPolicy)
	f.addSlot("slot-1", 48*time.Hour)

	resp, err := f.bookings.InitiateCheckout(ctx, "slot-1", "user-1")
	require.NoError(t, err)
	f.store.insertErr = errStoreDown

	err = f.payments.HandlePaymentEvent(ctx, completedPayload(resp.SessionID, "slot-1", "user-1"), "valid")
	assert.NoError(t, err)

	assert.Equal(t, models.SlotBooked, f.store.slot("slot-1").Status)
	assert.Zero(t, f.store.bookingCount())
	assert.NotContains(t, f.publisher.subjects(), models.EventBookingConfirmed)
}

func TestHandlePaymentEvent_MarkBookedFailureIsAcknowledged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testPolicy)
	f.addSlot("slot-1", 48*time.Hour)

	resp, err := f.bookings.InitiateCheckout(ctx, "slot-1", "user-1")
	require.NoError(t, err)
	f.store.markBookedErr = errStoreDown

	err = f.payments.HandlePaymentEvent(ctx, completedPayload(resp.SessionID, "slot-1", "user-1"), "valid")
	assert.NoError(t, err)

	assert.Len(t, f.store.confirmedFor("slot-1"), 1)
	assert.Equal(t, models.SlotPending, f.store.slot("slot-1").Status)
}
