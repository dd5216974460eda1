package models

import "time"

// NATS Event Types
const (
	EventSlotLocked       = "slot.locked"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventSlotsReclaimed   = "slots.reclaimed"
	EventPaymentOrphaned  = "payment.orphaned"
)

// SlotLockedEvent is published after a checkout acquired the slot lock
type SlotLockedEvent struct {
	SlotID      string    `json:"slot_id"`
	UserID      string    `json:"user_id"`
	LockedUntil time.Time `json:"locked_until"`
	SessionID   string    `json:"session_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// BookingConfirmedEvent drives the confirmation notification
type BookingConfirmedEvent struct {
	BookingID     string    `json:"booking_id"`
	SlotID        string    `json:"slot_id"`
	UserID        string    `json:"user_id"`
	PaymentRef    string    `json:"payment_ref"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// BookingCancelledEvent represents a booking cancellation event
type BookingCancelledEvent struct {
	BookingID string    `json:"booking_id"`
	SlotID    string    `json:"slot_id"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// SlotsReclaimedEvent summarises one expiry sweep
type SlotsReclaimedEvent struct {
	Released  int64     `json:"released"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentOrphanedEvent marks a captured payment for a slot that another
// payment already booked. Whether to refund is an operator decision.
type PaymentOrphanedEvent struct {
	SlotID     string    `json:"slot_id"`
	UserID     string    `json:"user_id"`
	PaymentRef string    `json:"payment_ref"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Timestamp  time.Time `json:"timestamp"`
}
