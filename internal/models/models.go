package models

import (
	"time"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotPending   SlotStatus = "pending"
	SlotBooked    SlotStatus = "booked"
)

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// User is only read for its contact address.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  *string   `json:"full_name" db:"full_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Venue represents a bookable place
type Venue struct {
	ID           string    `json:"id" db:"id"`
	Name         *string   `json:"name" db:"name"`
	Sport        string    `json:"sport" db:"sport"`
	City         *string   `json:"city" db:"city"`
	PricePerHour *int64    `json:"price_per_hour" db:"price_per_hour"` // minor units
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Slot represents one bookable time window at one venue
type Slot struct {
	ID          string     `json:"id" db:"id"`
	VenueID     string     `json:"venue_id" db:"venue_id"`
	Date        time.Time  `json:"slot_date" db:"slot_date"`
	StartTime   time.Time  `json:"start_time" db:"start_time"`
	Status      SlotStatus `json:"status" db:"status"`
	LockedUntil *time.Time `json:"locked_until" db:"locked_until"`
	HolderID    *string    `json:"holder_id" db:"holder_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Locked reports whether the slot is held by a pending lock at now. A lock
// stays held through its expiry instant, matching the lock and reclaim
// statements which only free locks that ended before now.
func (s *Slot) Locked(now time.Time) bool {
	return s.Status == SlotPending && s.LockedUntil != nil && !s.LockedUntil.Before(now)
}

// AvailableAt applies the checkout availability rule: booked slots and
// unexpired locks are taken, everything else (including an elapsed lock) is free.
func (s *Slot) AvailableAt(now time.Time) bool {
	return s.Status != SlotBooked && !s.Locked(now)
}

// EffectiveStatus is the status a browsing user should see at now.
func (s *Slot) EffectiveStatus(now time.Time) SlotStatus {
	if s.Status == SlotPending && !s.Locked(now) {
		return SlotAvailable
	}
	return s.Status
}

// Booking is the permanent record of a paid reservation
type Booking struct {
	ID          string        `json:"id" db:"id"`
	UserID      string        `json:"user_id" db:"user_id"`
	SlotID      string        `json:"slot_id" db:"slot_id"`
	PaymentRef  string        `json:"payment_ref" db:"payment_ref"`
	Amount      int64         `json:"amount" db:"amount"`
	Currency    string        `json:"currency" db:"currency"`
	Status      BookingStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
	CancelledAt *time.Time    `json:"cancelled_at" db:"cancelled_at"`

	// Not from the bookings table, filled by joins
	Slot *Slot `json:"slot,omitempty"`
}

// BookingDetails is a booking joined with its slot and venue for listings.
type BookingDetails struct {
	Booking
	StartTime time.Time `json:"start_time"`
	VenueID   string    `json:"venue_id"`
	VenueName string    `json:"venue_name"`
}

// InsertOutcome tells how a conditional booking insert resolved.
type InsertOutcome int

const (
	// InsertCreated means a new confirmed booking row was written.
	InsertCreated InsertOutcome = iota
	// InsertDuplicatePayment means a booking for the same payment reference exists.
	InsertDuplicatePayment
	// InsertSlotTaken means another payment already holds the confirmed booking for the slot.
	InsertSlotTaken
)

func (o InsertOutcome) String() string {
	switch o {
	case InsertCreated:
		return "created"
	case InsertDuplicatePayment:
		return "duplicate_payment"
	case InsertSlotTaken:
		return "slot_taken"
	default:
		return "unknown"
	}
}
