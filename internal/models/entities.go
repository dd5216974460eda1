package models

import "fmt"

// CheckoutRequest - модель для создания платежной сессии по слоту
type CheckoutRequest struct {
	SlotID string `json:"slot_id" binding:"required,uuid"`
	UserID string `json:"user_id" binding:"required,uuid"`
}

// CheckoutResponse carries the hosted checkout page the caller redirects to.
type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id,omitempty"`
}

// CancelBookingRequest - модель для отмены бронирования
type CancelBookingRequest struct {
	BookingID string `json:"booking_id" binding:"required,uuid"`
	UserID    string `json:"user_id" binding:"required,uuid"`
}

type CancelBookingResponse struct {
	Success bool `json:"success"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type ReclaimResponse struct {
	Released int64 `json:"released"`
}

// ListSlotsResponseItem - элемент списка слотов
type ListSlotsResponseItem struct {
	ID        string     `json:"id"`
	VenueID   string     `json:"venue_id"`
	Date      string     `json:"slot_date"`
	StartTime string     `json:"start_time"`
	Status    SlotStatus `json:"status"`
}

// ListBookingsResponseItem - элемент списка бронирований
type ListBookingsResponseItem struct {
	ID         string        `json:"id"`
	SlotID     string        `json:"slot_id"`
	VenueID    string        `json:"venue_id"`
	VenueName  string        `json:"venue_name"`
	StartTime  string        `json:"start_time"`
	Amount     string        `json:"amount"`
	Currency   string        `json:"currency"`
	Status     BookingStatus `json:"status"`
	PaymentRef string        `json:"payment_ref"`
}

// ListVenuesResponseItem - элемент списка площадок
type ListVenuesResponseItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Sport        string `json:"sport"`
	City         string `json:"city,omitempty"`
	PricePerHour string `json:"price_per_hour,omitempty"`
}

// FormatAmount renders minor units as a decimal string, e.g. 4500 -> "45.00".
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
