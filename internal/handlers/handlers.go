package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	apperrors "pitchup/internal/errors"
	"pitchup/internal/logger"
	"pitchup/internal/models"
	"pitchup/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingService interface {
	InitiateCheckout(ctx context.Context, slotID, userID string) (*models.CheckoutResponse, error)
	CancelBooking(ctx context.Context, bookingID, userID string) error
	List(ctx context.Context, userID string) ([]models.ListBookingsResponseItem, error)
}

type PaymentService interface {
	HandlePaymentEvent(ctx context.Context, payload []byte, signature string) error
}

type SlotService interface {
	List(ctx context.Context, venueID string, date time.Time) ([]models.ListSlotsResponseItem, error)
	ReclaimExpiredLocks(ctx context.Context) (int64, error)
}

type VenueService interface {
	List(ctx context.Context, query string, page, pageSize int) ([]models.ListVenuesResponseItem, error)
}

type Handlers struct {
	bookings BookingService
	payments PaymentService
	slots    SlotService
	venues   VenueService
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		bookings: services.Bookings,
		payments: services.Payments,
		slots:    services.Slots,
		venues:   services.Venues,
	}
}

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrPolicyViolation),
		errors.Is(err, apperrors.ErrInvalidSignature),
		errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError пишет {"error": msg}. Client errors carry the error text,
// server errors only the fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	status := statusFor(err)
	message := fallback
	if status < http.StatusInternalServerError {
		message = err.Error()
	} else {
		logger.WithContext(c.Request.Context()).Error(fallback, "error", err)
	}

	c.JSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
