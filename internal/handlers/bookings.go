package handlers

import (
	"net/http"

	"pitchup/internal/logger"
	"pitchup/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Checkout - POST /api/checkout
// Заблокировать слот и создать платежную сессию
func (h *Handlers) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := logger.ContextWithUserID(c.Request.Context(), req.UserID)
	c.Request = c.Request.WithContext(ctx)

	response, err := h.bookings.InitiateCheckout(ctx, req.SlotID, req.UserID)
	if err != nil {
		respondError(c, err, "Failed to start checkout")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CancelBooking - POST /api/bookings/cancel
// Отменить бронирование
func (h *Handlers) CancelBooking(c *gin.Context) {
	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := logger.ContextWithUserID(c.Request.Context(), req.UserID)
	c.Request = c.Request.WithContext(ctx)

	if err := h.bookings.CancelBooking(ctx, req.BookingID, req.UserID); err != nil {
		respondError(c, err, "Failed to cancel booking")
		return
	}

	c.JSON(http.StatusOK, models.CancelBookingResponse{Success: true})
}

// ListBookings - GET /api/bookings?user_id=
// Получить список бронирований пользователя
func (h *Handlers) ListBookings(c *gin.Context) {
	userID := c.Query("user_id")
	if _, err := uuid.Parse(userID); err != nil {
		badRequest(c, "user_id must be a UUID")
		return
	}

	response, err := h.bookings.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to list bookings")
		return
	}

	c.JSON(http.StatusOK, response)
}
