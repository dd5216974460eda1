package handlers

import (
	"net/http"
	"time"

	"pitchup/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListSlots - GET /api/slots?venue_id=&date=
// Получить слоты площадки, опционально за один день
func (h *Handlers) ListSlots(c *gin.Context) {
	venueID := c.Query("venue_id")
	if _, err := uuid.Parse(venueID); err != nil {
		badRequest(c, "venue_id must be a UUID")
		return
	}

	var date time.Time
	if dateParam := c.Query("date"); dateParam != "" {
		parsed, err := time.Parse("2006-01-02", dateParam)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	response, err := h.slots.List(c.Request.Context(), venueID, date)
	if err != nil {
		respondError(c, err, "Failed to list slots")
		return
	}

	c.JSON(http.StatusOK, response)
}

// ReclaimExpired - POST /api/cron/reclaim
// Освободить слоты с истекшей блокировкой
func (h *Handlers) ReclaimExpired(c *gin.Context) {
	released, err := h.slots.ReclaimExpiredLocks(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to reclaim expired locks")
		return
	}

	c.JSON(http.StatusOK, models.ReclaimResponse{Released: released})
}
