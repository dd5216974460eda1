package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListVenues - GET /api/venues
// Получить список площадок, с полнотекстовым поиском по query
func (h *Handlers) ListVenues(c *gin.Context) {
	query := c.Query("query")

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		badRequest(c, "page must be >= 1")
		return
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if err != nil || pageSize < 1 || pageSize > 20 {
		badRequest(c, "pageSize must be between 1 and 20")
		return
	}

	response, err := h.venues.List(c.Request.Context(), query, page, pageSize)
	if err != nil {
		respondError(c, err, "Failed to list venues")
		return
	}

	c.JSON(http.StatusOK, response)
}
