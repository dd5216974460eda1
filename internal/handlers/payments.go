package handlers

import (
	"net/http"

	"pitchup/internal/models"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "Stripe-Signature"

// PaymentWebhook - POST /api/webhook
// Принимать уведомления от платежного провайдера. The body is read raw
// because the signature covers the exact bytes.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		badRequest(c, "Failed to read request body")
		return
	}

	if err := h.payments.HandlePaymentEvent(c.Request.Context(), payload, c.GetHeader(signatureHeader)); err != nil {
		respondError(c, err, "Failed to handle payment event")
		return
	}

	c.JSON(http.StatusOK, models.WebhookResponse{Received: true})
}
