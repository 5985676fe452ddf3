package api

import (
	"net/http"

	"keyboard-ai-backend/internal/models"
	"keyboard-ai-backend/internal/response"
	"keyboard-ai-backend/pkg/logging"

	"github.com/gin-gonic/gin"
)

// BillingWebhook ingests subscription lifecycle events from the payment
// provider. Recognized events are applied, everything else is acknowledged
// with 200 so the provider stops retrying. Auth is handled by
// WebhookAuthMiddleware.
// POST /api/billing/webhook
func BillingWebhook(c *gin.Context) {
	var req models.BillingWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	event := req.Event
	if event.Type == "" || event.AppUserID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "event.type and event.app_user_id are required")
		return
	}

	if replayProtection.IsReplay(c.Request.Context(), event.ID) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  "duplicate_ignored",
		})
		return
	}

	if err := subscriptionService.ApplyBillingEvent(event); err != nil {
		// Persistence failure: the event stays unmarked so the provider's
		// retry of this delivery is applied, not deduplicated
		logging.Errorf("Billing event failed - type: %s, app_user_id: %s, error: %v", event.Type, event.AppUserID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to apply billing event")
		return
	}

	replayProtection.MarkSeen(c.Request.Context(), event.ID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
