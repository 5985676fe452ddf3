package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"keyboard-ai-backend/internal/config"
	"keyboard-ai-backend/internal/response"

	"github.com/gin-gonic/gin"
)

// WebhookAuthMiddleware authenticates the billing webhook with a shared
// bearer secret. A missing server-side secret is a configuration error,
// not an auth failure.
func WebhookAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := config.AppConfig.BillingWebhookSecret
		if secret == "" {
			response.ErrorJSON(c, http.StatusInternalServerError, "Webhook secret is not configured")
			c.Abort()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			response.ErrorJSON(c, http.StatusUnauthorized, "Invalid webhook authorization")
			c.Abort()
			return
		}

		c.Next()
	}
}
