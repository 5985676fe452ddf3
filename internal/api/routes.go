package api

import (
	"context"

	"keyboard-ai-backend/internal/middleware"
	"keyboard-ai-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// replayGuard is the webhook dedup surface, substituted in tests
type replayGuard interface {
	IsReplay(ctx context.Context, eventID string) bool
	MarkSeen(ctx context.Context, eventID string)
}

var (
	executionService    *services.ExecutionService
	subscriptionService *services.SubscriptionService
	replayProtection    replayGuard
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine) {
	executionService = services.NewExecutionService()
	subscriptionService = services.NewSubscriptionService()
	replayProtection = services.NewReplayProtection()

	// Keyboard extensions call from a webview context; allow any origin
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		// Tool execution (streaming)
		tools := api.Group("/tools")
		{
			tools.POST("/execute", ExecuteTool)
		}

		// Device registration and credit endpoints (device-scoped, no auth
		// beyond the device identifier)
		device := api.Group("/device")
		{
			device.POST("/register", RegisterDevice)
		}

		credits := api.Group("/credits")
		{
			credits.POST("/check", CheckCredits)
			credits.POST("/claim-daily", ClaimDaily)
			credits.POST("/claim-setup", ClaimSetupReward)
			credits.POST("/claim-review", ClaimReviewReward)
			credits.POST("/claim-ad-watch", ClaimAdWatch)
			credits.POST("/claim-bonus-ad", ClaimBonusAd)
		}

		// Billing webhook (bearer-token authenticated, payment provider calls this)
		billing := api.Group("/billing")
		billing.Use(middleware.WebhookAuthMiddleware())
		{
			billing.POST("/webhook", BillingWebhook)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "keyboard-ai-backend",
		})
	})
}
