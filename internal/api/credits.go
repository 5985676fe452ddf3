package api

import (
	"net/http"
	"time"

	"keyboard-ai-backend/internal/config"
	"keyboard-ai-backend/internal/database"
	"keyboard-ai-backend/internal/models"
	"keyboard-ai-backend/internal/policy"
	"keyboard-ai-backend/internal/response"
	"keyboard-ai-backend/internal/services"
	"keyboard-ai-backend/pkg/logging"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DeviceRequest identifies the device a credit operation applies to
type DeviceRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
}

// RegisterDeviceRequest represents a device registration request
type RegisterDeviceRequest struct {
	DeviceID  string `json:"deviceId" binding:"required,max=255"`
	BillingID string `json:"billingId"`
}

// RegisterDeviceResponse is the visible device state after registration
type RegisterDeviceResponse struct {
	Credits             int  `json:"credits"`
	IsPro               bool `json:"isPro"`
	ClaimedSetupReward  bool `json:"claimedSetupReward"`
	ClaimedReviewReward bool `json:"claimedReviewReward"`
}

// RegisterDevice registers a device or returns its existing state.
// Registration is idempotent.
// POST /api/device/register
func RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "deviceId is required")
		return
	}

	device, err := database.RegisterDevice(req.DeviceID, req.BillingID)
	if err != nil {
		logging.Errorf("Device registration failed - device_id: %s, error: %v", req.DeviceID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to register device")
		return
	}

	c.JSON(http.StatusOK, RegisterDeviceResponse{
		Credits:             device.Credits,
		IsPro:               device.IsPro,
		ClaimedSetupReward:  device.ClaimedSetupReward,
		ClaimedReviewReward: device.ClaimedReviewReward,
	})
}

// CheckCredits reports whether the device may invoke a tool right now.
// Always answers 200; failures carry a machine-readable error code.
// POST /api/credits/check
func CheckCredits(c *gin.Context) {
	if config.AppConfig.ServiceDisabled {
		response.ErrorCode(c, http.StatusOK, services.CodeServiceUnavailable)
		return
	}

	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorCode(c, http.StatusOK, services.CodeMissingFields)
		return
	}

	device, err := database.GetDeviceByDeviceID(req.DeviceID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.ErrorCode(c, http.StatusOK, services.CodeDeviceNotFound)
		} else {
			logging.Errorf("Credit check failed - device_id: %s, error: %v", req.DeviceID, err)
			response.ErrorCode(c, http.StatusOK, services.CodeServiceUnavailable)
		}
		return
	}

	if !policy.CanConsume(device) {
		response.ErrorCode(c, http.StatusOK, services.CodeNoCredits)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ClaimDaily grants the daily credits once per rolling 24h window
// POST /api/credits/claim-daily
func ClaimDaily(c *gin.Context) {
	handleClaim(c, func(d *models.Device) policy.ClaimResult {
		return policy.ClaimDaily(d, time.Now())
	})
}

// ClaimSetupReward grants the one-time keyboard-setup reward
// POST /api/credits/claim-setup
func ClaimSetupReward(c *gin.Context) {
	handleClaim(c, func(d *models.Device) policy.ClaimResult {
		return policy.ClaimOneTime(d, &d.ClaimedSetupReward, policy.SetupRewardAmount)
	})
}

// ClaimReviewReward grants the one-time app-review reward
// POST /api/credits/claim-review
func ClaimReviewReward(c *gin.Context) {
	handleClaim(c, func(d *models.Device) policy.ClaimResult {
		return policy.ClaimOneTime(d, &d.ClaimedReviewReward, policy.ReviewRewardAmount)
	})
}

// ClaimAdWatch grants the ad-watch reward, capped per rolling window
// POST /api/credits/claim-ad-watch
func ClaimAdWatch(c *gin.Context) {
	handleClaim(c, func(d *models.Device) policy.ClaimResult {
		return policy.ClaimAdWatch(d, time.Now())
	})
}

// ClaimBonusAd grants the bonus-ad reward, capped per rolling window
// POST /api/credits/claim-bonus-ad
func ClaimBonusAd(c *gin.Context) {
	handleClaim(c, func(d *models.Device) policy.ClaimResult {
		return policy.ClaimBonusAd(d, time.Now())
	})
}

// handleClaim is the shared claim flow: load the device, apply the policy
// function to the snapshot, persist the delta, return the structured
// outcome. A rejected claim is a 200, not an error.
func handleClaim(c *gin.Context, apply func(*models.Device) policy.ClaimResult) {
	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, policy.ClaimResult{
			Claimed: false,
			Message: "deviceId is required",
		})
		return
	}

	device, err := database.GetDeviceByDeviceID(req.DeviceID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, policy.ClaimResult{
				Claimed: false,
				Message: "device not found",
			})
		} else {
			logging.Errorf("Claim lookup failed - device_id: %s, error: %v", req.DeviceID, err)
			c.JSON(http.StatusInternalServerError, policy.ClaimResult{
				Claimed: false,
				Message: "internal error",
			})
		}
		return
	}

	result := apply(device)
	if result.Claimed {
		if err := database.SaveDevice(device); err != nil {
			logging.Errorf("Claim commit failed - device_id: %s, error: %v", req.DeviceID, err)
			c.JSON(http.StatusInternalServerError, policy.ClaimResult{
				Credits: device.Credits,
				Claimed: false,
				Message: "internal error",
			})
			return
		}
	}

	c.JSON(http.StatusOK, result)
}
