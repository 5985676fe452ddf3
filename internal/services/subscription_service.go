package services

import (
	"keyboard-ai-backend/internal/database"
	"keyboard-ai-backend/internal/models"
	"keyboard-ai-backend/pkg/logging"

	"gorm.io/gorm"
)

// SubscriptionService reconciles billing events into the device's Pro flag
type SubscriptionService struct{}

// NewSubscriptionService creates a new subscription service instance
func NewSubscriptionService() *SubscriptionService {
	return &SubscriptionService{}
}

// ApplyBillingEvent maps a billing event to a Pro-flag transition.
// CANCELLATION and BILLING_ISSUE deliberately change nothing: access
// persists until the provider sends an explicit EXPIRATION. Unknown event
// types and unresolvable users are acknowledged without mutation so the
// provider does not retry.
func (s *SubscriptionService) ApplyBillingEvent(event models.BillingEvent) error {
	var isPro bool
	switch event.Type {
	case models.EventInitialPurchase, models.EventRenewal, models.EventProductChange,
		models.EventUncancellation, models.EventTransfer:
		isPro = true
	case models.EventExpiration:
		isPro = false
	case models.EventCancellation, models.EventBillingIssue:
		// Grace period: wait for EXPIRATION
		logging.Infof("Billing event ignored (grace period) - type: %s, app_user_id: %s", event.Type, event.AppUserID)
		return nil
	default:
		logging.Infof("Unknown billing event type ignored - type: %s", event.Type)
		return nil
	}

	device, err := s.resolveDevice(event.AppUserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// No device carries this identifier; acknowledge and drop
			logging.Infof("Billing event for unknown user dropped - type: %s, app_user_id: %s", event.Type, event.AppUserID)
			return nil
		}
		return err
	}

	if device.IsPro == isPro {
		return nil
	}
	if err := database.SetDevicePro(device.DeviceID, isPro); err != nil {
		return err
	}
	logging.Infof("Subscription state updated - device_id: %s, is_pro: %v, event: %s", device.DeviceID, isPro, event.Type)
	return nil
}

// resolveDevice looks the user up by billing identifier first, then falls
// back to treating the identifier as a device identifier. Covers accounts
// where the two never diverged.
func (s *SubscriptionService) resolveDevice(appUserID string) (*models.Device, error) {
	device, err := database.GetDeviceByBillingID(appUserID)
	if err == nil {
		return device, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return database.GetDeviceByDeviceID(appUserID)
}
