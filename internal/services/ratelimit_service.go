package services

import (
	"time"

	"keyboard-ai-backend/internal/config"
	"keyboard-ai-backend/internal/database"
	"keyboard-ai-backend/pkg/logging"
)

// RateLimitService enforces windowed invocation limits by counting the
// usage ledger. Both checks are advisory: concurrent requests may slip
// past a boundary, which is accepted rather than locking per device.
type RateLimitService struct {
	burstLimit    int
	proDailyLimit int
}

// NewRateLimitService creates a new rate limit service instance
func NewRateLimitService() *RateLimitService {
	return &RateLimitService{
		burstLimit:    config.AppConfig.BurstLimit,
		proDailyLimit: config.AppConfig.ProDailyLimit,
	}
}

// AllowBurst reports whether the device is under the trailing-60s burst
// limit. Applies to every device.
func (s *RateLimitService) AllowBurst(deviceID string, now time.Time) bool {
	count, err := database.CountUsageSince(deviceID, now.Add(-time.Minute))
	if err != nil {
		logging.Errorf("Burst limit check failed, allowing request - device_id: %s, error: %v", deviceID, err)
		return true
	}
	return count < int64(s.burstLimit)
}

// AllowProDaily reports whether a Pro device is under its trailing-24h cap.
// Non-Pro devices are already bounded by their credit balance.
func (s *RateLimitService) AllowProDaily(deviceID string, now time.Time) bool {
	count, err := database.CountUsageSince(deviceID, now.Add(-24*time.Hour))
	if err != nil {
		logging.Errorf("Daily limit check failed, allowing request - device_id: %s, error: %v", deviceID, err)
		return true
	}
	return count < int64(s.proDailyLimit)
}
