package database

import (
	"time"

	"keyboard-ai-backend/internal/models"
)

// AppendUsageRecord appends one tool invocation to the usage ledger
func AppendUsageRecord(deviceID, toolID string) error {
	record := models.UsageRecord{
		DeviceID: deviceID,
		ToolID:   toolID,
	}
	return DB.Create(&record).Error
}

// CountUsageSince counts the device's tool invocations after the given time
func CountUsageSince(deviceID string, since time.Time) (int64, error) {
	var count int64
	err := DB.Model(&models.UsageRecord{}).
		Where("device_id = ? AND created_at > ?", deviceID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
