package models

import (
	"time"
)

// UsageRecord is one tool invocation. Records are append-only: the core
// never updates or deletes them, it only counts them over time windows
// for rate limiting. Retention is an external concern.
type UsageRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	DeviceID  string    `json:"device_id" gorm:"size:255;index;not null"`
	ToolID    string    `json:"tool_id" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}
