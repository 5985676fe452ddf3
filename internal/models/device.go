package models

import (
	"time"
)

// Device represents one installation of the keyboard app. The device ID is
// generated client-side and is the only identity the backend knows about.
// It is the unit of serialization for all credit accounting.
type Device struct {
	BaseModel

	DeviceID  string `json:"device_id" gorm:"size:255;uniqueIndex;not null"`
	BillingID string `json:"billing_id" gorm:"size:255;index"` // external billing user id, often equal to DeviceID

	// Credit accounting
	Credits int  `json:"credits" gorm:"default:0"` // never negative
	IsPro   bool `json:"is_pro" gorm:"default:false;index"`

	// Daily credit grant (rolling 24h window anchored to the last claim)
	LastDailyClaimAt *time.Time `json:"last_daily_claim_at"`

	// One-time rewards: false -> true exactly once, never back
	ClaimedSetupReward  bool `json:"claimed_setup_reward" gorm:"default:false"`
	ClaimedReviewReward bool `json:"claimed_review_reward" gorm:"default:false"`

	// Rolling-window rewards: counter accumulates up to a cap, resets when
	// the window anchored at the reset timestamp expires
	AdWatchCount   int        `json:"ad_watch_count" gorm:"default:0"`
	AdWatchResetAt *time.Time `json:"ad_watch_reset_at"`
	BonusAdCount   int        `json:"bonus_ad_count" gorm:"default:0"`
	BonusAdResetAt *time.Time `json:"bonus_ad_reset_at"`
}
