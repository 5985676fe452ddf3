// Package policy holds the credit and entitlement decision logic as pure
// functions over a device snapshot. It performs no I/O; callers load the
// device, apply a policy function, and persist the result.
package policy

import (
	"time"

	"keyboard-ai-backend/internal/models"
)

// Reward amounts and caps. Claim handlers share two generic patterns
// (one-time and rolling-window) parameterized by this table.
const (
	DailyCreditAmount  = 5
	SetupRewardAmount  = 20
	ReviewRewardAmount = 20
	AdWatchRewardCap   = 5
	AdWatchRewardAmt   = 5
	BonusAdRewardCap   = 3
	BonusAdRewardAmt   = 10

	// DailyWindow is the rolling window for the daily grant and for reward
	// counter resets. Anchored to stored timestamps, not calendar days.
	DailyWindow = 24 * time.Hour
)

// ClaimResult is the outcome of any claim operation. A rejected claim is a
// routine outcome, not an error.
type ClaimResult struct {
	Credits int    `json:"credits"`
	Claimed bool   `json:"claimed"`
	Message string `json:"message"`
}

// CanConsume reports whether the device may invoke a paid tool. It is the
// sole gate for tool access and does not mutate state.
func CanConsume(d *models.Device) bool {
	return d.IsPro || d.Credits > 0
}

// ConsumeCredit decrements the balance by one for non-Pro devices with a
// positive balance; otherwise it is a no-op. The balance never goes
// negative. Must run after successful service delivery, never before.
func ConsumeCredit(d *models.Device) {
	if !d.IsPro && d.Credits > 0 {
		d.Credits--
	}
}

// ClaimDaily grants the daily credits if the last claim is at least one
// window old (or was never made) and re-anchors the window at now.
func ClaimDaily(d *models.Device, now time.Time) ClaimResult {
	if d.LastDailyClaimAt != nil && now.Sub(*d.LastDailyClaimAt) < DailyWindow {
		return ClaimResult{
			Credits: d.Credits,
			Claimed: false,
			Message: "must wait before claiming again",
		}
	}

	d.Credits += DailyCreditAmount
	t := now
	d.LastDailyClaimAt = &t
	return ClaimResult{
		Credits: d.Credits,
		Claimed: true,
		Message: "daily credits claimed",
	}
}

// ClaimOneTime grants a reward gated by a monotonic flag. The flag goes
// false -> true exactly once; a second claim is rejected.
func ClaimOneTime(d *models.Device, flag *bool, rewardAmount int) ClaimResult {
	if *flag {
		return ClaimResult{
			Credits: d.Credits,
			Claimed: false,
			Message: "already claimed",
		}
	}

	*flag = true
	d.Credits += rewardAmount
	return ClaimResult{
		Credits: d.Credits,
		Claimed: true,
		Message: "reward claimed",
	}
}

// ClaimRollingReward grants a reward limited to cap claims per rolling
// window. An expired window resets the counter; the reset timestamp is
// re-anchored only on the first claim of a fresh window so that later
// claims in the same window do not extend it.
func ClaimRollingReward(d *models.Device, counter *int, resetAt **time.Time, cap, rewardAmount int, now time.Time) ClaimResult {
	if *resetAt != nil && now.Sub(**resetAt) >= DailyWindow {
		*counter = 0
		*resetAt = nil
	}

	if *counter >= cap {
		return ClaimResult{
			Credits: d.Credits,
			Claimed: false,
			Message: "limit reached",
		}
	}

	if *resetAt == nil {
		t := now
		*resetAt = &t
	}
	*counter++
	d.Credits += rewardAmount
	return ClaimResult{
		Credits: d.Credits,
		Claimed: true,
		Message: "reward claimed",
	}
}

// ClaimAdWatch grants the ad-watch reward, capped per rolling window.
func ClaimAdWatch(d *models.Device, now time.Time) ClaimResult {
	return ClaimRollingReward(d, &d.AdWatchCount, &d.AdWatchResetAt, AdWatchRewardCap, AdWatchRewardAmt, now)
}

// ClaimBonusAd grants the bonus-ad reward, capped per rolling window.
func ClaimBonusAd(d *models.Device, now time.Time) ClaimResult {
	return ClaimRollingReward(d, &d.BonusAdCount, &d.BonusAdResetAt, BonusAdRewardCap, BonusAdRewardAmt, now)
}
