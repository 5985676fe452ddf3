package services

import (
	"context"
	"time"

	"keyboard-ai-backend/internal/database"
	"keyboard-ai-backend/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// ReplayProtection deduplicates billing webhook deliveries by event ID so
// provider retries do not reapply a transition. Checking and marking are
// separate steps: an event is only marked seen after it was applied, so a
// failed apply stays retryable.
type ReplayProtection struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReplayProtection creates a new replay protection instance
func NewReplayProtection() *ReplayProtection {
	return &ReplayProtection{
		client: database.GetRedis(),
		ttl:    72 * time.Hour,
	}
}

// IsReplay reports whether the event ID was already applied. Events
// without an ID, and any Redis failure, are treated as fresh: applying an
// event twice is harmless (the mapping is idempotent), losing one is not.
func (rp *ReplayProtection) IsReplay(ctx context.Context, eventID string) bool {
	if eventID == "" || rp.client == nil {
		return false
	}

	seen, err := rp.client.Exists(ctx, "billing_event:"+eventID).Result()
	if err != nil {
		logging.Errorf("Replay check failed, processing event anyway - event_id: %s, error: %v", eventID, err)
		return false
	}
	if seen > 0 {
		logging.Infof("Duplicate billing event detected - event_id: %s", eventID)
	}
	return seen > 0
}

// MarkSeen records the event ID after a successful apply. A Redis failure
// is only logged; the worst case is one extra idempotent reapply.
func (rp *ReplayProtection) MarkSeen(ctx context.Context, eventID string) {
	if eventID == "" || rp.client == nil {
		return
	}

	if err := rp.client.Set(ctx, "billing_event:"+eventID, 1, rp.ttl).Err(); err != nil {
		logging.Errorf("Failed to record billing event - event_id: %s, error: %v", eventID, err)
	}
}
