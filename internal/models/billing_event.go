package models

// BillingWebhookRequest is the envelope the payment provider posts to the
// billing webhook. Fields outside Event are ignored.
type BillingWebhookRequest struct {
	Event BillingEvent `json:"event"`
}

// BillingEvent is a single subscription lifecycle event. The provider sends
// more fields than these; only the ones the reconciler consumes are mapped.
type BillingEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	AppUserID string `json:"app_user_id"`
}

// Billing event types the reconciler understands. Unknown types are
// acknowledged without mutation.
const (
	EventInitialPurchase = "INITIAL_PURCHASE"
	EventRenewal         = "RENEWAL"
	EventProductChange   = "PRODUCT_CHANGE"
	EventUncancellation  = "UNCANCELLATION"
	EventTransfer        = "TRANSFER"
	EventExpiration      = "EXPIRATION"
	EventCancellation    = "CANCELLATION"
	EventBillingIssue    = "BILLING_ISSUE"
)
