package domain

import "time"

// SubscriptionStatus enumerates subscription lifecycle states.
// Cancelled is terminal.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// allowedTransitions is the complete transition table. Anything absent is
// illegal and treated as a no-op by the lifecycle manager, because the
// stored status may already reflect a newer event that arrived first.
// Active -> Active is listed so a paid invoice can refresh the billing date.
var allowedTransitions = map[SubscriptionStatus]map[SubscriptionStatus]bool{
	SubscriptionActive: {
		SubscriptionActive:    true,
		SubscriptionPaused:    true,
		SubscriptionExpired:   true,
		SubscriptionCancelled: true,
	},
	SubscriptionPaused: {
		SubscriptionActive:    true,
		SubscriptionCancelled: true,
	},
	SubscriptionExpired: {
		SubscriptionActive:    true,
		SubscriptionCancelled: true,
	},
	SubscriptionCancelled: {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to SubscriptionStatus) bool {
	return allowedTransitions[from][to]
}

// Subscription is a supporter's membership in a creator tier. Rows are never
// deleted; cancellation marks the row and keeps it as an audit trail.
type Subscription struct {
	ID                     string
	SubscriberID           string
	CreatorID              string
	TierID                 string
	Status                 SubscriptionStatus
	ExternalSubscriptionID string
	NextBillingDate        *time.Time
	CancelledAt            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// SubscriptionPatch describes a partial subscription update. Only non-nil
// fields (and explicit clear flags) are written, so callers never build SET
// clauses by hand.
type SubscriptionPatch struct {
	Status               *SubscriptionStatus
	NextBillingDate      *time.Time
	ClearNextBillingDate bool
	CancelledAt          *time.Time
}

// IsZero reports whether the patch would write nothing.
func (p SubscriptionPatch) IsZero() bool {
	return p.Status == nil && p.NextBillingDate == nil && !p.ClearNextBillingDate && p.CancelledAt == nil
}
