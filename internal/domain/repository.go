package domain

import (
	"context"
	"time"
)

// Queries defines the data operations shared by request flows and the
// webhook reconciler. The same set is available inside and outside a
// transaction; implementations route every call to the same connection.
type Queries interface {
	// Campaigns and rewards.
	CampaignByID(ctx context.Context, id string) (*Campaign, error)
	AddToCampaignTotal(ctx context.Context, id string, delta int64) error
	RewardByID(ctx context.Context, id string) (*Reward, error)
	// ClaimReward atomically increments the reward's claimed count while it
	// is below its limit. Returns ErrExhausted when the limit is reached.
	ClaimReward(ctx context.Context, id string) error
	ReleaseReward(ctx context.Context, id string) error

	// Donations.
	InsertDonation(ctx context.Context, donation *Donation) error
	RecentDonations(ctx context.Context, limit int) ([]Donation, error)

	// Membership tiers.
	TierByID(ctx context.Context, id string) (*MembershipTier, error)
	// ClaimTierSeat atomically admits one subscriber while the tier is below
	// its cap. Returns ErrExhausted when the tier is full.
	ClaimTierSeat(ctx context.Context, id string) error
	// ReleaseTierSeat decrements the subscriber count, clamped at zero.
	ReleaseTierSeat(ctx context.Context, id string) error

	// Subscriptions.
	SubscriptionByID(ctx context.Context, id string) (*Subscription, error)
	SubscriptionByExternalID(ctx context.Context, externalID string) (*Subscription, error)
	ActiveSubscription(ctx context.Context, subscriberID, creatorID string) (*Subscription, error)
	InsertSubscription(ctx context.Context, sub *Subscription) error
	UpdateSubscription(ctx context.Context, id string, patch SubscriptionPatch) error
	OverdueSubscriptions(ctx context.Context, before time.Time, limit int) ([]Subscription, error)

	// MarkEventApplied records an external event identity. It returns false
	// when the identity was seen before, which makes it the at-most-once
	// gate for webhook effects.
	MarkEventApplied(ctx context.Context, identity, kind, externalSubscriptionID string) (bool, error)
}

// Store is the transactional entry point to persistence. InTx runs fn
// against transaction-scoped queries; any error rolls everything back so no
// partial state is ever committed.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}
