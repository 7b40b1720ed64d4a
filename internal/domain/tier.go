package domain

import "time"

// BillingInterval is the billing frequency of a membership tier.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// NextBillingFrom computes the end of a billing period started at t.
func (i BillingInterval) NextBillingFrom(t time.Time) time.Time {
	if i == IntervalYearly {
		return t.AddDate(0, 0, 365)
	}
	return t.AddDate(0, 0, 30)
}

// MembershipTier is a paid membership level offered by a creator.
// MaxSubscribers of nil means unbounded; otherwise CurrentSubscribers never
// exceeds it and never drops below zero.
type MembershipTier struct {
	ID                 string
	CampaignID         string
	CreatorID          string
	Title              string
	Price              int64
	Interval           BillingInterval
	MaxSubscribers     *int32
	CurrentSubscribers int32
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
