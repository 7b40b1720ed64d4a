package domain

import "time"

// CampaignStatus enumerates campaign lifecycle states.
type CampaignStatus string

const (
	CampaignActive CampaignStatus = "active"
	CampaignPaused CampaignStatus = "paused"
	CampaignClosed CampaignStatus = "closed"
)

// Campaign represents a creator fundraising campaign. CurrentAmount is a
// running total in minor currency units and must always equal the sum of
// completed donation amounts against the campaign.
type Campaign struct {
	ID            string
	CreatorID     string
	Title         string
	GoalAmount    int64
	CurrentAmount int64
	Status        CampaignStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AcceptsDonations reports whether new donations may be recorded.
func (c Campaign) AcceptsDonations() bool {
	return c.Status == CampaignActive
}

// Reward is a perk a donor may claim alongside a donation. LimitedQuantity
// of nil means unlimited; otherwise ClaimedCount never exceeds it.
type Reward struct {
	ID              string
	CampaignID      string
	Title           string
	MinimumAmount   int64
	LimitedQuantity *int32
	ClaimedCount    int32
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
