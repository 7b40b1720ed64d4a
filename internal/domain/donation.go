package domain

import "time"

// DonationStatus enumerates donation states. Completed is the only terminal
// success state; rows are immutable once created.
type DonationStatus string

const (
	DonationCompleted DonationStatus = "completed"
)

// Donation represents a supporter contribution record.
type Donation struct {
	ID         string
	CampaignID string
	DonorID    *string
	Amount     int64
	RewardID   *string
	Message    string
	Anonymous  bool
	Status     DonationStatus
	CreatedAt  time.Time
}
