package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/metrics"
)

// DonationProcessor validates and records donations. A donation and its
// optional reward claim and campaign credit are one transaction: they all
// land or none do, so a donor never pays for an unavailable reward and the
// campaign total never drifts from its donations.
type DonationProcessor struct {
	store domain.Store
	log   zerolog.Logger
}

// NewDonationProcessor creates a donation processor.
func NewDonationProcessor(store domain.Store, log zerolog.Logger) *DonationProcessor {
	return &DonationProcessor{store: store, log: log}
}

// CreateDonationInput carries a donation request. DonorID is nil for
// anonymous, unauthenticated donors.
type CreateDonationInput struct {
	CampaignID string
	DonorID    *string
	Amount     int64
	RewardID   *string
	Message    string
	Anonymous  bool
}

// CreateDonation records a completed donation against a campaign,
// optionally claiming a limited reward. Failures are safe to retry with a
// fresh request; no partial state survives.
func (p *DonationProcessor) CreateDonation(ctx context.Context, in CreateDonationInput) (*domain.Donation, error) {
	start := time.Now()
	status := "error"
	defer func() { metrics.RecordDonation(status, time.Since(start)) }()

	if in.Amount <= 0 {
		status = "rejected"
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if in.CampaignID == "" {
		status = "rejected"
		return nil, fmt.Errorf("%w: campaignId is required", domain.ErrValidation)
	}

	donation := &domain.Donation{
		ID:         uuid.NewString(),
		CampaignID: in.CampaignID,
		DonorID:    in.DonorID,
		Amount:     in.Amount,
		RewardID:   in.RewardID,
		Message:    in.Message,
		Anonymous:  in.Anonymous,
		Status:     domain.DonationCompleted,
	}

	err := p.store.InTx(ctx, func(q domain.Queries) error {
		// Re-read under the transaction; the handler may be acting on a
		// campaign that closed since the request was built.
		campaign, err := q.CampaignByID(ctx, in.CampaignID)
		if err != nil {
			return err
		}
		if !campaign.AcceptsDonations() {
			return domain.ErrCampaignNotAccepting
		}

		if in.RewardID != nil {
			reward, err := q.RewardByID(ctx, *in.RewardID)
			if err != nil {
				return err
			}
			if reward.CampaignID != campaign.ID {
				return fmt.Errorf("%w: reward does not belong to campaign", domain.ErrValidation)
			}
			if in.Amount < reward.MinimumAmount {
				return fmt.Errorf("%w: amount below reward minimum", domain.ErrValidation)
			}
			if err := q.ClaimReward(ctx, reward.ID); err != nil {
				return err
			}
		}

		if err := q.InsertDonation(ctx, donation); err != nil {
			return err
		}
		return q.AddToCampaignTotal(ctx, campaign.ID, in.Amount)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrExhausted):
			status = "exhausted"
		case errors.Is(err, domain.ErrValidation),
			errors.Is(err, domain.ErrNotFound),
			errors.Is(err, domain.ErrCampaignNotAccepting):
			status = "rejected"
		}
		return nil, err
	}

	status = "success"
	p.log.Info().
		Str("donation_id", donation.ID).
		Str("campaign_id", donation.CampaignID).
		Int64("amount", donation.Amount).
		Msg("donation recorded")
	return donation, nil
}

// RecentDonations lists the latest donations for the public supporters feed.
func (p *DonationProcessor) RecentDonations(ctx context.Context, limit int) ([]domain.Donation, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return p.store.RecentDonations(ctx, limit)
}
