package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"server/internal/domain"
)

const campaignColumns = `id, creator_id, title, goal_amount, current_amount, status, created_at, updated_at`

// CampaignByID fetches a campaign by UUID.
func (q *queries) CampaignByID(ctx context.Context, id string) (*domain.Campaign, error) {
	row := q.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	return scanCampaign(row)
}

// AddToCampaignTotal credits the campaign running total by delta. The
// increment happens in the database so concurrent donations never lose an
// update.
func (q *queries) AddToCampaignTotal(ctx context.Context, id string, delta int64) error {
	tag, err := q.db.Exec(ctx, `
UPDATE campaigns
SET current_amount = current_amount + $2, updated_at = now()
WHERE id = $1;
`, id, delta)
	if err != nil {
		return fmt.Errorf("add to campaign total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const rewardColumns = `id, campaign_id, title, minimum_amount, limited_quantity, claimed_count, created_at, updated_at`

// RewardByID fetches a reward by UUID.
func (q *queries) RewardByID(ctx context.Context, id string) (*domain.Reward, error) {
	row := q.db.QueryRow(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, id)

	var r domain.Reward
	if err := row.Scan(&r.ID, &r.CampaignID, &r.Title, &r.MinimumAmount, &r.LimitedQuantity, &r.ClaimedCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// ClaimReward takes one unit of a limited reward.
func (q *queries) ClaimReward(ctx context.Context, id string) error {
	return ledger.Claim(ctx, q.db, rewardClaims, id)
}

// ReleaseReward returns one unit of a limited reward, used on refund.
func (q *queries) ReleaseReward(ctx context.Context, id string) error {
	return ledger.Release(ctx, q.db, rewardClaims, id)
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	if err := row.Scan(&c.ID, &c.CreatorID, &c.Title, &c.GoalAmount, &c.CurrentAmount, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
