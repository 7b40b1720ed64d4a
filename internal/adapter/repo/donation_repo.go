package repo

import (
	"context"
	"fmt"

	"server/internal/domain"
)

// InsertDonation records a completed donation. Rows are immutable once
// created; there is no update path.
func (q *queries) InsertDonation(ctx context.Context, donation *domain.Donation) error {
	_, err := q.db.Exec(ctx, `
INSERT INTO donations (id, campaign_id, donor_id, amount, reward_id, message, anonymous, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now());
`, donation.ID, donation.CampaignID, donation.DonorID, donation.Amount, donation.RewardID, donation.Message, donation.Anonymous, donation.Status)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

// RecentDonations returns the latest donations, newest first.
func (q *queries) RecentDonations(ctx context.Context, limit int) ([]domain.Donation, error) {
	rows, err := q.db.Query(ctx, `
SELECT id, campaign_id, donor_id, amount, reward_id, message, anonymous, status, created_at
FROM donations
ORDER BY created_at DESC
LIMIT $1;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Donation
	for rows.Next() {
		var d domain.Donation
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.DonorID, &d.Amount, &d.RewardID, &d.Message, &d.Anonymous, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
