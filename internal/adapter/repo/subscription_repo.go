package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"server/internal/domain"
)

const tierColumns = `id, campaign_id, creator_id, title, price, billing_interval, max_subscribers, current_subscribers, active, created_at, updated_at`

// TierByID fetches a membership tier by UUID.
func (q *queries) TierByID(ctx context.Context, id string) (*domain.MembershipTier, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tierColumns+` FROM membership_tiers WHERE id = $1`, id)

	var t domain.MembershipTier
	err := row.Scan(&t.ID, &t.CampaignID, &t.CreatorID, &t.Title, &t.Price, &t.Interval,
		&t.MaxSubscribers, &t.CurrentSubscribers, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ClaimTierSeat admits one subscriber while the tier is below its cap.
func (q *queries) ClaimTierSeat(ctx context.Context, id string) error {
	return ledger.Claim(ctx, q.db, tierSeats, id)
}

// ReleaseTierSeat frees one subscriber seat, clamped at zero.
func (q *queries) ReleaseTierSeat(ctx context.Context, id string) error {
	return ledger.Release(ctx, q.db, tierSeats, id)
}

const subscriptionColumns = `id, subscriber_id, creator_id, tier_id, status, external_subscription_id, next_billing_date, cancelled_at, created_at, updated_at`

// SubscriptionByID fetches a subscription by UUID.
func (q *queries) SubscriptionByID(ctx context.Context, id string) (*domain.Subscription, error) {
	row := q.db.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	return scanSubscription(row)
}

// SubscriptionByExternalID fetches a subscription by the payment provider's
// key. The column carries a unique constraint, which makes checkout replay
// detection a single lookup.
func (q *queries) SubscriptionByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error) {
	row := q.db.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE external_subscription_id = $1`, externalID)
	return scanSubscription(row)
}

// ActiveSubscription returns the subscriber's current active subscription to
// the creator, if any.
func (q *queries) ActiveSubscription(ctx context.Context, subscriberID, creatorID string) (*domain.Subscription, error) {
	row := q.db.QueryRow(ctx, `
SELECT `+subscriptionColumns+`
FROM subscriptions
WHERE subscriber_id = $1 AND creator_id = $2 AND status = $3
LIMIT 1;
`, subscriberID, creatorID, domain.SubscriptionActive)
	return scanSubscription(row)
}

// InsertSubscription records a new subscription row.
func (q *queries) InsertSubscription(ctx context.Context, sub *domain.Subscription) error {
	_, err := q.db.Exec(ctx, `
INSERT INTO subscriptions (id, subscriber_id, creator_id, tier_id, status, external_subscription_id, next_billing_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now());
`, sub.ID, sub.SubscriberID, sub.CreatorID, sub.TierID, sub.Status, sub.ExternalSubscriptionID, sub.NextBillingDate)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// UpdateSubscription applies a typed partial update. Only fields present in
// the patch are written.
func (q *queries) UpdateSubscription(ctx context.Context, id string, patch domain.SubscriptionPatch) error {
	assignments, args := subscriptionAssignments(patch)
	if len(assignments) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE subscriptions SET %s WHERE id = $%d;`,
		strings.Join(assignments, ", "), len(args))

	tag, err := q.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// OverdueSubscriptions lists active subscriptions whose billing date passed
// before the given cutoff, oldest first.
func (q *queries) OverdueSubscriptions(ctx context.Context, before time.Time, limit int) ([]domain.Subscription, error) {
	rows, err := q.db.Query(ctx, `
SELECT `+subscriptionColumns+`
FROM subscriptions
WHERE status = $1 AND next_billing_date IS NOT NULL AND next_billing_date < $2
ORDER BY next_billing_date ASC
LIMIT $3;
`, domain.SubscriptionActive, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.ID, &s.SubscriberID, &s.CreatorID, &s.TierID, &s.Status, &s.ExternalSubscriptionID,
			&s.NextBillingDate, &s.CancelledAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// subscriptionAssignments renders a patch into SET fragments with positional
// args. Column names are constants here; nothing is concatenated from
// caller input.
func subscriptionAssignments(p domain.SubscriptionPatch) ([]string, []any) {
	var assignments []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Status != nil {
		add("status", *p.Status)
	}
	switch {
	case p.NextBillingDate != nil:
		add("next_billing_date", *p.NextBillingDate)
	case p.ClearNextBillingDate:
		assignments = append(assignments, "next_billing_date = NULL")
	}
	if p.CancelledAt != nil {
		add("cancelled_at", *p.CancelledAt)
	}
	if len(assignments) > 0 {
		assignments = append(assignments, "updated_at = now()")
	}
	return assignments, args
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(&s.ID, &s.SubscriberID, &s.CreatorID, &s.TierID, &s.Status, &s.ExternalSubscriptionID,
		&s.NextBillingDate, &s.CancelledAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
