package repo

import (
	"context"
	"fmt"
)

// MarkEventApplied inserts the external event identity, relying on the
// primary key to reject duplicates. A false return means the event was
// applied before and its effects must be skipped.
func (q *queries) MarkEventApplied(ctx context.Context, identity, kind, externalSubscriptionID string) (bool, error) {
	tag, err := q.db.Exec(ctx, `
INSERT INTO payment_events (event_id, kind, external_subscription_id, received_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (event_id) DO NOTHING;
`, identity, kind, externalSubscriptionID)
	if err != nil {
		return false, fmt.Errorf("mark event applied: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
