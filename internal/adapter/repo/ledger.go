package repo

import (
	"context"
	"fmt"

	"server/internal/domain"
)

// CounterSpec names the table and columns of a capacity-guarded counter.
// Specs are package-level values, so column names are fixed at compile time
// and never assembled from request data.
type CounterSpec struct {
	Table string
	Count string
	Limit string
}

var (
	rewardClaims = CounterSpec{Table: "rewards", Count: "claimed_count", Limit: "limited_quantity"}
	tierSeats    = CounterSpec{Table: "membership_tiers", Count: "current_subscribers", Limit: "max_subscribers"}
)

// CapacityLedger claims and releases capacity-limited counters with single
// conditional updates. Reading the counter and writing it back from
// application memory races under concurrent callers and must never be used
// for these columns.
type CapacityLedger struct{}

var ledger CapacityLedger

// Claim increments the counter while it is still below its limit. A NULL
// limit means unbounded. Zero affected rows means the limit was already
// reached; existence of the row is the caller's concern.
func (CapacityLedger) Claim(ctx context.Context, db DB, spec CounterSpec, id string) error {
	query := fmt.Sprintf(`
UPDATE %s
SET %s = %s + 1, updated_at = now()
WHERE id = $1 AND (%s IS NULL OR %s < %s);
`, spec.Table, spec.Count, spec.Count, spec.Limit, spec.Count, spec.Limit)

	tag, err := db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("claim %s: %w", spec.Table, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExhausted
	}
	return nil
}

// Release decrements the counter, clamped at zero. Releasing an already
// empty counter affects no rows and is not an error.
func (CapacityLedger) Release(ctx context.Context, db DB, spec CounterSpec, id string) error {
	query := fmt.Sprintf(`
UPDATE %s
SET %s = %s - 1, updated_at = now()
WHERE id = $1 AND %s > 0;
`, spec.Table, spec.Count, spec.Count, spec.Count)

	if _, err := db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("release %s: %w", spec.Table, err)
	}
	return nil
}
