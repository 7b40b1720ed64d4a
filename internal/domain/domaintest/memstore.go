// Package domaintest provides an in-memory domain.Store for tests that
// exercise services and handlers without PostgreSQL.
package domaintest

import (
	"context"
	"sync"
	"time"

	"server/internal/domain"
)

// Store is an in-memory domain.Store with transaction rollback. InTx
// serializes callers the way the database serializes conflicting row
// updates. Tests seed and inspect Data directly.
type Store struct {
	mu       sync.Mutex
	Data     *Data
	BeginErr error
}

// Data holds the backing state. Maps are keyed by row id.
type Data struct {
	Campaigns map[string]domain.Campaign
	Rewards   map[string]domain.Reward
	Donations []domain.Donation
	Tiers     map[string]domain.MembershipTier
	Subs      map[string]domain.Subscription
	Events    map[string]bool
}

func NewStore() *Store {
	return &Store{Data: &Data{
		Campaigns: make(map[string]domain.Campaign),
		Rewards:   make(map[string]domain.Reward),
		Tiers:     make(map[string]domain.MembershipTier),
		Subs:      make(map[string]domain.Subscription),
		Events:    make(map[string]bool),
	}}
}

func (d *Data) clone() *Data {
	c := &Data{
		Campaigns: make(map[string]domain.Campaign, len(d.Campaigns)),
		Rewards:   make(map[string]domain.Reward, len(d.Rewards)),
		Donations: append([]domain.Donation(nil), d.Donations...),
		Tiers:     make(map[string]domain.MembershipTier, len(d.Tiers)),
		Subs:      make(map[string]domain.Subscription, len(d.Subs)),
		Events:    make(map[string]bool, len(d.Events)),
	}
	for k, v := range d.Campaigns {
		c.Campaigns[k] = v
	}
	for k, v := range d.Rewards {
		c.Rewards[k] = v
	}
	for k, v := range d.Tiers {
		c.Tiers[k] = v
	}
	for k, v := range d.Subs {
		c.Subs[k] = v
	}
	for k, v := range d.Events {
		c.Events[k] = v
	}
	return c
}

func (s *Store) InTx(ctx context.Context, fn func(q domain.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BeginErr != nil {
		return s.BeginErr
	}

	snapshot := s.Data.clone()
	if err := fn(&queries{d: s.Data}); err != nil {
		s.Data = snapshot
		return err
	}
	return nil
}

// Non-transactional reads take the same lock and delegate to queries.

func (s *Store) CampaignByID(ctx context.Context, id string) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).CampaignByID(ctx, id)
}

func (s *Store) AddToCampaignTotal(ctx context.Context, id string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).AddToCampaignTotal(ctx, id, delta)
}

func (s *Store) RewardByID(ctx context.Context, id string) (*domain.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).RewardByID(ctx, id)
}

func (s *Store) ClaimReward(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).ClaimReward(ctx, id)
}

func (s *Store) ReleaseReward(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).ReleaseReward(ctx, id)
}

func (s *Store) InsertDonation(ctx context.Context, donation *domain.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).InsertDonation(ctx, donation)
}

func (s *Store) RecentDonations(ctx context.Context, limit int) ([]domain.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).RecentDonations(ctx, limit)
}

func (s *Store) TierByID(ctx context.Context, id string) (*domain.MembershipTier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).TierByID(ctx, id)
}

func (s *Store) ClaimTierSeat(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).ClaimTierSeat(ctx, id)
}

func (s *Store) ReleaseTierSeat(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).ReleaseTierSeat(ctx, id)
}

func (s *Store) SubscriptionByID(ctx context.Context, id string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).SubscriptionByID(ctx, id)
}

func (s *Store) SubscriptionByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).SubscriptionByExternalID(ctx, externalID)
}

func (s *Store) ActiveSubscription(ctx context.Context, subscriberID, creatorID string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).ActiveSubscription(ctx, subscriberID, creatorID)
}

func (s *Store) InsertSubscription(ctx context.Context, sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).InsertSubscription(ctx, sub)
}

func (s *Store) UpdateSubscription(ctx context.Context, id string, patch domain.SubscriptionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).UpdateSubscription(ctx, id, patch)
}

func (s *Store) OverdueSubscriptions(ctx context.Context, before time.Time, limit int) ([]domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).OverdueSubscriptions(ctx, before, limit)
}

func (s *Store) MarkEventApplied(ctx context.Context, identity, kind, externalSubscriptionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&queries{d: s.Data}).MarkEventApplied(ctx, identity, kind, externalSubscriptionID)
}

// queries implements domain.Queries over unsynchronized data; Store guards
// every entry point.
type queries struct {
	d *Data
}

func (q *queries) CampaignByID(_ context.Context, id string) (*domain.Campaign, error) {
	c, ok := q.d.Campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (q *queries) AddToCampaignTotal(_ context.Context, id string, delta int64) error {
	c, ok := q.d.Campaigns[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.CurrentAmount += delta
	q.d.Campaigns[id] = c
	return nil
}

func (q *queries) RewardByID(_ context.Context, id string) (*domain.Reward, error) {
	r, ok := q.d.Rewards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (q *queries) ClaimReward(_ context.Context, id string) error {
	r, ok := q.d.Rewards[id]
	if !ok {
		return domain.ErrExhausted
	}
	if r.LimitedQuantity != nil && r.ClaimedCount >= *r.LimitedQuantity {
		return domain.ErrExhausted
	}
	r.ClaimedCount++
	q.d.Rewards[id] = r
	return nil
}

func (q *queries) ReleaseReward(_ context.Context, id string) error {
	r, ok := q.d.Rewards[id]
	if ok && r.ClaimedCount > 0 {
		r.ClaimedCount--
		q.d.Rewards[id] = r
	}
	return nil
}

func (q *queries) InsertDonation(_ context.Context, donation *domain.Donation) error {
	q.d.Donations = append(q.d.Donations, *donation)
	return nil
}

func (q *queries) RecentDonations(_ context.Context, limit int) ([]domain.Donation, error) {
	var items []domain.Donation
	for i := len(q.d.Donations) - 1; i >= 0 && len(items) < limit; i-- {
		items = append(items, q.d.Donations[i])
	}
	return items, nil
}

func (q *queries) TierByID(_ context.Context, id string) (*domain.MembershipTier, error) {
	t, ok := q.d.Tiers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (q *queries) ClaimTierSeat(_ context.Context, id string) error {
	t, ok := q.d.Tiers[id]
	if !ok {
		return domain.ErrExhausted
	}
	if t.MaxSubscribers != nil && t.CurrentSubscribers >= *t.MaxSubscribers {
		return domain.ErrExhausted
	}
	t.CurrentSubscribers++
	q.d.Tiers[id] = t
	return nil
}

func (q *queries) ReleaseTierSeat(_ context.Context, id string) error {
	t, ok := q.d.Tiers[id]
	if ok && t.CurrentSubscribers > 0 {
		t.CurrentSubscribers--
		q.d.Tiers[id] = t
	}
	return nil
}

func (q *queries) SubscriptionByID(_ context.Context, id string) (*domain.Subscription, error) {
	s, ok := q.d.Subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (q *queries) SubscriptionByExternalID(_ context.Context, externalID string) (*domain.Subscription, error) {
	for _, s := range q.d.Subs {
		if s.ExternalSubscriptionID == externalID {
			sub := s
			return &sub, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (q *queries) ActiveSubscription(_ context.Context, subscriberID, creatorID string) (*domain.Subscription, error) {
	for _, s := range q.d.Subs {
		if s.SubscriberID == subscriberID && s.CreatorID == creatorID && s.Status == domain.SubscriptionActive {
			sub := s
			return &sub, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (q *queries) InsertSubscription(_ context.Context, sub *domain.Subscription) error {
	q.d.Subs[sub.ID] = *sub
	return nil
}

func (q *queries) UpdateSubscription(_ context.Context, id string, patch domain.SubscriptionPatch) error {
	s, ok := q.d.Subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.Status != nil {
		s.Status = *patch.Status
	}
	switch {
	case patch.NextBillingDate != nil:
		next := *patch.NextBillingDate
		s.NextBillingDate = &next
	case patch.ClearNextBillingDate:
		s.NextBillingDate = nil
	}
	if patch.CancelledAt != nil {
		at := *patch.CancelledAt
		s.CancelledAt = &at
	}
	q.d.Subs[id] = s
	return nil
}

func (q *queries) OverdueSubscriptions(_ context.Context, before time.Time, limit int) ([]domain.Subscription, error) {
	var items []domain.Subscription
	for _, s := range q.d.Subs {
		if s.Status == domain.SubscriptionActive && s.NextBillingDate != nil && s.NextBillingDate.Before(before) {
			items = append(items, s)
			if len(items) == limit {
				break
			}
		}
	}
	return items, nil
}

func (q *queries) MarkEventApplied(_ context.Context, identity, kind, externalSubscriptionID string) (bool, error) {
	if q.d.Events[identity] {
		return false, nil
	}
	q.d.Events[identity] = true
	return true, nil
}
