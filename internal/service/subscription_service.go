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
	"server/internal/payment"
)

// CheckoutProvider creates hosted checkout sessions at the payment
// provider.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, p payment.CheckoutParams) (string, error)
}

// LifecycleManager owns the subscription state machine and tier capacity
// accounting. Every status change, whether user-initiated or driven by the
// webhook reconciler, goes through Transition so both paths share one set
// of invariants.
type LifecycleManager struct {
	store    domain.Store
	checkout CheckoutProvider
	frontend string
	log      zerolog.Logger
	now      func() time.Time
}

// NewLifecycleManager creates a lifecycle manager. frontendBaseURL is where
// the provider redirects after checkout.
func NewLifecycleManager(store domain.Store, checkout CheckoutProvider, frontendBaseURL string, log zerolog.Logger) *LifecycleManager {
	return &LifecycleManager{
		store:    store,
		checkout: checkout,
		frontend: frontendBaseURL,
		log:      log,
		now:      time.Now,
	}
}

// StartCheckout opens a provider checkout session for the tier. The
// subscription itself is created only when the checkout-completed webhook
// arrives; this call just rejects requests that could never be admitted.
func (m *LifecycleManager) StartCheckout(ctx context.Context, subscriberID, tierID string) (string, error) {
	if subscriberID == "" {
		return "", domain.ErrUnauthorized
	}
	if tierID == "" {
		return "", fmt.Errorf("%w: tierId is required", domain.ErrValidation)
	}

	tier, err := m.store.TierByID(ctx, tierID)
	if err != nil {
		return "", err
	}
	if !tier.Active {
		return "", fmt.Errorf("%w: tier is not open for subscription", domain.ErrValidation)
	}

	if _, err := m.store.ActiveSubscription(ctx, subscriberID, tier.CreatorID); err == nil {
		return "", domain.ErrAlreadySubscribed
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	// Advisory only; the binding capacity check is the conditional claim at
	// admission time. This just avoids sending an obviously doomed checkout.
	if tier.MaxSubscribers != nil && tier.CurrentSubscribers >= *tier.MaxSubscribers {
		return "", domain.ErrExhausted
	}

	return m.checkout.CreateCheckoutSession(ctx, payment.CheckoutParams{
		TierID:       tier.ID,
		TierTitle:    tier.Title,
		Price:        tier.Price,
		Interval:     tier.Interval,
		SubscriberID: subscriberID,
		CreatorID:    tier.CreatorID,
		SuccessURL:   m.frontend + "/membership/success",
		CancelURL:    m.frontend + "/membership/cancelled",
	})
}

// CheckoutCompletion carries the identifiers from a checkout-completed
// provider event.
type CheckoutCompletion struct {
	EventIdentity          string
	EventKind              string
	ExternalSubscriptionID string
	SubscriberID           string
	CreatorID              string
	TierID                 string
}

// ActivateFromCheckout admits the subscriber after the provider confirmed
// payment. Replays of the same checkout produce exactly one subscription
// row and exactly one seat claim.
func (m *LifecycleManager) ActivateFromCheckout(ctx context.Context, in CheckoutCompletion) error {
	if in.ExternalSubscriptionID == "" || in.SubscriberID == "" || in.TierID == "" {
		return fmt.Errorf("%w: checkout event metadata incomplete", domain.ErrValidation)
	}

	return m.store.InTx(ctx, func(q domain.Queries) error {
		applied, err := q.MarkEventApplied(ctx, in.EventIdentity, in.EventKind, in.ExternalSubscriptionID)
		if err != nil {
			return err
		}
		if !applied {
			m.log.Debug().Str("event", in.EventIdentity).Msg("checkout event already applied")
			return nil
		}

		// A redelivered checkout may carry a fresh event id; the unique
		// external subscription id catches that replay.
		if _, err := q.SubscriptionByExternalID(ctx, in.ExternalSubscriptionID); err == nil {
			return nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		tier, err := q.TierByID(ctx, in.TierID)
		if err != nil {
			return err
		}

		if _, err := q.ActiveSubscription(ctx, in.SubscriberID, tier.CreatorID); err == nil {
			return domain.ErrAlreadySubscribed
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if err := q.ClaimTierSeat(ctx, tier.ID); err != nil {
			return err
		}

		next := tier.Interval.NextBillingFrom(m.now().UTC())
		sub := &domain.Subscription{
			ID:                     uuid.NewString(),
			SubscriberID:           in.SubscriberID,
			CreatorID:              tier.CreatorID,
			TierID:                 tier.ID,
			Status:                 domain.SubscriptionActive,
			ExternalSubscriptionID: in.ExternalSubscriptionID,
			NextBillingDate:        &next,
		}
		if err := q.InsertSubscription(ctx, sub); err != nil {
			return err
		}

		metrics.RecordTransition("none", string(domain.SubscriptionActive))
		m.log.Info().
			Str("subscription_id", sub.ID).
			Str("tier_id", tier.ID).
			Msg("subscription activated")
		return nil
	})
}

// TransitionRequest is the single entry point payload for status changes.
// EventIdentity de-duplicates externally sourced effects; user actions pass
// a fresh identity per request.
type TransitionRequest struct {
	Target        domain.SubscriptionStatus
	EventIdentity string
	EventKind     string
	RenewBilling  bool
}

// Transition moves a subscription to the target status if that is legal
// from the currently stored status. Illegal transitions, including anything
// after cancellation, succeed as no-ops: the stored status may already
// reflect a newer event that arrived first.
func (m *LifecycleManager) Transition(ctx context.Context, subscriptionID string, req TransitionRequest) error {
	return m.store.InTx(ctx, func(q domain.Queries) error {
		sub, err := q.SubscriptionByID(ctx, subscriptionID)
		if err != nil {
			return err
		}
		return m.transition(ctx, q, sub, req)
	})
}

// TransitionExternal is Transition keyed by the provider's subscription id,
// used by the webhook reconciler.
func (m *LifecycleManager) TransitionExternal(ctx context.Context, externalID string, req TransitionRequest) error {
	return m.store.InTx(ctx, func(q domain.Queries) error {
		sub, err := q.SubscriptionByExternalID(ctx, externalID)
		if err != nil {
			return err
		}
		return m.transition(ctx, q, sub, req)
	})
}

func (m *LifecycleManager) transition(ctx context.Context, q domain.Queries, sub *domain.Subscription, req TransitionRequest) error {
	applied, err := q.MarkEventApplied(ctx, req.EventIdentity, req.EventKind, sub.ExternalSubscriptionID)
	if err != nil {
		return err
	}
	if !applied {
		m.log.Debug().Str("event", req.EventIdentity).Msg("event already applied")
		return nil
	}

	if sub.Status == domain.SubscriptionCancelled {
		// Terminal; replays and late events land here.
		return nil
	}
	if !domain.CanTransition(sub.Status, req.Target) {
		m.log.Info().
			Str("subscription_id", sub.ID).
			Str("from", string(sub.Status)).
			Str("to", string(req.Target)).
			Msg("ignoring out-of-order transition")
		return nil
	}
	if sub.Status == req.Target && !req.RenewBilling {
		return nil
	}

	patch := domain.SubscriptionPatch{Status: &req.Target}
	switch req.Target {
	case domain.SubscriptionCancelled:
		now := m.now().UTC()
		patch.CancelledAt = &now
		patch.ClearNextBillingDate = true
		if err := q.ReleaseTierSeat(ctx, sub.TierID); err != nil {
			return err
		}
	case domain.SubscriptionActive:
		if req.RenewBilling {
			tier, err := q.TierByID(ctx, sub.TierID)
			if err != nil {
				return err
			}
			next := tier.Interval.NextBillingFrom(m.now().UTC())
			patch.NextBillingDate = &next
		}
	}

	if err := q.UpdateSubscription(ctx, sub.ID, patch); err != nil {
		return err
	}

	metrics.RecordTransition(string(sub.Status), string(req.Target))
	m.log.Info().
		Str("subscription_id", sub.ID).
		Str("from", string(sub.Status)).
		Str("to", string(req.Target)).
		Msg("subscription transitioned")
	return nil
}

// SubscriptionForSubscriber loads a subscription and checks ownership, for
// user-initiated lifecycle endpoints.
func (m *LifecycleManager) SubscriptionForSubscriber(ctx context.Context, subscriptionID, subscriberID string) (*domain.Subscription, error) {
	sub, err := m.store.SubscriptionByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.SubscriberID != subscriberID {
		return nil, domain.ErrUnauthorized
	}
	return sub, nil
}

// ExpireOverdue marks active subscriptions expired when their billing date
// is more than grace past due and no invoice event arrived. Run
// periodically by the sweeper. Returns how many subscriptions were
// transitioned.
func (m *LifecycleManager) ExpireOverdue(ctx context.Context, grace time.Duration, limit int) (int, error) {
	cutoff := m.now().UTC().Add(-grace)
	overdue, err := m.store.OverdueSubscriptions(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sub := range overdue {
		// One identity per subscription per day keeps repeated sweeps
		// idempotent without suppressing tomorrow's attempt.
		identity := fmt.Sprintf("sweep:%s:%s", sub.ID, m.now().UTC().Format("2006-01-02"))
		err := m.Transition(ctx, sub.ID, TransitionRequest{
			Target:        domain.SubscriptionExpired,
			EventIdentity: identity,
			EventKind:     "sweep.overdue",
		})
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}
