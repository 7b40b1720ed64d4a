package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
	"server/internal/domain/domaintest"
	"server/internal/payment"
)

type fakeCheckout struct {
	lastParams payment.CheckoutParams
	err        error
}

func (f *fakeCheckout) CreateCheckoutSession(_ context.Context, p payment.CheckoutParams) (string, error) {
	f.lastParams = p
	if f.err != nil {
		return "", f.err
	}
	return "https://pay.example.com/session/cs_1", nil
}

var testNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newLifecycle(store *domaintest.Store, checkout *fakeCheckout) *LifecycleManager {
	m := NewLifecycleManager(store, checkout, "https://app.example.com", zerolog.Nop())
	m.now = func() time.Time { return testNow }
	return m
}

func seedTier(store *domaintest.Store, id string, maxSubscribers *int32) {
	store.Data.Tiers[id] = domain.MembershipTier{
		ID:             id,
		CampaignID:     "camp-1",
		CreatorID:      "creator-1",
		Title:          "backstage",
		Price:          900,
		Interval:       domain.IntervalMonthly,
		MaxSubscribers: maxSubscribers,
		Active:         true,
	}
}

func activate(t *testing.T, m *LifecycleManager, eventID, extID, subscriberID, tierID string) {
	t.Helper()
	err := m.ActivateFromCheckout(context.Background(), CheckoutCompletion{
		EventIdentity:          eventID,
		EventKind:              "checkout.session.completed",
		ExternalSubscriptionID: extID,
		SubscriberID:           subscriberID,
		CreatorID:              "creator-1",
		TierID:                 tierID,
	})
	require.NoError(t, err)
}

func TestStartCheckout_CreatesProviderSession(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", nil)
	checkout := &fakeCheckout{}
	m := newLifecycle(store, checkout)

	url, err := m.StartCheckout(context.Background(), "user-1", "tier-1")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/session/cs_1", url)

	assert.Equal(t, "user-1", checkout.lastParams.SubscriberID)
	assert.Equal(t, "creator-1", checkout.lastParams.CreatorID)
	assert.Equal(t, "tier-1", checkout.lastParams.TierID)
	assert.Equal(t, "https://app.example.com/membership/success", checkout.lastParams.SuccessURL)
}

func TestStartCheckout_RequiresPrincipal(t *testing.T) {
	m := newLifecycle(domaintest.NewStore(), &fakeCheckout{})

	_, err := m.StartCheckout(context.Background(), "", "tier-1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestStartCheckout_InactiveTier(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", nil)
	tier := store.Data.Tiers["tier-1"]
	tier.Active = false
	store.Data.Tiers["tier-1"] = tier
	m := newLifecycle(store, &fakeCheckout{})

	_, err := m.StartCheckout(context.Background(), "user-1", "tier-1")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStartCheckout_AlreadySubscribed(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", nil)
	m := newLifecycle(store, &fakeCheckout{})
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")

	_, err := m.StartCheckout(context.Background(), "user-1", "tier-1")
	assert.ErrorIs(t, err, domain.ErrAlreadySubscribed)
}

func TestStartCheckout_FullTier(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", int32ptr(1))
	m := newLifecycle(store, &fakeCheckout{})
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")

	_, err := m.StartCheckout(context.Background(), "user-2", "tier-1")
	assert.ErrorIs(t, err, domain.ErrExhausted)
}

func TestActivateFromCheckout_AdmitsAndSchedulesBilling(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", int32ptr(5))
	m := newLifecycle(store, &fakeCheckout{})

	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")

	sub, err := store.SubscriptionByExternalID(context.Background(), "sub_ext_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, sub.Status)
	require.NotNil(t, sub.NextBillingDate)
	assert.Equal(t, testNow.AddDate(0, 0, 30), *sub.NextBillingDate)
	assert.Equal(t, int32(1), store.Data.Tiers["tier-1"].CurrentSubscribers)
}

func TestActivateFromCheckout_ReplaySameEvent(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", int32ptr(5))
	m := newLifecycle(store, &fakeCheckout{})

	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")

	assert.Len(t, store.Data.Subs, 1)
	assert.Equal(t, int32(1), store.Data.Tiers["tier-1"].CurrentSubscribers)
}

func TestActivateFromCheckout_ReplayWithFreshEventID(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", int32ptr(5))
	m := newLifecycle(store, &fakeCheckout{})

	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")
	activate(t, m, "evt-2", "sub_ext_1", "user-1", "tier-1")

	assert.Len(t, store.Data.Subs, 1)
	assert.Equal(t, int32(1), store.Data.Tiers["tier-1"].CurrentSubscribers)
}

func TestActivateFromCheckout_FullTierAdmitsNobodyPastLimit(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", int32ptr(1))
	m := newLifecycle(store, &fakeCheckout{})
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")

	err := m.ActivateFromCheckout(context.Background(), CheckoutCompletion{
		EventIdentity:          "evt-2",
		EventKind:              "checkout.session.completed",
		ExternalSubscriptionID: "sub_ext_2",
		SubscriberID:           "user-2",
		CreatorID:              "creator-1",
		TierID:                 "tier-1",
	})
	assert.ErrorIs(t, err, domain.ErrExhausted)
	assert.Len(t, store.Data.Subs, 1)
	assert.Equal(t, int32(1), store.Data.Tiers["tier-1"].CurrentSubscribers)
}

func TestActivateFromCheckout_IncompleteMetadata(t *testing.T) {
	m := newLifecycle(domaintest.NewStore(), &fakeCheckout{})

	err := m.ActivateFromCheckout(context.Background(), CheckoutCompletion{
		EventIdentity:          "evt-1",
		ExternalSubscriptionID: "sub_ext_1",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func subID(t *testing.T, store *domaintest.Store, extID string) string {
	t.Helper()
	sub, err := store.SubscriptionByExternalID(context.Background(), extID)
	require.NoError(t, err)
	return sub.ID
}

func TestTransition_PauseAndResume(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", nil)
	m := newLifecycle(store, &fakeCheckout{})
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")
	id := subID(t, store, "sub_ext_1")

	require.NoError(t, m.Transition(context.Background(), id, TransitionRequest{
		Target: domain.SubscriptionPaused, EventIdentity: "user-act-1", EventKind: "user.pause",
	}))
	assert.Equal(t, domain.SubscriptionPaused, store.Data.Subs[id].Status)

	require.NoError(t, m.Transition(context.Background(), id, TransitionRequest{
		Target: domain.SubscriptionActive, EventIdentity: "user-act-2", EventKind: "user.resume",
	}))
	assert.Equal(t, domain.SubscriptionActive, store.Data.Subs[id].Status)
}

func TestTransition_CancelReleasesSeatAndMarksRow(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", int32ptr(1))
	m := newLifecycle(store, &fakeCheckout{})
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")
	id := subID(t, store, "sub_ext_1")

	require.NoError(t, m.Transition(context.Background(), id, TransitionRequest{
		Target: domain.SubscriptionCancelled, EventIdentity: "user-act-1", EventKind: "user.cancel",
	}))

	sub := store.Data.Subs[id]
	assert.Equal(t, domain.SubscriptionCancelled, sub.Status)
	assert.Nil(t, sub.NextBillingDate)
	require.NotNil(t, sub.CancelledAt)
	assert.Equal(t, testNow, *sub.CancelledAt)
	assert.Equal(t, int32(0), store.Data.Tiers["tier-1"].CurrentSubscribers)
}

func TestTransition_CancelledIsAbsorbing(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", int32ptr(1))
	m := newLifecycle(store, &fakeCheckout{})
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")
	id := subID(t, store, "sub_ext_1")

	require.NoError(t, m.Transition(context.Background(), id, TransitionRequest{
		Target: domain.SubscriptionCancelled, EventIdentity: "user-act-1", EventKind: "user.cancel",
	}))

	// Every later attempt succeeds without changing anything, and the seat
	// is never released twice.
	for i, target := range []domain.SubscriptionStatus{
		domain.SubscriptionActive, domain.SubscriptionPaused, domain.SubscriptionCancelled,
	} {
		require.NoError(t, m.Transition(context.Background(), id, TransitionRequest{
			Target: target, EventIdentity: "late-" + string(rune('a'+i)), EventKind: "late",
		}))
	}
	assert.Equal(t, domain.SubscriptionCancelled, store.Data.Subs[id].Status)
	assert.Equal(t, int32(0), store.Data.Tiers["tier-1"].CurrentSubscribers)
}

func TestTransition_IllegalIsNoOp(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", nil)
	m := newLifecycle(store, &fakeCheckout{})
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")
	id := subID(t, store, "sub_ext_1")

	require.NoError(t, m.Transition(context.Background(), id, TransitionRequest{
		Target: domain.SubscriptionPaused, EventIdentity: "e-pause", EventKind: "user.pause",
	}))

	// Paused -> expired is not in the table; the stored status wins.
	require.NoError(t, m.Transition(context.Background(), id, TransitionRequest{
		Target: domain.SubscriptionExpired, EventIdentity: "e-late", EventKind: "invoice.payment_failed",
	}))
	assert.Equal(t, domain.SubscriptionPaused, store.Data.Subs[id].Status)
}

func TestTransition_DuplicateIdentitySkipped(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", nil)
	m := newLifecycle(store, &fakeCheckout{})
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")
	id := subID(t, store, "sub_ext_1")

	require.NoError(t, m.Transition(context.Background(), id, TransitionRequest{
		Target: domain.SubscriptionPaused, EventIdentity: "e-1", EventKind: "user.pause",
	}))
	require.NoError(t, m.Transition(context.Background(), id, TransitionRequest{
		Target: domain.SubscriptionActive, EventIdentity: "e-2", EventKind: "user.resume",
	}))

	// Redelivery of the first event must not pause again.
	require.NoError(t, m.Transition(context.Background(), id, TransitionRequest{
		Target: domain.SubscriptionPaused, EventIdentity: "e-1", EventKind: "user.pause",
	}))
	assert.Equal(t, domain.SubscriptionActive, store.Data.Subs[id].Status)
}

func TestTransition_InvoicePaidRenewsBillingDate(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", nil)
	m := newLifecycle(store, &fakeCheckout{})
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")
	id := subID(t, store, "sub_ext_1")

	require.NoError(t, m.Transition(context.Background(), id, TransitionRequest{
		Target: domain.SubscriptionExpired, EventIdentity: "e-fail", EventKind: "invoice.payment_failed",
	}))
	require.Equal(t, domain.SubscriptionExpired, store.Data.Subs[id].Status)

	require.NoError(t, m.TransitionExternal(context.Background(), "sub_ext_1", TransitionRequest{
		Target: domain.SubscriptionActive, EventIdentity: "e-paid", EventKind: "invoice.paid", RenewBilling: true,
	}))

	sub := store.Data.Subs[id]
	assert.Equal(t, domain.SubscriptionActive, sub.Status)
	require.NotNil(t, sub.NextBillingDate)
	assert.Equal(t, testNow.AddDate(0, 0, 30), *sub.NextBillingDate)
}

func TestSubscriptionForSubscriber_ChecksOwnership(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", nil)
	m := newLifecycle(store, &fakeCheckout{})
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")
	id := subID(t, store, "sub_ext_1")

	_, err := m.SubscriptionForSubscriber(context.Background(), id, "user-1")
	require.NoError(t, err)

	_, err = m.SubscriptionForSubscriber(context.Background(), id, "user-2")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestExpireOverdue(t *testing.T) {
	store := domaintest.NewStore()
	seedTier(store, "tier-1", nil)
	m := newLifecycle(store, &fakeCheckout{})
	activate(t, m, "evt-1", "sub_ext_1", "user-1", "tier-1")
	id := subID(t, store, "sub_ext_1")

	// Push the billing date past the grace window.
	overdue := testNow.AddDate(0, 0, -40)
	sub := store.Data.Subs[id]
	sub.NextBillingDate = &overdue
	store.Data.Subs[id] = sub

	n, err := m.ExpireOverdue(context.Background(), 72*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.SubscriptionExpired, store.Data.Subs[id].Status)

	// A second sweep the same day finds nothing active and changes nothing.
	n, err = m.ExpireOverdue(context.Background(), 72*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, domain.SubscriptionExpired, store.Data.Subs[id].Status)
}
