package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to SubscriptionStatus
		want     bool
	}{
		{SubscriptionActive, SubscriptionPaused, true},
		{SubscriptionPaused, SubscriptionActive, true},
		{SubscriptionActive, SubscriptionExpired, true},
		{SubscriptionExpired, SubscriptionActive, true},
		{SubscriptionActive, SubscriptionCancelled, true},
		{SubscriptionPaused, SubscriptionCancelled, true},
		{SubscriptionExpired, SubscriptionCancelled, true},
		{SubscriptionActive, SubscriptionActive, true},
		{SubscriptionPaused, SubscriptionExpired, false},
		{SubscriptionExpired, SubscriptionPaused, false},
		{SubscriptionCancelled, SubscriptionActive, false},
		{SubscriptionCancelled, SubscriptionPaused, false},
		{SubscriptionCancelled, SubscriptionExpired, false},
		{SubscriptionCancelled, SubscriptionCancelled, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNextBillingFrom(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, start.AddDate(0, 0, 30), IntervalMonthly.NextBillingFrom(start))
	assert.Equal(t, start.AddDate(0, 0, 365), IntervalYearly.NextBillingFrom(start))
}

func TestSubscriptionPatchIsZero(t *testing.T) {
	assert.True(t, SubscriptionPatch{}.IsZero())

	status := SubscriptionPaused
	assert.False(t, SubscriptionPatch{Status: &status}.IsZero())
	assert.False(t, SubscriptionPatch{ClearNextBillingDate: true}.IsZero())
}
