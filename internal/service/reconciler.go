package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/metrics"
	"server/internal/payment"
)

// Reconciler ingests payment-provider webhook events and drives the
// subscription lifecycle from external truth. The provider delivers at
// least once and in no particular order; everything here is written so a
// duplicate or late event cannot corrupt state.
type Reconciler struct {
	lifecycle *LifecycleManager
	secret    string
	log       zerolog.Logger
}

// NewReconciler creates a reconciler verifying deliveries with the shared
// webhook signing secret.
func NewReconciler(lifecycle *LifecycleManager, signingSecret string, log zerolog.Logger) *Reconciler {
	return &Reconciler{lifecycle: lifecycle, secret: signingSecret, log: log}
}

// Process handles one webhook delivery. A non-nil return means the handler
// should make the provider retry: domain.ErrUnauthorized for a bad
// signature (400), anything else is transient storage failure (5xx).
// Unknown kinds, replays and unprocessable payloads return nil so the
// provider stops redelivering them.
func (r *Reconciler) Process(ctx context.Context, body []byte, signature string) error {
	if err := payment.VerifySignature(r.secret, body, signature); err != nil {
		metrics.RecordWebhookEvent("unknown", "unauthorized")
		return err
	}

	evt, err := payment.ParseEvent(body)
	if err != nil {
		r.log.Warn().Err(err).Msg("discarding malformed webhook payload")
		metrics.RecordWebhookEvent("unknown", "skipped")
		return nil
	}

	if !evt.Kind.Known() {
		r.log.Info().Str("kind", string(evt.Kind)).Msg("acknowledging unrecognized event kind")
		metrics.RecordWebhookEvent(string(evt.Kind), "skipped")
		return nil
	}

	if err := r.apply(ctx, evt); err != nil {
		if permanent(err) {
			// Retrying would replay the same failure forever; acknowledge
			// and leave the trail in the log.
			r.log.Warn().
				Err(err).
				Str("kind", string(evt.Kind)).
				Str("external_subscription_id", evt.ExternalSubscriptionID).
				Msg("acknowledging unprocessable event")
			metrics.RecordWebhookEvent(string(evt.Kind), "skipped")
			return nil
		}
		metrics.RecordWebhookEvent(string(evt.Kind), "error")
		return err
	}

	metrics.RecordWebhookEvent(string(evt.Kind), "processed")
	return nil
}

func (r *Reconciler) apply(ctx context.Context, evt *payment.Event) error {
	switch evt.Kind {
	case payment.EventCheckoutCompleted:
		return r.lifecycle.ActivateFromCheckout(ctx, CheckoutCompletion{
			EventIdentity:          evt.Identity(),
			EventKind:              string(evt.Kind),
			ExternalSubscriptionID: evt.ExternalSubscriptionID,
			SubscriberID:           evt.Metadata["userId"],
			CreatorID:              evt.Metadata["creatorId"],
			TierID:                 evt.Metadata["tierId"],
		})

	case payment.EventSubscriptionUpdated:
		target, ok := targetForProviderStatus(evt.ProviderStatus)
		if !ok {
			r.log.Info().Str("status", evt.ProviderStatus).Msg("ignoring unmapped provider status")
			return nil
		}
		return r.transition(ctx, evt, target, false)

	case payment.EventSubscriptionDeleted:
		return r.transition(ctx, evt, domain.SubscriptionCancelled, false)

	case payment.EventInvoicePaid:
		return r.transition(ctx, evt, domain.SubscriptionActive, true)

	case payment.EventInvoiceFailed:
		return r.transition(ctx, evt, domain.SubscriptionExpired, false)
	}
	return nil
}

func (r *Reconciler) transition(ctx context.Context, evt *payment.Event, target domain.SubscriptionStatus, renew bool) error {
	return r.lifecycle.TransitionExternal(ctx, evt.ExternalSubscriptionID, TransitionRequest{
		Target:        target,
		EventIdentity: evt.Identity(),
		EventKind:     string(evt.Kind),
		RenewBilling:  renew,
	})
}

func targetForProviderStatus(status string) (domain.SubscriptionStatus, bool) {
	switch status {
	case "active":
		return domain.SubscriptionActive, true
	case "past_due", "unpaid":
		return domain.SubscriptionExpired, true
	case "paused":
		return domain.SubscriptionPaused, true
	}
	return "", false
}

// permanent reports whether the failure would repeat on redelivery.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrExhausted) ||
		errors.Is(err, domain.ErrAlreadySubscribed) ||
		errors.Is(err, domain.ErrConflict)
}
