package handlers

import (
	"errors"
	"io"
	"net/http"

	"server/internal/domain"
	"server/internal/payment"
)

// Provider payloads are small; anything bigger is not a webhook.
const maxWebhookBody = 256 << 10

// WebhooksProvider ingests payment provider events. The signature is checked
// over the raw body before anything is parsed. A 2xx stops redelivery, so
// only transient failures return 5xx.
func (a *App) WebhooksProvider(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}

	err = a.Reconciler.Process(r.Context(), body, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			a.error(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "event processing failed")
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"received": true})
}
