package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/service"
)

type subscribeRequest struct {
	TierID string `json:"tierId"`
}

type subscriptionResponse struct {
	ID              string     `json:"id"`
	CreatorID       string     `json:"creatorId"`
	TierID          string     `json:"tierId"`
	Status          string     `json:"status"`
	NextBillingDate *time.Time `json:"nextBillingDate,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func subscriptionView(s *domain.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:              s.ID,
		CreatorID:       s.CreatorID,
		TierID:          s.TierID,
		Status:          string(s.Status),
		NextBillingDate: s.NextBillingDate,
		CancelledAt:     s.CancelledAt,
		CreatedAt:       s.CreatedAt,
	}
}

// SubscriptionsCreate opens a provider checkout session. The subscription
// row is created later by the checkout-completed webhook.
func (a *App) SubscriptionsCreate(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	checkoutURL, err := a.Lifecycle.StartCheckout(r.Context(), userID, req.TierID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"checkoutUrl": checkoutURL})
}

func (a *App) SubscriptionsGet(w http.ResponseWriter, r *http.Request) {
	sub, ok := a.ownSubscription(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, subscriptionView(sub))
}

func (a *App) SubscriptionsPause(w http.ResponseWriter, r *http.Request) {
	a.userTransition(w, r, domain.SubscriptionPaused, "user.pause")
}

func (a *App) SubscriptionsResume(w http.ResponseWriter, r *http.Request) {
	a.userTransition(w, r, domain.SubscriptionActive, "user.resume")
}

func (a *App) SubscriptionsCancel(w http.ResponseWriter, r *http.Request) {
	a.userTransition(w, r, domain.SubscriptionCancelled, "user.cancel")
}

// userTransition applies a subscriber-initiated status change. Each request
// gets a fresh event identity; the transition table decides whether the
// change applies against the stored status.
func (a *App) userTransition(w http.ResponseWriter, r *http.Request, target domain.SubscriptionStatus, kind string) {
	sub, ok := a.ownSubscription(w, r)
	if !ok {
		return
	}

	err := a.Lifecycle.Transition(r.Context(), sub.ID, service.TransitionRequest{
		Target:        target,
		EventIdentity: "user:" + uuid.NewString(),
		EventKind:     kind,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}

	updated, err := a.Lifecycle.SubscriptionForSubscriber(r.Context(), sub.ID, sub.SubscriberID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, subscriptionView(updated))
}

func (a *App) ownSubscription(w http.ResponseWriter, r *http.Request) (*domain.Subscription, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	sub, err := a.Lifecycle.SubscriptionForSubscriber(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		a.domainError(w, err)
		return nil, false
	}
	return sub, true
}
