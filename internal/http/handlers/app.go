package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/service"
)

type App struct {
	Donations  *service.DonationProcessor
	Lifecycle  *service.LifecycleManager
	Reconciler *service.Reconciler
	Logger     zerolog.Logger
}

func NewApp(donations *service.DonationProcessor, lifecycle *service.LifecycleManager, reconciler *service.Reconciler, logger zerolog.Logger) *App {
	return &App{
		Donations:  donations,
		Lifecycle:  lifecycle,
		Reconciler: reconciler,
		Logger:     logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error":   errCode,
		"message": message,
	})
}

// domainError translates service errors into HTTP responses. Anything not
// matched is an internal failure and gets logged.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrCampaignNotAccepting):
		a.error(w, http.StatusBadRequest, "campaign_not_accepting", "campaign is not accepting donations")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrExhausted):
		a.error(w, http.StatusConflict, "exhausted", "capacity limit reached")
	case errors.Is(err, domain.ErrAlreadySubscribed):
		a.error(w, http.StatusConflict, "already_subscribed", "an active subscription to this creator already exists")
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", "request conflicts with current state")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusForbidden, "forbidden", "not allowed")
	case errors.Is(err, domain.ErrExternalService):
		a.Logger.Error().Err(err).Msg("payment provider call failed")
		a.error(w, http.StatusBadGateway, "provider_unavailable", "payment provider unavailable")
	default:
		a.Logger.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
