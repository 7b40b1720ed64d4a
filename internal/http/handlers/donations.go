package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/service"
)

type donationRequest struct {
	CampaignID string  `json:"campaignId"`
	Amount     int64   `json:"amount"`
	RewardID   *string `json:"rewardId"`
	Message    string  `json:"message"`
	Anonymous  bool    `json:"anonymous"`
}

type donationResponse struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaignId"`
	Amount     int64     `json:"amount"`
	RewardID   *string   `json:"rewardId,omitempty"`
	Message    string    `json:"message,omitempty"`
	Anonymous  bool      `json:"anonymous"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

func donationView(d domain.Donation) donationResponse {
	resp := donationResponse{
		ID:         d.ID,
		CampaignID: d.CampaignID,
		Amount:     d.Amount,
		RewardID:   d.RewardID,
		Anonymous:  d.Anonymous,
		Status:     string(d.Status),
		CreatedAt:  d.CreatedAt,
	}
	if !d.Anonymous {
		resp.Message = d.Message
	}
	return resp
}

func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	in := service.CreateDonationInput{
		CampaignID: req.CampaignID,
		Amount:     req.Amount,
		RewardID:   req.RewardID,
		Message:    req.Message,
		Anonymous:  req.Anonymous,
	}
	if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
		in.DonorID = &userID
	}

	donation, err := a.Donations.CreateDonation(r.Context(), in)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, donationView(*donation))
}

func (a *App) DonationsRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	donations, err := a.Donations.RecentDonations(r.Context(), limit)
	if err != nil {
		a.domainError(w, err)
		return
	}

	items := make([]donationResponse, 0, len(donations))
	for _, d := range donations {
		items = append(items, donationView(d))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
