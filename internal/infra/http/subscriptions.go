package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Spok95/barber-club/internal/domain/subscriptions"
	"github.com/Spok95/barber-club/internal/infra/http/request"
	"github.com/Spok95/barber-club/internal/infra/http/response"
)

// UsageService — *subscriptions.UsageChecker.
type UsageService interface {
	Check(ctx context.Context, clientID, barbershopID, serviceID uuid.UUID) subscriptions.UsageStatus
	RecordUsage(ctx context.Context, subscriptionID, serviceID uuid.UUID, appointmentID *uuid.UUID) bool
	Summary(ctx context.Context, subscriptionID uuid.UUID) ([]subscriptions.ItemUsage, error)
}

// RenewService — *subscriptions.Renewer.
type RenewService interface {
	Renew(ctx context.Context, in subscriptions.RenewalInput) (*subscriptions.RenewalResult, error)
}

type SubscriptionsHandler struct {
	usage  UsageService
	renew  RenewService
	policy subscriptions.Policy
	log    *slog.Logger
}

func NewSubscriptionsHandler(usage UsageService, renew RenewService, policy subscriptions.Policy, log *slog.Logger) *SubscriptionsHandler {
	return &SubscriptionsHandler{usage: usage, renew: renew, policy: policy, log: log}
}

type usageCheckResponse struct {
	subscriptions.UsageStatus
	Allowed       bool `json:"allowed"`
	CoveredByPlan bool `json:"coveredByPlan"`
}

// CheckUsage — GET /api/v1/subscriptions/usage?client_id&barbershop_id&service_id.
// Всегда 200: неопределённый результат отдаётся как outcome=indeterminate.
func (h *SubscriptionsHandler) CheckUsage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID, err := request.UUID("client_id", q.Get("client_id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	shopID, err := request.UUID("barbershop_id", q.Get("barbershop_id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	serviceID, err := request.UUID("service_id", q.Get("service_id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	st := h.usage.Check(r.Context(), clientID, shopID, serviceID)
	response.WriteJSON(w, http.StatusOK, usageCheckResponse{
		UsageStatus:   st,
		Allowed:       st.Allowed(h.policy),
		CoveredByPlan: st.CoveredByPlan(),
	})
}

type recordUsageRequest struct {
	ServiceID     string `json:"service_id" validate:"required,uuid"`
	AppointmentID string `json:"appointment_id" validate:"omitempty,uuid"`
}

// RecordUsage — POST /api/v1/subscriptions/{subscriptionID}/usage.
func (h *SubscriptionsHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	subID, err := request.UUID("subscription_id", chi.URLParam(r, "subscriptionID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req recordUsageRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var appt *uuid.UUID
	if req.AppointmentID != "" {
		id := uuid.MustParse(req.AppointmentID)
		appt = &id
	}
	ok := h.usage.RecordUsage(r.Context(), subID, uuid.MustParse(req.ServiceID), appt)
	response.WriteJSON(w, http.StatusOK, map[string]bool{"recorded": ok})
}

// UsageSummary — GET /api/v1/subscriptions/{subscriptionID}/usage.
func (h *SubscriptionsHandler) UsageSummary(w http.ResponseWriter, r *http.Request) {
	subID, err := request.UUID("subscription_id", chi.URLParam(r, "subscriptionID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.usage.Summary(r.Context(), subID)
	if err != nil {
		if errors.Is(err, subscriptions.ErrNotFound) {
			response.WriteError(w, http.StatusNotFound, "subscription not found")
			return
		}
		h.log.Error("usage summary failed", "subscription_id", subID, "err", err)
		response.WriteError(w, http.StatusInternalServerError, "failed to load usage")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type renewRequest struct {
	ClientID     string  `json:"client_id" validate:"required,uuid"`
	BarbershopID string  `json:"barbershop_id" validate:"required,uuid"`
	PlanPrice    float64 `json:"plan_price" validate:"gt=0"`
	NextDueDate  string  `json:"next_due_date" validate:"required"`
}

// Renew — POST /api/v1/subscriptions/{subscriptionID}/renew (оплата наличными).
func (h *SubscriptionsHandler) Renew(w http.ResponseWriter, r *http.Request) {
	subID, err := request.UUID("subscription_id", chi.URLParam(r, "subscriptionID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req renewRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.renew.Renew(r.Context(), subscriptions.RenewalInput{
		SubscriptionID: subID,
		ClientID:       uuid.MustParse(req.ClientID),
		BarbershopID:   uuid.MustParse(req.BarbershopID),
		PlanPrice:      req.PlanPrice,
		NextDueDate:    req.NextDueDate,
	})
	switch {
	case err == nil:
		h.log.Info("renewal via api", "subscription_id", subID, "user_id", UserID(r.Context()))
		response.WriteJSON(w, http.StatusOK, res)
	case errors.Is(err, subscriptions.ErrInvalidRenewal):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, subscriptions.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, "subscription not found")
	default:
		response.WriteError(w, http.StatusInternalServerError, "Erro ao renovar assinatura")
	}
}

// RenewalPreview — GET /api/v1/subscriptions/renewal-preview?next_due_date=YYYY-MM-DD.
func (h *SubscriptionsHandler) RenewalPreview(w http.ResponseWriter, r *http.Request) {
	p, err := subscriptions.Preview(r.URL.Query().Get("next_due_date"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}
