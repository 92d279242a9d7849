package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Spok95/barber-club/internal/domain/subscriptions"
	"github.com/Spok95/barber-club/internal/infra/http/request"
	"github.com/Spok95/barber-club/internal/infra/http/response"
)

const actionCancel = "cancel"

// Canceler — *subscriptions.Canceler.
type Canceler interface {
	Cancel(ctx context.Context, in subscriptions.CancelInput) (*subscriptions.CancelResult, error)
}

// ConfigChecker — *Client.
type ConfigChecker interface {
	Configured() error
}

type cancelRequest struct {
	Action              string          `json:"action"`
	UserID              string          `json:"user_id" validate:"required,uuid"`
	SubscriptionID      string          `json:"subscription_id" validate:"required,uuid"`
	AsaasSubscriptionID string          `json:"asaas_subscription_id"`
	ChurnSurvey         json.RawMessage `json:"churn_survey"`
}

type cancelResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CallerFunc достаёт id пользователя, проверенного авторизацией; "" — авторизации нет.
type CallerFunc func(ctx context.Context) string

// Handler — удалённая функция отмены подписки VIP-клуба
// (POST /functions/v1/asaas-subscription-actions).
type Handler struct {
	log      *slog.Logger
	config   ConfigChecker
	canceler Canceler
	caller   CallerFunc
}

// caller может быть nil, тогда user_id из тела не сверяется.
func NewHandler(log *slog.Logger, config ConfigChecker, canceler Canceler, caller CallerFunc) *Handler {
	return &Handler{log: log, config: config, canceler: canceler, caller: caller}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		response.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := h.config.Configured(); err != nil {
		h.log.Error("cancel function misconfigured", "err", err)
		response.WriteError(w, http.StatusBadRequest, "ASAAS_API_KEY não configurada")
		return
	}

	var req cancelRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Action != "" && req.Action != actionCancel {
		response.WriteError(w, http.StatusBadRequest, "unsupported action: "+req.Action)
		return
	}
	// отменить можно только свою подписку
	if h.caller != nil {
		if caller := h.caller(r.Context()); caller != "" && !strings.EqualFold(caller, req.UserID) {
			h.log.Warn("cancel rejected: user mismatch",
				"subscription_id", req.SubscriptionID,
				"user_id", req.UserID,
				"caller", caller,
			)
			response.WriteError(w, http.StatusForbidden, "Acesso negado")
			return
		}
	}

	res, err := h.canceler.Cancel(r.Context(), subscriptions.CancelInput{
		UserID:              uuid.MustParse(req.UserID),
		SubscriptionID:      uuid.MustParse(req.SubscriptionID),
		AsaasSubscriptionID: req.AsaasSubscriptionID,
		ChurnSurvey:         req.ChurnSurvey,
	})
	if err != nil {
		h.log.Error("cancel subscription failed",
			"subscription_id", req.SubscriptionID,
			"user_id", req.UserID,
			"err", err,
		)
		msg := "Erro ao cancelar assinatura"
		if errors.Is(err, subscriptions.ErrNotFound) {
			msg = "Assinatura não encontrada"
		}
		response.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	h.log.Info("cancel function done",
		"subscription_id", res.SubscriptionID,
		"processor_canceled", res.ProcessorCanceled,
	)
	response.WriteJSON(w, http.StatusOK, cancelResponse{
		Success: true,
		Message: "Assinatura cancelada com sucesso",
	})
}

// CORS ставит фиксированный набор заголовков на каждый ответ функции,
// включая отказы авторизации. Функцию зовут из браузера с любого origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		next.ServeHTTP(w, r)
	})
}
