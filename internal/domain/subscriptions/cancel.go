package subscriptions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Spok95/barber-club/internal/infra/metrics"
)

// Processor — платёжный провайдер, у которого живёт рекуррентная подписка.
// alreadyCanceled=true, если провайдер такой подписки уже не знает.
type Processor interface {
	CancelSubscription(ctx context.Context, processorID string) (alreadyCanceled bool, err error)
}

type CancelInput struct {
	UserID              uuid.UUID
	SubscriptionID      uuid.UUID
	AsaasSubscriptionID string
	ChurnSurvey         json.RawMessage
}

type CancelResult struct {
	SubscriptionID    uuid.UUID
	ProcessorCanceled bool // провайдер подтвердил отмену (или подписки там уже не было)
	ProcessorError    string
}

type Canceler struct {
	store     Store
	processor Processor
	notifier  Notifier
	log       *slog.Logger
}

func NewCanceler(store Store, p Processor, n Notifier, log *slog.Logger) *Canceler {
	return &Canceler{store: store, processor: p, notifier: n, log: log}
}

// Cancel отменяет подписку сначала у провайдера (по возможности), потом локально.
// Ошибка провайдера не останавливает отмену; ошибка локального обновления — фатальна,
// локальный статус считается источником правды.
func (c *Canceler) Cancel(ctx context.Context, in CancelInput) (*CancelResult, error) {
	if in.UserID == uuid.Nil || in.SubscriptionID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id and subscription_id are required", ErrInvalidCancel)
	}

	res := &CancelResult{SubscriptionID: in.SubscriptionID}

	if in.AsaasSubscriptionID != "" && c.processor != nil {
		already, err := c.processor.CancelSubscription(ctx, in.AsaasSubscriptionID)
		switch {
		case err != nil:
			res.ProcessorError = err.Error()
			c.log.Warn("processor cancel failed, continuing with local cancel",
				"subscription_id", in.SubscriptionID,
				"asaas_subscription_id", in.AsaasSubscriptionID,
				"err", err,
			)
		case already:
			res.ProcessorCanceled = true
			c.log.Info("subscription not found at processor, treating as canceled",
				"asaas_subscription_id", in.AsaasSubscriptionID)
		default:
			res.ProcessorCanceled = true
		}
	}

	if err := c.store.SetStatus(ctx, in.SubscriptionID, StatusCanceled); err != nil {
		metrics.CancellationsTotal.WithLabelValues("error").Inc()
		c.log.Error("local cancel failed", "subscription_id", in.SubscriptionID, "user_id", in.UserID, "err", err)
		return nil, fmt.Errorf("cancel subscription %s: %w", in.SubscriptionID, err)
	}
	metrics.CancellationsTotal.WithLabelValues("ok").Inc()
	c.log.Info("subscription canceled", "subscription_id", in.SubscriptionID, "user_id", in.UserID)

	survey := churnSurvey(in.ChurnSurvey)
	if survey != "" {
		// опрос пока никуда не сохраняем — только лог и уведомление
		c.log.Info("churn survey received", "subscription_id", in.SubscriptionID, "survey", survey)
	}
	c.notify(ctx, in.SubscriptionID, survey)

	return res, nil
}

func (c *Canceler) notify(ctx context.Context, id uuid.UUID, survey string) {
	if c.notifier == nil {
		return
	}
	text := fmt.Sprintf("✂️ Clube VIP: assinatura %s cancelada.", id)
	if survey != "" {
		text += "\nPesquisa de cancelamento: " + survey
	}
	if err := c.notifier.Notify(ctx, text); err != nil {
		c.log.Warn("cancel notification failed", "subscription_id", id, "err", err)
	}
}

func churnSurvey(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
