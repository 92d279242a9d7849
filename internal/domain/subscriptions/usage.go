package subscriptions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/barber-club/internal/domain/catalog"
	"github.com/Spok95/barber-club/internal/infra/metrics"
)

// Outcome — итог проверки лимита.
type Outcome string

const (
	// OutcomeEligible — проверка ничего не запрещает (в том числе когда подписки нет).
	OutcomeEligible Outcome = "eligible"
	// OutcomeRestricted — месячный лимит по услуге исчерпан.
	OutcomeRestricted Outcome = "restricted"
	// OutcomeIndeterminate — не смогли прочитать данные; решение за вызывающим.
	OutcomeIndeterminate Outcome = "indeterminate"
)

// Policy — что делать с OutcomeIndeterminate.
type Policy int

const (
	FailOpen Policy = iota
	FailClosed
)

type UsageStatus struct {
	HasActiveSubscription bool       `json:"hasActiveSubscription"`
	IsServiceInPlan       bool       `json:"isServiceInPlan"`
	IsWithinLimit         bool       `json:"isWithinLimit"`
	CurrentUsage          int        `json:"currentUsage"`
	QuantityLimit         int        `json:"quantityLimit"`
	SubscriptionID        *uuid.UUID `json:"subscriptionId,omitempty"`
	Outcome               Outcome    `json:"outcome"`
	Reason                string     `json:"reason,omitempty"`
}

// Allowed — можно ли продолжать запись с учётом политики для неопределённого результата.
func (s UsageStatus) Allowed(p Policy) bool {
	switch s.Outcome {
	case OutcomeRestricted:
		return false
	case OutcomeIndeterminate:
		return p == FailOpen
	default:
		return true
	}
}

// CoveredByPlan — услугу можно провести по подписке, а не по обычной цене.
func (s UsageStatus) CoveredByPlan() bool {
	return s.Outcome == OutcomeEligible && s.HasActiveSubscription && s.IsServiceInPlan && s.IsWithinLimit
}

// WithinLimit: 0 — безлимит, иначе строго меньше лимита.
func WithinLimit(used, limit int) bool {
	return limit == catalog.Unlimited || used < limit
}

// MonthWindow — полуинтервал [1-е число 00:00, 1-е число следующего месяца) в поясе loc.
func MonthWindow(now time.Time, loc *time.Location) (from, to time.Time) {
	if loc == nil {
		loc = time.Local
	}
	n := now.In(loc)
	from = time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc)
	to = from.AddDate(0, 1, 0)
	return from, to
}

// PlanCatalog — справочник тарифов. *catalog.Repo ему удовлетворяет.
type PlanCatalog interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*catalog.Plan, error)
	GetPlanItem(ctx context.Context, planID, serviceID uuid.UUID) (*catalog.PlanItem, error)
	ListPlanItems(ctx context.Context, planID uuid.UUID) ([]catalog.PlanItem, error)
}

type UsageChecker struct {
	store   Store
	catalog PlanCatalog
	log     *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewUsageChecker(store Store, plans PlanCatalog, log *slog.Logger, loc *time.Location) *UsageChecker {
	if loc == nil {
		loc = time.Local
	}
	return &UsageChecker{store: store, catalog: plans, log: log, loc: loc, now: time.Now}
}

// Check отвечает, укладывается ли клиент в месячный лимит услуги по своей подписке.
// Ошибки чтения не возвращаются: результат помечается OutcomeIndeterminate
// с IsWithinLimit=true, чтобы сбой проверки не блокировал запись.
func (c *UsageChecker) Check(ctx context.Context, clientID, barbershopID, serviceID uuid.UUID) UsageStatus {
	st := c.check(ctx, clientID, barbershopID, serviceID)
	metrics.UsageChecksTotal.WithLabelValues(string(st.Outcome)).Inc()
	return st
}

func (c *UsageChecker) check(ctx context.Context, clientID, barbershopID, serviceID uuid.UUID) UsageStatus {
	sub, err := c.store.GetActive(ctx, clientID, barbershopID)
	if err != nil {
		c.log.Warn("usage check: subscription lookup failed",
			"client_id", clientID, "barbershop_id", barbershopID, "err", err)
		return UsageStatus{IsWithinLimit: true, Outcome: OutcomeIndeterminate, Reason: "subscription lookup failed"}
	}
	if sub == nil {
		return UsageStatus{IsWithinLimit: true, Outcome: OutcomeEligible, Reason: "no active subscription"}
	}

	st := UsageStatus{HasActiveSubscription: true, IsWithinLimit: true, SubscriptionID: &sub.ID}

	item, err := c.catalog.GetPlanItem(ctx, sub.PlanID, serviceID)
	if err != nil {
		c.log.Warn("usage check: plan item lookup failed",
			"subscription_id", sub.ID, "service_id", serviceID, "err", err)
		st.Outcome = OutcomeIndeterminate
		st.Reason = "plan lookup failed"
		return st
	}
	if item == nil {
		st.Outcome = OutcomeEligible
		st.Reason = "service not in plan"
		return st
	}

	st.IsServiceInPlan = true
	st.QuantityLimit = item.QuantityLimit

	from, to := MonthWindow(c.now(), c.loc)
	used, err := c.store.CountUsage(ctx, sub.ID, serviceID, from, to)
	if err != nil {
		c.log.Warn("usage check: usage count failed",
			"subscription_id", sub.ID, "service_id", serviceID, "err", err)
		st.Outcome = OutcomeIndeterminate
		st.Reason = "usage count failed"
		return st
	}

	st.CurrentUsage = used
	st.IsWithinLimit = WithinLimit(used, item.QuantityLimit)
	if st.IsWithinLimit {
		st.Outcome = OutcomeEligible
	} else {
		st.Outcome = OutcomeRestricted
		st.Reason = fmt.Sprintf("monthly limit reached (%d/%d)", used, item.QuantityLimit)
	}
	return st
}

// RecordUsage фиксирует использование услуги после подтверждённой записи.
// Ошибка только логируется; что делать с самой записью — решает вызывающий.
func (c *UsageChecker) RecordUsage(ctx context.Context, subscriptionID, serviceID uuid.UUID, appointmentID *uuid.UUID) bool {
	_, err := c.store.AddUsage(ctx, UsageRecord{
		SubscriptionID: subscriptionID,
		ServiceID:      serviceID,
		AppointmentID:  appointmentID,
		UsedAt:         c.now(),
	})
	if err != nil {
		c.log.Error("record usage failed",
			"subscription_id", subscriptionID, "service_id", serviceID, "err", err)
		metrics.UsageRecordsTotal.WithLabelValues("error").Inc()
		return false
	}
	metrics.UsageRecordsTotal.WithLabelValues("ok").Inc()
	return true
}

// ItemUsage — «использовано X из Y» по одной услуге тарифа.
type ItemUsage struct {
	ServiceID     uuid.UUID `json:"serviceId"`
	ServiceName   string    `json:"serviceName"`
	Used          int       `json:"used"`
	QuantityLimit int       `json:"quantityLimit"`
	Remaining     int       `json:"remaining"` // -1 — безлимит
}

// Summary — использование по всем услугам тарифа за текущий месяц.
// В отличие от Check ошибки здесь возвращаются: это экран, а не шлагбаум.
func (c *UsageChecker) Summary(ctx context.Context, subscriptionID uuid.UUID) ([]ItemUsage, error) {
	sub, err := c.store.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if sub == nil {
		return nil, ErrNotFound
	}

	items, err := c.catalog.ListPlanItems(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("list plan items: %w", err)
	}

	from, to := MonthWindow(c.now(), c.loc)
	out := make([]ItemUsage, 0, len(items))
	for _, it := range items {
		used, err := c.store.CountUsage(ctx, sub.ID, it.ServiceID, from, to)
		if err != nil {
			return nil, fmt.Errorf("count usage for service %s: %w", it.ServiceID, err)
		}
		remaining := -1
		if !it.IsUnlimited() {
			remaining = max(it.QuantityLimit-used, 0)
		}
		out = append(out, ItemUsage{
			ServiceID:     it.ServiceID,
			ServiceName:   it.ServiceName,
			Used:          used,
			QuantityLimit: it.QuantityLimit,
			Remaining:     remaining,
		})
	}
	return out, nil
}
