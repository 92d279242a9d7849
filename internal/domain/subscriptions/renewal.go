package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/barber-club/internal/domain/clients"
	"github.com/Spok95/barber-club/internal/infra/metrics"
)

const (
	// RenewalPeriodDays — ручное продление всегда сдвигает дату ровно на 30 дней,
	// без привязки к концу месяца.
	RenewalPeriodDays = 30

	DateLayout  = "2006-01-02"
	LabelLayout = "02/01/2006"
)

// Notifier — уведомления администратору барбершопа.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// ClientDirectory — поиск клиента для текста уведомлений. *clients.Repo ему удовлетворяет.
type ClientDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*clients.Client, error)
}

// NextDueDate — текущая дата платежа + 30 календарных дней (31.01 → 02.03).
func NextDueDate(current time.Time) time.Time {
	return current.AddDate(0, 0, RenewalPeriodDays)
}

func ParseDueDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

type RenewalPreview struct {
	CurrentDueDate  string `json:"currentDueDate"`
	NewDueDate      string `json:"newDueDate"`
	CurrentDueLabel string `json:"currentDueLabel"`
	NewDueLabel     string `json:"newDueLabel"`
}

// Preview считает даты до/после продления, ничего не записывая.
func Preview(currentDue string) (RenewalPreview, error) {
	p, _, err := preview(currentDue)
	return p, err
}

// preview — то же, что Preview, плюс новая дата как time.Time.
func preview(currentDue string) (RenewalPreview, time.Time, error) {
	cur, err := ParseDueDate(currentDue)
	if err != nil {
		return RenewalPreview{}, time.Time{}, fmt.Errorf("%w: bad next_due_date %q", ErrInvalidRenewal, currentDue)
	}
	next := NextDueDate(cur)
	return RenewalPreview{
		CurrentDueDate:  cur.Format(DateLayout),
		NewDueDate:      next.Format(DateLayout),
		CurrentDueLabel: cur.Format(LabelLayout),
		NewDueLabel:     next.Format(LabelLayout),
	}, next, nil
}

type RenewalInput struct {
	SubscriptionID uuid.UUID
	ClientID       uuid.UUID
	BarbershopID   uuid.UUID
	PlanPrice      float64
	NextDueDate    string // YYYY-MM-DD, текущая дата следующего платежа
}

func (in RenewalInput) validate() error {
	switch {
	case in.SubscriptionID == uuid.Nil:
		return fmt.Errorf("%w: subscription_id is required", ErrInvalidRenewal)
	case in.ClientID == uuid.Nil:
		return fmt.Errorf("%w: client_id is required", ErrInvalidRenewal)
	case in.BarbershopID == uuid.Nil:
		return fmt.Errorf("%w: barbershop_id is required", ErrInvalidRenewal)
	case in.PlanPrice <= 0:
		return fmt.Errorf("%w: plan_price must be > 0", ErrInvalidRenewal)
	}
	return nil
}

type RenewalResult struct {
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	TransactionID  uuid.UUID `json:"transactionId"`
	Amount         float64   `json:"amount"`
	RenewalPreview
}

type Renewer struct {
	store    Store
	plans    PlanCatalog
	clients  ClientDirectory
	notifier Notifier
	log      *slog.Logger
}

func NewRenewer(store Store, plans PlanCatalog, cl ClientDirectory, n Notifier, log *slog.Logger) *Renewer {
	return &Renewer{store: store, plans: plans, clients: cl, notifier: n, log: log}
}

// Renew — ручное продление (оплата наличными в барбершопе).
// Обновление подписки и запись оплаты идут одной транзакцией хранилища.
func (r *Renewer) Renew(ctx context.Context, in RenewalInput) (*RenewalResult, error) {
	if err := in.validate(); err != nil {
		metrics.RenewalsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	dates, next, err := preview(in.NextDueDate)
	if err != nil {
		metrics.RenewalsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	renewed, err := r.store.Renew(ctx, in.SubscriptionID, next, Transaction{
		SubscriptionID: in.SubscriptionID,
		ClientID:       in.ClientID,
		BarbershopID:   in.BarbershopID,
		Amount:         in.PlanPrice,
		PaymentMethod:  PaymentMethodCash,
		Status:         TransactionStatusPaid,
	})
	if err != nil {
		metrics.RenewalsTotal.WithLabelValues("error").Inc()
		r.log.Error("renew subscription failed", "subscription_id", in.SubscriptionID, "err", err)
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("renew subscription %s: %w", in.SubscriptionID, err)
	}

	metrics.RenewalsTotal.WithLabelValues("ok").Inc()
	r.log.Info("subscription renewed",
		"subscription_id", in.SubscriptionID,
		"transaction_id", renewed.TransactionID,
		"next_due_date", dates.NewDueDate,
		"amount", in.PlanPrice,
	)

	r.notify(ctx, in, renewed.PlanID, dates)

	return &RenewalResult{
		SubscriptionID: in.SubscriptionID,
		TransactionID:  renewed.TransactionID,
		Amount:         in.PlanPrice,
		RenewalPreview: dates,
	}, nil
}

func (r *Renewer) notify(ctx context.Context, in RenewalInput, planID uuid.UUID, p RenewalPreview) {
	if r.notifier == nil {
		return
	}
	who := "id " + in.ClientID.String()
	if r.clients != nil {
		if c, err := r.clients.GetByID(ctx, in.ClientID); err == nil && c != nil {
			who = c.DisplayName()
		}
	}
	plan := ""
	if r.plans != nil {
		if pl, err := r.plans.GetPlan(ctx, planID); err == nil && pl != nil {
			plan = " (" + pl.Name + ")"
		}
	}
	text := fmt.Sprintf("💈 Clube VIP: assinatura de %s%s renovada.\nPagamento em dinheiro: %s\nVencimento: %s → %s",
		who, plan, FormatBRL(in.PlanPrice), p.CurrentDueLabel, p.NewDueLabel)
	if err := r.notifier.Notify(ctx, text); err != nil {
		r.log.Warn("renewal notification failed", "subscription_id", in.SubscriptionID, "err", err)
	}
}

// FormatBRL форматирует сумму как «R$ 1234,50».
func FormatBRL(v float64) string {
	return "R$ " + strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
}
