package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Spok95/barber-club/internal/infra/db"
)

// Store — всё, что сервисам подписок нужно от хранилища. *Repo ему удовлетворяет.
type Store interface {
	GetActive(ctx context.Context, clientID, barbershopID uuid.UUID) (*Subscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	CountUsage(ctx context.Context, subscriptionID, serviceID uuid.UUID, from, to time.Time) (int, error)
	AddUsage(ctx context.Context, rec UsageRecord) (uuid.UUID, error)
	Renew(ctx context.Context, id uuid.UUID, nextDue time.Time, tr Transaction) (*Renewed, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
}

// Renewed — что вернула транзакция продления.
type Renewed struct {
	TransactionID uuid.UUID
	PlanID        uuid.UUID
}

type Repo struct{ db db.DB }

func NewRepo(db db.DB) *Repo { return &Repo{db: db} }

var _ Store = (*Repo)(nil)

const subscriptionColumns = `id, client_id, barbershop_id, plan_id, status, next_due_date,
	COALESCE(asaas_subscription_id, ''), created_at, updated_at`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var s Subscription
	if err := row.Scan(
		&s.ID,
		&s.ClientID,
		&s.BarbershopID,
		&s.PlanID,
		&s.Status,
		&s.NextDueDate,
		&s.AsaasSubscriptionID,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// GetActive — активная подписка клиента в барбершопе; (nil, nil) если её нет.
func (r *Repo) GetActive(ctx context.Context, clientID, barbershopID uuid.UUID) (*Subscription, error) {
	row := r.db.QueryRow(ctx, `SELECT `+subscriptionColumns+`
		FROM client_subscriptions
		WHERE client_id = $1 AND barbershop_id = $2 AND status = 'active'
		ORDER BY next_due_date DESC
		LIMIT 1`, clientID, barbershopID)
	return scanSubscription(row)
}

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	row := r.db.QueryRow(ctx, `SELECT `+subscriptionColumns+`
		FROM client_subscriptions WHERE id = $1`, id)
	return scanSubscription(row)
}

// CountUsage считает использования услуги в полуинтервале [from, to).
func (r *Repo) CountUsage(ctx context.Context, subscriptionID, serviceID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM subscription_usage
		WHERE subscription_id = $1 AND service_id = $2
		  AND used_at >= $3 AND used_at < $4
	`, subscriptionID, serviceID, from, to).Scan(&n)
	return n, err
}

func (r *Repo) AddUsage(ctx context.Context, rec UsageRecord) (uuid.UUID, error) {
	usedAt := rec.UsedAt
	if usedAt.IsZero() {
		usedAt = time.Now()
	}
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		INSERT INTO subscription_usage (subscription_id, service_id, appointment_id, used_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, rec.SubscriptionID, rec.ServiceID, rec.AppointmentID, usedAt).Scan(&id)
	return id, err
}

// Renew в одной транзакции сдвигает дату следующего платежа, делает подписку активной
// и пишет оплату в журнал. Либо обе записи, либо ни одной.
// Подписка чужого клиента или барбершопа — ErrNotFound.
func (r *Repo) Renew(ctx context.Context, id uuid.UUID, nextDue time.Time, tr Transaction) (*Renewed, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin renew tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var out Renewed
	if err := tx.QueryRow(ctx, `
		UPDATE client_subscriptions
		SET next_due_date = $2,
		    status = 'active',
		    updated_at = NOW()
		WHERE id = $1 AND client_id = $3 AND barbershop_id = $4
		RETURNING plan_id
	`, id, nextDue, tr.ClientID, tr.BarbershopID).Scan(&out.PlanID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO subscription_transactions
		(subscription_id, client_id, barbershop_id, amount, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, id, tr.ClientID, tr.BarbershopID, tr.Amount, tr.PaymentMethod, tr.Status).Scan(&out.TransactionID); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit renew tx: %w", err)
	}
	return &out, nil
}

func (r *Repo) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE client_subscriptions
		SET status = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

/* Отчёты */

func (r *Repo) ListTransactions(ctx context.Context, barbershopID uuid.UUID, from, to time.Time) ([]TransactionRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.subscription_id, t.client_id, t.barbershop_id, t.amount,
		       t.payment_method, t.status, t.created_at, c.name
		FROM subscription_transactions t
		JOIN clients c ON c.id = t.client_id
		WHERE t.barbershop_id = $1 AND t.created_at >= $2 AND t.created_at < $3
		ORDER BY t.created_at
	`, barbershopID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRow
	for rows.Next() {
		var t TransactionRow
		if err := rows.Scan(&t.ID, &t.SubscriptionID, &t.ClientID, &t.BarbershopID, &t.Amount,
			&t.PaymentMethod, &t.Status, &t.CreatedAt, &t.ClientName); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListUsage — использования по активным подпискам барбершопа за период, по каждой позиции тарифа.
func (r *Repo) ListUsage(ctx context.Context, barbershopID uuid.UUID, from, to time.Time) ([]UsageRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT cs.id, c.name, s.name, COUNT(u.id), i.quantity_limit
		FROM client_subscriptions cs
		JOIN clients c ON c.id = cs.client_id
		JOIN subscription_plan_items i ON i.plan_id = cs.plan_id
		JOIN services s ON s.id = i.service_id
		LEFT JOIN subscription_usage u
		       ON u.subscription_id = cs.id AND u.service_id = i.service_id
		      AND u.used_at >= $2 AND u.used_at < $3
		WHERE cs.barbershop_id = $1 AND cs.status = 'active'
		GROUP BY cs.id, c.name, s.name, i.quantity_limit
		ORDER BY c.name, s.name
	`, barbershopID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var u UsageRow
		if err := rows.Scan(&u.SubscriptionID, &u.ClientName, &u.ServiceName, &u.Used, &u.QuantityLimit); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
