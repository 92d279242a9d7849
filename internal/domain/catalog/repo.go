package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Spok95/barber-club/internal/infra/db"
)

type Repo struct{ db db.DB }

func NewRepo(db db.DB) *Repo { return &Repo{db: db} }

/* Plans */

func (r *Repo) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, barbershop_id, name, price, active, created_at
		FROM subscription_plans WHERE id = $1
	`, id)
	var p Plan
	if err := row.Scan(&p.ID, &p.BarbershopID, &p.Name, &p.Price, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// GetPlanItem возвращает позицию тарифа для услуги; (nil, nil) — услуга в тариф не входит.
func (r *Repo) GetPlanItem(ctx context.Context, planID, serviceID uuid.UUID) (*PlanItem, error) {
	row := r.db.QueryRow(ctx, `
		SELECT i.id, i.plan_id, i.service_id, s.name, i.quantity_limit
		FROM subscription_plan_items i
		JOIN services s ON s.id = i.service_id
		WHERE i.plan_id = $1 AND i.service_id = $2
	`, planID, serviceID)
	var it PlanItem
	if err := row.Scan(&it.ID, &it.PlanID, &it.ServiceID, &it.ServiceName, &it.QuantityLimit); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

func (r *Repo) ListPlanItems(ctx context.Context, planID uuid.UUID) ([]PlanItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.plan_id, i.service_id, s.name, i.quantity_limit
		FROM subscription_plan_items i
		JOIN services s ON s.id = i.service_id
		WHERE i.plan_id = $1
		ORDER BY s.name
	`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlanItem
	for rows.Next() {
		var it PlanItem
		if err := rows.Scan(&it.ID, &it.PlanID, &it.ServiceID, &it.ServiceName, &it.QuantityLimit); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
