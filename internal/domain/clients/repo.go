package clients

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Spok95/barber-club/internal/infra/db"
)

type Repo struct {
	db db.DB
}

func NewRepo(db db.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, barbershop_id, name, phone, created_at
		FROM clients WHERE id = $1
	`, id)

	var c Client
	if err := row.Scan(&c.ID, &c.BarbershopID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
