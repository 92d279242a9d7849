package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Plan — тариф VIP-клуба.
type Plan struct {
	ID           uuid.UUID
	BarbershopID uuid.UUID
	Name         string
	Price        float64
	Active       bool
	CreatedAt    time.Time
}

// Unlimited — значение QuantityLimit, при котором услуга в тарифе без ограничений.
const Unlimited = 0

// PlanItem связывает тариф с услугой и месячным лимитом.
type PlanItem struct {
	ID            uuid.UUID
	PlanID        uuid.UUID
	ServiceID     uuid.UUID
	ServiceName   string
	QuantityLimit int
}

func (i PlanItem) IsUnlimited() bool { return i.QuantityLimit == Unlimited }
