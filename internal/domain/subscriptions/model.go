package subscriptions

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusPending  Status = "pending"
	StatusOverdue  Status = "overdue"
	StatusCanceled Status = "canceled"
)

var (
	ErrNotFound       = errors.New("subscriptions: not found")
	ErrInvalidRenewal = errors.New("subscriptions: invalid renewal request")
	ErrInvalidCancel  = errors.New("subscriptions: invalid cancel request")
)

// Subscription — участие клиента в VIP-клубе конкретного барбершопа.
// Записи не удаляются, только меняют статус.
type Subscription struct {
	ID                  uuid.UUID
	ClientID            uuid.UUID
	BarbershopID        uuid.UUID
	PlanID              uuid.UUID
	Status              Status
	NextDueDate         time.Time // календарная дата, без времени
	AsaasSubscriptionID string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UsageRecord — факт использования услуги по подписке. Только вставка.
type UsageRecord struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	ServiceID      uuid.UUID
	AppointmentID  *uuid.UUID
	UsedAt         time.Time
}

const (
	PaymentMethodCash     = "cash"
	TransactionStatusPaid = "paid"
)

// Transaction — запись в журнале оплат.
type Transaction struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	ClientID       uuid.UUID
	BarbershopID   uuid.UUID
	Amount         float64
	PaymentMethod  string
	Status         string
	CreatedAt      time.Time
}

// TransactionRow — строка журнала оплат для отчёта.
type TransactionRow struct {
	Transaction
	ClientName string
}

// UsageRow — сколько раз клиент воспользовался услугой за период и какой у неё лимит.
type UsageRow struct {
	SubscriptionID uuid.UUID
	ClientName     string
	ServiceName    string
	Used           int
	QuantityLimit  int
}
