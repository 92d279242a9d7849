package clients

import (
	"time"

	"github.com/google/uuid"
)

type Client struct {
	ID           uuid.UUID
	BarbershopID uuid.UUID
	Name         string
	Phone        string
	CreatedAt    time.Time
}

// DisplayName — имя для уведомлений; если имени нет, показываем id.
func (c Client) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return "id " + c.ID.String()
}
