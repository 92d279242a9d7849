package clients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/barber-club/internal/infra/db/dbtest"
)

func TestRepo_GetByID(t *testing.T) {
	mdb := &dbtest.MockDB{}
	repo := NewRepo(mdb)
	ctx := context.Background()
	id := uuid.New()
	shop := uuid.New()

	mdb.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{id}).Return(&dbtest.Row{
		ScanFunc: func(dest ...any) error {
			*dest[0].(*uuid.UUID) = id
			*dest[1].(*uuid.UUID) = shop
			*dest[2].(*string) = "João"
			*dest[3].(*string) = "+5511999990000"
			*dest[4].(*time.Time) = time.Now()
			return nil
		},
	})

	c, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "João", c.Name)
	assert.Equal(t, shop, c.BarbershopID)
	mdb.AssertExpectations(t)
}

func TestRepo_GetByID_NotFound(t *testing.T) {
	mdb := &dbtest.MockDB{}
	repo := NewRepo(mdb)
	ctx := context.Background()

	mdb.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(dbtest.ErrRow(pgx.ErrNoRows))

	c, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestRepo_GetByID_Error(t *testing.T) {
	mdb := &dbtest.MockDB{}
	repo := NewRepo(mdb)
	ctx := context.Background()

	mdb.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(dbtest.ErrRow(errors.New("conn reset")))

	_, err := repo.GetByID(ctx, uuid.New())
	require.Error(t, err)
}

func TestClient_DisplayName(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	assert.Equal(t, "Ana", Client{ID: id, Name: "Ana"}.DisplayName())
	assert.Equal(t, "id 11111111-1111-1111-1111-111111111111", Client{ID: id}.DisplayName())
}
