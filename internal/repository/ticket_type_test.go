package repository

import (
	"context"
	"testing"

	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicketType(quota *int64) *model.TicketType {
	return &model.TicketType{
		ID:          "tt-1",
		EventID:     "ev-1",
		Name:        "Standard",
		Price:       2500,
		Currency:    "EUR",
		QuotaTotal:  quota,
		MinPerOrder: 1,
		MaxPerOrder: 10,
		Visible:     true,
		Sellable:    true,
	}
}

func TestReserve_LastSeatGoesToExactlyOne(t *testing.T) {
	db := testDB(t)
	repo := NewTicketTypeRepository(db)
	ctx := context.Background()

	quota := int64(1)
	require.NoError(t, db.Create(newTicketType(&quota)).Error)

	first := repo.Reserve(ctx, db, "tt-1", 1)
	second := repo.Reserve(ctx, db, "tt-1", 1)

	require.NoError(t, first)
	require.Error(t, second)
	assert.True(t, apperr.IsQuotaExceeded(second))

	var qe *apperr.QuotaExceeded
	require.ErrorAs(t, second, &qe)
	assert.Equal(t, "Standard", qe.TicketType)
}

func TestReserve_InvariantHoldsAcrossManyAttempts(t *testing.T) {
	db := testDB(t)
	repo := NewTicketTypeRepository(db)
	ctx := context.Background()

	quota := int64(5)
	require.NoError(t, db.Create(newTicketType(&quota)).Error)

	granted := 0
	for i := 0; i < 20; i++ {
		if err := repo.Reserve(ctx, db, "tt-1", 1); err == nil {
			granted++
		}
	}
	assert.Equal(t, 5, granted)

	tt, err := repo.FindByID(ctx, "tt-1")
	require.NoError(t, err)
	assert.LessOrEqual(t, tt.QuotaReserved+tt.QuotaSold, *tt.QuotaTotal)
}

func TestReserve_NilQuotaIsUnlimited(t *testing.T) {
	db := testDB(t)
	repo := NewTicketTypeRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(newTicketType(nil)).Error)

	for i := 0; i < 50; i++ {
		require.NoError(t, repo.Reserve(ctx, db, "tt-1", 10))
	}
}

func TestReserve_UnknownTicketType(t *testing.T) {
	db := testDB(t)
	repo := NewTicketTypeRepository(db)

	err := repo.Reserve(context.Background(), db, "missing", 1)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCommit_MovesReservedToSold(t *testing.T) {
	db := testDB(t)
	repo := NewTicketTypeRepository(db)
	ctx := context.Background()

	quota := int64(10)
	require.NoError(t, db.Create(newTicketType(&quota)).Error)

	require.NoError(t, repo.Reserve(ctx, db, "tt-1", 3))
	require.NoError(t, repo.Commit(ctx, db, "tt-1", 3))

	tt, err := repo.FindByID(ctx, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), tt.QuotaReserved)
	assert.Equal(t, int64(3), tt.QuotaSold)
}

func TestCommit_GuardsAgainstUnderflow(t *testing.T) {
	db := testDB(t)
	repo := NewTicketTypeRepository(db)
	ctx := context.Background()

	quota := int64(10)
	require.NoError(t, db.Create(newTicketType(&quota)).Error)

	require.NoError(t, repo.Reserve(ctx, db, "tt-1", 1))
	assert.Error(t, repo.Commit(ctx, db, "tt-1", 2))
}

func TestRelease_ReturnsSeatsToAvailable(t *testing.T) {
	db := testDB(t)
	repo := NewTicketTypeRepository(db)
	ctx := context.Background()

	quota := int64(2)
	require.NoError(t, db.Create(newTicketType(&quota)).Error)

	require.NoError(t, repo.Reserve(ctx, db, "tt-1", 2))
	require.Error(t, repo.Reserve(ctx, db, "tt-1", 1))

	require.NoError(t, repo.Release(ctx, db, "tt-1", 2))
	assert.NoError(t, repo.Reserve(ctx, db, "tt-1", 1))
}
