package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory-api/internal/adapter/storage"
	"github.com/rl1809/inventory-api/internal/core/domain"
	"github.com/rl1809/inventory-api/internal/port"
)

func newTestRepository(t *testing.T) (*InventoryRepository, *time.Time) {
	t.Helper()
	clock := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	repo := NewInventoryRepository(storage.NewMemoryGateway())
	repo.now = func() time.Time { return clock }
	return repo, &clock
}

func TestAdd_ThenGetByID(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	shipment := time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)
	created, err := repo.Add(ctx, domain.InventoryItem{ID: 1, ProductName: "Widget", Quantity: 10, ShipmentDate: shipment})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, created, *got)
	assert.Equal(t, "Widget", got.ProductName)
	assert.Equal(t, 10, got.Quantity)
	assert.True(t, got.ShipmentDate.Equal(shipment))
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.UTC), got.CreatedAt)
}

func TestAdd_StoreAssignsID(t *testing.T) {
	repo, _ := newTestRepository(t)

	created, err := repo.Add(context.Background(), domain.InventoryItem{ProductName: "Gadget"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestAdd_DuplicateIDSurfacesStorageError(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, domain.InventoryItem{ID: 1})
	require.NoError(t, err)

	_, err = repo.Add(ctx, domain.InventoryItem{ID: 1})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestGetByID_Absent(t *testing.T) {
	repo, _ := newTestRepository(t)

	got, err := repo.GetByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetAll(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	items, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	for _, name := range []string{"Item1", "Item2"} {
		_, err := repo.Add(ctx, domain.InventoryItem{ProductName: name})
		require.NoError(t, err)
	}

	items, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestUpdate_OverwritesMutableFields(t *testing.T) {
	repo, clock := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Add(ctx, domain.InventoryItem{ID: 1, ProductName: "Widget", Quantity: 10})
	require.NoError(t, err)

	*clock = clock.Add(time.Hour)
	shipment := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	updated, err := repo.Update(ctx, domain.InventoryItem{
		ID:           1,
		ProductName:  "Widget v2",
		Quantity:     15,
		ShipmentDate: shipment,
		CreatedAt:    time.Unix(0, 0),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, int64(1), updated.ID)
	assert.Equal(t, "Widget v2", updated.ProductName)
	assert.Equal(t, 15, updated.Quantity)
	assert.True(t, updated.ShipmentDate.Equal(shipment))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt, "createdAt is not part of the update")
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, *updated, *got)
}

func TestUpdate_Absent(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	updated, err := repo.Update(ctx, domain.InventoryItem{ID: 9, Quantity: 1})
	require.NoError(t, err)
	assert.Nil(t, updated)

	items, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "update of a missing item must not create it")
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, domain.InventoryItem{ID: 1})
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, 1)
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

type failingGateway struct{ err error }

func (g failingGateway) Begin(ctx context.Context) (port.Session, error) { return nil, g.err }

func TestStorageErrorsPropagate(t *testing.T) {
	boom := errors.New("connection refused")
	repo := NewInventoryRepository(failingGateway{err: boom})
	ctx := context.Background()

	_, err := repo.Add(ctx, domain.InventoryItem{})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetByID(ctx, 1)
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetAll(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = repo.Update(ctx, domain.InventoryItem{ID: 1})
	assert.ErrorIs(t, err, boom)

	_, err = repo.Delete(ctx, 1)
	assert.ErrorIs(t, err, boom)
}

func TestRecordMapping_ZeroShipmentDate(t *testing.T) {
	rec := itemToRecord(domain.InventoryItem{ID: 1})
	assert.False(t, rec.ShipmentDate.Valid)

	item := recordToItem(rec)
	assert.True(t, item.ShipmentDate.IsZero())
}
