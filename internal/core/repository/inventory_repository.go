package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rl1809/inventory-api/internal/core/domain"
	"github.com/rl1809/inventory-api/internal/port"
)

type InventoryRepository struct {
	gateway port.Gateway
	now     func() time.Time
}

func NewInventoryRepository(gateway port.Gateway) *InventoryRepository {
	return &InventoryRepository{
		gateway: gateway,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *InventoryRepository) Add(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	sess, err := r.gateway.Begin(ctx)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("begin session: %w", err)
	}
	defer sess.Rollback()

	now := r.timestamp()
	rec := itemToRecord(item)
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := sess.Add(ctx, &rec); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("add item: %w", err)
	}
	if err := sess.Commit(); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("commit add: %w", err)
	}

	return recordToItem(rec), nil
}

func (r *InventoryRepository) GetByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	sess, err := r.gateway.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	defer sess.Rollback()

	rec, err := sess.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find item %d: %w", id, err)
	}
	if rec == nil {
		return nil, nil
	}

	item := recordToItem(*rec)
	return &item, nil
}

func (r *InventoryRepository) GetAll(ctx context.Context) ([]domain.InventoryItem, error) {
	sess, err := r.gateway.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	defer sess.Rollback()

	recs, err := sess.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}

	items := make([]domain.InventoryItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, recordToItem(rec))
	}
	return items, nil
}

// Update overwrites product name, quantity and shipment date of the stored item.
// ID and CreatedAt are kept from the stored row.
func (r *InventoryRepository) Update(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	sess, err := r.gateway.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	defer sess.Rollback()

	existing, err := sess.FindByID(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("find item %d: %w", item.ID, err)
	}
	if existing == nil {
		return nil, nil
	}

	incoming := itemToRecord(item)
	existing.ProductName = incoming.ProductName
	existing.Quantity = incoming.Quantity
	existing.ShipmentDate = incoming.ShipmentDate
	existing.UpdatedAt = r.timestamp()

	if err := sess.Save(ctx, *existing); err != nil {
		return nil, fmt.Errorf("save item %d: %w", item.ID, err)
	}
	if err := sess.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}

	updated := recordToItem(*existing)
	return &updated, nil
}

func (r *InventoryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	sess, err := r.gateway.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin session: %w", err)
	}
	defer sess.Rollback()

	existing, err := sess.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("find item %d: %w", id, err)
	}
	if existing == nil {
		return false, nil
	}

	if err := sess.Remove(ctx, id); err != nil {
		return false, fmt.Errorf("remove item %d: %w", id, err)
	}
	if err := sess.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}

	return true, nil
}

// MySQL DATETIME(6) keeps microseconds, so timestamps are cut there to
// round-trip unchanged through every gateway.
func (r *InventoryRepository) timestamp() time.Time {
	return r.now().Truncate(time.Microsecond)
}

func itemToRecord(item domain.InventoryItem) port.ItemRecord {
	rec := port.ItemRecord{
		ID:          item.ID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if !item.ShipmentDate.IsZero() {
		rec.ShipmentDate = sql.NullTime{Time: item.ShipmentDate.UTC().Truncate(time.Microsecond), Valid: true}
	}
	return rec
}

func recordToItem(rec port.ItemRecord) domain.InventoryItem {
	item := domain.InventoryItem{
		ID:          rec.ID,
		ProductName: rec.ProductName,
		Quantity:    rec.Quantity,
		CreatedAt:   rec.CreatedAt.UTC(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}
	if rec.ShipmentDate.Valid {
		item.ShipmentDate = rec.ShipmentDate.Time.UTC()
	}
	return item
}
