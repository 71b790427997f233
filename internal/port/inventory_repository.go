package port

import (
	"context"

	"github.com/rl1809/inventory-api/internal/core/domain"
)

// InventoryRepository reports a missing item as a nil item (or false), never as an error.
type InventoryRepository interface {
	Add(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error)
	GetByID(ctx context.Context, id int64) (*domain.InventoryItem, error)
	GetAll(ctx context.Context) ([]domain.InventoryItem, error)
	Update(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
