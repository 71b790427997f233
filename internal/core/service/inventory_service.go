package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-api/internal/core/domain"
	"github.com/rl1809/inventory-api/internal/port"
)

// releaseTimeout bounds the idempotency key release, which runs detached from
// the request context.
const releaseTimeout = 5 * time.Second

type InventoryService struct {
	repo      port.InventoryRepository
	idem      port.IdempotencyStore
	publisher port.EventPublisher
	logger    *zap.Logger
}

type Option func(*InventoryService)

// WithIdempotencyStore enables CreateItemIdempotent deduplication.
func WithIdempotencyStore(store port.IdempotencyStore) Option {
	return func(s *InventoryService) { s.idem = store }
}

func WithEventPublisher(publisher port.EventPublisher) Option {
	return func(s *InventoryService) { s.publisher = publisher }
}

func NewInventoryService(repo port.InventoryRepository, logger *zap.Logger, opts ...Option) *InventoryService {
	s := &InventoryService{
		repo:   repo,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InventoryService) CreateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	if err := item.Validate(); err != nil {
		return domain.InventoryItem{}, err
	}

	created, err := s.repo.Add(ctx, item)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.emit(ctx, domain.ItemEventCreated, created.ID, &created)
	return created, nil
}

// CreateItemIdempotent creates the item at most once per key. A claimed key is
// released again when the create fails so the client can retry.
func (s *InventoryService) CreateItemIdempotent(ctx context.Context, key string, item domain.InventoryItem) (domain.InventoryItem, error) {
	if key == "" || s.idem == nil {
		return s.CreateItem(ctx, item)
	}

	idempotencyKey := fmt.Sprintf("inventory:create:%s", key)

	ok, err := s.idem.Claim(ctx, idempotencyKey)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return domain.InventoryItem{}, domain.ErrDuplicateRequest
	}

	created, err := s.CreateItem(ctx, item)
	if err != nil {
		s.release(ctx, idempotencyKey)
		return domain.InventoryItem{}, err
	}
	return created, nil
}

// release frees a claimed key even when ctx is already cancelled, so a failed
// create caused by a client timeout can be retried.
func (s *InventoryService) release(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := s.idem.Release(ctx, key); err != nil {
		s.logger.Error("failed to release idempotency key",
			zap.String("key", key), zap.Error(err))
	}
}

// GetItemByID returns nil without error when the item does not exist.
func (s *InventoryService) GetItemByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *InventoryService) GetAllItems(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.GetAll(ctx)
}

// UpdateItem returns nil without error when the item does not exist. Quantity
// is validated only for existing items.
func (s *InventoryService) UpdateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	existing, err := s.repo.GetByID(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// removed between lookup and write
		return nil, nil
	}

	s.emit(ctx, domain.ItemEventUpdated, updated.ID, updated)
	return updated, nil
}

func (s *InventoryService) DeleteItem(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}

	if deleted {
		s.emit(ctx, domain.ItemEventDeleted, id, nil)
	}
	return deleted, nil
}

func (s *InventoryService) emit(ctx context.Context, typ domain.ItemEventType, itemID int64, item *domain.InventoryItem) {
	if s.publisher == nil {
		return
	}

	event := domain.ItemEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		ItemID:     itemID,
		Item:       item,
		OccurredAt: time.Now().UTC(),
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish item event",
			zap.String("event_type", string(typ)),
			zap.Int64("item_id", itemID),
			zap.Error(err))
	}
}
