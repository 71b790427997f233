package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/rl1809/inventory-api/internal/core/domain"
)

// Mock InventoryRepository
type mockRepo struct {
	items  map[int64]domain.InventoryItem
	writes int
	err    error
	onAdd  func()
	mu     sync.Mutex
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[int64]domain.InventoryItem)}
}

func (m *mockRepo) Add(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onAdd != nil {
		m.onAdd()
	}
	if m.err != nil {
		return domain.InventoryItem{}, m.err
	}
	m.writes++
	m.items[item.ID] = item
	return item, nil
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *mockRepo) GetAll(ctx context.Context) ([]domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.InventoryItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	return items, nil
}

func (m *mockRepo) Update(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return nil, nil
	}
	m.writes++
	m.items[item.ID] = item
	return &item, nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	m.writes++
	delete(m.items, id)
	return true, nil
}

// Mock IdempotencyStore
type mockIdempotency struct {
	keys     map[string]bool
	released []string
	mu       sync.Mutex
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{keys: make(map[string]bool)}
}

func (m *mockIdempotency) Claim(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

// Release fails on a done context, like a real network call would.
func (m *mockIdempotency) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	m.released = append(m.released, key)
	return nil
}

// Mock EventPublisher
type mockPublisher struct {
	events []domain.ItemEvent
	err    error
	mu     sync.Mutex
}

func (m *mockPublisher) Publish(ctx context.Context, event domain.ItemEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func TestCreateItem_Success(t *testing.T) {
	repo := newMockRepo()
	pub := &mockPublisher{}
	svc := NewInventoryService(repo, zap.NewNop(), WithEventPublisher(pub))

	item, err := svc.CreateItem(context.Background(), domain.InventoryItem{ID: 1, ProductName: "Widget", Quantity: 10})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if item.ID != 1 || item.Quantity != 10 {
		t.Errorf("unexpected item: %+v", item)
	}

	if len(pub.events) != 1 || pub.events[0].Type != domain.ItemEventCreated {
		t.Errorf("expected one item.created event, got %+v", pub.events)
	}
	if pub.events[0].ID == "" {
		t.Error("expected non-empty event ID")
	}
}

func TestCreateItem_NegativeQuantity(t *testing.T) {
	repo := newMockRepo()
	pub := &mockPublisher{}
	svc := NewInventoryService(repo, zap.NewNop(), WithEventPublisher(pub))

	_, err := svc.CreateItem(context.Background(), domain.InventoryItem{ID: 2, Quantity: -5})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got: %v", err)
	}

	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "quantity" {
		t.Errorf("expected quantity ValidationError, got: %v", err)
	}
	if repo.writes != 0 {
		t.Errorf("expected no writes, got %d", repo.writes)
	}
	if len(pub.events) != 0 {
		t.Errorf("expected no events, got %d", len(pub.events))
	}
}

func TestCreateItem_RepositoryError(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("connection lost")
	svc := NewInventoryService(repo, zap.NewNop())

	_, err := svc.CreateItem(context.Background(), domain.InventoryItem{ID: 1, Quantity: 1})
	if err == nil || errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected storage error, got: %v", err)
	}
}

func TestCreateItem_PublishFailureIgnored(t *testing.T) {
	repo := newMockRepo()
	pub := &mockPublisher{err: errors.New("broker down")}
	svc := NewInventoryService(repo, zap.NewNop(), WithEventPublisher(pub))

	if _, err := svc.CreateItem(context.Background(), domain.InventoryItem{ID: 1, Quantity: 1}); err != nil {
		t.Fatalf("publish failure must not fail create: %v", err)
	}
	if repo.writes != 1 {
		t.Errorf("expected 1 write, got %d", repo.writes)
	}
}

func TestCreateItemIdempotent_DuplicateRequest(t *testing.T) {
	repo := newMockRepo()
	idem := newMockIdempotency()
	svc := NewInventoryService(repo, zap.NewNop(), WithIdempotencyStore(idem))

	ctx := context.Background()

	// First request
	if _, err := svc.CreateItemIdempotent(ctx, "req-1", domain.InventoryItem{ID: 1, Quantity: 1}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	// Duplicate request with same key
	_, err := svc.CreateItemIdempotent(ctx, "req-1", domain.InventoryItem{ID: 1, Quantity: 1})
	if !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest, got: %v", err)
	}

	// Item should only be written once
	if repo.writes != 1 {
		t.Errorf("expected 1 write, got %d", repo.writes)
	}
}

func TestCreateItemIdempotent_ReleasesKeyOnFailure(t *testing.T) {
	repo := newMockRepo()
	idem := newMockIdempotency()
	svc := NewInventoryService(repo, zap.NewNop(), WithIdempotencyStore(idem))

	ctx := context.Background()

	_, err := svc.CreateItemIdempotent(ctx, "req-1", domain.InventoryItem{ID: 1, Quantity: -1})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got: %v", err)
	}
	if len(idem.released) != 1 {
		t.Fatalf("expected key to be released, got %v", idem.released)
	}

	// Retry with a fixed body succeeds under the same key
	if _, err := svc.CreateItemIdempotent(ctx, "req-1", domain.InventoryItem{ID: 1, Quantity: 1}); err != nil {
		t.Errorf("retry failed: %v", err)
	}
}

func TestCreateItemIdempotent_ReleasesKeyAfterCancel(t *testing.T) {
	repo := newMockRepo()
	idem := newMockIdempotency()
	svc := NewInventoryService(repo, zap.NewNop(), WithIdempotencyStore(idem))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Client goes away while the item is being written
	repo.onAdd = cancel
	repo.err = context.Canceled

	_, err := svc.CreateItemIdempotent(ctx, "req-1", domain.InventoryItem{ID: 1, Quantity: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
	if len(idem.released) != 1 {
		t.Fatalf("expected key to be released, got %v", idem.released)
	}

	repo.onAdd = nil
	repo.err = nil
	if _, err := svc.CreateItemIdempotent(context.Background(), "req-1", domain.InventoryItem{ID: 1, Quantity: 1}); err != nil {
		t.Errorf("retry failed: %v", err)
	}
}

func TestCreateItemIdempotent_NoKey(t *testing.T) {
	repo := newMockRepo()
	idem := newMockIdempotency()
	svc := NewInventoryService(repo, zap.NewNop(), WithIdempotencyStore(idem))

	ctx := context.Background()
	for i := int64(1); i <= 2; i++ {
		if _, err := svc.CreateItemIdempotent(ctx, "", domain.InventoryItem{ID: i, Quantity: 1}); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}
	if len(idem.keys) != 0 {
		t.Errorf("expected no claimed keys, got %v", idem.keys)
	}
}

func TestGetItemByID_NotFound(t *testing.T) {
	svc := NewInventoryService(newMockRepo(), zap.NewNop())

	item, err := svc.GetItemByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Error("expected nil for nonexistent item")
	}
}

func TestUpdateItem_NotFound(t *testing.T) {
	repo := newMockRepo()
	svc := NewInventoryService(repo, zap.NewNop())

	// Negative quantity on a missing item is still reported as absent
	item, err := svc.UpdateItem(context.Background(), domain.InventoryItem{ID: 7, Quantity: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Error("expected nil for nonexistent item")
	}
	if repo.writes != 0 {
		t.Errorf("expected no writes, got %d", repo.writes)
	}
}

func TestUpdateItem_NegativeQuantity(t *testing.T) {
	repo := newMockRepo()
	repo.items[1] = domain.InventoryItem{ID: 1, ProductName: "Widget", Quantity: 10}
	svc := NewInventoryService(repo, zap.NewNop())

	_, err := svc.UpdateItem(context.Background(), domain.InventoryItem{ID: 1, ProductName: "Widget", Quantity: -3})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got: %v", err)
	}
	if repo.items[1].Quantity != 10 {
		t.Errorf("expected stored quantity 10, got %d", repo.items[1].Quantity)
	}
}

func TestUpdateItem_Success(t *testing.T) {
	repo := newMockRepo()
	repo.items[1] = domain.InventoryItem{ID: 1, ProductName: "Widget", Quantity: 10}
	pub := &mockPublisher{}
	svc := NewInventoryService(repo, zap.NewNop(), WithEventPublisher(pub))

	item, err := svc.UpdateItem(context.Background(), domain.InventoryItem{ID: 1, ProductName: "Widget", Quantity: 15})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if item == nil || item.Quantity != 15 {
		t.Fatalf("expected quantity 15, got %+v", item)
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.ItemEventUpdated {
		t.Errorf("expected one item.updated event, got %+v", pub.events)
	}
}

func TestDeleteItem_Twice(t *testing.T) {
	repo := newMockRepo()
	repo.items[1] = domain.InventoryItem{ID: 1, Quantity: 1}
	pub := &mockPublisher{}
	svc := NewInventoryService(repo, zap.NewNop(), WithEventPublisher(pub))

	ctx := context.Background()

	deleted, err := svc.DeleteItem(ctx, 1)
	if err != nil || !deleted {
		t.Fatalf("expected first delete to succeed, got %v, %v", deleted, err)
	}

	deleted, err = svc.DeleteItem(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted {
		t.Error("expected second delete to report not found")
	}

	if len(pub.events) != 1 || pub.events[0].Type != domain.ItemEventDeleted || pub.events[0].ItemID != 1 {
		t.Errorf("expected one item.deleted event, got %+v", pub.events)
	}
}
