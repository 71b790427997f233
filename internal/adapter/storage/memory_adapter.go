package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rl1809/inventory-api/internal/port"
)

// MemoryGateway keeps items in a map. Sessions stage their writes and apply
// them atomically on Commit; ids are handed out like AUTO_INCREMENT, so a
// rolled back insert leaves a gap.
type MemoryGateway struct {
	mu     sync.RWMutex
	rows   map[int64]port.ItemRecord
	nextID int64
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		rows:   make(map[int64]port.ItemRecord),
		nextID: 1,
	}
}

func (g *MemoryGateway) Begin(ctx context.Context) (port.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memorySession{
		gw:     g,
		staged: make(map[int64]*port.ItemRecord),
	}, nil
}

func (g *MemoryGateway) allocateID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	return id
}

// memorySession overlays staged writes on the committed rows. A nil entry in
// staged marks a removal.
type memorySession struct {
	gw     *MemoryGateway
	staged map[int64]*port.ItemRecord
	added  map[int64]bool
	done   bool
}

func (s *memorySession) Add(ctx context.Context, rec *port.ItemRecord) error {
	if err := s.usable(ctx); err != nil {
		return err
	}

	if rec.ID == 0 {
		rec.ID = s.gw.allocateID()
	} else {
		existing, err := s.FindByID(ctx, rec.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("insert item %d: %w", rec.ID, ErrDuplicateKey)
		}
	}

	row := *rec
	s.staged[rec.ID] = &row
	if s.added == nil {
		s.added = make(map[int64]bool)
	}
	s.added[rec.ID] = true
	return nil
}

func (s *memorySession) FindByID(ctx context.Context, id int64) (*port.ItemRecord, error) {
	if err := s.usable(ctx); err != nil {
		return nil, err
	}

	if row, ok := s.staged[id]; ok {
		if row == nil {
			return nil, nil
		}
		found := *row
		return &found, nil
	}

	s.gw.mu.RLock()
	defer s.gw.mu.RUnlock()
	row, ok := s.gw.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *memorySession) FindAll(ctx context.Context) ([]port.ItemRecord, error) {
	if err := s.usable(ctx); err != nil {
		return nil, err
	}

	merged := make(map[int64]port.ItemRecord)
	s.gw.mu.RLock()
	for id, row := range s.gw.rows {
		merged[id] = row
	}
	s.gw.mu.RUnlock()

	for id, row := range s.staged {
		if row == nil {
			delete(merged, id)
			continue
		}
		merged[id] = *row
	}

	recs := make([]port.ItemRecord, 0, len(merged))
	for _, row := range merged {
		recs = append(recs, row)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs, nil
}

func (s *memorySession) Save(ctx context.Context, rec port.ItemRecord) error {
	if err := s.usable(ctx); err != nil {
		return err
	}
	row := rec
	s.staged[rec.ID] = &row
	return nil
}

func (s *memorySession) Remove(ctx context.Context, id int64) error {
	if err := s.usable(ctx); err != nil {
		return err
	}
	s.staged[id] = nil
	return nil
}

func (s *memorySession) Commit() error {
	if s.done {
		return errSessionDone
	}
	s.done = true

	s.gw.mu.Lock()
	defer s.gw.mu.Unlock()

	for id := range s.added {
		if _, exists := s.gw.rows[id]; exists {
			return fmt.Errorf("insert item %d: %w", id, ErrDuplicateKey)
		}
	}

	for id, row := range s.staged {
		if row == nil {
			delete(s.gw.rows, id)
			continue
		}
		// Save on a row removed concurrently matches nothing, like an UPDATE
		if !s.added[id] {
			if _, exists := s.gw.rows[id]; !exists {
				continue
			}
		}
		s.gw.rows[id] = *row
		if id >= s.gw.nextID {
			s.gw.nextID = id + 1
		}
	}
	return nil
}

func (s *memorySession) Rollback() error {
	s.done = true
	s.staged = nil
	return nil
}

func (s *memorySession) usable(ctx context.Context) error {
	if s.done {
		return errSessionDone
	}
	return ctx.Err()
}
