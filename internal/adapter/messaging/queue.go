package messaging

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/inventory-api/internal/core/domain"
	"github.com/rl1809/inventory-api/internal/port"
)

var ErrQueueFull = errors.New("event queue full")

const publishTimeout = 5 * time.Second

// Queue hands events to a pool of workers that forward them to sink, so a
// slow broker never holds up a request. Publish fails fast when the buffer
// is full.
type Queue struct {
	events chan domain.ItemEvent
	sink   port.EventPublisher
	logger *zap.Logger

	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewQueue(sink port.EventPublisher, queueSize int, logger *zap.Logger) *Queue {
	return &Queue{
		events: make(chan domain.ItemEvent, queueSize),
		sink:   sink,
		logger: logger,
	}
}

// Start launches workerCount workers. Call it once.
func (q *Queue) Start(workerCount int) {
	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			q.workerLoop(id)
		}(i)
	}
	q.logger.Info("started event workers", zap.Int("workers", workerCount))
}

func (q *Queue) Publish(ctx context.Context, event domain.ItemEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return errors.New("event queue closed")
	}

	select {
	case q.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the workers to drain the buffer.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.events)
		q.mu.Unlock()
	})
	q.wg.Wait()
}

func (q *Queue) workerLoop(id int) {
	for event := range q.events {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)

		if err := q.sink.Publish(ctx, event); err != nil {
			q.logger.Error("failed to publish event",
				zap.Int("worker", id),
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		} else {
			q.logger.Debug("published event",
				zap.Int("worker", id),
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}

		cancel()
	}
}
