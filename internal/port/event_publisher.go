package port

import (
	"context"

	"github.com/rl1809/inventory-api/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.ItemEvent) error
}
