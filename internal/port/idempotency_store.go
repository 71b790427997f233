package port

import "context"

type IdempotencyStore interface {
	// Claim sets a key for idempotency check, returns false if already exists
	Claim(ctx context.Context, key string) (bool, error)

	// Release drops a claimed key (for rollback on failure)
	Release(ctx context.Context, key string) error
}
