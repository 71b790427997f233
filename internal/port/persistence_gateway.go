package port

import (
	"context"
	"database/sql"
	"time"
)

// ItemRecord is the storage row for an inventory item.
type ItemRecord struct {
	ID           int64        `db:"id"`
	ProductName  string       `db:"product_name"`
	Quantity     int          `db:"quantity"`
	ShipmentDate sql.NullTime `db:"shipment_date"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

type Gateway interface {
	// Begin opens a unit of work. Nothing it writes is durable until Commit.
	Begin(ctx context.Context) (Session, error)
}

type Session interface {
	// Add inserts the record, filling in ID when the store assigns it
	Add(ctx context.Context, rec *ItemRecord) error

	// FindByID returns nil without error when no row matches
	FindByID(ctx context.Context, id int64) (*ItemRecord, error)

	FindAll(ctx context.Context) ([]ItemRecord, error)

	// Save overwrites the stored row with the same ID
	Save(ctx context.Context, rec ItemRecord) error

	Remove(ctx context.Context, id int64) error

	Commit() error

	// Rollback discards staged writes; it is a no-op after Commit
	Rollback() error
}
