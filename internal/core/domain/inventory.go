package domain

import (
	"math"
	"time"
	"unicode/utf8"
)

// Column limits of the inventory_items table.
const (
	MaxQuantity          = math.MaxInt32
	MaxProductNameLength = 255
)

type InventoryItem struct {
	ID           int64     `json:"id"`
	ProductName  string    `json:"productName"`
	Quantity     int       `json:"quantity"`
	ShipmentDate time.Time `json:"shipmentDate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Validate checks the business rules that must hold before any write.
func (i InventoryItem) Validate() error {
	if i.ID < 0 {
		return &ValidationError{Field: "id", Message: "cannot be negative"}
	}
	if i.Quantity < 0 {
		return &ValidationError{Field: "quantity", Message: "cannot be negative"}
	}
	if i.Quantity > MaxQuantity {
		return &ValidationError{Field: "quantity", Message: "exceeds maximum"}
	}
	if utf8.RuneCountInString(i.ProductName) > MaxProductNameLength {
		return &ValidationError{Field: "productName", Message: "too long"}
	}
	return nil
}
