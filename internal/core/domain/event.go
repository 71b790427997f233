package domain

import "time"

type ItemEventType string

const (
	ItemEventCreated ItemEventType = "item.created"
	ItemEventUpdated ItemEventType = "item.updated"
	ItemEventDeleted ItemEventType = "item.deleted"
)

type ItemEvent struct {
	ID         string         `json:"id"`
	Type       ItemEventType  `json:"type"`
	ItemID     int64          `json:"itemId"`
	Item       *InventoryItem `json:"item,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}
