package model

import "time"

// Item event types delivered over the websocket feed.
const (
	EventTypeItemCreated = "item_created"
	EventTypeItemUpdated = "item_updated"
	EventTypeItemDeleted = "item_deleted"
)

// Event represents an item lifecycle notification sent to websocket
// subscribers. Item is absent for deletions.
type Event struct {
	Type      string    `json:"type"`
	ItemID    string    `json:"item_id"`
	Item      *Item     `json:"item,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewItemEvent creates an event carrying the item's current state.
func NewItemEvent(eventType string, item *Item) Event {
	return Event{
		Type:      eventType,
		ItemID:    item.ID,
		Item:      item,
		Timestamp: time.Now().UTC(),
	}
}

// NewItemDeletedEvent creates a deletion event for the given id.
func NewItemDeletedEvent(id string) Event {
	return Event{
		Type:      EventTypeItemDeleted,
		ItemID:    id,
		Timestamp: time.Now().UTC(),
	}
}
