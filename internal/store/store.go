// Package store provides document storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"stockroom/internal/model"
)

// Collection names used by every backend.
const (
	CollectionItems = "items"
	CollectionUsers = "users"
)

// Store errors.
var (
	ErrNotFound      = errors.New("document not found")
	ErrInvalidID     = errors.New("invalid document ID")
	ErrAlreadyExists = errors.New("document already exists")
	ErrNilItem       = errors.New("item cannot be nil")
	ErrNilUser       = errors.New("user cannot be nil")
	ErrEmptyPatch    = errors.New("update patch cannot be empty")
)

// UpdateResult reports how many documents an update matched and how many
// it actually changed. Matched is always checked first: a zero Matched is
// surfaced as ErrNotFound, while Matched > 0 with Modified == 0 means the
// document already held the requested values.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// ItemStore defines the interface for item storage operations.
type ItemStore interface {
	// List returns all items from the store.
	List(ctx context.Context) ([]model.Item, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id string) (*model.Item, error)

	// Create adds a new item to the store and returns the created item
	// with the generated ID and creation timestamp.
	Create(ctx context.Context, item *model.Item) (*model.Item, error)

	// Update applies the patch to the item with the given ID. Only fields
	// present in the patch are written.
	Update(ctx context.Context, id string, patch model.ItemPatch) (*UpdateResult, error)

	// Delete removes an item from the store by its ID.
	Delete(ctx context.Context, id string) error
}

// UserStore defines the interface for user storage operations.
type UserStore interface {
	// CreateUser adds a new user and returns it with the generated ID.
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)

	// UserByUsername retrieves a user by username, or ErrNotFound.
	UserByUsername(ctx context.Context, username string) (*model.User, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is the full document-store contract: item and user collections
// plus connection lifecycle. The store owns the connection; handlers hold
// only references obtained at startup.
type Store interface {
	ItemStore
	UserStore
	Pinger

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
