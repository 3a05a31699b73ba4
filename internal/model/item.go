// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"time"
)

// Validation errors for item payloads.
var (
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrNameTooLong      = errors.New("name cannot exceed 255 characters")
	ErrNonPositivePrice = errors.New("price must be greater than zero")
	ErrEmptyUpdate      = errors.New("update requires at least one field")
)

// Validation constants.
const (
	MaxNameLength = 255
)

// Item represents a priced resource managed by the service.
// The ID is assigned by the store on creation and is immutable.
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemInput is the request payload for creating an item.
type ItemInput struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Validate checks the create-item payload. A missing price decodes to
// zero and is rejected by the strictly-positive rule.
func (in *ItemInput) Validate() error {
	if in.Name == "" {
		return ErrEmptyName
	}

	if len(in.Name) > MaxNameLength {
		return ErrNameTooLong
	}

	if in.Price <= 0 {
		return ErrNonPositivePrice
	}

	return nil
}

// Item builds the Item to be persisted from the input. The store fills
// in ID and CreatedAt.
func (in *ItemInput) Item() *Item {
	return &Item{
		Name:  in.Name,
		Price: in.Price,
	}
}

// ItemPatch is the request payload for partially updating an item.
// Nil fields were absent from the request body and are left unchanged.
type ItemPatch struct {
	Name  *string  `json:"name,omitempty"`
	Price *float64 `json:"price,omitempty"`
}

// Validate checks the update-item payload. The body must carry at least
// one field; a present name must keep the persisted-name invariant and a
// present price must be strictly positive.
func (p *ItemPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyUpdate
	}

	if p.Name != nil {
		if *p.Name == "" {
			return ErrEmptyName
		}
		if len(*p.Name) > MaxNameLength {
			return ErrNameTooLong
		}
	}

	if p.Price != nil && *p.Price <= 0 {
		return ErrNonPositivePrice
	}

	return nil
}

// IsEmpty reports whether the patch carries no fields.
func (p *ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Price == nil
}

// Apply overwrites the fields present in the patch on the given item and
// reports whether any value actually changed.
func (p *ItemPatch) Apply(item *Item) bool {
	changed := false

	if p.Name != nil && *p.Name != item.Name {
		item.Name = *p.Name
		changed = true
	}

	if p.Price != nil && *p.Price != item.Price {
		item.Price = *p.Price
		changed = true
	}

	return changed
}
