package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockroom/internal/model"
)

// MemoryStore implements Store with in-memory maps. It assigns UUID
// identifiers and enforces the UUID format on lookups, mirroring how the
// persistent backends enforce theirs.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]model.Item
	users map[string]model.User // keyed by username
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]model.Item),
		users: make(map[string]model.User),
	}
}

// List returns all items from the store.
func (s *MemoryStore) List(ctx context.Context) ([]model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}

	return items, nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, ErrNotFound
	}

	return &item, nil
}

// Create adds a new item to the store and returns the created item with
// the generated ID.
func (s *MemoryStore) Create(ctx context.Context, item *model.Item) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create item: %w", ctx.Err())
	default:
	}

	if item == nil {
		return nil, ErrNilItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newItem := model.Item{
		ID:        uuid.New().String(),
		Name:      item.Name,
		Price:     item.Price,
		CreatedAt: time.Now().UTC(),
	}

	s.items[newItem.ID] = newItem

	return &newItem, nil
}

// Update applies the patch to an existing item. Only fields present in
// the patch are written; Modified reports whether any value changed.
func (s *MemoryStore) Update(ctx context.Context, id string, patch model.ItemPatch) (*UpdateResult, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update item: %w", ctx.Err())
	default:
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.items[id]
	if !exists {
		return nil, ErrNotFound
	}

	result := &UpdateResult{Matched: 1}
	if patch.Apply(&existing) {
		s.items[id] = existing
		result.Modified = 1
	}

	return result, nil
}

// Delete removes an item from the store by its ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete item: %w", ctx.Err())
	default:
	}

	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ErrNotFound
	}

	delete(s.items, id)

	return nil
}

// CreateUser adds a new user and returns it with the generated ID.
func (s *MemoryStore) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create user: %w", ctx.Err())
	default:
	}

	if user == nil {
		return nil, ErrNilUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return nil, ErrAlreadyExists
	}

	newUser := model.User{
		ID:           uuid.New().String(),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}

	s.users[newUser.Username] = newUser

	return &newUser, nil
}

// UserByUsername retrieves a user by username.
func (s *MemoryStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get user: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[username]
	if !exists {
		return nil, ErrNotFound
	}

	return &user, nil
}

// Ping always succeeds for the in-memory backend.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}
