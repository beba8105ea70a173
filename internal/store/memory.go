package store

import (
	"context"
	"sync"

	"github.com/drumil/phonebook/internal/contact"
)

// MemoryStore keeps contacts for the lifetime of the process, in insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	contacts []contact.Contact
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contacts: []contact.Contact{},
	}
}

func (s *MemoryStore) Add(ctx context.Context, c contact.Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.contacts = append(s.contacts, c)
	return nil
}

func (s *MemoryStore) All(ctx context.Context) ([]contact.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy
	result := make([]contact.Contact, len(s.contacts))
	copy(result, s.contacts)
	return result, nil
}

func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts), nil
}
