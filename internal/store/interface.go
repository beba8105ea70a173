package store

import (
	"context"

	"github.com/drumil/phonebook/internal/contact"
)

// Store defines the behavior for contact storage
type Store interface {
	Add(ctx context.Context, c contact.Contact) error
	All(ctx context.Context) ([]contact.Contact, error)
	Len(ctx context.Context) (int, error)
}
