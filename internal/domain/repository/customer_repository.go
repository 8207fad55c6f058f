package repository

import (
	"context"

	"github.com/sangkips/investify-till/internal/domain/entity"
)

// CustomerDirectory looks customers up on the POS backend. Customer CRUD
// lives there; the till only reads.
type CustomerDirectory interface {
	// ListCustomers returns registered customers matching search (all when empty).
	ListCustomers(ctx context.Context, search string) ([]entity.Customer, error)
	GetCustomer(ctx context.Context, id string) (*entity.Customer, error)
}
