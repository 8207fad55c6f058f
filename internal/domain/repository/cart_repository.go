package repository

import (
	"context"

	"github.com/sangkips/investify-till/internal/domain/entity"
)

// CartRepository persists the cart snapshot of each till so a restart does
// not lose the sale in progress. The snapshot is opaque to the store.
type CartRepository interface {
	Save(ctx context.Context, cart *entity.Cart) error
	// Load returns nil, nil when the till has no snapshot.
	Load(ctx context.Context, tillID string) (*entity.Cart, error)
	Delete(ctx context.Context, tillID string) error
	Close() error
}
