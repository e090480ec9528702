package cart

import (
	"context"

	"tienda-b2b/internal/domain"
)

// Repository persists whole cart snapshots keyed by session.
// Load of an unknown session returns an empty cart, not an error.
type Repository interface {
	Load(ctx context.Context, sessionKey string) (*domain.Cart, error)
	Save(ctx context.Context, sessionKey string, cart domain.Cart) error
}
