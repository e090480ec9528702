package order

import (
	"context"

	"tienda-b2b/internal/domain"
)

// Repository is the local mirror of remote orders. Only persisted orders are
// stored; local (fallback) orders are rejected with ErrInvalidOrderReference.
type Repository interface {
	Upsert(ctx context.Context, o domain.Order) error
	ReplaceForCustomer(ctx context.Context, customerID int64, orders []domain.Order) error
	Get(ctx context.Context, id int64) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status) error
}
