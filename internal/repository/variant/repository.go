package variant

import (
	"context"

	"tienda-b2b/internal/catalog"
	"tienda-b2b/internal/domain"
)

type UpsertProductInput struct {
	ID   int64
	Key  string
	Name string
}

type Repository interface {
	catalog.Lookup
	UpsertProduct(ctx context.Context, in UpsertProductInput) (int64, error)
	UpsertVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error)
	ListByProduct(ctx context.Context, productID int64) ([]domain.Variant, error)
}
