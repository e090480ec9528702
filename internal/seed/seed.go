package seed

import (
	"context"
	"fmt"

	"golang.org/x/text/currency"

	"tienda-b2b/internal/catalog"
	"tienda-b2b/internal/importer"
	"tienda-b2b/internal/repository/variant"
)

// Apply upserts the demo apparel catalog. It is idempotent: products are keyed
// by key and variants by SKU.
func Apply(ctx context.Context, writer importer.CatalogWriter, cur currency.Unit) (importer.Result, error) {
	var res importer.Result
	for _, p := range catalog.DemoCatalog(cur) {
		productID, err := writer.UpsertProduct(ctx, variant.UpsertProductInput{ID: p.ID, Key: p.Key, Name: p.Name})
		if err != nil {
			return res, fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
		res.Products++
		for _, v := range p.Variants {
			v.ProductID = productID
			if _, err := writer.UpsertVariant(ctx, v); err != nil {
				return res, fmt.Errorf("upsert variant %s: %w", v.SKU, err)
			}
			res.Variants++
		}
	}
	return res, nil
}
