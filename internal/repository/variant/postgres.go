package variant

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/currency"

	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Entry
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Entry) Repository {
	if logger == nil {
		logger = logging.Discard()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const selectVariant = `
SELECT v.id, v.product_id, p.name, v.sku, v.color, v.size, v.price::text, v.currency, v.stock
FROM variants v
JOIN products p ON p.id = v.product_id
`

func (r *postgresRepo) Lookup(ctx context.Context, variantID int64) (domain.Variant, error) {
	row := r.pool.QueryRow(ctx, selectVariant+`WHERE v.id = $1`, variantID)
	v, err := scanVariant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WithField("variant_id", variantID).Debug("variant not found")
			return domain.Variant{}, domain.ErrVariantNotFound
		}
		r.logger.WithError(err).WithField("variant_id", variantID).Error("lookup variant")
		return domain.Variant{}, fmt.Errorf("lookup variant %d: %w", variantID, err)
	}
	return v, nil
}

func (r *postgresRepo) ListByProduct(ctx context.Context, productID int64) ([]domain.Variant, error) {
	rows, err := r.pool.Query(ctx, selectVariant+`WHERE v.product_id = $1 ORDER BY v.id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var result []domain.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list variants rows: %w", err)
	}
	r.logger.WithFields(log.Fields{"product_id": productID, "count": len(result)}).Debug("variants listed")
	return result, nil
}

func (r *postgresRepo) UpsertProduct(ctx context.Context, in UpsertProductInput) (int64, error) {
	const q = `
INSERT INTO products (id, key, name)
VALUES (COALESCE(NULLIF($1, 0), nextval('products_id_seq')), $2, $3)
ON CONFLICT (key) DO UPDATE SET name = EXCLUDED.name
RETURNING id
`
	var id int64
	if err := r.pool.QueryRow(ctx, q, in.ID, in.Key, in.Name).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert product %q: %w", in.Key, err)
	}
	if in.ID > 0 {
		if err := r.bumpSequence(ctx, "products_id_seq", "products"); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (r *postgresRepo) UpsertVariant(ctx context.Context, v domain.Variant) (*domain.Variant, error) {
	const q = `
INSERT INTO variants (id, product_id, sku, color, size, price, currency, stock)
VALUES (COALESCE(NULLIF($1, 0), nextval('variants_id_seq')), $2, $3, $4, $5, $6::numeric, $7, $8)
ON CONFLICT (sku) DO UPDATE
SET product_id = EXCLUDED.product_id,
    color = EXCLUDED.color,
    size = EXCLUDED.size,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency,
    stock = EXCLUDED.stock
RETURNING id
`
	var id int64
	err := r.pool.QueryRow(ctx, q,
		v.ID, v.ProductID, v.SKU, v.Color, v.Size,
		v.Price.Amount.String(), v.Price.Currency.String(), v.StockAvailable,
	).Scan(&id)
	if err != nil {
		r.logger.WithError(err).WithField("sku", v.SKU).Error("upsert variant")
		return nil, fmt.Errorf("upsert variant %q: %w", v.SKU, err)
	}
	if v.ID > 0 {
		if err := r.bumpSequence(ctx, "variants_id_seq", "variants"); err != nil {
			return nil, err
		}
	}
	saved, err := r.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// bumpSequence keeps the serial ahead of explicitly inserted ids.
func (r *postgresRepo) bumpSequence(ctx context.Context, seq, table string) error {
	q := fmt.Sprintf(`SELECT setval('%s', GREATEST((SELECT COALESCE(MAX(id), 1) FROM %s), 1))`, seq, table)
	if _, err := r.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("bump %s: %w", seq, err)
	}
	return nil
}

func scanVariant(row pgx.Row) (domain.Variant, error) {
	var (
		v        domain.Variant
		price    string
		currCode string
	)
	if err := row.Scan(&v.ID, &v.ProductID, &v.ProductName, &v.SKU, &v.Color, &v.Size, &price, &currCode, &v.StockAvailable); err != nil {
		return domain.Variant{}, err
	}
	amount, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Variant{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	unit, err := currency.ParseISO(currCode)
	if err != nil {
		return domain.Variant{}, fmt.Errorf("parse currency %q: %w", currCode, err)
	}
	v.Price = domain.NewMoney(amount, unit)
	return v, nil
}
