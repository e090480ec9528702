package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"tienda-b2b/internal/domain"
)

type postgresRepo struct {
	pool     *pgxpool.Pool
	currency currency.Unit
}

func NewPostgres(pool *pgxpool.Pool, cur currency.Unit) Repository {
	return &postgresRepo{pool: pool, currency: cur}
}

func (r *postgresRepo) Load(ctx context.Context, sessionKey string) (*domain.Cart, error) {
	if sessionKey == "" {
		return nil, errors.New("session key is empty")
	}

	var (
		remoteID *int64
		currCode string
	)
	err := r.pool.QueryRow(ctx, `
SELECT remote_cart_id, currency
FROM carts
WHERE session_key = $1
`, sessionKey).Scan(&remoteID, &currCode)
	if errors.Is(err, pgx.ErrNoRows) {
		c := domain.NewCart(r.currency)
		return &c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	unit, err := currency.ParseISO(currCode)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", currCode, err)
	}
	cart := domain.Cart{RemoteCartID: remoteID, Currency: unit}

	rows, err := r.pool.Query(ctx, `
SELECT line_id, variant_id, quantity, unit_price::text, currency, sku, color, size, product_name
FROM cart_lines
WHERE session_key = $1
ORDER BY position ASC
`, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line     domain.CartLine
			price    string
			lineCurr string
		)
		if err := rows.Scan(&line.ID, &line.VariantID, &line.Quantity, &price, &lineCurr,
			&line.SKU, &line.Color, &line.Size, &line.ProductName); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		amount, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse unit price %q: %w", price, err)
		}
		lineUnit, err := currency.ParseISO(lineCurr)
		if err != nil {
			return nil, fmt.Errorf("parse currency %q: %w", lineCurr, err)
		}
		line.UnitPrice = domain.NewMoney(amount, lineUnit)
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load cart lines rows: %w", err)
	}
	return &cart, nil
}

// Save replaces the stored snapshot in one transaction.
func (r *postgresRepo) Save(ctx context.Context, sessionKey string, cart domain.Cart) error {
	if sessionKey == "" {
		return errors.New("session key is empty")
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
INSERT INTO carts (session_key, remote_cart_id, currency, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (session_key) DO UPDATE
SET remote_cart_id = EXCLUDED.remote_cart_id,
    currency = EXCLUDED.currency,
    updated_at = now()
`, sessionKey, cart.RemoteCartID, cart.Currency.String()); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE session_key = $1`, sessionKey); err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}

	if len(cart.Lines) > 0 {
		batch := &pgx.Batch{}
		for pos, line := range cart.Lines {
			batch.Queue(`
INSERT INTO cart_lines (session_key, line_id, position, variant_id, quantity, unit_price, currency, sku, color, size, product_name)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11)
`, sessionKey, line.ID, pos, line.VariantID, line.Quantity, line.UnitPrice.Amount.String(),
				line.UnitPrice.Currency.String(), line.SKU, line.Color, line.Size, line.ProductName)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert cart lines: %w", err)
		}
	}

	return tx.Commit(ctx)
}
