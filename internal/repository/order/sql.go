package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"tienda-b2b/internal/domain"
	"tienda-b2b/internal/logging"
)

// sqlRepo stores the mirror in Postgres through database/sql. The status
// column is authoritative over the status inside the payload.
type sqlRepo struct {
	db     *sql.DB
	logger *log.Entry
}

func NewSQL(db *sql.DB, logger *log.Entry) Repository {
	if logger == nil {
		logger = logging.Discard()
	}
	return &sqlRepo{db: db, logger: logger}
}

const upsertOrder = `
INSERT INTO order_mirror (id, customer_id, status, payload, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE
SET customer_id = EXCLUDED.customer_id,
    status = EXCLUDED.status,
    payload = EXCLUDED.payload,
    updated_at = now()
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, ex execer, o domain.Order) error {
	id, payload, err := encode(o)
	if err != nil {
		return err
	}
	if _, err := ex.ExecContext(ctx, upsertOrder, id, o.CustomerID, string(o.Status), string(payload)); err != nil {
		return fmt.Errorf("upsert order %d: %w", id, err)
	}
	return nil
}

func (r *sqlRepo) Upsert(ctx context.Context, o domain.Order) error {
	return upsert(ctx, r.db, o)
}

func (r *sqlRepo) ReplaceForCustomer(ctx context.Context, customerID int64, orders []domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_mirror WHERE customer_id = $1`, customerID); err != nil {
		return fmt.Errorf("clear customer %d: %w", customerID, err)
	}
	for _, o := range orders {
		if err := upsert(ctx, tx, o); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.WithFields(log.Fields{"customer_id": customerID, "count": len(orders)}).Debug("order mirror replaced")
	return nil
}

func (r *sqlRepo) Get(ctx context.Context, id int64) (*domain.Order, error) {
	var (
		status  string
		payload []byte
	)
	err := r.db.QueryRowContext(ctx, `SELECT status, payload FROM order_mirror WHERE id = $1`, id).Scan(&status, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	o, err := decode(payload)
	if err != nil {
		return nil, err
	}
	o.Status = domain.Status(status)
	return o, nil
}

func (r *sqlRepo) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT status, payload
FROM order_mirror
WHERE customer_id = $1
ORDER BY id DESC
`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	result := []domain.Order{}
	for rows.Next() {
		var (
			status  string
			payload []byte
		)
		if err := rows.Scan(&status, &payload); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o, err := decode(payload)
		if err != nil {
			return nil, err
		}
		o.Status = domain.Status(status)
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders rows: %w", err)
	}
	return result, nil
}

func (r *sqlRepo) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE order_mirror SET status = $1, updated_at = now() WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update status %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status %d: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
