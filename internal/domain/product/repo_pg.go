package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/cliniops/cliniops/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const productCols = `id, code, name, unit, stock, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Unit, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Product) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO product (id, code, name, unit, stock)
		VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.Code, p.Name, p.Unit, p.Stock)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+productCols+` FROM product WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Product) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE product SET code=$2, name=$3, unit=$4, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Code, p.Name, p.Unit)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM product WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Product, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM product`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+productCols+` FROM product ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Product
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *repoPG) ListMovements(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*StockMovement, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM stock_movement WHERE product_id = $1`, productID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, product_id, delta, previous_stock, new_stock, reason, reference_id, created_at
		FROM stock_movement WHERE product_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, productID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Delta, &m.PreviousStock, &m.NewStock,
			&m.Reason, &m.ReferenceID, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &m)
	}
	return items, total, nil
}

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

type ledgerPG struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewLedgerPG(pool *pgxpool.Pool, logger zerolog.Logger) Ledger {
	return &ledgerPG{pool: pool, logger: logger}
}

func (l *ledgerPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return l.pool
}

// Decrement serializes concurrent executions against the same product via the
// row lock taken by SELECT ... FOR UPDATE. The clamp means stock never goes
// below zero no matter the requested quantity.
func (l *ledgerPG) Decrement(ctx context.Context, productID uuid.UUID, quantity float64, referenceID uuid.UUID) (float64, bool, error) {
	q := l.conn(ctx)

	var current float64
	err := q.QueryRow(ctx, `SELECT stock FROM product WHERE id = $1 FOR UPDATE`, productID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		l.logger.Warn().
			Str("product_id", productID.String()).
			Float64("quantity", quantity).
			Msg("stock decrement skipped: product does not exist")
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	newStock := current - quantity
	if newStock < 0 {
		newStock = 0
	}

	if _, err := q.Exec(ctx, `UPDATE product SET stock = $2, updated_at = NOW() WHERE id = $1`,
		productID, newStock); err != nil {
		return 0, false, err
	}

	if _, err := q.Exec(ctx, `
		INSERT INTO stock_movement (id, product_id, delta, previous_stock, new_stock, reason, reference_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		uuid.New(), productID, newStock-current, current, newStock,
		ReasonProcedureExecution, referenceID); err != nil {
		return 0, false, err
	}

	return newStock, true, nil
}
