package product

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Product, int, error)
	ListMovements(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*StockMovement, int, error)
}

// Ledger adjusts stock inside the caller's transaction (carried in ctx).
//
// Decrement reads the current stock under a row lock, writes
// max(0, current-quantity), records a stock movement, and returns the new
// stock. When the product id does not resolve the decrement is skipped and
// logged: applied is false and err is nil, so inventory bookkeeping never
// fails the clinical transaction it runs inside.
type Ledger interface {
	Decrement(ctx context.Context, productID uuid.UUID, quantity float64, referenceID uuid.UUID) (newStock float64, applied bool, err error)
}
