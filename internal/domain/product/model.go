package product

import (
	"time"

	"github.com/google/uuid"
)

// Product maps to the product table. Stock is quantity-on-hand; it is only
// ever decremented through the Ledger so it can never go negative.
type Product struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Code      *string   `db:"code" json:"code,omitempty"`
	Name      string    `db:"name" json:"name"`
	Unit      *string   `db:"unit" json:"unit,omitempty"`
	Stock     float64   `db:"stock" json:"stock"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StockMovement maps to the stock_movement table. One row is written per
// applied stock change, with the procedure (or other cause) in ReferenceID.
type StockMovement struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ProductID     uuid.UUID  `db:"product_id" json:"product_id"`
	Delta         float64    `db:"delta" json:"delta"`
	PreviousStock float64    `db:"previous_stock" json:"previous_stock"`
	NewStock      float64    `db:"new_stock" json:"new_stock"`
	Reason        string     `db:"reason" json:"reason"`
	ReferenceID   *uuid.UUID `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Movement reasons.
const (
	ReasonProcedureExecution = "procedure_execution"
	ReasonManualAdjustment   = "manual_adjustment"
)
