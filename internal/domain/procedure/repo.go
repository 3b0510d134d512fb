package procedure

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists procedures and their consumption line items. All
// operations resolve the transaction from ctx (db.WithTx), so writes issued
// inside one saga run share a single transaction.
type Repository interface {
	// Create inserts a new procedure in the scheduled state. Returns
	// ErrTreatmentNotFound when the treatment id does not exist; the check
	// runs before the insert.
	Create(ctx context.Context, p *Procedure) error

	// GetByID loads the bare procedure row for the treatment/procedure pair.
	GetByID(ctx context.Context, treatmentID, id uuid.UUID) (*Procedure, error)

	// GetDetail loads the procedure plus its consumption list and resolved
	// display attributes.
	GetDetail(ctx context.Context, treatmentID, id uuid.UUID) (*Detail, error)

	// Update applies the non-nil fields of upd to the procedure. Returns
	// ErrProcedureNotFound when the pair does not resolve.
	Update(ctx context.Context, treatmentID, id uuid.UUID, upd UpdateRequest) error

	// ApplyExecution marks the procedure executed: sets the execution
	// timestamp and state together, plus the non-nil execution fields.
	// Returns ErrProcedureNotFound when the pair does not resolve.
	ApplyExecution(ctx context.Context, treatmentID, id uuid.UUID, exec Execution) error

	// ReplaceConsumedProducts deletes every existing line item for the
	// procedure and inserts the supplied set. Callers that want "no change"
	// simply do not call it; an empty slice clears all consumption.
	ReplaceConsumedProducts(ctx context.Context, procedureID uuid.UUID, items []ConsumedProductInput) error

	// ListByTreatment pages through a treatment's procedures.
	ListByTreatment(ctx context.Context, treatmentID uuid.UUID, limit, offset int) ([]*Procedure, int, error)
}
