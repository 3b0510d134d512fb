package treatment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Treatment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error)
	Update(ctx context.Context, t *Treatment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*Treatment, int, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
