package treatment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	treatments Repository
}

func NewService(treatments Repository) *Service {
	return &Service{treatments: treatments}
}

func (s *Service) Create(ctx context.Context, t *Treatment) error {
	if t.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.Status != "" && !validStatus(t.Status) {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	return s.treatments.Create(ctx, t)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	return s.treatments.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, t *Treatment) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validStatus(t.Status) {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	return s.treatments.Update(ctx, t)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.treatments.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*Treatment, int, error) {
	return s.treatments.List(ctx, patientID, limit, offset)
}

func validStatus(s string) bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
