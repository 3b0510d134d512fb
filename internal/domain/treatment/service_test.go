package treatment

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	created []*Treatment
	updated []*Treatment
	exists  bool
}

func (m *mockRepo) Create(_ context.Context, t *Treatment) error {
	t.ID = uuid.New()
	m.created = append(m.created, t)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Treatment, error) {
	return &Treatment{ID: id}, nil
}

func (m *mockRepo) Update(_ context.Context, t *Treatment) error {
	m.updated = append(m.updated, t)
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error { return nil }

func (m *mockRepo) List(_ context.Context, patientID *uuid.UUID, limit, offset int) ([]*Treatment, int, error) {
	return nil, 0, nil
}

func (m *mockRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.exists, nil
}

func TestCreateRequiresPatient(t *testing.T) {
	svc := NewService(&mockRepo{})

	err := svc.Create(context.Background(), &Treatment{Name: "Wound care"})
	if err == nil {
		t.Fatal("expected error for missing patient_id")
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(&mockRepo{})

	err := svc.Create(context.Background(), &Treatment{PatientID: uuid.New()})
	if err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	svc := NewService(&mockRepo{})

	err := svc.Create(context.Background(), &Treatment{
		PatientID: uuid.New(),
		Name:      "Wound care",
		Status:    "paused",
	})
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestCreateAcceptsValidStatuses(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	for _, status := range []string{StatusActive, StatusCompleted, StatusCancelled} {
		err := svc.Create(context.Background(), &Treatment{
			PatientID: uuid.New(),
			Name:      "Wound care",
			Status:    status,
		})
		if err != nil {
			t.Errorf("status %q: %v", status, err)
		}
	}
	if len(repo.created) != 3 {
		t.Errorf("expected 3 created, got %d", len(repo.created))
	}
}
