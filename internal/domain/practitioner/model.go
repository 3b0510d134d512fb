package practitioner

import (
	"time"

	"github.com/google/uuid"
)

type Practitioner struct {
	ID            uuid.UUID `db:"id" json:"id"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Specialty     *string   `db:"specialty" json:"specialty,omitempty"`
	LicenseNumber *string   `db:"license_number" json:"license_number,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
