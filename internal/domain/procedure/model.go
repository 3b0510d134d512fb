package procedure

import (
	"time"

	"github.com/google/uuid"
)

// Procedure kinds.
const (
	KindCosmetic  = "cosmetic"
	KindPodiatric = "podiatric"
)

// Procedure lifecycle states.
const (
	StatusScheduled = "scheduled"
	StatusExecuted  = "executed"
)

// Procedure maps to the clinical_procedure table. ExecutedAt and
// Status=executed are set together in one statement; a scheduled procedure
// never carries an execution timestamp.
type Procedure struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	TreatmentID     uuid.UUID  `db:"treatment_id" json:"treatment_id"`
	PractitionerID  *uuid.UUID `db:"practitioner_id" json:"practitioner_id,omitempty"`
	Kind            string     `db:"kind" json:"kind"`
	Code            *string    `db:"code" json:"code,omitempty"`
	Name            string     `db:"name" json:"name"`
	Area            *string    `db:"area" json:"area,omitempty"`
	Status          string     `db:"status" json:"status"`
	ScheduledAt     *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	ExecutedAt      *time.Time `db:"executed_at" json:"executed_at,omitempty"`
	Recommendations *string    `db:"recommendations" json:"recommendations,omitempty"`
	Result          *string    `db:"result" json:"result,omitempty"`
	BeforeImage     *string    `db:"before_image" json:"before_image,omitempty"`
	AfterImage      *string    `db:"after_image" json:"after_image,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ConsumedProduct is one line item of product consumption for a procedure.
// ProductName and ProductCode are resolved from the catalog on read and are
// nil when the product no longer (or never did) exist there.
type ConsumedProduct struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ProcedureID uuid.UUID `db:"procedure_id" json:"procedure_id"`
	ProductID   uuid.UUID `db:"product_id" json:"product_id"`
	Quantity    float64   `db:"quantity" json:"quantity"`
	Unit        *string   `db:"unit" json:"unit,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	ProductName *string `db:"product_name" json:"product_name,omitempty"`
	ProductCode *string `db:"product_code" json:"product_code,omitempty"`
}

// ConsumedProductInput is one submitted consumption line item.
type ConsumedProductInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  float64   `json:"quantity"`
	Unit      *string   `json:"unit,omitempty"`
}

// Detail is the full response shape: the procedure plus its consumption list
// and the resolved practitioner display name.
type Detail struct {
	Procedure
	ConsumedProducts []*ConsumedProduct `json:"consumed_products"`
	PractitionerName *string            `json:"practitioner_name,omitempty"`
}

// CreateRequest carries the fields for scheduling a new procedure. Products
// is a pointer so that an absent array and an empty array stay distinct.
type CreateRequest struct {
	Kind            string                  `json:"kind"`
	Code            *string                 `json:"code,omitempty"`
	Name            string                  `json:"name"`
	Area            *string                 `json:"area,omitempty"`
	ScheduledAt     *time.Time              `json:"scheduled_at,omitempty"`
	PractitionerID  *uuid.UUID              `json:"practitioner_id,omitempty"`
	Recommendations *string                 `json:"recommendations,omitempty"`
	Products        *[]ConsumedProductInput `json:"products,omitempty"`
}

// UpdateRequest carries partial field updates. Nil fields are left untouched;
// a nil Products pointer means "no change" while an empty slice clears all
// consumption rows.
type UpdateRequest struct {
	Kind            *string                 `json:"kind,omitempty"`
	Code            *string                 `json:"code,omitempty"`
	Name            *string                 `json:"name,omitempty"`
	Area            *string                 `json:"area,omitempty"`
	ScheduledAt     *time.Time              `json:"scheduled_at,omitempty"`
	PractitionerID  *uuid.UUID              `json:"practitioner_id,omitempty"`
	Recommendations *string                 `json:"recommendations,omitempty"`
	Result          *string                 `json:"result,omitempty"`
	BeforeImage     *string                 `json:"before_image,omitempty"`
	AfterImage      *string                 `json:"after_image,omitempty"`
	Products        *[]ConsumedProductInput `json:"products,omitempty"`
}

// ExecuteRequest carries the fields recorded when a procedure is performed.
// BeforeImage/AfterImage hold textual references; when the request also
// carries a file attachment for the same field, the attachment wins.
type ExecuteRequest struct {
	ExecutedAt       *time.Time              `json:"executed_at,omitempty"`
	PractitionerID   *uuid.UUID              `json:"practitioner_id,omitempty"`
	Result           *string                 `json:"result,omitempty"`
	BeforeImage      *string                 `json:"before_image,omitempty"`
	AfterImage       *string                 `json:"after_image,omitempty"`
	ConsumedProducts *[]ConsumedProductInput `json:"consumed_products,omitempty"`
}

// Execution is what ApplyExecution writes: ExecutedAt is always set (the saga
// defaults it to the current time), the pointer fields only overwrite when
// non-nil.
type Execution struct {
	ExecutedAt     time.Time
	PractitionerID *uuid.UUID
	Result         *string
	BeforeImage    *string
	AfterImage     *string
}

func validKind(k string) bool {
	return k == KindCosmetic || k == KindPodiatric
}
