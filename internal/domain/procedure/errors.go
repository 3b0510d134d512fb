package procedure

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrTreatmentNotFound is returned when the referenced treatment does
	// not exist. Checked before any procedure row is written.
	ErrTreatmentNotFound = errors.New("treatment not found")

	// ErrProcedureNotFound is returned when the procedure/treatment pair
	// does not resolve.
	ErrProcedureNotFound = errors.New("procedure not found")

	// ErrInvalidInput marks validation failures. Raised before any staging
	// or transaction begins.
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTreatmentNotFound) || errors.Is(err, ErrProcedureNotFound)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConflict reports whether err is store contention: a serialization
// failure, deadlock, or lock timeout. The transaction has already been
// rolled back; the caller surfaces it as a transient error.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
		return true
	}
	return false
}
