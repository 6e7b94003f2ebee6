package reservation

import (
	"errors"

	"github.com/iliyamo/table-reservation/internal/audit"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// Sentinel errors returned by the Manager.  Callers branch with errors.Is
// (or KindOf), never on message text.
var (
	// ErrValidation wraps every *ValidationError.
	ErrValidation = errors.New("invalid input")
	// ErrTableRange is returned for a table index outside the pool.
	ErrTableRange = errors.New("table index out of range")
	// ErrTableBooked is returned when the requested table is occupied.
	ErrTableBooked = errors.New("table already booked")
	// ErrNotFound is returned when no active reservation has the ID.
	ErrNotFound = errors.New("reservation not found")
	// ErrDuplicateID is returned when a new ID collides with another record.
	ErrDuplicateID = errors.New("reservation id already exists")
	// ErrForbidden is returned when the actor may not touch the record.
	ErrForbidden = errors.New("forbidden")

	// ErrPersistence means the in-memory change may not be durable.
	ErrPersistence = repository.ErrPersistence
	// ErrAudit means the change happened but its audit entry was not written.
	ErrAudit = audit.ErrAudit
)

// ValidationError names the first input field that failed its rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Kind is a discriminated error code for front ends that prefer a switch
// over a chain of errors.Is calls.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindTableRange
	KindTableBooked
	KindNotFound
	KindDuplicateID
	KindForbidden
	KindPersistence
	KindAudit
	KindUnknown
)

var kindNames = map[Kind]string{
	KindNone:        "none",
	KindValidation:  "validation",
	KindTableRange:  "table_range",
	KindTableBooked: "table_booked",
	KindNotFound:    "not_found",
	KindDuplicateID: "duplicate_id",
	KindForbidden:   "forbidden",
	KindPersistence: "persistence",
	KindAudit:       "audit",
	KindUnknown:     "unknown",
}

func (k Kind) String() string { return kindNames[k] }

// KindOf classifies err.  When an error carries several kinds (a failed
// save whose error entry also could not be audited) the first one in the
// order below wins.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrTableRange):
		return KindTableRange
	case errors.Is(err, ErrTableBooked):
		return KindTableBooked
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicateID):
		return KindDuplicateID
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrAudit):
		return KindAudit
	}
	return KindUnknown
}
