package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDataset is returned for a key that is not registered.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrUnsupported is returned by operations the dataset's backend
	// cannot perform, such as declaring fields on a database table.
	ErrUnsupported = errors.New("operation not supported by this backend")
)

// ValidationError is a rejected mutation. Nothing has been written when it
// is returned.
type ValidationError struct {
	Field   string // Field name, empty for dataset-level problems
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ConflictError reports that a record with ID already exists in the
// effective set. It is advisory: Create does not check for it.
type ConflictError struct {
	Dataset string
	ID      string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s: a record with id %q already exists", e.Dataset, e.ID)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}

// ErrUnauthorized is returned when an edit is attempted without editor
// rights.
var ErrUnauthorized = errors.New("unauthorized")
