package errors

import (
	"fmt"

	"github.com/juju/errors"
)

const (
	// InvalidName describes a display name that is empty or cannot be
	// turned into an identifier.
	InvalidName = errors.ConstError("invalid name")

	// DuplicateName describes a logical or physical name that collides
	// with an existing table or field.
	DuplicateName = errors.ConstError("duplicate name")

	// ReservedName describes a field name that collides with a system column.
	ReservedName = errors.ConstError("reserved name")

	// UnknownFieldType describes a field type key that is not registered.
	UnknownFieldType = errors.ConstError("unknown field type")

	// AmbiguousOrUnknownType describes a physical column type that cannot be
	// mapped back to exactly one field type.
	AmbiguousOrUnknownType = errors.ConstError("ambiguous or unknown field type")

	// ColumnExists describes an attempt to add a physical column that is
	// already present in the live schema.
	ColumnExists = errors.ConstError("column exists")

	// ColumnMissing describes an attempt to change a physical column that is
	// absent from the live schema.
	ColumnMissing = errors.ConstError("column missing")

	// InvalidGeometry describes a geometry payload that cannot be parsed or
	// does not fit the geometry field it targets.
	InvalidGeometry = errors.ConstError("invalid geometry")

	// InvalidValue describes a row value that cannot be stored in its column.
	InvalidValue = errors.ConstError("invalid value")

	// EmptyImport describes an import with no features.
	EmptyImport = errors.ConstError("empty import")

	// NotFound describes a table, field, row or file that does not exist or
	// is not visible to the caller.
	NotFound = errors.ConstError("not found")

	// Unauthorized describes an anonymous caller.
	Unauthorized = errors.ConstError("unauthorized")

	// Forbidden describes an authenticated caller denied by policy.
	Forbidden = errors.ConstError("forbidden")
)

// ValidationError attributes a validation failure to one input field.
type ValidationError struct {
	Field string
	Err   error
}

// Validation returns a ValidationError for field wrapping err.
func Validation(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Validationf returns a ValidationError for field wrapping kind with a
// formatted message.
func Validationf(field string, kind error, format string, args ...any) error {
	return &ValidationError{Field: field, Err: errors.Annotatef(kind, format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err should be surfaced to the caller as a
// recoverable input error.
func IsValidation(err error) bool {
	for _, kind := range []error{InvalidName, ReservedName, UnknownFieldType, InvalidGeometry, InvalidValue, EmptyImport} {
		if errors.Is(err, kind) {
			return true
		}
	}
	var v *ValidationError
	return errors.As(err, &v)
}
