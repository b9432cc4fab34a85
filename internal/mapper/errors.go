package mapper

import (
	"errors"
	"fmt"

	"github.com/R3E-Network/mvc_bridge/internal/namespace"
)

var (
	// ErrNotConfigured is returned by a mapper that has no bound schema.
	ErrNotConfigured = errors.New("mapper: no mapped type configured")
	// ErrMappedTypeReassigned is returned when a mapper already bound to one
	// schema is asked to bind another.
	ErrMappedTypeReassigned = errors.New("mapper: mapped type cannot be reassigned")
	// ErrIncompatibleValue is wrapped by every coercion failure.
	ErrIncompatibleValue = errors.New("incompatible value")
	// ErrInvalidSchema is returned for schemas that cannot be described.
	ErrInvalidSchema = errors.New("mapper: invalid schema")
)

// MappingError reports a property value that could not be assigned.
type MappingError struct {
	Schema string
	Member string
	QName  namespace.QName
	Value  any
	Err    error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map %s: member %s from %s: %v", e.Schema, e.Member, e.QName, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}
