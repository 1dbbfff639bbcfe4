package coerce

import "errors"

var (
	// ErrOutOfRange indicates a numeric value does not fit the target type.
	ErrOutOfRange = errors.New("value out of range")
	// ErrCapacityExceeded indicates a remote array is longer than the local slot capacity.
	ErrCapacityExceeded = errors.New("array length exceeds slot capacity")
	// ErrUnsupportedType indicates a remote or local type that cannot be converted.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrShapeMismatch indicates an array value for a scalar slot or vice versa.
	ErrShapeMismatch = errors.New("array/scalar mismatch")
	// ErrInvalidValue indicates a value that cannot be interpreted, e.g. an unparsable string.
	ErrInvalidValue = errors.New("invalid value")
	// ErrNoValue indicates a Null variant.
	ErrNoValue = errors.New("no value")
)
