package address

import "errors"

var (
	// ErrMalformedAddress indicates an address that does not match the address grammar.
	ErrMalformedAddress = errors.New("malformed address")
	// ErrInvalidNamespace indicates a missing, non-numeric or zero browse path namespace.
	ErrInvalidNamespace = errors.New("invalid namespace")
	// ErrModeMismatch indicates a node id address in a browse path session or vice versa.
	ErrModeMismatch = errors.New("address mode differs from the session address mode")
)
