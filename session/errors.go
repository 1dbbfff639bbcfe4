package session

import "errors"

var (
	// ErrConfigNil is returned when an option is applied to a nil configuration.
	ErrConfigNil = errors.New("config is nil")
	// ErrDuplicateTag indicates a session or subscription tag that is already registered.
	ErrDuplicateTag = errors.New("duplicate tag")
	// ErrUnknownTag indicates a session or subscription tag that is not registered.
	ErrUnknownTag = errors.New("unknown tag")
	// ErrNotConnected indicates an operation that requires a connected session.
	ErrNotConnected = errors.New("session not connected")
	// ErrUnresolved indicates an item whose address has no server node.
	ErrUnresolved = errors.New("item address not resolved")
	// ErrNotWritable indicates a write to an item without write access.
	ErrNotWritable = errors.New("item not writable")
	// ErrWritePending indicates a write while the previous write of the item is still in flight.
	ErrWritePending = errors.New("write pending")
	// ErrSubscriptionActive indicates an item added to a subscription that exists on the server.
	ErrSubscriptionActive = errors.New("subscription already created")
	// ErrSessionClosed indicates an operation on a session after Shutdown.
	ErrSessionClosed = errors.New("session closed")
	// ErrClientNil indicates a session created without a protocol client.
	ErrClientNil = errors.New("client is nil")
)
