package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent pipeline contract failures.
// These are distinct from the raw errors returned by client libraries; every
// error a connector surfaces is one of the kinds below, never a bare
// pass-through of the underlying SDK's error.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown connector type. Raised by
	// registry lookup before any I/O begins.
	ErrUnsupportedType = errors.New("unsupported connector type")

	// ErrInvalidConfig indicates a missing or malformed connector
	// configuration field. Raised at construction, never retried.
	ErrInvalidConfig = errors.New("invalid connector configuration")
)

// Side distinguishes which end of the pipeline a connection failure belongs to.
type Side string

const (
	// SideSource marks failures reaching the system documents come from.
	SideSource Side = "source"

	// SideDestination marks failures reaching the system staged records
	// are written to.
	SideDestination Side = "destination"
)

// ConnectionError reports that a remote system could not be reached or
// refused the connector's credentials. It is fatal to the whole run for that
// connector instance; retrying is the orchestrator's decision.
type ConnectionError struct {
	ConnectorType string
	Side          Side
	Err           error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection failed for %q: %v", e.Side, e.ConnectorType, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// NewSourceConnectionError wraps a failed remote call against a source.
func NewSourceConnectionError(connectorType string, err error) *ConnectionError {
	return &ConnectionError{ConnectorType: connectorType, Side: SideSource, Err: err}
}

// NewDestinationConnectionError wraps a failed remote call against a destination.
func NewDestinationConnectionError(connectorType string, err error) *ConnectionError {
	return &ConnectionError{ConnectorType: connectorType, Side: SideDestination, Err: err}
}

// IsConnectionError reports whether err is (or wraps) a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// WriteError reports that the destination rejected one or more records in a
// batch. It names the offending records so they can be reprocessed
// selectively; batches already written stay written.
type WriteError struct {
	ConnectorType string
	RecordIDs     []string
	Err           error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	ids := strings.Join(e.RecordIDs, ", ")
	if len(e.RecordIDs) > 5 {
		ids = strings.Join(e.RecordIDs[:5], ", ") + fmt.Sprintf(", ... (%d total)", len(e.RecordIDs))
	}
	return fmt.Sprintf("write to %q failed for records [%s]: %v", e.ConnectorType, ids, e.Err)
}

// Unwrap exposes the destination-reported cause.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// ItemNotFoundError reports that a single document disappeared between
// indexing and download. Terminal for that item only; enumeration and other
// items are unaffected.
type ItemNotFoundError struct {
	Identifier string
}

// Error implements the error interface.
func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %q not found at source", e.Identifier)
}

// IsItemNotFound reports whether err is (or wraps) an ItemNotFoundError.
func IsItemNotFound(err error) bool {
	var nf *ItemNotFoundError
	return errors.As(err, &nf)
}
