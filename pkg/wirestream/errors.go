// Package wirestream provides a buffered, field-at-a-time streaming decoder
// for the protocol buffer wire format, plus the counterpart writer primitives
// needed to preserve unrecognized fields.
package wirestream

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
// These can be checked using errors.Is().
var (
	// ErrUnexpectedEOF indicates the source was exhausted before a strict
	// read's requirement was met.
	ErrUnexpectedEOF = errors.New("wirestream: unexpected end of source")

	// ErrOverflow indicates a decoded value is inconsistent with the
	// requested width.
	ErrOverflow = errors.New("wirestream: integer overflow")

	// ErrInvalidWireType indicates the current wire type does not support
	// the requested operation.
	ErrInvalidWireType = errors.New("wirestream: invalid wire type")

	// ErrInvalidFieldNumber indicates an invalid field number on the wire
	// (must be > 0).
	ErrInvalidFieldNumber = errors.New("wirestream: invalid field number")

	// ErrUnexpectedEndGroup indicates an end-group marker with no group open.
	ErrUnexpectedEndGroup = errors.New("wirestream: unexpected end-group marker")

	// ErrGroupMismatch indicates sub-item open/close calls did not pair up.
	ErrGroupMismatch = errors.New("wirestream: mismatched group nesting")

	// ErrSubItemBoundary indicates a length-delimited sub-item was closed
	// before or after its recorded boundary.
	ErrSubItemBoundary = errors.New("wirestream: sub-item boundary violation")

	// ErrNegativeLength indicates a negative length value was decoded.
	ErrNegativeLength = errors.New("wirestream: negative length")

	// ErrMaxDepthExceeded indicates the maximum nesting depth was exceeded.
	ErrMaxDepthExceeded = errors.New("wirestream: maximum nesting depth exceeded")

	// ErrMaxStringLength indicates the maximum string length was exceeded.
	ErrMaxStringLength = errors.New("wirestream: maximum string length exceeded")

	// ErrMaxBytesLength indicates the maximum bytes length was exceeded.
	ErrMaxBytesLength = errors.New("wirestream: maximum bytes length exceeded")

	// ErrMaxSizeExceeded indicates a length prefix exceeds the configured
	// message size limit.
	ErrMaxSizeExceeded = errors.New("wirestream: maximum message size exceeded")

	// ErrInvalidUTF8 indicates a decoded string contains invalid UTF-8.
	ErrInvalidUTF8 = errors.New("wirestream: invalid UTF-8 string")

	// ErrInvalidSource indicates a reader was constructed over an invalid
	// byte source.
	ErrInvalidSource = errors.New("wirestream: invalid byte source")

	// ErrInvalidLength indicates an invalid construction length.
	ErrInvalidLength = errors.New("wirestream: invalid length")

	// ErrNoModel indicates a nested object was encountered but the reader
	// has no type model to deserialize it.
	ErrNoModel = errors.New("wirestream: no type model")

	// ErrUnknownTypeKey indicates a type key was not found in the registry.
	ErrUnknownTypeKey = errors.New("wirestream: unknown type key")

	// ErrDuplicateTypeKey indicates a type key was registered more than once.
	ErrDuplicateTypeKey = errors.New("wirestream: duplicate type key")

	// ErrReleased indicates the reader or writer was used after release.
	ErrReleased = errors.New("wirestream: used after release")
)

// DecodeError provides detailed context for decoding failures: the field
// and wire type being decoded, the logical stream position, and the nesting
// depth at the point of failure. It implements the error interface and
// supports error unwrapping.
type DecodeError struct {
	// FieldNumber is the most recently decoded field number.
	FieldNumber int

	// WireType is the wire type of the current field.
	WireType WireType

	// Position is the logical byte position in the stream.
	Position int64

	// Depth is the sub-item nesting depth.
	Depth int

	// Message describes what went wrong.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted error message.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("wirestream: decode field %d (%v) at position %d, depth %d: %s",
		e.FieldNumber, e.WireType, e.Position, e.Depth, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
// This supports errors.Is() for checking the cause.
func (e *DecodeError) Is(target error) bool {
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// EncodeError provides context for failures on the counterpart writer.
type EncodeError struct {
	// FieldNumber is the field being written.
	FieldNumber int

	// WireType is the pending wire type.
	WireType WireType

	// Message describes what went wrong.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted error message.
func (e *EncodeError) Error() string {
	return fmt.Sprintf("wirestream: encode field %d (%v): %s",
		e.FieldNumber, e.WireType, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *EncodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
func (e *EncodeError) Is(target error) bool {
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// IsEndOfStream returns true if the error indicates the byte source ran out
// before a read's requirement was met.
func IsEndOfStream(err error) bool {
	return errors.Is(err, ErrUnexpectedEOF)
}

// IsProtocolError returns true if the error indicates malformed or
// misordered wire data rather than a truncated source.
func IsProtocolError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidWireType),
		errors.Is(err, ErrInvalidFieldNumber),
		errors.Is(err, ErrUnexpectedEndGroup),
		errors.Is(err, ErrGroupMismatch),
		errors.Is(err, ErrSubItemBoundary),
		errors.Is(err, ErrNegativeLength):
		return true
	default:
		return false
	}
}

// IsLimitExceeded returns true if the error indicates a configured limit
// was exceeded.
func IsLimitExceeded(err error) bool {
	switch {
	case errors.Is(err, ErrMaxDepthExceeded),
		errors.Is(err, ErrMaxStringLength),
		errors.Is(err, ErrMaxBytesLength),
		errors.Is(err, ErrMaxSizeExceeded):
		return true
	default:
		return false
	}
}
