package wirestream

import "github.com/blockberries/wirestream/internal/wire"

// WireType indicates how a field's payload is encoded on the wire.
// It is an alias of the internal wire type so that reader state, tokens and
// errors share one representation.
type WireType = wire.Type

// Wire type constants.
const (
	// WireNone is the state before a field header has been decoded, or
	// after the previous field has been fully consumed.
	WireNone = wire.None

	// WireVariant is a base-128 variable-length integer.
	WireVariant = wire.Variant

	// WireFixed64 is a fixed 64-bit little-endian value.
	WireFixed64 = wire.Fixed64

	// WireString is length-prefixed data: strings, bytes, embedded
	// messages, and packed repeated fields.
	WireString = wire.String

	// WireStartGroup opens a group-delimited sub-message.
	WireStartGroup = wire.StartGroup

	// WireEndGroup closes a group-delimited sub-message.
	WireEndGroup = wire.EndGroup

	// WireFixed32 is a fixed 32-bit little-endian value.
	WireFixed32 = wire.Fixed32

	// WireSignedVariant is a variant with zig-zag sign decoding requested.
	// It is a logical refinement applied by the caller; on the wire it is
	// indistinguishable from WireVariant.
	WireSignedVariant = wire.SignedVariant
)

// Limits defines resource limits for decoding untrusted input.
type Limits struct {
	// MaxDepth is the maximum sub-item nesting depth.
	// A value of 0 means no limit.
	MaxDepth int

	// MaxStringLength is the maximum length of a string in bytes.
	// A value of 0 means no limit.
	MaxStringLength int

	// MaxBytesLength is the maximum length of a byte field.
	// A value of 0 means no limit.
	MaxBytesLength int

	// MaxMessageSize is the maximum length accepted from a length prefix.
	// A value of 0 means no limit.
	MaxMessageSize int64
}

// DefaultLimits are the default resource limits.
// These are generous limits suitable for most use cases.
var DefaultLimits = Limits{
	MaxDepth:        100,
	MaxStringLength: 10 * 1024 * 1024,  // 10 MB
	MaxBytesLength:  100 * 1024 * 1024, // 100 MB
	MaxMessageSize:  64 * 1024 * 1024,  // 64 MB
}

// SecureLimits are conservative limits for untrusted input.
var SecureLimits = Limits{
	MaxDepth:        32,
	MaxStringLength: 1 * 1024 * 1024,  // 1 MB
	MaxBytesLength:  10 * 1024 * 1024, // 10 MB
	MaxMessageSize:  1 * 1024 * 1024,  // 1 MB
}

// NoLimits disables all resource limits.
// Use with caution - only for trusted input.
var NoLimits = Limits{}

// Options configures decoding behavior.
type Options struct {
	// Limits specifies resource limits.
	Limits Limits

	// InternStrings deduplicates decoded strings through a per-reader
	// cache. Useful for streams with many repeated string values.
	InternStrings bool

	// ValidateUTF8 validates that decoded strings are valid UTF-8.
	ValidateUTF8 bool
}

// DefaultOptions are the default decoding options.
var DefaultOptions = Options{
	Limits: DefaultLimits,
}

// SecureOptions are conservative options for untrusted input.
var SecureOptions = Options{
	Limits:       SecureLimits,
	ValidateUTF8: true,
}

// Size constants.
const (
	// Fixed32Size is the encoded size of a fixed 32-bit value.
	Fixed32Size = wire.Fixed32Size

	// Fixed64Size is the encoded size of a fixed 64-bit value.
	Fixed64Size = wire.Fixed64Size

	// MaxVarintLen64 is the maximum encoded size of a 64-bit varint.
	MaxVarintLen64 = wire.MaxVarintLen64

	// MaxVarintLen32 is the maximum encoded size of a 32-bit varint,
	// excluding the 10-byte negative-value expansion.
	MaxVarintLen32 = wire.MaxVarintLen32
)

// MaxInt is the maximum value of int (platform dependent).
const MaxInt = int(^uint(0) >> 1)
