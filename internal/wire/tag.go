package wire

import "errors"

// Type indicates how a field's payload is encoded on the wire.
//
// The on-wire values occupy the low 3 bits of a field tag. SignedVariant is
// a logical refinement of Variant applied by the caller to request zig-zag
// decoding; it never appears on the wire. None means no field header has
// been decoded (or the previous one has been fully consumed).
type Type int8

const (
	// None is the state before a field header has been decoded.
	None Type = -1

	// Variant is a base-128 variable-length integer.
	Variant Type = 0

	// Fixed64 is 8 bytes in little-endian order.
	Fixed64 Type = 1

	// String is length-prefixed data: strings, byte slices, embedded
	// messages, and packed repeated fields.
	// Format: [length: varint] [data: length bytes]
	String Type = 2

	// StartGroup opens a group-delimited sub-message.
	StartGroup Type = 3

	// EndGroup closes a group-delimited sub-message.
	EndGroup Type = 4

	// Fixed32 is 4 bytes in little-endian order.
	Fixed32 Type = 5

	// SignedVariant is Variant with zig-zag sign decoding requested.
	// The modifier bit is outside the 3-bit wire encoding.
	SignedVariant Type = Variant | modifier
)

// modifier marks logical refinements that share on-wire bits with a base type.
const modifier Type = 8

// Basic returns the 3-bit on-wire encoding of the type.
func (t Type) Basic() Type {
	return t & 7
}

// String returns a human-readable name for the wire type.
func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Variant:
		return "Variant"
	case Fixed64:
		return "Fixed64"
	case String:
		return "String"
	case StartGroup:
		return "StartGroup"
	case EndGroup:
		return "EndGroup"
	case Fixed32:
		return "Fixed32"
	case SignedVariant:
		return "SignedVariant"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the type is decodable from a tag.
func (t Type) IsValid() bool {
	switch t {
	case Variant, Fixed64, String, StartGroup, EndGroup, Fixed32:
		return true
	default:
		return false
	}
}

// Errors for tag decoding.
var (
	// ErrInvalidWireType indicates an unknown or invalid wire type.
	ErrInvalidWireType = errors.New("wirestream: invalid wire type")

	// ErrInvalidFieldNumber indicates an invalid field number (must be > 0).
	ErrInvalidFieldNumber = errors.New("wirestream: invalid field number")
)

// Tag represents a field tag combining field number and wire type.
// The tag is encoded as a varint: (field_number << 3) | wire_type
type Tag uint64

// NewTag creates a new tag from a field number and wire type.
// Only the low 3 bits of the wire type reach the wire, so SignedVariant
// encodes identically to Variant.
func NewTag(fieldNum int, wireType Type) Tag {
	return Tag(uint64(fieldNum)<<3 | uint64(wireType&7))
}

// FieldNumber returns the field number from the tag.
func (t Tag) FieldNumber() int {
	return int(t >> 3)
}

// WireType returns the wire type from the tag.
func (t Tag) WireType() Type {
	return Type(t & 0x7)
}

// AppendTag appends a field tag to buf and returns the extended buffer.
func AppendTag(buf []byte, fieldNum int, wireType Type) []byte {
	return AppendUvarint(buf, uint64(NewTag(fieldNum, wireType)))
}

// DecodeTag decodes a field tag from data.
// Returns the field number, wire type, bytes consumed, and any error.
//
// A field number of 0 is the "no more fields" sentinel and is invalid on
// the wire. Unknown wire types return ErrInvalidWireType.
func DecodeTag(data []byte) (fieldNum int, wireType Type, n int, err error) {
	tag, n, err := DecodeUvarint(data)
	if err != nil {
		return 0, None, 0, err
	}

	fieldNum = int(tag >> 3)
	wireType = Type(tag & 0x7)

	if fieldNum <= 0 {
		return 0, None, 0, ErrInvalidFieldNumber
	}
	if !wireType.IsValid() {
		return 0, None, n, ErrInvalidWireType
	}

	return fieldNum, wireType, n, nil
}

// TagSize returns the number of bytes required to encode a tag.
func TagSize(fieldNum int) int {
	// The wire type occupies the low 3 bits, which the shift already
	// accounts for.
	return UvarintSize(uint64(fieldNum) << 3)
}

// MaxFieldNumber is the maximum allowed field number.
// Field numbers are encoded as part of a varint, so technically they can be
// very large, but we impose a practical limit for safety.
const MaxFieldNumber = 1<<29 - 1

// ValidateFieldNumber returns an error if the field number is invalid.
func ValidateFieldNumber(fieldNum int) error {
	if fieldNum <= 0 || fieldNum > MaxFieldNumber {
		return ErrInvalidFieldNumber
	}
	return nil
}
