// Package wire provides low-level encoding primitives for the protocol
// buffer wire format.
package wire

import "errors"

// Maximum encoded sizes for varints.
// Each varint byte encodes 7 bits, so a uint64 needs ceil(64/7) = 10 bytes
// and a uint32 needs ceil(32/7) = 5 bytes.
const (
	MaxVarintLen64 = 10
	MaxVarintLen32 = 5
)

// Errors for varint decoding.
var (
	// ErrVarintOverflow indicates the varint's trailing bits are inconsistent
	// with the target width.
	ErrVarintOverflow = errors.New("wirestream: varint overflows target width")

	// ErrVarintTruncated indicates the input data ended mid-varint.
	ErrVarintTruncated = errors.New("wirestream: varint truncated")

	// ErrVarintTooLong indicates the varint encoding exceeds maximum length.
	ErrVarintTooLong = errors.New("wirestream: varint exceeds maximum length")
)

// AppendUvarint appends the varint encoding of v to buf and returns the
// extended buffer.
//
// The encoding uses 7 bits per byte, with the MSB as a continuation flag.
// Bytes are ordered from least significant to most significant.
//
// Example encodings:
//   - 0 → [0x00]
//   - 1 → [0x01]
//   - 127 → [0x7f]
//   - 128 → [0x80, 0x01]
//   - 300 → [0xac, 0x02]
func AppendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// DecodeUvarint decodes a varint from data and returns the value and the
// number of bytes consumed. If the data is truncated or the varint overflows
// a uint64, an error is returned.
//
// The function is optimized for the common case of small values (1-2 bytes).
func DecodeUvarint(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrVarintTruncated
	}

	// Fast path for single-byte varints (values 0-127)
	if data[0] < 0x80 {
		return uint64(data[0]), 1, nil
	}

	var v uint64
	var shift uint

	for i := 0; i < len(data); i++ {
		if i >= MaxVarintLen64 {
			return 0, 0, ErrVarintTooLong
		}

		b := data[i]
		// At the 10th byte (index 9), 63 bits are already consumed.
		// The 10th byte may contribute only the lowest bit (bit 63).
		if i == 9 {
			if b >= 0x80 {
				return 0, 0, ErrVarintTooLong
			}
			if b > 1 {
				return 0, 0, ErrVarintOverflow
			}
		}

		v |= uint64(b&0x7f) << shift

		if b < 0x80 {
			return v, i + 1, nil
		}

		shift += 7
	}

	return 0, 0, ErrVarintTruncated
}

// DecodeUvarint32 decodes a varint from data into a uint32.
//
// A 5th byte normally supplies only its low 4 bits. When trimNegative is
// true, the 10-byte two's-complement expansion of a small negative number
// (bytes 6-10 equal to 0xFF,0xFF,0xFF,0xFF,0x01) is accepted and consumes
// exactly 10 bytes; the value is truncated to its low 32 bits. Any other
// 5th-byte high-nibble combination is an overflow error.
func DecodeUvarint32(data []byte, trimNegative bool) (uint32, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrVarintTruncated
	}

	b := data[0]
	if b < 0x80 {
		return uint32(b), 1, nil
	}

	v := uint32(b & 0x7f)
	var shift uint = 7

	for i := 1; i < MaxVarintLen32; i++ {
		if i >= len(data) {
			return 0, 0, ErrVarintTruncated
		}
		b = data[i]
		if i == MaxVarintLen32-1 {
			// 5th byte: only the low 4 bits fit in a uint32.
			v |= uint32(b&0x0f) << 28
			if b&0xf0 == 0 {
				return v, MaxVarintLen32, nil
			}
			if trimNegative && b&0xf0 == 0xf0 {
				// Negative numbers are encoded as their 64-bit
				// two's-complement expansion.
				if len(data) >= MaxVarintLen64 &&
					data[5] == 0xff && data[6] == 0xff &&
					data[7] == 0xff && data[8] == 0xff &&
					data[9] == 0x01 {
					return v, MaxVarintLen64, nil
				}
				if len(data) < MaxVarintLen64 {
					return 0, 0, ErrVarintTruncated
				}
			}
			return 0, 0, ErrVarintOverflow
		}
		v |= uint32(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}

	return 0, 0, ErrVarintTruncated
}

// EncodeZigzag32 maps a signed 32-bit integer to an unsigned one so that
// numbers with small absolute values have small varint encodings:
//
//	0 → 0, -1 → 1, 1 → 2, -2 → 3, 2 → 4, ...
func EncodeZigzag32(v int32) uint32 {
	return uint32(v<<1) ^ uint32(v>>31)
}

// DecodeZigzag32 reverses EncodeZigzag32.
// It operates in 32-bit two's-complement arithmetic, masking out only the
// 32-bit sign bit when inverting.
func DecodeZigzag32(u uint32) int32 {
	return -int32(u&1) ^ int32(u>>1)
}

// EncodeZigzag64 maps a signed 64-bit integer to an unsigned one, the
// 64-bit analogue of EncodeZigzag32.
func EncodeZigzag64(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// DecodeZigzag64 reverses EncodeZigzag64.
func DecodeZigzag64(u uint64) int64 {
	return -int64(u&1) ^ int64(u>>1)
}

// UvarintSize returns the number of bytes required to encode v as a varint.
//
// This is useful for pre-allocating buffers.
func UvarintSize(v uint64) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	case v < 1<<35:
		return 5
	case v < 1<<42:
		return 6
	case v < 1<<49:
		return 7
	case v < 1<<56:
		return 8
	case v < 1<<63:
		return 9
	default:
		return 10
	}
}

// PutUvarint encodes v into buf and returns the number of bytes written.
// The buffer must be large enough to hold the encoded value; use UvarintSize
// to determine the required size.
//
// This is a lower-level function than AppendUvarint, useful when the buffer
// is already allocated.
func PutUvarint(buf []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		buf[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	buf[i] = byte(v)
	return i + 1
}
