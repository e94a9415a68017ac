package wirestream

import (
	"io"

	"github.com/blockberries/wirestream/internal/wire"
)

// PrefixStyle selects how a stream-level length prefix is encoded. It is
// the mechanism for framing multiple concatenated messages on a single
// connection: parse the prefix, then bound a fixed-length Reader to it.
type PrefixStyle int

const (
	// PrefixNone reads no prefix; the remaining stream is unbounded.
	PrefixNone PrefixStyle = iota

	// PrefixBase128 is a varint length, optionally preceded by a field
	// header that must carry the String wire type.
	PrefixBase128

	// PrefixFixed32 is a 4-byte little-endian length.
	PrefixFixed32

	// PrefixFixed32BigEndian is a 4-byte big-endian length.
	PrefixFixed32BigEndian
)

// String returns a human-readable name for the prefix style.
func (s PrefixStyle) String() string {
	switch s {
	case PrefixNone:
		return "None"
	case PrefixBase128:
		return "Base128"
	case PrefixFixed32:
		return "Fixed32"
	case PrefixFixed32BigEndian:
		return "Fixed32BigEndian"
	default:
		return "Unknown"
	}
}

// ReadLengthPrefix parses a length prefix directly from source, without a
// constructed Reader, so a caller can carve an exact-length sub-stream
// before binding a fixed-length Reader over it.
//
// It returns the field number carried by the header (Base128 with
// expectHeader only, otherwise 0), the payload length, and ok. A length of
// -1 with PrefixNone means "unbounded". ok is false with a nil error when
// the source ended cleanly before any prefix byte - including the
// expected-header-absent case, which is reported this way rather than as a
// failure. A source that ends mid-prefix returns ErrUnexpectedEOF.
func ReadLengthPrefix(source io.Reader, expectHeader bool, style PrefixStyle) (fieldNumber int, length int64, ok bool, err error) {
	switch style {
	case PrefixNone:
		return 0, -1, true, nil

	case PrefixBase128:
		if expectHeader {
			tag, n, err := DirectReadVarint(source)
			if err != nil || n == 0 {
				// Absent header: no header, not a failure.
				return 0, 0, false, err
			}
			if WireType(tag&7) != WireString {
				return 0, 0, false, &DecodeError{
					FieldNumber: int(tag >> 3),
					WireType:    WireType(tag & 7),
					Message:     "length-prefix header must use the String wire type",
					Cause:       ErrInvalidWireType,
				}
			}
			fieldNumber = int(tag >> 3)
			v, n, err := DirectReadVarint(source)
			if err == nil && n == 0 {
				err = ErrUnexpectedEOF
			}
			if err != nil {
				return 0, 0, false, err
			}
			return fieldNumber, int64(v), true, nil
		}
		v, n, err := DirectReadVarint(source)
		if err != nil || n == 0 {
			return 0, 0, false, err
		}
		return 0, int64(v), true, nil

	case PrefixFixed32, PrefixFixed32BigEndian:
		var buf [4]byte
		n, err := io.ReadFull(source, buf[:])
		if n == 0 && (err == io.EOF || err == nil) {
			return 0, 0, false, nil
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				err = ErrUnexpectedEOF
			}
			return 0, 0, false, err
		}
		var v uint32
		if style == PrefixFixed32 {
			v, _ = wire.DecodeFixed32(buf[:])
		} else {
			v, _ = wire.DecodeFixed32BigEndian(buf[:])
		}
		return 0, int64(v), true, nil

	default:
		return 0, 0, false, &DecodeError{Message: "unknown length-prefix style", Cause: ErrInvalidLength}
	}
}

// ReadNextMessage parses a length prefix from source and returns a Reader
// bounded to exactly that many bytes (or an unbounded Reader for
// PrefixNone). ok is false with a nil error at a clean end of stream. The
// configured MaxMessageSize limit applies to the parsed length.
func ReadNextMessage(source io.Reader, model TypeModel, opts Options, expectHeader bool, style PrefixStyle) (*Reader, bool, error) {
	_, length, ok, err := ReadLengthPrefix(source, expectHeader, style)
	if err != nil || !ok {
		return nil, false, err
	}
	if length < 0 {
		r, err := NewReaderWithOptions(source, model, opts)
		return r, err == nil, err
	}
	if opts.Limits.MaxMessageSize > 0 && length > opts.Limits.MaxMessageSize {
		return nil, false, ErrMaxSizeExceeded
	}
	r, err := NewReaderFixed(source, model, opts, length)
	return r, err == nil, err
}

// DirectReadVarint reads a varint one byte at a time directly from source,
// bypassing any Reader buffering, so the source position after the call is
// exactly the end of the varint. n is 0 when the source ended cleanly
// before the first byte; an end after a continuation bit is
// ErrUnexpectedEOF.
func DirectReadVarint(source io.Reader) (v uint64, n int, err error) {
	br, ok := source.(io.ByteReader)
	var one [1]byte
	var shift uint
	for i := 0; i < wire.MaxVarintLen64; i++ {
		var b byte
		if ok {
			b, err = br.ReadByte()
		} else {
			var got int
			got, err = source.Read(one[:])
			if got == 1 {
				// A byte alongside io.EOF still counts; the next
				// iteration sees the bare EOF.
				b = one[0]
				err = nil
			} else if err == nil {
				err = io.EOF
			}
		}
		if err != nil {
			if err == io.EOF {
				if i == 0 {
					return 0, 0, nil
				}
				return 0, 0, ErrUnexpectedEOF
			}
			return 0, 0, err
		}
		if i == wire.MaxVarintLen64-1 {
			if b > 1 {
				return 0, 0, ErrOverflow
			}
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrOverflow
}
