package wirestream

import (
	"io"
	"math"
	"unicode/utf8"

	"github.com/blockberries/wirestream/internal/wire"
)

// unboundedBlockEnd is the sentinel for "no length-delimited region open".
const unboundedBlockEnd = math.MaxInt64

// Reader is a streaming, field-at-a-time decoder over a byte source.
//
// A Reader owns a pooled buffer window over the source and decodes one field
// at a time as directed by the caller: ReadFieldHeader, then either a typed
// read, SkipField, or StartSubItem/EndSubItem to descend into a nested
// message. The caller must follow strict open/close discipline: every
// sub-item must be fully consumed and closed before its parent advances.
//
// A Reader is exclusively owned by one decode operation and is not safe for
// concurrent use. The first error latches; all later operations become
// no-ops returning zero values, and Err reports the failure.
type Reader struct {
	source io.Reader
	model  TypeModel
	opts   Options

	// Buffer window: owned bytes, read cursor, unread-but-buffered count.
	ioBuf     []byte
	ioIndex   int
	available int

	// Logical bytes consumed since creation. Never decreases.
	position int64

	// End of the innermost open length-delimited region, or
	// unboundedBlockEnd when none is open.
	blockEnd int64

	depth int

	fieldNumber int
	wireType    WireType

	// Fixed-length mode throttles how many bytes may ever be pulled from
	// the source, for sub-streams framed externally.
	dataRemaining int64
	isFixedLength bool

	stringCache map[string]string
	refCache    *RefCache

	naturalEnd bool
	err        error
}

// NewReader creates a Reader over source with default options.
// The model may be nil, in which case nested-object decoding via ReadObject
// is unavailable. The reader reads until the source is exhausted.
func NewReader(source io.Reader, model TypeModel) (*Reader, error) {
	return NewReaderWithOptions(source, model, DefaultOptions)
}

// NewReaderWithOptions creates a Reader with the specified options.
func NewReaderWithOptions(source io.Reader, model TypeModel, opts Options) (*Reader, error) {
	if source == nil {
		return nil, ErrInvalidSource
	}
	return &Reader{
		source:      source,
		model:       model,
		opts:        opts,
		ioBuf:       GetBuffer(defaultBufferSize),
		blockEnd:    unboundedBlockEnd,
		wireType:    WireNone,
		fieldNumber: 0,
	}, nil
}

// NewReaderFixed creates a Reader bounded to exactly length bytes of source.
// The reader never pulls bytes past the declared length even if the source
// has more; running out of source before length bytes were consumed is an
// end-of-stream failure on the read that needed them.
func NewReaderFixed(source io.Reader, model TypeModel, opts Options, length int64) (*Reader, error) {
	if length < 0 {
		return nil, ErrInvalidLength
	}
	r, err := NewReaderWithOptions(source, model, opts)
	if err != nil {
		return nil, err
	}
	r.isFixedLength = true
	r.dataRemaining = length
	return r, nil
}

// Release returns the reader's buffer to the pool and clears references.
// The underlying byte source is never closed; its lifetime belongs to the
// caller. The reader must not be used after Release.
func (r *Reader) Release() {
	if r.ioBuf != nil {
		ReleaseBuffer(r.ioBuf)
		r.ioBuf = nil
	}
	r.source = nil
	r.model = nil
	r.stringCache = nil
	r.refCache = nil
	r.available = 0
	if r.err == nil {
		r.err = ErrReleased
	}
}

// Position returns the logical number of bytes consumed since creation.
func (r *Reader) Position() int64 { return r.position }

// Depth returns the current sub-item nesting depth; 0 at top level.
func (r *Reader) Depth() int { return r.depth }

// FieldNumber returns the field number from the most recent header decode.
func (r *Reader) FieldNumber() int { return r.fieldNumber }

// WireType returns the wire type from the most recent header decode,
// possibly refined by Hint or Assert.
func (r *Reader) WireType() WireType { return r.wireType }

// Model returns the mapping-layer handle the reader was constructed with.
func (r *Reader) Model() TypeModel { return r.model }

// Err returns the first error that occurred during reading, if any.
func (r *Reader) Err() error { return r.err }

// HitNaturalEnd returns true if a top-level ReadFieldHeader found the source
// cleanly exhausted at a field boundary. It distinguishes an intentionally
// ended stream from one truncated mid-field, which latches an error instead.
func (r *Reader) HitNaturalEnd() bool { return r.naturalEnd }

// RefCache returns the reader's object reference cache, constructing it on
// first access. The reader core never reads or writes the cache itself; it
// exists for the mapping layer to reconstruct reference cycles.
func (r *Reader) RefCache() *RefCache {
	if r.refCache == nil {
		r.refCache = newRefCache()
	}
	return r.refCache
}

// setError records the first error that occurs.
func (r *Reader) setError(err error) {
	if r.err == nil {
		r.err = err
	}
}

// errorAt records an error with full diagnostic context.
func (r *Reader) errorAt(cause error, message string) {
	if r.err == nil {
		r.err = &DecodeError{
			FieldNumber: r.fieldNumber,
			WireType:    r.wireType,
			Position:    r.position,
			Depth:       r.depth,
			Message:     message,
			Cause:       cause,
		}
	}
}

// checkRead ensures we can read.
func (r *Reader) checkRead() bool {
	return r.err == nil
}

// advance consumes n buffered bytes.
func (r *Reader) advance(n int) {
	r.ioIndex += n
	r.available -= n
	r.position += int64(n)
}

// ensure guarantees at least count bytes are contiguously available at the
// cursor, refilling from the source as needed. With strict set, failing to
// obtain count bytes latches an end-of-stream error; otherwise the reader is
// left with whatever could be buffered (used for the opportunistic varint
// read where fewer bytes than requested may suffice).
func (r *Reader) ensure(count int, strict bool) bool {
	if r.err != nil {
		return false
	}
	if count <= r.available {
		return true
	}

	if count > len(r.ioBuf) {
		r.ioBuf = ResizeAndFlushLeft(r.ioBuf, count, r.ioIndex, r.available)
		r.ioIndex = 0
	} else if r.ioIndex+count > len(r.ioBuf) {
		// Not enough room ahead of the cursor: compact.
		copy(r.ioBuf, r.ioBuf[r.ioIndex:r.ioIndex+r.available])
		r.ioIndex = 0
	}

	var readErr error
	writeHead := r.ioIndex + r.available
	for count > r.available && writeHead < len(r.ioBuf) {
		max := len(r.ioBuf) - writeHead
		if r.isFixedLength {
			if r.dataRemaining < int64(max) {
				max = int(r.dataRemaining)
			}
			if max == 0 {
				break
			}
		}
		n, err := r.source.Read(r.ioBuf[writeHead : writeHead+max])
		if n > 0 {
			r.available += n
			writeHead += n
			if r.isFixedLength {
				r.dataRemaining -= int64(n)
			}
		}
		if err != nil {
			if err != io.EOF {
				readErr = err
			}
			break
		}
		if n == 0 {
			// A zero-length result signals exhaustion.
			break
		}
	}

	if count > r.available {
		if readErr != nil {
			r.errorAt(readErr, "read from source failed")
			return false
		}
		if strict {
			r.errorAt(ErrUnexpectedEOF, "unexpected end of source")
			return false
		}
	}
	return true
}

// tryReadUvarint64 decodes a 64-bit varint without advancing the cursor.
// It returns 0 bytes consumed when no bytes are buffered at a field
// boundary; once a continuation bit has been seen, a missing byte latches a
// hard end-of-stream error instead.
func (r *Reader) tryReadUvarint64() (uint64, int) {
	if !r.ensure(wire.MaxVarintLen64, false) {
		return 0, 0
	}
	if r.available == 0 {
		return 0, 0
	}
	v, n, err := wire.DecodeUvarint(r.ioBuf[r.ioIndex : r.ioIndex+r.available])
	if err != nil {
		switch err {
		case wire.ErrVarintTruncated:
			r.errorAt(ErrUnexpectedEOF, "source ended mid-varint")
		default:
			r.errorAt(ErrOverflow, "varint overflows uint64")
		}
		return 0, 0
	}
	return v, n
}

// tryReadUvarint32 decodes a 32-bit varint without advancing the cursor.
// With trimNegative set, the 10-byte two's-complement expansion of a
// negative value is accepted. Zero-bytes-consumed and error semantics match
// tryReadUvarint64.
func (r *Reader) tryReadUvarint32(trimNegative bool) (uint32, int) {
	if !r.ensure(wire.MaxVarintLen64, false) {
		return 0, 0
	}
	if r.available == 0 {
		return 0, 0
	}
	v, n, err := wire.DecodeUvarint32(r.ioBuf[r.ioIndex:r.ioIndex+r.available], trimNegative)
	if err != nil {
		switch err {
		case wire.ErrVarintTruncated:
			r.errorAt(ErrUnexpectedEOF, "source ended mid-varint")
		default:
			r.errorAt(ErrOverflow, "varint overflows uint32")
		}
		return 0, 0
	}
	return v, n
}

// readUvarint64 decodes and consumes a 64-bit varint.
func (r *Reader) readUvarint64() uint64 {
	v, n := r.tryReadUvarint64()
	if n == 0 {
		r.errorAt(ErrUnexpectedEOF, "unexpected end of source")
		return 0
	}
	r.advance(n)
	return v
}

// readUvarint32 decodes and consumes a 32-bit varint.
func (r *Reader) readUvarint32(trimNegative bool) uint32 {
	v, n := r.tryReadUvarint32(trimNegative)
	if n == 0 {
		r.errorAt(ErrUnexpectedEOF, "unexpected end of source")
		return 0
	}
	r.advance(n)
	return v
}

// readFixed32 consumes 4 little-endian bytes.
func (r *Reader) readFixed32() uint32 {
	if !r.ensure(wire.Fixed32Size, true) {
		return 0
	}
	v, _ := wire.DecodeFixed32(r.ioBuf[r.ioIndex:])
	r.advance(wire.Fixed32Size)
	return v
}

// readFixed64 consumes 8 little-endian bytes.
func (r *Reader) readFixed64() uint64 {
	if !r.ensure(wire.Fixed64Size, true) {
		return 0
	}
	v, _ := wire.DecodeFixed64(r.ioBuf[r.ioIndex:])
	r.advance(wire.Fixed64Size)
	return v
}

// ReadInt32 reads a signed 32-bit integer using the current wire type.
// On WireVariant the 10-byte two's-complement expansion of a negative value
// is accepted; on WireSignedVariant the value is zig-zag decoded.
func (r *Reader) ReadInt32() int32 {
	if !r.checkRead() {
		return 0
	}
	switch r.wireType {
	case WireVariant:
		return int32(r.readUvarint32(true))
	case WireSignedVariant:
		return wire.DecodeZigzag32(r.readUvarint32(false))
	case WireFixed32:
		return int32(r.readFixed32())
	case WireFixed64:
		v := int64(r.readFixed64())
		if v < math.MinInt32 || v > math.MaxInt32 {
			r.errorAt(ErrOverflow, "value does not fit in int32")
			return 0
		}
		return int32(v)
	default:
		r.errorAt(ErrInvalidWireType, "invalid wire type for int32")
		return 0
	}
}

// ReadInt64 reads a signed 64-bit integer using the current wire type.
func (r *Reader) ReadInt64() int64 {
	if !r.checkRead() {
		return 0
	}
	switch r.wireType {
	case WireVariant:
		return int64(r.readUvarint64())
	case WireSignedVariant:
		return wire.DecodeZigzag64(r.readUvarint64())
	case WireFixed64:
		return int64(r.readFixed64())
	case WireFixed32:
		// Sign-extend from 32 bits.
		return int64(int32(r.readFixed32()))
	default:
		r.errorAt(ErrInvalidWireType, "invalid wire type for int64")
		return 0
	}
}

// ReadUint32 reads an unsigned 32-bit integer using the current wire type.
func (r *Reader) ReadUint32() uint32 {
	if !r.checkRead() {
		return 0
	}
	switch r.wireType {
	case WireVariant:
		return r.readUvarint32(false)
	case WireFixed32:
		return r.readFixed32()
	case WireFixed64:
		v := r.readFixed64()
		if v > math.MaxUint32 {
			r.errorAt(ErrOverflow, "value does not fit in uint32")
			return 0
		}
		return uint32(v)
	default:
		r.errorAt(ErrInvalidWireType, "invalid wire type for uint32")
		return 0
	}
}

// ReadUint64 reads an unsigned 64-bit integer using the current wire type.
func (r *Reader) ReadUint64() uint64 {
	if !r.checkRead() {
		return 0
	}
	switch r.wireType {
	case WireVariant:
		return r.readUvarint64()
	case WireFixed64:
		return r.readFixed64()
	case WireFixed32:
		return uint64(r.readFixed32())
	default:
		r.errorAt(ErrInvalidWireType, "invalid wire type for uint64")
		return 0
	}
}

// ReadBool reads a boolean value. Any non-zero encoding is true.
func (r *Reader) ReadBool() bool {
	return r.ReadUint64() != 0
}

// ReadFloat32 reads a 32-bit floating point number. A WireFixed64 payload
// is narrowed; narrowing that produces a spurious infinity is an overflow.
func (r *Reader) ReadFloat32() float32 {
	if !r.checkRead() {
		return 0
	}
	switch r.wireType {
	case WireFixed32:
		return math.Float32frombits(r.readFixed32())
	case WireFixed64:
		v := math.Float64frombits(r.readFixed64())
		f := float32(v)
		if math.IsInf(float64(f), 0) && !math.IsInf(v, 0) {
			r.errorAt(ErrOverflow, "value does not fit in float32")
			return 0
		}
		return f
	default:
		r.errorAt(ErrInvalidWireType, "invalid wire type for float32")
		return 0
	}
}

// ReadFloat64 reads a 64-bit floating point number.
func (r *Reader) ReadFloat64() float64 {
	if !r.checkRead() {
		return 0
	}
	switch r.wireType {
	case WireFixed64:
		return math.Float64frombits(r.readFixed64())
	case WireFixed32:
		return float64(math.Float32frombits(r.readFixed32()))
	default:
		r.errorAt(ErrInvalidWireType, "invalid wire type for float64")
		return 0
	}
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() string {
	if !r.checkRead() {
		return ""
	}
	if r.wireType != WireString {
		r.errorAt(ErrInvalidWireType, "invalid wire type for string")
		return ""
	}
	length := r.readUvarint32(false)
	if r.err != nil {
		return ""
	}
	n := int(length)
	if r.opts.Limits.MaxStringLength > 0 && n > r.opts.Limits.MaxStringLength {
		r.errorAt(ErrMaxStringLength, "string length exceeds limit")
		return ""
	}
	if n == 0 {
		return ""
	}
	if !r.ensure(n, true) {
		return ""
	}
	s := string(r.ioBuf[r.ioIndex : r.ioIndex+n])
	r.advance(n)
	if r.opts.ValidateUTF8 && !utf8.ValidString(s) {
		r.errorAt(ErrInvalidUTF8, "string is not valid UTF-8")
		return ""
	}
	if r.opts.InternStrings {
		if cached, ok := r.stringCache[s]; ok {
			return cached
		}
		if r.stringCache == nil {
			r.stringCache = make(map[string]string)
		}
		r.stringCache[s] = s
	}
	return s
}

// ReadBytes reads a length-prefixed byte field into a fresh slice.
func (r *Reader) ReadBytes() []byte {
	return r.AppendBytes(nil)
}

// AppendBytes reads a length-prefixed byte field, appending the payload to
// existing and returning the extended slice. Payloads larger than the buffer
// window are read directly from the source without growing the window.
func (r *Reader) AppendBytes(existing []byte) []byte {
	if !r.checkRead() {
		return existing
	}
	if r.wireType != WireString {
		r.errorAt(ErrInvalidWireType, "invalid wire type for bytes")
		return existing
	}
	length := r.readUvarint32(false)
	if r.err != nil {
		return existing
	}
	n := int(length)
	if r.opts.Limits.MaxBytesLength > 0 && n > r.opts.Limits.MaxBytesLength {
		r.errorAt(ErrMaxBytesLength, "bytes length exceeds limit")
		return existing
	}
	if n == 0 {
		return existing
	}

	start := len(existing)
	out := append(existing, make([]byte, n)...)
	dst := out[start:]

	take := n
	if take > r.available {
		take = r.available
	}
	copy(dst, r.ioBuf[r.ioIndex:r.ioIndex+take])
	r.advance(take)

	// Remainder bypasses the window and comes straight from the source.
	for filled := take; filled < n; {
		max := n - filled
		if r.isFixedLength {
			if r.dataRemaining < int64(max) {
				max = int(r.dataRemaining)
			}
			if max == 0 {
				r.errorAt(ErrUnexpectedEOF, "fixed-length budget exhausted")
				return existing
			}
		}
		got, err := r.source.Read(dst[filled : filled+max])
		if got > 0 {
			filled += got
			r.position += int64(got)
			if r.isFixedLength {
				r.dataRemaining -= int64(got)
			}
		}
		if err != nil || got == 0 {
			if err != nil && err != io.EOF {
				r.errorAt(err, "read from source failed")
			} else if filled < n {
				r.errorAt(ErrUnexpectedEOF, "source ended mid-bytes")
			}
			if r.err != nil {
				return existing
			}
		}
	}
	return out
}
