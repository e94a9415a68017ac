package wirestream

import (
	"math"
	"sync"

	"github.com/blockberries/wirestream/internal/wire"
)

// Writer is the counterpart encoder: it mirrors the reader's framing
// primitives and accepts exactly the values the reader decodes. Its main
// consumer is extension pass-through, which re-emits unrecognized fields
// verbatim; it also serves round-trip tests.
//
// A Writer accumulates into an owned buffer. Like the Reader it latches the
// first error: subsequent writes are no-ops and Err reports the failure.
type Writer struct {
	buf   []byte
	depth int

	// Pending field state set by WriteFieldHeader and cleared once the
	// field's value has been written.
	fieldNumber int
	wireType    WireType

	err error
}

// writerPool provides pooled writers for reduced allocations.
var writerPool = sync.Pool{
	New: func() any {
		return &Writer{
			buf:      make([]byte, 0, 256),
			wireType: WireNone,
		}
	},
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{
		buf:      make([]byte, 0, 256),
		wireType: WireNone,
	}
}

// GetWriter gets a Writer from the pool.
// The Writer should be returned with PutWriter when done.
func GetWriter() *Writer {
	w := writerPool.Get().(*Writer)
	w.Reset()
	return w
}

// PutWriter returns a Writer to the pool.
// The Writer must not be used after calling this.
func PutWriter(w *Writer) {
	if w == nil {
		return
	}
	// Don't pool large buffers to avoid memory bloat.
	if cap(w.buf) > 64*1024 {
		return
	}
	w.Reset()
	writerPool.Put(w)
}

// Reset clears the writer for reuse.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.depth = 0
	w.fieldNumber = 0
	w.wireType = WireNone
	w.err = nil
}

// Bytes returns the encoded data. The slice is only valid until the next
// call to Reset or any Write method.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the current length of the encoded data.
func (w *Writer) Len() int { return len(w.buf) }

// Depth returns the current sub-item nesting depth.
func (w *Writer) Depth() int { return w.depth }

// Err returns any error that occurred during writing.
func (w *Writer) Err() error { return w.err }

// setError records the first error.
func (w *Writer) setError(err error) {
	if w.err == nil {
		w.err = err
	}
}

// errorAt records an error with field context.
func (w *Writer) errorAt(cause error, message string) {
	if w.err == nil {
		w.err = &EncodeError{
			FieldNumber: w.fieldNumber,
			WireType:    w.wireType,
			Message:     message,
			Cause:       cause,
		}
	}
}

// checkWrite ensures we can write.
func (w *Writer) checkWrite() bool {
	return w.err == nil
}

// valueWritten clears the pending field state.
func (w *Writer) valueWritten() {
	w.wireType = WireNone
}

// WriteFieldHeader emits a field tag. The wire type determines which value
// write must follow; a second header before the pending value has been
// written is an error. Only the low 3 bits of the wire type reach the wire,
// so WireSignedVariant emits a WireVariant tag.
func (w *Writer) WriteFieldHeader(fieldNumber int, wireType WireType) {
	if !w.checkWrite() {
		return
	}
	if w.wireType != WireNone {
		w.errorAt(ErrInvalidWireType, "field header written before previous value")
		return
	}
	if err := wire.ValidateFieldNumber(fieldNumber); err != nil {
		w.errorAt(ErrInvalidFieldNumber, "invalid field number")
		return
	}
	switch wireType {
	case WireVariant, WireSignedVariant, WireFixed32, WireFixed64, WireString, WireStartGroup:
	default:
		w.errorAt(ErrInvalidWireType, "wire type cannot head a field")
		return
	}
	w.fieldNumber = fieldNumber
	w.wireType = wireType
	w.buf = wire.AppendTag(w.buf, fieldNumber, wireType)
}

// WriteInt64 writes a signed 64-bit value using the pending wire type.
func (w *Writer) WriteInt64(v int64) {
	if !w.checkWrite() {
		return
	}
	switch w.wireType {
	case WireVariant:
		w.buf = wire.AppendUvarint(w.buf, uint64(v))
	case WireSignedVariant:
		w.buf = wire.AppendUvarint(w.buf, wire.EncodeZigzag64(v))
	case WireFixed64:
		w.buf = wire.AppendFixed64(w.buf, uint64(v))
	case WireFixed32:
		if v < math.MinInt32 || v > math.MaxInt32 {
			w.errorAt(ErrOverflow, "value does not fit in fixed32")
			return
		}
		w.buf = wire.AppendFixed32(w.buf, uint32(v))
	default:
		w.errorAt(ErrInvalidWireType, "invalid wire type for int64")
		return
	}
	w.valueWritten()
}

// WriteInt32 writes a signed 32-bit value using the pending wire type.
// On WireVariant a negative value takes its 10-byte two's-complement
// expansion, mirroring what the reader's sign-trimming decode accepts.
func (w *Writer) WriteInt32(v int32) {
	if !w.checkWrite() {
		return
	}
	switch w.wireType {
	case WireVariant:
		w.buf = wire.AppendUvarint(w.buf, uint64(int64(v)))
	case WireSignedVariant:
		w.buf = wire.AppendUvarint(w.buf, uint64(wire.EncodeZigzag32(v)))
	case WireFixed32:
		w.buf = wire.AppendFixed32(w.buf, uint32(v))
	case WireFixed64:
		w.buf = wire.AppendFixed64(w.buf, uint64(int64(v)))
	default:
		w.errorAt(ErrInvalidWireType, "invalid wire type for int32")
		return
	}
	w.valueWritten()
}

// WriteUint64 writes an unsigned 64-bit value using the pending wire type.
func (w *Writer) WriteUint64(v uint64) {
	if !w.checkWrite() {
		return
	}
	switch w.wireType {
	case WireVariant:
		w.buf = wire.AppendUvarint(w.buf, v)
	case WireFixed64:
		w.buf = wire.AppendFixed64(w.buf, v)
	case WireFixed32:
		if v > math.MaxUint32 {
			w.errorAt(ErrOverflow, "value does not fit in fixed32")
			return
		}
		w.buf = wire.AppendFixed32(w.buf, uint32(v))
	default:
		w.errorAt(ErrInvalidWireType, "invalid wire type for uint64")
		return
	}
	w.valueWritten()
}

// WriteUint32 writes an unsigned 32-bit value using the pending wire type.
func (w *Writer) WriteUint32(v uint32) {
	if !w.checkWrite() {
		return
	}
	switch w.wireType {
	case WireVariant:
		w.buf = wire.AppendUvarint(w.buf, uint64(v))
	case WireFixed32:
		w.buf = wire.AppendFixed32(w.buf, v)
	case WireFixed64:
		w.buf = wire.AppendFixed64(w.buf, uint64(v))
	default:
		w.errorAt(ErrInvalidWireType, "invalid wire type for uint32")
		return
	}
	w.valueWritten()
}

// WriteBool writes a boolean value.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint32(1)
	} else {
		w.WriteUint32(0)
	}
}

// WriteFloat32 writes a 32-bit floating point number.
func (w *Writer) WriteFloat32(v float32) {
	if !w.checkWrite() {
		return
	}
	switch w.wireType {
	case WireFixed32:
		w.buf = wire.AppendFloat32(w.buf, v)
	case WireFixed64:
		w.buf = wire.AppendFloat64(w.buf, float64(v))
	default:
		w.errorAt(ErrInvalidWireType, "invalid wire type for float32")
		return
	}
	w.valueWritten()
}

// WriteFloat64 writes a 64-bit floating point number. Narrowing to a
// WireFixed32 field that produces a spurious infinity is an overflow.
func (w *Writer) WriteFloat64(v float64) {
	if !w.checkWrite() {
		return
	}
	switch w.wireType {
	case WireFixed64:
		w.buf = wire.AppendFloat64(w.buf, v)
	case WireFixed32:
		f := float32(v)
		if math.IsInf(float64(f), 0) && !math.IsInf(v, 0) {
			w.errorAt(ErrOverflow, "value does not fit in float32")
			return
		}
		w.buf = wire.AppendFloat32(w.buf, f)
	default:
		w.errorAt(ErrInvalidWireType, "invalid wire type for float64")
		return
	}
	w.valueWritten()
}

// WriteBytes writes a length-prefixed byte field.
func (w *Writer) WriteBytes(b []byte) {
	if !w.checkWrite() {
		return
	}
	if w.wireType != WireString {
		w.errorAt(ErrInvalidWireType, "invalid wire type for bytes")
		return
	}
	w.buf = wire.AppendUvarint(w.buf, uint64(len(b)))
	w.buf = append(w.buf, b...)
	w.valueWritten()
}

// WriteString writes a length-prefixed string.
func (w *Writer) WriteString(s string) {
	if !w.checkWrite() {
		return
	}
	if w.wireType != WireString {
		w.errorAt(ErrInvalidWireType, "invalid wire type for string")
		return
	}
	w.buf = wire.AppendUvarint(w.buf, uint64(len(s)))
	w.buf = append(w.buf, s...)
	w.valueWritten()
}

// WriterToken pairs StartSubItem with EndSubItem on the writer, mirroring
// the reader's SubItemToken.
type WriterToken struct {
	value int64
}

// StartSubItem opens a nested region for the pending field. For a
// WireStartGroup header nothing is emitted yet; for WireString the length
// is backfilled when the region closes.
func (w *Writer) StartSubItem() WriterToken {
	if !w.checkWrite() {
		return WriterToken{}
	}
	switch w.wireType {
	case WireStartGroup:
		w.wireType = WireNone
		w.depth++
		return WriterToken{value: int64(-w.fieldNumber)}
	case WireString:
		w.wireType = WireNone
		w.depth++
		return WriterToken{value: int64(len(w.buf))}
	default:
		w.errorAt(ErrInvalidWireType, "wire type does not start a sub-item")
		return WriterToken{}
	}
}

// EndSubItem closes the region opened by the matching StartSubItem: an
// end-group tag for groups, or a backfilled length prefix for
// length-delimited regions (the payload shifts up to make room).
func (w *Writer) EndSubItem(token WriterToken) {
	if !w.checkWrite() {
		return
	}
	if w.wireType != WireNone {
		w.errorAt(ErrInvalidWireType, "sub-item closed with a value pending")
		return
	}
	if token.value < 0 {
		w.buf = wire.AppendTag(w.buf, int(-token.value), WireEndGroup)
		w.depth--
		return
	}
	start := int(token.value)
	length := len(w.buf) - start
	size := wire.UvarintSize(uint64(length))
	w.buf = append(w.buf, make([]byte, size)...)
	copy(w.buf[start+size:], w.buf[start:start+length])
	wire.PutUvarint(w.buf[start:start+size], uint64(length))
	w.depth--
}
