package wirestream

import (
	"io"
)

// SubItemToken is the opaque value pairing StartSubItem with EndSubItem.
// It carries either the negated field number of the group being opened, or
// the previous block boundary to restore when a length-delimited region
// closes. Tokens are single-ownership values: pass the token returned by
// StartSubItem to exactly one EndSubItem call.
type SubItemToken struct {
	value int64
}

// ReadFieldHeader decodes the next field header and returns its field
// number, or 0 when there are no more fields: the innermost region is
// exhausted, the reader is positioned on an end-group marker, or the source
// ended cleanly at a top-level field boundary (check HitNaturalEnd to
// distinguish the latter).
func (r *Reader) ReadFieldHeader() int {
	if !r.checkRead() {
		return 0
	}
	// An open length-delimited region that has been fully consumed, or a
	// pending end-group marker, means no more fields here.
	if r.blockEnd <= r.position || r.wireType == WireEndGroup {
		return 0
	}
	tag, n := r.tryReadUvarint32(false)
	if n == 0 {
		if r.err == nil {
			if r.depth > 0 {
				// A clean EOF is graceful only at top level; inside an
				// open group it means the terminator never arrived.
				r.errorAt(ErrUnexpectedEOF, "source ended inside an open group")
				return 0
			}
			r.wireType = WireNone
			r.fieldNumber = 0
			r.naturalEnd = true
		}
		return 0
	}
	r.advance(n)
	r.wireType = WireType(tag & 7)
	r.fieldNumber = int(tag >> 3)
	if r.fieldNumber < 1 {
		r.errorAt(ErrInvalidFieldNumber, "field number 0 on the wire")
		return 0
	}
	if r.wireType == WireEndGroup {
		if r.depth > 0 {
			// The caller must close the sub-item; field number and wire
			// type stay recorded for the pending close check.
			return 0
		}
		r.errorAt(ErrUnexpectedEndGroup, "end-group marker with no open group")
		return 0
	}
	return r.fieldNumber
}

// TryReadFieldHeader consumes the next field header only if it matches the
// expected field number and is not an end-group marker. It is the lookahead
// used to continue a packed/repeated run without re-dispatching on field
// number. Returns false, without consuming anything, on any other header or
// at a region boundary.
func (r *Reader) TryReadFieldHeader(field int) bool {
	if !r.checkRead() {
		return false
	}
	if r.blockEnd <= r.position || r.wireType == WireEndGroup {
		return false
	}
	tag, n := r.tryReadUvarint32(false)
	if n == 0 {
		return false
	}
	wt := WireType(tag & 7)
	if int(tag>>3) != field || wt == WireEndGroup {
		return false
	}
	r.advance(n)
	r.wireType = wt
	r.fieldNumber = field
	return true
}

// Hint refines the current wire type to a more specific on-wire-compatible
// variant (for example WireVariant to WireSignedVariant). A hint whose low
// 3 bits do not match the current wire type is silently ignored, keeping
// decoding permissive for schema evolution.
func (r *Reader) Hint(wireType WireType) {
	if r.wireType == wireType {
		return
	}
	if wireType.Basic() == r.wireType.Basic() {
		r.wireType = wireType
	}
}

// Assert is Hint with teeth: a wire type that is not on-wire-compatible
// with the current one latches a protocol error.
func (r *Reader) Assert(wireType WireType) {
	if r.wireType == wireType {
		return
	}
	if wireType.Basic() == r.wireType.Basic() {
		r.wireType = wireType
		return
	}
	r.errorAt(ErrInvalidWireType, "wire type does not match assertion")
}

// StartSubItem opens a nested region for the current field and returns the
// token that must be passed to the matching EndSubItem. The current wire
// type must be WireStartGroup or WireString.
func (r *Reader) StartSubItem() SubItemToken {
	if !r.checkRead() {
		return SubItemToken{}
	}
	switch r.wireType {
	case WireStartGroup:
		if !r.enterNested() {
			return SubItemToken{}
		}
		// Clearing the wire type forces the next ReadFieldHeader to run.
		r.wireType = WireNone
		return SubItemToken{value: int64(-r.fieldNumber)}
	case WireString:
		length := r.readUvarint32(false)
		if r.err != nil {
			return SubItemToken{}
		}
		if int32(length) < 0 {
			r.errorAt(ErrNegativeLength, "negative sub-item length")
			return SubItemToken{}
		}
		if !r.enterNested() {
			return SubItemToken{}
		}
		token := SubItemToken{value: r.blockEnd}
		r.blockEnd = r.position + int64(length)
		return token
	default:
		r.errorAt(ErrInvalidWireType, "wire type does not start a sub-item")
		return SubItemToken{}
	}
}

// EndSubItem closes the region opened by the matching StartSubItem.
// A group must be positioned on its end-group marker with a matching field
// number; a length-delimited region must have been consumed exactly to its
// boundary. Either violation is a protocol error.
func (r *Reader) EndSubItem(token SubItemToken) {
	if !r.checkRead() {
		return
	}
	if r.wireType == WireEndGroup {
		if token.value >= 0 {
			r.errorAt(ErrGroupMismatch, "end-group marker closing a length-delimited sub-item")
			return
		}
		if -token.value != int64(r.fieldNumber) {
			r.errorAt(ErrGroupMismatch, "end-group field number does not match open group")
			return
		}
		// Re-enable ReadFieldHeader in the parent.
		r.wireType = WireNone
		r.depth--
		return
	}
	if token.value < 0 {
		r.errorAt(ErrGroupMismatch, "group sub-item closed without end-group marker")
		return
	}
	if r.blockEnd != r.position && r.blockEnd != unboundedBlockEnd {
		r.errorAt(ErrSubItemBoundary, "sub-item not consumed exactly to its boundary")
		return
	}
	r.blockEnd = token.value
	r.depth--
}

// enterNested increases the nesting depth and checks limits.
func (r *Reader) enterNested() bool {
	if r.opts.Limits.MaxDepth > 0 && r.depth >= r.opts.Limits.MaxDepth {
		r.errorAt(ErrMaxDepthExceeded, "sub-item nesting too deep")
		return false
	}
	r.depth++
	return true
}

// ReadObject descends into the current field as a nested message,
// delegating the field walk to the type model's deserializer for key.
// The existing value, possibly nil, is passed through to the model.
func (r *Reader) ReadObject(value any, key int) any {
	if !r.checkRead() {
		return value
	}
	if r.model == nil {
		r.errorAt(ErrNoModel, "cannot deserialize sub-object without a model")
		return value
	}
	token := r.StartSubItem()
	if r.err != nil {
		return value
	}
	out, err := r.model.Deserialize(key, value, r)
	if err != nil {
		r.setError(err)
		return value
	}
	r.EndSubItem(token)
	return out
}

// SkipField consumes and discards the payload of the current field,
// whatever its wire type. Skipping a group consumes fields recursively up
// to and including its matching end-group marker. Position advances exactly
// as a full decode of the field would have advanced it.
func (r *Reader) SkipField() {
	if !r.checkRead() {
		return
	}
	switch r.wireType {
	case WireFixed32:
		if r.ensure(Fixed32Size, true) {
			r.advance(Fixed32Size)
		}
	case WireFixed64:
		if r.ensure(Fixed64Size, true) {
			r.advance(Fixed64Size)
		}
	case WireVariant, WireSignedVariant:
		_ = r.readUvarint64()
	case WireString:
		length := int64(r.readUvarint32(false))
		if r.err != nil {
			return
		}
		if length <= int64(r.available) {
			r.advance(int(length))
			return
		}
		// Payload overruns the window: drop everything buffered and let
		// the source itself skip the remainder.
		remainder := length - int64(r.available)
		r.position += length
		r.ioIndex = 0
		r.available = 0
		r.skipSource(remainder)
	case WireStartGroup:
		openField := r.fieldNumber
		if !r.enterNested() {
			return
		}
		for r.ReadFieldHeader() > 0 {
			r.SkipField()
			if r.err != nil {
				return
			}
		}
		r.depth--
		if r.err != nil {
			return
		}
		if r.wireType == WireEndGroup && r.fieldNumber == openField {
			r.wireType = WireNone
			return
		}
		r.errorAt(ErrGroupMismatch, "group not terminated by matching end-group")
	default:
		r.errorAt(ErrInvalidWireType, "nothing to skip for this wire type")
	}
}

// skipSource discards n bytes from the source itself: a seek when the
// source supports it, otherwise a drain through the window buffer. The
// fixed-length budget is honored either way. Logical position has already
// been accounted for by the caller.
func (r *Reader) skipSource(n int64) {
	if r.isFixedLength {
		if r.dataRemaining < n {
			r.errorAt(ErrUnexpectedEOF, "fixed-length budget exhausted while skipping")
			return
		}
		r.dataRemaining -= n
	}
	if seeker, ok := r.source.(io.Seeker); ok {
		if _, err := seeker.Seek(n, io.SeekCurrent); err != nil {
			r.errorAt(err, "seek on source failed")
		}
		return
	}
	for n > 0 {
		chunk := int64(len(r.ioBuf))
		if chunk > n {
			chunk = n
		}
		got, err := io.ReadFull(r.source, r.ioBuf[:chunk])
		n -= int64(got)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				r.errorAt(ErrUnexpectedEOF, "source ended while skipping")
			} else {
				r.errorAt(err, "read from source failed")
			}
			return
		}
	}
}
