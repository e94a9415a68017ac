package wirestream

// Extensible is implemented by values that retain unrecognized fields as
// opaque wire data. When a reader decodes a field header it has no mapping
// for, it appends the raw field into the value's extension buffer so the
// data survives a decode/encode round trip.
type Extensible interface {
	// BeginAppend returns a writer positioned to receive extension data.
	BeginAppend() *Writer

	// EndAppend is called once the field has been copied. commit reports
	// whether the copy succeeded; on false the writer's partial output
	// must be discarded.
	EndAppend(w *Writer, commit bool) error
}

// AppendExtensionField copies the current field, header included, from the
// reader into w. Groups are walked recursively so the entire nested region
// transfers. The reader is left at the next field boundary, exactly as if
// the field had been skipped.
func (r *Reader) AppendExtensionField(w *Writer) error {
	if r.err != nil {
		return r.err
	}
	w.WriteFieldHeader(r.fieldNumber, r.wireType)
	switch r.wireType {
	case WireFixed32:
		w.WriteUint32(r.ReadUint32())
	case WireVariant, WireSignedVariant, WireFixed64:
		w.WriteInt64(r.ReadInt64())
	case WireString:
		w.WriteBytes(r.AppendBytes(nil))
	case WireStartGroup:
		rt := r.StartSubItem()
		wt := w.StartSubItem()
		for {
			field := r.ReadFieldHeader()
			if field <= 0 {
				break
			}
			if err := r.AppendExtensionField(w); err != nil {
				return err
			}
		}
		r.EndSubItem(rt)
		w.EndSubItem(wt)
	default:
		r.errorAt(ErrInvalidWireType, "field cannot be copied")
	}
	if r.err != nil {
		return r.err
	}
	return w.Err()
}

// AppendExtensionData copies the current field into obj's extension buffer.
// On any failure the partial append is rolled back through EndAppend.
func (r *Reader) AppendExtensionData(obj Extensible) error {
	w := obj.BeginAppend()
	err := r.AppendExtensionField(w)
	if endErr := obj.EndAppend(w, err == nil); endErr != nil && err == nil {
		err = endErr
	}
	return err
}

// ExtensionBuffer is a ready-made Extensible that accumulates extension
// fields into a single byte slice.
type ExtensionBuffer struct {
	data []byte
}

// BeginAppend returns a pooled writer for one field's worth of data.
func (e *ExtensionBuffer) BeginAppend() *Writer {
	return GetWriter()
}

// EndAppend commits or discards the writer's output and returns it to the
// pool.
func (e *ExtensionBuffer) EndAppend(w *Writer, commit bool) error {
	if commit {
		if err := w.Err(); err != nil {
			PutWriter(w)
			return err
		}
		e.data = append(e.data, w.Bytes()...)
	}
	PutWriter(w)
	return nil
}

// Bytes returns the accumulated extension data.
func (e *ExtensionBuffer) Bytes() []byte { return e.data }

// Len returns the number of accumulated extension bytes.
func (e *ExtensionBuffer) Len() int { return len(e.data) }

// Reset discards all accumulated data.
func (e *ExtensionBuffer) Reset() { e.data = e.data[:0] }
