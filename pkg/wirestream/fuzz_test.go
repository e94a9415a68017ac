package wirestream

import (
	"bytes"
	"testing"

	"github.com/blockberries/wirestream/internal/wire"
)

// FuzzReaderSkipAll feeds arbitrary bytes to a reader that skips every
// field. The reader must terminate with either a clean natural end or a
// latched error - never panic, never loop.
func FuzzReaderSkipAll(f *testing.F) {
	// Seed corpus: one valid flat message, one nested, one group, and a
	// few malformed shapes.
	valid := wire.AppendUvarint(field(nil, 1, WireVariant), 42)
	valid = lengthDelimited(valid, 2, []byte("abc"))
	f.Add(valid)
	f.Add(lengthDelimited(nil, 1, lengthDelimited(nil, 1, nil)))
	f.Add(group(nil, 3, wire.AppendUvarint(field(nil, 1, WireVariant), 1)))
	f.Add([]byte{0x00})
	f.Add([]byte{0x80})
	f.Add([]byte{0x0a, 0xff, 0xff, 0xff, 0xff, 0x0f})
	f.Add(wire.AppendTag(nil, 1, WireEndGroup))

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := NewReaderWithOptions(bytes.NewReader(data), nil, SecureOptions)
		if err != nil {
			t.Fatalf("NewReaderWithOptions: %v", err)
		}
		defer r.Release()

		for r.ReadFieldHeader() > 0 {
			r.SkipField()
			if r.Err() != nil {
				break
			}
		}
		if r.Err() == nil && !r.HitNaturalEnd() {
			// Terminating without an error and without a natural end can
			// only mean a stray end-group or boundary state, which must
			// have latched an error instead.
			if r.WireType() != WireEndGroup {
				t.Errorf("stopped with no error, no natural end, wire type %v", r.WireType())
			}
		}
		if r.Err() == nil && r.Position() > int64(len(data)) {
			t.Errorf("position %d ran past input length %d", r.Position(), len(data))
		}
	})
}

// FuzzWriterReaderRoundTrip encodes three values with the writer and
// decodes them back, for arbitrary inputs.
func FuzzWriterReaderRoundTrip(f *testing.F) {
	f.Add(int64(0), uint64(0), "")
	f.Add(int64(-1), uint64(1<<63), "hello")
	f.Add(int64(1<<62), uint64(300), "héllo wörld")

	f.Fuzz(func(t *testing.T, a int64, b uint64, s string) {
		w := NewWriter()
		w.WriteFieldHeader(1, WireVariant)
		w.WriteInt64(a)
		w.WriteFieldHeader(2, WireSignedVariant)
		w.WriteInt64(a)
		w.WriteFieldHeader(3, WireFixed64)
		w.WriteUint64(b)
		w.WriteFieldHeader(4, WireString)
		w.WriteString(s)
		if w.Err() != nil {
			t.Fatalf("writer: %v", w.Err())
		}

		r, err := NewReader(bytes.NewReader(w.Bytes()), nil)
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}
		defer r.Release()

		if r.ReadFieldHeader() != 1 {
			t.Fatal("header 1")
		}
		if got := r.ReadInt64(); got != a {
			t.Errorf("field 1 = %d, want %d", got, a)
		}
		if r.ReadFieldHeader() != 2 {
			t.Fatal("header 2")
		}
		r.Hint(WireSignedVariant)
		if got := r.ReadInt64(); got != a {
			t.Errorf("field 2 = %d, want %d", got, a)
		}
		if r.ReadFieldHeader() != 3 {
			t.Fatal("header 3")
		}
		if got := r.ReadUint64(); got != b {
			t.Errorf("field 3 = %d, want %d", got, b)
		}
		if r.ReadFieldHeader() != 4 {
			t.Fatal("header 4")
		}
		if got := r.ReadString(); got != s {
			t.Errorf("field 4 = %q, want %q", got, s)
		}
		if r.Err() != nil {
			t.Fatalf("reader: %v", r.Err())
		}
	})
}
