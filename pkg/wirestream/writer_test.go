package wirestream

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/blockberries/wirestream/internal/wire"
)

func TestWriterVarintField(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(1, WireVariant)
	w.WriteUint64(300)
	if err := w.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}

	want := wire.AppendUvarint(wire.AppendTag(nil, 1, WireVariant), 300)
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes = %v, want %v", w.Bytes(), want)
	}
}

func TestWriterNegativeInt32Expansion(t *testing.T) {
	// A negative int32 on WireVariant takes the full 10-byte 64-bit
	// two's-complement form, matching what the reader accepts back.
	w := NewWriter()
	w.WriteFieldHeader(1, WireVariant)
	w.WriteInt32(-1)
	if err := w.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}

	tagLen := len(wire.AppendTag(nil, 1, WireVariant))
	if len(w.Bytes()) != tagLen+wire.MaxVarintLen64 {
		t.Fatalf("encoded %d bytes, want %d", len(w.Bytes()), tagLen+wire.MaxVarintLen64)
	}

	r := newTestReader(t, w.Bytes())
	defer r.Release()
	if r.ReadFieldHeader() != 1 {
		t.Fatal("header")
	}
	if got := r.ReadInt32(); got != -1 {
		t.Errorf("round trip = %d, want -1", got)
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(1, WireVariant)
	w.WriteInt64(-42)
	w.WriteFieldHeader(2, WireSignedVariant)
	w.WriteInt64(-42)
	w.WriteFieldHeader(3, WireFixed32)
	w.WriteUint32(0xdeadbeef)
	w.WriteFieldHeader(4, WireFixed64)
	w.WriteUint64(math.MaxUint64)
	w.WriteFieldHeader(5, WireString)
	w.WriteString("hello")
	w.WriteFieldHeader(6, WireFixed64)
	w.WriteFloat64(3.25)
	w.WriteFieldHeader(7, WireVariant)
	w.WriteBool(true)
	if err := w.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}

	r := newTestReader(t, w.Bytes())
	defer r.Release()

	if r.ReadFieldHeader() != 1 {
		t.Fatal("header 1")
	}
	if got := r.ReadInt64(); got != -42 {
		t.Errorf("field 1 = %d", got)
	}
	if r.ReadFieldHeader() != 2 {
		t.Fatal("header 2")
	}
	r.Hint(WireSignedVariant)
	if got := r.ReadInt64(); got != -42 {
		t.Errorf("field 2 = %d", got)
	}
	if r.ReadFieldHeader() != 3 {
		t.Fatal("header 3")
	}
	if got := r.ReadUint32(); got != 0xdeadbeef {
		t.Errorf("field 3 = %#x", got)
	}
	if r.ReadFieldHeader() != 4 {
		t.Fatal("header 4")
	}
	if got := r.ReadUint64(); got != math.MaxUint64 {
		t.Errorf("field 4 = %d", got)
	}
	if r.ReadFieldHeader() != 5 {
		t.Fatal("header 5")
	}
	if got := r.ReadString(); got != "hello" {
		t.Errorf("field 5 = %q", got)
	}
	if r.ReadFieldHeader() != 6 {
		t.Fatal("header 6")
	}
	if got := r.ReadFloat64(); got != 3.25 {
		t.Errorf("field 6 = %v", got)
	}
	if r.ReadFieldHeader() != 7 {
		t.Fatal("header 7")
	}
	if !r.ReadBool() {
		t.Error("field 7 = false")
	}
	if err := r.Err(); err != nil {
		t.Errorf("reader Err = %v", err)
	}
}

func TestWriterLengthDelimitedSubItem(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(2, WireString)
	token := w.StartSubItem()
	w.WriteFieldHeader(1, WireVariant)
	w.WriteUint64(42)
	w.EndSubItem(token)
	if err := w.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}

	inner := wire.AppendUvarint(wire.AppendTag(nil, 1, WireVariant), 42)
	want := lengthDelimited(nil, 2, inner)
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes = %v, want %v", w.Bytes(), want)
	}
}

func TestWriterLengthBackfillMultiByte(t *testing.T) {
	// Payload long enough that the backfilled length needs two varint
	// bytes, forcing the shift path.
	payload := bytes.Repeat([]byte{0x2a}, 200)

	w := NewWriter()
	w.WriteFieldHeader(1, WireString)
	token := w.StartSubItem()
	w.WriteFieldHeader(2, WireString)
	w.WriteBytes(payload)
	w.EndSubItem(token)
	if err := w.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}

	r := newTestReader(t, w.Bytes())
	defer r.Release()
	if r.ReadFieldHeader() != 1 {
		t.Fatal("outer header")
	}
	tok := r.StartSubItem()
	if r.ReadFieldHeader() != 2 {
		t.Fatal("inner header")
	}
	if got := r.ReadBytes(); !bytes.Equal(got, payload) {
		t.Errorf("payload mismatch: %d bytes", len(got))
	}
	if r.ReadFieldHeader() != 0 {
		t.Error("region not exhausted")
	}
	r.EndSubItem(tok)
	if err := r.Err(); err != nil {
		t.Errorf("reader Err = %v", err)
	}
}

func TestWriterGroupSubItem(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(3, WireStartGroup)
	token := w.StartSubItem()
	w.WriteFieldHeader(1, WireVariant)
	w.WriteUint64(7)
	w.EndSubItem(token)
	if err := w.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}

	inner := wire.AppendUvarint(wire.AppendTag(nil, 1, WireVariant), 7)
	want := group(nil, 3, inner)
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes = %v, want %v", w.Bytes(), want)
	}
}

func TestWriterNestedSubItems(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(1, WireString)
	t1 := w.StartSubItem()
	w.WriteFieldHeader(2, WireStartGroup)
	t2 := w.StartSubItem()
	w.WriteFieldHeader(3, WireString)
	t3 := w.StartSubItem()
	w.WriteFieldHeader(4, WireVariant)
	w.WriteUint64(9)
	w.EndSubItem(t3)
	w.EndSubItem(t2)
	w.EndSubItem(t1)
	if err := w.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
	if w.Depth() != 0 {
		t.Errorf("Depth = %d", w.Depth())
	}

	// Walk it back with the reader.
	r := newTestReader(t, w.Bytes())
	defer r.Release()
	if r.ReadFieldHeader() != 1 {
		t.Fatal("header 1")
	}
	rt1 := r.StartSubItem()
	if r.ReadFieldHeader() != 2 {
		t.Fatal("header 2")
	}
	rt2 := r.StartSubItem()
	if r.ReadFieldHeader() != 3 {
		t.Fatal("header 3")
	}
	rt3 := r.StartSubItem()
	if r.ReadFieldHeader() != 4 {
		t.Fatal("header 4")
	}
	if got := r.ReadUint64(); got != 9 {
		t.Errorf("value = %d", got)
	}
	if r.ReadFieldHeader() != 0 {
		t.Error("innermost not exhausted")
	}
	r.EndSubItem(rt3)
	if r.ReadFieldHeader() != 0 {
		t.Error("group not exhausted")
	}
	r.EndSubItem(rt2)
	if r.ReadFieldHeader() != 0 {
		t.Error("outermost not exhausted")
	}
	r.EndSubItem(rt1)
	if err := r.Err(); err != nil {
		t.Errorf("reader Err = %v", err)
	}
}

func TestWriterHeaderBeforeValueConsumed(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(1, WireVariant)
	w.WriteFieldHeader(2, WireVariant)
	if !errors.Is(w.Err(), ErrInvalidWireType) {
		t.Errorf("Err = %v, want ErrInvalidWireType", w.Err())
	}
}

func TestWriterInvalidFieldNumber(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(0, WireVariant)
	if !errors.Is(w.Err(), ErrInvalidFieldNumber) {
		t.Errorf("Err = %v, want ErrInvalidFieldNumber", w.Err())
	}
}

func TestWriterEndGroupHeaderRejected(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(1, WireEndGroup)
	if !errors.Is(w.Err(), ErrInvalidWireType) {
		t.Errorf("Err = %v, want ErrInvalidWireType", w.Err())
	}
}

func TestWriterFixed32Overflow(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(1, WireFixed32)
	w.WriteUint64(math.MaxUint32 + 1)
	if !errors.Is(w.Err(), ErrOverflow) {
		t.Errorf("Err = %v, want ErrOverflow", w.Err())
	}
}

func TestWriterFloat32NarrowingOverflow(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(1, WireFixed32)
	w.WriteFloat64(math.MaxFloat64)
	if !errors.Is(w.Err(), ErrOverflow) {
		t.Errorf("Err = %v, want ErrOverflow", w.Err())
	}
}

func TestWriterErrorLatches(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(0, WireVariant)
	first := w.Err()
	if first == nil {
		t.Fatal("expected error")
	}
	w.WriteFieldHeader(1, WireVariant)
	w.WriteUint64(1)
	if w.Err() != first {
		t.Errorf("error changed from %v to %v", first, w.Err())
	}
	if w.Len() != 0 {
		t.Errorf("Len = %d after latched error", w.Len())
	}
}

func TestWriterReset(t *testing.T) {
	w := NewWriter()
	w.WriteFieldHeader(0, WireVariant) // latch an error
	w.Reset()
	if w.Err() != nil {
		t.Errorf("Err after Reset = %v", w.Err())
	}
	w.WriteFieldHeader(1, WireVariant)
	w.WriteUint64(5)
	if err := w.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}
	if w.Len() == 0 {
		t.Error("no output after Reset")
	}
}

func TestWriterPool(t *testing.T) {
	w := GetWriter()
	w.WriteFieldHeader(1, WireVariant)
	w.WriteUint64(1)
	PutWriter(w)

	w2 := GetWriter()
	defer PutWriter(w2)
	if w2.Len() != 0 {
		t.Errorf("pooled writer not reset: Len = %d", w2.Len())
	}
	if w2.Err() != nil {
		t.Errorf("pooled writer carries error: %v", w2.Err())
	}
}

func BenchmarkWriterFlatMessage(b *testing.B) {
	b.ReportAllocs()
	w := NewWriter()
	for i := 0; i < b.N; i++ {
		w.Reset()
		for f := 1; f <= 16; f++ {
			w.WriteFieldHeader(f, WireVariant)
			w.WriteUint64(uint64(f) * 7919)
		}
		if w.Err() != nil {
			b.Fatal(w.Err())
		}
	}
}

func BenchmarkWriterNestedMessage(b *testing.B) {
	b.ReportAllocs()
	w := NewWriter()
	for i := 0; i < b.N; i++ {
		w.Reset()
		w.WriteFieldHeader(1, WireString)
		tok := w.StartSubItem()
		w.WriteFieldHeader(2, WireString)
		w.WriteString("benchmark payload")
		w.EndSubItem(tok)
		if w.Err() != nil {
			b.Fatal(w.Err())
		}
	}
}
