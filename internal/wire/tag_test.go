package wire

import (
	"bytes"
	"testing"
)

func TestNewTag(t *testing.T) {
	tests := []struct {
		name     string
		fieldNum int
		wireType Type
		expected Tag
	}{
		{"field1_variant", 1, Variant, 0x08},
		{"field1_fixed64", 1, Fixed64, 0x09},
		{"field1_string", 1, String, 0x0a},
		{"field1_startgroup", 1, StartGroup, 0x0b},
		{"field1_endgroup", 1, EndGroup, 0x0c},
		{"field1_fixed32", 1, Fixed32, 0x0d},
		{"field2_variant", 2, Variant, 0x10},
		{"field15_string", 15, String, 0x7a},
		{"field16_variant", 16, Variant, 0x80},
		{"field1_signed_variant", 1, SignedVariant, 0x08},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tag := NewTag(tc.fieldNum, tc.wireType)
			if tag != tc.expected {
				t.Errorf("NewTag(%d, %v) = %#x, want %#x", tc.fieldNum, tc.wireType, tag, tc.expected)
			}
		})
	}
}

func TestTagAccessors(t *testing.T) {
	for field := 1; field <= 1000; field *= 3 {
		for _, wt := range []Type{Variant, Fixed64, String, StartGroup, EndGroup, Fixed32} {
			tag := NewTag(field, wt)
			if tag.FieldNumber() != field {
				t.Errorf("FieldNumber() = %d, want %d", tag.FieldNumber(), field)
			}
			if tag.WireType() != wt {
				t.Errorf("WireType() = %v, want %v", tag.WireType(), wt)
			}
		}
	}
}

func TestAppendAndDecodeTag(t *testing.T) {
	tests := []struct {
		name     string
		fieldNum int
		wireType Type
	}{
		{"small_field", 1, Variant},
		{"field_15", 15, String},
		{"field_16", 16, Fixed64},
		{"field_2047", 2047, Fixed32},
		{"field_2048", 2048, StartGroup},
		{"large_field", 1 << 20, String},
		{"max_field", MaxFieldNumber, Variant},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := AppendTag(nil, tc.fieldNum, tc.wireType)

			fieldNum, wireType, n, err := DecodeTag(buf)
			if err != nil {
				t.Fatalf("DecodeTag error: %v", err)
			}
			if fieldNum != tc.fieldNum {
				t.Errorf("fieldNum = %d, want %d", fieldNum, tc.fieldNum)
			}
			if wireType != tc.wireType {
				t.Errorf("wireType = %v, want %v", wireType, tc.wireType)
			}
			if n != len(buf) {
				t.Errorf("n = %d, want %d", n, len(buf))
			}
			if TagSize(tc.fieldNum) != len(buf) {
				t.Errorf("TagSize(%d) = %d, want %d", tc.fieldNum, TagSize(tc.fieldNum), len(buf))
			}
		})
	}
}

func TestSignedVariantEncodesAsVariant(t *testing.T) {
	// The modifier bit never reaches the wire.
	plain := AppendTag(nil, 7, Variant)
	signed := AppendTag(nil, 7, SignedVariant)
	if !bytes.Equal(plain, signed) {
		t.Errorf("SignedVariant tag %v differs from Variant tag %v", signed, plain)
	}
	if SignedVariant.Basic() != Variant {
		t.Errorf("SignedVariant.Basic() = %v, want %v", SignedVariant.Basic(), Variant)
	}
}

func TestDecodeTagErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", []byte{}, ErrVarintTruncated},
		{"field_zero", []byte{0x00}, ErrInvalidFieldNumber},
		{"field_zero_fixed32", []byte{0x05}, ErrInvalidFieldNumber},
		{"wire_type_6", []byte{0x0e}, ErrInvalidWireType},
		{"wire_type_7", []byte{0x0f}, ErrInvalidWireType},
		{"truncated", []byte{0x80}, ErrVarintTruncated},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := DecodeTag(tc.data)
			if err != tc.err {
				t.Errorf("DecodeTag(%v) error = %v, want %v", tc.data, err, tc.err)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		wt   Type
		name string
	}{
		{None, "None"},
		{Variant, "Variant"},
		{Fixed64, "Fixed64"},
		{String, "String"},
		{StartGroup, "StartGroup"},
		{EndGroup, "EndGroup"},
		{Fixed32, "Fixed32"},
		{SignedVariant, "SignedVariant"},
		{Type(6), "Unknown"},
	}

	for _, tc := range tests {
		if got := tc.wt.String(); got != tc.name {
			t.Errorf("Type(%d).String() = %q, want %q", tc.wt, got, tc.name)
		}
	}
}

func TestTypeIsValid(t *testing.T) {
	valid := []Type{Variant, Fixed64, String, StartGroup, EndGroup, Fixed32}
	for _, wt := range valid {
		if !wt.IsValid() {
			t.Errorf("%v.IsValid() = false, want true", wt)
		}
	}
	invalid := []Type{None, SignedVariant, Type(6), Type(7)}
	for _, wt := range invalid {
		if wt.IsValid() {
			t.Errorf("%v.IsValid() = true, want false", wt)
		}
	}
}

func TestValidateFieldNumber(t *testing.T) {
	tests := []struct {
		name     string
		fieldNum int
		wantErr  bool
	}{
		{"zero", 0, true},
		{"negative", -1, true},
		{"one", 1, false},
		{"typical", 42, false},
		{"max", MaxFieldNumber, false},
		{"over_max", MaxFieldNumber + 1, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFieldNumber(tc.fieldNum)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateFieldNumber(%d) error = %v, wantErr %v", tc.fieldNum, err, tc.wantErr)
			}
		})
	}
}

func BenchmarkAppendTag(b *testing.B) {
	buf := make([]byte, 0, 8)
	for i := 0; i < b.N; i++ {
		buf = AppendTag(buf[:0], 5, String)
	}
}

func BenchmarkDecodeTag(b *testing.B) {
	data := AppendTag(nil, 5, String)
	for i := 0; i < b.N; i++ {
		_, _, _, _ = DecodeTag(data)
	}
}
