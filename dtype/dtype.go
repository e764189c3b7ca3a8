// dtype.go - Numerische Formate fuer Tensoren
// Dieses Modul definiert die unterstuetzten Datentypen samt Bit-Breiten.
package dtype

import (
	"fmt"
)

// Type identifies the storage format of a tensor element.
type Type uint32

const (
	F32 Type = iota
	F16
	BF16
	I32
	I16
	I8
	U8
	I4
)

// ParseType parses a data type from its textual form.
func ParseType(s string) (Type, error) {
	switch s {
	case "f32", "F32":
		return F32, nil
	case "f16", "F16":
		return F16, nil
	case "bf16", "BF16":
		return BF16, nil
	case "i32", "I32":
		return I32, nil
	case "i16", "I16":
		return I16, nil
	case "i8", "I8":
		return I8, nil
	case "u8", "U8":
		return U8, nil
	case "i4", "I4":
		return I4, nil
	}

	return 0, fmt.Errorf("unsupported data type %q", s)
}

func (t Type) String() string {
	switch t {
	case F32:
		return "f32"
	case F16:
		return "f16"
	case BF16:
		return "bf16"
	case I32:
		return "i32"
	case I16:
		return "i16"
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I4:
		return "i4"
	}

	return "unknown"
}

// Bits is the width of one element in bits.
func (t Type) Bits() int64 {
	switch t {
	case F32, I32:
		return 32
	case F16, BF16, I16:
		return 16
	case I8, U8:
		return 8
	case I4:
		return 4
	}

	return 32
}

// Bytes is the storage size of count elements, rounded up to whole bytes
// for sub-byte formats.
func (t Type) Bytes(count int64) int64 {
	return (count*t.Bits() + 7) / 8
}
