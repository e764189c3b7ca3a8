// convert.go - Konvertierung von Gewichtsdaten in Zielformate
// Hauptfunktionen: Encode, DecodeF16, DecodeBF16
package dtype

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// Encode converts float32 weight values into the raw byte layout of t.
// Integer formats round to nearest and saturate.
func Encode(values []float32, t Type) ([]byte, error) {
	switch t {
	case F32:
		bts := make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(bts[4*i:], math.Float32bits(v))
		}
		return bts, nil
	case F16:
		bts := make([]byte, 2*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint16(bts[2*i:], float16.Fromfloat32(v).Bits())
		}
		return bts, nil
	case BF16:
		bts := make([]byte, 2*len(values))
		for i, v := range values {
			// truncate with round-to-nearest-even on the dropped mantissa bits
			u := math.Float32bits(v)
			u += 0x7fff + (u >> 16 & 1)
			binary.LittleEndian.PutUint16(bts[2*i:], uint16(u>>16))
		}
		return bts, nil
	case I8:
		bts := make([]byte, len(values))
		for i, v := range values {
			bts[i] = byte(int8(clamp(v, -128, 127)))
		}
		return bts, nil
	case U8:
		bts := make([]byte, len(values))
		for i, v := range values {
			bts[i] = byte(clamp(v, 0, 255))
		}
		return bts, nil
	}

	return nil, fmt.Errorf("cannot encode weights as %s", t)
}

// DecodeF16 expands IEEE half precision bytes to float32.
func DecodeF16(bts []byte) []float32 {
	f32s := make([]float32, len(bts)/2)
	for i := range f32s {
		f32s[i] = float16.Frombits(binary.LittleEndian.Uint16(bts[2*i:])).Float32()
	}

	return f32s
}

// DecodeBF16 expands bfloat16 bytes to float32.
func DecodeBF16(bts []byte) []float32 {
	f32s := make([]float32, len(bts)/2)
	for i := range f32s {
		f32s[i] = math.Float32frombits(uint32(binary.LittleEndian.Uint16(bts[2*i:])) << 16)
	}

	return f32s
}

func clamp(v, lo, hi float32) float32 {
	v = float32(math.RoundToEven(float64(v)))
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}
