package modbusd

import (
	"math"

	"github.com/gosuda/stplc/ast"
	struntime "github.com/gosuda/stplc/runtime"
)

// Wire encoding for holding registers: INT is one signed 16-bit word, REAL
// is IEEE-754 32-bit split big-endian across two words, high word at the
// lower address.

func EncodeReal(f float32) (hi, lo uint16) {
	bits := math.Float32bits(f)
	return uint16(bits >> 16), uint16(bits)
}

func DecodeReal(hi, lo uint16) float32 {
	return math.Float32frombits(uint32(hi)<<16 | uint32(lo))
}

// EncodeWords renders a value as the register words of its map entry.
func EncodeWords(v struntime.Value) []uint16 {
	if v.Type() == ast.TypeReal {
		hi, lo := EncodeReal(v.Real())
		return []uint16{hi, lo}
	}
	return []uint16{uint16(v.Int16())}
}

// DecodeWords parses register words into a value of the entry's declared type.
func DecodeWords(e Entry, words []uint16) struntime.Value {
	if e.Type == ast.TypeReal {
		return struntime.Real(DecodeReal(words[0], words[1]))
	}
	return struntime.Int(int16(words[0]))
}
