package modbusd

import (
	"errors"
	"math"
	"testing"

	"github.com/gosuda/stplc/ast"
	struntime "github.com/gosuda/stplc/runtime"
)

func mixedDecls() []ast.VarDecl {
	return []ast.VarDecl{
		{Name: "Enable", Type: ast.TypeBool, Direction: ast.DirInput},
		{Name: "Temp", Type: ast.TypeReal, Direction: ast.DirInput},
		{Name: "Fan", Type: ast.TypeInt, Direction: ast.DirOutput},
		{Name: "Alarm", Type: ast.TypeBool, Direction: ast.DirOutput},
		{Name: "Err", Type: ast.TypeReal, Direction: ast.DirInternal},
	}
}

func TestMapLayout(t *testing.T) {
	m, err := Build(mixedDecls())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// Coils in declaration order from 0.
	checkCoil := func(addr uint16, name string) {
		t.Helper()
		e, ok := m.CoilAt(addr)
		if !ok || e.Name != name {
			t.Fatalf("coil %d = %v %v, want %s", addr, e, ok, name)
		}
	}
	checkCoil(0, "Enable")
	checkCoil(1, "Alarm")
	if m.CoilCount() != 2 {
		t.Fatalf("coil count = %d, want 2", m.CoilCount())
	}

	// Holding registers: Temp pair, Fan word, Err pair.
	checkReg := func(addr uint16, name string, word int) {
		t.Helper()
		e, w, ok := m.RegisterAt(addr)
		if !ok || e.Name != name || w != word {
			t.Fatalf("register %d = %v word %d %v, want %s word %d", addr, e, w, ok, name, word)
		}
	}
	checkReg(0, "Temp", 0)
	checkReg(1, "Temp", 1)
	checkReg(2, "Fan", 0)
	checkReg(3, "Err", 0)
	checkReg(4, "Err", 1)
	if m.RegisterCount() != 5 {
		t.Fatalf("register count = %d, want 5", m.RegisterCount())
	}

	if _, ok := m.CoilAt(2); ok {
		t.Fatalf("coil 2 should be unmapped")
	}
	if _, _, ok := m.RegisterAt(5); ok {
		t.Fatalf("register 5 should be unmapped")
	}

	e, ok := m.Lookup("temp")
	if !ok || e.Addr != 0 || e.Words != 2 || e.Class != ClassHolding {
		t.Fatalf("lookup temp = %+v %v", e, ok)
	}
}

func TestMapOverflow(t *testing.T) {
	decls := []ast.VarDecl{
		{Name: "A", Type: ast.TypeReal, Direction: ast.DirInternal},
		{Name: "B", Type: ast.TypeInt, Direction: ast.DirInternal},
	}
	_, err := BuildSize(decls, 16, 2)
	if err == nil {
		t.Fatalf("expected mapping error")
	}
	var me *MappingError
	if !errors.As(err, &me) {
		t.Fatalf("error %v is not a MappingError", err)
	}
	if me.Class != ClassHolding || me.Need != 3 || me.Limit != 2 {
		t.Fatalf("mapping error = %+v", me)
	}
}

func TestRealCodec(t *testing.T) {
	cases := []float32{0, 1, -1, 21.5, 98.6, float32(math.Inf(1)), -0.0}
	for _, f := range cases {
		hi, lo := EncodeReal(f)
		if got := DecodeReal(hi, lo); math.Float32bits(got) != math.Float32bits(f) {
			t.Errorf("%v round-tripped to %v", f, got)
		}
	}
	// Big-endian word order: the high half lives at the lower address.
	hi, lo := EncodeReal(1.0) // 0x3F800000
	if hi != 0x3F80 || lo != 0 {
		t.Fatalf("EncodeReal(1.0) = %#x %#x, want 0x3f80 0x0", hi, lo)
	}
}

func TestEncodeDecodeWords(t *testing.T) {
	m, err := Build(mixedDecls())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	fan, _ := m.Lookup("Fan")
	if v := DecodeWords(fan, []uint16{0xFFFF}); v.Int16() != -1 {
		t.Fatalf("decode 0xFFFF = %v, want -1 (signed)", v)
	}
	if w := EncodeWords(struntime.Int(-1)); len(w) != 1 || w[0] != 0xFFFF {
		t.Fatalf("encode -1 = %#v", w)
	}
	temp, _ := m.Lookup("Temp")
	words := EncodeWords(struntime.Real(21.5))
	if len(words) != 2 {
		t.Fatalf("REAL encodes to %d words", len(words))
	}
	if v := DecodeWords(temp, words); v.Real() != 21.5 {
		t.Fatalf("REAL round trip = %v", v)
	}
}
