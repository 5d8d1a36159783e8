package modbusd

import (
	"fmt"
	"strings"

	"github.com/gosuda/stplc/ast"
)

type RegClass int

const (
	ClassCoil RegClass = iota
	ClassHolding
)

func (c RegClass) String() string {
	if c == ClassCoil {
		return "coil"
	}
	return "holding register"
}

// Entry maps one declared variable into the register address space.
type Entry struct {
	Name      string
	Type      ast.Type
	Direction ast.Direction
	Class     RegClass
	Addr      uint16
	Words     uint16 // address slots occupied; 1 for a coil
}

type MappingError struct {
	Class RegClass
	Need  int
	Limit int
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("register map needs %d %s addresses, only %d available", e.Need, e.Class, e.Limit)
}

// Map is the fixed address layout peers are configured against: every BOOL
// becomes one coil, allocated in whole-program declaration order from
// address 0; every INT (one word) and REAL (two words, IEEE-754 32-bit
// big-endian, high word at the lower address) becomes a holding register
// run, also in declaration order from address 0. Computed once at load,
// immutable while the server runs, so no locking is needed.
type Map struct {
	entries []Entry
	byName  map[string]Entry // uppercased
	coils   []int            // coil address to entries index
	regs    []regSlot        // holding address to entry word
}

type regSlot struct {
	entry int
	word  int // 0 = high word
}

func Build(decls []ast.VarDecl) (*Map, error) {
	return BuildSize(decls, 65536, 65536)
}

func BuildSize(decls []ast.VarDecl, maxCoils, maxRegisters int) (*Map, error) {
	m := &Map{byName: make(map[string]Entry, len(decls))}
	for _, d := range decls {
		e := Entry{Name: d.Name, Type: d.Type, Direction: d.Direction}
		switch d.Type {
		case ast.TypeBool:
			e.Class, e.Addr, e.Words = ClassCoil, uint16(len(m.coils)), 1
			if len(m.coils)+1 > maxCoils {
				return nil, &MappingError{Class: ClassCoil, Need: len(m.coils) + 1, Limit: maxCoils}
			}
		case ast.TypeInt:
			e.Class, e.Addr, e.Words = ClassHolding, uint16(len(m.regs)), 1
			if len(m.regs)+1 > maxRegisters {
				return nil, &MappingError{Class: ClassHolding, Need: len(m.regs) + 1, Limit: maxRegisters}
			}
		case ast.TypeReal:
			e.Class, e.Addr, e.Words = ClassHolding, uint16(len(m.regs)), 2
			if len(m.regs)+2 > maxRegisters {
				return nil, &MappingError{Class: ClassHolding, Need: len(m.regs) + 2, Limit: maxRegisters}
			}
		}
		idx := len(m.entries)
		m.entries = append(m.entries, e)
		m.byName[strings.ToUpper(d.Name)] = e
		if e.Class == ClassCoil {
			m.coils = append(m.coils, idx)
		} else {
			for w := 0; w < int(e.Words); w++ {
				m.regs = append(m.regs, regSlot{entry: idx, word: w})
			}
		}
	}
	return m, nil
}

// Entries lists the map in declaration order.
func (m *Map) Entries() []Entry {
	return m.entries
}

func (m *Map) Lookup(name string) (Entry, bool) {
	e, ok := m.byName[strings.ToUpper(name)]
	return e, ok
}

func (m *Map) CoilAt(addr uint16) (Entry, bool) {
	if int(addr) >= len(m.coils) {
		return Entry{}, false
	}
	return m.entries[m.coils[addr]], true
}

// RegisterAt resolves a holding register address to its owning entry and
// the word index within that entry (0 is the high word of a REAL pair).
func (m *Map) RegisterAt(addr uint16) (Entry, int, bool) {
	if int(addr) >= len(m.regs) {
		return Entry{}, 0, false
	}
	slot := m.regs[addr]
	return m.entries[slot.entry], slot.word, true
}

func (m *Map) CoilCount() int {
	return len(m.coils)
}

func (m *Map) RegisterCount() int {
	return len(m.regs)
}

// String renders the published address table that collaborator processes
// are configured against.
func (m *Map) String() string {
	nameWidth := 0
	for _, e := range m.entries {
		if len(e.Name) > nameWidth {
			nameWidth = len(e.Name)
		}
	}
	var b strings.Builder
	b.WriteString("coils:\n")
	for _, e := range m.entries {
		if e.Class != ClassCoil {
			continue
		}
		fmt.Fprintf(&b, "  %-11d %-*s %-4s %s\n", e.Addr, nameWidth, e.Name, e.Type, e.Direction)
	}
	b.WriteString("holding registers:\n")
	for _, e := range m.entries {
		if e.Class != ClassHolding {
			continue
		}
		span := fmt.Sprintf("%d", e.Addr)
		if e.Words == 2 {
			span = fmt.Sprintf("%d-%d", e.Addr, e.Addr+1)
		}
		fmt.Fprintf(&b, "  %-11s %-*s %-4s %s\n", span, nameWidth, e.Name, e.Type, e.Direction)
	}
	return b.String()
}
