package struntime

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gosuda/stplc/ast"
)

// VarInfo is the immutable declaration record behind a table slot.
type VarInfo struct {
	Name      string // spelled as declared
	Type      ast.Type
	Direction ast.Direction
}

// Table is the typed variable storage shared by the scan loop and the
// register server. All access is serialized by the single mutex: the VM
// holds it for one whole cycle, the server for one whole request. The lock
// is never held across network I/O.
type Table struct {
	mu     sync.Mutex
	order  []string // uppercased names in declaration order
	info   map[string]VarInfo
	values map[string]Value
}

func newTable(decls []ast.VarDecl) (*Table, error) {
	t := &Table{
		info:   make(map[string]VarInfo, len(decls)),
		values: make(map[string]Value, len(decls)),
	}
	for _, d := range decls {
		key := strings.ToUpper(d.Name)
		if _, dup := t.info[key]; dup {
			return nil, fmt.Errorf("line %d: duplicate variable %q", d.Line, d.Name)
		}
		v, err := initialValue(d)
		if err != nil {
			return nil, err
		}
		t.order = append(t.order, key)
		t.info[key] = VarInfo{Name: d.Name, Type: d.Type, Direction: d.Direction}
		t.values[key] = v
	}
	return t, nil
}

func initialValue(d ast.VarDecl) (Value, error) {
	if d.Init == nil {
		switch d.Type {
		case ast.TypeBool:
			return Bool(false), nil
		case ast.TypeInt:
			return Int(0), nil
		default:
			return Real(0), nil
		}
	}
	switch lit := d.Init.(type) {
	case ast.BoolLit:
		if d.Type == ast.TypeBool {
			return Bool(lit.Value), nil
		}
	case ast.IntLit:
		switch d.Type {
		case ast.TypeInt:
			if lit.Value < -32768 || lit.Value > 32767 {
				return Value{}, fmt.Errorf("line %d: initial value %d out of INT range for %q", d.Line, lit.Value, d.Name)
			}
			return Int(int16(lit.Value)), nil
		case ast.TypeReal:
			return Real(float32(lit.Value)), nil
		}
	case ast.RealLit:
		if d.Type == ast.TypeReal {
			return Real(float32(lit.Value)), nil
		}
	}
	return Value{}, fmt.Errorf("line %d: initial value does not match declared type %s of %q", d.Line, d.Type, d.Name)
}

func (t *Table) Lock()   { t.mu.Lock() }
func (t *Table) Unlock() { t.mu.Unlock() }

// Get returns the current value of a variable. The caller must hold the
// table lock. Lookup is case-insensitive.
func (t *Table) Get(name string) (Value, bool) {
	v, ok := t.values[strings.ToUpper(name)]
	return v, ok
}

// Set stores a value, checked against the declared type. The caller must
// hold the table lock. Write-ownership (INPUT vs OUTPUT) is enforced by the
// register layer, not here: the scan loop may write any variable.
func (t *Table) Set(name string, v Value) error {
	key := strings.ToUpper(name)
	inf, ok := t.info[key]
	if !ok {
		return fmt.Errorf("unknown variable %q", name)
	}
	if v.Type() != inf.Type {
		return fmt.Errorf("cannot store %v into %s variable %q", v.Type(), inf.Type, inf.Name)
	}
	t.values[key] = v
	return nil
}

// Info returns the declaration record for a variable, case-insensitively.
// Safe without the lock: declarations are immutable after load.
func (t *Table) Info(name string) (VarInfo, bool) {
	inf, ok := t.info[strings.ToUpper(name)]
	return inf, ok
}

// Infos lists the declaration records in declaration order.
func (t *Table) Infos() []VarInfo {
	out := make([]VarInfo, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.info[key])
	}
	return out
}

// Snapshot copies all current values under the lock, keyed by the declared
// spelling of each name.
func (t *Table) Snapshot() map[string]Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Value, len(t.order))
	for _, key := range t.order {
		out[t.info[key].Name] = t.values[key]
	}
	return out
}
