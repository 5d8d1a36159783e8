package struntime

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/gosuda/stplc/ast"
)

// VM executes a validated program one scan cycle at a time. It is stateless
// across cycles except through the variable table; a fault marks only the
// cycle it occurred in.
type VM struct {
	program *ast.Program
	table   *Table
	onFault func(*Fault)

	cycles    atomic.Uint64
	faults    atomic.Uint64
	lastCycle atomic.Int64 // nanoseconds
	faulted   atomic.Bool  // most recent cycle raised at least one fault
}

// New builds the variable table from the declaration section (catching
// duplicates and malformed initial values) and type-checks the statement
// list, so cycle execution never has to.
func New(program *ast.Program) (*VM, error) {
	table, err := newTable(program.Decls)
	if err != nil {
		return nil, err
	}
	if err := validate(program); err != nil {
		return nil, err
	}
	return &VM{program: program, table: table}, nil
}

func (vm *VM) Table() *Table {
	return vm.table
}

// SetFaultHandler registers a callback for recovered runtime faults. The
// callback runs after the cycle releases the table lock. Set it before the
// first cycle; it must not change while cycles are running.
func (vm *VM) SetFaultHandler(fn func(*Fault)) {
	vm.onFault = fn
}

// RunCycle executes every top-level statement once against the table,
// atomically from the point of view of concurrent register requests.
// Identical table state in, identical table state out.
func (vm *VM) RunCycle() {
	start := time.Now()
	var faults []*Fault
	vm.table.Lock()
	for _, stmt := range vm.program.Statements {
		faults = vm.runStatement(stmt, faults)
	}
	vm.table.Unlock()
	vm.cycles.Add(1)
	vm.lastCycle.Store(int64(time.Since(start)))
	vm.faulted.Store(len(faults) > 0)
	vm.faults.Add(uint64(len(faults)))
	if vm.onFault != nil {
		for _, f := range faults {
			vm.onFault(f)
		}
	}
}

func (vm *VM) runStatement(stmt ast.Statement, faults []*Fault) []*Fault {
	switch s := stmt.(type) {
	case ast.AssignStmt:
		v, f := vm.evalExpr(s.Expr)
		if f == nil {
			f = vm.assign(s.Target, v)
		}
		if f != nil {
			f.Target = s.Target
			f.Line = s.Line
			return append(faults, f)
		}
	case ast.IfStmt:
		for _, br := range s.Branches {
			cond, f := vm.evalExpr(br.Cond)
			if f != nil {
				f.Line = s.Line
				return append(faults, f)
			}
			if cond.Bool() {
				for _, inner := range br.Body {
					faults = vm.runStatement(inner, faults)
				}
				return faults
			}
		}
		// No guard held: without an ELSE all variables keep their prior
		// values, per IEC semantics.
		for _, inner := range s.Else {
			faults = vm.runStatement(inner, faults)
		}
	}
	return faults
}

// assign narrows or widens the computed value to the target's declared
// type. REAL to INT truncates toward zero; a truncated value outside the
// 16-bit range is a coercion fault and the target keeps its old value.
func (vm *VM) assign(target string, v Value) *Fault {
	inf, _ := vm.table.Info(target)
	switch inf.Type {
	case ast.TypeInt:
		if v.Type() == ast.TypeReal {
			t := math.Trunc(float64(v.Real()))
			if t < -32768 || t > 32767 {
				return &Fault{Kind: FaultCoercionOverflow}
			}
			v = Int(int16(t))
		}
	case ast.TypeReal:
		if v.Type() == ast.TypeInt {
			v = Real(float32(v.Int16()))
		}
	}
	_ = vm.table.Set(target, v)
	return nil
}

func (vm *VM) CycleCount() uint64 {
	return vm.cycles.Load()
}

func (vm *VM) FaultCount() uint64 {
	return vm.faults.Load()
}

// LastCycleTime reports how long the most recent cycle took.
func (vm *VM) LastCycleTime() time.Duration {
	return time.Duration(vm.lastCycle.Load())
}

// Faulted reports whether the most recent cycle recovered from a fault.
// The flag is not sticky; the next clean cycle clears it.
func (vm *VM) Faulted() bool {
	return vm.faulted.Load()
}
