package struntime

import "fmt"

type FaultKind int

const (
	FaultDivisionByZero FaultKind = iota
	FaultCoercionOverflow
)

func (k FaultKind) String() string {
	switch k {
	case FaultDivisionByZero:
		return "division by zero"
	case FaultCoercionOverflow:
		return "coercion overflow"
	default:
		return "unknown fault"
	}
}

// Fault is a recovered per-statement runtime failure. The offending
// statement is skipped for the current cycle only; the target variable
// keeps its previous value and the scan loop continues.
type Fault struct {
	Kind   FaultKind
	Target string // assignment target, empty when a guard expression faulted
	Line   int
}

func (f *Fault) Error() string {
	if f.Target == "" {
		return fmt.Sprintf("line %d: %s", f.Line, f.Kind)
	}
	return fmt.Sprintf("line %d: %s assigning %s", f.Line, f.Kind, f.Target)
}
