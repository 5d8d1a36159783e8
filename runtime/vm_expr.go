package struntime

import (
	"github.com/gosuda/stplc/ast"
)

// Expression evaluation. The validator has already established that
// operand types line up, so the only runtime failures left are the
// declared numeric faults.

func (vm *VM) evalExpr(e ast.Expr) (Value, *Fault) {
	switch ex := e.(type) {
	case ast.BoolLit:
		return Bool(ex.Value), nil
	case ast.IntLit:
		return Int(int16(ex.Value)), nil
	case ast.RealLit:
		return Real(float32(ex.Value)), nil
	case ast.VarRef:
		v, _ := vm.table.Get(ex.Name)
		return v, nil
	case ast.UnaryExpr:
		v, f := vm.evalExpr(ex.Expr)
		if f != nil {
			return Value{}, f
		}
		if ex.Op == "NOT" {
			return Bool(!v.Bool()), nil
		}
		if v.Type() == ast.TypeInt {
			return Int(-v.Int16()), nil
		}
		return Real(-v.Real()), nil
	case ast.BinaryExpr:
		left, f := vm.evalExpr(ex.Left)
		if f != nil {
			return Value{}, f
		}
		right, f := vm.evalExpr(ex.Right)
		if f != nil {
			return Value{}, f
		}
		return evalBinary(ex.Op, left, right)
	default:
		return Value{}, nil
	}
}

func evalBinary(op string, left, right Value) (Value, *Fault) {
	switch op {
	case "OR":
		return Bool(left.Bool() || right.Bool()), nil
	case "AND":
		return Bool(left.Bool() && right.Bool()), nil
	case "=":
		return Bool(equalValues(left, right)), nil
	case "<>":
		return Bool(!equalValues(left, right)), nil
	case ">", "<", ">=", "<=":
		return compareValues(op, left, right), nil
	case "+", "-", "*", "/":
		return arith(op, left, right)
	default:
		return Value{}, nil
	}
}

func bothInt(l, r Value) bool {
	return l.Type() == ast.TypeInt && r.Type() == ast.TypeInt
}

// REAL equality is exact, a documented limitation of the engine.
func equalValues(l, r Value) bool {
	if l.Type() == ast.TypeBool {
		return l.Bool() == r.Bool()
	}
	if bothInt(l, r) {
		return l.Int16() == r.Int16()
	}
	return l.Real() == r.Real()
}

func compareValues(op string, l, r Value) Value {
	var res bool
	if bothInt(l, r) {
		a, b := l.Int16(), r.Int16()
		switch op {
		case ">":
			res = a > b
		case "<":
			res = a < b
		case ">=":
			res = a >= b
		case "<=":
			res = a <= b
		}
	} else {
		a, b := l.Real(), r.Real()
		switch op {
		case ">":
			res = a > b
		case "<":
			res = a < b
		case ">=":
			res = a >= b
		case "<=":
			res = a <= b
		}
	}
	return Bool(res)
}

// INT arithmetic stays in 16-bit two's complement; any REAL operand
// promotes the whole operation to REAL. Division by zero faults in either
// domain.
func arith(op string, l, r Value) (Value, *Fault) {
	if bothInt(l, r) {
		a, b := int32(l.Int16()), int32(r.Int16())
		switch op {
		case "+":
			return Int(int16(a + b)), nil
		case "-":
			return Int(int16(a - b)), nil
		case "*":
			return Int(int16(a * b)), nil
		default:
			if b == 0 {
				return Value{}, &Fault{Kind: FaultDivisionByZero}
			}
			return Int(int16(a / b)), nil
		}
	}
	a, b := l.Real(), r.Real()
	switch op {
	case "+":
		return Real(a + b), nil
	case "-":
		return Real(a - b), nil
	case "*":
		return Real(a * b), nil
	default:
		if b == 0 {
			return Value{}, &Fault{Kind: FaultDivisionByZero}
		}
		return Real(a / b), nil
	}
}
