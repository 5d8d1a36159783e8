package struntime

import (
	"strconv"

	"github.com/gosuda/stplc/ast"
)

type Value struct {
	typ ast.Type
	b   bool
	i   int16
	r   float32
}

func Bool(v bool) Value {
	return Value{typ: ast.TypeBool, b: v}
}

func Int(v int16) Value {
	return Value{typ: ast.TypeInt, i: v}
}

func Real(v float32) Value {
	return Value{typ: ast.TypeReal, r: v}
}

func (v Value) Type() ast.Type {
	return v.typ
}

func (v Value) Bool() bool {
	return v.b
}

func (v Value) Int16() int16 {
	return v.i
}

// Real widens an INT value, matching the ST promotion rule.
func (v Value) Real() float32 {
	if v.typ == ast.TypeInt {
		return float32(v.i)
	}
	return v.r
}

func (v Value) String() string {
	switch v.typ {
	case ast.TypeBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case ast.TypeInt:
		return strconv.FormatInt(int64(v.i), 10)
	default:
		return strconv.FormatFloat(float64(v.r), 'f', -1, 32)
	}
}
