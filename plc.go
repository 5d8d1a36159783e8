// Package stplc emulates a small PLC: it parses a Structured Text
// program, runs it on a fixed scan cycle and publishes the variable
// table as Modbus registers.
package stplc

import (
	"github.com/gosuda/stplc/ast"
	"github.com/gosuda/stplc/parser"
	struntime "github.com/gosuda/stplc/runtime"
)

// Parse parses a Structured Text program without building a runtime.
func Parse(src string) (*ast.Program, error) {
	return parser.ParseProgram(src)
}

// Compile parses src and builds a validated VM ready for RunCycle.
// All static errors (syntax, undeclared or duplicate variables, type
// mismatches) surface here; a successful Compile cannot fault at load
// time again.
func Compile(src string) (*struntime.VM, error) {
	prog, err := parser.ParseProgram(src)
	if err != nil {
		return nil, err
	}
	return struntime.New(prog)
}
