package struntime

import (
	"fmt"
	"strings"

	"github.com/gosuda/stplc/ast"
)

// The load-time validator: every name referenced by a statement must be
// declared, guards must be BOOL, operators must see operands of the right
// type class. Once a program passes, cycle execution cannot hit a type
// error, only the declared numeric faults.

type checker struct {
	types map[string]ast.Type // uppercased name to declared type
}

func validate(prog *ast.Program) error {
	c := &checker{types: make(map[string]ast.Type, len(prog.Decls))}
	for _, d := range prog.Decls {
		c.types[strings.ToUpper(d.Name)] = d.Type
	}
	return c.checkStatements(prog.Statements)
}

func (c *checker) checkStatements(stmts []ast.Statement) error {
	for _, s := range stmts {
		if err := c.checkStatement(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case ast.AssignStmt:
		declType, ok := c.types[strings.ToUpper(s.Target)]
		if !ok {
			return fmt.Errorf("line %d: undeclared variable %q", s.Line, s.Target)
		}
		exprType, err := c.typeOf(s.Expr)
		if err != nil {
			return err
		}
		if !assignable(declType, exprType) {
			return fmt.Errorf("line %d: cannot assign %s expression to %s variable %q",
				s.Line, exprType, declType, s.Target)
		}
		return nil
	case ast.IfStmt:
		for _, br := range s.Branches {
			ct, err := c.typeOf(br.Cond)
			if err != nil {
				return err
			}
			if ct != ast.TypeBool {
				return fmt.Errorf("line %d: IF condition must be BOOL, got %s", s.Line, ct)
			}
			if err := c.checkStatements(br.Body); err != nil {
				return err
			}
		}
		return c.checkStatements(s.Else)
	default:
		return fmt.Errorf("unsupported statement %T", stmt)
	}
}

// REAL narrows into INT by truncation, INT widens into REAL; BOOL never
// crosses into the numeric types.
func assignable(decl, expr ast.Type) bool {
	if decl == expr {
		return true
	}
	return decl != ast.TypeBool && expr != ast.TypeBool
}

func (c *checker) typeOf(e ast.Expr) (ast.Type, error) {
	switch ex := e.(type) {
	case ast.BoolLit:
		return ast.TypeBool, nil
	case ast.IntLit:
		if ex.Value < -32768 || ex.Value > 32767 {
			return 0, fmt.Errorf("integer literal %d out of INT range", ex.Value)
		}
		return ast.TypeInt, nil
	case ast.RealLit:
		return ast.TypeReal, nil
	case ast.VarRef:
		t, ok := c.types[strings.ToUpper(ex.Name)]
		if !ok {
			return 0, fmt.Errorf("line %d: undeclared variable %q", ex.Line, ex.Name)
		}
		return t, nil
	case ast.UnaryExpr:
		t, err := c.typeOf(ex.Expr)
		if err != nil {
			return 0, err
		}
		switch ex.Op {
		case "NOT":
			if t != ast.TypeBool {
				return 0, fmt.Errorf("NOT requires a BOOL operand, got %s", t)
			}
			return ast.TypeBool, nil
		case "-":
			if t == ast.TypeBool {
				return 0, fmt.Errorf("unary minus requires a numeric operand")
			}
			return t, nil
		}
		return 0, fmt.Errorf("unsupported unary operator %q", ex.Op)
	case ast.BinaryExpr:
		lt, err := c.typeOf(ex.Left)
		if err != nil {
			return 0, err
		}
		rt, err := c.typeOf(ex.Right)
		if err != nil {
			return 0, err
		}
		switch ex.Op {
		case "OR", "AND":
			if lt != ast.TypeBool || rt != ast.TypeBool {
				return 0, fmt.Errorf("%s requires BOOL operands, got %s and %s", ex.Op, lt, rt)
			}
			return ast.TypeBool, nil
		case "=", "<>":
			if (lt == ast.TypeBool) != (rt == ast.TypeBool) {
				return 0, fmt.Errorf("cannot compare %s with %s", lt, rt)
			}
			return ast.TypeBool, nil
		case ">", "<", ">=", "<=":
			if lt == ast.TypeBool || rt == ast.TypeBool {
				return 0, fmt.Errorf("%s requires numeric operands, got %s and %s", ex.Op, lt, rt)
			}
			return ast.TypeBool, nil
		case "+", "-", "*", "/":
			if lt == ast.TypeBool || rt == ast.TypeBool {
				return 0, fmt.Errorf("%s requires numeric operands, got %s and %s", ex.Op, lt, rt)
			}
			if lt == ast.TypeReal || rt == ast.TypeReal {
				return ast.TypeReal, nil
			}
			return ast.TypeInt, nil
		}
		return 0, fmt.Errorf("unsupported binary operator %q", ex.Op)
	default:
		return 0, fmt.Errorf("unsupported expression %T", e)
	}
}
