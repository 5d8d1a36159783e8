package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/gosuda/stplc/ast"
)

const tinyProgram = `
PROGRAM Tiny
VAR_INPUT
    Enable : BOOL;
    Temp : REAL := 20.0;
END_VAR
VAR_OUTPUT
    Fan : INT;
END_VAR
VAR
    Err : REAL;
END_VAR

Err := Temp - 22.0;
IF Enable THEN
    Fan := 50;
ELSE
    Fan := 0;
END_IF;
END_PROGRAM
`

func TestParseDeclarations(t *testing.T) {
	prog, err := ParseProgram(tinyProgram)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if prog.Name != "Tiny" {
		t.Fatalf("program name = %q, want Tiny", prog.Name)
	}
	want := []struct {
		name string
		typ  ast.Type
		dir  ast.Direction
	}{
		{"Enable", ast.TypeBool, ast.DirInput},
		{"Temp", ast.TypeReal, ast.DirInput},
		{"Fan", ast.TypeInt, ast.DirOutput},
		{"Err", ast.TypeReal, ast.DirInternal},
	}
	if len(prog.Decls) != len(want) {
		t.Fatalf("got %d declarations, want %d", len(prog.Decls), len(want))
	}
	for i, w := range want {
		d := prog.Decls[i]
		if d.Name != w.name || d.Type != w.typ || d.Direction != w.dir {
			t.Errorf("decl %d = %s %s %s, want %s %s %s",
				i, d.Name, d.Type, d.Direction, w.name, w.typ, w.dir)
		}
	}
	if prog.Decls[1].Init == nil {
		t.Fatalf("Temp has no initial value")
	}
	if lit, ok := prog.Decls[1].Init.(ast.RealLit); !ok || lit.Value != 20.0 {
		t.Fatalf("Temp init = %#v, want RealLit 20.0", prog.Decls[1].Init)
	}
}

func TestParseComments(t *testing.T) {
	src := `
(* block comment
   spanning lines *)
PROGRAM C // trailing
VAR
    X : INT; (* inline *)
END_VAR
X := 1; // done
END_PROGRAM
`
	prog, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Statements))
	}
}

func TestUnterminatedComment(t *testing.T) {
	_, err := ParseProgram("PROGRAM P\n(* never closed\nEND_PROGRAM")
	if err == nil {
		t.Fatalf("expected error for unterminated comment")
	}
}

func TestPrecedence(t *testing.T) {
	src := `
PROGRAM P
VAR
    A : BOOL;
    B : BOOL;
    X : REAL;
    Y : REAL;
END_VAR
A := B OR X > 1.0 AND Y + 2.0 * 3.0 < 10.0;
END_PROGRAM
`
	prog, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	assign := prog.Statements[0].(ast.AssignStmt)

	// OR binds loosest.
	or, ok := assign.Expr.(ast.BinaryExpr)
	if !ok || or.Op != "OR" {
		t.Fatalf("top operator = %#v, want OR", assign.Expr)
	}
	and, ok := or.Right.(ast.BinaryExpr)
	if !ok || and.Op != "AND" {
		t.Fatalf("right of OR = %#v, want AND", or.Right)
	}
	lt, ok := and.Right.(ast.BinaryExpr)
	if !ok || lt.Op != "<" {
		t.Fatalf("right of AND = %#v, want <", and.Right)
	}
	// Y + 2.0 * 3.0 parses as Y + (2.0 * 3.0).
	add, ok := lt.Left.(ast.BinaryExpr)
	if !ok || add.Op != "+" {
		t.Fatalf("left of < = %#v, want +", lt.Left)
	}
	if mul, ok := add.Right.(ast.BinaryExpr); !ok || mul.Op != "*" {
		t.Fatalf("right of + = %#v, want *", add.Right)
	}
}

func TestUnaryOperators(t *testing.T) {
	src := `
PROGRAM P
VAR
    A : BOOL;
    X : INT;
END_VAR
A := NOT A;
X := -X + 1;
END_PROGRAM
`
	prog, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	not, ok := prog.Statements[0].(ast.AssignStmt).Expr.(ast.UnaryExpr)
	if !ok || not.Op != "NOT" {
		t.Fatalf("first expr = %#v, want NOT", prog.Statements[0])
	}
	// Unary minus binds tighter than +.
	add, ok := prog.Statements[1].(ast.AssignStmt).Expr.(ast.BinaryExpr)
	if !ok || add.Op != "+" {
		t.Fatalf("second expr top = %#v, want +", prog.Statements[1])
	}
	if neg, ok := add.Left.(ast.UnaryExpr); !ok || neg.Op != "-" {
		t.Fatalf("left of + = %#v, want unary -", add.Left)
	}
}

func TestNestedIf(t *testing.T) {
	src := `
PROGRAM P
VAR
    A : BOOL;
    B : BOOL;
    X : INT;
END_VAR
IF A THEN
    IF B THEN
        X := 1;
    ELSIF A THEN
        X := 2;
    ELSE
        X := 3;
    END_IF;
ELSE
    X := 4;
END_IF;
END_PROGRAM
`
	prog, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	outer := prog.Statements[0].(ast.IfStmt)
	if len(outer.Branches) != 1 || len(outer.Else) != 1 {
		t.Fatalf("outer IF: %d branches, %d else statements", len(outer.Branches), len(outer.Else))
	}
	inner, ok := outer.Branches[0].Body[0].(ast.IfStmt)
	if !ok {
		t.Fatalf("nested statement = %#v, want IfStmt", outer.Branches[0].Body[0])
	}
	if len(inner.Branches) != 2 || len(inner.Else) != 1 {
		t.Fatalf("inner IF: %d branches, %d else statements", len(inner.Branches), len(inner.Else))
	}
}

func TestErrorLines(t *testing.T) {
	cases := []struct {
		name string
		src  string
		line int
		sub  string
	}{
		{"missing semicolon", "PROGRAM P\nVAR\n    X : INT\nEND_VAR\nEND_PROGRAM", 4, ""},
		{"bad type", "PROGRAM P\nVAR\n    X : DWORD;\nEND_VAR\nEND_PROGRAM", 3, "DWORD"},
		{"function call", "PROGRAM P\nVAR\n    X : INT;\nEND_VAR\nX := ABS(1);\nEND_PROGRAM", 5, "function"},
		{"missing END_IF", "PROGRAM P\nVAR\n    A : BOOL;\nEND_VAR\nIF A THEN\n    A := TRUE;\nEND_PROGRAM", 7, ""},
	}
	for _, tc := range cases {
		_, err := ParseProgram(tc.src)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%s: error %v is not a ParseError", tc.name, err)
			continue
		}
		if pe.Line != tc.line {
			t.Errorf("%s: error on line %d, want %d (%v)", tc.name, pe.Line, tc.line, err)
		}
		if tc.sub != "" && !strings.Contains(err.Error(), tc.sub) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.sub)
		}
	}
}

func TestReservedWordAsVariable(t *testing.T) {
	_, err := ParseProgram("PROGRAM P\nVAR\n    X : INT;\nEND_VAR\nX := IF;\nEND_PROGRAM")
	if err == nil {
		t.Fatalf("expected error using keyword as operand")
	}
}

func TestParseDeterministic(t *testing.T) {
	a, err := ParseProgram(tinyProgram)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, err := ParseProgram(tinyProgram)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("parsing the same text twice produced different trees")
	}
}

func TestFormatDeclarationsRoundTrip(t *testing.T) {
	prog, err := ParseProgram(tinyProgram)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	formatted := FormatDeclarations(prog.Decls)
	prog2, err := ParseProgram("PROGRAM Tiny\n" + formatted + "\nEND_PROGRAM")
	if err != nil {
		t.Fatalf("reparse formatted declarations: %v\n%s", err, formatted)
	}
	if len(prog2.Decls) != len(prog.Decls) {
		t.Fatalf("round trip: %d decls, want %d", len(prog2.Decls), len(prog.Decls))
	}
	for i := range prog.Decls {
		a, b := prog.Decls[i], prog2.Decls[i]
		if a.Name != b.Name || a.Type != b.Type || a.Direction != b.Direction {
			t.Errorf("decl %d changed: %+v vs %+v", i, a, b)
		}
	}
}
