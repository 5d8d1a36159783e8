package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gosuda/stplc/ast"
)

// FormatDeclarations renders a declaration list back to ST source, grouped
// into one section per direction. Used to publish a program's variable
// interface and to round-trip the declaration section in tests.
func FormatDeclarations(decls []ast.VarDecl) string {
	var b strings.Builder
	section := func(kw string, dir ast.Direction) {
		found := false
		for _, d := range decls {
			if d.Direction == dir {
				found = true
				break
			}
		}
		if !found {
			return
		}
		b.WriteString(kw)
		b.WriteByte('\n')
		for _, d := range decls {
			if d.Direction != dir {
				continue
			}
			b.WriteString("    ")
			b.WriteString(d.Name)
			b.WriteString(" : ")
			b.WriteString(d.Type.String())
			if d.Init != nil {
				b.WriteString(" := ")
				b.WriteString(formatLiteral(d.Init))
			}
			b.WriteString(";\n")
		}
		b.WriteString("END_VAR\n")
	}
	section("VAR_INPUT", ast.DirInput)
	section("VAR_OUTPUT", ast.DirOutput)
	section("VAR", ast.DirInternal)
	return b.String()
}

func formatLiteral(e ast.Expr) string {
	switch l := e.(type) {
	case ast.BoolLit:
		if l.Value {
			return "TRUE"
		}
		return "FALSE"
	case ast.IntLit:
		return strconv.FormatInt(l.Value, 10)
	case ast.RealLit:
		s := strconv.FormatFloat(l.Value, 'f', -1, 64)
		if !strings.ContainsRune(s, '.') {
			s += ".0"
		}
		return s
	default:
		return fmt.Sprintf("%v", e)
	}
}
