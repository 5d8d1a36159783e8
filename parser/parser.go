package parser

import (
	"strconv"
	"strings"

	"github.com/gosuda/stplc/ast"
)

// ParseProgram parses a PROGRAM ... END_PROGRAM source text into an AST.
// Parsing is pure: the same text always yields the same tree. Duplicate
// declarations and undeclared references are left to the load-time
// validator, not caught here.
func ParseProgram(src string) (*ast.Program, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &stParser{tokens: toks}
	prog, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	return prog, nil
}

type stParser struct {
	tokens []token
	pos    int
	depth  int
}

func (p *stParser) peek() token {
	if p.pos >= len(p.tokens) {
		return token{kind: tokEOF}
	}
	return p.tokens[p.pos]
}

func (p *stParser) next() token {
	t := p.peek()
	p.pos++
	return t
}

// atKeyword reports whether the next token is the given keyword,
// case-insensitively per ST convention.
func (p *stParser) atKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tokIdent && strings.EqualFold(t.lit, kw)
}

func (p *stParser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return errAt(p.peek().line, "expected %s, found %q", kw, p.peek().lit)
	}
	p.next()
	return nil
}

func (p *stParser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, errAt(t.line, "expected %s, found %q", what, t.lit)
	}
	return t, nil
}

func (p *stParser) parseProgram() (*ast.Program, error) {
	if err := p.expectKeyword("PROGRAM"); err != nil {
		return nil, err
	}
	name, err := p.expect(tokIdent, "program name")
	if err != nil {
		return nil, err
	}
	prog := &ast.Program{Name: name.lit}

sections:
	for {
		var dir ast.Direction
		switch {
		case p.atKeyword("VAR_INPUT"):
			dir = ast.DirInput
		case p.atKeyword("VAR_OUTPUT"):
			dir = ast.DirOutput
		case p.atKeyword("VAR"):
			dir = ast.DirInternal
		default:
			break sections
		}
		p.next()
		decls, err := p.parseDeclSection(dir)
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, decls...)
	}

	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	prog.Statements = stmts
	if err := p.expectKeyword("END_PROGRAM"); err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, errAt(p.peek().line, "unexpected token %q after END_PROGRAM", p.peek().lit)
	}
	return prog, nil
}

func (p *stParser) parseDeclSection(dir ast.Direction) ([]ast.VarDecl, error) {
	var decls []ast.VarDecl
	for !p.atKeyword("END_VAR") {
		d, err := p.parseDecl(dir)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	p.next() // END_VAR
	return decls, nil
}

func (p *stParser) parseDecl(dir ast.Direction) (ast.VarDecl, error) {
	name, err := p.expect(tokIdent, "variable name")
	if err != nil {
		return ast.VarDecl{}, err
	}
	if _, err := p.expect(tokColon, ":"); err != nil {
		return ast.VarDecl{}, err
	}
	typ, err := p.expect(tokIdent, "type name")
	if err != nil {
		return ast.VarDecl{}, err
	}
	d := ast.VarDecl{Name: name.lit, Direction: dir, Line: name.line}
	switch strings.ToUpper(typ.lit) {
	case "BOOL":
		d.Type = ast.TypeBool
	case "INT":
		d.Type = ast.TypeInt
	case "REAL":
		d.Type = ast.TypeReal
	default:
		return ast.VarDecl{}, errAt(typ.line, "unsupported type %q", typ.lit)
	}
	if p.peek().kind == tokAssign {
		p.next()
		init, err := p.parseInitLiteral()
		if err != nil {
			return ast.VarDecl{}, err
		}
		d.Init = init
	}
	if _, err := p.expect(tokSemi, ";"); err != nil {
		return ast.VarDecl{}, err
	}
	return d, nil
}

// parseInitLiteral accepts TRUE, FALSE and optionally negated numeric
// literals. The sign is folded into the literal value.
func (p *stParser) parseInitLiteral() (ast.Expr, error) {
	neg := false
	if t := p.peek(); t.kind == tokOp && t.lit == "-" {
		neg = true
		p.next()
	}
	t := p.next()
	switch t.kind {
	case tokInt:
		v, err := strconv.ParseInt(t.lit, 10, 64)
		if err != nil {
			return nil, errAt(t.line, "invalid integer literal %q", t.lit)
		}
		if neg {
			v = -v
		}
		return ast.IntLit{Value: v}, nil
	case tokReal:
		v, err := strconv.ParseFloat(t.lit, 64)
		if err != nil {
			return nil, errAt(t.line, "invalid real literal %q", t.lit)
		}
		if neg {
			v = -v
		}
		return ast.RealLit{Value: v}, nil
	case tokIdent:
		if neg {
			return nil, errAt(t.line, "cannot negate %q", t.lit)
		}
		switch strings.ToUpper(t.lit) {
		case "TRUE":
			return ast.BoolLit{Value: true}, nil
		case "FALSE":
			return ast.BoolLit{Value: false}, nil
		}
	}
	return nil, errAt(t.line, "expected literal initial value, found %q", t.lit)
}

// statement list terminators
func (p *stParser) atStatementEnd() bool {
	return p.peek().kind == tokEOF ||
		p.atKeyword("END_PROGRAM") || p.atKeyword("END_IF") ||
		p.atKeyword("ELSIF") || p.atKeyword("ELSE")
}

func (p *stParser) parseStatements() ([]ast.Statement, error) {
	var stmts []ast.Statement
	for !p.atStatementEnd() {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func (p *stParser) parseStatement() (ast.Statement, error) {
	if p.atKeyword("IF") {
		return p.parseIf()
	}
	target, err := p.expect(tokIdent, "statement")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokAssign, ":="); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr(1)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemi, ";"); err != nil {
		return nil, err
	}
	return ast.AssignStmt{Target: target.lit, Expr: expr, Line: target.line}, nil
}

func (p *stParser) parseIf() (ast.Statement, error) {
	kw := p.next() // IF
	stmt := ast.IfStmt{Line: kw.line}
	for {
		cond, err := p.parseExpr(1)
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		body, err := p.parseStatements()
		if err != nil {
			return nil, err
		}
		stmt.Branches = append(stmt.Branches, ast.IfBranch{Cond: cond, Body: body})
		if !p.atKeyword("ELSIF") {
			break
		}
		p.next()
	}
	if p.atKeyword("ELSE") {
		p.next()
		body, err := p.parseStatements()
		if err != nil {
			return nil, err
		}
		stmt.Else = body
	}
	if err := p.expectKeyword("END_IF"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokSemi, ";"); err != nil {
		return nil, err
	}
	return stmt, nil
}
