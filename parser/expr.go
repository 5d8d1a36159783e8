package parser

import (
	"strconv"
	"strings"

	"github.com/gosuda/stplc/ast"
)

var reservedWords = map[string]struct{}{
	"PROGRAM": {}, "END_PROGRAM": {},
	"VAR": {}, "VAR_INPUT": {}, "VAR_OUTPUT": {}, "END_VAR": {},
	"IF": {}, "THEN": {}, "ELSIF": {}, "ELSE": {}, "END_IF": {},
	"AND": {}, "OR": {}, "NOT": {},
	"TRUE": {}, "FALSE": {},
	"BOOL": {}, "INT": {}, "REAL": {},
}

func isReserved(lit string) bool {
	_, ok := reservedWords[strings.ToUpper(lit)]
	return ok
}

// binaryOp returns the canonical operator for the next token, if it is one.
// OR and AND arrive as identifier tokens, the rest as operator tokens.
func binaryOp(t token) (string, bool) {
	switch t.kind {
	case tokOp:
		return t.lit, true
	case tokIdent:
		up := strings.ToUpper(t.lit)
		if up == "OR" || up == "AND" {
			return up, true
		}
	}
	return "", false
}

// Precedence, lowest to highest: OR, AND, equality/relational, additive,
// multiplicative. Unary NOT and minus bind tighter than all of these.
func opPrecedence(op string) int {
	switch op {
	case "OR":
		return 1
	case "AND":
		return 2
	case "=", "<>", ">", "<", ">=", "<=":
		return 3
	case "+", "-":
		return 4
	case "*", "/":
		return 5
	default:
		return 0
	}
}

func (p *stParser) parseExpr(minPrec int) (ast.Expr, error) {
	p.depth++
	if p.depth > 256 {
		return nil, errAt(p.peek().line, "expression nesting too deep")
	}
	defer func() { p.depth-- }()

	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := binaryOp(p.peek())
		if !ok {
			break
		}
		prec := opPrecedence(op)
		if prec < minPrec {
			break
		}
		p.next()
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *stParser) parseUnary() (ast.Expr, error) {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.lit, "NOT") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryExpr{Op: "NOT", Expr: operand}, nil
	}
	if t.kind == tokOp && t.lit == "-" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryExpr{Op: "-", Expr: operand}, nil
	}
	return p.parsePrimary()
}

func (p *stParser) parsePrimary() (ast.Expr, error) {
	t := p.next()
	switch t.kind {
	case tokInt:
		v, err := strconv.ParseInt(t.lit, 10, 64)
		if err != nil {
			return nil, errAt(t.line, "invalid integer literal %q", t.lit)
		}
		return ast.IntLit{Value: v}, nil
	case tokReal:
		v, err := strconv.ParseFloat(t.lit, 64)
		if err != nil {
			return nil, errAt(t.line, "invalid real literal %q", t.lit)
		}
		return ast.RealLit{Value: v}, nil
	case tokIdent:
		switch strings.ToUpper(t.lit) {
		case "TRUE":
			return ast.BoolLit{Value: true}, nil
		case "FALSE":
			return ast.BoolLit{Value: false}, nil
		}
		if isReserved(t.lit) {
			return nil, errAt(t.line, "unexpected keyword %q in expression", t.lit)
		}
		if p.peek().kind == tokLParen {
			return nil, errAt(t.line, "function calls are not supported")
		}
		return ast.VarRef{Name: t.lit, Line: t.line}, nil
	case tokLParen:
		e, err := p.parseExpr(1)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, errAt(t.line, "unexpected token %q in expression", t.lit)
}
