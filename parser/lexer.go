package parser

import (
	"fmt"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokReal
	tokAssign // :=
	tokColon
	tokSemi
	tokLParen
	tokRParen
	tokOp
)

type token struct {
	kind tokenKind
	lit  string
	line int
}

// ParseError reports the first offending token of an unparseable source.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func errAt(line int, format string, args ...any) error {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

func tokenize(src string) ([]token, error) {
	r := []rune(src)
	toks := make([]token, 0, len(r)/4)
	line := 1
	for i := 0; i < len(r); {
		ch := r[i]
		if ch == '\n' {
			line++
			i++
			continue
		}
		if unicode.IsSpace(ch) {
			i++
			continue
		}
		// line comment
		if ch == '/' && i+1 < len(r) && r[i+1] == '/' {
			for i < len(r) && r[i] != '\n' {
				i++
			}
			continue
		}
		// block comment, may span lines
		if ch == '(' && i+1 < len(r) && r[i+1] == '*' {
			startLine := line
			j := i + 2
			for {
				if j+1 >= len(r) {
					return nil, errAt(startLine, "unterminated block comment")
				}
				if r[j] == '\n' {
					line++
				}
				if r[j] == '*' && r[j+1] == ')' {
					break
				}
				j++
			}
			i = j + 2
			continue
		}
		if unicode.IsDigit(ch) {
			j := i + 1
			for j < len(r) && unicode.IsDigit(r[j]) {
				j++
			}
			kind := tokInt
			if j+1 < len(r) && r[j] == '.' && unicode.IsDigit(r[j+1]) {
				kind = tokReal
				j += 2
				for j < len(r) && unicode.IsDigit(r[j]) {
					j++
				}
			}
			toks = append(toks, token{kind: kind, lit: string(r[i:j]), line: line})
			i = j
			continue
		}
		if isIdentStart(ch) {
			j := i + 1
			for j < len(r) && isIdentPart(r[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, lit: string(r[i:j]), line: line})
			i = j
			continue
		}
		if i+1 < len(r) {
			switch string(r[i : i+2]) {
			case ":=":
				toks = append(toks, token{kind: tokAssign, lit: ":=", line: line})
				i += 2
				continue
			case "<=", ">=", "<>":
				toks = append(toks, token{kind: tokOp, lit: string(r[i : i+2]), line: line})
				i += 2
				continue
			}
		}
		switch ch {
		case ':':
			toks = append(toks, token{kind: tokColon, lit: ":", line: line})
		case ';':
			toks = append(toks, token{kind: tokSemi, lit: ";", line: line})
		case '(':
			toks = append(toks, token{kind: tokLParen, lit: "(", line: line})
		case ')':
			toks = append(toks, token{kind: tokRParen, lit: ")", line: line})
		case '+', '-', '*', '/', '=', '<', '>':
			toks = append(toks, token{kind: tokOp, lit: string(ch), line: line})
		default:
			return nil, errAt(line, "unexpected character %q", ch)
		}
		i++
	}
	toks = append(toks, token{kind: tokEOF, line: line})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
