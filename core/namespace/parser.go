package namespace

import (
	"fmt"
	"strings"
	"unicode"
)

// CompileError reports a rule definition that does not parse or references
// undefined entities. A failed load leaves the previously active rule
// version in effect.
type CompileError struct {
	Namespace string // namespace being processed, if known
	Line      int    // 1-based source line, 0 for structured input
	Detail    string
}

func (e *CompileError) Error() string {
	msg := "namespace: compile failed"
	if e.Namespace != "" {
		msg += " in namespace " + e.Namespace
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	return msg + ": " + e.Detail
}

// ParseSource parses rule-language source into structured definitions.
// Grammar per line inside a "namespace <name> {" block:
//
//	relation <name>
//	relation <name>: <target> | <target> ...
//	permission <name> = <expression>
//
// "//" starts a comment. Expressions are validated later by Compile.
func ParseSource(source string) ([]Definition, error) {
	var (
		defs    []Definition
		current *Definition
	)

	for i, raw := range strings.Split(source, "\n") {
		lineNo := i + 1
		line := raw
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "namespace "):
			if current != nil {
				return nil, &CompileError{Namespace: current.Name, Line: lineNo, Detail: "nested namespace blocks are not allowed"}
			}
			rest := strings.TrimSpace(strings.TrimPrefix(line, "namespace "))
			closed := false
			switch {
			case strings.HasSuffix(rest, "{}"): // empty block on one line
				closed = true
				rest = strings.TrimSpace(strings.TrimSuffix(rest, "{}"))
			case strings.HasSuffix(rest, "{"):
				rest = strings.TrimSpace(strings.TrimSuffix(rest, "{"))
			default:
				return nil, &CompileError{Line: lineNo, Detail: fmt.Sprintf("expected 'namespace <name> {', got %q", raw)}
			}
			if !isIdentifier(rest) {
				return nil, &CompileError{Line: lineNo, Detail: fmt.Sprintf("expected 'namespace <name> {', got %q", raw)}
			}
			defs = append(defs, Definition{Name: rest})
			if !closed {
				current = &defs[len(defs)-1]
			}

		case line == "}":
			if current == nil {
				return nil, &CompileError{Line: lineNo, Detail: "unmatched '}'"}
			}
			current = nil

		case strings.HasPrefix(line, "relation "):
			if current == nil {
				return nil, &CompileError{Line: lineNo, Detail: "relation declared outside a namespace block"}
			}
			rel, err := parseRelationLine(strings.TrimPrefix(line, "relation "), current.Name, lineNo)
			if err != nil {
				return nil, err
			}
			current.Relations = append(current.Relations, rel)

		case strings.HasPrefix(line, "permission "):
			if current == nil {
				return nil, &CompileError{Line: lineNo, Detail: "permission declared outside a namespace block"}
			}
			name, expr, ok := strings.Cut(strings.TrimPrefix(line, "permission "), "=")
			name = strings.TrimSpace(name)
			expr = strings.TrimSpace(expr)
			if !ok || !isIdentifier(name) || expr == "" {
				return nil, &CompileError{Namespace: current.Name, Line: lineNo, Detail: fmt.Sprintf("expected 'permission <name> = <expression>', got %q", raw)}
			}
			current.Permissions = append(current.Permissions, PermissionDef{Name: name, Expr: expr})

		default:
			ns := ""
			if current != nil {
				ns = current.Name
			}
			return nil, &CompileError{Namespace: ns, Line: lineNo, Detail: fmt.Sprintf("unrecognized statement %q", raw)}
		}
	}

	if current != nil {
		return nil, &CompileError{Namespace: current.Name, Detail: "unterminated namespace block, missing '}'"}
	}
	return defs, nil
}

func parseRelationLine(rest, ns string, lineNo int) (RelationDef, error) {
	name, targets, typed := strings.Cut(rest, ":")
	name = strings.TrimSpace(name)
	if !isIdentifier(name) {
		return RelationDef{}, &CompileError{Namespace: ns, Line: lineNo, Detail: fmt.Sprintf("invalid relation name %q", name)}
	}
	rel := RelationDef{Name: name}
	if typed {
		for _, t := range strings.Split(targets, "|") {
			t = strings.TrimSpace(t)
			if !isIdentifier(t) {
				return RelationDef{}, &CompileError{Namespace: ns, Line: lineNo, Detail: fmt.Sprintf("invalid relation target %q", t)}
			}
			rel.Targets = append(rel.Targets, t)
		}
		if len(rel.Targets) == 0 {
			return RelationDef{}, &CompileError{Namespace: ns, Line: lineNo, Detail: "relation declares ':' but no targets"}
		}
	}
	return rel, nil
}

// parseExpression parses one permission rule into its expression tree.
//
//	expr        := conjunction ("|" conjunction)*
//	conjunction := term ("&" term)*
//	term        := "(" expr ")" | ident "->" ident | ident
func parseExpression(src string) (Expr, error) {
	p := &exprParser{tokens: tokenizeExpression(src), src: src}
	expr, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("unexpected %q after expression", p.tokens[p.pos])
	}
	return expr, nil
}

type exprParser struct {
	tokens []string
	pos    int
	src    string
}

func (p *exprParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *exprParser) next() string {
	tok := p.peek()
	if tok != "" {
		p.pos++
	}
	return tok
}

func (p *exprParser) parseUnion() (Expr, error) {
	first, err := p.parseIntersection()
	if err != nil {
		return nil, err
	}
	operands := []Expr{first}
	for p.peek() == "|" {
		p.next()
		op, err := p.parseIntersection()
		if err != nil {
			return nil, err
		}
		operands = append(operands, op)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return &Union{Operands: operands}, nil
}

func (p *exprParser) parseIntersection() (Expr, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	operands := []Expr{first}
	for p.peek() == "&" {
		p.next()
		op, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		operands = append(operands, op)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return &Intersection{Operands: operands}, nil
}

func (p *exprParser) parseTerm() (Expr, error) {
	tok := p.next()
	switch {
	case tok == "":
		return nil, fmt.Errorf("unexpected end of expression %q", p.src)
	case tok == "(":
		inner, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, fmt.Errorf("missing ')' in expression %q", p.src)
		}
		return inner, nil
	case isIdentifier(tok):
		if p.peek() == "->" {
			p.next()
			perm := p.next()
			if !isIdentifier(perm) {
				return nil, fmt.Errorf("expected permission name after %q->", tok)
			}
			return &Traversal{Relation: tok, Permission: perm}, nil
		}
		// Resolved to Membership or PermissionRef by the compiler.
		return &identExpr{name: tok}, nil
	default:
		return nil, fmt.Errorf("unexpected token %q in expression %q", tok, p.src)
	}
}

// identExpr is a bare identifier awaiting resolution against the declared
// relations and permissions. It never survives compilation.
type identExpr struct {
	name string
}

func (e *identExpr) isExpr()        {}
func (e *identExpr) String() string { return e.name }

func tokenizeExpression(src string) []string {
	var tokens []string
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '|' || c == '&' || c == '(' || c == ')':
			tokens = append(tokens, string(c))
			i++
		case c == '-' && i+1 < len(src) && src[i+1] == '>':
			tokens = append(tokens, "->")
			i += 2
		default:
			j := i
			for j < len(src) && isIdentifierChar(rune(src[j])) {
				j++
			}
			if j == i {
				// Unknown character; emit it as its own token so the
				// parser reports it.
				tokens = append(tokens, string(c))
				i++
				continue
			}
			tokens = append(tokens, src[i:j])
			i = j
		}
	}
	return tokens
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return false
		}
		if !isIdentifierChar(r) {
			return false
		}
	}
	return true
}

func isIdentifierChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
