// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package filter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PatchyVideo/thvote-be/apperr"
)

var questionIdent = regexp.MustCompile(`^q\d+$`)

// Compile parses a filter query. A blank query yields a nil *Node, which
// matches every ballot. Parse failures are reported as MALFORMED_QUERY.
func Compile(src string) (*Node, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	toks, err := lex(src)
	if err != nil {
		return nil, apperr.MalformedQuery(err)
	}
	p := &parser{toks: toks}
	n, err := p.query()
	if err != nil {
		return nil, apperr.MalformedQuery(err)
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, apperr.MalformedQuery(&SyntaxError{t.pos, fmt.Sprintf("unexpected %s after query", t.kind)})
	}
	return n, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, &SyntaxError{t.pos, fmt.Sprintf("expected %s, found %s", kind, t.kind)}
	}
	return t, nil
}

// query := and_query ("OR" query)?
func (p *parser) query() (*Node, error) {
	left, err := p.andQuery()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokOr {
		return left, nil
	}
	p.next()
	right, err := p.query()
	if err != nil {
		return nil, err
	}
	return Or(left, right), nil
}

// and_query := primary ("AND" and_query)?
func (p *parser) andQuery() (*Node, error) {
	left, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokAnd {
		return left, nil
	}
	p.next()
	right, err := p.andQuery()
	if err != nil {
		return nil, err
	}
	return And(left, right), nil
}

// primary := "(" query ")" | condition
func (p *parser) primary() (*Node, error) {
	if p.peek().kind == tokLParen {
		p.next()
		n, err := p.query()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return n, nil
	}
	return p.condition()
}

// condition := ident ":" "[" value ("," value)* "]" | ident "=" value
func (p *parser) condition() (*Node, error) {
	id, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	field := rewriteIdent(id.text)

	op := p.next()
	switch op.kind {
	case tokEquals:
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		return In(field, v), nil
	case tokColon:
		if _, err := p.expect(tokLBracket); err != nil {
			return nil, err
		}
		var values []string
		for {
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			t := p.next()
			if t.kind == tokRBracket {
				break
			}
			if t.kind != tokComma {
				return nil, &SyntaxError{t.pos, fmt.Sprintf("expected ',' or ']', found %s", t.kind)}
			}
		}
		return In(field, values...), nil
	}
	return nil, &SyntaxError{op.pos, fmt.Sprintf("expected ':' or '=' after %s, found %s", id.text, op.kind)}
}

func (p *parser) value() (string, error) {
	t := p.next()
	if t.kind != tokInt && t.kind != tokString {
		return "", &SyntaxError{t.pos, fmt.Sprintf("expected integer or string, found %s", t.kind)}
	}
	return t.text, nil
}

// rewriteIdent maps user-facing identifiers onto stored attribute fields.
func rewriteIdent(ident string) string {
	switch {
	case questionIdent.MatchString(ident):
		return ident + ".opt"
	case ident == "chars" || ident == "musics" || ident == "cps":
		return ident + ".name"
	}
	return ident
}

// In builds a containment condition. Values are copied and sorted.
func In(field string, values ...string) *Node {
	vs := append([]string(nil), values...)
	sort.Strings(vs)
	return &Node{Kind: KindCond, Field: field, Values: vs}
}

func And(left, right *Node) *Node {
	return &Node{Kind: KindAnd, Left: left, Right: right}
}

func Or(left, right *Node) *Node {
	return &Node{Kind: KindOr, Left: left, Right: right}
}
