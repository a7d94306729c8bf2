/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package registry

import (
	"strings"

	"goarrg.com/debug"
)

// Expr is a parsed depends expression. '+' is AND, ',' is OR, both with
// equal precedence evaluated left to right, parentheses group.
type Expr struct {
	Op    byte
	Name  string
	Left  *Expr
	Right *Expr
}

func ParseExpr(s string) (*Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	p := exprParser{src: s}
	e, err := p.parseSeq()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, debug.Errorf("Unexpected %q at offset %d in depends expression %q", p.src[p.pos], p.pos, s)
	}
	return e, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *exprParser) parseSeq() (*Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return left, nil
		}
		op := p.src[p.pos]
		if op != '+' && op != ',' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Expr{Op: op, Left: left, Right: right}
	}
}

func (p *exprParser) parseTerm() (*Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, debug.Errorf("Unexpected end of depends expression %q", p.src)
	}
	if p.src[p.pos] == '(' {
		p.pos++
		e, err := p.parseSeq()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return nil, debug.Errorf("Unbalanced parentheses in depends expression %q", p.src)
		}
		p.pos++
		return e, nil
	}
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("+,() \t\n", rune(p.src[p.pos])) {
		p.pos++
	}
	if start == p.pos {
		return nil, debug.Errorf("Expected name at offset %d in depends expression %q", p.pos, p.src)
	}
	return &Expr{Name: p.src[start:p.pos]}, nil
}

// Eval reports whether the expression holds. A nil expression is true.
func (e *Expr) Eval(has func(string) bool) bool {
	if e == nil {
		return true
	}
	switch e.Op {
	case '+':
		return e.Left.Eval(has) && e.Right.Eval(has)
	case ',':
		return e.Left.Eval(has) || e.Right.Eval(has)
	default:
		return has(e.Name)
	}
}

func (e *Expr) Names() []string {
	if e == nil {
		return nil
	}
	if e.Op == 0 {
		return []string{e.Name}
	}
	return append(e.Left.Names(), e.Right.Names()...)
}

func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	if e.Op == 0 {
		return e.Name
	}
	wrap := func(c *Expr) string {
		if c.Op != 0 && c.Op != e.Op {
			return "(" + c.String() + ")"
		}
		return c.String()
	}
	right := e.Right.String()
	if e.Right.Op != 0 {
		right = "(" + right + ")"
	}
	return wrap(e.Left) + string(e.Op) + right
}

func (e *Expr) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}
