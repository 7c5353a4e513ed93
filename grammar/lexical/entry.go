package lexical

import (
	"fmt"
	"strings"

	"github.com/nihei9/gramc/grammar/lexical/matchset"
)

// Position locates a definition in the grammar source. The zero value means
// unknown.
type Position struct {
	Row int
	Col int
}

// ClassExpr is an expression over named character classes.
type ClassExpr interface {
	classExpr()
}

// ClassSet is a literal set such as [a-z].
type ClassSet struct {
	Set matchset.Set
}

type ClassRef struct {
	Name string
	Pos  Position
}

type ClassUnion struct {
	Left  ClassExpr
	Right ClassExpr
}

type ClassDiff struct {
	Left  ClassExpr
	Right ClassExpr
}

type ClassIntersect struct {
	Left  ClassExpr
	Right ClassExpr
}

type ClassInvert struct {
	Operand ClassExpr
}

func (*ClassSet) classExpr()       {}
func (*ClassRef) classExpr()       {}
func (*ClassUnion) classExpr()     {}
func (*ClassDiff) classExpr()      {}
func (*ClassIntersect) classExpr() {}
func (*ClassInvert) classExpr()    {}

// Expr is a token expression.
type Expr interface {
	expr()
}

type CharExpr struct {
	Char rune
}

type StringExpr struct {
	Value string
}

type SetExpr struct {
	Set matchset.Set
}

// AnyExpr matches any single character.
type AnyExpr struct{}

type ClassRefExpr struct {
	Name string
	Pos  Position
}

type ConcatExpr struct {
	Items []Expr
}

type AltExpr struct {
	Items []Expr
}

// RepeatExpr repeats Operand between Min and Max times. A negative Max means
// no upper bound.
type RepeatExpr struct {
	Operand Expr
	Min     int
	Max     int
}

func (*CharExpr) expr()     {}
func (*StringExpr) expr()   {}
func (*SetExpr) expr()      {}
func (*AnyExpr) expr()      {}
func (*ClassRefExpr) expr() {}
func (*ConcatExpr) expr()   {}
func (*AltExpr) expr()      {}
func (*RepeatExpr) expr()   {}

type ClassDef struct {
	Name string
	Expr ClassExpr
	Pos  Position
}

type TokenDef struct {
	Name   string
	Ignore bool
	Expr   Expr
	Pos    Position
}

// Spec is the lexical part of a grammar. Tokens are listed in declaration
// order.
type Spec struct {
	Classes []*ClassDef
	Tokens  []*TokenDef
}

// Validate reports the definition errors that need no compilation.
func (s *Spec) Validate() []*CompileError {
	var errs []*CompileError
	if len(s.Tokens) == 0 {
		errs = append(errs, &CompileError{
			Cause: ErrNoTokens,
		})
	}

	classes := map[string]struct{}{}
	for _, c := range s.Classes {
		if _, ok := classes[c.Name]; ok {
			errs = append(errs, &CompileError{
				Kind:  c.Name,
				Cause: ErrDuplicateClass,
				Pos:   c.Pos,
			})
			continue
		}
		classes[c.Name] = struct{}{}
	}

	tokens := map[string]struct{}{}
	for _, t := range s.Tokens {
		if _, ok := tokens[t.Name]; ok {
			errs = append(errs, &CompileError{
				Kind:  t.Name,
				Cause: ErrDuplicateToken,
				Pos:   t.Pos,
			})
			continue
		}
		tokens[t.Name] = struct{}{}
		if t.Expr == nil {
			errs = append(errs, &CompileError{
				Kind:  t.Name,
				Cause: ErrEmptyToken,
				Pos:   t.Pos,
			})
		}
	}

	return errs
}

// String renders an expression in the grammar syntax.
func String(e Expr) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e Expr) {
	switch e := e.(type) {
	case *CharExpr:
		fmt.Fprintf(b, "%q", string(e.Char))
	case *StringExpr:
		fmt.Fprintf(b, "%q", e.Value)
	case *SetExpr:
		b.WriteString(e.Set.String())
	case *AnyExpr:
		b.WriteByte('.')
	case *ClassRefExpr:
		fmt.Fprintf(b, "{%v}", e.Name)
	case *ConcatExpr:
		b.WriteByte('(')
		for i, item := range e.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeExpr(b, item)
		}
		b.WriteByte(')')
	case *AltExpr:
		b.WriteByte('(')
		for i, item := range e.Items {
			if i > 0 {
				b.WriteString(" | ")
			}
			writeExpr(b, item)
		}
		b.WriteByte(')')
	case *RepeatExpr:
		writeExpr(b, e.Operand)
		switch {
		case e.Min == 0 && e.Max < 0:
			b.WriteByte('*')
		case e.Min == 1 && e.Max < 0:
			b.WriteByte('+')
		case e.Min == 0 && e.Max == 1:
			b.WriteByte('?')
		case e.Max < 0:
			fmt.Fprintf(b, "{%v,}", e.Min)
		case e.Min == e.Max:
			fmt.Fprintf(b, "{%v}", e.Min)
		default:
			fmt.Fprintf(b, "{%v,%v}", e.Min, e.Max)
		}
	default:
		fmt.Fprintf(b, "<%T>", e)
	}
}
