// Package parser reads the grammar description language. A description
// declares character classes, tokens and productions:
//
//	%name calc;
//	%start expr;
//
//	class digit = [0-9];
//	token num = {digit}+;
//	ignore token ws = [ \t\n]+;
//
//	expr : expr "+" term #add | term ;
//	term : num ;
//
//	%conflict 4 "+" shift;
package parser

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	verr "github.com/nihei9/gramc/error"
	"github.com/nihei9/gramc/grammar/lexical"
	"github.com/nihei9/gramc/grammar/lexical/matchset"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.parser")
}

type RootNode struct {
	Name        string
	Start       string
	StartPos    lexical.Position
	Classes     []*lexical.ClassDef
	Tokens      []*lexical.TokenDef
	Productions []*ProductionNode
	Conflicts   []*ConflictNode
}

type ProductionNode struct {
	LHS string
	RHS []*AlternativeNode
	Pos lexical.Position
}

type AlternativeNode struct {
	Elements  []*ElementNode
	Attribute string
	Action    string
	Pos       lexical.Position
}

// ElementNode is a symbol of an alternative. A string literal keeps its
// unquoted value in Literal.
type ElementNode struct {
	ID        string
	Literal   string
	IsLiteral bool
	Pos       lexical.Position
}

// Name returns the name the element has in the symbol table.
func (e *ElementNode) Name() string {
	if e.IsLiteral {
		return LiteralName(e.Literal)
	}
	return e.ID
}

// ConflictNode overrides the action of one cell of the parsing table. Target
// -1 picks the only candidate of the given action.
type ConflictNode struct {
	State  int
	Symbol string
	Action string
	Target int
	Pos    lexical.Position
}

// LiteralName is the terminal name of a string literal used in productions.
func LiteralName(lit string) string {
	return strconv.Quote(lit)
}

var gramLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Directive", Pattern: `%[a-z_]+`},
	{Name: "Attr", Pattern: `#[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Action", Pattern: `@[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\\n])*"`},
	{Name: "Set", Pattern: `\[(\\.|[^\]\\\n])*\]`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[:;|=(){}*+?.,&~$\-]`},
})

type gramFile struct {
	Decls []*gramDecl `parser:"@@*"`
}

type gramDecl struct {
	Directive  *gramDirective  `parser:"  @@"`
	Class      *gramClass      `parser:"| @@"`
	Token      *gramToken      `parser:"| @@"`
	Production *gramProduction `parser:"| @@"`
}

type gramDirective struct {
	Pos    lexer.Position
	Name   string       `parser:"@Directive"`
	Params []*gramParam `parser:"@@* ';'"`
}

type gramParam struct {
	Pos    lexer.Position
	Int    *int    `parser:"  @('-'? Int)"`
	ID     *string `parser:"| @(Ident | '$')"`
	String *string `parser:"| @String"`
}

type gramClass struct {
	Pos  lexer.Position
	Name string         `parser:"'class' @Ident '='"`
	Expr *gramClassExpr `parser:"@@ ';'"`
}

type gramClassExpr struct {
	Terms []*gramClassTerm `parser:"@@ ('|' @@)*"`
}

type gramClassTerm struct {
	Head *gramClassFactor `parser:"@@"`
	Ops  []*gramClassOp   `parser:"@@*"`
}

type gramClassOp struct {
	Op      string           `parser:"@('-' | '&')"`
	Operand *gramClassFactor `parser:"@@"`
}

type gramClassFactor struct {
	Pos    lexer.Position
	Invert bool           `parser:"@'~'?"`
	Set    *string        `parser:"( @Set"`
	Ref    *string        `parser:"| @Ident"`
	String *string        `parser:"| @String"`
	Group  *gramClassExpr `parser:"| '(' @@ ')' )"`
}

type gramToken struct {
	Pos    lexer.Position
	Ignore bool     `parser:"@'ignore'?"`
	Name   string   `parser:"'token' @Ident '='"`
	Expr   *gramAlt `parser:"@@ ';'"`
}

type gramAlt struct {
	Seqs []*gramSeq `parser:"@@ ('|' @@)*"`
}

type gramSeq struct {
	Items []*gramRepeat `parser:"@@+"`
}

type gramRepeat struct {
	Pos   lexer.Position
	Atom  *gramAtom    `parser:"@@"`
	Quant []*gramQuant `parser:"@@*"`
}

type gramQuant struct {
	Pos   lexer.Position
	Op    string `parser:"  @('*' | '+' | '?')"`
	Min   *int   `parser:"| '{' @Int"`
	Comma bool   `parser:"  @','?"`
	Max   *int   `parser:"  @Int? '}'"`
}

type gramAtom struct {
	Pos    lexer.Position
	String *string  `parser:"  @String"`
	Set    *string  `parser:"| @Set"`
	Any    bool     `parser:"| @'.'"`
	Class  *string  `parser:"| '{' @Ident '}'"`
	Group  *gramAlt `parser:"| '(' @@ ')'"`
}

type gramProduction struct {
	Pos   lexer.Position
	LHS   string         `parser:"@Ident ':'"`
	Items []*gramRHSItem `parser:"@@* ';'"`
}

// gramRHSItem is one item of a production body. Alternatives are split at
// the bars after parsing so that empty alternatives need no marker.
type gramRHSItem struct {
	Pos    lexer.Position
	Bar    bool    `parser:"  @'|'"`
	ID     *string `parser:"| @Ident"`
	String *string `parser:"| @String"`
	Attr   *string `parser:"| @Attr"`
	Action *string `parser:"| @Action"`
}

var gramParser = participle.MustBuild[gramFile](
	participle.Lexer(gramLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(4),
)

// Parse reads a grammar description. filename only decorates positions of
// errors. A syntax error is a *verr.SpecError; errors found while lowering
// the parse tree are collected into verr.SpecErrors.
func Parse(filename string, src io.Reader) (*RootNode, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("cannot read %v: %w", filename, err)
	}
	return ParseString(filename, string(b))
}

func ParseString(filename string, src string) (*RootNode, error) {
	file, err := gramParser.ParseString(filename, src)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			pos := perr.Position()
			cause := error(synErrUnexpectedToken)
			if _, ok := err.(*lexer.Error); ok {
				cause = synErrInvalidToken
			}
			return nil, &verr.SpecError{
				Cause:      cause,
				Detail:     perr.Message(),
				FilePath:   filename,
				SourceName: filename,
				Row:        pos.Line,
				Col:        pos.Column,
			}
		}
		return nil, err
	}

	l := &lowering{
		filename: filename,
	}
	root := l.file(file)
	if len(l.errs) > 0 {
		l.errs.Sort()
		return nil, l.errs
	}
	tracer().Debugf("%v: %v classes, %v tokens, %v productions", filename, len(root.Classes), len(root.Tokens), len(root.Productions))
	return root, nil
}

type lowering struct {
	filename string
	errs     verr.SpecErrors
}

func toPos(p lexer.Position) lexical.Position {
	return lexical.Position{
		Row: p.Line,
		Col: p.Column,
	}
}

func (l *lowering) fail(cause error, detail string, pos lexer.Position) {
	l.errs = append(l.errs, &verr.SpecError{
		Cause:      cause,
		Detail:     detail,
		FilePath:   l.filename,
		SourceName: l.filename,
		Row:        pos.Line,
		Col:        pos.Column,
	})
}

func (l *lowering) file(f *gramFile) *RootNode {
	root := &RootNode{}
	seen := map[string]bool{}
	for _, d := range f.Decls {
		switch {
		case d.Directive != nil:
			l.directive(root, d.Directive, seen)
		case d.Class != nil:
			root.Classes = append(root.Classes, &lexical.ClassDef{
				Name: d.Class.Name,
				Expr: l.classExpr(d.Class.Expr),
				Pos:  toPos(d.Class.Pos),
			})
		case d.Token != nil:
			root.Tokens = append(root.Tokens, &lexical.TokenDef{
				Name:   d.Token.Name,
				Ignore: d.Token.Ignore,
				Expr:   l.alt(d.Token.Expr),
				Pos:    toPos(d.Token.Pos),
			})
		case d.Production != nil:
			root.Productions = append(root.Productions, l.production(d.Production))
		}
	}
	return root
}

func (l *lowering) directive(root *RootNode, d *gramDirective, seen map[string]bool) {
	name := strings.TrimPrefix(d.Name, "%")
	single := func() (string, bool) {
		if len(d.Params) != 1 || d.Params[0].ID == nil {
			l.fail(synErrDirInvalidParam, fmt.Sprintf("%%%v takes one identifier", name), d.Pos)
			return "", false
		}
		if seen[name] {
			l.fail(synErrDuplicateDirective, "%"+name, d.Pos)
			return "", false
		}
		seen[name] = true
		return *d.Params[0].ID, true
	}
	switch name {
	case "name":
		if v, ok := single(); ok {
			root.Name = v
		}
	case "start":
		if v, ok := single(); ok {
			root.Start = v
			root.StartPos = toPos(d.Params[0].Pos)
		}
	case "conflict":
		if c, ok := l.conflict(d); ok {
			root.Conflicts = append(root.Conflicts, c)
		}
	default:
		l.fail(synErrUnknownDirective, d.Name, d.Pos)
	}
}

// conflict lowers `%conflict state symbol shift|reduce [target];`.
func (l *lowering) conflict(d *gramDirective) (*ConflictNode, bool) {
	ps := d.Params
	usage := "%conflict <state> <symbol> shift|reduce [<target>]"
	if len(ps) < 3 || len(ps) > 4 || ps[0].Int == nil || ps[2].ID == nil {
		l.fail(synErrDirInvalidParam, usage, d.Pos)
		return nil, false
	}
	c := &ConflictNode{
		State:  *ps[0].Int,
		Action: *ps[2].ID,
		Target: -1,
		Pos:    toPos(d.Pos),
	}
	switch {
	case ps[1].ID != nil:
		c.Symbol = *ps[1].ID
	case ps[1].String != nil:
		c.Symbol = LiteralName(*ps[1].String)
	default:
		l.fail(synErrDirInvalidParam, usage, ps[1].Pos)
		return nil, false
	}
	if c.Action != "shift" && c.Action != "reduce" {
		l.fail(synErrDirInvalidParam, usage, ps[2].Pos)
		return nil, false
	}
	if len(ps) == 4 {
		if ps[3].Int == nil || *ps[3].Int < -1 {
			l.fail(synErrDirInvalidParam, usage, ps[3].Pos)
			return nil, false
		}
		c.Target = *ps[3].Int
	}
	return c, true
}

func (l *lowering) classExpr(e *gramClassExpr) lexical.ClassExpr {
	var x lexical.ClassExpr
	for _, t := range e.Terms {
		y := l.classTerm(t)
		if x == nil {
			x = y
			continue
		}
		x = &lexical.ClassUnion{Left: x, Right: y}
	}
	return x
}

func (l *lowering) classTerm(t *gramClassTerm) lexical.ClassExpr {
	x := l.classFactor(t.Head)
	for _, op := range t.Ops {
		y := l.classFactor(op.Operand)
		switch op.Op {
		case "-":
			x = &lexical.ClassDiff{Left: x, Right: y}
		case "&":
			x = &lexical.ClassIntersect{Left: x, Right: y}
		}
	}
	return x
}

func (l *lowering) classFactor(f *gramClassFactor) lexical.ClassExpr {
	var x lexical.ClassExpr
	switch {
	case f.Set != nil:
		set, err := parseSet(*f.Set)
		if err != nil {
			l.fail(err, *f.Set, f.Pos)
		}
		x = &lexical.ClassSet{Set: set}
	case f.Ref != nil:
		x = &lexical.ClassRef{Name: *f.Ref, Pos: toPos(f.Pos)}
	case f.String != nil:
		x = &lexical.ClassSet{Set: l.runes(*f.String, f.Pos)}
	case f.Group != nil:
		x = l.classExpr(f.Group)
	}
	if f.Invert {
		x = &lexical.ClassInvert{Operand: x}
	}
	return x
}

func (l *lowering) runes(s string, pos lexer.Position) matchset.Set {
	if s == "" {
		l.fail(synErrEmptyString, "", pos)
		return matchset.Empty
	}
	var rs []rune
	for _, r := range s {
		if !matchset.InRange(r) {
			l.fail(synErrCharOutOfRange, fmt.Sprintf("%U", r), pos)
			return matchset.Empty
		}
		rs = append(rs, r)
	}
	return matchset.FromRunes(rs...)
}

func (l *lowering) alt(a *gramAlt) lexical.Expr {
	if len(a.Seqs) == 1 {
		return l.seq(a.Seqs[0])
	}
	x := &lexical.AltExpr{}
	for _, s := range a.Seqs {
		x.Items = append(x.Items, l.seq(s))
	}
	return x
}

func (l *lowering) seq(s *gramSeq) lexical.Expr {
	if len(s.Items) == 1 {
		return l.repeat(s.Items[0])
	}
	x := &lexical.ConcatExpr{}
	for _, r := range s.Items {
		x.Items = append(x.Items, l.repeat(r))
	}
	return x
}

func (l *lowering) repeat(r *gramRepeat) lexical.Expr {
	x := l.atom(r.Atom)
	for _, q := range r.Quant {
		min, max := 0, -1
		switch q.Op {
		case "*":
		case "+":
			min = 1
		case "?":
			max = 1
		default:
			min = *q.Min
			switch {
			case q.Max != nil:
				max = *q.Max
			case !q.Comma:
				max = min
			}
			if max >= 0 && max < min {
				l.fail(synErrInvalidRepeat, fmt.Sprintf("{%v,%v}", min, max), q.Pos)
			}
		}
		x = &lexical.RepeatExpr{Operand: x, Min: min, Max: max}
	}
	return x
}

func (l *lowering) atom(a *gramAtom) lexical.Expr {
	switch {
	case a.String != nil:
		if *a.String == "" {
			l.fail(synErrEmptyString, "", a.Pos)
		}
		return &lexical.StringExpr{Value: *a.String}
	case a.Set != nil:
		set, err := parseSet(*a.Set)
		if err != nil {
			l.fail(err, *a.Set, a.Pos)
		}
		return &lexical.SetExpr{Set: set}
	case a.Any:
		return &lexical.AnyExpr{}
	case a.Class != nil:
		return &lexical.ClassRefExpr{Name: *a.Class, Pos: toPos(a.Pos)}
	case a.Group != nil:
		return l.alt(a.Group)
	}
	return &lexical.ConcatExpr{}
}

func (l *lowering) production(p *gramProduction) *ProductionNode {
	prod := &ProductionNode{
		LHS: p.LHS,
		Pos: toPos(p.Pos),
	}
	alt := &AlternativeNode{
		Pos: toPos(p.Pos),
	}
	closed := false
	for _, item := range p.Items {
		switch {
		case item.Bar:
			prod.RHS = append(prod.RHS, alt)
			alt = &AlternativeNode{
				Pos: toPos(item.Pos),
			}
			closed = false
		case item.Attr != nil:
			if alt.Attribute != "" {
				l.fail(synErrAltDuplicateMarker, *item.Attr, item.Pos)
			}
			alt.Attribute = strings.TrimPrefix(*item.Attr, "#")
			closed = true
		case item.Action != nil:
			if alt.Action != "" {
				l.fail(synErrAltDuplicateMarker, *item.Action, item.Pos)
			}
			alt.Action = strings.TrimPrefix(*item.Action, "@")
			closed = true
		default:
			if closed {
				l.fail(synErrAltTrailer, "", item.Pos)
			}
			elem := &ElementNode{
				Pos: toPos(item.Pos),
			}
			if item.ID != nil {
				elem.ID = *item.ID
			} else {
				if *item.String == "" {
					l.fail(synErrEmptyString, "", item.Pos)
				}
				elem.Literal = *item.String
				elem.IsLiteral = true
			}
			if len(alt.Elements) == 0 {
				alt.Pos = elem.Pos
			}
			alt.Elements = append(alt.Elements, elem)
		}
	}
	prod.RHS = append(prod.RHS, alt)
	return prod
}
