// Package lexical compiles the character classes and token definitions of a
// grammar into a minimal scanner automaton and its char map.
package lexical

import (
	"errors"
	"fmt"

	"github.com/nihei9/gramc/compressor"
	"github.com/nihei9/gramc/grammar/lexical/dfa"
	"github.com/nihei9/gramc/grammar/lexical/matchset"
	"github.com/nihei9/gramc/grammar/lexical/nfa"
	"github.com/nihei9/gramc/grammar/symbol"
	spec "github.com/nihei9/gramc/spec/grammar"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.lexical")
}

var (
	ErrNoTokens           = errors.New("the lexical specification must have at least one token")
	ErrDuplicateClass     = errors.New("duplicate character class")
	ErrDuplicateToken     = errors.New("duplicate token")
	ErrUndefinedClass     = errors.New("undefined character class")
	ErrCyclicClass        = errors.New("character class refers to itself")
	ErrEmptyToken         = errors.New("token has no pattern")
	ErrMatchesEmptyString = errors.New("token matches the empty string")
	ErrUnknownKind        = errors.New("token is not a terminal symbol")
)

// CompileError is a definition error of a class or a token. Kind names the
// class or the token.
type CompileError struct {
	Kind   string
	Cause  error
	Detail string
	Pos    Position
}

func (e *CompileError) Error() string {
	msg := e.Cause.Error()
	if e.Kind != "" {
		msg = fmt.Sprintf("%v: %v", e.Kind, msg)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%v: %v", msg, e.Detail)
	}
	return msg
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

const (
	CompressionLevelMin = 0
	CompressionLevelMax = 1
)

type compilerConfig struct {
	compLv int
}

type CompilerOption func(config *compilerConfig) error

// CompressionLevel selects the transition table format. Level 0 keeps the
// dense table and level 1 compresses it by row displacement.
func CompressionLevel(lv int) CompilerOption {
	return func(config *compilerConfig) error {
		if lv < CompressionLevelMin || lv > CompressionLevelMax {
			return fmt.Errorf("compression level must be %v to %v", CompressionLevelMin, CompressionLevelMax)
		}
		config.compLv = lv
		return nil
	}
}

// Compile builds the scanner of lexspec. The kind of a token is its terminal
// symbol in symbols, so tokens registered earlier win ties on the same
// lexeme. Definition errors are returned as the third value; the second one
// reports failures that are not the grammar author's.
func Compile(lexspec *Spec, symbols *symbol.SymbolTableReader, opts ...CompilerOption) (*spec.LexicalSpec, error, []*CompileError) {
	config := &compilerConfig{}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err, nil
		}
	}

	if cerrs := lexspec.Validate(); len(cerrs) > 0 {
		return nil, fmt.Errorf("invalid lexical specification"), cerrs
	}

	classes, cerrs := evalClasses(lexspec.Classes)
	if len(cerrs) > 0 {
		return nil, fmt.Errorf("invalid character classes"), cerrs
	}

	m, cerrs := buildMachine(lexspec.Tokens, classes, symbols)
	if len(cerrs) > 0 {
		return nil, fmt.Errorf("invalid tokens"), cerrs
	}

	d := dfa.Build(m)
	d.RemoveUnreachable()
	merged := d.Minimize()
	tracer().Debugf("scanner: %v states (%v merged), %v classes", len(d.States), merged, d.ClassCount())

	if acc := d.States[0].Accept; acc != spec.KindNil {
		name, _ := symbols.ToText(symbol.Symbol(acc))
		return nil, fmt.Errorf("invalid tokens"), []*CompileError{
			{
				Kind:  name,
				Cause: ErrMatchesEmptyString,
				Pos:   tokenPos(lexspec.Tokens, name),
			},
		}
	}

	charMap, err := genCharMap(m.Matches())
	if err != nil {
		return nil, err, nil
	}
	tranTab, err := genTransitionTable(d, config.compLv)
	if err != nil {
		return nil, err, nil
	}

	kindNames, err := symbols.TerminalTexts()
	if err != nil {
		return nil, err, nil
	}
	skip := make([]bool, len(kindNames))
	for _, t := range m.Tokens() {
		skip[t.ID] = t.Ignore
	}
	classNames := make([]string, m.Matches().Len())
	for c := range classNames {
		classNames[c] = m.Matches().Set(nfa.ClassID(c)).String()
	}

	return &spec.LexicalSpec{
		KindNames:        kindNames,
		Skip:             skip,
		ClassCount:       m.Matches().Len(),
		Classes:          classNames,
		CharMap:          charMap,
		DFA:              tranTab,
		CompressionLevel: config.compLv,
	}, nil, nil
}

func tokenPos(tokens []*TokenDef, name string) Position {
	for _, t := range tokens {
		if t.Name == name {
			return t.Pos
		}
	}
	return Position{}
}

type classEvaluator struct {
	defs   map[string]*ClassDef
	sets   map[string]matchset.Set
	active map[string]bool
	errs   []*CompileError
}

// evalClasses resolves every class definition to its match set. References
// may point forward; cycles and unknown names are errors.
func evalClasses(defs []*ClassDef) (map[string]matchset.Set, []*CompileError) {
	e := &classEvaluator{
		defs:   map[string]*ClassDef{},
		sets:   map[string]matchset.Set{},
		active: map[string]bool{},
	}
	for _, d := range defs {
		e.defs[d.Name] = d
	}
	for _, d := range defs {
		e.resolve(d.Name, d.Pos)
	}
	return e.sets, e.errs
}

var errReported = errors.New("reported")

func (e *classEvaluator) resolve(name string, pos Position) (matchset.Set, error) {
	if s, ok := e.sets[name]; ok {
		return s, nil
	}
	d, ok := e.defs[name]
	if !ok {
		e.errs = append(e.errs, &CompileError{
			Kind:  name,
			Cause: ErrUndefinedClass,
			Pos:   pos,
		})
		return matchset.Empty, errReported
	}
	if e.active[name] {
		e.errs = append(e.errs, &CompileError{
			Kind:  name,
			Cause: ErrCyclicClass,
			Pos:   d.Pos,
		})
		return matchset.Empty, errReported
	}
	e.active[name] = true
	s, err := e.eval(d.Expr)
	delete(e.active, name)
	if err != nil {
		// Unresolvable classes stay unset so each one is reported once.
		e.defs[name] = &ClassDef{Name: name, Expr: &ClassSet{Set: matchset.Empty}, Pos: d.Pos}
		return matchset.Empty, err
	}
	e.sets[name] = s
	tracer().Debugf("class %v = %v", name, s)
	return s, nil
}

func (e *classEvaluator) eval(x ClassExpr) (matchset.Set, error) {
	switch x := x.(type) {
	case *ClassSet:
		return x.Set, nil
	case *ClassRef:
		return e.resolve(x.Name, x.Pos)
	case *ClassUnion, *ClassDiff, *ClassIntersect:
		var l, r ClassExpr
		switch x := x.(type) {
		case *ClassUnion:
			l, r = x.Left, x.Right
		case *ClassDiff:
			l, r = x.Left, x.Right
		case *ClassIntersect:
			l, r = x.Left, x.Right
		}
		a, errL := e.eval(l)
		b, errR := e.eval(r)
		if errL != nil {
			return matchset.Empty, errL
		}
		if errR != nil {
			return matchset.Empty, errR
		}
		switch x.(type) {
		case *ClassUnion:
			return a.Union(b), nil
		case *ClassDiff:
			return a.Difference(b), nil
		}
		return a.Intersect(b), nil
	case *ClassInvert:
		a, err := e.eval(x.Operand)
		if err != nil {
			return matchset.Empty, err
		}
		return a.Invert(), nil
	}
	panic(fmt.Sprintf("lexical: unknown class expression %T", x))
}

type machineBuilder struct {
	m       *nfa.Machine
	classes map[string]matchset.Set
	token   *TokenDef
	errs    []*CompileError
}

func buildMachine(tokens []*TokenDef, classes map[string]matchset.Set, symbols *symbol.SymbolTableReader) (*nfa.Machine, []*CompileError) {
	b := &machineBuilder{
		m:       nfa.NewMachine(),
		classes: classes,
	}
	for _, t := range tokens {
		sym, ok := symbols.ToSymbol(t.Name)
		if !ok || !symbols.IsTerminal(sym) || sym == symbol.SymbolEOF {
			b.errs = append(b.errs, &CompileError{
				Kind:  t.Name,
				Cause: ErrUnknownKind,
				Pos:   t.Pos,
			})
			continue
		}
		b.token = t
		g, ok := b.build(t.Expr)
		if !ok {
			continue
		}
		if err := b.m.AddToken(sym.Int(), t.Name, t.Ignore, g); err != nil {
			b.errs = append(b.errs, &CompileError{
				Kind:  t.Name,
				Cause: err,
				Pos:   t.Pos,
			})
		}
	}
	return b.m, b.errs
}

func (b *machineBuilder) fail(cause error, detail string, pos Position) {
	if pos == (Position{}) {
		pos = b.token.Pos
	}
	b.errs = append(b.errs, &CompileError{
		Kind:   b.token.Name,
		Cause:  cause,
		Detail: detail,
		Pos:    pos,
	})
}

func (b *machineBuilder) build(x Expr) (nfa.Graph, bool) {
	m := b.m
	switch x := x.(type) {
	case *CharExpr:
		if !matchset.InRange(x.Char) {
			b.fail(nfa.ErrCharOutOfRange, fmt.Sprintf("%U", x.Char), Position{})
			return nfa.Graph{}, false
		}
		return m.Match(matchset.Single(x.Char)), true
	case *StringExpr:
		g, err := m.Literal(x.Value)
		if err != nil {
			b.fail(err, "", Position{})
			return nfa.Graph{}, false
		}
		return g, true
	case *SetExpr:
		return m.Match(x.Set), true
	case *AnyExpr:
		return m.Match(matchset.All), true
	case *ClassRefExpr:
		s, ok := b.classes[x.Name]
		if !ok {
			b.fail(ErrUndefinedClass, x.Name, x.Pos)
			return nfa.Graph{}, false
		}
		return m.Match(s), true
	case *ConcatExpr:
		if len(x.Items) == 0 {
			return m.Epsilon(), true
		}
		var g nfa.Graph
		ok := true
		for i, item := range x.Items {
			h, hok := b.build(item)
			if !hok {
				ok = false
				continue
			}
			if !ok {
				continue
			}
			if i == 0 {
				g = h
			} else {
				g = m.Concat(g, h)
			}
		}
		return g, ok
	case *AltExpr:
		if len(x.Items) == 0 {
			return m.Epsilon(), true
		}
		var g nfa.Graph
		ok := true
		for i, item := range x.Items {
			h, hok := b.build(item)
			if !hok {
				ok = false
				continue
			}
			if !ok {
				continue
			}
			if i == 0 {
				g = h
			} else {
				g = m.Union(g, h)
			}
		}
		return g, ok
	case *RepeatExpr:
		g, ok := b.build(x.Operand)
		if !ok {
			return nfa.Graph{}, false
		}
		switch {
		case x.Min == 0 && x.Max < 0:
			return m.Star(g), true
		case x.Min == 1 && x.Max < 0:
			return m.Plus(g), true
		case x.Min == 0 && x.Max == 1:
			return m.Question(g), true
		}
		r, err := m.Repeat(g, x.Min, x.Max)
		if err != nil {
			b.fail(err, "", Position{})
			return nfa.Graph{}, false
		}
		return r, true
	}
	panic(fmt.Sprintf("lexical: unknown token expression %T", x))
}

// genCharMap lays the classes out on a 256x256 table indexed by the high and
// the low byte of a character.
func genCharMap(ms *nfa.Matches) (*compressor.UniqueEntriesTable, error) {
	entries := make([]int, spec.CharMapRowCount*spec.CharMapColCount)
	for c := 0; c < ms.Len(); c++ {
		for _, r := range ms.Set(nfa.ClassID(c)).Ranges() {
			for ch := r.From; ch <= r.To; ch++ {
				entries[ch] = c + 1
			}
		}
	}
	orig, err := compressor.NewOriginalTable(entries, spec.CharMapColCount)
	if err != nil {
		return nil, err
	}
	tab := compressor.NewUniqueEntriesTable()
	if err := tab.Compress(orig); err != nil {
		return nil, err
	}
	tracer().Debugf("char map: %v unique rows", tab.UniqueRowCount())
	return tab, nil
}

func genTransitionTable(d *dfa.DFA, compLv int) (*spec.TransitionTable, error) {
	rows := d.Table()
	tab := &spec.TransitionTable{
		RowCount: len(rows),
		ColCount: d.ClassCount() + 1,
	}
	if compLv == 0 {
		tab.Table = rows
		return tab, nil
	}
	orig, err := compressor.FromRows(rows)
	if err != nil {
		return nil, err
	}
	rd := compressor.NewRowDisplacementTable(spec.StateNil)
	if err := rd.Compress(orig); err != nil {
		return nil, err
	}
	tab.Compressed = rd
	return tab, nil
}
