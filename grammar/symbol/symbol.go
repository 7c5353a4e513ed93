// Package symbol numbers the grammar symbols. Id 0 is the end of input,
// terminals follow in registration order, and non-terminals come last with
// the augmented start symbol first.
package symbol

import (
	"errors"
	"fmt"
)

type symbolKind string

const (
	symbolKindNonTerminal = symbolKind("non-terminal")
	symbolKindTerminal    = symbolKind("terminal")
)

func (t symbolKind) String() string {
	return string(t)
}

// Symbol is the id of a grammar symbol. It is also the column of the symbol
// in the action table.
type Symbol int

const (
	SymbolNil = Symbol(-1)
	SymbolEOF = Symbol(0)

	// NameEOF is not a valid identifier of the grammar language, so it never
	// collides with a user-defined symbol.
	NameEOF = "$"
)

func (s Symbol) Int() int {
	return int(s)
}

func (s Symbol) IsNil() bool {
	return s < 0
}

func (s Symbol) String() string {
	if s.IsNil() {
		return "<nil>"
	}
	return fmt.Sprintf("#%v", int(s))
}

var (
	ErrTerminalAfterNonTerminal = errors.New("terminals must be registered before non-terminals")
	ErrStartSymbolMissing       = errors.New("the start symbol must be the first non-terminal")
	ErrKindMismatch             = errors.New("a symbol cannot be both a terminal and a non-terminal")
)

type SymbolTable struct {
	text2Sym  map[string]Symbol
	texts     []string
	termCount int
	hasStart  bool
}

type SymbolTableWriter struct {
	*SymbolTable
}

type SymbolTableReader struct {
	*SymbolTable
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		text2Sym: map[string]Symbol{
			NameEOF: SymbolEOF,
		},
		texts: []string{
			NameEOF,
		},
		termCount: 1,
	}
}

func (t *SymbolTable) Writer() *SymbolTableWriter {
	return &SymbolTableWriter{
		SymbolTable: t,
	}
}

func (t *SymbolTable) Reader() *SymbolTableReader {
	return &SymbolTableReader{
		SymbolTable: t,
	}
}

func (t *SymbolTable) kindOf(sym Symbol) symbolKind {
	if sym.Int() < t.termCount {
		return symbolKindTerminal
	}
	return symbolKindNonTerminal
}

func (t *SymbolTable) add(text string) Symbol {
	sym := Symbol(len(t.texts))
	t.texts = append(t.texts, text)
	t.text2Sym[text] = sym
	return sym
}

// RegisterTerminalSymbol returns the symbol of text, registering it as a
// terminal when it is new.
func (w *SymbolTableWriter) RegisterTerminalSymbol(text string) (Symbol, error) {
	if sym, ok := w.text2Sym[text]; ok {
		if w.kindOf(sym) != symbolKindTerminal {
			return SymbolNil, fmt.Errorf("%w: %v", ErrKindMismatch, text)
		}
		return sym, nil
	}
	if w.hasStart {
		return SymbolNil, fmt.Errorf("%w: %v", ErrTerminalAfterNonTerminal, text)
	}
	w.termCount++
	return w.add(text), nil
}

// RegisterStartSymbol registers the augmented start symbol. It must be the
// first non-terminal.
func (w *SymbolTableWriter) RegisterStartSymbol(text string) (Symbol, error) {
	if w.hasStart {
		return SymbolNil, fmt.Errorf("the start symbol is already registered: %v", w.texts[w.termCount])
	}
	if _, ok := w.text2Sym[text]; ok {
		return SymbolNil, fmt.Errorf("%w: %v", ErrKindMismatch, text)
	}
	w.hasStart = true
	return w.add(text), nil
}

func (w *SymbolTableWriter) RegisterNonTerminalSymbol(text string) (Symbol, error) {
	if sym, ok := w.text2Sym[text]; ok {
		if w.kindOf(sym) != symbolKindNonTerminal {
			return SymbolNil, fmt.Errorf("%w: %v", ErrKindMismatch, text)
		}
		return sym, nil
	}
	if !w.hasStart {
		return SymbolNil, fmt.Errorf("%w: %v", ErrStartSymbolMissing, text)
	}
	return w.add(text), nil
}

func (r *SymbolTableReader) ToSymbol(text string) (Symbol, bool) {
	if sym, ok := r.text2Sym[text]; ok {
		return sym, true
	}
	return SymbolNil, false
}

func (r *SymbolTableReader) ToText(sym Symbol) (string, bool) {
	if sym.IsNil() || sym.Int() >= len(r.texts) {
		return "", false
	}
	return r.texts[sym], true
}

// Count returns the number of symbols, the width of the action table.
func (r *SymbolTableReader) Count() int {
	return len(r.texts)
}

// TerminalCount returns the number of terminals including the end of input.
func (r *SymbolTableReader) TerminalCount() int {
	return r.termCount
}

func (r *SymbolTableReader) IsTerminal(sym Symbol) bool {
	return !sym.IsNil() && sym.Int() < r.termCount
}

func (r *SymbolTableReader) IsNonTerminal(sym Symbol) bool {
	return sym.Int() >= r.termCount && sym.Int() < len(r.texts)
}

// StartSymbol returns the augmented start symbol.
func (r *SymbolTableReader) StartSymbol() (Symbol, bool) {
	if !r.hasStart {
		return SymbolNil, false
	}
	return Symbol(r.termCount), true
}

func (r *SymbolTableReader) IsStart(sym Symbol) bool {
	return r.hasStart && sym.Int() == r.termCount
}

// TerminalSymbols returns the terminals excluding the end of input.
func (r *SymbolTableReader) TerminalSymbols() []Symbol {
	syms := make([]Symbol, 0, r.termCount-1)
	for i := 1; i < r.termCount; i++ {
		syms = append(syms, Symbol(i))
	}
	return syms
}

// TerminalTexts returns the names of the terminals indexed by symbol. The
// first one is the end of input.
func (r *SymbolTableReader) TerminalTexts() ([]string, error) {
	if r.termCount == 1 {
		return nil, fmt.Errorf("symbol table has no terminals")
	}
	return append([]string{}, r.texts[:r.termCount]...), nil
}

func (r *SymbolTableReader) NonTerminalSymbols() []Symbol {
	syms := make([]Symbol, 0, len(r.texts)-r.termCount)
	for i := r.termCount; i < len(r.texts); i++ {
		syms = append(syms, Symbol(i))
	}
	return syms
}

// NonTerminalTexts returns the names of the non-terminals. The first one is
// the augmented start symbol.
func (r *SymbolTableReader) NonTerminalTexts() ([]string, error) {
	if !r.hasStart {
		return nil, fmt.Errorf("symbol table has no start symbol")
	}
	return append([]string{}, r.texts[r.termCount:]...), nil
}

// Describe returns the kind of sym for diagnostics.
func (r *SymbolTableReader) Describe(sym Symbol) string {
	text, ok := r.ToText(sym)
	if !ok {
		return sym.String()
	}
	return fmt.Sprintf("%v %v", r.kindOf(sym), text)
}
