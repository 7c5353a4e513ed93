package parser

import (
	"fmt"
	"strings"

	spec "github.com/nihei9/gramc/spec/grammar"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.driver")
}

type Grammar interface {
	// InitialState returns the initial state of a parser.
	InitialState() int

	// StartProduction returns the start production of grammar. Reducing it is the acceptance.
	StartProduction() int

	// Action returns an action value of the action table. See spec.DecodeAction for the encoding.
	Action(state int, terminal int) int

	// GoTo returns the next state of `state` on the non-terminal `lhs`.
	GoTo(state int, lhs int) int

	// AlternativeSymbolCount returns a symbol count of p production.
	AlternativeSymbolCount(prod int) int

	// TerminalCount returns a terminal symbol count of grammar.
	TerminalCount() int

	// SkipTerminal returns true when a terminal symbol must be skipped on syntax analysis.
	SkipTerminal(terminal int) bool

	// LHS returns the LHS symbol of a production.
	LHS(prod int) int

	// EOF returns the EOF symbol.
	EOF() int

	// Terminal retuns a string representaion of a terminal symbol.
	Terminal(terminal int) string

	// NonTerminal retuns a string representaion of a non-terminal symbol.
	NonTerminal(nonTerminal int) string

	// Attribute returns the `#name` attribute of a production, or an empty string.
	Attribute(prod int) string

	// ActionName returns the `@name` action of a production, or an empty string.
	ActionName(prod int) string
}

type VToken interface {
	// TerminalID returns a terminal ID.
	TerminalID() int

	// Lexeme returns a lexeme.
	Lexeme() []byte

	// EOF returns true when a token represents EOF.
	EOF() bool

	// Invalid returns true when a token is invalid.
	Invalid() bool

	// Position returns (row, column) pair.
	Position() (int, int)
}

type TokenStream interface {
	Next() (VToken, error)
}

type SyntaxError struct {
	Row               int
	Col               int
	Message           string
	Token             VToken
	ExpectedTerminals []string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v:%v: %v", e.Row+1, e.Col+1, e.Message)
	switch {
	case e.Token.EOF():
		b.WriteString(": <eof>")
	default:
		fmt.Fprintf(&b, ": %q", e.Token.Lexeme())
	}
	if len(e.ExpectedTerminals) > 0 {
		fmt.Fprintf(&b, "; expected: %v", strings.Join(e.ExpectedTerminals, ", "))
	}
	return b.String()
}

type ParserOption func(p *Parser) error

func SemanticAction(semAct SemanticActionSet) ParserOption {
	return func(p *Parser) error {
		p.semAct = semAct
		return nil
	}
}

// Parser is a table-driven LR parser. It stops at the first syntax error.
type Parser struct {
	toks       TokenStream
	gram       Grammar
	stateStack *stateStack
	semAct     SemanticActionSet
	synErrs    []*SyntaxError
}

func NewParser(toks TokenStream, gram Grammar, opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		toks:       toks,
		gram:       gram,
		stateStack: &stateStack{},
	}

	for _, opt := range opts {
		err := opt(p)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Parse runs the parser over the whole token stream. A syntax error is not
// returned as an error; SyntaxErrors reports it.
func (p *Parser) Parse() error {
	p.stateStack.push(p.gram.InitialState())
	tok, err := p.nextToken()
	if err != nil {
		return err
	}

	for {
		if tok.Invalid() {
			p.fail(tok, "invalid token")
			return nil
		}

		kind, n := spec.DecodeAction(p.lookupAction(tok))
		switch kind {
		case spec.ActionKindShift:
			tracer().Debugf("shift %v; state %v -> %v", p.gram.Terminal(tok.TerminalID()), p.stateStack.top(), n)
			p.stateStack.push(n)
			if p.semAct != nil {
				p.semAct.Shift(tok)
			}

			tok, err = p.nextToken()
			if err != nil {
				return err
			}
		case spec.ActionKindReduce:
			prodNum := n
			if prodNum == p.gram.StartProduction() {
				tracer().Debugf("accept")
				if p.semAct != nil {
					p.semAct.Accept()
				}
				return nil
			}

			p.reduce(prodNum)
			if p.semAct != nil {
				p.semAct.Reduce(prodNum)
			}
		default:
			p.fail(tok, "unexpected token")
			return nil
		}
	}
}

func (p *Parser) nextToken() (VToken, error) {
	for {
		tok, err := p.toks.Next()
		if err != nil {
			return nil, err
		}
		if !tok.EOF() && !tok.Invalid() && p.gram.SkipTerminal(tok.TerminalID()) {
			continue
		}

		return tok, nil
	}
}

func (p *Parser) lookupAction(tok VToken) int {
	term := tok.TerminalID()
	if tok.EOF() {
		term = p.gram.EOF()
	}
	return p.gram.Action(p.stateStack.top(), term)
}

func (p *Parser) reduce(prodNum int) {
	lhs := p.gram.LHS(prodNum)
	n := p.gram.AlternativeSymbolCount(prodNum)
	p.stateStack.pop(n)
	next := p.gram.GoTo(p.stateStack.top(), lhs)
	tracer().Debugf("reduce %v (%v symbols); goto %v", p.gram.NonTerminal(lhs), n, next)
	p.stateStack.push(next)
}

func (p *Parser) fail(tok VToken, msg string) {
	row, col := tok.Position()
	synErr := &SyntaxError{
		Row:               row,
		Col:               col,
		Message:           msg,
		Token:             tok,
		ExpectedTerminals: p.searchLookahead(p.stateStack.top()),
	}
	tracer().Infof("syntax error: %v", synErr)
	p.synErrs = append(p.synErrs, synErr)
	if p.semAct != nil {
		p.semAct.MissError(tok)
	}
}

func (p *Parser) SyntaxErrors() []*SyntaxError {
	return p.synErrs
}

// searchLookahead lists the terminals state has an action on, in symbol
// order. The end of input is written as <eof>.
func (p *Parser) searchLookahead(state int) []string {
	kinds := []string{}
	for term := 0; term < p.gram.TerminalCount(); term++ {
		if p.gram.Action(state, term) == spec.ActionError {
			continue
		}

		if term == p.gram.EOF() {
			kinds = append(kinds, "<eof>")
			continue
		}

		kinds = append(kinds, p.gram.Terminal(term))
	}

	return kinds
}

type stateStack struct {
	items []int
}

func (s *stateStack) top() int {
	return s.items[len(s.items)-1]
}

func (s *stateStack) push(state int) {
	s.items = append(s.items, state)
}

func (s *stateStack) pop(n int) {
	s.items = s.items[:len(s.items)-n]
}
