package parser

import spec "github.com/nihei9/gramc/spec/grammar"

type grammarImpl struct {
	g *spec.CompiledGrammar
}

func NewGrammar(g *spec.CompiledGrammar) *grammarImpl {
	return &grammarImpl{
		g: g,
	}
}

func (g *grammarImpl) InitialState() int {
	return 0
}

func (g *grammarImpl) StartProduction() int {
	return g.g.Syntactic.StartRule
}

func (g *grammarImpl) Action(state int, terminal int) int {
	return g.g.Syntactic.Action[state][terminal]
}

// GoTo shares the action table; the columns of non-terminals hold the next
// states.
func (g *grammarImpl) GoTo(state int, lhs int) int {
	return g.g.Syntactic.Action[state][lhs]
}

func (g *grammarImpl) AlternativeSymbolCount(prod int) int {
	return len(g.g.Syntactic.Rules[prod].RHS)
}

func (g *grammarImpl) TerminalCount() int {
	return len(g.g.Syntactic.Terminals)
}

func (g *grammarImpl) SkipTerminal(terminal int) bool {
	return g.g.Lexical.Skip[terminal]
}

func (g *grammarImpl) LHS(prod int) int {
	return g.g.Syntactic.Rules[prod].LHS
}

func (g *grammarImpl) EOF() int {
	return spec.KindNil
}

func (g *grammarImpl) Terminal(terminal int) string {
	return g.g.Syntactic.Terminals[terminal]
}

func (g *grammarImpl) NonTerminal(nonTerminal int) string {
	return g.g.Syntactic.SymbolName(nonTerminal)
}

func (g *grammarImpl) Attribute(prod int) string {
	return g.g.Syntactic.Rules[prod].Attribute
}

func (g *grammarImpl) ActionName(prod int) string {
	return g.g.Syntactic.Rules[prod].Action
}
