package grammar

import (
	"testing"

	"github.com/nihei9/gramc/grammar/symbol"
	"github.com/nihei9/gramc/spec/grammar/parser"
)

type testSymbolGenerator func(text string) symbol.Symbol

func newTestSymbolGenerator(t *testing.T, symTab *symbol.SymbolTableReader) testSymbolGenerator {
	return func(text string) symbol.Symbol {
		t.Helper()

		sym, ok := symTab.ToSymbol(text)
		if !ok {
			t.Fatalf("symbol was not found: %v", text)
		}
		return sym
	}
}

func buildGrammar(t *testing.T, src string) *Grammar {
	t.Helper()

	ast, err := parser.ParseString("test.gram", src)
	if err != nil {
		t.Fatal(err)
	}
	b := GrammarBuilder{
		AST: ast,
	}
	gram, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return gram
}

// findRule returns the number of the production lhs → rhs.
func findRule(t *testing.T, gram *Grammar, lhs string, rhs ...string) int {
	t.Helper()

	genSym := newTestSymbolGenerator(t, gram.symbolTable.Reader())
	lhsSym := genSym(lhs)
	prods, _ := gram.productionSet.findByLHS(lhsSym)
	for _, p := range prods {
		if len(p.rhs) != len(rhs) {
			continue
		}
		match := true
		for i, text := range rhs {
			if p.rhs[i] != genSym(text) {
				match = false
				break
			}
		}
		if match {
			return p.num
		}
	}
	t.Fatalf("production was not found: %v → %v", lhs, rhs)
	return -1
}
