package grammar

import (
	"fmt"

	"github.com/cnf/structhash"
	verr "github.com/nihei9/gramc/error"
	"github.com/nihei9/gramc/grammar/lexical"
	"github.com/nihei9/gramc/grammar/symbol"
	spec "github.com/nihei9/gramc/spec/grammar"
	"github.com/nihei9/gramc/spec/grammar/parser"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.grammar")
}

type Grammar struct {
	name                 string
	filename             string
	lexSpec              *lexical.Spec
	symbolTable          *symbol.SymbolTable
	productionSet        *productionSet
	augmentedStartSymbol symbol.Symbol
	overrides            []*override

	// anonymous marks terminals made from string literals in productions.
	anonymous map[symbol.Symbol]bool
	patterns  map[symbol.Symbol]string
	skip      map[symbol.Symbol]bool

	warnings []string
}

// Warnings lists the recoverable problems found by the build, such as
// removed unreachable productions.
func (g *Grammar) Warnings() []string {
	return g.warnings
}

// GrammarBuilder turns the tree of a grammar description into a Grammar.
// FilePath only decorates errors.
type GrammarBuilder struct {
	AST      *parser.RootNode
	FilePath string

	errs verr.SpecErrors
}

func (b *GrammarBuilder) fail(cause error, detail string, pos lexical.Position) {
	b.errs = append(b.errs, &verr.SpecError{
		Cause:      cause,
		Detail:     detail,
		FilePath:   b.FilePath,
		SourceName: b.FilePath,
		Row:        pos.Row,
		Col:        pos.Col,
	})
}

func (b *GrammarBuilder) Build() (*Grammar, error) {
	root := b.AST

	tokens := map[string]*lexical.TokenDef{}
	for _, t := range root.Tokens {
		if _, ok := tokens[t.Name]; !ok {
			tokens[t.Name] = t
		}
	}

	// Productions sharing a LHS are merged in the order of appearance.
	var lhsOrder []string
	lhs2Prods := map[string][]*parser.ProductionNode{}
	for _, p := range root.Productions {
		if _, ok := tokens[p.LHS]; ok {
			b.fail(semErrDuplicateName, p.LHS, p.Pos)
			continue
		}
		if _, ok := lhs2Prods[p.LHS]; !ok {
			lhsOrder = append(lhsOrder, p.LHS)
		}
		lhs2Prods[p.LHS] = append(lhs2Prods[p.LHS], p)
	}
	if len(root.Productions) == 0 {
		b.fail(semErrNoProduction, "", lexical.Position{})
		return nil, b.errs
	}

	start := root.Start
	if start == "" {
		start = root.Productions[0].LHS
	}
	if _, ok := lhs2Prods[start]; !ok {
		b.fail(semErrUndefinedStart, start, root.StartPos)
	}

	for _, p := range root.Productions {
		for _, alt := range p.RHS {
			for _, elem := range alt.Elements {
				if elem.IsLiteral {
					continue
				}
				if t, ok := tokens[elem.ID]; ok {
					if t.Ignore {
						b.fail(semErrTermCannotBeSkipped, elem.ID, elem.Pos)
					}
					continue
				}
				if _, ok := lhs2Prods[elem.ID]; !ok {
					b.fail(semErrUndefinedSym, elem.ID, elem.Pos)
				}
			}
		}
	}
	if len(b.errs) > 0 {
		b.errs.Sort()
		return nil, b.errs
	}

	gram := &Grammar{
		name:        root.Name,
		filename:    b.FilePath,
		symbolTable: symbol.NewSymbolTable(),
		anonymous:   map[symbol.Symbol]bool{},
		patterns:    map[symbol.Symbol]string{},
		skip:        map[symbol.Symbol]bool{},
	}

	reachable := findReachableNonTerminals(start, lhs2Prods)
	var nonTerms []string
	for _, lhs := range lhsOrder {
		if !reachable[lhs] {
			msg := fmt.Sprintf("production %v is unreachable from the start symbol %v and was removed", lhs, start)
			gram.warnings = append(gram.warnings, msg)
			tracer().Infof("%v", msg)
			continue
		}
		nonTerms = append(nonTerms, lhs)
	}

	lexSpec, lit2Term, err := b.genLexSpec(root, lhs2Prods, nonTerms, tokens)
	if err != nil {
		return nil, err
	}
	gram.lexSpec = lexSpec

	w := gram.symbolTable.Writer()
	for _, t := range lexSpec.Tokens {
		sym, err := w.RegisterTerminalSymbol(t.Name)
		if err != nil {
			return nil, err
		}
		if _, ok := tokens[t.Name]; !ok {
			gram.anonymous[sym] = true
		}
		gram.patterns[sym] = lexical.String(t.Expr)
		if t.Ignore {
			gram.skip[sym] = true
		}
	}
	augStart, err := w.RegisterStartSymbol(start + "'")
	if err != nil {
		return nil, err
	}
	gram.augmentedStartSymbol = augStart
	for _, lhs := range nonTerms {
		if _, err := w.RegisterNonTerminalSymbol(lhs); err != nil {
			return nil, err
		}
	}

	prods, err := b.genProductions(gram.symbolTable.Reader(), augStart, start, lhs2Prods, nonTerms, lit2Term)
	if err != nil {
		return nil, err
	}
	gram.productionSet = prods

	for _, c := range root.Conflicts {
		gram.overrides = append(gram.overrides, &override{
			state:  c.State,
			symbol: c.Symbol,
			action: spec.ActionKind(c.Action),
			target: c.Target,
			pos:    c.Pos,
		})
	}

	tracer().Debugf("grammar %v: %v terminals, %v non-terminals, %v productions",
		gram.name, gram.symbolTable.Reader().TerminalCount(), len(nonTerms)+1, len(prods.getAllProductions()))

	return gram, nil
}

func findReachableNonTerminals(start string, lhs2Prods map[string][]*parser.ProductionNode) map[string]bool {
	reachable := map[string]bool{
		start: true,
	}
	stack := []string{start}
	for len(stack) > 0 {
		lhs := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range lhs2Prods[lhs] {
			for _, alt := range p.RHS {
				for _, elem := range alt.Elements {
					if elem.IsLiteral || reachable[elem.ID] {
						continue
					}
					if _, ok := lhs2Prods[elem.ID]; !ok {
						continue
					}
					reachable[elem.ID] = true
					stack = append(stack, elem.ID)
				}
			}
		}
	}
	return reachable
}

// genLexSpec lists the tokens of the scanner. A string literal used in a
// reachable production becomes an anonymous token unless a token is defined
// by exactly that string. Anonymous tokens come first so that keywords win
// over identifiers matching the same text.
func (b *GrammarBuilder) genLexSpec(root *parser.RootNode, lhs2Prods map[string][]*parser.ProductionNode, nonTerms []string, tokens map[string]*lexical.TokenDef) (*lexical.Spec, map[string]string, error) {
	lit2Token := map[string]string{}
	for _, t := range root.Tokens {
		s, ok := t.Expr.(*lexical.StringExpr)
		if !ok {
			continue
		}
		if _, ok := lit2Token[s.Value]; !ok {
			lit2Token[s.Value] = t.Name
		}
	}

	lit2Term := map[string]string{}
	var anon []*lexical.TokenDef
	for _, lhs := range nonTerms {
		for _, p := range lhs2Prods[lhs] {
			for _, alt := range p.RHS {
				for _, elem := range alt.Elements {
					if !elem.IsLiteral {
						continue
					}
					if _, ok := lit2Term[elem.Literal]; ok {
						continue
					}
					if name, ok := lit2Token[elem.Literal]; ok {
						if tokens[name].Ignore {
							b.fail(semErrTermCannotBeSkipped, name, elem.Pos)
						}
						lit2Term[elem.Literal] = name
						continue
					}
					name := parser.LiteralName(elem.Literal)
					lit2Term[elem.Literal] = name
					anon = append(anon, &lexical.TokenDef{
						Name: name,
						Expr: &lexical.StringExpr{
							Value: elem.Literal,
						},
						Pos: elem.Pos,
					})
				}
			}
		}
	}
	if len(b.errs) > 0 {
		b.errs.Sort()
		return nil, nil, b.errs
	}

	return &lexical.Spec{
		Classes: root.Classes,
		Tokens:  append(anon, root.Tokens...),
	}, lit2Term, nil
}

func (b *GrammarBuilder) genProductions(symbols *symbol.SymbolTableReader, augStart symbol.Symbol, start string, lhs2Prods map[string][]*parser.ProductionNode, nonTerms []string, lit2Term map[string]string) (*productionSet, error) {
	prods := newProductionSet()

	startSym, _ := symbols.ToSymbol(start)
	p, err := newProduction(augStart, []symbol.Symbol{startSym})
	if err != nil {
		return nil, err
	}
	prods.append(p)

	for _, lhs := range nonTerms {
		lhsSym, _ := symbols.ToSymbol(lhs)
		for _, node := range lhs2Prods[lhs] {
			for _, alt := range node.RHS {
				rhs := make([]symbol.Symbol, 0, len(alt.Elements))
				for _, elem := range alt.Elements {
					name := elem.ID
					if elem.IsLiteral {
						name = lit2Term[elem.Literal]
					}
					sym, ok := symbols.ToSymbol(name)
					if !ok {
						return nil, fmt.Errorf("symbol %v was not registered", name)
					}
					rhs = append(rhs, sym)
				}
				p, err := newProduction(lhsSym, rhs)
				if err != nil {
					return nil, err
				}
				p.attribute = alt.Attribute
				p.action = alt.Action
				if !prods.append(p) {
					b.fail(semErrDuplicateProduction, lhs, alt.Pos)
				}
			}
		}
	}
	if len(b.errs) > 0 {
		b.errs.Sort()
		return nil, b.errs
	}

	return prods, nil
}

type compileConfig struct {
	isReportingEnabled bool
	compLv             int
}

type CompileOption func(config *compileConfig)

func EnableReporting() CompileOption {
	return func(config *compileConfig) {
		config.isReportingEnabled = true
	}
}

// CompressionLevel selects the format of the scanner's transition table.
// See lexical.CompressionLevel.
func CompressionLevel(lv int) CompileOption {
	return func(config *compileConfig) {
		config.compLv = lv
	}
}

// Compile generates the scanner and the LR(1) action table of gram. When
// reporting is enabled, the report is returned even if conflicts remain, so
// that they can be inspected.
func Compile(gram *Grammar, opts ...CompileOption) (*spec.CompiledGrammar, *spec.Report, error) {
	config := &compileConfig{
		compLv: lexical.CompressionLevelMax,
	}
	for _, opt := range opts {
		opt(config)
	}

	symbols := gram.symbolTable.Reader()

	lexSpec, err, cErrs := lexical.Compile(gram.lexSpec, symbols, lexical.CompressionLevel(config.compLv))
	if err != nil {
		if len(cErrs) > 0 {
			var errs verr.SpecErrors
			for _, cerr := range cErrs {
				errs = append(errs, &verr.SpecError{
					Cause:      cerr.Cause,
					Detail:     cerr.Error(),
					FilePath:   gram.filename,
					SourceName: gram.filename,
					Row:        cerr.Pos.Row,
					Col:        cerr.Pos.Col,
				})
			}
			errs.Sort()
			return nil, nil, errs
		}
		return nil, nil, err
	}

	firstSet, err := genFirstSet(gram.productionSet, symbols)
	if err != nil {
		return nil, nil, err
	}

	automaton, err := genLR1Automaton(gram.productionSet, firstSet, symbols)
	if err != nil {
		return nil, nil, err
	}

	b := &lrTableBuilder{
		automaton: automaton,
		prods:     gram.productionSet,
		symbols:   symbols,
		overrides: gram.overrides,
		filename:  gram.filename,
	}
	tab, tabErr := b.build()
	if tab == nil {
		return nil, nil, tabErr
	}

	var report *spec.Report
	if config.isReportingEnabled {
		report, err = b.genReport(tab, gram)
		if err != nil {
			return nil, nil, err
		}
	}
	if tabErr != nil {
		return nil, report, tabErr
	}

	terms, err := symbols.TerminalTexts()
	if err != nil {
		return nil, nil, err
	}
	nonTerms, err := symbols.NonTerminalTexts()
	if err != nil {
		return nil, nil, err
	}

	cg := &spec.CompiledGrammar{
		Name:    gram.name,
		Lexical: lexSpec,
		Syntactic: &spec.SyntacticSpec{
			Action:       tab.action,
			StateCount:   len(tab.action),
			Terminals:    terms,
			NonTerminals: nonTerms,
			Rules:        genRules(gram.productionSet),
			StartRule:    productionNumStart,
		},
	}
	cg.Fingerprint, err = Fingerprint(cg)
	if err != nil {
		return nil, nil, err
	}

	return cg, report, nil
}

// Fingerprint digests the tables of cg. Two compilations of the same grammar
// have the same fingerprint.
func Fingerprint(cg *spec.CompiledGrammar) (string, error) {
	return structhash.Hash(struct {
		Name      string
		Lexical   *spec.LexicalSpec
		Syntactic *spec.SyntacticSpec
	}{
		Name:      cg.Name,
		Lexical:   cg.Lexical,
		Syntactic: cg.Syntactic,
	}, 1)
}
