package grammar

import (
	"fmt"
	"sort"
	"strings"

	verr "github.com/nihei9/gramc/error"
	"github.com/nihei9/gramc/grammar/lexical"
	"github.com/nihei9/gramc/grammar/symbol"
	spec "github.com/nihei9/gramc/spec/grammar"
)

const (
	conflictKindShiftReduce  = "shift/reduce"
	conflictKindReduceReduce = "reduce/reduce"
)

// override fixes the action of one cell. target is the next state of a
// shift or the rule of a reduce; -1 picks the only candidate of that kind.
type override struct {
	state  int
	symbol string
	action spec.ActionKind
	target int
	pos    lexical.Position
}

func (o *override) toSpec() *spec.Override {
	return &spec.Override{
		State:  o.state,
		Symbol: o.symbol,
		Action: o.action,
		Target: o.target,
	}
}

// ConflictError lists every cell of the action table that has more than one
// candidate and no override.
type ConflictError struct {
	Conflicts []*spec.Conflict
	Symbols   []string
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v unresolved conflicts", len(e.Conflicts))
	for _, c := range e.Conflicts {
		fmt.Fprintf(&b, "\n    state %v, symbol %v: %v conflict:", c.State, e.Symbols[c.Symbol], c.Kind)
		for i, act := range c.Candidates {
			if i > 0 {
				b.WriteString(",")
			}
			kind, n := spec.DecodeAction(act)
			switch kind {
			case spec.ActionKindShift:
				fmt.Fprintf(&b, " shift %v", n)
			case spec.ActionKindReduce:
				fmt.Fprintf(&b, " reduce rule %v", n)
			}
		}
	}
	return b.String()
}

type parsingTable struct {
	action    [][]int
	conflicts []*spec.Conflict
	resolved  []*spec.Conflict
	warnings  []string
}

type candidates struct {
	shift   int
	reduces []int
}

func (c *candidates) encode() []int {
	var acts []int
	if c.shift >= 0 {
		acts = append(acts, spec.EncodeShift(c.shift))
	}
	for _, rule := range c.reduces {
		acts = append(acts, spec.EncodeReduce(rule))
	}
	return acts
}

type lrTableBuilder struct {
	automaton *lr1Automaton
	prods     *productionSet
	symbols   *symbol.SymbolTableReader
	overrides []*override
	filename  string

	errs verr.SpecErrors
}

// build fills the action table. When conflicts remain, the table comes back
// together with a *ConflictError so that it can still be reported.
func (b *lrTableBuilder) build() (*parsingTable, error) {
	overrides := b.indexOverrides()
	if len(b.errs) > 0 {
		return nil, b.errs
	}
	used := map[*override]bool{}

	symCount := b.symbols.Count()
	termCount := b.symbols.TerminalCount()
	tab := &parsingTable{
		action: make([][]int, len(b.automaton.states)),
	}
	for _, state := range b.automaton.states {
		row := make([]int, symCount)
		for i := range row {
			row[i] = spec.ActionError
		}
		tab.action[state.num] = row

		cells := make([]*candidates, termCount)
		cell := func(sym symbol.Symbol) *candidates {
			if cells[sym] == nil {
				cells[sym] = &candidates{
					shift: -1,
				}
			}
			return cells[sym]
		}
		for sym, next := range state.next {
			if b.symbols.IsTerminal(sym) {
				cell(sym).shift = next
				continue
			}
			row[sym] = spec.EncodeShift(next)
		}
		for _, item := range itemsOf(state.items) {
			if !item.dottedSymbol(b.prods).IsNil() {
				continue
			}
			c := cell(item.lookAhead)
			c.reduces = append(c.reduces, item.prod)
		}

		for sym, c := range cells {
			if c == nil {
				continue
			}
			acts := c.encode()
			if len(acts) == 1 {
				row[sym] = acts[0]
				continue
			}

			conflict := &spec.Conflict{
				State:      state.num,
				Symbol:     sym,
				Kind:       conflictKindReduceReduce,
				Candidates: acts,
			}
			if c.shift >= 0 {
				conflict.Kind = conflictKindShiftReduce
			}
			o, ok := overrides[cellKey{state: state.num, symbol: symbol.Symbol(sym)}]
			if !ok {
				tab.conflicts = append(tab.conflicts, conflict)
				continue
			}
			used[o] = true
			act, ok := b.adopt(o, c)
			if !ok {
				continue
			}
			row[sym] = act
			conflict.Adopted = &act
			conflict.ResolvedBy = o.toSpec()
			tab.resolved = append(tab.resolved, conflict)
			tracer().Debugf("state %v, symbol %v: %v conflict resolved by an override", state.num, o.symbol, conflict.Kind)
		}
	}

	for _, o := range b.overrides {
		if used[o] {
			continue
		}
		msg := fmt.Sprintf("%%conflict %v %v %v: the cell has no conflict; the override is ignored", o.state, o.symbol, o.action)
		if o.pos.Row > 0 {
			msg = fmt.Sprintf("%v:%v: %v", o.pos.Row, o.pos.Col, msg)
		}
		tab.warnings = append(tab.warnings, msg)
		tracer().Infof("%v", msg)
	}

	if len(b.errs) > 0 {
		b.errs.Sort()
		return nil, b.errs
	}
	if len(tab.conflicts) > 0 {
		names, err := b.symbolNames()
		if err != nil {
			return nil, err
		}
		return tab, &ConflictError{
			Conflicts: tab.conflicts,
			Symbols:   names,
		}
	}

	return tab, nil
}

type cellKey struct {
	state  int
	symbol symbol.Symbol
}

func (b *lrTableBuilder) indexOverrides() map[cellKey]*override {
	overrides := map[cellKey]*override{}
	for _, o := range b.overrides {
		if o.state < 0 || o.state >= len(b.automaton.states) {
			b.fail(semErrOverrideState, fmt.Sprintf("%v", o.state), o.pos)
			continue
		}
		sym, ok := b.symbols.ToSymbol(o.symbol)
		if !ok || !b.symbols.IsTerminal(sym) {
			b.fail(semErrOverrideSymbol, o.symbol, o.pos)
			continue
		}
		key := cellKey{
			state:  o.state,
			symbol: sym,
		}
		if _, ok := overrides[key]; ok {
			b.fail(semErrDuplicateOverride, fmt.Sprintf("state %v, symbol %v", o.state, o.symbol), o.pos)
			continue
		}
		overrides[key] = o
	}
	return overrides
}

// adopt picks the candidate of c that o asks for.
func (b *lrTableBuilder) adopt(o *override, c *candidates) (int, bool) {
	detail := fmt.Sprintf("%%conflict %v %v %v", o.state, o.symbol, o.action)
	if o.target >= 0 {
		detail = fmt.Sprintf("%v %v", detail, o.target)
	}

	switch o.action {
	case spec.ActionKindShift:
		if c.shift >= 0 && (o.target < 0 || o.target == c.shift) {
			return spec.EncodeShift(c.shift), true
		}
	case spec.ActionKindReduce:
		if o.target >= 0 {
			for _, rule := range c.reduces {
				if rule == o.target {
					return spec.EncodeReduce(rule), true
				}
			}
			break
		}
		if len(c.reduces) > 1 {
			b.fail(semErrOverrideAmbiguous, detail, o.pos)
			return 0, false
		}
		if len(c.reduces) == 1 {
			return spec.EncodeReduce(c.reduces[0]), true
		}
	}
	b.fail(semErrOverrideNoMatch, detail, o.pos)
	return 0, false
}

func (b *lrTableBuilder) fail(cause error, detail string, pos lexical.Position) {
	b.errs = append(b.errs, &verr.SpecError{
		Cause:      cause,
		Detail:     detail,
		FilePath:   b.filename,
		SourceName: b.filename,
		Row:        pos.Row,
		Col:        pos.Col,
	})
}

func (b *lrTableBuilder) symbolNames() ([]string, error) {
	terms, err := b.symbols.TerminalTexts()
	if err != nil {
		return nil, err
	}
	nonTerms, err := b.symbols.NonTerminalTexts()
	if err != nil {
		return nil, err
	}
	return append(terms, nonTerms...), nil
}

// genReport describes every state of the automaton together with the
// conflicts found in it.
func (b *lrTableBuilder) genReport(tab *parsingTable, gram *Grammar) (*spec.Report, error) {
	terms, err := b.symbols.TerminalTexts()
	if err != nil {
		return nil, err
	}
	nonTerms, err := b.symbols.NonTerminalTexts()
	if err != nil {
		return nil, err
	}

	report := &spec.Report{
		Name:     gram.name,
		Rules:    genRules(b.prods),
		Warnings: append(append([]string{}, gram.warnings...), tab.warnings...),
	}
	for i, name := range terms {
		sym := symbol.Symbol(i)
		report.Terminals = append(report.Terminals, &spec.Terminal{
			Number:    i,
			Name:      name,
			Anonymous: gram.anonymous[sym],
			Pattern:   gram.patterns[sym],
			Skip:      gram.skip[sym],
		})
	}
	for i, name := range nonTerms {
		report.NonTerminals = append(report.NonTerminals, &spec.NonTerminal{
			Number: len(terms) + i,
			Name:   name,
		})
	}

	byState := func(cs []*spec.Conflict) map[int][]*spec.Conflict {
		m := map[int][]*spec.Conflict{}
		for _, c := range cs {
			m[c.State] = append(m[c.State], c)
		}
		return m
	}
	conflicts := byState(tab.conflicts)
	resolved := byState(tab.resolved)

	for _, state := range b.automaton.states {
		s := &spec.State{
			Number:    state.num,
			Grounding: state.grounding.Int(),
			Conflicts: conflicts[state.num],
			Resolved:  resolved[state.num],
		}

		reduces := map[int][]int{}
		var rules []int
		for _, item := range itemsOf(state.items) {
			s.Items = append(s.Items, &spec.Item{
				Rule:      item.prod,
				Dot:       item.dot,
				LookAhead: item.lookAhead.Int(),
			})
			if !item.dottedSymbol(b.prods).IsNil() {
				continue
			}
			if _, ok := reduces[item.prod]; !ok {
				rules = append(rules, item.prod)
			}
			reduces[item.prod] = append(reduces[item.prod], item.lookAhead.Int())
		}
		for _, rule := range rules {
			las := reduces[rule]
			sort.Ints(las)
			s.Reduce = append(s.Reduce, &spec.Reduce{
				LookAhead: las,
				Rule:      rule,
			})
		}

		syms := make([]int, 0, len(state.next))
		for sym := range state.next {
			syms = append(syms, sym.Int())
		}
		sort.Ints(syms)
		for _, sym := range syms {
			t := &spec.Transition{
				Symbol: sym,
				State:  state.next[symbol.Symbol(sym)],
			}
			if b.symbols.IsTerminal(symbol.Symbol(sym)) {
				s.Shift = append(s.Shift, t)
			} else {
				s.GoTo = append(s.GoTo, t)
			}
		}

		report.States = append(report.States, s)
	}

	return report, nil
}

func genRules(prods *productionSet) []*spec.Rule {
	var rules []*spec.Rule
	for _, p := range prods.getAllProductions() {
		rhs := make([]int, len(p.rhs))
		for i, sym := range p.rhs {
			rhs[i] = sym.Int()
		}
		rules = append(rules, &spec.Rule{
			ID:        p.num,
			LHS:       p.lhs.Int(),
			RHS:       rhs,
			Attribute: p.attribute,
			Action:    p.action,
		})
	}
	return rules
}
