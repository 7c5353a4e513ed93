package grammar

import (
	"fmt"
	"sort"

	"github.com/nihei9/gramc/grammar/symbol"
)

type firstEntry struct {
	symbols map[symbol.Symbol]struct{}
	empty   bool
}

func newFirstEntry() *firstEntry {
	return &firstEntry{
		symbols: map[symbol.Symbol]struct{}{},
		empty:   false,
	}
}

func (e *firstEntry) add(sym symbol.Symbol) bool {
	if _, ok := e.symbols[sym]; ok {
		return false
	}
	e.symbols[sym] = struct{}{}
	return true
}

func (e *firstEntry) addEmpty() bool {
	if !e.empty {
		e.empty = true
		return true
	}
	return false
}

func (e *firstEntry) mergeExceptEmpty(target *firstEntry) bool {
	if target == nil {
		return false
	}
	changed := false
	for sym := range target.symbols {
		added := e.add(sym)
		if added {
			changed = true
		}
	}
	return changed
}

// sorted returns the terminals of the entry in ascending order.
func (e *firstEntry) sorted() []symbol.Symbol {
	syms := make([]symbol.Symbol, 0, len(e.symbols))
	for sym := range e.symbols {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})
	return syms
}

type firstSet struct {
	set     map[symbol.Symbol]*firstEntry
	symbols *symbol.SymbolTableReader
}

func newFirstSet(prods *productionSet, symbols *symbol.SymbolTableReader) *firstSet {
	fst := &firstSet{
		set:     map[symbol.Symbol]*firstEntry{},
		symbols: symbols,
	}
	for _, prod := range prods.getAllProductions() {
		if _, ok := fst.set[prod.lhs]; ok {
			continue
		}
		fst.set[prod.lhs] = newFirstEntry()
	}

	return fst
}

// find returns FIRST(rhs lookAhead). The result never contains ε because
// lookAhead is a terminal.
func (fst *firstSet) find(rhs []symbol.Symbol, lookAhead symbol.Symbol) ([]symbol.Symbol, error) {
	entry := newFirstEntry()
	for _, sym := range rhs {
		if fst.symbols.IsTerminal(sym) {
			entry.add(sym)
			return entry.sorted(), nil
		}

		e := fst.findBySymbol(sym)
		if e == nil {
			return nil, fmt.Errorf("an entry of FIRST was not found; symbol: %s", sym)
		}
		for s := range e.symbols {
			entry.add(s)
		}
		if !e.empty {
			return entry.sorted(), nil
		}
	}
	entry.add(lookAhead)
	return entry.sorted(), nil
}

func (fst *firstSet) findBySymbol(sym symbol.Symbol) *firstEntry {
	return fst.set[sym]
}

// genFirstSet iterates until no entry changes, so left recursion needs no
// special care.
func genFirstSet(prods *productionSet, symbols *symbol.SymbolTableReader) (*firstSet, error) {
	fst := newFirstSet(prods, symbols)
	for {
		more := false
		for _, prod := range prods.getAllProductions() {
			e := fst.findBySymbol(prod.lhs)
			changed, err := genProdFirstEntry(fst, e, prod)
			if err != nil {
				return nil, err
			}
			if changed {
				more = true
			}
		}
		if !more {
			break
		}
	}
	return fst, nil
}

func genProdFirstEntry(fst *firstSet, acc *firstEntry, prod *production) (bool, error) {
	if prod.isEmpty() {
		return acc.addEmpty(), nil
	}

	changed := false
	for _, sym := range prod.rhs {
		if fst.symbols.IsTerminal(sym) {
			return acc.add(sym) || changed, nil
		}

		e := fst.findBySymbol(sym)
		if e == nil {
			return false, fmt.Errorf("an entry of FIRST was not found; symbol: %s", sym)
		}
		if acc.mergeExceptEmpty(e) {
			changed = true
		}
		if !e.empty {
			return changed, nil
		}
	}
	return acc.addEmpty() || changed, nil
}
