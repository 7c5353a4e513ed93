package grammar

import (
	"fmt"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
	"github.com/nihei9/gramc/grammar/symbol"
)

// lr1State is a state of the LR(1) automaton. grounding is the symbol that
// leads into the state; it is SymbolNil for the initial state.
type lr1State struct {
	num       int
	grounding symbol.Symbol
	items     *treeset.Set
	next      map[symbol.Symbol]int
}

type lr1Automaton struct {
	states []*lr1State
}

type lr1Builder struct {
	prods   *productionSet
	first   *firstSet
	symbols *symbol.SymbolTableReader
}

// genLR1Automaton builds the item sets from the closure of [S' →・Start, $].
// A new item set that is contained in an existing state is folded into that
// state instead of becoming a state of its own.
func genLR1Automaton(prods *productionSet, first *firstSet, symbols *symbol.SymbolTableReader) (*lr1Automaton, error) {
	b := &lr1Builder{
		prods:   prods,
		first:   first,
		symbols: symbols,
	}

	initial, err := b.closure([]lr1Item{
		{
			prod:      productionNumStart,
			dot:       0,
			lookAhead: symbol.SymbolEOF,
		},
	})
	if err != nil {
		return nil, err
	}
	automaton := &lr1Automaton{
		states: []*lr1State{
			{
				num:       0,
				grounding: symbol.SymbolNil,
				items:     initial,
				next:      map[symbol.Symbol]int{},
			},
		},
	}

	queue := arraylist.New()
	queue.Add(0)
	folded := 0
	for !queue.Empty() {
		v, _ := queue.Get(0)
		queue.Remove(0)
		state := automaton.states[v.(int)]

		kernels := b.kernelsByNextSymbol(state)
		it := kernels.Iterator()
		for it.Next() {
			sym := symbol.Symbol(it.Key().(int))
			items, err := b.closure(it.Value().([]lr1Item))
			if err != nil {
				return nil, err
			}

			target := -1
			for _, s := range automaton.states {
				if isSubset(items, s.items) {
					target = s.num
					break
				}
			}
			if target >= 0 {
				if automaton.states[target].items.Size() != items.Size() {
					folded++
				}
				state.next[sym] = target
				continue
			}

			target = len(automaton.states)
			automaton.states = append(automaton.states, &lr1State{
				num:       target,
				grounding: sym,
				items:     items,
				next:      map[symbol.Symbol]int{},
			})
			state.next[sym] = target
			queue.Add(target)
		}
	}
	tracer().Debugf("LR(1) automaton: %v states, %v item sets folded into larger states", len(automaton.states), folded)

	return automaton, nil
}

// kernelsByNextSymbol groups the items of a state by their dotted symbol and
// advances the dot. Symbols are ordered by number so that states are numbered
// deterministically.
func (b *lr1Builder) kernelsByNextSymbol(state *lr1State) *treemap.Map {
	kernels := treemap.NewWith(utils.IntComparator)
	for _, item := range itemsOf(state.items) {
		sym := item.dottedSymbol(b.prods)
		if sym.IsNil() {
			continue
		}
		advanced := lr1Item{
			prod:      item.prod,
			dot:       item.dot + 1,
			lookAhead: item.lookAhead,
		}
		var items []lr1Item
		if v, ok := kernels.Get(sym.Int()); ok {
			items = v.([]lr1Item)
		}
		kernels.Put(sym.Int(), append(items, advanced))
	}
	return kernels
}

// closure adds [B →・γ, b] for every item [A → α・B β, a], every production
// B → γ and every b in FIRST(β a).
func (b *lr1Builder) closure(kernel []lr1Item) (*treeset.Set, error) {
	set := newItemSet()
	work := arraylist.New()
	for _, item := range kernel {
		if set.Contains(item) {
			continue
		}
		set.Add(item)
		work.Add(item)
	}

	for !work.Empty() {
		v, _ := work.Get(work.Size() - 1)
		work.Remove(work.Size() - 1)
		item := v.(lr1Item)

		prod, ok := b.prods.findByNum(item.prod)
		if !ok {
			return nil, fmt.Errorf("production %v does not exist", item.prod)
		}
		if item.dot >= len(prod.rhs) {
			continue
		}
		sym := prod.rhs[item.dot]
		if !b.symbols.IsNonTerminal(sym) {
			continue
		}
		lookAheads, err := b.first.find(prod.rhs[item.dot+1:], item.lookAhead)
		if err != nil {
			return nil, err
		}
		prods, _ := b.prods.findByLHS(sym)
		for _, p := range prods {
			for _, la := range lookAheads {
				newItem := lr1Item{
					prod:      p.num,
					dot:       0,
					lookAhead: la,
				}
				if set.Contains(newItem) {
					continue
				}
				set.Add(newItem)
				work.Add(newItem)
			}
		}
	}

	return set, nil
}
