package grammar

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/nihei9/gramc/grammar/symbol"
)

// lr1Item is an LR(1) item such as [E → E・+ T, $].
//
// E → E + T
//
// Dot | Dotted Symbol | Item
// ----+---------------+------------
// 0   | E             | E →・E + T
// 1   | +             | E → E・+ T
// 2   | T             | E → E +・T
// 3   | Nil           | E → E + T・
type lr1Item struct {
	prod      int
	dot       int
	lookAhead symbol.Symbol
}

func compareItems(a, b interface{}) int {
	x := a.(lr1Item)
	y := b.(lr1Item)
	switch {
	case x.prod != y.prod:
		return x.prod - y.prod
	case x.dot != y.dot:
		return x.dot - y.dot
	}
	return int(x.lookAhead) - int(y.lookAhead)
}

func newItemSet(items ...lr1Item) *treeset.Set {
	set := treeset.NewWith(compareItems)
	for _, item := range items {
		set.Add(item)
	}
	return set
}

// isSubset reports whether every item of sub belongs to super.
func isSubset(sub, super *treeset.Set) bool {
	if sub.Size() > super.Size() {
		return false
	}
	it := sub.Iterator()
	for it.Next() {
		if !super.Contains(it.Value()) {
			return false
		}
	}
	return true
}

func itemsOf(set *treeset.Set) []lr1Item {
	items := make([]lr1Item, 0, set.Size())
	for _, v := range set.Values() {
		items = append(items, v.(lr1Item))
	}
	return items
}

// dottedSymbol returns the symbol after the dot or SymbolNil when the item is
// reducible.
func (item lr1Item) dottedSymbol(prods *productionSet) symbol.Symbol {
	prod, ok := prods.findByNum(item.prod)
	if !ok {
		panic(fmt.Sprintf("production %v does not exist", item.prod))
	}
	if item.dot >= len(prod.rhs) {
		return symbol.SymbolNil
	}
	return prod.rhs[item.dot]
}

func (item lr1Item) describe(prods *productionSet, symbols *symbol.SymbolTableReader) string {
	prod, _ := prods.findByNum(item.prod)
	text := func(sym symbol.Symbol) string {
		if t, ok := symbols.ToText(sym); ok {
			return t
		}
		return sym.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%v →", text(prod.lhs))
	for i, sym := range prod.rhs {
		if i == item.dot {
			b.WriteString(" ・")
		}
		fmt.Fprintf(&b, " %v", text(sym))
	}
	if item.dot == len(prod.rhs) {
		b.WriteString(" ・")
	}
	fmt.Fprintf(&b, ", %v]", text(item.lookAhead))
	return b.String()
}
