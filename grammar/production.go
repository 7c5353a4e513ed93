package grammar

import (
	"fmt"

	"github.com/cnf/structhash"
	"github.com/nihei9/gramc/grammar/symbol"
)

type productionID string

func genProductionID(lhs symbol.Symbol, rhs []symbol.Symbol) (productionID, error) {
	key := struct {
		LHS int
		RHS []int
	}{
		LHS: lhs.Int(),
		RHS: make([]int, len(rhs)),
	}
	for i, sym := range rhs {
		key.RHS[i] = sym.Int()
	}
	h, err := structhash.Hash(key, 1)
	if err != nil {
		return "", err
	}
	return productionID(h), nil
}

// productionNumStart is the number of S' → Start.
const productionNumStart = 0

type production struct {
	id        productionID
	num       int
	lhs       symbol.Symbol
	rhs       []symbol.Symbol
	attribute string
	action    string
}

func newProduction(lhs symbol.Symbol, rhs []symbol.Symbol) (*production, error) {
	if lhs.IsNil() {
		return nil, fmt.Errorf("LHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
	}
	for _, sym := range rhs {
		if sym.IsNil() {
			return nil, fmt.Errorf("a symbol of RHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
		}
	}

	id, err := genProductionID(lhs, rhs)
	if err != nil {
		return nil, err
	}
	return &production{
		id:  id,
		lhs: lhs,
		rhs: rhs,
	}, nil
}

func (p *production) isEmpty() bool {
	return len(p.rhs) == 0
}

// productionSet numbers productions in the order they are appended.
type productionSet struct {
	prods     []*production
	lhs2Prods map[symbol.Symbol][]*production
	id2Prod   map[productionID]*production
}

func newProductionSet() *productionSet {
	return &productionSet{
		lhs2Prods: map[symbol.Symbol][]*production{},
		id2Prod:   map[productionID]*production{},
	}
}

func (ps *productionSet) append(prod *production) bool {
	if _, ok := ps.id2Prod[prod.id]; ok {
		return false
	}

	prod.num = len(ps.prods)
	ps.prods = append(ps.prods, prod)
	ps.lhs2Prods[prod.lhs] = append(ps.lhs2Prods[prod.lhs], prod)
	ps.id2Prod[prod.id] = prod

	return true
}

func (ps *productionSet) findByNum(num int) (*production, bool) {
	if num < 0 || num >= len(ps.prods) {
		return nil, false
	}
	return ps.prods[num], true
}

func (ps *productionSet) findByLHS(lhs symbol.Symbol) ([]*production, bool) {
	if lhs.IsNil() {
		return nil, false
	}

	prods, ok := ps.lhs2Prods[lhs]
	return prods, ok
}

func (ps *productionSet) getAllProductions() []*production {
	return ps.prods
}
