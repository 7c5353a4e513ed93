package nfa

import (
	"fmt"

	"github.com/nihei9/gramc/grammar/lexical/matchset"
)

// ClassID identifies a match class, an interned character set used as an
// edge label.
type ClassID int

// NoClass marks an unconditional (epsilon) left edge.
const NoClass = ClassID(-1)

func (id ClassID) Int() int {
	return int(id)
}

// classSplit records that class `old` was narrowed and the characters it
// lost now form class `added`.
type classSplit struct {
	old   ClassID
	added ClassID
}

// Matches interns match sets. Its classes are pairwise disjoint at all times.
type Matches struct {
	sets []matchset.Set
}

func newMatches() *Matches {
	return &Matches{}
}

// Len returns the number of match classes.
func (ms *Matches) Len() int {
	return len(ms.sets)
}

// Set returns the characters of a class.
func (ms *Matches) Set(id ClassID) matchset.Set {
	if id < 0 || int(id) >= len(ms.sets) {
		panic(fmt.Sprintf("nfa: class out of range: %v", id))
	}
	return ms.sets[id]
}

// Lookup returns the class exactly equal to set.
func (ms *Matches) Lookup(set matchset.Set) (ClassID, bool) {
	for i, s := range ms.sets {
		if s.Equal(set) {
			return ClassID(i), true
		}
	}
	return NoClass, false
}

// Classify returns the class containing r.
func (ms *Matches) Classify(r rune) (ClassID, bool) {
	for i, s := range ms.sets {
		if s.IsMatch(r) {
			return ClassID(i), true
		}
	}
	return NoClass, false
}

// insert returns the classes whose union is set, splitting every existing
// class that overlaps set only partially.
func (ms *Matches) insert(set matchset.Set) ([]ClassID, []classSplit) {
	set = set.Reduce()
	if set.IsEmpty() {
		return nil, nil
	}

	var ids []ClassID
	var splits []classSplit
	rest := set
	n := len(ms.sets)
	for i := 0; i < n && !rest.IsEmpty(); i++ {
		c := ms.sets[i]
		in := c.Intersect(rest)
		if in.IsEmpty() {
			continue
		}
		if out := c.Difference(set); !out.IsEmpty() {
			ms.sets[i] = in
			ms.sets = append(ms.sets, out)
			splits = append(splits, classSplit{
				old:   ClassID(i),
				added: ClassID(len(ms.sets) - 1),
			})
			tracer().Debugf("class %v split: %v / %v", i, in, out)
		}
		ids = append(ids, ClassID(i))
		rest = rest.Difference(in)
	}
	if !rest.IsEmpty() {
		ms.sets = append(ms.sets, rest)
		ids = append(ids, ClassID(len(ms.sets)-1))
	}
	return ids, splits
}
