// Package dfa converts the token automaton into a deterministic one by
// subset construction and minimizes it with Hopcroft's algorithm.
package dfa

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/nihei9/gramc/grammar/lexical/nfa"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.dfa")
}

// NoState marks a missing transition.
const NoState = -1

// State is a row of the automaton. Next is indexed by match class.
type State struct {
	Accept int
	Next   []int
}

// DFA is a deterministic automaton over the match classes of a Machine.
// State 0 is the start state.
type DFA struct {
	States  []*State
	Matches *nfa.Matches
}

func newRow(n int) []int {
	row := make([]int, n)
	for i := range row {
		row[i] = NoState
	}
	return row
}

func subsetKey(nodes []nfa.NodeID) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(strconv.Itoa(n.Int()))
		b.WriteByte(',')
	}
	return b.String()
}

// Build runs the subset construction over m. A state accepts the lowest
// token ID found in its subset.
func Build(m *nfa.Machine) *DFA {
	classCount := m.Matches().Len()
	d := &DFA{
		Matches: m.Matches(),
	}
	var subsets [][]nfa.NodeID
	index := map[string]int{}
	queue := arraylist.New()
	add := func(nodes []nfa.NodeID) int {
		k := subsetKey(nodes)
		if i, ok := index[k]; ok {
			return i
		}
		i := len(d.States)
		d.States = append(d.States, &State{
			Accept: m.AcceptOf(nodes),
			Next:   newRow(classCount),
		})
		subsets = append(subsets, nodes)
		index[k] = i
		queue.Add(i)
		return i
	}

	add(m.Closure([]nfa.NodeID{m.Start()}))
	for !queue.Empty() {
		v, _ := queue.Get(0)
		queue.Remove(0)
		i := v.(int)
		for c := 0; c < classCount; c++ {
			next := m.Move(subsets[i], nfa.ClassID(c))
			if len(next) == 0 {
				continue
			}
			d.States[i].Next[c] = add(next)
		}
	}

	tracer().Debugf("subset construction: %v states, %v classes", len(d.States), classCount)
	return d
}

// ClassCount returns the number of match classes, the width of a row.
func (d *DFA) ClassCount() int {
	return d.Matches.Len()
}

// Clone returns a deep copy of d sharing its match classes.
func (d *DFA) Clone() *DFA {
	c := &DFA{
		States:  make([]*State, len(d.States)),
		Matches: d.Matches,
	}
	for i, s := range d.States {
		c.States[i] = &State{
			Accept: s.Accept,
			Next:   append([]int{}, s.Next...),
		}
	}
	return c
}

// deleteState removes state i. Transitions into i are redirected to
// replacement, and every index above i moves down by one. replacement must
// be lower than i or NoState.
func (d *DFA) deleteState(i, replacement int) {
	if i <= 0 || i >= len(d.States) {
		panic(fmt.Sprintf("dfa: cannot delete state %v of %v", i, len(d.States)))
	}
	if replacement >= i {
		panic(fmt.Sprintf("dfa: replacement %v of state %v must be lower", replacement, i))
	}
	d.States = append(d.States[:i], d.States[i+1:]...)
	for _, s := range d.States {
		for c, t := range s.Next {
			switch {
			case t == i:
				s.Next[c] = replacement
			case t > i:
				s.Next[c] = t - 1
			}
		}
	}
}

// Reachable reports, for every state, whether it is reachable from state 0.
func (d *DFA) Reachable() []bool {
	reached := make([]bool, len(d.States))
	if len(d.States) == 0 {
		return reached
	}
	reached[0] = true
	queue := arraylist.New(0)
	for !queue.Empty() {
		v, _ := queue.Get(0)
		queue.Remove(0)
		for _, t := range d.States[v.(int)].Next {
			if t != NoState && !reached[t] {
				reached[t] = true
				queue.Add(t)
			}
		}
	}
	return reached
}

// RemoveUnreachable deletes every state not reachable from state 0 and
// returns how many were deleted.
func (d *DFA) RemoveUnreachable() int {
	reached := d.Reachable()
	removed := 0
	for i := len(reached) - 1; i > 0; i-- {
		if reached[i] {
			continue
		}
		d.deleteState(i, NoState)
		removed++
	}
	if removed > 0 {
		tracer().Debugf("removed %v unreachable states", removed)
	}
	return removed
}

// Table returns the dense scanner table. Column 0 of a row is the accepted
// token ID (0 for none) and column c+1 is the next state on class c.
func (d *DFA) Table() [][]int {
	tab := make([][]int, len(d.States))
	for i, s := range d.States {
		row := make([]int, len(s.Next)+1)
		row[0] = s.Accept
		copy(row[1:], s.Next)
		tab[i] = row
	}
	return tab
}

// Step returns the state following `state` on rune r.
func (d *DFA) Step(state int, r rune) int {
	c, ok := d.Matches.Classify(r)
	if !ok {
		return NoState
	}
	return d.States[state].Next[c]
}

// Run returns the token ID accepted after consuming the whole input, or 0.
func (d *DFA) Run(input []rune) int {
	if len(d.States) == 0 {
		return 0
	}
	state := 0
	for _, r := range input {
		state = d.Step(state, r)
		if state == NoState {
			return 0
		}
	}
	return d.States[state].Accept
}

// Longest returns the token ID and length of the longest accepted prefix of
// input. The ID is 0 when no prefix is accepted.
func (d *DFA) Longest(input []rune) (int, int) {
	if len(d.States) == 0 {
		return 0, 0
	}
	state := 0
	accept, length := d.States[0].Accept, 0
	for i, r := range input {
		state = d.Step(state, r)
		if state == NoState {
			break
		}
		if a := d.States[state].Accept; a != 0 {
			accept, length = a, i+1
		}
	}
	return accept, length
}

func (d *DFA) String() string {
	var b strings.Builder
	for i, s := range d.States {
		fmt.Fprintf(&b, "%v", i)
		if s.Accept != 0 {
			fmt.Fprintf(&b, " (accept %v)", s.Accept)
		}
		var cs []int
		for c, t := range s.Next {
			if t != NoState {
				cs = append(cs, c)
			}
		}
		sort.Ints(cs)
		for _, c := range cs {
			fmt.Fprintf(&b, " %v->%v", d.Matches.Set(nfa.ClassID(c)), s.Next[c])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
