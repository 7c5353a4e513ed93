package nfa

import (
	"fmt"

	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/nihei9/gramc/grammar/lexical/matchset"
)

// Graph is a fragment of the automaton. Its End node never has out-edges
// until the fragment is combined with another one.
type Graph struct {
	Start NodeID
	End   NodeID
}

func (m *Machine) fragment() Graph {
	return Graph{
		Start: m.newNode(),
		End:   m.newNode(),
	}
}

// Epsilon returns a fragment accepting the empty string.
func (m *Machine) Epsilon() Graph {
	g := m.fragment()
	m.nodes[g.Start].Right = g.End
	return g
}

// Match returns a fragment accepting one character of set.
func (m *Machine) Match(set matchset.Set) Graph {
	g := m.fragment()
	m.SetMatch(g.Start, g.End, set)
	return g
}

// Literal returns a fragment accepting exactly s.
func (m *Machine) Literal(s string) (Graph, error) {
	var g *Graph
	for _, r := range s {
		if !matchset.InRange(r) {
			return Graph{}, fmt.Errorf("%w: %U", ErrCharOutOfRange, r)
		}
		c := m.Match(matchset.Single(r))
		if g == nil {
			g = &c
			continue
		}
		*g = m.Concat(*g, c)
	}
	if g == nil {
		return m.Epsilon(), nil
	}
	return *g, nil
}

// Concat returns a fragment accepting a followed by b.
func (m *Machine) Concat(a, b Graph) Graph {
	m.mustEnd(a)
	m.nodes[a.End].Right = b.Start
	return Graph{
		Start: a.Start,
		End:   b.End,
	}
}

// Union returns a fragment accepting a or b.
func (m *Machine) Union(a, b Graph) Graph {
	m.mustEnd(a)
	m.mustEnd(b)
	g := m.fragment()
	m.nodes[g.Start].Left = a.Start
	m.nodes[g.Start].Right = b.Start
	m.nodes[a.End].Right = g.End
	m.nodes[b.End].Right = g.End
	return g
}

// Star returns a fragment accepting zero or more repetitions of a.
func (m *Machine) Star(a Graph) Graph {
	m.mustEnd(a)
	g := m.fragment()
	m.nodes[g.Start].Left = a.Start
	m.nodes[g.Start].Right = g.End
	m.nodes[a.End].Left = a.Start
	m.nodes[a.End].Right = g.End
	return g
}

// Plus returns a fragment accepting one or more repetitions of a.
func (m *Machine) Plus(a Graph) Graph {
	m.mustEnd(a)
	end := m.newNode()
	m.nodes[a.End].Left = a.Start
	m.nodes[a.End].Right = end
	return Graph{
		Start: a.Start,
		End:   end,
	}
}

// Question returns a fragment accepting a or the empty string.
func (m *Machine) Question(a Graph) Graph {
	m.mustEnd(a)
	g := m.fragment()
	m.nodes[g.Start].Left = a.Start
	m.nodes[g.Start].Right = g.End
	m.nodes[a.End].Right = g.End
	return g
}

// Repeat returns a fragment accepting between min and max repetitions of a.
// A negative max means no upper bound.
func (m *Machine) Repeat(a Graph, min, max int) (Graph, error) {
	if min < 0 || (max >= 0 && max < min) {
		return Graph{}, fmt.Errorf("%w: {%v,%v}", ErrInvalidRepeat, min, max)
	}
	m.mustEnd(a)
	if max == 0 {
		return m.Epsilon(), nil
	}

	// Copies are taken before any wiring so that each one is a pristine
	// duplicate of a.
	n := min + 1
	if max >= 0 {
		n = max
	}
	copies := make([]Graph, n)
	copies[0] = a
	for i := 1; i < n; i++ {
		copies[i] = m.Dup(a)
	}

	var g *Graph
	cat := func(h Graph) {
		if g == nil {
			g = &h
			return
		}
		*g = m.Concat(*g, h)
	}
	for i := 0; i < min; i++ {
		cat(copies[i])
	}
	switch {
	case max < 0:
		cat(m.Star(copies[min]))
	case max > min:
		opt := m.Question(copies[max-1])
		for i := max - 2; i >= min; i-- {
			opt = m.Question(m.Concat(copies[i], opt))
		}
		cat(opt)
	}
	return *g, nil
}

// Dup returns a structural copy of the subgraph reachable from a.Start.
func (m *Machine) Dup(a Graph) Graph {
	remap := map[NodeID]NodeID{}
	stack := arraystack.New()
	visit := func(n NodeID) NodeID {
		if n == NoNode {
			return NoNode
		}
		if d, ok := remap[n]; ok {
			return d
		}
		d := m.newNode()
		remap[n] = d
		stack.Push(n)
		return d
	}
	start := visit(a.Start)
	for !stack.Empty() {
		v, _ := stack.Pop()
		orig := m.nodes[v.(NodeID)]
		left := visit(orig.Left)
		right := visit(orig.Right)
		m.nodes[remap[v.(NodeID)]] = Node{
			Class: orig.Class,
			Left:  left,
			Right: right,
		}
	}
	end, ok := remap[a.End]
	if !ok {
		// The end is unreachable, e.g. for an empty match set.
		end = m.newNode()
	}
	return Graph{
		Start: start,
		End:   end,
	}
}

func (m *Machine) mustEnd(g Graph) {
	m.mustNode(g.Start)
	m.mustNode(g.End)
	if !m.nodes[g.End].isEmpty() {
		panic(fmt.Sprintf("nfa: end node %v of a fragment already has transitions", g.End))
	}
}
