// Package nfa builds the nondeterministic automaton for all tokens of a
// lexical specification. Nodes live in one arena owned by a Machine and refer
// to each other by index, so back-edges and self-loops need no special care.
package nfa

import (
	"errors"
	"fmt"

	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/nihei9/gramc/grammar/lexical/matchset"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.nfa")
}

// NodeID is an index into the node arena of a Machine.
type NodeID int

// NoNode marks an absent edge.
const NoNode = NodeID(-1)

func (id NodeID) Int() int {
	return int(id)
}

// Node has at most two out-edges. Right is always unconditional. Left is
// taken on a character of Class, or unconditionally when Class is NoClass.
type Node struct {
	Class ClassID
	Left  NodeID
	Right NodeID
}

func newNode() Node {
	return Node{
		Class: NoClass,
		Left:  NoNode,
		Right: NoNode,
	}
}

func (n Node) isEmpty() bool {
	return n.Class == NoClass && n.Left == NoNode && n.Right == NoNode
}

var (
	ErrDuplicateToken = errors.New("duplicate token")
	ErrInvalidTokenID = errors.New("token ID must be >= 1")
	ErrAcceptingTwice = errors.New("the end node of a token is already accepting")
	ErrInvalidRepeat  = errors.New("invalid repetition range")
	ErrCharOutOfRange = errors.New("character out of range")
	ErrNoSuchNode     = errors.New("node out of range")
)

// Token describes an accepted token kind.
type Token struct {
	ID     int
	Name   string
	Ignore bool
	End    NodeID
}

// Machine owns the node arena, the match classes and the accepting nodes of
// every token. Node 0 is the start node.
type Machine struct {
	nodes     []Node
	matches   *Matches
	accepting map[NodeID]int
	tokens    []*Token
	names     map[string]*Token
	tail      NodeID
}

func NewMachine() *Machine {
	m := &Machine{
		matches:   newMatches(),
		accepting: map[NodeID]int{},
		names:     map[string]*Token{},
	}
	m.tail = m.newNode()
	return m
}

func (m *Machine) newNode() NodeID {
	m.nodes = append(m.nodes, newNode())
	return NodeID(len(m.nodes) - 1)
}

func (m *Machine) Start() NodeID {
	return 0
}

func (m *Machine) NodeCount() int {
	return len(m.nodes)
}

func (m *Machine) Node(id NodeID) Node {
	m.mustNode(id)
	return m.nodes[id]
}

func (m *Machine) mustNode(id NodeID) {
	if id < 0 || int(id) >= len(m.nodes) {
		panic(fmt.Errorf("%w: %v", ErrNoSuchNode, id))
	}
}

func (m *Machine) Matches() *Matches {
	return m.matches
}

// Accepting returns the token ID a node accepts.
func (m *Machine) Accepting(id NodeID) (int, bool) {
	t, ok := m.accepting[id]
	return t, ok
}

// Tokens returns the tokens in the order they were added.
func (m *Machine) Tokens() []*Token {
	return m.tokens
}

// AddToken makes g a token of the machine. The end node of g accepts id, and
// the start node of the machine gets an epsilon edge to the start of g.
func (m *Machine) AddToken(id int, name string, ignore bool, g Graph) error {
	if id < 1 {
		return fmt.Errorf("%w: %v", ErrInvalidTokenID, id)
	}
	if _, ok := m.names[name]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateToken, name)
	}
	if _, ok := m.accepting[g.End]; ok {
		return fmt.Errorf("%w: %v", ErrAcceptingTwice, name)
	}

	link := m.newNode()
	m.nodes[link].Left = g.Start
	m.nodes[m.tail].Right = link
	m.tail = link

	m.accepting[g.End] = id
	t := &Token{
		ID:     id,
		Name:   name,
		Ignore: ignore,
		End:    g.End,
	}
	m.tokens = append(m.tokens, t)
	m.names[name] = t

	tracer().Debugf("token %v (%v) accepted at node %v", name, id, g.End)
	return nil
}

// SetMatch labels the edge from -> to with set. When set spans several
// classes, `from` becomes a chain of nodes joined by epsilon edges, one per
// class. Existing nodes labelled with a class that set splits are duplicated
// the same way, so every edge label stays a whole class.
func (m *Machine) SetMatch(from, to NodeID, set matchset.Set) {
	m.mustNode(from)
	m.mustNode(to)

	ids, splits := m.matches.insert(set)
	for _, s := range splits {
		m.splitNodes(s)
	}

	cur := from
	right := m.nodes[from].Right
	for i, c := range ids {
		m.nodes[cur].Class = c
		m.nodes[cur].Left = to
		if i < len(ids)-1 {
			next := m.newNode()
			m.nodes[cur].Right = next
			cur = next
		}
	}
	m.nodes[cur].Right = right
}

func (m *Machine) splitNodes(s classSplit) {
	n := len(m.nodes)
	for i := 0; i < n; i++ {
		if m.nodes[i].Class != s.old {
			continue
		}
		dup := m.newNode()
		m.nodes[dup] = Node{
			Class: s.added,
			Left:  m.nodes[i].Left,
			Right: m.nodes[i].Right,
		}
		m.nodes[i].Right = dup
	}
}

// Closure returns the sorted epsilon-closure of nodes.
func (m *Machine) Closure(nodes []NodeID) []NodeID {
	visited := make([]bool, len(m.nodes))
	stack := arraystack.New()
	for _, n := range nodes {
		m.mustNode(n)
		if !visited[n] {
			visited[n] = true
			stack.Push(n)
		}
	}
	push := func(n NodeID) {
		if n != NoNode && !visited[n] {
			visited[n] = true
			stack.Push(n)
		}
	}
	for !stack.Empty() {
		v, _ := stack.Pop()
		node := m.nodes[v.(NodeID)]
		if node.Class == NoClass {
			push(node.Left)
		}
		push(node.Right)
	}

	var closure []NodeID
	for i, ok := range visited {
		if ok {
			closure = append(closure, NodeID(i))
		}
	}
	return closure
}

// Move returns the epsilon-closure of the nodes reachable from nodes on a
// character of class c.
func (m *Machine) Move(nodes []NodeID, c ClassID) []NodeID {
	var next []NodeID
	for _, n := range nodes {
		node := m.nodes[n]
		if node.Class == c && node.Left != NoNode {
			next = append(next, node.Left)
		}
	}
	if len(next) == 0 {
		return nil
	}
	return m.Closure(next)
}

// AcceptOf returns the lowest token ID accepted by any of nodes, or 0.
func (m *Machine) AcceptOf(nodes []NodeID) int {
	accept := 0
	for _, n := range nodes {
		if id, ok := m.accepting[n]; ok && (accept == 0 || id < accept) {
			accept = id
		}
	}
	return accept
}

// Run simulates the automaton over the whole input and returns the token ID
// accepted at its end, or 0.
func (m *Machine) Run(input []rune) int {
	states := m.Closure([]NodeID{m.Start()})
	for _, r := range input {
		c, ok := m.matches.Classify(r)
		if !ok {
			return 0
		}
		states = m.Move(states, c)
		if len(states) == 0 {
			return 0
		}
	}
	return m.AcceptOf(states)
}

// Longest returns the token ID and length of the longest accepted prefix of
// input. The ID is 0 when no prefix is accepted.
func (m *Machine) Longest(input []rune) (int, int) {
	states := m.Closure([]NodeID{m.Start()})
	accept, length := m.AcceptOf(states), 0
	for i, r := range input {
		c, ok := m.matches.Classify(r)
		if !ok {
			break
		}
		states = m.Move(states, c)
		if len(states) == 0 {
			break
		}
		if a := m.AcceptOf(states); a != 0 {
			accept, length = a, i+1
		}
	}
	return accept, length
}
