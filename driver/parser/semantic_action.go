package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// SemanticActionSet is a set of semantic actions a parser calls.
type SemanticActionSet interface {
	// Shift runs when the parser shifts a symbol onto a state stack. `tok` is a token corresponding to the symbol.
	Shift(tok VToken)

	// Reduce runs when the parser reduces an RHS of a production to its LHS. `prodNum` is a number of the production.
	Reduce(prodNum int)

	// Accept runs when the parser accepts an input.
	Accept()

	// MissError runs when the parser stops on a syntax error. `cause` is a token that caused the syntax error.
	MissError(cause VToken)
}

var _ SemanticActionSet = &SyntaxTreeActionSet{}

// SyntaxTreeNode is a node of a syntax tree. A node type used in SyntaxTreeActionSet must implement SyntaxTreeNode interface.
type SyntaxTreeNode interface {
	ChildCount() int
}

var _ SyntaxTreeNode = &Node{}

// SyntaxTreeBuilder allows you to construct a syntax tree containing arbitrary user-defined node types.
// The parser uses SyntaxTreeBuilder interface as a part of semantic actions via SyntaxTreeActionSet interface.
type SyntaxTreeBuilder interface {
	Shift(kindName string, text string, row, col int) SyntaxTreeNode
	Reduce(kindName string, attribute string, children []SyntaxTreeNode) SyntaxTreeNode
	Accept(f SyntaxTreeNode)
}

var _ SyntaxTreeBuilder = &DefaultSyntaxTreeBuilder{}

// DefaultSyntaxTreeBuilder is a implementation of SyntaxTreeBuilder.
type DefaultSyntaxTreeBuilder struct {
	tree *Node
}

// NewDefaultSyntaxTreeBuilder returns a new DefaultSyntaxTreeBuilder.
func NewDefaultSyntaxTreeBuilder() *DefaultSyntaxTreeBuilder {
	return &DefaultSyntaxTreeBuilder{}
}

// Shift is a implementation of SyntaxTreeBuilder.Shift.
func (b *DefaultSyntaxTreeBuilder) Shift(kindName string, text string, row, col int) SyntaxTreeNode {
	return &Node{
		Type:     NodeTypeTerminal,
		KindName: kindName,
		Text:     text,
		Row:      row,
		Col:      col,
	}
}

// Reduce is a implementation of SyntaxTreeBuilder.Reduce.
func (b *DefaultSyntaxTreeBuilder) Reduce(kindName string, attribute string, children []SyntaxTreeNode) SyntaxTreeNode {
	cNodes := make([]*Node, len(children))
	for i, c := range children {
		cNodes[i] = c.(*Node)
	}
	return &Node{
		Type:      NodeTypeNonTerminal,
		KindName:  kindName,
		Attribute: attribute,
		Children:  cNodes,
	}
}

// Accept is a implementation of SyntaxTreeBuilder.Accept.
func (b *DefaultSyntaxTreeBuilder) Accept(f SyntaxTreeNode) {
	b.tree = f.(*Node)
}

// Tree returns a syntax tree when the parser has accepted an input. If a syntax error occurs, the return value is nil.
func (b *DefaultSyntaxTreeBuilder) Tree() *Node {
	return b.tree
}

// SyntaxTreeActionSet is a implementation of SemanticActionSet interface and constructs a syntax tree.
type SyntaxTreeActionSet struct {
	gram     Grammar
	builder  SyntaxTreeBuilder
	semStack *semanticStack[SyntaxTreeNode]
}

// NewSyntaxTreeActionSet returns a new SyntaxTreeActionSet. The tree mirrors the
// derivation: one node per shifted token and one per reduced production.
func NewSyntaxTreeActionSet(gram Grammar, builder SyntaxTreeBuilder) *SyntaxTreeActionSet {
	return &SyntaxTreeActionSet{
		gram:     gram,
		builder:  builder,
		semStack: newSemanticStack[SyntaxTreeNode](),
	}
}

// Shift is a implementation of SemanticActionSet.Shift method.
func (a *SyntaxTreeActionSet) Shift(tok VToken) {
	row, col := tok.Position()
	a.semStack.push(a.builder.Shift(a.gram.Terminal(tok.TerminalID()), string(tok.Lexeme()), row, col))
}

// Reduce is a implementation of SemanticActionSet.Reduce method.
func (a *SyntaxTreeActionSet) Reduce(prodNum int) {
	lhs := a.gram.LHS(prodNum)

	// When an alternative is empty, `n` will be 0, and `handle` will be empty slice.
	n := a.gram.AlternativeSymbolCount(prodNum)
	handle := a.semStack.pop(n)
	children := make([]SyntaxTreeNode, len(handle))
	copy(children, handle)

	a.semStack.push(a.builder.Reduce(a.gram.NonTerminal(lhs), a.gram.Attribute(prodNum), children))
}

// Accept is a implementation of SemanticActionSet.Accept method.
func (a *SyntaxTreeActionSet) Accept() {
	top := a.semStack.pop(1)
	a.builder.Accept(top[0])
}

// MissError is a implementation of SemanticActionSet.MissError method.
func (a *SyntaxTreeActionSet) MissError(cause VToken) {
}

// ActionFunc computes the value of a production from the values of its RHS.
type ActionFunc func(args []interface{}) (interface{}, error)

var _ SemanticActionSet = &ValueActionSet{}

// ValueActionSet evaluates an input bottom-up. A production with an `@name`
// action gets the value funcs[name] returns; any other production passes the
// value of its first RHS symbol through, or nil when the RHS is empty. A
// shifted token's value is its lexeme as a string.
type ValueActionSet struct {
	gram     Grammar
	funcs    map[string]ActionFunc
	semStack *semanticStack[interface{}]
	result   interface{}
	err      error
}

func NewValueActionSet(gram Grammar, funcs map[string]ActionFunc) *ValueActionSet {
	return &ValueActionSet{
		gram:     gram,
		funcs:    funcs,
		semStack: newSemanticStack[interface{}](),
	}
}

// Shift is a implementation of SemanticActionSet.Shift method.
func (a *ValueActionSet) Shift(tok VToken) {
	a.semStack.push(string(tok.Lexeme()))
}

// Reduce is a implementation of SemanticActionSet.Reduce method.
func (a *ValueActionSet) Reduce(prodNum int) {
	args := a.semStack.pop(a.gram.AlternativeSymbolCount(prodNum))
	if a.err != nil {
		a.semStack.push(nil)
		return
	}

	var v interface{}
	if name := a.gram.ActionName(prodNum); name != "" {
		f, ok := a.funcs[name]
		if !ok {
			a.err = fmt.Errorf("undefined action: @%v", name)
			a.semStack.push(nil)
			return
		}
		vals := make([]interface{}, len(args))
		copy(vals, args)
		v, a.err = f(vals)
	} else if len(args) > 0 {
		v = args[0]
	}
	a.semStack.push(v)
}

// Accept is a implementation of SemanticActionSet.Accept method.
func (a *ValueActionSet) Accept() {
	a.result = a.semStack.pop(1)[0]
}

// MissError is a implementation of SemanticActionSet.MissError method.
func (a *ValueActionSet) MissError(cause VToken) {
}

// Result returns the value of the start symbol, or the first error an action
// returned.
func (a *ValueActionSet) Result() (interface{}, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

type semanticStack[T any] struct {
	frames []T
}

func newSemanticStack[T any]() *semanticStack[T] {
	return &semanticStack[T]{
		frames: make([]T, 0, 100),
	}
}

func (s *semanticStack[T]) push(f T) {
	s.frames = append(s.frames, f)
}

func (s *semanticStack[T]) pop(n int) []T {
	fs := s.frames[len(s.frames)-n:]
	s.frames = s.frames[:len(s.frames)-n]

	return fs
}

type NodeType int

const (
	NodeTypeTerminal    = 1
	NodeTypeNonTerminal = 2
)

// Node is a implementation of SyntaxTreeNode interface.
type Node struct {
	Type      NodeType
	KindName  string
	Attribute string
	Text      string
	Row       int
	Col       int
	Children  []*Node
}

func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.Type {
	case NodeTypeTerminal:
		return json.Marshal(struct {
			Type     NodeType `json:"type"`
			KindName string   `json:"kind_name"`
			Text     string   `json:"text"`
			Row      int      `json:"row"`
			Col      int      `json:"col"`
		}{
			Type:     n.Type,
			KindName: n.KindName,
			Text:     n.Text,
			Row:      n.Row,
			Col:      n.Col,
		})
	case NodeTypeNonTerminal:
		return json.Marshal(struct {
			Type      NodeType `json:"type"`
			KindName  string   `json:"kind_name"`
			Attribute string   `json:"attribute,omitempty"`
			Children  []*Node  `json:"children"`
		}{
			Type:      n.Type,
			KindName:  n.KindName,
			Attribute: n.Attribute,
			Children:  n.Children,
		})
	default:
		return nil, fmt.Errorf("invalid node type: %v", n.Type)
	}
}

// ChildCount is a implementation of SyntaxTreeNode.ChildCount.
func (n *Node) ChildCount() int {
	return len(n.Children)
}

// PrintTree prints a syntax tree whose root is `node`.
func PrintTree(w io.Writer, node *Node) {
	printTree(w, node, "", "")
}

func printTree(w io.Writer, node *Node, ruledLine string, childRuledLinePrefix string) {
	if node == nil {
		return
	}

	switch node.Type {
	case NodeTypeTerminal:
		fmt.Fprintf(w, "%v%v %v\n", ruledLine, node.KindName, strconv.Quote(node.Text))
	case NodeTypeNonTerminal:
		if node.Attribute != "" {
			fmt.Fprintf(w, "%v%v #%v\n", ruledLine, node.KindName, node.Attribute)
		} else {
			fmt.Fprintf(w, "%v%v\n", ruledLine, node.KindName)
		}

		num := len(node.Children)
		for i, child := range node.Children {
			var line string
			if num > 1 && i < num-1 {
				line = "├─ "
			} else {
				line = "└─ "
			}

			var prefix string
			if i >= num-1 {
				prefix = "   "
			} else {
				prefix = "│  "
			}

			printTree(w, child, childRuledLinePrefix+line, childRuledLinePrefix+prefix)
		}
	}
}
