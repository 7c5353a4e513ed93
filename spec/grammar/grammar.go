// Package grammar defines the compiled form of a grammar: the scanner tables,
// the LR(1) action table and the symbol names that accompany them. Every
// struct marshals to JSON.
package grammar

import (
	"fmt"

	"github.com/nihei9/gramc/compressor"
)

type CompiledGrammar struct {
	Name        string         `json:"name"`
	Fingerprint string         `json:"fingerprint"`
	Lexical     *LexicalSpec   `json:"lexical"`
	Syntactic   *SyntacticSpec `json:"syntactic"`
}

const (
	// CharMapRowCount * CharMapColCount covers the 16-bit character space.
	// A character c is looked up at row c>>8, column c&0xff.
	CharMapRowCount = 256
	CharMapColCount = 256

	// ClassNil is the char map value of a character belonging to no class.
	// Any other value is a class id plus one.
	ClassNil = 0

	// StateNil marks a missing transition.
	StateNil = -1

	// KindNil is the accept column value of a non-accepting state and the
	// kind of the end of input.
	KindNil = 0
)

// TransitionTable is the scanner automaton. Column 0 of a row holds the kind
// a state accepts and column c+1 the next state on class c. Exactly one of
// Table and Compressed is set.
type TransitionTable struct {
	RowCount   int                              `json:"row_count"`
	ColCount   int                              `json:"col_count"`
	Table      [][]int                          `json:"table,omitempty"`
	Compressed *compressor.RowDisplacementTable `json:"compressed,omitempty"`
}

func (t *TransitionTable) Lookup(state, col int) (int, error) {
	if t.Compressed != nil {
		return t.Compressed.Lookup(state, col)
	}
	if state < 0 || state >= len(t.Table) || col < 0 || col >= t.ColCount {
		return StateNil, fmt.Errorf("indexes are out of range: [%v, %v]", state, col)
	}
	return t.Table[state][col], nil
}

// Accept returns the kind state accepts or KindNil.
func (t *TransitionTable) Accept(state int) (int, error) {
	return t.Lookup(state, 0)
}

// Next returns the state following state on class.
func (t *TransitionTable) Next(state, class int) (int, error) {
	return t.Lookup(state, class+1)
}

type LexicalSpec struct {
	// KindNames is indexed by kind. Kinds share their ids with the terminal
	// symbols, so KindNames[0] names the end of input.
	KindNames        []string                       `json:"kind_names"`
	Skip             []bool                         `json:"skip"`
	ClassCount       int                            `json:"class_count"`
	Classes          []string                       `json:"classes"`
	CharMap          *compressor.UniqueEntriesTable `json:"char_map"`
	DFA              *TransitionTable               `json:"dfa"`
	CompressionLevel int                            `json:"compression_level"`
}

// ClassOf returns the class of c, or -1 when c belongs to no class.
func (s *LexicalSpec) ClassOf(c rune) (int, error) {
	if c < 0 || c >= CharMapRowCount*CharMapColCount {
		return -1, nil
	}
	v, err := s.CharMap.Lookup(int(c>>8), int(c&0xff))
	if err != nil {
		return -1, err
	}
	return v - 1, nil
}

type Rule struct {
	ID        int    `json:"id"`
	LHS       int    `json:"lhs"`
	RHS       []int  `json:"rhs"`
	Attribute string `json:"attribute,omitempty"`
	Action    string `json:"action,omitempty"`
}

// ActionError is the action table value of a syntax error. A value v >= 0
// shifts or goes to state v, and v < -1 reduces by rule -v-2.
const ActionError = -1

type ActionKind string

const (
	ActionKindError  = ActionKind("error")
	ActionKindShift  = ActionKind("shift")
	ActionKindReduce = ActionKind("reduce")
)

// EncodeShift returns the action value shifting to state.
func EncodeShift(state int) int {
	return state
}

// EncodeReduce returns the action value reducing by rule.
func EncodeReduce(rule int) int {
	return -rule - 2
}

// DecodeAction splits an action value into its kind and its target: a state
// for a shift and a rule for a reduce.
func DecodeAction(v int) (ActionKind, int) {
	switch {
	case v == ActionError:
		return ActionKindError, 0
	case v >= 0:
		return ActionKindShift, v
	}
	return ActionKindReduce, -v - 2
}

type SyntacticSpec struct {
	Action       [][]int  `json:"action"`
	StateCount   int      `json:"state_count"`
	Terminals    []string `json:"terminals"`
	NonTerminals []string `json:"non_terminals"`
	Rules        []*Rule  `json:"rules"`
	StartRule    int      `json:"start_rule"`
}

// SymbolName returns the name of a symbol id. Terminals come first.
func (s *SyntacticSpec) SymbolName(sym int) string {
	switch {
	case sym < 0:
		return ""
	case sym < len(s.Terminals):
		return s.Terminals[sym]
	case sym < len(s.Terminals)+len(s.NonTerminals):
		return s.NonTerminals[sym-len(s.Terminals)]
	}
	return ""
}
