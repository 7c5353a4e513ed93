package lexer

import spec "github.com/nihei9/gramc/spec/grammar"

type lexSpec struct {
	spec *spec.LexicalSpec
}

func NewLexSpec(spec *spec.LexicalSpec) *lexSpec {
	return &lexSpec{
		spec: spec,
	}
}

func (s *lexSpec) InitialState() StateID {
	return 0
}

func (s *lexSpec) NextState(state StateID, c rune) (StateID, bool) {
	class, err := s.spec.ClassOf(c)
	if err != nil || class < 0 {
		return StateID(spec.StateNil), false
	}
	next, err := s.spec.DFA.Next(state.Int(), class)
	if err != nil || next == spec.StateNil {
		return StateID(spec.StateNil), false
	}
	return StateID(next), true
}

func (s *lexSpec) Accept(state StateID) (KindID, bool) {
	kind, err := s.spec.DFA.Accept(state.Int())
	if err != nil {
		return KindIDNil, false
	}
	return KindID(kind), kind != spec.KindNil
}

func (s *lexSpec) KindName(kind KindID) string {
	if kind < 0 || kind.Int() >= len(s.spec.KindNames) {
		return ""
	}
	return s.spec.KindNames[kind]
}

func (s *lexSpec) Skip(kind KindID) bool {
	if kind < 0 || kind.Int() >= len(s.spec.Skip) {
		return false
	}
	return s.spec.Skip[kind]
}
