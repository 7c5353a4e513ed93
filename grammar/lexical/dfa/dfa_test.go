package dfa

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nihei9/gramc/grammar/lexical/matchset"
	"github.com/nihei9/gramc/grammar/lexical/nfa"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

type testToken struct {
	name  string
	build func(m *nfa.Machine) nfa.Graph
}

func lit(t *testing.T, s string) func(m *nfa.Machine) nfa.Graph {
	return func(m *nfa.Machine) nfa.Graph {
		g, err := m.Literal(s)
		if err != nil {
			t.Fatal(err)
		}
		return g
	}
}

func plus(set matchset.Set) func(m *nfa.Machine) nfa.Graph {
	return func(m *nfa.Machine) nfa.Graph {
		return m.Plus(m.Match(set))
	}
}

func abb(t *testing.T) func(m *nfa.Machine) nfa.Graph {
	return func(m *nfa.Machine) nfa.Graph {
		ab := m.Star(m.Union(lit(t, "a")(m), lit(t, "b")(m)))
		return m.Concat(ab, lit(t, "abb")(m))
	}
}

func genMachine(t *testing.T, toks []testToken) *nfa.Machine {
	t.Helper()
	m := nfa.NewMachine()
	for i, tok := range toks {
		if err := m.AddToken(i+1, tok.name, false, tok.build(m)); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

// genInputs returns every string up to maxLen over one representative of each
// class plus a character matching no class.
func genInputs(ms *nfa.Matches, maxLen int) [][]rune {
	alphabet := []rune{'#'}
	for c := 0; c < ms.Len(); c++ {
		alphabet = append(alphabet, ms.Set(nfa.ClassID(c)).Ranges()[0].From)
	}
	inputs := [][]rune{{}}
	level := [][]rune{{}}
	for l := 0; l < maxLen; l++ {
		var next [][]rune
		for _, prefix := range level {
			for _, r := range alphabet {
				s := append(append([]rune{}, prefix...), r)
				next = append(next, s)
			}
		}
		inputs = append(inputs, next...)
		level = next
	}
	return inputs
}

func testTokenSets(t *testing.T) map[string][]testToken {
	return map[string][]testToken{
		"(a|b)*abb": {
			{name: "abb", build: abb(t)},
		},
		"keywords and identifiers": {
			{name: "if", build: lit(t, "if")},
			{name: "id", build: plus(matchset.Range('a', 'z'))},
			{name: "num", build: plus(matchset.Range('0', '9'))},
		},
		"overlapping classes": {
			{name: "A", build: plus(matchset.Range('a', 'm'))},
			{name: "B", build: plus(matchset.Range('g', 'z'))},
		},
		"bounded repetition": {
			{name: "hex", build: func(m *nfa.Machine) nfa.Graph {
				g, err := m.Repeat(m.Match(matchset.Range('0', '9').Union(matchset.Range('a', 'f'))), 2, 3)
				if err != nil {
					t.Fatal(err)
				}
				return g
			}},
			{name: "word", build: plus(matchset.Range('a', 'z'))},
		},
	}
}

func TestBuild_EquivalentToNFA(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gramc.dfa")
	defer teardown()

	for caption, toks := range testTokenSets(t) {
		t.Run(caption, func(t *testing.T) {
			m := genMachine(t, toks)
			d := Build(m)
			for _, in := range genInputs(m.Matches(), 4) {
				want := m.Run(in)
				if got := d.Run(in); got != want {
					t.Errorf("%q: want: %v, got: %v", string(in), want, got)
				}
				wantAcc, wantLen := m.Longest(in)
				gotAcc, gotLen := d.Longest(in)
				if gotAcc != wantAcc || gotLen != wantLen {
					t.Errorf("%q: longest match: want: (%v, %v), got: (%v, %v)", string(in), wantAcc, wantLen, gotAcc, gotLen)
				}
			}
		})
	}
}

func TestMinimize_PreservesLanguage(t *testing.T) {
	for caption, toks := range testTokenSets(t) {
		t.Run(caption, func(t *testing.T) {
			m := genMachine(t, toks)
			orig := Build(m)
			orig.RemoveUnreachable()
			min := orig.Clone()
			min.Minimize()

			if len(min.States) > len(orig.States) {
				t.Fatalf("minimization must not add states: %v -> %v", len(orig.States), len(min.States))
			}
			for _, in := range genInputs(m.Matches(), 5) {
				if want, got := orig.Run(in), min.Run(in); got != want {
					t.Errorf("%q: want: %v, got: %v", string(in), want, got)
				}
			}
			for i, ok := range min.Reachable() {
				if !ok {
					t.Errorf("state %v is unreachable", i)
				}
			}

			again := min.Clone()
			if n := again.Minimize(); n != 0 {
				t.Errorf("a minimal automaton must not shrink further; merged: %v", n)
			}
		})
	}
}

func TestMinimize_StateCount(t *testing.T) {
	m := genMachine(t, []testToken{{name: "abb", build: abb(t)}})
	d := Build(m)
	d.RemoveUnreachable()
	d.Minimize()
	if len(d.States) != 4 {
		t.Fatalf("(a|b)*abb needs exactly 4 states; got: %v\n%v", len(d.States), d)
	}
	if d.States[0].Accept != 0 {
		t.Fatalf("the start state must not accept")
	}
}

func TestMinimize_MergesToLowestIndex(t *testing.T) {
	m := nfa.NewMachine()
	m.Match(matchset.Single('a'))
	m.Match(matchset.Single('b'))

	// 1 and 3 are equivalent, and so are 2 and 4.
	d := &DFA{
		Matches: m.Matches(),
		States: []*State{
			{Accept: 0, Next: []int{1, 3}},
			{Accept: 0, Next: []int{2, NoState}},
			{Accept: 7, Next: []int{NoState, NoState}},
			{Accept: 0, Next: []int{4, NoState}},
			{Accept: 7, Next: []int{NoState, NoState}},
		},
	}
	if n := d.Minimize(); n != 2 {
		t.Fatalf("unexpected merge count; want: 2, got: %v", n)
	}
	want := [][]int{
		{0, 1, 1},
		{0, 2, NoState},
		{7, NoState, NoState},
	}
	if diff := cmp.Diff(want, d.Table()); diff != "" {
		t.Fatalf("unexpected table (-want +got):\n%s", diff)
	}
}

func TestRemoveUnreachable(t *testing.T) {
	m := nfa.NewMachine()
	m.Match(matchset.Single('a'))
	m.Match(matchset.Single('b'))

	d := &DFA{
		Matches: m.Matches(),
		States: []*State{
			{Accept: 0, Next: []int{2, NoState}},
			{Accept: 0, Next: []int{3, 4}},
			{Accept: 0, Next: []int{NoState, 3}},
			{Accept: 5, Next: []int{NoState, NoState}},
			{Accept: 0, Next: []int{2, 1}},
		},
	}
	if n := d.RemoveUnreachable(); n != 2 {
		t.Fatalf("unexpected removal count; want: 2, got: %v", n)
	}
	want := [][]int{
		{0, 1, NoState},
		{0, NoState, 2},
		{5, NoState, NoState},
	}
	if diff := cmp.Diff(want, d.Table()); diff != "" {
		t.Fatalf("unexpected table (-want +got):\n%s", diff)
	}
	if d.Run([]rune("ab")) != 5 {
		t.Fatalf("ab must still be accepted")
	}
}

func TestTable_DigitToken(t *testing.T) {
	m := genMachine(t, []testToken{{name: "Digit", build: plus(matchset.Range('0', '9'))}})
	d := Build(m)
	d.RemoveUnreachable()
	d.Minimize()

	want := [][]int{
		{0, 1},
		{1, 1},
	}
	if diff := cmp.Diff(want, d.Table()); diff != "" {
		t.Fatalf("unexpected table (-want +got):\n%s", diff)
	}
	if acc, n := d.Longest([]rune("123")); acc != 1 || n != 3 {
		t.Fatalf("unexpected match; want: (1, 3), got: (%v, %v)", acc, n)
	}
}
