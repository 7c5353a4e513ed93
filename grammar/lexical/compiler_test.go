package lexical

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nihei9/gramc/grammar/lexical/matchset"
	"github.com/nihei9/gramc/grammar/lexical/nfa"
	"github.com/nihei9/gramc/grammar/symbol"
	spec "github.com/nihei9/gramc/spec/grammar"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func genSymbols(t *testing.T, lexspec *Spec) *symbol.SymbolTableReader {
	t.Helper()
	tab := symbol.NewSymbolTable()
	w := tab.Writer()
	for _, tok := range lexspec.Tokens {
		if _, err := w.RegisterTerminalSymbol(tok.Name); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := w.RegisterStartSymbol("s'"); err != nil {
		t.Fatal(err)
	}
	return tab.Reader()
}

func compileSpec(t *testing.T, lexspec *Spec, opts ...CompilerOption) *spec.LexicalSpec {
	t.Helper()
	ls, err, cerrs := Compile(lexspec, genSymbols(t, lexspec), opts...)
	if err != nil {
		for _, cerr := range cerrs {
			t.Log(cerr)
		}
		t.Fatal(err)
	}
	return ls
}

// longest runs the scanner tables over input and returns the kind and the
// length of the longest match.
func longest(t *testing.T, ls *spec.LexicalSpec, input string) (string, int) {
	t.Helper()
	state := 0
	kind, length := spec.KindNil, 0
	for i, r := range []rune(input) {
		c, err := ls.ClassOf(r)
		if err != nil {
			t.Fatal(err)
		}
		if c < 0 {
			break
		}
		state, err = ls.DFA.Next(state, c)
		if err != nil {
			t.Fatal(err)
		}
		if state == spec.StateNil {
			break
		}
		acc, err := ls.DFA.Accept(state)
		if err != nil {
			t.Fatal(err)
		}
		if acc != spec.KindNil {
			kind, length = acc, i+1
		}
	}
	if kind == spec.KindNil {
		return "", 0
	}
	return ls.KindNames[kind], length
}

type match struct {
	input  string
	kind   string
	length int
}

func TestCompile_Scenarios(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gramc.lexical")
	defer teardown()

	tests := []struct {
		caption    string
		spec       *Spec
		classCount int
		matches    []match
	}{
		{
			caption: "a digit token",
			spec: &Spec{
				Tokens: []*TokenDef{
					{Name: "Digit", Expr: &RepeatExpr{Operand: &SetExpr{Set: matchset.Range('0', '9')}, Min: 1, Max: -1}},
				},
			},
			classCount: 1,
			matches: []match{
				{input: "123", kind: "Digit", length: 3},
				{input: "12a", kind: "Digit", length: 2},
				{input: "a", kind: "", length: 0},
			},
		},
		{
			caption: "a token over a named class",
			spec: &Spec{
				Classes: []*ClassDef{
					{Name: "Vowel", Expr: &ClassSet{Set: matchset.FromRunes('a', 'e', 'i', 'o', 'u')}},
				},
				Tokens: []*TokenDef{
					{Name: "V", Expr: &RepeatExpr{Operand: &ClassRefExpr{Name: "Vowel"}, Min: 1, Max: -1}},
				},
			},
			classCount: 1,
			matches: []match{
				{input: "aeiou", kind: "V", length: 5},
				{input: "xaeiou", kind: "", length: 0},
			},
		},
		{
			caption: "overlapping classes",
			spec: &Spec{
				Classes: []*ClassDef{
					{Name: "A", Expr: &ClassSet{Set: matchset.Range('a', 'm')}},
					{Name: "B", Expr: &ClassSet{Set: matchset.Range('g', 'z')}},
				},
				Tokens: []*TokenDef{
					{Name: "TA", Expr: &RepeatExpr{Operand: &ClassRefExpr{Name: "A"}, Min: 1, Max: -1}},
					{Name: "TB", Expr: &RepeatExpr{Operand: &ClassRefExpr{Name: "B"}, Min: 1, Max: -1}},
				},
			},
			classCount: 3,
			matches: []match{
				{input: "abc", kind: "TA", length: 3},
				{input: "ghi", kind: "TA", length: 3},
				{input: "xyz", kind: "TB", length: 3},
				{input: "mn", kind: "TB", length: 2},
				{input: "az", kind: "TA", length: 1},
			},
		},
		{
			caption: "a keyword declared before an identifier",
			spec: &Spec{
				Tokens: []*TokenDef{
					{Name: "if", Expr: &StringExpr{Value: "if"}},
					{Name: "id", Expr: &RepeatExpr{Operand: &SetExpr{Set: matchset.Range('a', 'z')}, Min: 1, Max: -1}},
					{Name: "ws", Ignore: true, Expr: &RepeatExpr{Operand: &CharExpr{Char: ' '}, Min: 1, Max: -1}},
				},
			},
			classCount: 4,
			matches: []match{
				{input: "if", kind: "if", length: 2},
				{input: "iff", kind: "id", length: 3},
				{input: "  x", kind: "ws", length: 2},
			},
		},
		{
			caption: "class algebra",
			spec: &Spec{
				Classes: []*ClassDef{
					{Name: "Letter", Expr: &ClassUnion{
						Left:  &ClassSet{Set: matchset.Range('a', 'z')},
						Right: &ClassSet{Set: matchset.Range('A', 'Z')},
					}},
					{Name: "Consonant", Expr: &ClassDiff{
						Left:  &ClassRef{Name: "Letter"},
						Right: &ClassRef{Name: "Vowel"},
					}},
					{Name: "Vowel", Expr: &ClassSet{Set: matchset.FromRunes('a', 'e', 'i', 'o', 'u')}},
					{Name: "LowerConsonant", Expr: &ClassIntersect{
						Left:  &ClassRef{Name: "Consonant"},
						Right: &ClassSet{Set: matchset.Range('a', 'z')},
					}},
					{Name: "Other", Expr: &ClassInvert{Operand: &ClassRef{Name: "Letter"}}},
				},
				Tokens: []*TokenDef{
					{Name: "lc", Expr: &RepeatExpr{Operand: &ClassRefExpr{Name: "LowerConsonant"}, Min: 2, Max: 3}},
					{Name: "other", Expr: &ClassRefExpr{Name: "Other"}},
				},
			},
			classCount: 2,
			matches: []match{
				{input: "bcdf", kind: "lc", length: 3},
				{input: "b", kind: "", length: 0},
				{input: "ba", kind: "", length: 0},
				{input: "1", kind: "other", length: 1},
				{input: "B", kind: "", length: 0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			for lv := CompressionLevelMin; lv <= CompressionLevelMax; lv++ {
				ls := compileSpec(t, tt.spec, CompressionLevel(lv))
				if ls.ClassCount != tt.classCount {
					t.Fatalf("unexpected class count; want: %v, got: %v (%v)", tt.classCount, ls.ClassCount, ls.Classes)
				}
				for _, m := range tt.matches {
					kind, length := longest(t, ls, m.input)
					if kind != m.kind || length != m.length {
						t.Errorf("level %v: %q: want: (%v, %v), got: (%v, %v)", lv, m.input, m.kind, m.length, kind, length)
					}
				}
			}
		})
	}
}

func TestCompile_DigitTable(t *testing.T) {
	ls := compileSpec(t, &Spec{
		Tokens: []*TokenDef{
			{Name: "Digit", Expr: &RepeatExpr{Operand: &SetExpr{Set: matchset.Range('0', '9')}, Min: 1, Max: -1}},
		},
	})
	want := [][]int{
		{0, 1},
		{1, 1},
	}
	if diff := cmp.Diff(want, ls.DFA.Table); diff != "" {
		t.Fatalf("unexpected transition table (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{symbol.NameEOF, "Digit"}, ls.KindNames); diff != "" {
		t.Fatalf("unexpected kind names (-want +got):\n%s", diff)
	}
	for _, c := range []rune{'0', '5', '9'} {
		if cls, _ := ls.ClassOf(c); cls != 0 {
			t.Errorf("%q must belong to class 0; got: %v", c, cls)
		}
	}
	for _, c := range []rune{'a', ' ', '\uffff'} {
		if cls, _ := ls.ClassOf(c); cls != -1 {
			t.Errorf("%q must belong to no class; got: %v", c, cls)
		}
	}
	if ls.CharMap.UniqueRowCount() != 2 {
		t.Errorf("the char map must fold to two rows; got: %v", ls.CharMap.UniqueRowCount())
	}
}

func TestCompile_Errors(t *testing.T) {
	plusA := &RepeatExpr{Operand: &CharExpr{Char: 'a'}, Min: 1, Max: -1}
	tests := []struct {
		caption string
		spec    *Spec
		kind    string
		cause   error
		pos     Position
	}{
		{
			caption: "duplicate classes",
			spec: &Spec{
				Classes: []*ClassDef{
					{Name: "A", Expr: &ClassSet{Set: matchset.Single('a')}, Pos: Position{Row: 1, Col: 1}},
					{Name: "A", Expr: &ClassSet{Set: matchset.Single('b')}, Pos: Position{Row: 2, Col: 1}},
				},
				Tokens: []*TokenDef{{Name: "a", Expr: plusA}},
			},
			kind:  "A",
			cause: ErrDuplicateClass,
			pos:   Position{Row: 2, Col: 1},
		},
		{
			caption: "duplicate tokens",
			spec: &Spec{
				Tokens: []*TokenDef{
					{Name: "a", Expr: plusA, Pos: Position{Row: 1, Col: 1}},
					{Name: "a", Expr: plusA, Pos: Position{Row: 3, Col: 1}},
				},
			},
			kind:  "a",
			cause: ErrDuplicateToken,
			pos:   Position{Row: 3, Col: 1},
		},
		{
			caption: "a missing class referenced by a class",
			spec: &Spec{
				Classes: []*ClassDef{
					{Name: "A", Expr: &ClassRef{Name: "B", Pos: Position{Row: 1, Col: 9}}},
				},
				Tokens: []*TokenDef{{Name: "a", Expr: plusA}},
			},
			kind:  "B",
			cause: ErrUndefinedClass,
			pos:   Position{Row: 1, Col: 9},
		},
		{
			caption: "a missing class referenced by a token",
			spec: &Spec{
				Tokens: []*TokenDef{
					{Name: "a", Expr: &ClassRefExpr{Name: "Nope", Pos: Position{Row: 4, Col: 11}}, Pos: Position{Row: 4, Col: 1}},
				},
			},
			kind:  "a",
			cause: ErrUndefinedClass,
			pos:   Position{Row: 4, Col: 11},
		},
		{
			caption: "cyclic classes",
			spec: &Spec{
				Classes: []*ClassDef{
					{Name: "A", Expr: &ClassUnion{Left: &ClassSet{Set: matchset.Single('a')}, Right: &ClassRef{Name: "B"}}, Pos: Position{Row: 1, Col: 1}},
					{Name: "B", Expr: &ClassRef{Name: "A"}, Pos: Position{Row: 2, Col: 1}},
				},
				Tokens: []*TokenDef{{Name: "a", Expr: plusA}},
			},
			kind:  "A",
			cause: ErrCyclicClass,
			pos:   Position{Row: 1, Col: 1},
		},
		{
			caption: "a token matching the empty string",
			spec: &Spec{
				Tokens: []*TokenDef{
					{Name: "a", Expr: plusA},
					{Name: "opt", Expr: &RepeatExpr{Operand: &CharExpr{Char: 'b'}, Min: 0, Max: -1}, Pos: Position{Row: 2, Col: 1}},
				},
			},
			kind:  "opt",
			cause: ErrMatchesEmptyString,
			pos:   Position{Row: 2, Col: 1},
		},
		{
			caption: "an invalid repetition",
			spec: &Spec{
				Tokens: []*TokenDef{
					{Name: "a", Expr: &RepeatExpr{Operand: &CharExpr{Char: 'a'}, Min: 3, Max: 2}, Pos: Position{Row: 1, Col: 1}},
				},
			},
			kind:  "a",
			cause: nfa.ErrInvalidRepeat,
			pos:   Position{Row: 1, Col: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err, cerrs := Compile(tt.spec, genSymbols(t, tt.spec))
			if err == nil {
				t.Fatalf("expected error didn't occur")
			}
			if len(cerrs) != 1 {
				t.Fatalf("unexpected error count; want: 1, got: %v (%v)", len(cerrs), cerrs)
			}
			cerr := cerrs[0]
			if !errors.Is(cerr, tt.cause) {
				t.Fatalf("unexpected cause; want: %v, got: %v", tt.cause, cerr.Cause)
			}
			if cerr.Kind != tt.kind {
				t.Fatalf("unexpected kind; want: %v, got: %v", tt.kind, cerr.Kind)
			}
			if cerr.Pos != tt.pos {
				t.Fatalf("unexpected position; want: %+v, got: %+v", tt.pos, cerr.Pos)
			}
		})
	}
}

func TestCompile_UnknownKind(t *testing.T) {
	lexspec := &Spec{
		Tokens: []*TokenDef{
			{Name: "a", Expr: &CharExpr{Char: 'a'}},
		},
	}
	symbols := symbol.NewSymbolTable()
	_, err, cerrs := Compile(lexspec, symbols.Reader())
	if err == nil || len(cerrs) != 1 || !errors.Is(cerrs[0], ErrUnknownKind) {
		t.Fatalf("a token without a terminal symbol must be rejected; got: %v, %v", err, cerrs)
	}
}

// Token names are case-sensitive identifiers, so names differing only in
// spelling style are distinct kinds.
func TestCompile_NamesDifferingInCase(t *testing.T) {
	ls := compileSpec(t, &Spec{
		Tokens: []*TokenDef{
			{Name: "left_paren", Expr: &CharExpr{Char: '('}},
			{Name: "LeftParen", Expr: &CharExpr{Char: '['}},
		},
	})
	for input, want := range map[string]string{
		"(": "left_paren",
		"[": "LeftParen",
	} {
		kind, length := longest(t, ls, input)
		if kind != want || length != 1 {
			t.Errorf("%q: want: %v, got: %v (length %v)", input, want, kind, length)
		}
	}
}

func TestString(t *testing.T) {
	e := &ConcatExpr{
		Items: []Expr{
			&StringExpr{Value: "0x"},
			&RepeatExpr{Operand: &AltExpr{Items: []Expr{&SetExpr{Set: matchset.Range('0', '9')}, &ClassRefExpr{Name: "Hex"}}}, Min: 1, Max: 4},
			&RepeatExpr{Operand: &AnyExpr{}, Min: 0, Max: 1},
		},
	}
	want := `("0x" ([0-9] | {Hex}){1,4} .?)`
	if got := String(e); got != want {
		t.Fatalf("unexpected rendering; want: %v, got: %v", want, got)
	}
}
