package grammar

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	verr "github.com/nihei9/gramc/error"
	"github.com/nihei9/gramc/grammar/lexical"
	spec "github.com/nihei9/gramc/spec/grammar"
	"github.com/nihei9/gramc/spec/grammar/parser"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

const arithmetic = `
%name arith;
%start E;

token id = [a-z]+;
ignore token ws = [ \t\n]+;

E : E "+" T | T ;
T : id ;
`

func compileGrammar(t *testing.T, src string, opts ...CompileOption) (*Grammar, *spec.CompiledGrammar, *spec.Report, error) {
	t.Helper()

	gram := buildGrammar(t, src)
	cg, report, err := Compile(gram, opts...)
	return gram, cg, report, err
}

// runParser drives the action table over terminal names and records every
// action taken.
func runParser(t *testing.T, cg *spec.CompiledGrammar, input ...string) []string {
	t.Helper()

	syn := cg.Syntactic
	termNums := map[string]int{}
	for i, name := range syn.Terminals {
		termNums[name] = i
	}
	input = append(input, "$")

	var trace []string
	stack := []int{0}
	for i := 0; ; {
		sym, ok := termNums[input[i]]
		if !ok {
			t.Fatalf("unknown terminal: %v", input[i])
		}
		kind, n := spec.DecodeAction(syn.Action[stack[len(stack)-1]][sym])
		switch kind {
		case spec.ActionKindShift:
			trace = append(trace, "shift "+input[i])
			stack = append(stack, n)
			i++
		case spec.ActionKindReduce:
			if n == syn.StartRule {
				return append(trace, "accept")
			}
			rule := syn.Rules[n]
			trace = append(trace, fmt.Sprintf("reduce %v", n))
			stack = stack[:len(stack)-len(rule.RHS)]
			kind, next := spec.DecodeAction(syn.Action[stack[len(stack)-1]][rule.LHS])
			if kind != spec.ActionKindShift {
				t.Fatalf("no goto for rule %v in state %v", n, stack[len(stack)-1])
			}
			stack = append(stack, next)
		default:
			t.Fatalf("syntax error at %v (#%v); trace: %v", input[i], i, trace)
		}
	}
}

func TestCompile_Arithmetic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gramc.grammar")
	defer teardown()

	gram, cg, _, err := compileGrammar(t, arithmetic)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"$", `"+"`, "id", "ws"}, cg.Syntactic.Terminals); diff != "" {
		t.Errorf("unexpected terminals (-want +got):\n%v", diff)
	}
	if diff := cmp.Diff([]string{"E'", "E", "T"}, cg.Syntactic.NonTerminals); diff != "" {
		t.Errorf("unexpected non-terminals (-want +got):\n%v", diff)
	}
	if cg.Syntactic.StartRule != 0 {
		t.Errorf("unexpected start rule: %v", cg.Syntactic.StartRule)
	}

	tId := findRule(t, gram, "T", "id")
	eT := findRule(t, gram, "E", "T")
	eAdd := findRule(t, gram, "E", "E", `"+"`, "T")
	want := []string{
		"shift id",
		fmt.Sprintf("reduce %v", tId),
		fmt.Sprintf("reduce %v", eT),
		`shift "+"`,
		"shift id",
		fmt.Sprintf("reduce %v", tId),
		fmt.Sprintf("reduce %v", eAdd),
		"accept",
	}
	got := runParser(t, cg, "id", `"+"`, "id")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected actions (-want +got):\n%v", diff)
	}
}

func TestCompile_IsDeterministic(t *testing.T) {
	var fingerprints []string
	var tables [][][]int
	for i := 0; i < 3; i++ {
		_, cg, _, err := compileGrammar(t, arithmetic)
		if err != nil {
			t.Fatal(err)
		}
		fingerprints = append(fingerprints, cg.Fingerprint)
		tables = append(tables, cg.Syntactic.Action)
	}
	for i := 1; i < len(fingerprints); i++ {
		if fingerprints[i] != fingerprints[0] {
			t.Errorf("fingerprints differ: %v, %v", fingerprints[0], fingerprints[i])
		}
		if diff := cmp.Diff(tables[0], tables[i]); diff != "" {
			t.Errorf("action tables differ:\n%v", diff)
		}
	}

	_, cg, _, err := compileGrammar(t, arithmetic, CompressionLevel(lexical.CompressionLevelMin))
	if err != nil {
		t.Fatal(err)
	}
	if cg.Fingerprint == fingerprints[0] {
		t.Errorf("a different scanner table format must change the fingerprint")
	}
}

func TestCompile_Conflict(t *testing.T) {
	src := `
token id = [a-z]+;
E : E "+" E | id ;
`
	_, cg, report, err := compileGrammar(t, src, EnableReporting())
	if cg != nil {
		t.Fatal("an ambiguous grammar must not be compiled")
	}
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cerr.Conflicts) != 1 {
		t.Fatalf("want 1 conflict, got: %v", err)
	}
	c := cerr.Conflicts[0]
	if c.Kind != conflictKindShiftReduce || cerr.Symbols[c.Symbol] != `"+"` {
		t.Errorf("unexpected conflict: %+v", c)
	}
	if !strings.Contains(err.Error(), fmt.Sprintf(`state %v, symbol "+": shift/reduce conflict`, c.State)) {
		t.Errorf("the message must name the state and the symbol: %v", err)
	}
	if report == nil || len(report.States[c.State].Conflicts) != 1 {
		t.Errorf("the report must list the conflict")
	}
}

func TestCompile_Override(t *testing.T) {
	src := `
token id = [a-z]+;
E : E "+" E | id ;
`
	_, _, _, err := compileGrammar(t, src)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("unexpected error: %v", err)
	}
	state := cerr.Conflicts[0].State

	t.Run("reduce makes + left-associative", func(t *testing.T) {
		gram, cg, report, err := compileGrammar(t, fmt.Sprintf(`%v%%conflict %v "+" reduce;`, src, state), EnableReporting())
		if err != nil {
			t.Fatal(err)
		}
		eAdd := findRule(t, gram, "E", "E", `"+"`, "E")
		eId := findRule(t, gram, "E", "id")
		want := []string{
			"shift id",
			fmt.Sprintf("reduce %v", eId),
			`shift "+"`,
			"shift id",
			fmt.Sprintf("reduce %v", eId),
			fmt.Sprintf("reduce %v", eAdd),
			`shift "+"`,
			"shift id",
			fmt.Sprintf("reduce %v", eId),
			fmt.Sprintf("reduce %v", eAdd),
			"accept",
		}
		got := runParser(t, cg, "id", `"+"`, "id", `"+"`, "id")
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("unexpected actions (-want +got):\n%v", diff)
		}

		resolved := report.States[state].Resolved
		if len(resolved) != 1 || resolved[0].Adopted == nil || *resolved[0].Adopted != spec.EncodeReduce(eAdd) {
			t.Errorf("the report must record the adopted action: %+v", resolved)
		}
	})

	t.Run("shift makes + right-associative", func(t *testing.T) {
		gram, cg, _, err := compileGrammar(t, fmt.Sprintf(`%v%%conflict %v "+" shift;`, src, state))
		if err != nil {
			t.Fatal(err)
		}
		eAdd := findRule(t, gram, "E", "E", `"+"`, "E")
		got := runParser(t, cg, "id", `"+"`, "id", `"+"`, "id")
		var reduces []string
		for _, act := range got {
			if act == fmt.Sprintf("reduce %v", eAdd) {
				reduces = append(reduces, act)
			}
		}
		if len(reduces) != 2 || got[len(got)-3] != reduces[0] || got[len(got)-2] != reduces[1] {
			t.Errorf("both additions must be reduced at the end: %v", got)
		}
	})

	t.Run("an override matching no candidate is an error", func(t *testing.T) {
		_, _, _, err := compileGrammar(t, fmt.Sprintf(`%v%%conflict %v "+" reduce 99;`, src, state))
		var errs verr.SpecErrors
		if !errors.As(err, &errs) || errs[0].Cause != semErrOverrideNoMatch {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("an override on a conflict-free cell is ignored", func(t *testing.T) {
		_, _, report, err := compileGrammar(t, fmt.Sprintf(`%v%%conflict %v "+" reduce; %%conflict 0 id shift;`, src, state), EnableReporting())
		if err != nil {
			t.Fatal(err)
		}
		if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "the override is ignored") {
			t.Errorf("unexpected warnings: %v", report.Warnings)
		}
	})

	t.Run("an override on an unknown state is an error", func(t *testing.T) {
		_, _, _, err := compileGrammar(t, src+`%conflict 1000 "+" shift;`)
		var errs verr.SpecErrors
		if !errors.As(err, &errs) || errs[0].Cause != semErrOverrideState {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestCompile_ReduceReduceConflict(t *testing.T) {
	src := `
token id = [a-z]+;
s : a | b ;
a : id ;
b : id ;
`
	_, _, _, err := compileGrammar(t, src)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("unexpected error: %v", err)
	}
	c := cerr.Conflicts[0]
	if c.Kind != conflictKindReduceReduce || cerr.Symbols[c.Symbol] != "$" || len(c.Candidates) != 2 {
		t.Fatalf("unexpected conflict: %+v", c)
	}

	_, _, _, err = compileGrammar(t, fmt.Sprintf(`%v%%conflict %v $ reduce;`, src, c.State))
	if err == nil {
		t.Fatal("a reduce override without a target must be ambiguous here")
	}
	var errs verr.SpecErrors
	if !errors.As(err, &errs) || errs[0].Cause != semErrOverrideAmbiguous {
		t.Fatalf("unexpected error: %v", err)
	}

	aId := findRule(t, buildGrammar(t, src), "a", "id")
	gram, cg, _, err := compileGrammar(t, fmt.Sprintf(`%v%%conflict %v $ reduce %v;`, src, c.State, aId))
	if err != nil {
		t.Fatal(err)
	}
	sA := findRule(t, gram, "s", "a")
	want := []string{
		"shift id",
		fmt.Sprintf("reduce %v", aId),
		fmt.Sprintf("reduce %v", sA),
		"accept",
	}
	if diff := cmp.Diff(want, runParser(t, cg, "id")); diff != "" {
		t.Errorf("unexpected actions (-want +got):\n%v", diff)
	}
}

func TestCompile_Report(t *testing.T) {
	gram, _, report, err := compileGrammar(t, arithmetic, EnableReporting())
	if err != nil {
		t.Fatal(err)
	}
	if report.Name != "arith" {
		t.Errorf("unexpected name: %v", report.Name)
	}
	wantTerms := []*spec.Terminal{
		{Number: 0, Name: "$"},
		{Number: 1, Name: `"+"`, Anonymous: true, Pattern: `"+"`},
		{Number: 2, Name: "id", Pattern: "[a-z]+"},
		{Number: 3, Name: "ws", Pattern: `[\u0009-\u000A\u0020]+`, Skip: true},
	}
	if diff := cmp.Diff(wantTerms, report.Terminals); diff != "" {
		t.Errorf("unexpected terminals (-want +got):\n%v", diff)
	}
	if report.States[0].Grounding != -1 {
		t.Errorf("the initial state has no grounding symbol: %v", report.States[0].Grounding)
	}
	for _, s := range report.States[1:] {
		if s.Grounding < 0 {
			t.Errorf("state %v has no grounding symbol", s.Number)
		}
	}
	if len(report.Rules) != len(gram.productionSet.getAllProductions()) {
		t.Errorf("unexpected rule count: %v", len(report.Rules))
	}
}

func TestBuild_LiteralsAndOrdering(t *testing.T) {
	src := `
token plus = "+";
token id = [a-z]+;
s : s plus "if" | s "+" id | id ;
`
	gram := buildGrammar(t, src)
	terms, err := gram.symbolTable.Reader().TerminalTexts()
	if err != nil {
		t.Fatal(err)
	}
	// "+" reuses the token plus; "if" becomes an anonymous terminal declared
	// before every named token.
	if diff := cmp.Diff([]string{"$", `"if"`, "plus", "id"}, terms); diff != "" {
		t.Errorf("unexpected terminals (-want +got):\n%v", diff)
	}

	_, cg, _, err := compileGrammar(t, src)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(terms, cg.Lexical.KindNames); diff != "" {
		t.Errorf("kinds must be terminals (-want +got):\n%v", diff)
	}
}

func TestBuild_RemovesUnreachableProductions(t *testing.T) {
	gram := buildGrammar(t, `
%start s;
token a = "a";
s : a ;
orphan : s "z" ;
`)
	if len(gram.Warnings()) != 1 || !strings.Contains(gram.Warnings()[0], "orphan") {
		t.Fatalf("unexpected warnings: %v", gram.Warnings())
	}
	symbols := gram.symbolTable.Reader()
	for _, name := range []string{"orphan", `"z"`} {
		if _, ok := symbols.ToSymbol(name); ok {
			t.Errorf("%v must be removed", name)
		}
	}
	if n := len(gram.productionSet.getAllProductions()); n != 2 {
		t.Errorf("want 2 productions, got %v", n)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		cause   error
		row     int
	}{
		{
			caption: "a grammar without productions",
			src:     `token a = "a";`,
			cause:   semErrNoProduction,
		},
		{
			caption: "an undefined symbol",
			src:     "token a = \"a\";\ns : a b ;",
			cause:   semErrUndefinedSym,
			row:     2,
		},
		{
			caption: "an undefined start symbol",
			src:     "%start x;\ntoken a = \"a\";\ns : a ;",
			cause:   semErrUndefinedStart,
			row:     1,
		},
		{
			caption: "a token used as a non-terminal",
			src:     "token a = \"a\";\ns : a ;\na : s ;",
			cause:   semErrDuplicateName,
			row:     3,
		},
		{
			caption: "an ignored token in a production",
			src:     "ignore token ws = \" \";\ntoken a = \"a\";\ns : a ws ;",
			cause:   semErrTermCannotBeSkipped,
			row:     3,
		},
		{
			caption: "a duplicate alternative",
			src:     "token a = \"a\";\ns : a\n  | a ;",
			cause:   semErrDuplicateProduction,
			row:     3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			ast, err := parser.ParseString("test.gram", tt.src)
			if err != nil {
				t.Fatal(err)
			}
			b := GrammarBuilder{
				AST:      ast,
				FilePath: "test.gram",
			}
			_, err = b.Build()
			var errs verr.SpecErrors
			if !errors.As(err, &errs) {
				t.Fatalf("unexpected error: %v", err)
			}
			if errs[0].Cause != tt.cause {
				t.Errorf("want: %v, got: %v", tt.cause, errs[0].Cause)
			}
			if errs[0].Row != tt.row {
				t.Errorf("unexpected row: want: %v, got: %v", tt.row, errs[0].Row)
			}
		})
	}
}

func TestCompile_LexicalErrors(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		cause   error
		row     int
	}{
		{
			caption: "a duplicate class",
			src:     "class c = [a];\nclass c = [b];\ntoken a = {c};\ns : a ;",
			cause:   lexical.ErrDuplicateClass,
			row:     2,
		},
		{
			caption: "an undefined class",
			src:     "token a = {c};\ns : a ;",
			cause:   lexical.ErrUndefinedClass,
			row:     1,
		},
		{
			caption: "a duplicate token",
			src:     "token a = \"a\";\ntoken a = \"b\";\ns : a ;",
			cause:   lexical.ErrDuplicateToken,
			row:     2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, _, _, err := compileGrammar(t, tt.src)
			var errs verr.SpecErrors
			if !errors.As(err, &errs) {
				t.Fatalf("unexpected error: %v", err)
			}
			if !errors.Is(errs[0], tt.cause) {
				t.Errorf("want: %v, got: %v", tt.cause, errs[0])
			}
			if errs[0].Row != tt.row {
				t.Errorf("unexpected row: want: %v, got: %v", tt.row, errs[0].Row)
			}
		})
	}
}
