package parser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSyntaxTreeActionSet(t *testing.T) {
	specSrc := `
token id = [a-z]+;
ignore token ws = [ ]+;

E : E "+" T #add | T ;
T : id ;
`
	cg := mustCompileGrammar(t, specSrc)
	b := NewDefaultSyntaxTreeBuilder()
	p := parse(t, cg, "a + b", NewSyntaxTreeActionSet(NewGrammar(cg), b))
	if len(p.SyntaxErrors()) > 0 {
		t.Fatalf("unexpected syntax errors: %v", p.SyntaxErrors())
	}
	tree := b.Tree()
	if tree == nil {
		t.Fatal("the builder must hold a tree after acceptance")
	}
	if tree.Attribute != "add" {
		t.Errorf("the root must carry the attribute of its production: %+v", tree)
	}

	var w strings.Builder
	PrintTree(&w, tree)
	want := `E #add
├─ E
│  └─ T
│     └─ id "a"
├─ "+" "+"
└─ T
   └─ id "b"
`
	if diff := cmp.Diff(want, w.String()); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%v", diff)
	}
}

func TestSyntaxTreeActionSet_SyntaxError(t *testing.T) {
	cg := mustCompileGrammar(t, arithmetic)
	b := NewDefaultSyntaxTreeBuilder()
	parse(t, cg, "a +", NewSyntaxTreeActionSet(NewGrammar(cg), b))
	if b.Tree() != nil {
		t.Errorf("the builder must not hold a tree after a syntax error: %+v", b.Tree())
	}
}

func TestNode_MarshalJSON(t *testing.T) {
	node := nonTermNode("T", termNode("id", "a", 4))
	node.Attribute = "leaf"
	b, err := json.Marshal(node)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":2,"kind_name":"T","attribute":"leaf","children":[{"type":1,"kind_name":"id","text":"a","row":0,"col":4}]}`
	if string(b) != want {
		t.Errorf("unexpected JSON\nwant: %v\ngot:  %v", want, string(b))
	}

	if _, err := json.Marshal(&Node{}); err == nil {
		t.Error("a node without a type must fail to marshal")
	}
}
