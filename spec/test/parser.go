// Package test reads grammar test cases. A test case has three parts split
// by lines of three or more hyphens: a description, a source text and the
// syntax tree the source must produce.
//
//	sum of two ids
//	---
//	a + b
//	---
//	(E
//	    (E (T (id "a")))
//	    ("+")
//	    (T (id "b")))
//
// A tree is `(kind child...)` or `(kind "lexeme")`. A kind is a name, `_`
// matching any kind, or a string literal naming the anonymous terminal of
// that literal. A leaf without a lexeme matches any lexeme.
package test

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	gramparser "github.com/nihei9/gramc/spec/grammar/parser"
)

type TreeDiff struct {
	ExpectedPath string
	ActualPath   string
	Message      string
}

func newTreeDiff(expected, actual *Tree, message string) *TreeDiff {
	return &TreeDiff{
		ExpectedPath: expected.path(),
		ActualPath:   actual.path(),
		Message:      message,
	}
}

type Tree struct {
	Parent   *Tree
	Offset   int
	Kind     string
	Children []*Tree
	Lexeme   string

	// HasLexeme is true when Lexeme must be compared.
	HasLexeme bool
}

func NewNonTerminalTree(kind string, children ...*Tree) *Tree {
	return &Tree{
		Kind:     kind,
		Children: children,
	}
}

func NewTerminalNode(kind string, lexeme string) *Tree {
	return &Tree{
		Kind:      kind,
		Lexeme:    lexeme,
		HasLexeme: true,
	}
}

func (t *Tree) Fill() *Tree {
	for i, c := range t.Children {
		c.Parent = t
		c.Offset = i
		c.Fill()
	}
	return t
}

func (t *Tree) path() string {
	if t.Parent == nil {
		return t.Kind
	}
	return fmt.Sprintf("%v.[%v]%v", t.Parent.path(), t.Offset, t.Kind)
}

func (t *Tree) Format() []byte {
	var b bytes.Buffer
	t.format(&b, 0)
	return b.Bytes()
}

func (t *Tree) format(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("    ")
	}
	buf.WriteString("(")
	if t.Kind == "" {
		buf.WriteString("<anonymous>")
	} else {
		buf.WriteString(t.Kind)
	}
	if t.HasLexeme {
		fmt.Fprintf(buf, " %q", t.Lexeme)
	}
	if len(t.Children) > 0 {
		buf.WriteString("\n")
		for i, c := range t.Children {
			c.format(buf, depth+1)
			if i < len(t.Children)-1 {
				buf.WriteString("\n")
			}
		}
	}
	buf.WriteString(")")
}

func DiffTree(expected, actual *Tree) []*TreeDiff {
	if expected == nil && actual == nil {
		return nil
	}
	// _ matches any symbols.
	if expected.Kind != "_" && actual.Kind != expected.Kind {
		msg := fmt.Sprintf("unexpected kind: expected '%v' but got '%v'", expected.Kind, actual.Kind)
		return []*TreeDiff{
			newTreeDiff(expected, actual, msg),
		}
	}
	if expected.HasLexeme && expected.Lexeme != actual.Lexeme {
		msg := fmt.Sprintf("unexpected lexeme: expected '%v' but got '%v'", expected.Lexeme, actual.Lexeme)
		return []*TreeDiff{
			newTreeDiff(expected, actual, msg),
		}
	}
	if len(actual.Children) != len(expected.Children) {
		msg := fmt.Sprintf("unexpected node count: expected %v but got %v", len(expected.Children), len(actual.Children))
		return []*TreeDiff{
			newTreeDiff(expected, actual, msg),
		}
	}
	var diffs []*TreeDiff
	for i, exp := range expected.Children {
		if ds := DiffTree(exp, actual.Children[i]); len(ds) > 0 {
			diffs = append(diffs, ds...)
		}
	}
	return diffs
}

type TestCase struct {
	Description string
	Source      []byte
	Output      *Tree
}

func ParseTestCase(r io.Reader) (*TestCase, error) {
	parts, err := splitIntoParts(r)
	if err != nil {
		return nil, err
	}
	if len(parts) != 3 {
		return nil, fmt.Errorf("too many or too few part delimiters: a test case consists of just tree parts: %v parts found", len(parts))
	}

	tp := &treeParser{
		lineOffset: parts[0].lineCount + parts[1].lineCount + 2,
	}
	tree, err := tp.parseTree(parts[2].buf)
	if err != nil {
		return nil, err
	}

	return &TestCase{
		Description: string(parts[0].buf),
		Source:      parts[1].buf,
		Output:      tree,
	}, nil
}

type testCasePart struct {
	buf       []byte
	lineCount int
}

func splitIntoParts(r io.Reader) ([]*testCasePart, error) {
	var bufs []*testCasePart
	s := bufio.NewScanner(r)
	for {
		buf, lineCount, err := readPart(s)
		if err != nil {
			return nil, err
		}
		if buf == nil {
			break
		}
		bufs = append(bufs, &testCasePart{
			buf:       buf,
			lineCount: lineCount,
		})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return bufs, nil
}

var reDelim = regexp.MustCompile(`^\s*---+\s*$`)

func readPart(s *bufio.Scanner) ([]byte, int, error) {
	if !s.Scan() {
		return nil, 0, s.Err()
	}
	buf := &bytes.Buffer{}
	line := s.Bytes()
	if reDelim.Match(line) {
		// Return an empty slice because (*bytes.Buffer).Bytes() returns nil if we have never written data.
		return []byte{}, 0, nil
	}
	_, err := buf.Write(line)
	if err != nil {
		return nil, 0, err
	}
	lineCount := 1
	for s.Scan() {
		line := s.Bytes()
		if reDelim.Match(line) {
			return buf.Bytes(), lineCount, nil
		}
		_, err := buf.Write([]byte("\n"))
		if err != nil {
			return nil, 0, err
		}
		_, err = buf.Write(line)
		if err != nil {
			return nil, 0, err
		}
		lineCount++
	}
	if err := s.Err(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), lineCount, nil
}

var treeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `"(\\.|[^"\\\n])*"|'(\\.|[^'\\\n])*'`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_']*`},
	{Name: "Punct", Pattern: `[()]`},
})

type treeNode struct {
	Pos      lexer.Position
	Name     *string     `parser:"'(' ( @Ident"`
	Literal  *string     `parser:"    | @String )"`
	Lexeme   *string     `parser:"@String?"`
	Children []*treeNode `parser:"@@* ')'"`
}

var treeNodeParser = participle.MustBuild[treeNode](
	participle.Lexer(treeLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

type treeParser struct {
	lineOffset int
}

func (tp *treeParser) parseTree(src []byte) (*Tree, error) {
	node, err := treeNodeParser.ParseBytes("", src)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			pos := perr.Position()
			return nil, fmt.Errorf("%v:%v: %v", tp.lineOffset+pos.Line, pos.Column, perr.Message())
		}
		return nil, err
	}
	tree, err := tp.genTree(node)
	if err != nil {
		return nil, err
	}
	return tree.Fill(), nil
}

func (tp *treeParser) genTree(node *treeNode) (*Tree, error) {
	var kind string
	if node.Literal != nil {
		kind = gramparser.LiteralName(*node.Literal)
	} else {
		kind = *node.Name
	}

	if node.Lexeme != nil {
		if len(node.Children) > 0 {
			return nil, fmt.Errorf("%v:%v: a node with a lexeme cannot have children", tp.lineOffset+node.Pos.Line, node.Pos.Column)
		}
		return NewTerminalNode(kind, *node.Lexeme), nil
	}

	var children []*Tree
	if len(node.Children) > 0 {
		children = make([]*Tree, len(node.Children))
		for i, c := range node.Children {
			child, err := tp.genTree(c)
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
	}
	return NewNonTerminalTree(kind, children...), nil
}
