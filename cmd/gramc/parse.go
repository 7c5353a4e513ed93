package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nihei9/gramc/driver/lexer"
	"github.com/nihei9/gramc/driver/parser"
	spec "github.com/nihei9/gramc/spec/grammar"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var parseFlags = struct {
	source *string
	tokens *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse <compiled grammar file path>",
		Short:   "Parse a text stream",
		Example: `  cat src | gramc parse grammar.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	parseFlags.tokens = cmd.Flags().Bool("tokens", false, "print the tokens instead of a syntax tree")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	cgram, err := readCompiledGrammar(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a compiled grammar: %w", err)
	}

	var src io.Reader = os.Stdin
	if *parseFlags.source != "" {
		f, err := os.Open(*parseFlags.source)
		if err != nil {
			return fmt.Errorf("Cannot open the source file %s: %w", *parseFlags.source, err)
		}
		defer f.Close()
		src = f
	}

	if *parseFlags.tokens {
		return printTokens(os.Stdout, cgram, src)
	}

	toks, err := parser.NewTokenStream(cgram, src)
	if err != nil {
		return err
	}
	gram := parser.NewGrammar(cgram)
	b := parser.NewDefaultSyntaxTreeBuilder()
	p, err := parser.NewParser(toks, gram, parser.SemanticAction(parser.NewSyntaxTreeActionSet(gram, b)))
	if err != nil {
		return err
	}
	err = p.Parse()
	if err != nil {
		return err
	}

	synErrs := p.SyntaxErrors()
	if len(synErrs) > 0 {
		for _, synErr := range synErrs {
			pterm.Error.Println(synErr.Error())
		}
		return fmt.Errorf("%v syntax errors", len(synErrs))
	}

	parser.PrintTree(os.Stdout, b.Tree())

	return nil
}

// printTokens prints every token, skipped ones included, one per line.
func printTokens(w io.Writer, cgram *spec.CompiledGrammar, src io.Reader) error {
	lex, err := lexer.NewLexer(lexer.NewLexSpec(cgram.Lexical), src, lexer.KeepSkippedTokens())
	if err != nil {
		return err
	}
	for {
		tok, err := lex.Next()
		if err != nil {
			return err
		}
		var kind string
		switch {
		case tok.EOF:
			kind = "<eof>"
		case tok.Invalid:
			kind = "<invalid>"
		default:
			kind = cgram.Lexical.KindNames[tok.KindID]
		}
		fmt.Fprintf(w, "%v:%v %v %q\n", tok.Row+1, tok.Col+1, kind, tok.Lexeme)
		if tok.EOF {
			return nil
		}
	}
}
