package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	verr "github.com/nihei9/gramc/error"
	"github.com/nihei9/gramc/grammar"
	spec "github.com/nihei9/gramc/spec/grammar"
	gramparser "github.com/nihei9/gramc/spec/grammar/parser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var compileFlags = struct {
	output      *string
	report      *string
	compression *int
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile [grammar file path]",
		Short:   "Compile grammar you defined into a scanner and a parsing table",
		Example: `  gramc compile calc.gram -o calc.json --report calc-report.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	compileFlags.report = cmd.Flags().String("report", "", "report file path")
	compileFlags.compression = cmd.Flags().Int("compression-level", 1, "compression level of the transition table (0 or 1)")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) (retErr error) {
	var grmPath string
	if len(args) > 0 {
		grmPath = args[0]
	}
	defer func() {
		if retErr == nil {
			return
		}
		var specErrs verr.SpecErrors
		var specErr *verr.SpecError
		switch {
		case errors.As(retErr, &specErrs):
		case errors.As(retErr, &specErr):
			specErrs = verr.SpecErrors{specErr}
		default:
			return
		}
		for _, err := range specErrs {
			err.FilePath = grmPath
			if grmPath != "" {
				err.SourceName = grmPath
			} else {
				err.SourceName = "stdin"
			}
			pterm.Error.Println(err.Error())
		}
		retErr = fmt.Errorf("%v errors in the grammar", len(specErrs))
	}()

	gram, err := readGrammar(grmPath)
	if err != nil {
		return err
	}
	cgram, report, err := grammar.Compile(gram, grammar.EnableReporting(), grammar.CompressionLevel(*compileFlags.compression))
	if report != nil && *compileFlags.report != "" {
		if werr := writeJSON(report, *compileFlags.report); werr != nil {
			return fmt.Errorf("Cannot write the report: %w", werr)
		}
	}
	if err != nil {
		var cerr *grammar.ConflictError
		if errors.As(err, &cerr) && *compileFlags.report != "" {
			info(fmt.Sprintf("run `gramc show %v` to inspect the conflicts", *compileFlags.report))
		}
		return err
	}
	if report != nil {
		for _, w := range report.Warnings {
			info(w)
		}
	}

	err = writeJSON(cgram, *compileFlags.output)
	if err != nil {
		return fmt.Errorf("Cannot write the compiled grammar: %w", err)
	}
	info(fmt.Sprintf("%v: %v states, fingerprint %v", cgram.Name, cgram.Syntactic.StateCount, cgram.Fingerprint))

	return nil
}

// info keeps stdout clean when the compiled grammar goes there.
func info(msg string) {
	if *compileFlags.output == "" {
		fmt.Fprintln(os.Stderr, msg)
		return
	}
	pterm.Info.Println(msg)
}

func readGrammar(path string) (*grammar.Grammar, error) {
	var ast *gramparser.RootNode
	if path == "" {
		var err error
		ast, err = gramparser.Parse("", os.Stdin)
		if err != nil {
			return nil, err
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("Cannot open the grammar file %s: %w", path, err)
		}
		defer f.Close()

		ast, err = gramparser.Parse(path, f)
		if err != nil {
			return nil, err
		}
	}

	b := grammar.GrammarBuilder{
		AST:      ast,
		FilePath: path,
	}
	return b.Build()
}

// writeJSON writes v to path, or to stdout when path is empty.
func writeJSON(v interface{}, path string) error {
	var w io.Writer
	if path != "" {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%v\n", string(b))
	return err
}

func readCompiledGrammar(path string) (*spec.CompiledGrammar, error) {
	cgram := &spec.CompiledGrammar{}
	err := readJSON(path, cgram)
	if err != nil {
		return nil, err
	}
	if cgram.Lexical == nil || cgram.Syntactic == nil {
		return nil, fmt.Errorf("%v is not a compiled grammar", path)
	}
	return cgram, nil
}

func readJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
