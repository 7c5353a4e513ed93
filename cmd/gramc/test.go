package main

import (
	"errors"
	"fmt"

	"github.com/nihei9/gramc/grammar"
	"github.com/nihei9/gramc/tester"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "test <grammar file path> <test file path>|<test directory path>",
		Short:   "Test a grammar",
		Example: `  gramc test calc.gram testdata`,
		Args:    cobra.ExactArgs(2),
		RunE:    runTest,
	}
	rootCmd.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	g, err := readGrammar(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a grammar: %w", err)
	}
	cg, _, err := grammar.Compile(g)
	if err != nil {
		return fmt.Errorf("Cannot compile the grammar: %w", err)
	}

	cs := tester.ListTestCases(args[1])
	errOccurred := false
	for _, c := range cs {
		if c.Error != nil {
			pterm.Error.Println(fmt.Sprintf("Failed to read a test case or a directory: %v\n%v", c.FilePath, c.Error))
			errOccurred = true
		}
	}
	if errOccurred {
		return errors.New("Cannot run test")
	}

	t := &tester.Tester{
		Grammar: cg,
		Cases:   cs,
	}
	var failed int
	for _, r := range t.Run() {
		pterm.Println(r.String())
		if r.Error != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%v of %v test cases failed", failed, len(cs))
	}
	return nil
}
