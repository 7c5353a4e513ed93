package main

import (
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var rootFlags = struct {
	trace *string
}{}

var rootCmd = &cobra.Command{
	Use:   "gramc",
	Short: "Compile a grammar into a scanner and an LR(1) parsing table",
	Long: `gramc provides three features:
- Compiles a grammar into a portable scanner and LR(1) parsing table.
- Parses a text stream with a compiled grammar.
  This feature is primarily aimed at debugging the grammar.
- Prints the report of a compilation.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initDisplay()
		initTracing(*rootFlags.trace)
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootFlags.trace = rootCmd.PersistentFlags().String("trace", "Error", "trace level [Debug|Info|Error]")
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		pterm.Error.Println(err.Error())
		return err
	}
	return nil
}

// initTracing routes the traces of every package to one Go logger writing to
// stderr.
func initTracing(level string) {
	tracer := gologadapter.New()
	tracer.SetTraceLevel(tracing.TraceLevelFromString(level))
	tracing.SetTraceSelector(tracing.SelectorForAdapter(func() tracing.Trace {
		return tracer
	}))
}

func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  "  >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "  Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}
