package main

import (
	"fmt"
	"strings"

	spec "github.com/nihei9/gramc/spec/grammar"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var showFlags = struct {
	conflictsOnly *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "show <report file path>",
		Short:   "Print a report in a readable format",
		Example: `  gramc show grammar-report.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runShow,
	}
	showFlags.conflictsOnly = cmd.Flags().Bool("conflicts", false, "print only the states having conflicts")
	rootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	report := &spec.Report{}
	err := readJSON(args[0], report)
	if err != nil {
		return fmt.Errorf("Cannot read the report %s: %w", args[0], err)
	}

	pterm.Println(conflictSummary(report))
	root := pterm.NewTreeFromLeveledList(reportTree(report, *showFlags.conflictsOnly))
	pterm.DefaultTree.WithRoot(root).Render()

	return nil
}

func conflictSummary(report *spec.Report) string {
	var unresolved, resolved int
	for _, s := range report.States {
		unresolved += len(s.Conflicts)
		resolved += len(s.Resolved)
	}
	if unresolved == 0 && resolved == 0 {
		return "No conflict"
	}
	return fmt.Sprintf("%v unresolved conflicts, %v resolved by overrides", unresolved, resolved)
}

type reportPrinter struct {
	report  *spec.Report
	symbols map[int]string
}

func newReportPrinter(report *spec.Report) *reportPrinter {
	symbols := map[int]string{}
	for _, t := range report.Terminals {
		symbols[t.Number] = t.Name
	}
	for _, n := range report.NonTerminals {
		symbols[n.Number] = n.Name
	}
	return &reportPrinter{
		report:  report,
		symbols: symbols,
	}
}

func (p *reportPrinter) symbol(sym int) string {
	if name, ok := p.symbols[sym]; ok {
		return name
	}
	return fmt.Sprintf("<%v>", sym)
}

func (p *reportPrinter) rule(r *spec.Rule, dot int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v →", p.symbol(r.LHS))
	for i, sym := range r.RHS {
		if i == dot {
			b.WriteString(" ・")
		}
		fmt.Fprintf(&b, " %v", p.symbol(sym))
	}
	if dot >= len(r.RHS) {
		b.WriteString(" ・")
	}
	if r.Attribute != "" {
		fmt.Fprintf(&b, " #%v", r.Attribute)
	}
	if r.Action != "" {
		fmt.Fprintf(&b, " @%v", r.Action)
	}
	return b.String()
}

func (p *reportPrinter) action(v int) string {
	kind, n := spec.DecodeAction(v)
	switch kind {
	case spec.ActionKindShift:
		return fmt.Sprintf("shift %v", n)
	case spec.ActionKindReduce:
		return fmt.Sprintf("reduce %v", n)
	}
	return "error"
}

func (p *reportPrinter) conflict(c *spec.Conflict) string {
	acts := make([]string, len(c.Candidates))
	for i, v := range c.Candidates {
		acts[i] = p.action(v)
	}
	msg := fmt.Sprintf("%v on %v: %v", c.Kind, p.symbol(c.Symbol), strings.Join(acts, ", "))
	if c.Adopted != nil {
		msg = fmt.Sprintf("%v; adopted %v", msg, p.action(*c.Adopted))
	}
	return msg
}

// reportTree lays a report out as a leveled list, the input format of a
// pterm tree.
func reportTree(report *spec.Report, conflictsOnly bool) pterm.LeveledList {
	p := newReportPrinter(report)
	ll := pterm.LeveledList{
		{Level: 0, Text: report.Name},
	}
	add := func(level int, format string, args ...interface{}) {
		ll = append(ll, pterm.LeveledListItem{
			Level: level,
			Text:  fmt.Sprintf(format, args...),
		})
	}

	if !conflictsOnly {
		add(1, "Terminals")
		for _, t := range report.Terminals {
			var flags []string
			if t.Anonymous {
				flags = append(flags, "anonymous")
			}
			if t.Skip {
				flags = append(flags, "skip")
			}
			if len(flags) > 0 {
				add(2, "%4v %v %v (%v)", t.Number, t.Name, t.Pattern, strings.Join(flags, ", "))
			} else {
				add(2, "%4v %v %v", t.Number, t.Name, t.Pattern)
			}
		}
		add(1, "Rules")
		for _, r := range report.Rules {
			add(2, "%4v %v", r.ID, p.rule(r, -1))
		}
	}

	add(1, "States")
	for _, s := range report.States {
		if conflictsOnly && len(s.Conflicts) == 0 && len(s.Resolved) == 0 {
			continue
		}
		add(2, "State %v", s.Number)
		for _, item := range s.Items {
			add(3, "%v, %v", p.rule(report.Rules[item.Rule], item.Dot), p.symbol(item.LookAhead))
		}
		for _, t := range s.Shift {
			add(3, "shift %4v on %v", t.State, p.symbol(t.Symbol))
		}
		for _, r := range s.Reduce {
			las := make([]string, len(r.LookAhead))
			for i, sym := range r.LookAhead {
				las[i] = p.symbol(sym)
			}
			add(3, "reduce %3v on %v", r.Rule, strings.Join(las, ", "))
		}
		for _, t := range s.GoTo {
			add(3, "goto %5v on %v", t.State, p.symbol(t.Symbol))
		}
		for _, c := range s.Conflicts {
			add(3, "conflict: %v", p.conflict(c))
		}
		for _, c := range s.Resolved {
			add(3, "resolved: %v", p.conflict(c))
		}
	}

	if len(report.Warnings) > 0 {
		add(1, "Warnings")
		for _, w := range report.Warnings {
			add(2, "%v", w)
		}
	}

	return ll
}
