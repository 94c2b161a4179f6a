package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kninja/internal/genpipeline"
	"kninja/internal/modgraph"
	"kninja/internal/toolchain"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check module dependency declarations",
	Long: `Load every description and check the module dependency names: unknown
modules, duplicate module names and dependency cycles are reported, and the
order in which modules can be linked is printed. Generation does not run
these checks.`,
	Args: cobra.NoArgs,
	RunE: checkExecution,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func checkExecution(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	opts, err := resolveRunOptions(cmd, projectFileName)
	if err != nil {
		return err
	}

	files, err := genpipeline.LoadTree(cmd.Context(), opts.root)
	if err != nil {
		return err
	}
	report := modgraph.Check(modgraph.NodesFromFiles(files, toolchain.Default()))

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		renderCheckReport(out, report)
	}
	if !report.OK() {
		return fmt.Errorf("%d dependency problems", len(report.Problems))
	}
	return nil
}

func renderCheckReport(out io.Writer, report modgraph.Report) {
	warn := color.New(color.FgYellow, color.Bold)
	for _, p := range report.Problems {
		fmt.Fprintf(out, "%s %s\n", warn.Sprint(string(p.Kind)), p.Error())
	}
	fmt.Fprintf(out, "%d modules\n", report.Modules)
	for i, batch := range report.Batches {
		fmt.Fprintf(out, "  %2d: %s\n", i+1, strings.Join(batch, " "))
	}
}
