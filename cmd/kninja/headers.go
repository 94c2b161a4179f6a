package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kninja/internal/headers"
	"kninja/internal/toolchain"
)

var headersCmd = &cobra.Command{
	Use:   "headers <file.c>...",
	Short: "Show the headers the compiler reports for translation units",
	Long: `Run the compiler in header-trace mode with the kernel flags and print the
include tree of each translation unit, one level of indentation per depth.`,
	Args: cobra.MinimumNArgs(1),
	RunE: headersExecution,
}

func init() {
	headersCmd.Flags().String("format", "tree", "output format (tree|list|json)")
}

type headerReport struct {
	Source  string   `json:"source"`
	Headers []string `json:"headers"`
	Depths  []uint8  `json:"depths"`
}

func headersExecution(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	switch format {
	case "tree", "list", "json":
	default:
		return fmt.Errorf("unsupported format %q (must be tree, list or json)", format)
	}
	opts, err := resolveRunOptions(cmd, projectFileName)
	if err != nil {
		return err
	}

	tc := toolchain.Default()
	r := &headers.Resolver{Compiler: tc.Compiler, Flags: tc.CFlags, Jobs: opts.jobs}
	sets, err := r.ResolveAll(cmd.Context(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		reports := make([]headerReport, len(args))
		for i, src := range args {
			reports[i] = headerReport{Source: src, Headers: headers.Paths(sets[i]), Depths: depths(sets[i])}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for i, src := range args {
		renderIncludes(out, src, sets[i], format == "tree")
	}
	return nil
}

func renderIncludes(out io.Writer, source string, incs []headers.Include, tree bool) {
	fmt.Fprintf(out, "%s (%d headers)\n", source, len(incs))
	for _, inc := range incs {
		indent := 1
		if tree {
			indent = int(inc.Depth)
		}
		fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", indent), inc.Path)
	}
}

func depths(incs []headers.Include) []uint8 {
	out := make([]uint8, len(incs))
	for i, inc := range incs {
		out[i] = inc.Depth
	}
	return out
}
