// Package main implements the kninja CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kninja/internal/genpipeline"
	"kninja/internal/trace"
	"kninja/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "kninja",
	Short: "Generate a ninja build file for the kernel source tree",
	Long: `kninja walks the source tree for build.toml descriptions, asks the compiler
which headers every translation unit includes and writes a ninja build file
that compiles, CTF-converts and links the core image and every loadable module.`,
	Args:              cobra.NoArgs,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: prepareRun,
	RunE:              generateExecution,
}

// traceCleanup is set by prepareRun and flushes the tracer on exit.
var traceCleanup = func() {}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(headersCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("root", genpipeline.DefaultRoot, "directory searched for build.toml descriptions")
	pf.IntP("jobs", "j", 0, "max concurrent compiler processes (0=auto)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show per-stage timings")
	pf.String("trace", "", "trace output file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "events kept in the trace ring buffer")
	pf.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0=off)")

	rootCmd.Flags().String("output", genpipeline.DefaultOutput, "path of the generated build file")
	rootCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		dumpTrace(rootCmd)
	}
	traceCleanup()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// prepareRun applies the global output flags and installs the tracer.
func prepareRun(cmd *cobra.Command, _ []string) error {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	if err := applyColorMode(colorFlag); err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	traceCleanup = cleanup
	return nil
}

func applyColorMode(value string) error {
	mode, err := parseSwitch("color", value)
	if err != nil {
		return err
	}
	color.NoColor = !useColor(mode)
	return nil
}

// printError writes the single-line failure report.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("error"), err)
}

// dumpTrace writes what a ring tracer retained, so a failed run can be
// inspected without rerunning with streaming enabled.
func dumpTrace(cmd *cobra.Command) {
	ctx := cmd.Context()
	if ctx == nil {
		return
	}
	tracer := trace.FromContext(ctx)
	if !tracer.Enabled() {
		return
	}
	if err := trace.DumpOnFailure(tracer, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
