package main

import (
	"fmt"
	"io"

	"kninja/internal/observ"
)

func printStageTimings(out io.Writer, report observ.Report) {
	if out == nil || len(report.Phases) == 0 {
		return
	}
	for _, p := range report.Phases {
		line := fmt.Sprintf("%-9s %8.1f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			line += "  " + p.Note
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%-9s %8.1f ms\n", "total", report.TotalMS)
}
