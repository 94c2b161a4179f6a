package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kninja/internal/genpipeline"
	"kninja/internal/toolchain"
)

func generateExecution(cmd *cobra.Command, _ []string) error {
	opts, err := resolveRunOptions(cmd, projectFileName)
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := parseSwitch("ui", uiValue)
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	req := &genpipeline.Request{
		Root:      opts.root,
		Output:    opts.output,
		Toolchain: toolchain.Default(),
		Jobs:      opts.jobs,
	}
	var res genpipeline.Result
	if !quiet && shouldUseTUI(mode) {
		res, err = runGenerateWithUI(cmd.Context(), "generating "+opts.output, req)
	} else {
		res, err = genpipeline.Generate(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d descriptions, %d units, %d statements)\n",
			res.OutputPath, len(res.Files), res.Units, len(res.Graph.Statements))
	}
	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timing)
	}
	return nil
}
