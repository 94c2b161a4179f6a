package main

import (
	"github.com/spf13/cobra"

	"kninja/internal/genpipeline"
	"kninja/internal/ninja"
	"kninja/internal/toolchain"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the build graph in a machine-readable form",
	Long: `Generate the build graph like the default command does, but write it to
stdout as JSON or MessagePack instead of writing the ninja file.`,
	Args: cobra.NoArgs,
	RunE: graphExecution,
}

func init() {
	graphCmd.Flags().String("format", string(ninja.DumpJSON), "output format (json|msgpack)")
}

func graphExecution(cmd *cobra.Command, _ []string) error {
	formatValue, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := ninja.ParseDumpFormat(formatValue)
	if err != nil {
		return err
	}
	opts, err := resolveRunOptions(cmd, projectFileName)
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	res, err := genpipeline.Generate(cmd.Context(), &genpipeline.Request{
		Root:      opts.root,
		Toolchain: toolchain.Default(),
		Jobs:      opts.jobs,
	})
	if err != nil {
		return err
	}
	if err := res.Graph.Dump(cmd.OutOrStdout(), format); err != nil {
		return err
	}
	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timing)
	}
	return nil
}
