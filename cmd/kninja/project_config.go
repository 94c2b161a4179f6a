package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"kninja/internal/genpipeline"
)

// projectFileName is read from the invocation directory when present.
const projectFileName = "kninja.toml"

type projectConfig struct {
	Generate generateConfig `toml:"generate"`
}

type generateConfig struct {
	Root   string `toml:"root"`
	Output string `toml:"output"`
	Jobs   int    `toml:"jobs"`
}

// runOptions is the merged run configuration: defaults, then kninja.toml,
// then flags the user set explicitly.
type runOptions struct {
	root   string
	output string
	jobs   int
}

func loadProjectConfig(path string) (projectConfig, bool, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		return projectConfig{}, false, nil
	}
	if err != nil {
		return projectConfig{}, true, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return projectConfig{}, true, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if cfg.Generate.Jobs < 0 {
		return projectConfig{}, true, fmt.Errorf("%s: [generate].jobs must not be negative", path)
	}
	return cfg, true, nil
}

func resolveRunOptions(cmd *cobra.Command, configPath string) (runOptions, error) {
	opts := runOptions{
		root:   genpipeline.DefaultRoot,
		output: genpipeline.DefaultOutput,
	}
	cfg, found, err := loadProjectConfig(configPath)
	if err != nil {
		return opts, err
	}
	if found {
		if cfg.Generate.Root != "" {
			opts.root = cfg.Generate.Root
		}
		if cfg.Generate.Output != "" {
			opts.output = cfg.Generate.Output
		}
		opts.jobs = cfg.Generate.Jobs
	}

	if flag := cmd.Flags().Lookup("root"); flag != nil && flag.Changed {
		opts.root = flag.Value.String()
	}
	if flag := cmd.Flags().Lookup("output"); flag != nil && flag.Changed {
		opts.output = flag.Value.String()
	}
	if flag := cmd.Flags().Lookup("jobs"); flag != nil && flag.Changed {
		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return opts, fmt.Errorf("failed to get jobs flag: %w", err)
		}
		if jobs < 0 {
			return opts, fmt.Errorf("invalid --jobs value %d", jobs)
		}
		opts.jobs = jobs
	}
	return opts, nil
}
