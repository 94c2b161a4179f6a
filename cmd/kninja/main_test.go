package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kninja/internal/headers"
	"kninja/internal/modgraph"
	"kninja/internal/observ"
)

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("root", "usr/src", "")
	cmd.Flags().String("output", "build.ninja", "")
	cmd.Flags().IntP("jobs", "j", 0, "")
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestParseSwitch(t *testing.T) {
	tests := []struct {
		flag string
		in   string
		want switchMode
	}{
		{"ui", "", switchAuto},
		{"ui", "auto", switchAuto},
		{"ui", " ON ", switchOn},
		{"ui", "off", switchOff},
		{"color", "", switchAuto},
		{"color", "On", switchOn},
		{"color", "off", switchOff},
	}
	for _, tt := range tests {
		got, err := parseSwitch(tt.flag, tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseSwitch(%q, %q) = %q, %v", tt.flag, tt.in, got, err)
		}
	}
	for _, flag := range []string{"ui", "color"} {
		_, err := parseSwitch(flag, "fancy")
		if err == nil || !strings.Contains(err.Error(), "--"+flag) {
			t.Fatalf("parseSwitch(%q, fancy) error = %v", flag, err)
		}
	}
	if shouldUseTUI(switchOff) || !shouldUseTUI(switchOn) {
		t.Fatal("explicit modes must not depend on the terminal")
	}
	if useColor(switchOff) || !useColor(switchOn) {
		t.Fatal("explicit colour modes must not depend on the terminal")
	}
}

func TestResolveRunOptionsDefaults(t *testing.T) {
	cmd := newFlagCommand(t)
	opts, err := resolveRunOptions(cmd, filepath.Join(t.TempDir(), projectFileName))
	if err != nil {
		t.Fatal(err)
	}
	if opts != (runOptions{root: "usr/src", output: "build.ninja"}) {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestResolveRunOptionsFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), projectFileName)
	text := "[generate]\nroot = \"src\"\noutput = \"out/kernel.ninja\"\njobs = 6\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := resolveRunOptions(newFlagCommand(t), path)
	if err != nil {
		t.Fatal(err)
	}
	if opts != (runOptions{root: "src", output: "out/kernel.ninja", jobs: 6}) {
		t.Fatalf("file options not applied: %+v", opts)
	}

	opts, err = resolveRunOptions(newFlagCommand(t, "--root", "usr/src/uts", "-j", "2"), path)
	if err != nil {
		t.Fatal(err)
	}
	if opts != (runOptions{root: "usr/src/uts", output: "out/kernel.ninja", jobs: 2}) {
		t.Fatalf("flags must win over the file: %+v", opts)
	}
}

func TestLoadProjectConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), projectFileName)
	if err := os.WriteFile(path, []byte("[generate]\ncompiler = \"clang\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, found, err := loadProjectConfig(path)
	if !found || err == nil || !strings.Contains(err.Error(), "generate.compiler") {
		t.Fatalf("loadProjectConfig = %v, %v", found, err)
	}
}

func TestPrintError(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	var buf bytes.Buffer
	printError(&buf, errors.New("usr/src/a/build.toml: missing [module].name"))
	if got := buf.String(); got != "error usr/src/a/build.toml: missing [module].name\n" {
		t.Fatalf("printError wrote %q", got)
	}
}

func TestApplyColorMode(t *testing.T) {
	saved := color.NoColor
	defer func() { color.NoColor = saved }()

	if err := applyColorMode("on"); err != nil || color.NoColor {
		t.Fatalf("on: NoColor=%v err=%v", color.NoColor, err)
	}
	if err := applyColorMode("off"); err != nil || !color.NoColor {
		t.Fatalf("off: NoColor=%v err=%v", color.NoColor, err)
	}
	if err := applyColorMode("sometimes"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRenderIncludes(t *testing.T) {
	incs := []headers.Include{
		{Path: "sys/types.h", Depth: 1},
		{Path: "sys/isa_defs.h", Depth: 2},
	}
	var tree, list bytes.Buffer
	renderIncludes(&tree, "main.c", incs, true)
	renderIncludes(&list, "main.c", incs, false)
	if want := "main.c (2 headers)\n  sys/types.h\n    sys/isa_defs.h\n"; tree.String() != want {
		t.Fatalf("tree = %q, want %q", tree.String(), want)
	}
	if want := "main.c (2 headers)\n  sys/types.h\n  sys/isa_defs.h\n"; list.String() != want {
		t.Fatalf("list = %q, want %q", list.String(), want)
	}
}

func TestRenderCheckReport(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	report := modgraph.Check([]modgraph.Node{
		{Name: "genunix", Path: "usr/src/build.toml"},
		{Name: "drv", Path: "usr/src/drv/build.toml", Deps: []string{"genunix", "mac"}},
	})
	var buf bytes.Buffer
	renderCheckReport(&buf, report)
	want := "unresolved usr/src/drv/build.toml: module \"drv\" depends on unknown module \"mac\"\n" +
		"2 modules\n" +
		"   1: genunix\n" +
		"   2: drv\n"
	if buf.String() != want {
		t.Fatalf("report =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestPrintStageTimings(t *testing.T) {
	var buf bytes.Buffer
	printStageTimings(&buf, observ.Report{
		TotalMS: 3,
		Phases: []observ.PhaseReport{
			{Name: "discover", DurationMS: 1, Note: "2 descriptions"},
			{Name: "resolve", DurationMS: 2},
		},
	})
	want := "discover       1.0 ms  2 descriptions\n" +
		"resolve        2.0 ms\n" +
		"total          3.0 ms\n"
	if buf.String() != want {
		t.Fatalf("timings =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, versionInfo{Version: "1.2.3"}, true); err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Tool != "kninja" || payload.Version != "1.2.3" || payload.Toolchain != "5.11" || payload.GitCommit != "unknown" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}
