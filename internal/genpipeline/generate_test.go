package genpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"kninja/internal/headers"
	"kninja/internal/ninja"
	"kninja/internal/objmap"
	"kninja/internal/toolchain"
)

// writeTree creates files relative to the current directory.
func writeTree(t *testing.T, files map[string]string) {
	t.Helper()
	for path, text := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// headerRunner reports one header per source, named after it.
func headerRunner(calls *atomic.Int32) headers.Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if calls != nil {
			calls.Add(1)
		}
		src := args[len(args)-1]
		return []byte(". " + strings.TrimSuffix(src, ".c") + ".h\n"), nil
	}
}

var kernelTree = map[string]string{
	"usr/src/uts/build.toml":     "[core]\nsrc = [\"a.c\"]\n",
	"usr/src/uts/a.c":            "",
	"usr/src/uts/drv/build.toml": "[module]\nname = \"drv\"\nsrc = [\"b.c\"]\ndependencies = [\"mac\"]\n",
	"usr/src/uts/drv/b.c":        "",
}

func TestGenerateKernelTree(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTree(t, kernelTree)

	res, err := Generate(context.Background(), &Request{
		Toolchain: toolchain.Default(),
		Output:    DefaultOutput,
		Run:       headerRunner(nil),
	})
	if err != nil {
		t.Fatal(err)
	}

	want := ninja.New(toolchain.Default()).String() +
		"build bld/usr/src/uts/a.o: cc_kernel usr/src/uts/a.c | usr/src/uts/a.h\n" +
		"build bld/genunix: ld_genunix bld/usr/src/uts/a.o\n" +
		"build bld/usr/src/uts/drv/b.o: cc_kernel usr/src/uts/drv/b.c | usr/src/uts/drv/b.h\n" +
		"build bld/modules/drv: ld_kmod bld/usr/src/uts/drv/b.o | bld/genunix\n" +
		"  mod_deps = -Nmac\n"
	got, err := os.ReadFile(DefaultOutput)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Fatalf("build.ninja =\n%s\nwant\n%s", got, want)
	}
	if res.OutputPath != DefaultOutput || res.Units != 2 || len(res.Files) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, stage := range []Stage{StageDiscover, StageParse, StageResolve, StageAssemble, StageWrite} {
		if _, ok := res.Timing.Phase(string(stage)); !ok {
			t.Errorf("timing has no %s phase", stage)
		}
	}
}

func TestGenerateCoreAndModuleWithoutDependencies(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTree(t, map[string]string{
		"usr/src/uts/build.toml":     "[core]\nsrc = [\"a.c\"]\n",
		"usr/src/uts/drv/build.toml": "[module]\nname = \"drv\"\nsrc = [\"b.c\"]\n",
	})

	if _, err := Generate(context.Background(), &Request{
		Toolchain: toolchain.Default(),
		Output:    DefaultOutput,
		Run:       headerRunner(nil),
	}); err != nil {
		t.Fatal(err)
	}

	// core links only its own object; the module has no mod_deps line
	want := ninja.New(toolchain.Default()).String() +
		"build bld/usr/src/uts/a.o: cc_kernel usr/src/uts/a.c | usr/src/uts/a.h\n" +
		"build bld/genunix: ld_genunix bld/usr/src/uts/a.o\n" +
		"build bld/usr/src/uts/drv/b.o: cc_kernel usr/src/uts/drv/b.c | usr/src/uts/drv/b.h\n" +
		"build bld/modules/drv: ld_kmod bld/usr/src/uts/drv/b.o | bld/genunix\n"
	got, err := os.ReadFile(DefaultOutput)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Fatalf("build.ninja =\n%s\nwant\n%s", got, want)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTree(t, kernelTree)

	req := &Request{Toolchain: toolchain.Default(), Output: DefaultOutput, Run: headerRunner(nil)}
	if _, err := Generate(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(DefaultOutput)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Generate(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(DefaultOutput)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatal("two runs over the same tree must produce identical output")
	}
}

func TestGenerateEmptyTree(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.MkdirAll(DefaultRoot, 0o755); err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	_, err := Generate(context.Background(), &Request{
		Toolchain: toolchain.Default(),
		Output:    DefaultOutput,
		Run:       headerRunner(&calls),
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(DefaultOutput)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != ninja.New(toolchain.Default()).String() {
		t.Fatalf("empty tree should produce only variables and rules, got\n%s", got)
	}
	if calls.Load() != 0 {
		t.Fatal("compiler must not run for an empty tree")
	}
}

func TestGenerateMissingRoot(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Generate(context.Background(), &Request{Toolchain: toolchain.Default(), Output: DefaultOutput})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	if _, statErr := os.Stat(DefaultOutput); !os.IsNotExist(statErr) {
		t.Fatal("no artifact may be written on failure")
	}
}

func TestGenerateBadSuffixFailsBeforeScanning(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTree(t, map[string]string{
		"usr/src/a/build.toml": "[module]\nname = \"a\"\nsrc = [\"a.c\"]\n",
		"usr/src/b/build.toml": "[module]\nname = \"b\"\nsrc = [\"entry.s\"]\n",
	})
	var calls atomic.Int32
	_, err := Generate(context.Background(), &Request{
		Toolchain: toolchain.Default(),
		Output:    DefaultOutput,
		Run:       headerRunner(&calls),
	})
	var se *objmap.SuffixError
	if !errors.As(err, &se) {
		t.Fatalf("expected SuffixError, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "usr/src/b/build.toml: ") {
		t.Fatalf("error must name the description: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("compiler ran %d times before the bad declaration was reported", calls.Load())
	}
	if _, statErr := os.Stat(DefaultOutput); !os.IsNotExist(statErr) {
		t.Fatal("no artifact may be written on failure")
	}
}

func TestGenerateCompilerFailureKeepsPreviousArtifact(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTree(t, kernelTree)
	if err := os.WriteFile(DefaultOutput, []byte("# previous\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("b.c:1:10: fatal error: missing.h: No such file or directory\n"), errors.New("exit status 1")
	}
	_, err := Generate(context.Background(), &Request{
		Toolchain: toolchain.Default(),
		Output:    DefaultOutput,
		Run:       run,
	})
	var ce *headers.CompilerError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompilerError, got %v", err)
	}
	got, err := os.ReadFile(DefaultOutput)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "# previous\n" {
		t.Fatalf("previous artifact was modified: %q", got)
	}
}

func TestGenerateInMemory(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTree(t, kernelTree)
	res, err := Generate(context.Background(), &Request{Toolchain: toolchain.Default(), Run: headerRunner(nil)})
	if err != nil {
		t.Fatal(err)
	}
	if res.OutputPath != "" {
		t.Fatalf("OutputPath = %q, want empty", res.OutputPath)
	}
	if _, statErr := os.Stat(DefaultOutput); !os.IsNotExist(statErr) {
		t.Fatal("in-memory run must not write an artifact")
	}
	link, ok := res.Graph.Statement("bld/modules/drv")
	if !ok {
		t.Fatal("module link missing")
	}
	if deps, _ := link.Var(ninja.VarModDeps); deps != "-Nmac" {
		t.Fatalf("mod_deps = %q", deps)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(evt Event) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

func TestGenerateReportsProgress(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTree(t, kernelTree)
	sink := &recordingSink{}
	if _, err := Generate(context.Background(), &Request{
		Toolchain: toolchain.Default(),
		Run:       headerRunner(nil),
		Progress:  sink,
	}); err != nil {
		t.Fatal(err)
	}
	done := map[string]bool{}
	for _, evt := range sink.events {
		if evt.Stage == StageResolve && evt.Status == StatusDone {
			done[evt.File] = true
			if evt.Done != evt.Total {
				t.Errorf("%s done with %d/%d units", evt.File, evt.Done, evt.Total)
			}
		}
	}
	for path := range kernelTree {
		if filepath.Base(path) == "build.toml" && !done[path] {
			t.Errorf("no resolve completion for %s", path)
		}
	}
}

func TestLoadTreeSkipsHeaderResolution(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTree(t, kernelTree)
	files, err := LoadTree(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0].Path != "usr/src/uts/build.toml" || files[1].Path != "usr/src/uts/drv/build.toml" {
		t.Fatalf("unexpected files %+v", files)
	}
}
