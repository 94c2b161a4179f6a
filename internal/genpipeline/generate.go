// Package genpipeline runs the generator: discover descriptions, load them,
// resolve header dependencies for the whole tree, assemble the graph and
// write it out.
package genpipeline

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"kninja/internal/discover"
	"kninja/internal/headers"
	"kninja/internal/ninja"
	"kninja/internal/objmap"
	"kninja/internal/observ"
	"kninja/internal/spec"
	"kninja/internal/toolchain"
	"kninja/internal/trace"
)

// DefaultRoot is where descriptions are searched when no root is given.
const DefaultRoot = "usr/src"

// DefaultOutput is the artifact path, relative to the invocation directory.
const DefaultOutput = "build.ninja"

// Request configures one generator run.
type Request struct {
	Root      string
	Toolchain toolchain.Config
	// Output is the artifact path; empty means keep the graph in memory.
	Output string
	// Jobs bounds concurrent compiler processes; <= 0 means GOMAXPROCS.
	Jobs int
	// Run overrides how the compiler is started (tests).
	Run      headers.Runner
	Progress ProgressSink
}

// Result captures what a run produced.
type Result struct {
	Files      []spec.File
	Graph      *ninja.Graph
	OutputPath string
	Units      int
	Timing     observ.Report
}

// Generate performs a full run. On error no artifact is written and the
// partial graph is discarded.
func Generate(ctx context.Context, req *Request) (result Result, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing generate request")
	}
	root := req.Root
	if root == "" {
		root = DefaultRoot
	}

	timer := observ.NewTimer()
	defer func() { result.Timing = timer.Report() }()

	tracer := trace.FromContext(ctx)
	run := trace.Begin(tracer, trace.ScopeDriver, "generate", 0)
	run.WithExtra("root", root)
	ctx = trace.WithParent(ctx, run)
	defer func() { run.End("") }()

	// discover
	idx := timer.Begin(string(StageDiscover))
	span := trace.Begin(tracer, trace.ScopeStage, string(StageDiscover), run.ID())
	paths, err := discover.FindBuildFiles(root)
	if err != nil {
		span.End("failed")
		emit(req.Progress, Event{Stage: StageDiscover, Status: StatusError, Err: err})
		return result, err
	}
	timer.End(idx, plural(len(paths), "description"))
	span.End(plural(len(paths), "description"))
	emitQueued(req.Progress, paths)

	// parse
	files, err := loadAll(ctx, paths, req.Progress, timer)
	if err != nil {
		return result, err
	}
	result.Files = files

	// plan every unit before the first compiler runs, so a bad declaration
	// anywhere fails the run without scanning anything
	var (
		sources []string
		owner   = make(map[string][]int)
		perFile = make([]int, len(files))
	)
	for i, f := range files {
		units, err := spec.Units(f, req.Toolchain)
		if err != nil {
			emit(req.Progress, Event{File: f.Path, Stage: StageParse, Status: StatusError, Err: err})
			return result, err
		}
		perFile[i] = len(units)
		for _, src := range objmap.Sources(units) {
			if _, seen := owner[src]; !seen {
				sources = append(sources, src)
			}
			owner[src] = append(owner[src], i)
		}
	}
	result.Units = len(sources)

	// resolve
	table, err := resolveAll(ctx, req, files, sources, owner, perFile, timer)
	if err != nil {
		return result, err
	}

	// assemble
	idx = timer.Begin(string(StageAssemble))
	span = trace.Begin(tracer, trace.ScopeStage, string(StageAssemble), run.ID())
	g := ninja.New(req.Toolchain)
	env := spec.Env{Toolchain: req.Toolchain, Headers: table}
	for _, f := range files {
		stmts, err := spec.Emit(trace.WithParent(ctx, span), f, env)
		if err != nil {
			span.End("failed")
			emit(req.Progress, Event{File: f.Path, Stage: StageAssemble, Status: StatusError, Err: err})
			return result, err
		}
		g.Append(stmts...)
	}
	timer.End(idx, plural(len(g.Statements), "statement"))
	span.End(plural(len(g.Statements), "statement"))
	result.Graph = g

	if req.Output == "" {
		return result, nil
	}

	// write
	idx = timer.Begin(string(StageWrite))
	span = trace.Begin(tracer, trace.ScopeStage, string(StageWrite), run.ID())
	emit(req.Progress, Event{Stage: StageWrite, Status: StatusWorking})
	start := time.Now()
	if err := g.WriteFile(req.Output); err != nil {
		span.End("failed")
		emit(req.Progress, Event{Stage: StageWrite, Status: StatusError, Err: err})
		return result, err
	}
	timer.End(idx, req.Output)
	span.End(req.Output)
	emit(req.Progress, Event{Stage: StageWrite, Status: StatusDone, Elapsed: time.Since(start)})
	result.OutputPath = req.Output
	return result, nil
}

func loadAll(ctx context.Context, paths []string, sink ProgressSink, timer *observ.Timer) ([]spec.File, error) {
	idx := timer.Begin(string(StageParse))
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeStage, string(StageParse), trace.ParentFromContext(ctx))

	files := make([]spec.File, 0, len(paths))
	for _, p := range paths {
		f, err := spec.Load(p)
		if err != nil {
			span.End("failed")
			emit(sink, Event{File: p, Stage: StageParse, Status: StatusError, Err: err})
			return nil, err
		}
		trace.Point(tracer, trace.ScopeDescription, p, f.Desc.Kind().String(), span.ID())
		files = append(files, f)
	}
	timer.End(idx, "")
	span.End("")
	return files, nil
}

// resolveAll scans every distinct source of the tree in one fan-out and
// reports per-file progress as units complete.
func resolveAll(
	ctx context.Context,
	req *Request,
	files []spec.File,
	sources []string,
	owner map[string][]int,
	perFile []int,
	timer *observ.Timer,
) (*headers.Table, error) {
	idx := timer.Begin(string(StageResolve))
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeStage, string(StageResolve), trace.ParentFromContext(ctx))
	span.WithExtra("units", strconv.Itoa(len(sources)))

	start := time.Now()
	for i, f := range files {
		emit(req.Progress, Event{File: f.Path, Stage: StageResolve, Status: StatusWorking, Total: perFile[i]})
		if perFile[i] == 0 {
			emit(req.Progress, Event{File: f.Path, Stage: StageResolve, Status: StatusDone})
		}
	}

	var (
		mu       sync.Mutex
		done     = make([]int, len(files))
		progress = req.Progress
	)
	resolver := &headers.Resolver{
		Compiler: req.Toolchain.Compiler,
		Flags:    req.Toolchain.CFlags,
		Jobs:     req.Jobs,
		Run:      req.Run,
	}
	if progress != nil {
		resolver.OnResolved = func(src string) {
			mu.Lock()
			defer mu.Unlock()
			for _, i := range owner[src] {
				done[i]++
				status := StatusWorking
				if done[i] == perFile[i] {
					status = StatusDone
				}
				progress.OnEvent(Event{
					File:    files[i].Path,
					Stage:   StageResolve,
					Status:  status,
					Elapsed: time.Since(start),
					Done:    done[i],
					Total:   perFile[i],
				})
			}
		}
	}

	table, err := headers.ResolveTable(trace.WithParent(ctx, span), resolver, sources)
	if err != nil {
		span.End("failed")
		emit(req.Progress, Event{Stage: StageResolve, Status: StatusError, Err: err})
		return nil, err
	}
	timer.End(idx, plural(len(sources), "unit"))
	span.End("")
	return table, nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

// LoadTree discovers and loads every description under root without
// resolving headers.
func LoadTree(ctx context.Context, root string) ([]spec.File, error) {
	if root == "" {
		root = DefaultRoot
	}
	paths, err := discover.FindBuildFiles(root)
	if err != nil {
		return nil, err
	}
	return loadAll(ctx, paths, nil, observ.NewTimer())
}
