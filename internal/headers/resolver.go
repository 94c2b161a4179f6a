package headers

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"kninja/internal/trace"
)

// Resolver scans translation units with an external compiler.
type Resolver struct {
	Compiler string
	Flags    []string
	// Jobs bounds concurrent compiler processes; <= 0 means GOMAXPROCS.
	Jobs int
	// Run starts the compiler; nil means ExecRunner.
	Run Runner
	// OnResolved, when set, is called after each source resolves
	// successfully. It may be called from several goroutines at once.
	OnResolved func(source string)
}

func (r *Resolver) runner() Runner {
	if r.Run != nil {
		return r.Run
	}
	return ExecRunner
}

func (r *Resolver) jobs(n int) int {
	jobs := r.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return max(1, min(jobs, n))
}

// Resolve returns the headers source includes, transitively.
func (r *Resolver) Resolve(ctx context.Context, source string) ([]Include, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeUnit, source, trace.ParentFromContext(ctx))
	incs, err := scan(ctx, r.runner(), r.Compiler, r.Flags, source)
	if err != nil {
		span.End("failed")
		return nil, err
	}
	span.End(strconv.Itoa(len(incs)) + " headers")
	return incs, nil
}

// ResolveAll resolves every source concurrently, at most Jobs at a time.
// Result i belongs to sources[i] regardless of completion order. The first
// failure cancels the remaining invocations and is returned.
func (r *Resolver) ResolveAll(ctx context.Context, sources []string) ([][]Include, error) {
	results := make([][]Include, len(sources))
	if len(sources) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.jobs(len(sources)))
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			incs, err := r.Resolve(gctx, src)
			if err != nil {
				return err
			}
			// each goroutine owns slot i, no lock needed
			results[i] = incs
			if r.OnResolved != nil {
				r.OnResolved(src)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Table holds resolved header sets by source path. It lets a caller scan
// the whole tree in one fan-out and hand the results out per description.
type Table struct {
	sets map[string][]Include
}

// ResolveTable resolves the distinct sources among sources with r.
func ResolveTable(ctx context.Context, r *Resolver, sources []string) (*Table, error) {
	unique := make([]string, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		unique = append(unique, src)
	}
	sets, err := r.ResolveAll(ctx, unique)
	if err != nil {
		return nil, err
	}
	t := &Table{sets: make(map[string][]Include, len(unique))}
	for i, src := range unique {
		t.sets[src] = sets[i]
	}
	return t, nil
}

// Len returns the number of resolved sources.
func (t *Table) Len() int { return len(t.sets) }

// ResolveAll looks sources up in the table. Asking for a source that was
// never resolved is a programming error and reported as such.
func (t *Table) ResolveAll(_ context.Context, sources []string) ([][]Include, error) {
	out := make([][]Include, len(sources))
	for i, src := range sources {
		incs, ok := t.sets[src]
		if !ok {
			return nil, fmt.Errorf("%s: header dependencies were not resolved", src)
		}
		out[i] = incs
	}
	return out, nil
}
