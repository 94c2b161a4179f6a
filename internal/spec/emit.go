package spec

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"kninja/internal/headers"
	"kninja/internal/ninja"
	"kninja/internal/objmap"
	"kninja/internal/toolchain"
	"kninja/internal/trace"
)

// HeaderResolver returns the header set of each source, index-aligned.
// *headers.Resolver scans on demand; *headers.Table serves results of an
// earlier tree-wide scan.
type HeaderResolver interface {
	ResolveAll(ctx context.Context, sources []string) ([][]headers.Include, error)
}

// Env is what emission needs besides the description itself.
type Env struct {
	Toolchain toolchain.Config
	Headers   HeaderResolver
}

// Units maps the sources of f to translation units.
func Units(f File, tc toolchain.Config) ([]objmap.Unit, error) {
	units, err := objmap.MapAll(f.Path, f.Desc.Sources(), tc.OutputRoot)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return units, nil
}

// Emit translates f into its compile statements followed by its link
// statement. Nothing is returned unless every step succeeds.
func Emit(ctx context.Context, f File, env Env) ([]ninja.BuildStatement, error) {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDescription, f.Path, trace.ParentFromContext(ctx))
	span.WithExtra("kind", f.Desc.Kind().String())

	stmts, err := emit(trace.WithParent(ctx, span), f, env)
	if err != nil {
		span.End("failed")
		return nil, err
	}
	span.End(strconv.Itoa(len(stmts)) + " statements")
	return stmts, nil
}

func emit(ctx context.Context, f File, env Env) ([]ninja.BuildStatement, error) {
	tc := env.Toolchain
	units, err := Units(f, tc)
	if err != nil {
		return nil, err
	}
	sets, err := env.Headers.ResolveAll(ctx, objmap.Sources(units))
	if err != nil {
		return nil, err
	}

	stmts := make([]ninja.BuildStatement, 0, len(units)+1)
	for i, u := range units {
		stmts = append(stmts, compileStatement(u, sets[i]))
	}

	switch d := f.Desc.(type) {
	case *Core:
		stmts = append(stmts, ninja.BuildStatement{
			Inputs: objmap.Objects(units),
			Output: tc.CoreImage,
			Rule:   ninja.RuleCoreLink,
		})
	case *Module:
		stmts = append(stmts, moduleLink(d, units, tc))
	default:
		return nil, fmt.Errorf("%s: unsupported description %T", f.Path, f.Desc)
	}
	return stmts, nil
}

func compileStatement(u objmap.Unit, incs []headers.Include) ninja.BuildStatement {
	s := ninja.BuildStatement{
		Inputs: []string{u.Source},
		Output: u.Object,
		Rule:   ninja.RuleCompile,
	}
	if len(incs) > 0 {
		s.Implicit = headers.Paths(incs)
	}
	return s
}

// moduleLink links the module's objects. The core image is an implicit
// dependency: modules are CTF-merged against it but do not link it in.
func moduleLink(m *Module, units []objmap.Unit, tc toolchain.Config) ninja.BuildStatement {
	s := ninja.BuildStatement{
		Inputs:   objmap.Objects(units),
		Output:   tc.ModuleOutput(m.Name),
		Rule:     ninja.RuleModuleLink,
		Implicit: []string{tc.CoreImage},
	}
	if len(m.Dependencies) > 0 {
		s.Variables = []ninja.Variable{{Name: ninja.VarModDeps, Value: DependencyFlags(m.Dependencies)}}
	}
	return s
}

// DependencyFlags renders module dependencies as linker flags, one -N per
// dependency, in declaration order.
func DependencyFlags(deps []string) string {
	flags := make([]string, len(deps))
	for i, d := range deps {
		flags[i] = "-N" + ninja.EscapeValue(d)
	}
	return strings.Join(flags, " ")
}
