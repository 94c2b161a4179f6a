// Package ninja holds the in-memory build graph and its serialisation to
// the ninja build file format.
package ninja

import (
	"strings"

	"kninja/internal/toolchain"
)

// Rule names used by the generated graph.
const (
	RuleCompile    = "cc_kernel"
	RuleModuleLink = "ld_kmod"
	RuleCoreLink   = "ld_genunix"
)

// Variable names used by rules and statements.
const (
	VarCFlags  = "kernel_cflags"
	VarLDFlags = "kernel_ldflags"
	VarModDeps = "mod_deps"
)

// Variable is a name = value binding.
type Variable struct {
	Name  string `json:"name" msgpack:"name"`
	Value string `json:"value" msgpack:"value"`
}

// Rule is a named command template.
type Rule struct {
	Name    string `json:"name" msgpack:"name"`
	Command string `json:"command" msgpack:"command"`
}

// BuildStatement produces Output from Inputs with Rule.
type BuildStatement struct {
	Inputs    []string   `json:"inputs" msgpack:"inputs"`
	Output    string     `json:"output" msgpack:"output"`
	Rule      string     `json:"rule" msgpack:"rule"`
	Variables []Variable `json:"variables,omitempty" msgpack:"variables,omitempty"`
	// Implicit lists dependencies that are not passed as $in: headers for
	// compile statements, the core image for module links.
	Implicit []string `json:"implicit,omitempty" msgpack:"implicit,omitempty"`
}

// Graph is the complete generation result.
type Graph struct {
	Variables  []Variable       `json:"variables" msgpack:"variables"`
	Rules      []Rule           `json:"rules" msgpack:"rules"`
	Statements []BuildStatement `json:"statements" msgpack:"statements"`
}

// New returns a graph holding the fixed variables and rules for cfg.
// Statements are appended afterwards in discovery order.
func New(cfg toolchain.Config) *Graph {
	return &Graph{
		Variables: []Variable{
			{Name: VarCFlags, Value: strings.Join(cfg.CFlags, " ")},
			{Name: VarLDFlags, Value: strings.Join(cfg.LDFlags, " ")},
		},
		Rules: []Rule{
			{
				Name: RuleCompile,
				Command: chain(
					cfg.Compiler+" $"+VarCFlags+" -c $in -o $out",
					cfg.CTFConvert+" -X -l '"+cfg.Label+"' $out",
					cfg.Strip+" $out",
				),
			},
			{
				Name: RuleModuleLink,
				Command: chain(
					cfg.Linker+" $"+VarLDFlags+" $"+VarModDeps+" -o $out $in",
					cfg.CTFMerge+" -l '"+cfg.Label+"' -d "+cfg.CoreImage+" -o $out $in",
				),
			},
			{
				Name: RuleCoreLink,
				Command: chain(
					cfg.Linker+" $"+VarLDFlags+" -o $out $in",
					cfg.CTFMerge+" -l '"+cfg.Label+"' -o $out $in",
				),
			},
		},
	}
}

func chain(cmds ...string) string {
	return strings.Join(cmds, " && ")
}

// Append adds statements in order. Outputs are not deduplicated; clashing
// outputs are reported by ninja when it loads the file.
func (g *Graph) Append(stmts ...BuildStatement) {
	g.Statements = append(g.Statements, stmts...)
}

// Statement returns the statement producing output.
func (g *Graph) Statement(output string) (BuildStatement, bool) {
	for _, s := range g.Statements {
		if s.Output == output {
			return s, true
		}
	}
	return BuildStatement{}, false
}

// Var returns the value of the statement-scoped variable name.
func (s BuildStatement) Var(name string) (string, bool) {
	for _, v := range s.Variables {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}
