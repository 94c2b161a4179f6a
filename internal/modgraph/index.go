// Package modgraph indexes the module dependency declarations of a
// description tree. Generation never consults it; it backs the check
// command, which reports unresolved names, duplicates and cycles and
// derives a link order.
package modgraph

import (
	"path"
	"sort"

	"kninja/internal/spec"
	"kninja/internal/toolchain"
)

type ModuleID uint32

// Node is one declared module and the names it depends on.
type Node struct {
	Name string
	// Path is the description file that declared the module.
	Path string
	Deps []string
}

type Index struct {
	NameToID map[string]ModuleID
	IDToName []string
}

// NodesFromFiles turns loaded descriptions into nodes in discovery order.
// The core image takes part under the base name of its output, so a
// module may name it as a dependency.
func NodesFromFiles(files []spec.File, tc toolchain.Config) []Node {
	nodes := make([]Node, 0, len(files))
	for _, f := range files {
		switch d := f.Desc.(type) {
		case *spec.Core:
			nodes = append(nodes, Node{Name: path.Base(tc.CoreImage), Path: f.Path})
		case *spec.Module:
			nodes = append(nodes, Node{Name: d.Name, Path: f.Path, Deps: d.Dependencies})
		}
	}
	return nodes
}

// BuildIndex assigns IDs to every name that is declared or depended upon,
// in sorted order.
func BuildIndex(nodes []Node) Index {
	uniq := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if n.Name != "" {
			uniq[n.Name] = struct{}{}
		}
		for _, dep := range n.Deps {
			if dep != "" {
				uniq[dep] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	nameToID := make(map[string]ModuleID, len(names))
	for i, name := range names {
		nameToID[name] = ModuleID(i)
	}
	return Index{NameToID: nameToID, IDToName: names}
}
