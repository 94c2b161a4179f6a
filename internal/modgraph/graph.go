package modgraph

import (
	"fmt"
	"slices"
	"strings"
)

// ProblemKind classifies a finding of the checker.
type ProblemKind string

const (
	ProblemUnresolved ProblemKind = "unresolved"
	ProblemDuplicate  ProblemKind = "duplicate"
	ProblemSelf       ProblemKind = "self"
	ProblemCycle      ProblemKind = "cycle"
)

// Problem is one finding, attributed to the description that caused it.
type Problem struct {
	Kind    ProblemKind `json:"kind"`
	Path    string      `json:"path"`
	Module  string      `json:"module"`
	Message string      `json:"message"`
}

func (p Problem) Error() string {
	return p.Path + ": " + p.Message
}

// Graph stores edges from a dependency to the modules that need it, so a
// Kahn walk yields dependencies first.
type Graph struct {
	Edges   [][]ModuleID // Edges[dep] = dependents
	Indeg   []int        // resolved dependencies per module
	Present []bool       // declared by some description, not only named
}

// Slot is what the graph knows about one ID.
type Slot struct {
	Node    Node
	Present bool
}

// BuildGraph wires nodes into a graph. The first declaration of a name
// wins; later ones are reported as duplicates. Repeated dependencies add
// a single edge.
func BuildGraph(idx Index, nodes []Node) (Graph, []Slot, []Problem) {
	n := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]ModuleID, n),
		Indeg:   make([]int, n),
		Present: make([]bool, n),
	}
	slots := make([]Slot, n)
	for i, name := range idx.IDToName {
		slots[i].Node.Name = name
	}
	var problems []Problem

	for _, node := range nodes {
		id, ok := idx.NameToID[node.Name]
		if !ok {
			continue
		}
		slot := &slots[id]
		if slot.Present {
			problems = append(problems, Problem{
				Kind:    ProblemDuplicate,
				Path:    node.Path,
				Module:  node.Name,
				Message: fmt.Sprintf("duplicate module %q, first declared in %s", node.Name, slot.Node.Path),
			})
			continue
		}
		slot.Node = node
		slot.Present = true
		g.Present[id] = true
	}

	for from := range slots {
		slot := &slots[from]
		if !slot.Present {
			continue
		}
		seen := make(map[ModuleID]struct{}, len(slot.Node.Deps))
		for _, dep := range slot.Node.Deps {
			to, ok := idx.NameToID[dep]
			if !ok {
				continue
			}
			if ModuleID(from) == to {
				problems = append(problems, Problem{
					Kind:    ProblemSelf,
					Path:    slot.Node.Path,
					Module:  slot.Node.Name,
					Message: fmt.Sprintf("module %q depends on itself", slot.Node.Name),
				})
				continue
			}
			if _, dup := seen[to]; dup {
				continue
			}
			seen[to] = struct{}{}
			if !g.Present[to] {
				problems = append(problems, Problem{
					Kind:    ProblemUnresolved,
					Path:    slot.Node.Path,
					Module:  slot.Node.Name,
					Message: fmt.Sprintf("module %q depends on unknown module %q", slot.Node.Name, dep),
				})
				continue
			}
			g.Edges[to] = append(g.Edges[to], ModuleID(from))
			g.Indeg[from]++
		}
	}
	for i := range g.Edges {
		slices.Sort(g.Edges[i])
	}
	return g, slots, problems
}

// CycleProblems reports every module left over by a cyclic sort.
func CycleProblems(idx Index, slots []Slot, topo *Topo) []Problem {
	if !topo.Cyclic {
		return nil
	}
	names := make([]string, len(topo.Cycles))
	for i, id := range topo.Cycles {
		names[i] = idx.IDToName[id]
	}
	summary := strings.Join(names, ", ")

	problems := make([]Problem, 0, len(topo.Cycles))
	for _, id := range topo.Cycles {
		slot := slots[id]
		problems = append(problems, Problem{
			Kind:    ProblemCycle,
			Path:    slot.Node.Path,
			Module:  slot.Node.Name,
			Message: fmt.Sprintf("module %q is part of a dependency cycle among %s", slot.Node.Name, summary),
		})
	}
	return problems
}
