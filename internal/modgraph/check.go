package modgraph

// Report is the outcome of checking a description tree.
type Report struct {
	Modules  int        `json:"modules"`
	Order    []string   `json:"order"`
	Batches  [][]string `json:"batches"`
	Problems []Problem  `json:"problems,omitempty"`
}

// OK reports whether the tree has no findings.
func (r Report) OK() bool { return len(r.Problems) == 0 }

// Check indexes nodes, reports problems and orders the modules that could
// be ordered.
func Check(nodes []Node) Report {
	idx := BuildIndex(nodes)
	g, slots, problems := BuildGraph(idx, nodes)
	topo := ToposortKahn(g)
	problems = append(problems, CycleProblems(idx, slots, topo)...)

	report := Report{
		Order:    names(idx, topo.Order),
		Batches:  make([][]string, len(topo.Batches)),
		Problems: problems,
	}
	for i, batch := range topo.Batches {
		report.Batches[i] = names(idx, batch)
	}
	for _, present := range g.Present {
		if present {
			report.Modules++
		}
	}
	return report
}

func names(idx Index, ids []ModuleID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[id]
	}
	return out
}
