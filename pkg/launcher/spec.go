package launcher

import (
	"github.com/DrSkyle/graphstep/pkg/algo"
	"github.com/DrSkyle/graphstep/pkg/graph"
)

// Need is a set of parameters a dialog must collect.
type Need uint8

const (
	NeedRoot Need = 1 << iota
	NeedEnd
	NeedTerminals // ordered sources and sinks
	NeedFlow      // target value or maximize
)

func (n Need) Has(o Need) bool { return n&o == o }

// Spec describes how one algorithm is launched.
type Spec struct {
	Name    string
	Title   string
	Key     string // shortcut on the canvas
	AnyMode bool
	Mode    graph.Mode // required when AnyMode is false
	Needs   Need
	Links   Grammar // applied to every edge or arrow label
	Nodes   Grammar // applied to every node label
}

// Accepts reports whether the algorithm runs in mode.
func (s Spec) Accepts(mode graph.Mode) bool {
	return s.AnyMode || s.Mode == mode
}

var specs = []Spec{
	{Name: algo.Bipartiteness, Title: "Bipartiteness", Key: "1", AnyMode: true},
	{Name: algo.SpanningTreeBFS, Title: "Spanning tree (BFS)", Key: "2", AnyMode: true, Needs: NeedRoot},
	{Name: algo.SpanningTreeDFS, Title: "Spanning tree (DFS)", Key: "3", AnyMode: true, Needs: NeedRoot},
	{Name: algo.Prim, Title: "Prim", Key: "4", Mode: graph.Undirected, Needs: NeedRoot, Links: GrammarWeight},
	{Name: algo.Kruskal, Title: "Kruskal", Key: "5", Mode: graph.Undirected, Links: GrammarWeight},
	{Name: algo.Dijkstra, Title: "Dijkstra", Key: "6", AnyMode: true, Needs: NeedRoot | NeedEnd, Links: GrammarDistance},
	{Name: algo.FloydWarshall, Title: "Floyd-Warshall", Key: "7", AnyMode: true, Links: GrammarDistance},
	{
		Name: algo.FordFulkerson, Title: "Ford-Fulkerson", Key: "8", Mode: graph.Directed,
		Needs: NeedTerminals | NeedFlow, Links: GrammarCapacity, Nodes: GrammarNodeCapacity,
	},
	{
		Name: algo.MinCostFlowNC, Title: "Min-cost flow (cycle canceling)", Key: "9", Mode: graph.Directed,
		Needs: NeedTerminals | NeedFlow, Links: GrammarCostNC, Nodes: GrammarNodeCapacity,
	},
	{
		Name: algo.MinCostFlowSP, Title: "Min-cost flow (shortest paths)", Key: "0", Mode: graph.Directed,
		Needs: NeedTerminals | NeedFlow, Links: GrammarCostSP,
	},
}

// Specs lists every launchable algorithm in menu order.
func Specs() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}

// Lookup finds a spec by algorithm name or shortcut key.
func Lookup(nameOrKey string) (Spec, bool) {
	for _, s := range specs {
		if s.Name == nameOrKey || s.Key == nameOrKey {
			return s, true
		}
	}
	return Spec{}, false
}
