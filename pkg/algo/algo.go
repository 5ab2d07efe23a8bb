// Package algo is the library of graph algorithms graphstep plays back. Every
// procedure reads a script.Snapshot and draws only through script.Canvas.
package algo

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
)

// Procedure names as registered with the runtime.
const (
	Bipartiteness   = "bipartiteness"
	SpanningTreeBFS = "spanning-tree-bfs"
	SpanningTreeDFS = "spanning-tree-dfs"
	Prim            = "prim"
	Kruskal         = "kruskal"
	Dijkstra        = "dijkstra"
	FloydWarshall   = "floyd-warshall"
	FordFulkerson   = "ford-fulkerson"
	MinCostFlowNC   = "min-cost-flow-nc"
	MinCostFlowSP   = "min-cost-flow-sp"
)

var (
	ErrMissingAttribute = errors.New("algo: missing attribute")
	ErrWrongMode        = errors.New("algo: graph mode not supported")
	ErrUnknownVertex    = errors.New("algo: unknown vertex")
	ErrNegativeWeight   = errors.New("algo: negative distance")
	ErrNegativeCycle    = errors.New("algo: negative cycle")
	ErrInfeasible       = errors.New("algo: flow infeasible")
	ErrUnbounded        = errors.New("algo: flow unbounded")
	ErrNoTerminals      = errors.New("algo: sources and sinks required")
)

// Library returns every procedure keyed by name.
func Library() map[string]script.Procedure {
	return map[string]script.Procedure{
		Bipartiteness:   runBipartiteness,
		SpanningTreeBFS: runSpanningTreeBFS,
		SpanningTreeDFS: runSpanningTreeDFS,
		Prim:            runPrim,
		Kruskal:         runKruskal,
		Dijkstra:        runDijkstra,
		FloydWarshall:   runFloydWarshall,
		FordFulkerson:   runFordFulkerson,
		MinCostFlowNC:   runMinCostFlowNC,
		MinCostFlowSP:   runMinCostFlowSP,
	}
}

// Fallback colors for roles a script did not set.
var (
	defaultCurrent  = graph.RGBA{R: 255, G: 191, A: 255}
	defaultVisited  = graph.RGBA{G: 150, B: 136, A: 255}
	defaultTree     = graph.RGBA{R: 46, G: 204, B: 113, A: 255}
	defaultPath     = graph.RGBA{R: 220, G: 20, B: 60, A: 255}
	defaultRejected = graph.RGBA{R: 127, G: 140, B: 141, A: 255}
	defaultSideA    = graph.RGBA{R: 52, G: 152, B: 219, A: 255}
	defaultSideB    = graph.RGBA{R: 230, G: 126, B: 34, A: 255}
)

// painter routes link callbacks to edges or arrows by the snapshot's mode.
type painter struct {
	script.Call
}

func (p painter) color(role string, def graph.RGBA) graph.RGBA {
	return p.Colors.Get(role, def)
}

func (p painter) highlightLink(a, b graph.NodeID) {
	if p.Graph.Directed() {
		p.Canvas.HighlightArrow(a, b)
		return
	}
	p.Canvas.HighlightEdge(a, b)
}

func (p painter) unhighlightLink(a, b graph.NodeID) {
	if p.Graph.Directed() {
		p.Canvas.UnhighlightArrow(a, b)
		return
	}
	p.Canvas.UnhighlightEdge(a, b)
}

func (p painter) colorLink(a, b graph.NodeID, c graph.RGBA) {
	if p.Graph.Directed() {
		p.Canvas.ColorArrow(a, b, c)
		return
	}
	p.Canvas.ColorEdge(a, b, c)
}

func (p painter) labelLink(a, b graph.NodeID, text string) {
	if p.Graph.Directed() {
		p.Canvas.LabelArrow(a, b, text)
		return
	}
	p.Canvas.LabelEdge(a, b, text)
}

func (p painter) colorLinkLabel(a, b graph.NodeID, c graph.RGBA) {
	if p.Graph.Directed() {
		p.Canvas.ColorArrowLabel(a, b, c)
		return
	}
	p.Canvas.ColorEdgeLabel(a, b, c)
}

func requireMode(name string, s *script.Snapshot, want graph.Mode) error {
	if s.Mode() != want {
		return fmt.Errorf("%w: %s needs a %s graph", ErrWrongMode, name, want)
	}
	return nil
}

func requireVertex(s *script.Snapshot, id graph.NodeID) error {
	if !s.HasVertex(id) {
		return fmt.Errorf("%w: %d", ErrUnknownVertex, id)
	}
	return nil
}

// linkAttrs reads keyword off every link, failing on the first one missing.
func linkAttrs(s *script.Snapshot, k script.Keyword) (map[graph.Pair]float64, error) {
	out := make(map[graph.Pair]float64, len(s.Links()))
	for _, p := range s.Links() {
		v, ok := s.LinkAttr(p.A, p.B, k)
		if !ok {
			return nil, fmt.Errorf("%w: %s on %s", ErrMissingAttribute, k, p)
		}
		out[p] = v
	}
	return out, nil
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinIDs(ids []graph.NodeID) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += " "
		}
		s += strconv.Itoa(int(id))
	}
	return s
}
