package algo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canvas records the visual calls procedures make.
type canvas struct {
	mu       sync.Mutex
	calls    []string
	messages []string
	waits    int
}

func (c *canvas) rec(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

func (c *canvas) has(call string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.calls {
		if s == call {
			return true
		}
	}
	return false
}

func (c *canvas) lastMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return ""
	}
	return c.messages[len(c.messages)-1]
}

func (c *canvas) HighlightNode(id graph.NodeID)           { c.rec("highlight-node %d", id) }
func (c *canvas) UnhighlightNode(id graph.NodeID)         { c.rec("unhighlight-node %d", id) }
func (c *canvas) HighlightEdge(a, b graph.NodeID)         { c.rec("highlight-edge %d %d", a, b) }
func (c *canvas) UnhighlightEdge(a, b graph.NodeID)       { c.rec("unhighlight-edge %d %d", a, b) }
func (c *canvas) HighlightArrow(a, b graph.NodeID)        { c.rec("highlight-arrow %d %d", a, b) }
func (c *canvas) UnhighlightArrow(a, b graph.NodeID)      { c.rec("unhighlight-arrow %d %d", a, b) }
func (c *canvas) LabelNode(id graph.NodeID, s string)     { c.rec("label-node %d %s", id, s) }
func (c *canvas) UnlabelNode(id graph.NodeID)             { c.rec("unlabel-node %d", id) }
func (c *canvas) LabelEdge(a, b graph.NodeID, s string)   { c.rec("label-edge %d %d %s", a, b, s) }
func (c *canvas) UnlabelEdge(a, b graph.NodeID)           { c.rec("unlabel-edge %d %d", a, b) }
func (c *canvas) LabelArrow(a, b graph.NodeID, s string)  { c.rec("label-arrow %d %d %s", a, b, s) }
func (c *canvas) UnlabelArrow(a, b graph.NodeID)          { c.rec("unlabel-arrow %d %d", a, b) }
func (c *canvas) ColorNode(id graph.NodeID, _ graph.RGBA) { c.rec("color-node %d", id) }
func (c *canvas) UncolorNode(id graph.NodeID)             { c.rec("uncolor-node %d", id) }
func (c *canvas) ColorEdge(a, b graph.NodeID, col graph.RGBA) {
	c.rec("color-edge %d %d %s", a, b, col.Hex())
}
func (c *canvas) UncolorEdge(a, b graph.NodeID) { c.rec("uncolor-edge %d %d", a, b) }
func (c *canvas) ColorArrow(a, b graph.NodeID, col graph.RGBA) {
	c.rec("color-arrow %d %d %s", a, b, col.Hex())
}
func (c *canvas) UncolorArrow(a, b graph.NodeID)                    { c.rec("uncolor-arrow %d %d", a, b) }
func (c *canvas) ColorNodeLabel(id graph.NodeID, _ graph.RGBA)      {}
func (c *canvas) UncolorNodeLabel(id graph.NodeID)                  {}
func (c *canvas) ColorEdgeLabel(a, b graph.NodeID, _ graph.RGBA)    {}
func (c *canvas) UncolorEdgeLabel(a, b graph.NodeID)                {}
func (c *canvas) ColorArrowLabel(a, b graph.NodeID, _ graph.RGBA)   {}
func (c *canvas) UncolorArrowLabel(a, b graph.NodeID)               {}
func (c *canvas) MoveNode(id graph.NodeID, dx, dy float64)          {}
func (c *canvas) PosNode(id graph.NodeID) (float64, float64, bool)  { return 0, 0, true }
func (c *canvas) Reload(string) error                               { return nil }
func (c *canvas) ShowMessage(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, text)
}
func (c *canvas) Wait(ctx context.Context, msg string) error {
	c.mu.Lock()
	c.waits++
	c.mu.Unlock()
	return ctx.Err()
}

type link struct {
	a, b  graph.NodeID
	attrs map[script.Keyword]float64
}

func snapshot(t *testing.T, mode graph.Mode, n int, links []link) *script.Snapshot {
	t.Helper()
	rt, err := script.New(nil, script.WithMode(mode))
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, rt.AddVertex(graph.NodeID(i), float64(i), 0))
	}
	for _, l := range links {
		if mode == graph.Directed {
			require.NoError(t, rt.AddArrow(l.a, l.b))
		} else {
			require.NoError(t, rt.AddEdge(l.a, l.b))
		}
		for k, v := range l.attrs {
			require.NoError(t, rt.AddAttribute(graph.ConnTarget(graph.Pair{A: l.a, B: l.b}), k, v))
		}
	}
	return rt.Snapshot()
}

func run(t *testing.T, name string, g *script.Snapshot, args script.Args) (*canvas, error) {
	t.Helper()
	c := &canvas{}
	err := Library()[name](context.Background(), script.Call{Canvas: c, Graph: g, Args: args, Steps: true})
	return c, err
}

func w(k script.Keyword, v float64) map[script.Keyword]float64 {
	return map[script.Keyword]float64{k: v}
}

func TestLibrary_HasAllProcedures(t *testing.T) {
	lib := Library()
	for _, name := range []string{
		Bipartiteness, SpanningTreeBFS, SpanningTreeDFS, Prim, Kruskal,
		Dijkstra, FloydWarshall, FordFulkerson, MinCostFlowNC, MinCostFlowSP,
	} {
		assert.Contains(t, lib, name)
	}
	assert.Len(t, lib, 10)
}

func TestDijkstra_Path(t *testing.T) {
	g := snapshot(t, graph.Undirected, 3, []link{
		{0, 1, w(script.Distance, 1)},
		{1, 2, w(script.Distance, 1)},
	})
	c, err := run(t, Dijkstra, g, script.Args{Root: 0, End: 2})
	require.NoError(t, err)

	assert.True(t, c.has("highlight-edge 0 1"))
	assert.True(t, c.has("highlight-edge 1 2"))
	assert.True(t, c.has("label-node 2 2"))
	assert.Equal(t, "shortest path 0 -> 2: 0 1 2 (length 2)", c.lastMessage())
	assert.Equal(t, 3, c.waits)
}

func TestDijkstra_Errors(t *testing.T) {
	g := snapshot(t, graph.Directed, 2, []link{{0, 1, nil}})
	_, err := run(t, Dijkstra, g, script.Args{Root: 0, End: 1})
	assert.ErrorIs(t, err, ErrMissingAttribute)

	g = snapshot(t, graph.Directed, 2, []link{{0, 1, w(script.Distance, -1)}})
	_, err = run(t, Dijkstra, g, script.Args{Root: 0, End: 1})
	assert.ErrorIs(t, err, ErrNegativeWeight)

	_, err = run(t, Dijkstra, g, script.Args{Root: 0, End: 9})
	assert.ErrorIs(t, err, ErrUnknownVertex)

	g = snapshot(t, graph.Directed, 2, []link{{1, 0, w(script.Distance, 1)}})
	c, err := run(t, Dijkstra, g, script.Args{Root: 0, End: 1})
	require.NoError(t, err)
	assert.Equal(t, "1 is unreachable from 0", c.lastMessage())
}

func TestFloydWarshall(t *testing.T) {
	g := snapshot(t, graph.Directed, 3, []link{
		{0, 1, w(script.Distance, 4)},
		{1, 2, w(script.Distance, -2)},
		{0, 2, w(script.Distance, 5)},
	})
	c, err := run(t, FloydWarshall, g, script.Args{})
	require.NoError(t, err)
	assert.True(t, c.has("label-node 2 2"))
	assert.True(t, c.has("label-node 0 inf"))
	assert.Equal(t, 6, c.waits)

	g = snapshot(t, graph.Directed, 2, []link{
		{0, 1, w(script.Distance, 1)},
		{1, 0, w(script.Distance, -3)},
	})
	_, err = run(t, FloydWarshall, g, script.Args{})
	assert.ErrorIs(t, err, ErrNegativeCycle)
}

func TestKruskalAndPrim(t *testing.T) {
	g := snapshot(t, graph.Undirected, 4, []link{
		{0, 1, w(script.Weight, 1)},
		{1, 2, w(script.Weight, 2)},
		{0, 2, w(script.Weight, 3)},
		{2, 3, w(script.Weight, 1)},
	})
	c, err := run(t, Kruskal, g, script.Args{})
	require.NoError(t, err)
	assert.Equal(t, "minimum spanning tree weight 4", c.lastMessage())
	assert.True(t, c.has("color-edge 0 2 "+defaultRejected.Hex()))

	c, err = run(t, Prim, g, script.Args{Root: 3})
	require.NoError(t, err)
	assert.Equal(t, "minimum spanning tree weight 4", c.lastMessage())

	d := snapshot(t, graph.Directed, 2, []link{{0, 1, w(script.Weight, 1)}})
	_, err = run(t, Prim, d, script.Args{Root: 0})
	assert.ErrorIs(t, err, ErrWrongMode)
	_, err = run(t, Kruskal, d, script.Args{})
	assert.ErrorIs(t, err, ErrWrongMode)
}

func TestBipartiteness(t *testing.T) {
	square := snapshot(t, graph.Undirected, 4, []link{{0, 1, nil}, {1, 2, nil}, {2, 3, nil}, {3, 0, nil}})
	c, err := run(t, Bipartiteness, square, script.Args{})
	require.NoError(t, err)
	assert.Equal(t, "graph is bipartite", c.lastMessage())
	assert.True(t, c.has("label-node 2 A"))

	triangle := snapshot(t, graph.Undirected, 3, []link{{0, 1, nil}, {1, 2, nil}, {0, 2, nil}})
	c, err = run(t, Bipartiteness, triangle, script.Args{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.lastMessage(), "not bipartite"))
}

func TestSpanningTrees(t *testing.T) {
	g := snapshot(t, graph.Directed, 4, []link{{0, 1, nil}, {0, 2, nil}, {1, 3, nil}, {2, 3, nil}})

	c, err := run(t, SpanningTreeBFS, g, script.Args{Root: 0})
	require.NoError(t, err)
	assert.Equal(t, "spanning tree reaches 4 of 4 vertices", c.lastMessage())
	assert.True(t, c.has("label-node 3 3"))
	assert.True(t, c.has("highlight-arrow 1 3"))
	assert.False(t, c.has("highlight-arrow 2 3"))

	c, err = run(t, SpanningTreeDFS, g, script.Args{Root: 2})
	require.NoError(t, err)
	assert.Equal(t, "spanning tree reaches 2 of 4 vertices", c.lastMessage())
}

func capLinks(caps map[[2]graph.NodeID]float64) []link {
	var out []link
	for k, v := range caps {
		out = append(out, link{k[0], k[1], w(script.QMax, v)})
	}
	return out
}

func TestFordFulkerson_Max(t *testing.T) {
	g := snapshot(t, graph.Directed, 4, capLinks(map[[2]graph.NodeID]float64{
		{0, 1}: 3, {0, 2}: 2, {1, 2}: 1, {1, 3}: 2, {2, 3}: 3,
	}))
	c, err := run(t, FordFulkerson, g, script.Args{Sources: []graph.NodeID{0}, Sinks: []graph.NodeID{3}, Maximize: true})
	require.NoError(t, err)
	assert.Equal(t, "maximum flow 5", c.lastMessage())
	assert.True(t, c.has("label-arrow 1 3 2/2"))
}

func TestFordFulkerson_TargetAndBounds(t *testing.T) {
	g := snapshot(t, graph.Directed, 3, capLinks(map[[2]graph.NodeID]float64{{0, 1}: 5, {1, 2}: 5}))
	c, err := run(t, FordFulkerson, g, script.Args{Sources: []graph.NodeID{0}, Sinks: []graph.NodeID{2}, Flow: 3})
	require.NoError(t, err)
	assert.Equal(t, "flow 3 reached", c.lastMessage())

	_, err = run(t, FordFulkerson, g, script.Args{Sources: []graph.NodeID{0}, Sinks: []graph.NodeID{2}, Flow: 6})
	assert.ErrorIs(t, err, ErrInfeasible)

	bounded := snapshot(t, graph.Directed, 3, []link{
		{0, 1, map[script.Keyword]float64{script.QMin: 2, script.QMax: 3}},
		{1, 2, w(script.QMax, 1)},
	})
	_, err = run(t, FordFulkerson, bounded, script.Args{Sources: []graph.NodeID{0}, Sinks: []graph.NodeID{2}, Maximize: true})
	assert.ErrorIs(t, err, ErrInfeasible)

	_, err = run(t, FordFulkerson, g, script.Args{Sources: []graph.NodeID{0}, Sinks: []graph.NodeID{0}, Maximize: true})
	assert.ErrorIs(t, err, ErrUnbounded)

	_, err = run(t, FordFulkerson, g, script.Args{Maximize: true})
	assert.ErrorIs(t, err, ErrNoTerminals)
}

func TestFordFulkerson_LowerBoundMet(t *testing.T) {
	g := snapshot(t, graph.Directed, 3, []link{
		{0, 1, map[script.Keyword]float64{script.QMin: 1, script.QMax: 4}},
		{1, 2, w(script.QMax, 2)},
	})
	c, err := run(t, FordFulkerson, g, script.Args{Sources: []graph.NodeID{0}, Sinks: []graph.NodeID{2}, Maximize: true})
	require.NoError(t, err)
	assert.Equal(t, "maximum flow 2", c.lastMessage())
	assert.True(t, c.has("label-arrow 0 1 2/4"))
}

func costNetwork(t *testing.T) *script.Snapshot {
	both := func(q, cost float64) map[script.Keyword]float64 {
		return map[script.Keyword]float64{script.QMax: q, script.Cost: cost}
	}
	return snapshot(t, graph.Directed, 4, []link{
		{0, 1, both(2, 1)},
		{1, 3, both(2, 1)},
		{0, 2, both(2, 5)},
		{2, 3, both(2, 5)},
	})
}

func TestMinCostFlow(t *testing.T) {
	args := script.Args{Sources: []graph.NodeID{0}, Sinks: []graph.NodeID{3}, Flow: 3}
	for _, name := range []string{MinCostFlowNC, MinCostFlowSP} {
		t.Run(name, func(t *testing.T) {
			c, err := run(t, name, costNetwork(t), args)
			require.NoError(t, err)
			assert.Equal(t, "flow 3 at minimum cost 14", c.lastMessage())
			assert.True(t, c.has("label-arrow 0 1 2/2"))
			assert.True(t, c.has("label-arrow 0 2 1/2"))
		})
	}

	_, err := run(t, MinCostFlowSP, costNetwork(t), script.Args{Sources: []graph.NodeID{0}, Sinks: []graph.NodeID{3}, Flow: 5})
	assert.ErrorIs(t, err, ErrInfeasible)

	noCost := snapshot(t, graph.Directed, 2, []link{{0, 1, w(script.QMax, 1)}})
	_, err = run(t, MinCostFlowNC, noCost, script.Args{Sources: []graph.NodeID{0}, Sinks: []graph.NodeID{1}, Flow: 1})
	assert.ErrorIs(t, err, ErrMissingAttribute)
}

func TestProceduresStopOnCancel(t *testing.T) {
	g := snapshot(t, graph.Undirected, 3, []link{
		{0, 1, w(script.Distance, 1)},
		{1, 2, w(script.Distance, 1)},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Library()[Dijkstra](ctx, script.Call{Canvas: &canvas{}, Graph: g, Args: script.Args{Root: 0, End: 2}, Steps: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpring(t *testing.T) {
	nodes := []graph.Node{{ID: 0, X: 0, Y: 0}, {ID: 1, X: 60, Y: 0}}
	conns := []graph.Connection{{Pair: graph.Pair{A: 0, B: 1}}}
	off := Spring(nodes, conns, DefaultSpringParams())
	require.Contains(t, off, graph.NodeID(0))
	assert.Greater(t, off[0].DX, 0.0, "stretched spring pulls together")
	assert.Less(t, off[1].DX, 0.0)
	assert.LessOrEqual(t, off[0].DX, DefaultSpringParams().MaxStep)
}
