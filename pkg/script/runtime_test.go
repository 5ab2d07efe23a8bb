package script

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNatives records every callback as a short string.
type fakeNatives struct {
	mu    sync.Mutex
	calls []string
	next  graph.NodeID
}

func (f *fakeNatives) rec(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeNatives) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeNatives) HighlightNode(id graph.NodeID)      { f.rec("highlight-node %d", id) }
func (f *fakeNatives) UnhighlightNode(id graph.NodeID)    { f.rec("unhighlight-node %d", id) }
func (f *fakeNatives) HighlightEdge(a, b graph.NodeID)    { f.rec("highlight-edge %d %d", a, b) }
func (f *fakeNatives) UnhighlightEdge(a, b graph.NodeID)  { f.rec("unhighlight-edge %d %d", a, b) }
func (f *fakeNatives) HighlightArrow(a, b graph.NodeID)   { f.rec("highlight-arrow %d %d", a, b) }
func (f *fakeNatives) UnhighlightArrow(a, b graph.NodeID) { f.rec("unhighlight-arrow %d %d", a, b) }
func (f *fakeNatives) LabelNode(id graph.NodeID, s string) {
	f.rec("label-node %d %s", id, s)
}
func (f *fakeNatives) UnlabelNode(id graph.NodeID) { f.rec("unlabel-node %d", id) }
func (f *fakeNatives) LabelEdge(a, b graph.NodeID, s string) {
	f.rec("label-edge %d %d %s", a, b, s)
}
func (f *fakeNatives) UnlabelEdge(a, b graph.NodeID) { f.rec("unlabel-edge %d %d", a, b) }
func (f *fakeNatives) LabelArrow(a, b graph.NodeID, s string) {
	f.rec("label-arrow %d %d %s", a, b, s)
}
func (f *fakeNatives) UnlabelArrow(a, b graph.NodeID)                 { f.rec("unlabel-arrow %d %d", a, b) }
func (f *fakeNatives) ColorNode(id graph.NodeID, c graph.RGBA)        { f.rec("color-node %d %s", id, c.Hex()) }
func (f *fakeNatives) UncolorNode(id graph.NodeID)                    { f.rec("uncolor-node %d", id) }
func (f *fakeNatives) ColorEdge(a, b graph.NodeID, c graph.RGBA)      { f.rec("color-edge %d %d %s", a, b, c.Hex()) }
func (f *fakeNatives) UncolorEdge(a, b graph.NodeID)                  { f.rec("uncolor-edge %d %d", a, b) }
func (f *fakeNatives) ColorArrow(a, b graph.NodeID, c graph.RGBA)     { f.rec("color-arrow %d %d %s", a, b, c.Hex()) }
func (f *fakeNatives) UncolorArrow(a, b graph.NodeID)                 { f.rec("uncolor-arrow %d %d", a, b) }
func (f *fakeNatives) ColorNodeLabel(id graph.NodeID, c graph.RGBA)   { f.rec("color-node-label %d", id) }
func (f *fakeNatives) UncolorNodeLabel(id graph.NodeID)               { f.rec("uncolor-node-label %d", id) }
func (f *fakeNatives) ColorEdgeLabel(a, b graph.NodeID, c graph.RGBA) { f.rec("color-edge-label %d %d", a, b) }
func (f *fakeNatives) UncolorEdgeLabel(a, b graph.NodeID)             { f.rec("uncolor-edge-label %d %d", a, b) }
func (f *fakeNatives) ColorArrowLabel(a, b graph.NodeID, c graph.RGBA) {
	f.rec("color-arrow-label %d %d", a, b)
}
func (f *fakeNatives) UncolorArrowLabel(a, b graph.NodeID) { f.rec("uncolor-arrow-label %d %d", a, b) }
func (f *fakeNatives) MoveNode(id graph.NodeID, dx, dy float64) {
	f.rec("move-node %d %g %g", id, dx, dy)
}
func (f *fakeNatives) PosNode(id graph.NodeID) (float64, float64, bool) { return 0, 0, true }
func (f *fakeNatives) ShowMessage(text string)                          { f.rec("message %s", text) }
func (f *fakeNatives) Wait(ctx context.Context, msg string) error {
	f.rec("wait %s", msg)
	return ctx.Err()
}
func (f *fakeNatives) Reload(path string) error { f.rec("reload %s", path); return nil }
func (f *fakeNatives) PaintNode(id graph.NodeID, x, y float64) {
	f.rec("paint-node %d", id)
}
func (f *fakeNatives) UnpaintNode(id graph.NodeID)     { f.rec("unpaint-node %d", id) }
func (f *fakeNatives) PaintEdge(a, b graph.NodeID)     { f.rec("paint-edge %d %d", a, b) }
func (f *fakeNatives) UnpaintEdge(a, b graph.NodeID)   { f.rec("unpaint-edge %d %d", a, b) }
func (f *fakeNatives) PaintArrow(a, b graph.NodeID)    { f.rec("paint-arrow %d %d", a, b) }
func (f *fakeNatives) UnpaintArrow(a, b graph.NodeID)  { f.rec("unpaint-arrow %d %d", a, b) }
func (f *fakeNatives) IncrementID(placed graph.NodeID) { f.rec("increment-id %d", placed) }

func newTestRuntime(t *testing.T, procs map[string]Procedure, opts ...Option) (*Runtime, *fakeNatives) {
	t.Helper()
	r, err := New(procs, opts...)
	require.NoError(t, err)
	n := &fakeNatives{}
	r.Bind(n)
	return r, n
}

func TestRuntime_StructuralCallsPaint(t *testing.T) {
	r, n := newTestRuntime(t, nil)

	require.NoError(t, r.AddVertex(0, 1, 1))
	require.NoError(t, r.AddVertex(1, 2, 2))
	require.NoError(t, r.AddEdge(1, 0))

	assert.ErrorIs(t, r.AddArrow(0, 1), graph.ErrWrongMode)
	assert.ErrorIs(t, r.AddEdge(0, 1), graph.ErrConnectionExists)
	assert.ErrorIs(t, r.AddVertex(0, 0, 0), graph.ErrNodeExists)

	require.NoError(t, r.RemoveVertex(0))

	assert.Equal(t, []string{
		"paint-node 0", "increment-id 0",
		"paint-node 1", "increment-id 1",
		"paint-edge 1 0",
		"unpaint-edge 0 1",
		"unpaint-node 0",
	}, n.Calls())

	snap := r.Snapshot()
	assert.Equal(t, []graph.NodeID{1}, snap.Vertices())
	assert.Empty(t, snap.Links())
}

func TestRuntime_Attributes(t *testing.T) {
	r, _ := newTestRuntime(t, nil, WithMode(graph.Directed))
	require.NoError(t, r.AddVertex(0, 0, 0))
	require.NoError(t, r.AddVertex(1, 0, 0))
	require.NoError(t, r.AddArrow(0, 1))

	require.NoError(t, r.AddAttribute(graph.ConnTarget(graph.ArrowKey(0, 1)), QMax, 4))
	require.NoError(t, r.AddAttribute(graph.NodeTarget(1), QMin, 1))
	assert.ErrorIs(t, r.AddAttribute(graph.ConnTarget(graph.ArrowKey(1, 0)), QMax, 4), graph.ErrConnectionNotFound)
	assert.ErrorIs(t, r.AddAttribute(graph.NodeTarget(1), "speed", 1), ErrUnknownKeyword)

	snap := r.Snapshot()
	v, ok := snap.LinkAttr(0, 1, QMax)
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
	_, ok = snap.LinkAttr(1, 0, QMax)
	assert.False(t, ok)

	r.ClearAttributes(QMax)
	_, ok = r.Attr(graph.ConnTarget(graph.ArrowKey(0, 1)), QMax)
	assert.False(t, ok)
	_, ok = r.Attr(graph.NodeTarget(1), QMin)
	assert.True(t, ok)

	r.ClearAttributes()
	_, ok = r.Attr(graph.NodeTarget(1), QMin)
	assert.False(t, ok)
}

func TestRuntime_SnapshotIsImmutable(t *testing.T) {
	r, _ := newTestRuntime(t, nil)
	require.NoError(t, r.AddVertex(0, 0, 0))
	snap := r.Snapshot()

	require.NoError(t, r.AddVertex(1, 0, 0))
	assert.Equal(t, []graph.NodeID{0}, snap.Vertices())
	assert.Len(t, r.Snapshot().Vertices(), 2)
}

func TestRuntime_SnapshotAdjacency(t *testing.T) {
	r, _ := newTestRuntime(t, nil, WithMode(graph.Directed))
	for i := graph.NodeID(0); i < 3; i++ {
		require.NoError(t, r.AddVertex(i, 0, 0))
	}
	require.NoError(t, r.AddArrow(2, 0))
	require.NoError(t, r.AddArrow(0, 1))

	snap := r.Snapshot()
	assert.Equal(t, []graph.NodeID{1}, snap.Out(0))
	assert.Equal(t, []graph.NodeID{2}, snap.In(0))
	assert.Equal(t, []graph.NodeID{1, 2}, snap.Neighbors(0))
	_, ok := snap.Link(1, 0)
	assert.False(t, ok)
}

func TestRuntime_InvokeRecoversPanic(t *testing.T) {
	procs := map[string]Procedure{
		"boom": func(ctx context.Context, c Call) error { panic("bad script") },
		"ok": func(ctx context.Context, c Call) error {
			c.Canvas.ShowMessage(fmt.Sprintf("%d vertices", len(c.Graph.Vertices())))
			return nil
		},
	}
	r, n := newTestRuntime(t, procs)

	err := r.Invoke(context.Background(), "run-boom", Args{})
	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "boom", fault.Procedure)

	require.NoError(t, r.Invoke(context.Background(), "ok", Args{}))
	assert.Contains(t, n.Calls(), "message 0 vertices")

	assert.ErrorIs(t, r.Invoke(context.Background(), "missing", Args{}), ErrUnknownProcedure)
}

func TestRuntime_InvokeSnapshot(t *testing.T) {
	procs := map[string]Procedure{
		"count": func(ctx context.Context, c Call) error {
			c.Canvas.ShowMessage(fmt.Sprintf("%d vertices", len(c.Graph.Vertices())))
			return nil
		},
	}
	r, n := newTestRuntime(t, procs)
	require.NoError(t, r.AddVertex(0, 0, 0))
	snap := r.Snapshot()
	require.NoError(t, r.AddVertex(1, 4, 0))

	require.NoError(t, r.InvokeSnapshot(context.Background(), "run-count", snap, Args{}))
	assert.Contains(t, n.Calls(), "message 1 vertices")
}

func TestRuntime_CheckAttribute(t *testing.T) {
	r, _ := newTestRuntime(t, nil)
	require.NoError(t, r.AddVertex(0, 0, 0))
	require.NoError(t, r.AddVertex(1, 4, 0))
	require.NoError(t, r.AddEdge(0, 1))

	assert.NoError(t, r.CheckAttribute(graph.ConnTarget(graph.EdgeKey(1, 0)), Weight))
	assert.ErrorIs(t, r.CheckAttribute(graph.NodeTarget(5), QMax), graph.ErrNodeNotFound)
	assert.ErrorIs(t, r.CheckAttribute(graph.ConnTarget(graph.EdgeKey(0, 5)), Cost), graph.ErrConnectionNotFound)
	assert.Error(t, r.CheckAttribute(graph.NodeTarget(0), Keyword("speed")))

	_, ok := r.Attr(graph.ConnTarget(graph.EdgeKey(0, 1)), Weight)
	assert.False(t, ok, "checking stores nothing")
}

func TestRuntime_InvokeUnbound(t *testing.T) {
	r, err := New(map[string]Procedure{"p": func(context.Context, Call) error { return nil }})
	require.NoError(t, err)
	assert.ErrorIs(t, r.Invoke(context.Background(), "p", Args{}), ErrNotBound)
}

func TestRuntime_NewGraphResetsMirror(t *testing.T) {
	r, _ := newTestRuntime(t, nil)
	require.NoError(t, r.AddVertex(0, 0, 0))
	r.NewGraph(graph.Directed)
	assert.Equal(t, graph.Directed, r.Mode())
	assert.Empty(t, r.Snapshot().Vertices())

	require.NoError(t, r.AddVertex(0, 0, 0))
	r.Clear()
	assert.Equal(t, graph.Directed, r.Mode())
	assert.Empty(t, r.Snapshot().Vertices())
}
