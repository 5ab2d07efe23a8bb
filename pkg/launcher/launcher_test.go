package launcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DrSkyle/graphstep/pkg/algo"
	"github.com/DrSkyle/graphstep/pkg/bridge"
	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrammar_Examples(t *testing.T) {
	conn := graph.ConnTarget(graph.ArrowKey(0, 1))
	tests := []struct {
		name    string
		grammar Grammar
		label   string
		want    []Value
	}{
		{"single weight", GrammarWeight, "3", []Value{{script.Weight, 3}}},
		{"distance with spaces", GrammarDistance, " 2.5 ", []Value{{script.Distance, 2.5}}},
		{"ff bounds", GrammarCapacity, "1,2", []Value{{script.QMin, 1}, {script.QMax, 2}}},
		{"ff capacity", GrammarCapacity, "4", []Value{{script.QMax, 4}}},
		{"ff empty", GrammarCapacity, "", []Value{{script.QMax, 0}}},
		{"node empty", GrammarNodeCapacity, "  ", nil},
		{"nc three fields", GrammarCostNC, "1,2,$5", []Value{{script.QMin, 1}, {script.QMax, 2}, {script.Cost, 5}}},
		{"nc two fields", GrammarCostNC, "2,€-1", []Value{{script.QMax, 2}, {script.Cost, -1}}},
		{"nc cost is the last field", GrammarCostNC, "1, 2, 7, $5", []Value{{script.QMin, 1}, {script.QMax, 2}, {script.Cost, 5}}},
		{"sp", GrammarCostSP, "2,$3", []Value{{script.QMax, 2}, {script.Cost, 3}}},
		{"empty segments skipped", GrammarCostSP, "2,,$3,", []Value{{script.QMax, 2}, {script.Cost, 3}}},
		{"none", GrammarNone, "whatever", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.grammar.Parse(conn, tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrammar_Rejects(t *testing.T) {
	node := graph.NodeTarget(3)
	tests := []struct {
		name    string
		grammar Grammar
		label   string
		field   int
	}{
		{"not a number", GrammarWeight, "abc", 0},
		{"missing weight", GrammarWeight, "", -1},
		{"two weights", GrammarDistance, "1,2", -1},
		{"inf", GrammarDistance, "inf", 0},
		{"ff three fields", GrammarCapacity, "1,2,3", -1},
		{"ff bad upper", GrammarCapacity, "1,x", 1},
		{"cost without marker", GrammarCostSP, "2,3", 1},
		{"cost with sign only", GrammarCostSP, "2,-3", 1},
		{"cost not a number", GrammarCostNC, "1,2,$x", 2},
		{"sp three fields", GrammarCostSP, "1,2,$5", -1},
		{"nc one field", GrammarCostNC, "2", -1},
		{"nc middle field not a number", GrammarCostNC, "1,2,x,$5", 2},
		{"nc long label without marker", GrammarCostNC, "1,2,7,5", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.grammar.Parse(node, tt.label)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadLabel)
			var le *LabelError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.field, le.Field)
			assert.Equal(t, tt.label, le.Label)
			assert.Equal(t, node, le.Target)
		})
	}
}

func TestParams(t *testing.T) {
	ids, err := ParseIDs("3, 1 2")
	require.NoError(t, err)
	assert.Equal(t, []graph.NodeID{3, 1, 2}, ids)

	_, err = ParseIDs("1,a")
	assert.ErrorIs(t, err, ErrBadParams)

	f, maximize, err := ParseFlow("max")
	require.NoError(t, err)
	assert.True(t, maximize)
	assert.Zero(t, f)

	f, maximize, err = ParseFlow("2.5")
	require.NoError(t, err)
	assert.False(t, maximize)
	assert.Equal(t, 2.5, f)

	_, _, err = ParseFlow("-1")
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestLookup(t *testing.T) {
	assert.Len(t, Specs(), 10)
	s, ok := Lookup("6")
	require.True(t, ok)
	assert.Equal(t, algo.Dijkstra, s.Name)
	s, ok = Lookup(algo.MinCostFlowSP)
	require.True(t, ok)
	assert.Equal(t, GrammarCostSP, s.Links)
	assert.False(t, s.Accepts(graph.Undirected))
	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func setup(t *testing.T, mode graph.Mode) (*Launcher, *bridge.Bridge) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt, err := script.New(algo.Library(), script.WithLogger(log), script.WithMode(mode))
	require.NoError(t, err)
	b := bridge.New(graph.New(mode, 0), rt, bridge.DefaultConfig(), bridge.WithLogger(log))
	// run to completion without stopping
	b.Subscribe(bridge.ObserverFunc(func(c bridge.Command) {
		if c.Kind == bridge.CmdWait {
			b.ContinueWait(c.Seq)
		}
	}))
	return New(b, WithLogger(log)), b
}

func label(t *testing.T, b *bridge.Bridge, target graph.Target, text string) {
	t.Helper()
	require.NoError(t, b.Handle(bridge.Event{Kind: bridge.LabelEdited, Target: target, Text: text}))
}

func TestLauncher_Dijkstra(t *testing.T) {
	la, b := setup(t, graph.Undirected)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Handle(bridge.Event{Kind: bridge.NodeAdded, X: float64(i)}))
	}
	require.NoError(t, b.Handle(bridge.Event{Kind: bridge.EdgeAdded, A: 0, B: 1}))
	require.NoError(t, b.Handle(bridge.Event{Kind: bridge.EdgeAdded, A: 1, B: 2}))
	label(t, b, graph.ConnTarget(graph.EdgeKey(0, 1)), "1")
	label(t, b, graph.ConnTarget(graph.EdgeKey(1, 2)), "1")

	dialog := DialogFunc(func(_ context.Context, req Request) (Params, error) {
		assert.Equal(t, algo.Dijkstra, req.Spec.Name)
		assert.Equal(t, []graph.NodeID{0, 1, 2}, req.Nodes)
		return Params{Root: 0, End: 2}, nil
	})
	run, err := la.Run(context.Background(), algo.Dijkstra, dialog)
	require.NoError(t, err)
	require.NoError(t, run.Err())

	v, ok := b.Runtime().Attr(graph.ConnTarget(graph.EdgeKey(1, 2)), script.Distance)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	n, _ := b.Model().Node(2)
	assert.Equal(t, "2", n.Annotation)
}

func TestLauncher_BadLabelPushesNothing(t *testing.T) {
	la, b := setup(t, graph.Undirected)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Handle(bridge.Event{Kind: bridge.NodeAdded}))
	}
	require.NoError(t, b.Handle(bridge.Event{Kind: bridge.EdgeAdded, A: 0, B: 1}))
	require.NoError(t, b.Handle(bridge.Event{Kind: bridge.EdgeAdded, A: 1, B: 2}))
	label(t, b, graph.ConnTarget(graph.EdgeKey(0, 1)), "3")
	label(t, b, graph.ConnTarget(graph.EdgeKey(1, 2)), "abc")

	_, err := la.Launch(context.Background(), algo.Kruskal, Params{})
	var le *LabelError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, graph.ConnTarget(graph.EdgeKey(1, 2)), le.Target)

	_, ok := b.Runtime().Attr(graph.ConnTarget(graph.EdgeKey(0, 1)), script.Weight)
	assert.False(t, ok, "no partial push")
	assert.False(t, b.Busy())
}

func TestLauncher_FlowAttributes(t *testing.T) {
	la, b := setup(t, graph.Directed)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Handle(bridge.Event{Kind: bridge.NodeAdded}))
	}
	require.NoError(t, b.Handle(bridge.Event{Kind: bridge.ArrowAdded, A: 0, B: 1}))
	require.NoError(t, b.Handle(bridge.Event{Kind: bridge.ArrowAdded, A: 1, B: 2}))
	label(t, b, graph.ConnTarget(graph.ArrowKey(0, 1)), "1,2,$5")
	label(t, b, graph.ConnTarget(graph.ArrowKey(1, 2)), "3,$1")
	label(t, b, graph.NodeTarget(1), "2")

	s, ok := Lookup(algo.MinCostFlowNC)
	require.True(t, ok)
	attrs, err := la.Attributes(s)
	require.NoError(t, err)
	assert.Equal(t, []bridge.Attribute{
		{Target: graph.ConnTarget(graph.ArrowKey(0, 1)), Keyword: script.QMin, Value: 1},
		{Target: graph.ConnTarget(graph.ArrowKey(0, 1)), Keyword: script.QMax, Value: 2},
		{Target: graph.ConnTarget(graph.ArrowKey(0, 1)), Keyword: script.Cost, Value: 5},
		{Target: graph.ConnTarget(graph.ArrowKey(1, 2)), Keyword: script.QMax, Value: 3},
		{Target: graph.ConnTarget(graph.ArrowKey(1, 2)), Keyword: script.Cost, Value: 1},
		{Target: graph.NodeTarget(1), Keyword: script.QMax, Value: 2},
	}, attrs)

	run, err := la.Launch(context.Background(), algo.MinCostFlowNC, Params{Sources: []graph.NodeID{0}, Sinks: []graph.NodeID{2}, Flow: 2})
	require.NoError(t, err)
	require.NoError(t, run.Err())
	v, ok := b.Runtime().Attr(graph.NodeTarget(1), script.QMax)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestLauncher_Rejections(t *testing.T) {
	la, b := setup(t, graph.Undirected)
	require.NoError(t, b.Handle(bridge.Event{Kind: bridge.NodeAdded}))

	_, err := la.Prepare(algo.FordFulkerson)
	assert.ErrorIs(t, err, ErrModeMismatch)
	_, err = la.Prepare("nope")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = la.Launch(context.Background(), algo.Dijkstra, Params{Root: 0, End: 7})
	assert.ErrorIs(t, err, ErrBadParams)
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)

	cancel := DialogFunc(func(context.Context, Request) (Params, error) { return Params{}, ErrCancelled })
	_, err = la.Run(context.Background(), algo.Bipartiteness, cancel)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.False(t, b.Busy())
}

func TestLauncher_PrepareWhileBusy(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt, err := script.New(algo.Library(), script.WithLogger(log))
	require.NoError(t, err)
	b := bridge.New(graph.New(graph.Undirected, 0), rt, bridge.DefaultConfig(), bridge.WithLogger(log))
	waits := make(chan uint64, 4)
	b.Subscribe(bridge.ObserverFunc(func(c bridge.Command) {
		if c.Kind == bridge.CmdWait {
			waits <- c.Seq
		}
	}))
	la := New(b, WithLogger(log))
	require.NoError(t, b.Handle(bridge.Event{Kind: bridge.NodeAdded}))
	require.NoError(t, b.Handle(bridge.Event{Kind: bridge.NodeAdded}))
	require.NoError(t, b.Handle(bridge.Event{Kind: bridge.EdgeAdded, A: 0, B: 1}))

	run, err := la.Launch(context.Background(), algo.SpanningTreeBFS, Params{Root: 0})
	require.NoError(t, err)
	<-waits

	_, err = la.Prepare(algo.Bipartiteness)
	assert.ErrorIs(t, err, bridge.ErrRunActive)
	_, err = la.Launch(context.Background(), algo.Bipartiteness, Params{})
	assert.ErrorIs(t, err, bridge.ErrRunActive)

	b.Abort()
	<-run.Done()
}
