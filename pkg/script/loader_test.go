package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, Call) error { return nil }

var testProcs = map[string]Procedure{
	"dijkstra": noop,
	"prim":     noop,
}

func TestLoader_PaletteAndAlgorithm(t *testing.T) {
	r, _ := newTestRuntime(t, testProcs)

	_, err := r.LoadSource("init.hcl", []byte(`
palette {
  red  = rgba(255, 0, 0, 255)
  blue = "#0000ff"
}
`))
	require.NoError(t, err)

	_, err = r.LoadSource("algorithms.hcl", []byte(`
algorithm "dijkstra" {
  steps = false
  colors = {
    path = palette.red
  }
}
algorithm "prim" {
  enabled = false
}
`))
	require.NoError(t, err)

	s, ok := r.Settings("run-dijkstra")
	require.True(t, ok)
	assert.True(t, s.Enabled)
	assert.False(t, s.Steps)
	assert.Equal(t, graph.RGBA{R: 255, A: 255}, s.Colors["path"])

	s, _ = r.Settings("prim")
	assert.False(t, s.Enabled)
	assert.ErrorIs(t, r.Invoke(context.Background(), "prim", Args{}), ErrDisabled)
}

func TestLoader_BadScriptLeavesSettings(t *testing.T) {
	r, _ := newTestRuntime(t, testProcs)
	_, err := r.LoadSource("a.hcl", []byte(`algorithm "dijkstra" { steps = false }`))
	require.NoError(t, err)

	cases := map[string]string{
		"syntax":        `algorithm "dijkstra" {`,
		"unknown algo":  `algorithm "bogosort" {}`,
		"bad color":     `palette { x = "#zzzzzz" }`,
		"out of range":  `palette { x = rgba(300, 0, 0, 0) }`,
		"bad command":   `graph { commands = ["add_vertex("] }`,
		"unknown ref":   `algorithm "dijkstra" { colors = { path = palette.nope } }`,
		"steps and bad": "algorithm \"dijkstra\" { steps = true }\nalgorithm \"x\" {}",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.LoadSource(name, []byte(src))
			assert.Error(t, err)
			s, _ := r.Settings("dijkstra")
			assert.False(t, s.Steps, "failed load must not apply")
		})
	}
}

func TestLoader_GraphCommands(t *testing.T) {
	r, n := newTestRuntime(t, testProcs)
	f, err := r.LoadSource("graph.hcl", []byte(`
graph {
  commands = [
    "add_vertex(0, 1, 1) && add_vertex(1, 4.5, 2.0)",
    "add_edge(0, 1)",
    "add_attribute(0, 1, 'weight', 3)",
  ]
}
`))
	require.NoError(t, err)
	require.Len(t, f.Commands, 3)
	assert.Empty(t, n.Calls(), "commands run only when the host evaluates them")

	for _, cmd := range f.Commands {
		_, err := r.Eval(cmd)
		require.NoError(t, err)
	}
	v, ok := r.Attr(graph.ConnTarget(graph.EdgeKey(1, 0)), Weight)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestLoader_LoadFile(t *testing.T) {
	r, _ := newTestRuntime(t, testProcs)
	p := filepath.Join(t.TempDir(), "extra.hcl")
	require.NoError(t, os.WriteFile(p, []byte(`palette { ink = "#101010" }`), 0o600))

	_, err := r.LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, graph.RGBA{R: 16, G: 16, B: 16, A: 255}, r.Palette()["ink"])

	_, err = r.LoadFile(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestConsole_Eval(t *testing.T) {
	r, _ := newTestRuntime(t, nil, WithMode(graph.Directed))

	out, err := r.Eval("add_vertex(0, 0, 0) && add_vertex(1, 2, 2) && add_arrow(0, 1)")
	require.NoError(t, err)
	assert.Equal(t, "true", out)

	_, err = r.Eval("add_edge(0, 1)")
	assert.ErrorContains(t, err, "not legal")

	_, err = r.Eval("remove_vertex(7)")
	assert.ErrorContains(t, err, "not found")

	_, err = r.Eval("add_attribute(1, 'q-max', 2.5)")
	require.NoError(t, err)
	v, _ := r.Attr(graph.NodeTarget(1), QMax)
	assert.Equal(t, 2.5, v)

	_, err = r.Eval("1 + ")
	assert.ErrorContains(t, err, "compilation")
}
