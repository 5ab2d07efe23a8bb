// Package scene replays gestures from HCL scene files so runs can be played
// without a terminal.
//
// A scene looks like:
//
//	mode = "undirected"
//	node {
//	  x = 1
//	  y = 1
//	}
//	node {
//	  x     = 5
//	  y     = 1
//	  label = "2"
//	}
//	edge {
//	  from  = 0
//	  to    = 1
//	  label = "1"
//	}
//	run "dijkstra" {
//	  root = 0
//	  end  = 1
//	}
//
// Nodes receive ids from the model's counter in file order.
package scene

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/DrSkyle/graphstep/pkg/bridge"
	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/launcher"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

//go:embed demo.hcl
var demo []byte

var ErrEmpty = errors.New("scene: nothing to play")

type fileRoot struct {
	Mode   string      `hcl:"mode,optional"`
	Nodes  []nodeBlock `hcl:"node,block"`
	Edges  []linkBlock `hcl:"edge,block"`
	Arrows []linkBlock `hcl:"arrow,block"`
	Runs   []runBlock  `hcl:"run,block"`
}

type nodeBlock struct {
	X     float64 `hcl:"x"`
	Y     float64 `hcl:"y"`
	Label string  `hcl:"label,optional"`
}

type linkBlock struct {
	From  int    `hcl:"from"`
	To    int    `hcl:"to"`
	Label string `hcl:"label,optional"`
}

type runBlock struct {
	Algorithm string `hcl:"algorithm,label"`
	Root      *int   `hcl:"root,optional"`
	End       *int   `hcl:"end,optional"`
	Sources   []int  `hcl:"sources,optional"`
	Sinks     []int  `hcl:"sinks,optional"`
	Flow      string `hcl:"flow,optional"`
}

type Node struct {
	X, Y  float64
	Label string
}

type Link struct {
	From, To graph.NodeID
	Directed bool
	Label    string
}

type Run struct {
	Algorithm string
	Params    launcher.Params
}

// Scene is a decoded scene file.
type Scene struct {
	Name  string
	Mode  *graph.Mode
	Nodes []Node
	Links []Link
	Runs  []Run
}

// Result is the outcome of one run.
type Result struct {
	Algorithm string
	RunID     string
	Err       error
}

// Parse decodes a scene.
func Parse(name string, src []byte) (*Scene, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, name)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse scene %s: %w", name, diags)
	}
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode scene %s: %w", name, diags)
	}

	s := &Scene{Name: name}
	if root.Mode != "" {
		m, err := graph.ParseMode(root.Mode)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", name, err)
		}
		s.Mode = &m
	}
	for _, n := range root.Nodes {
		s.Nodes = append(s.Nodes, Node(n))
	}
	for _, l := range root.Edges {
		s.Links = append(s.Links, Link{From: graph.NodeID(l.From), To: graph.NodeID(l.To), Label: l.Label})
	}
	for _, l := range root.Arrows {
		s.Links = append(s.Links, Link{From: graph.NodeID(l.From), To: graph.NodeID(l.To), Directed: true, Label: l.Label})
	}
	for _, rb := range root.Runs {
		r, err := decodeRun(rb)
		if err != nil {
			return nil, fmt.Errorf("scene %s, run %q: %w", name, rb.Algorithm, err)
		}
		s.Runs = append(s.Runs, r)
	}
	if len(s.Nodes) == 0 && len(s.Runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	return s, nil
}

func decodeRun(rb runBlock) (Run, error) {
	spec, ok := launcher.Lookup(rb.Algorithm)
	if !ok {
		return Run{}, launcher.ErrUnknownAlgorithm
	}
	r := Run{Algorithm: spec.Name}
	if rb.Root != nil {
		r.Params.Root = graph.NodeID(*rb.Root)
	}
	if rb.End != nil {
		r.Params.End = graph.NodeID(*rb.End)
	}
	for _, id := range rb.Sources {
		r.Params.Sources = append(r.Params.Sources, graph.NodeID(id))
	}
	for _, id := range rb.Sinks {
		r.Params.Sinks = append(r.Params.Sinks, graph.NodeID(id))
	}
	if spec.Needs.Has(launcher.NeedFlow) {
		flow, maximize, err := launcher.ParseFlow(rb.Flow)
		if err != nil {
			return Run{}, err
		}
		r.Params.Flow, r.Params.Maximize = flow, maximize
	}
	return r, nil
}

// Load reads a scene file.
func Load(path string) (*Scene, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}
	return Parse(path, src)
}

// Demo is the built-in scene.
func Demo() *Scene {
	s, err := Parse("demo.hcl", demo)
	if err != nil {
		panic(fmt.Sprintf("scene: bad demo: %v", err))
	}
	return s
}

// Events lists the gestures that build the scene's graph, given the id the
// first node will receive.
func (s *Scene) Events(first graph.NodeID) []bridge.Event {
	var evs []bridge.Event
	for i, n := range s.Nodes {
		evs = append(evs, bridge.Event{Kind: bridge.NodeAdded, X: n.X, Y: n.Y})
		if n.Label != "" {
			id := first + graph.NodeID(i)
			evs = append(evs, bridge.Event{Kind: bridge.LabelEdited, Target: graph.NodeTarget(id), Text: n.Label})
		}
	}
	for _, l := range s.Links {
		kind, key := bridge.EdgeAdded, graph.EdgeKey(l.From, l.To)
		if l.Directed {
			kind, key = bridge.ArrowAdded, graph.ArrowKey(l.From, l.To)
		}
		evs = append(evs, bridge.Event{Kind: kind, A: l.From, B: l.To})
		if l.Label != "" {
			evs = append(evs, bridge.Event{Kind: bridge.LabelEdited, Target: graph.ConnTarget(key), Text: l.Label})
		}
	}
	return evs
}

// Player drives a scene through a bridge and a launcher.
type Player struct {
	bridge   *bridge.Bridge
	launcher *launcher.Launcher
	logger   *slog.Logger
}

func NewPlayer(b *bridge.Bridge, la *launcher.Launcher, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{bridge: b, launcher: la, logger: logger}
}

// Build switches mode if the scene asks for one and replays its gestures.
// The first gesture that fails stops the build.
func (p *Player) Build(s *Scene) error {
	if s.Mode != nil {
		if err := p.bridge.SwitchMode(*s.Mode); err != nil {
			return err
		}
	}
	for _, ev := range s.Events(p.bridge.Model().NextID()) {
		if err := p.bridge.Handle(ev); err != nil {
			return fmt.Errorf("scene %s: %s: %w", s.Name, ev.Kind, err)
		}
	}
	p.logger.Debug("Scene built", "scene", s.Name, "stats", p.bridge.Model().Stats().String())
	return nil
}

// Play builds the scene and then runs each algorithm to completion in
// order. Waits are not answered here; the caller subscribes whatever
// continues them. A run that fails to launch ends playback.
func (p *Player) Play(ctx context.Context, s *Scene) ([]Result, error) {
	if err := p.Build(s); err != nil {
		return nil, err
	}
	var results []Result
	for _, r := range s.Runs {
		run, err := p.launcher.Launch(ctx, r.Algorithm, r.Params)
		if err != nil {
			return results, fmt.Errorf("scene %s: launch %s: %w", s.Name, r.Algorithm, err)
		}
		select {
		case <-run.Done():
		case <-ctx.Done():
			p.bridge.Abort()
			<-run.Done()
		}
		results = append(results, Result{Algorithm: r.Algorithm, RunID: run.ID, Err: run.Err()})
	}
	return results, nil
}
