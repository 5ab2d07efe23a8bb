// Package launcher collects run parameters, turns user labels into
// attributes and starts algorithms through the bridge.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/DrSkyle/graphstep/pkg/bridge"
	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
)

var (
	ErrCancelled        = errors.New("launcher: dialog cancelled")
	ErrModeMismatch     = errors.New("launcher: algorithm does not run in this mode")
	ErrUnknownAlgorithm = errors.New("launcher: unknown algorithm")
	ErrBadParams        = errors.New("launcher: bad parameters")
)

// Params are what the user confirmed in the dialog.
type Params struct {
	Root     graph.NodeID
	End      graph.NodeID
	Sources  []graph.NodeID
	Sinks    []graph.NodeID
	Flow     float64
	Maximize bool
}

// Request tells a dialog what to ask for.
type Request struct {
	Spec  Spec
	Nodes []graph.NodeID // ids the user may pick from
}

// Dialog collects parameters. It returns ErrCancelled when the user backs
// out.
type Dialog interface {
	Ask(ctx context.Context, req Request) (Params, error)
}

// DialogFunc adapts a function to Dialog.
type DialogFunc func(ctx context.Context, req Request) (Params, error)

func (f DialogFunc) Ask(ctx context.Context, req Request) (Params, error) { return f(ctx, req) }

type Option func(*Launcher)

func WithLogger(l *slog.Logger) Option {
	return func(la *Launcher) { la.logger = l }
}

type Launcher struct {
	bridge *bridge.Bridge
	logger *slog.Logger
}

func New(b *bridge.Bridge, opts ...Option) *Launcher {
	la := &Launcher{bridge: b, logger: slog.Default()}
	for _, opt := range opts {
		opt(la)
	}
	return la
}

func (la *Launcher) spec(name string) (Spec, error) {
	s, ok := Lookup(name)
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, name)
	}
	if mode := la.bridge.Model().Mode(); !s.Accepts(mode) {
		return Spec{}, fmt.Errorf("%w: %s needs a %s graph", ErrModeMismatch, s.Title, s.Mode)
	}
	return s, nil
}

// Prepare checks that name can run now and builds its dialog request.
func (la *Launcher) Prepare(name string) (Request, error) {
	if la.bridge.Busy() {
		return Request{}, bridge.ErrRunActive
	}
	s, err := la.spec(name)
	if err != nil {
		return Request{}, err
	}
	return Request{Spec: s, Nodes: la.bridge.Model().NodeIDs()}, nil
}

// Launch validates p, parses every label and only then starts the run.
// On any error nothing has been pushed.
func (la *Launcher) Launch(ctx context.Context, name string, p Params) (*bridge.Run, error) {
	s, err := la.spec(name)
	if err != nil {
		return nil, err
	}
	if err := la.validate(s, p); err != nil {
		return nil, err
	}
	attrs, err := la.Attributes(s)
	if err != nil {
		la.logger.Info("Launch rejected", "algorithm", s.Name, "error", err)
		return nil, err
	}
	return la.bridge.Launch(ctx, bridge.Launch{
		Algorithm: s.Name,
		Args: script.Args{
			Root:     p.Root,
			End:      p.End,
			Sources:  p.Sources,
			Sinks:    p.Sinks,
			Flow:     p.Flow,
			Maximize: p.Maximize,
		},
		Clear:      script.Keywords,
		Attributes: attrs,
	})
}

// Run prepares, asks the dialog and launches.
func (la *Launcher) Run(ctx context.Context, name string, d Dialog) (*bridge.Run, error) {
	req, err := la.Prepare(name)
	if err != nil {
		return nil, err
	}
	p, err := d.Ask(ctx, req)
	if err != nil {
		return nil, err
	}
	return la.Launch(ctx, name, p)
}

// Attributes parses every connection label, then every node label, with the
// spec's grammars.
func (la *Launcher) Attributes(s Spec) ([]bridge.Attribute, error) {
	var out []bridge.Attribute
	if s.Links != GrammarNone {
		for _, c := range la.bridge.Model().Connections() {
			t := graph.ConnTarget(c.Pair)
			vals, err := s.Links.Parse(t, c.Label)
			if err != nil {
				return nil, err
			}
			out = appendValues(out, t, vals)
		}
	}
	if s.Nodes != GrammarNone {
		for _, n := range la.bridge.Model().Nodes() {
			t := graph.NodeTarget(n.ID)
			vals, err := s.Nodes.Parse(t, n.Label)
			if err != nil {
				return nil, err
			}
			out = appendValues(out, t, vals)
		}
	}
	return out, nil
}

func appendValues(out []bridge.Attribute, t graph.Target, vals []Value) []bridge.Attribute {
	for _, v := range vals {
		out = append(out, bridge.Attribute{Target: t, Keyword: v.Keyword, Value: v.Value})
	}
	return out
}

func (la *Launcher) validate(s Spec, p Params) error {
	m := la.bridge.Model()
	exists := func(what string, id graph.NodeID) error {
		if !m.HasNode(id) {
			return fmt.Errorf("%w: %s %d: %w", ErrBadParams, what, id, graph.ErrNodeNotFound)
		}
		return nil
	}
	if s.Needs.Has(NeedRoot) {
		if err := exists("root", p.Root); err != nil {
			return err
		}
	}
	if s.Needs.Has(NeedEnd) {
		if err := exists("end", p.End); err != nil {
			return err
		}
	}
	if s.Needs.Has(NeedTerminals) {
		if len(p.Sources) == 0 || len(p.Sinks) == 0 {
			return fmt.Errorf("%w: at least one source and one sink", ErrBadParams)
		}
		seen := make(map[graph.NodeID]bool)
		for _, id := range append(append([]graph.NodeID{}, p.Sources...), p.Sinks...) {
			if err := exists("terminal", id); err != nil {
				return err
			}
			if seen[id] {
				return fmt.Errorf("%w: node %d listed twice", ErrBadParams, id)
			}
			seen[id] = true
		}
	}
	if s.Needs.Has(NeedFlow) && !p.Maximize {
		if p.Flow < 0 || math.IsNaN(p.Flow) || math.IsInf(p.Flow, 0) {
			return fmt.Errorf("%w: flow %v", ErrBadParams, p.Flow)
		}
	}
	return nil
}
