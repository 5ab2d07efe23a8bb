// Package bridge connects the presentation surface to the script runtime.
// Gestures come in as Events and are forwarded to the runtime; everything
// the runtime and the algorithms ask of the canvas goes out as Commands
// through a single dispatch table that keeps the graph model in step.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DrSkyle/graphstep/pkg/algo"
	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

var (
	ErrRunActive    = errors.New("bridge: an algorithm is running")
	ErrUnknownEvent = errors.New("bridge: unknown event")
)

// Config holds the bridge's tunables.
type Config struct {
	CleanBeforeRun bool
	Curves         bool
	LayoutInterval time.Duration
	Spring         algo.SpringParams
	// ReloadPath is the script Reload falls back to. Empty means the
	// embedded algorithms script.
	ReloadPath string
}

func DefaultConfig() Config {
	return Config{
		CleanBeforeRun: true,
		LayoutInterval: 50 * time.Millisecond,
		Spring:         algo.DefaultSpringParams(),
	}
}

// Option configures a Bridge.
type Option func(*Bridge)

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(b *Bridge) { b.tracer = t }
}

func WithMeter(m metric.Meter) Option {
	return func(b *Bridge) { b.meter = m }
}

type observerEntry struct {
	id int
	o  Observer
}

// Bridge owns the graph model and drives the runtime. It implements
// script.Natives.
type Bridge struct {
	cfg    Config
	model  *graph.Graph
	rt     *script.Runtime
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	// gestureMu serializes gestures, launches and mode switches. Lock
	// order: gestureMu, then the runtime, then the model.
	gestureMu sync.Mutex

	obsMu     sync.RWMutex
	observers []observerEntry
	nextObs   int

	curves atomic.Bool
	sem    *semaphore.Weighted
	play   playback
	lay    layout

	runs    metric.Int64Counter
	waits   metric.Int64Counter
	invalid metric.Int64Counter
}

// New wires a bridge between model and rt and binds itself as the
// runtime's natives.
func New(model *graph.Graph, rt *script.Runtime, cfg Config, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:    cfg,
		model:  model,
		rt:     rt,
		logger: slog.Default(),
		tracer: otel.Tracer("graphstep/bridge"),
		meter:  otel.Meter("graphstep/bridge"),
		sem:    semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.cfg.LayoutInterval <= 0 {
		b.cfg.LayoutInterval = DefaultConfig().LayoutInterval
	}
	if b.cfg.Spring == (algo.SpringParams{}) {
		b.cfg.Spring = algo.DefaultSpringParams()
	}
	b.curves.Store(cfg.Curves)
	b.play.cond = sync.NewCond(&b.play.mu)
	b.runs = b.counter("graphstep.runs", "Algorithm runs by outcome")
	b.waits = b.counter("graphstep.waits", "Pauses posted by running algorithms")
	b.invalid = b.counter("graphstep.callbacks.invalid", "Callbacks ignored for unknown ids")
	rt.Bind(b)
	return b
}

func (b *Bridge) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		b.logger.Warn("Failed to create counter", "name", name, "error", err)
		return noop.Int64Counter{}
	}
	return c
}

func (b *Bridge) Model() *graph.Graph     { return b.model }
func (b *Bridge) Runtime() *script.Runtime { return b.rt }
func (b *Bridge) Curves() bool             { return b.curves.Load() }

// Subscribe registers o for every command that passes the dispatch table.
// Observers are notified in subscription order. The returned func removes o.
func (b *Bridge) Subscribe(o Observer) func() {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	id := b.nextObs
	b.nextObs++
	b.observers = append(b.observers, observerEntry{id: id, o: o})
	return func() {
		b.obsMu.Lock()
		defer b.obsMu.Unlock()
		b.observers = slices.DeleteFunc(b.observers, func(e observerEntry) bool { return e.id == id })
	}
}

type applyFunc func(m *graph.Graph, c Command) error

func nodeUpdate(f func(n *graph.Node, c Command)) applyFunc {
	return func(m *graph.Graph, c Command) error {
		return m.UpdateNode(c.Node, func(n *graph.Node) { f(n, c) })
	}
}

func linkUpdate(directed bool, f func(conn *graph.Connection, c Command)) applyFunc {
	return func(m *graph.Graph, c Command) error {
		return m.UpdateConnection(c.A, c.B, directed, func(conn *graph.Connection) { f(conn, c) })
	}
}

func colorPtr(c graph.RGBA) *graph.RGBA { return &c }

// linkVisuals registers the visual commands shared by edges and arrows.
func linkVisuals(t map[CommandKind]applyFunc, directed bool, first CommandKind) {
	t[first] = linkUpdate(directed, func(l *graph.Connection, _ Command) { l.Highlighted = true })
	t[first+1] = linkUpdate(directed, func(l *graph.Connection, _ Command) { l.Highlighted = false })
}

// applyTable validates a command against the model and applies it. Kinds
// missing from the table touch nothing and always pass.
var applyTable = func() map[CommandKind]applyFunc {
	t := map[CommandKind]applyFunc{
		CmdPaintNode: func(m *graph.Graph, c Command) error { return m.AddNode(c.Node, c.X, c.Y) },
		CmdUnpaintNode: func(m *graph.Graph, c Command) error {
			_, err := m.RemoveNode(c.Node)
			return err
		},
		CmdPaintEdge:    func(m *graph.Graph, c Command) error { return m.AddConnection(c.A, c.B, false, c.Curved) },
		CmdUnpaintEdge:  func(m *graph.Graph, c Command) error { return m.RemoveConnection(c.A, c.B, false) },
		CmdPaintArrow:   func(m *graph.Graph, c Command) error { return m.AddConnection(c.A, c.B, true, c.Curved) },
		CmdUnpaintArrow: func(m *graph.Graph, c Command) error { return m.RemoveConnection(c.A, c.B, true) },

		CmdHighlightNode:    nodeUpdate(func(n *graph.Node, _ Command) { n.Highlighted = true }),
		CmdUnhighlightNode:  nodeUpdate(func(n *graph.Node, _ Command) { n.Highlighted = false }),
		CmdLabelNode:        nodeUpdate(func(n *graph.Node, c Command) { n.Annotation = c.Text }),
		CmdUnlabelNode:      nodeUpdate(func(n *graph.Node, _ Command) { n.Annotation = "" }),
		CmdColorNode:        nodeUpdate(func(n *graph.Node, c Command) { n.Color = colorPtr(c.Color) }),
		CmdUncolorNode:      nodeUpdate(func(n *graph.Node, _ Command) { n.Color = nil }),
		CmdColorNodeLabel:   nodeUpdate(func(n *graph.Node, c Command) { n.LabelColor = colorPtr(c.Color) }),
		CmdUncolorNodeLabel: nodeUpdate(func(n *graph.Node, _ Command) { n.LabelColor = nil }),

		CmdMoveNode:     func(m *graph.Graph, c Command) error { return m.Move(c.Node, c.X, c.Y) },
		CmdIncrementID:  func(m *graph.Graph, c Command) error { m.IncrementID(c.Node); return nil },
		CmdResetID:      func(m *graph.Graph, _ Command) error { m.ResetID(); return nil },
		CmdSetMode:      func(m *graph.Graph, c Command) error { m.Reset(c.Mode); return nil },
		CmdSetLabel:     func(m *graph.Graph, c Command) error { return m.SetLabel(c.Target, c.Text) },
		CmdCleanVisuals: func(m *graph.Graph, _ Command) error { m.CleanVisuals(); return nil },
		CmdSetCurves:    func(m *graph.Graph, c Command) error { m.SetCurved(c.Curved); return nil },
	}
	for _, directed := range []bool{false, true} {
		first := CmdHighlightEdge
		labels := [2]CommandKind{CmdLabelEdge, CmdUnlabelEdge}
		colors := [4]CommandKind{CmdColorEdge, CmdUncolorEdge, CmdColorEdgeLabel, CmdUncolorEdgeLabel}
		if directed {
			first = CmdHighlightArrow
			labels = [2]CommandKind{CmdLabelArrow, CmdUnlabelArrow}
			colors = [4]CommandKind{CmdColorArrow, CmdUncolorArrow, CmdColorArrowLabel, CmdUncolorArrowLabel}
		}
		linkVisuals(t, directed, first)
		t[labels[0]] = linkUpdate(directed, func(l *graph.Connection, c Command) { l.Annotation = c.Text })
		t[labels[1]] = linkUpdate(directed, func(l *graph.Connection, _ Command) { l.Annotation = "" })
		t[colors[0]] = linkUpdate(directed, func(l *graph.Connection, c Command) { l.Color = colorPtr(c.Color) })
		t[colors[1]] = linkUpdate(directed, func(l *graph.Connection, _ Command) { l.Color = nil })
		t[colors[2]] = linkUpdate(directed, func(l *graph.Connection, c Command) { l.LabelColor = colorPtr(c.Color) })
		t[colors[3]] = linkUpdate(directed, func(l *graph.Connection, _ Command) { l.LabelColor = nil })
	}
	return t
}()

// dispatch is the one way a command reaches the model and the observers.
// A command the model rejects is logged and dropped.
func (b *Bridge) dispatch(c Command) error {
	if apply, ok := applyTable[c.Kind]; ok {
		if err := apply(b.model, c); err != nil {
			b.invalid.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", c.Kind.String())))
			b.logger.Warn("Ignoring callback", "command", c.String(), "error", err)
			return err
		}
	}
	b.obsMu.RLock()
	obs := slices.Clone(b.observers)
	b.obsMu.RUnlock()
	for _, e := range obs {
		e.o.Notify(c)
	}
	return nil
}

// Handle forwards one gesture to the runtime and returns once the runtime
// call, and every paint it caused, has completed.
func (b *Bridge) Handle(ev Event) error {
	b.gestureMu.Lock()
	defer b.gestureMu.Unlock()

	var err error
	switch ev.Kind {
	case NodeAdded:
		err = b.rt.AddVertex(b.model.NextID(), ev.X, ev.Y)
	case NodeRemoved:
		err = b.rt.RemoveVertex(ev.Node)
	case EdgeAdded:
		err = b.rt.AddEdge(ev.A, ev.B)
	case EdgeRemoved:
		err = b.rt.RemoveEdge(ev.A, ev.B)
	case ArrowAdded:
		err = b.rt.AddArrow(ev.A, ev.B)
	case ArrowRemoved:
		err = b.rt.RemoveArrow(ev.A, ev.B)
	case LabelEdited:
		err = b.dispatch(Command{Kind: CmdSetLabel, Target: ev.Target, Text: ev.Text})
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Kind)
	}
	if err != nil {
		b.logger.Debug("Gesture rejected", "event", ev.Kind.String(), "error", err)
	}
	return err
}

// SwitchMode empties both graphs, resets the id counter and starts over in
// mode. Switching to the current mode does nothing.
func (b *Bridge) SwitchMode(mode graph.Mode) error {
	b.gestureMu.Lock()
	defer b.gestureMu.Unlock()
	if mode == b.rt.Mode() && mode == b.model.Mode() {
		return nil
	}
	return b.resetLocked(mode)
}

// EraseGraph is a mode switch onto the current mode.
func (b *Bridge) EraseGraph() error {
	b.gestureMu.Lock()
	defer b.gestureMu.Unlock()
	return b.resetLocked(b.model.Mode())
}

func (b *Bridge) resetLocked(mode graph.Mode) error {
	if b.Busy() {
		return ErrRunActive
	}
	b.StopLayout()
	_ = b.dispatch(Command{Kind: CmdSetMode, Mode: mode})
	_ = b.dispatch(Command{Kind: CmdResetID})
	b.rt.NewGraph(mode)
	b.logger.Info("Graph reset", "mode", mode.String())
	return nil
}

// CleanGraph drops highlights, colors and annotations. User labels stay.
func (b *Bridge) CleanGraph() {
	b.gestureMu.Lock()
	defer b.gestureMu.Unlock()
	_ = b.dispatch(Command{Kind: CmdCleanVisuals})
}

// SetCurves changes how existing and future connections are drawn.
func (b *Bridge) SetCurves(on bool) {
	b.gestureMu.Lock()
	defer b.gestureMu.Unlock()
	b.curves.Store(on)
	_ = b.dispatch(Command{Kind: CmdSetCurves, Curved: on})
}

// Eval runs one console expression against the runtime.
func (b *Bridge) Eval(expr string) (string, error) {
	b.gestureMu.Lock()
	defer b.gestureMu.Unlock()
	return b.rt.Eval(expr)
}

// ExecCommands evaluates console expressions in order and stops at the
// first failure.
func (b *Bridge) ExecCommands(cmds []string) error {
	b.gestureMu.Lock()
	defer b.gestureMu.Unlock()
	return b.execLocked(cmds)
}

func (b *Bridge) execLocked(cmds []string) error {
	for i, expr := range cmds {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		if _, err := b.rt.Eval(expr); err != nil {
			return fmt.Errorf("command %d (%s): %w", i, expr, err)
		}
	}
	return nil
}

// Reload re-reads a script file and runs its graph commands. An empty path
// means the configured reload path. Failures are also shown as a message.
func (b *Bridge) Reload(path string) error {
	b.gestureMu.Lock()
	defer b.gestureMu.Unlock()

	if path == "" {
		path = b.cfg.ReloadPath
	}
	var (
		f   *script.File
		err error
	)
	if path == "" {
		f, err = b.rt.LoadDefault(script.AlgorithmsScript)
	} else {
		f, err = b.rt.LoadFile(path)
	}
	if err == nil {
		err = b.execLocked(f.Commands)
	}
	if err != nil {
		b.logger.Error("Reload failed", "path", path, "error", err)
		b.ShowMessage(fmt.Sprintf("reload failed: %v", err))
		return err
	}
	b.ShowMessage("reloaded " + f.Name)
	return nil
}
