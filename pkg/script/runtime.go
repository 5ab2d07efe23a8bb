// Package script hosts the algorithm side of graphstep: the mirror graph,
// the procedure registry, the console and the reloadable script files.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/google/cel-go/cel"
)

var (
	ErrUnknownKeyword   = errors.New("script: unknown attribute keyword")
	ErrUnknownProcedure = errors.New("script: unknown procedure")
	ErrDisabled         = errors.New("script: procedure disabled")
	ErrNotBound         = errors.New("script: natives not bound")
)

// FaultError is a procedure that panicked. The runtime survives it.
type FaultError struct {
	Procedure string
	Value     any
	Stack     []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("script: procedure %s faulted: %v", e.Procedure, e.Value)
}

// Canvas is the callback table procedures draw through. Visual calls on
// unknown ids are ignored by the implementation.
type Canvas interface {
	HighlightNode(id graph.NodeID)
	UnhighlightNode(id graph.NodeID)
	HighlightEdge(a, b graph.NodeID)
	UnhighlightEdge(a, b graph.NodeID)
	HighlightArrow(a, b graph.NodeID)
	UnhighlightArrow(a, b graph.NodeID)

	LabelNode(id graph.NodeID, text string)
	UnlabelNode(id graph.NodeID)
	LabelEdge(a, b graph.NodeID, text string)
	UnlabelEdge(a, b graph.NodeID)
	LabelArrow(a, b graph.NodeID, text string)
	UnlabelArrow(a, b graph.NodeID)

	ColorNode(id graph.NodeID, c graph.RGBA)
	UncolorNode(id graph.NodeID)
	ColorEdge(a, b graph.NodeID, c graph.RGBA)
	UncolorEdge(a, b graph.NodeID)
	ColorArrow(a, b graph.NodeID, c graph.RGBA)
	UncolorArrow(a, b graph.NodeID)

	ColorNodeLabel(id graph.NodeID, c graph.RGBA)
	UncolorNodeLabel(id graph.NodeID)
	ColorEdgeLabel(a, b graph.NodeID, c graph.RGBA)
	UncolorEdgeLabel(a, b graph.NodeID)
	ColorArrowLabel(a, b graph.NodeID, c graph.RGBA)
	UncolorArrowLabel(a, b graph.NodeID)

	MoveNode(id graph.NodeID, dx, dy float64)
	PosNode(id graph.NodeID) (x, y float64, ok bool)
	ShowMessage(text string)

	// Wait blocks until the user continues or ctx is done.
	Wait(ctx context.Context, message string) error
	Reload(path string) error
}

// Natives is what the host registers with the runtime: the canvas plus the
// structural paints issued by the call surface.
type Natives interface {
	Canvas
	PaintNode(id graph.NodeID, x, y float64)
	UnpaintNode(id graph.NodeID)
	PaintEdge(a, b graph.NodeID)
	UnpaintEdge(a, b graph.NodeID)
	PaintArrow(a, b graph.NodeID)
	UnpaintArrow(a, b graph.NodeID)
	IncrementID(placed graph.NodeID)
}

// Args carries the dialog parameters of one run.
type Args struct {
	Root     graph.NodeID
	End      graph.NodeID
	Sources  []graph.NodeID
	Sinks    []graph.NodeID
	Flow     float64
	Maximize bool
}

// Call is everything a procedure may touch.
type Call struct {
	Canvas Canvas
	Graph  *Snapshot
	Args   Args
	Colors Palette
	Steps  bool
}

// Step waits only when the procedure runs in stepped mode.
func (c Call) Step(ctx context.Context, message string) error {
	if !c.Steps {
		c.Canvas.ShowMessage(message)
		return ctx.Err()
	}
	return c.Canvas.Wait(ctx, message)
}

// Procedure is one algorithm.
type Procedure func(ctx context.Context, call Call) error

// Settings are the per-procedure knobs script files can change.
type Settings struct {
	Enabled bool
	Steps   bool
	Colors  Palette
}

// Option configures a Runtime.
type Option func(*Runtime)

func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

func WithMode(m graph.Mode) Option {
	return func(r *Runtime) { r.graph = newGraph(m) }
}

// Runtime owns the mirror graph and the procedure registry. Structural
// calls validate against the mirror, mutate it, and then call the natives.
type Runtime struct {
	mu       sync.Mutex
	graph    *Graph
	natives  Natives
	procs    map[string]Procedure
	settings map[string]Settings
	palette  Palette
	env      *cel.Env
	logger   *slog.Logger
}

func New(procs map[string]Procedure, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		graph:    newGraph(graph.Undirected),
		procs:    make(map[string]Procedure, len(procs)),
		settings: make(map[string]Settings, len(procs)),
		palette:  Palette{},
		logger:   slog.Default(),
	}
	for name, p := range procs {
		r.procs[name] = p
		r.settings[name] = Settings{Enabled: true, Steps: true, Colors: Palette{}}
	}
	for _, opt := range opts {
		opt(r)
	}
	env, err := r.consoleEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create console env: %w", err)
	}
	r.env = env
	return r, nil
}

// Bind registers the host callbacks.
func (r *Runtime) Bind(n Natives) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.natives = n
}

func (r *Runtime) Mode() graph.Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graph.mode
}

// Snapshot copies the mirror.
func (r *Runtime) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graph.Snapshot()
}

// Procedures lists registered names.
func (r *Runtime) Procedures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.procs))
	for n := range r.procs {
		names = append(names, n)
	}
	sortStrings(names)
	return names
}

func (r *Runtime) Settings(name string) (Settings, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[procName(name)]
	return s, ok
}

// Palette returns a copy of the named colors loaded so far.
func (r *Runtime) Palette() Palette {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.palette.clone()
}

func (r *Runtime) AddVertex(id graph.NodeID, x, y float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.graph.vertices[id]; ok {
		return fmt.Errorf("%w: %d", graph.ErrNodeExists, id)
	}
	r.graph.vertices[id] = point{x, y}
	if r.natives != nil {
		r.natives.PaintNode(id, x, y)
		r.natives.IncrementID(id)
	}
	return nil
}

// RemoveVertex unpaints incident connections before the vertex itself.
func (r *Runtime) RemoveVertex(id graph.NodeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.graph.vertices[id]; !ok {
		return fmt.Errorf("%w: %d", graph.ErrNodeNotFound, id)
	}
	for _, p := range r.graph.incident(id) {
		delete(r.graph.links, p)
		delete(r.graph.attrs, graph.ConnTarget(p))
		if r.natives == nil {
			continue
		}
		if r.graph.mode == graph.Directed {
			r.natives.UnpaintArrow(p.A, p.B)
		} else {
			r.natives.UnpaintEdge(p.A, p.B)
		}
	}
	delete(r.graph.vertices, id)
	delete(r.graph.attrs, graph.NodeTarget(id))
	if r.natives != nil {
		r.natives.UnpaintNode(id)
	}
	return nil
}

func (r *Runtime) AddEdge(a, b graph.NodeID) error {
	return r.addLink(a, b, graph.Undirected)
}

func (r *Runtime) AddArrow(a, b graph.NodeID) error {
	return r.addLink(a, b, graph.Directed)
}

func (r *Runtime) RemoveEdge(a, b graph.NodeID) error {
	return r.removeLink(a, b, graph.Undirected)
}

func (r *Runtime) RemoveArrow(a, b graph.NodeID) error {
	return r.removeLink(a, b, graph.Directed)
}

func (r *Runtime) addLink(a, b graph.NodeID, kind graph.Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.graph.mode != kind {
		return fmt.Errorf("%w: %s graph", graph.ErrWrongMode, r.graph.mode)
	}
	if a == b {
		return fmt.Errorf("%w: %d", graph.ErrSelfLoop, a)
	}
	for _, id := range []graph.NodeID{a, b} {
		if _, ok := r.graph.vertices[id]; !ok {
			return fmt.Errorf("%w: %d", graph.ErrNodeNotFound, id)
		}
	}
	key := kind.Key(a, b)
	if _, ok := r.graph.links[key]; ok {
		return fmt.Errorf("%w: %s", graph.ErrConnectionExists, key)
	}
	r.graph.links[key] = struct{}{}
	if r.natives != nil {
		if kind == graph.Directed {
			r.natives.PaintArrow(a, b)
		} else {
			r.natives.PaintEdge(a, b)
		}
	}
	return nil
}

func (r *Runtime) removeLink(a, b graph.NodeID, kind graph.Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.graph.mode != kind {
		return fmt.Errorf("%w: %s graph", graph.ErrWrongMode, r.graph.mode)
	}
	key := kind.Key(a, b)
	if _, ok := r.graph.links[key]; !ok {
		return fmt.Errorf("%w: %s", graph.ErrConnectionNotFound, key)
	}
	delete(r.graph.links, key)
	delete(r.graph.attrs, graph.ConnTarget(key))
	if r.natives != nil {
		if kind == graph.Directed {
			r.natives.UnpaintArrow(a, b)
		} else {
			r.natives.UnpaintEdge(a, b)
		}
	}
	return nil
}

// AddAttribute sets keyword on a vertex or connection. Connection targets
// are normalized to the mirror's mode.
func (r *Runtime) AddAttribute(t graph.Target, k Keyword, v float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.attrTarget(t, k)
	if err != nil {
		return err
	}
	kv, ok := r.graph.attrs[t]
	if !ok {
		kv = make(map[Keyword]float64)
		r.graph.attrs[t] = kv
	}
	kv[k] = v
	return nil
}

// CheckAttribute reports the error AddAttribute would return, without
// storing anything.
func (r *Runtime) CheckAttribute(t graph.Target, k Keyword) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.attrTarget(t, k)
	return err
}

// attrTarget validates k and normalizes t to the mirror's key. Callers hold mu.
func (r *Runtime) attrTarget(t graph.Target, k Keyword) (graph.Target, error) {
	if _, err := ParseKeyword(string(k)); err != nil {
		return t, err
	}
	if !t.IsNode() {
		t = graph.ConnTarget(r.graph.mode.Key(t.Pair.A, t.Pair.B))
	}
	if !r.graph.hasTarget(t) {
		if t.IsNode() {
			return t, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, t)
		}
		return t, fmt.Errorf("%w: %s", graph.ErrConnectionNotFound, t)
	}
	return t, nil
}

// Attr reads back one attribute.
func (r *Runtime) Attr(t graph.Target, k Keyword) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !t.IsNode() {
		t = graph.ConnTarget(r.graph.mode.Key(t.Pair.A, t.Pair.B))
	}
	v, ok := r.graph.attrs[t][k]
	return v, ok
}

// ClearAttributes drops the given keywords everywhere, or all of them when
// none are given.
func (r *Runtime) ClearAttributes(keywords ...Keyword) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(keywords) == 0 {
		r.graph.attrs = make(map[graph.Target]map[Keyword]float64)
		return
	}
	for t, kv := range r.graph.attrs {
		for _, k := range keywords {
			delete(kv, k)
		}
		if len(kv) == 0 {
			delete(r.graph.attrs, t)
		}
	}
}

// NewGraph replaces the mirror with an empty graph of mode. The natives are
// not told; the host clears its own side.
func (r *Runtime) NewGraph(mode graph.Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graph = newGraph(mode)
}

// Clear empties the mirror and keeps its mode.
func (r *Runtime) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graph = newGraph(r.graph.mode)
}

// Invoke runs the procedure registered for name ("dijkstra" or
// "run-dijkstra") on a snapshot of the mirror. A panic becomes a
// *FaultError.
func (r *Runtime) Invoke(ctx context.Context, name string, args Args) error {
	return r.InvokeSnapshot(ctx, name, r.Snapshot(), args)
}

// InvokeSnapshot is Invoke on a snapshot the caller already took.
func (r *Runtime) InvokeSnapshot(ctx context.Context, name string, snap *Snapshot, args Args) (err error) {
	name = procName(name)

	r.mu.Lock()
	proc, ok := r.procs[name]
	set := r.settings[name]
	natives := r.natives
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProcedure, name)
	}
	if !set.Enabled {
		return fmt.Errorf("%w: %s", ErrDisabled, name)
	}
	if natives == nil {
		return ErrNotBound
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Procedure panicked", "procedure", name, "panic", p)
			err = &FaultError{Procedure: name, Value: p, Stack: debug.Stack()}
		}
	}()
	return proc(ctx, Call{
		Canvas: natives,
		Graph:  snap,
		Args:   args,
		Colors: set.Colors.clone(),
		Steps:  set.Steps,
	})
}

func procName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "run-")
}
