// Package graph holds the canvas-side graph model: what the presentation
// surface draws and what the user edits.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Mode selects which connection kind is legal in a graph.
type Mode int

const (
	Undirected Mode = iota
	Directed
)

func (m Mode) String() string {
	if m == Directed {
		return "directed"
	}
	return "undirected"
}

// ParseMode accepts "undirected"/"directed" and their first letters.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "undirected", "u", "":
		return Undirected, nil
	case "directed", "d":
		return Directed, nil
	}
	return Undirected, fmt.Errorf("unknown graph mode %q", s)
}

// NodeID identifies a node for the lifetime of a graph.
type NodeID int

// Pair identifies a connection. Edges are stored normalized (A <= B),
// arrows keep their direction.
type Pair struct {
	A NodeID
	B NodeID
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d %d)", p.A, p.B)
}

// EdgeKey returns the normalized pair for an undirected edge.
func EdgeKey(a, b NodeID) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// ArrowKey returns the pair for a directed arrow.
func ArrowKey(a, b NodeID) Pair {
	return Pair{A: a, B: b}
}

// Key returns the pair for a connection between a and b under mode m.
func (m Mode) Key(a, b NodeID) Pair {
	if m == Directed {
		return ArrowKey(a, b)
	}
	return EdgeKey(a, b)
}

var (
	ErrNodeNotFound       = errors.New("graph: node not found")
	ErrNodeExists         = errors.New("graph: node already exists")
	ErrConnectionNotFound = errors.New("graph: connection not found")
	ErrConnectionExists   = errors.New("graph: connection already exists")
	ErrSelfLoop           = errors.New("graph: self loops are not allowed")
	ErrWrongMode          = errors.New("graph: connection kind not legal in this mode")
)

// Node is a vertex as drawn on the canvas.
type Node struct {
	ID          NodeID
	X, Y        float64
	Label       string // typed by the user
	Annotation  string // written by algorithms
	Color       *RGBA
	LabelColor  *RGBA
	Highlighted bool
}

// Text is what the canvas shows next to the node.
func (n Node) Text() string {
	if n.Annotation != "" {
		return n.Annotation
	}
	return n.Label
}

// Connection is an edge or an arrow as drawn on the canvas.
type Connection struct {
	Pair
	Directed    bool
	Curved      bool
	Label       string
	Annotation  string
	Color       *RGBA
	LabelColor  *RGBA
	Highlighted bool
}

// Text is what the canvas shows at the connection midpoint.
func (c Connection) Text() string {
	if c.Annotation != "" {
		return c.Annotation
	}
	return c.Label
}

// Graph is the canonical canvas graph. It is mutated by the bridge only and
// read by the presentation surface and the launcher.
type Graph struct {
	mu      sync.RWMutex
	mode    Mode
	nodes   map[NodeID]*Node
	conns   map[Pair]*Connection
	startID NodeID
	nextID  NodeID
}

// New returns an empty graph whose id counter starts at startID.
func New(mode Mode, startID NodeID) *Graph {
	return &Graph{
		mode:    mode,
		nodes:   make(map[NodeID]*Node),
		conns:   make(map[Pair]*Connection),
		startID: startID,
		nextID:  startID,
	}
}

func (g *Graph) Mode() Mode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mode
}

// NextID is the id the next placed node will receive.
func (g *Graph) NextID() NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nextID
}

// IncrementID advances the counter past placed. Nodes placed through the
// counter advance it by exactly one.
func (g *Graph) IncrementID(placed NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if placed >= g.nextID {
		g.nextID = placed + 1
	}
}

// ResetID puts the counter back to its start offset.
func (g *Graph) ResetID() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID = g.startID
}

// Reset drops every node and connection and switches to mode. The counter
// is left alone; callers reset it explicitly.
func (g *Graph) Reset(mode Mode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = mode
	g.nodes = make(map[NodeID]*Node)
	g.conns = make(map[Pair]*Connection)
}

func (g *Graph) AddNode(id NodeID, x, y float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; ok {
		return fmt.Errorf("%w: %d", ErrNodeExists, id)
	}
	g.nodes[id] = &Node{ID: id, X: x, Y: y}
	return nil
}

// RemoveNode deletes the node and any connection still touching it.
func (g *Graph) RemoveNode(id NodeID) ([]Pair, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	var dropped []Pair
	for p := range g.conns {
		if p.A == id || p.B == id {
			dropped = append(dropped, p)
			delete(g.conns, p)
		}
	}
	delete(g.nodes, id)
	sortPairs(dropped)
	return dropped, nil
}

// AddConnection adds an edge or an arrow depending on directed, which must
// agree with the graph mode.
func (g *Graph) AddConnection(a, b NodeID, directed, curved bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if directed != (g.mode == Directed) {
		return fmt.Errorf("%w: %s graph", ErrWrongMode, g.mode)
	}
	if a == b {
		return fmt.Errorf("%w: %d", ErrSelfLoop, a)
	}
	for _, id := range []NodeID{a, b} {
		if _, ok := g.nodes[id]; !ok {
			return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
		}
	}
	key := g.mode.Key(a, b)
	if _, ok := g.conns[key]; ok {
		return fmt.Errorf("%w: %s", ErrConnectionExists, key)
	}
	g.conns[key] = &Connection{Pair: key, Directed: directed, Curved: curved}
	return nil
}

func (g *Graph) RemoveConnection(a, b NodeID, directed bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if directed != (g.mode == Directed) {
		return fmt.Errorf("%w: %s graph", ErrWrongMode, g.mode)
	}
	key := g.mode.Key(a, b)
	if _, ok := g.conns[key]; !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, key)
	}
	delete(g.conns, key)
	return nil
}

// Node returns a copy of the node.
func (g *Graph) Node(id NodeID) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

func (g *Graph) HasNode(id NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Connection returns a copy of the connection between a and b, using the
// graph's own mode to decide whether order matters.
func (g *Graph) Connection(a, b NodeID) (Connection, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.conns[g.mode.Key(a, b)]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

// Nodes returns copies of every node sorted by id.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodeIDs returns the live ids in ascending order.
func (g *Graph) NodeIDs() []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Connections returns copies of every connection sorted by pair.
func (g *Graph) Connections() []Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Connection, 0, len(g.conns))
	for _, c := range g.conns {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return pairLess(out[i].Pair, out[j].Pair) })
	return out
}

// UpdateNode applies update to the node under the write lock.
func (g *Graph) UpdateNode(id NodeID, update func(*Node)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	update(n)
	return nil
}

// UpdateConnection applies update to the connection under the write lock.
// directed must agree with the mode so edge callbacks never touch arrows.
func (g *Graph) UpdateConnection(a, b NodeID, directed bool, update func(*Connection)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if directed != (g.mode == Directed) {
		return fmt.Errorf("%w: %s graph", ErrWrongMode, g.mode)
	}
	c, ok := g.conns[g.mode.Key(a, b)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, g.mode.Key(a, b))
	}
	update(c)
	return nil
}

// Move shifts a node by a relative offset.
func (g *Graph) Move(id NodeID, dx, dy float64) error {
	return g.UpdateNode(id, func(n *Node) {
		n.X += dx
		n.Y += dy
	})
}

func (g *Graph) Pos(id NodeID) (float64, float64, error) {
	n, ok := g.Node(id)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return n.X, n.Y, nil
}

// CleanVisuals drops everything a previous run left on the canvas:
// highlights, colors and annotations. User labels survive.
func (g *Graph) CleanVisuals() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		n.Highlighted = false
		n.Color, n.LabelColor = nil, nil
		n.Annotation = ""
	}
	for _, c := range g.conns {
		c.Highlighted = false
		c.Color, c.LabelColor = nil, nil
		c.Annotation = ""
	}
}

// SetCurved changes how every connection is drawn.
func (g *Graph) SetCurved(curved bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.conns {
		c.Curved = curved
	}
}

// ClearAnnotations drops algorithm text only.
func (g *Graph) ClearAnnotations() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		n.Annotation = ""
	}
	for _, c := range g.conns {
		c.Annotation = ""
	}
}

// SetLabel stores user text on a node or a connection.
func (g *Graph) SetLabel(t Target, text string) error {
	if t.IsNode() {
		return g.UpdateNode(t.Node, func(n *Node) { n.Label = text })
	}
	return g.UpdateConnection(t.Pair.A, t.Pair.B, g.Mode() == Directed, func(c *Connection) { c.Label = text })
}

// Stats is a snapshot of the graph's size.
type Stats struct {
	Mode        Mode
	Nodes       int
	Connections int
	NextID      NodeID
}

func (s Stats) String() string {
	kind := "Edges"
	if s.Mode == Directed {
		kind = "Arrows"
	}
	return fmt.Sprintf("Nodes: %d | %s: %d | Next ID: %d", s.Nodes, kind, s.Connections, s.NextID)
}

func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Stats{Mode: g.mode, Nodes: len(g.nodes), Connections: len(g.conns), NextID: g.nextID}
}

func pairLess(x, y Pair) bool {
	if x.A != y.A {
		return x.A < y.A
	}
	return x.B < y.B
}

func sortPairs(ps []Pair) {
	sort.Slice(ps, func(i, j int) bool { return pairLess(ps[i], ps[j]) })
}
