package script

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DrSkyle/graphstep/pkg/graph"
)

// Keyword names a numeric attribute algorithms read.
type Keyword string

const (
	Weight   Keyword = "weight"
	Distance Keyword = "distance"
	Cost     Keyword = "cost"
	QMax     Keyword = "q-max"
	QMin     Keyword = "q-min"
)

// Keywords lists every legal attribute keyword.
var Keywords = []Keyword{Weight, Distance, Cost, QMax, QMin}

func ParseKeyword(s string) (Keyword, error) {
	k := Keyword(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Keywords {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKeyword, s)
}

type point struct{ x, y float64 }

// Graph is the runtime's mirror of the canvas: ids, connections and
// numeric attributes. It is never handed to procedures directly; they get a
// Snapshot.
type Graph struct {
	mode     graph.Mode
	vertices map[graph.NodeID]point
	links    map[graph.Pair]struct{}
	attrs    map[graph.Target]map[Keyword]float64
}

func newGraph(mode graph.Mode) *Graph {
	return &Graph{
		mode:     mode,
		vertices: make(map[graph.NodeID]point),
		links:    make(map[graph.Pair]struct{}),
		attrs:    make(map[graph.Target]map[Keyword]float64),
	}
}

func (g *Graph) hasTarget(t graph.Target) bool {
	if t.IsNode() {
		_, ok := g.vertices[t.Node]
		return ok
	}
	_, ok := g.links[t.Pair]
	return ok
}

func (g *Graph) incident(id graph.NodeID) []graph.Pair {
	var out []graph.Pair
	for p := range g.links {
		if p.A == id || p.B == id {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Snapshot copies the graph. Adjacency is precomputed in ascending id order
// so procedures see deterministic iteration.
func (g *Graph) Snapshot() *Snapshot {
	s := &Snapshot{
		mode:  g.mode,
		pos:   make(map[graph.NodeID]point, len(g.vertices)),
		links: make(map[graph.Pair]struct{}, len(g.links)),
		attrs: make(map[graph.Target]map[Keyword]float64, len(g.attrs)),
		out:   make(map[graph.NodeID][]graph.NodeID),
		in:    make(map[graph.NodeID][]graph.NodeID),
	}
	for id, p := range g.vertices {
		s.pos[id] = p
		s.ids = append(s.ids, id)
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })

	for p := range g.links {
		s.links[p] = struct{}{}
		s.pairs = append(s.pairs, p)
	}
	sort.Slice(s.pairs, func(i, j int) bool {
		if s.pairs[i].A != s.pairs[j].A {
			return s.pairs[i].A < s.pairs[j].A
		}
		return s.pairs[i].B < s.pairs[j].B
	})
	for _, p := range s.pairs {
		s.out[p.A] = append(s.out[p.A], p.B)
		s.in[p.B] = append(s.in[p.B], p.A)
		if g.mode == graph.Undirected {
			s.out[p.B] = append(s.out[p.B], p.A)
			s.in[p.A] = append(s.in[p.A], p.B)
		}
	}
	for _, adj := range []map[graph.NodeID][]graph.NodeID{s.out, s.in} {
		for id := range adj {
			sortIDs(adj[id])
		}
	}

	for t, kv := range g.attrs {
		cp := make(map[Keyword]float64, len(kv))
		for k, v := range kv {
			cp[k] = v
		}
		s.attrs[t] = cp
	}
	return s
}

// Snapshot is an immutable view of the mirror taken when a run starts.
type Snapshot struct {
	mode  graph.Mode
	ids   []graph.NodeID
	pairs []graph.Pair
	pos   map[graph.NodeID]point
	links map[graph.Pair]struct{}
	attrs map[graph.Target]map[Keyword]float64
	out   map[graph.NodeID][]graph.NodeID
	in    map[graph.NodeID][]graph.NodeID
}

func (s *Snapshot) Mode() graph.Mode { return s.mode }

func (s *Snapshot) Directed() bool { return s.mode == graph.Directed }

// Vertices returns ids in ascending order. Callers must not modify it.
func (s *Snapshot) Vertices() []graph.NodeID { return s.ids }

// Links returns normalized pairs in ascending order. Callers must not modify it.
func (s *Snapshot) Links() []graph.Pair { return s.pairs }

func (s *Snapshot) HasVertex(id graph.NodeID) bool {
	_, ok := s.pos[id]
	return ok
}

// Link returns the stored pair joining a and b, honoring direction.
func (s *Snapshot) Link(a, b graph.NodeID) (graph.Pair, bool) {
	p := s.mode.Key(a, b)
	_, ok := s.links[p]
	return p, ok
}

// Out lists the vertices reachable over one connection from id. In an
// undirected graph that is every neighbor.
func (s *Snapshot) Out(id graph.NodeID) []graph.NodeID { return s.out[id] }

// In lists the vertices with a connection into id.
func (s *Snapshot) In(id graph.NodeID) []graph.NodeID { return s.in[id] }

// Neighbors ignores direction.
func (s *Snapshot) Neighbors(id graph.NodeID) []graph.NodeID {
	if s.mode == graph.Undirected {
		return s.out[id]
	}
	seen := make(map[graph.NodeID]bool)
	var out []graph.NodeID
	for _, adj := range [][]graph.NodeID{s.out[id], s.in[id]} {
		for _, n := range adj {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sortIDs(out)
	return out
}

func (s *Snapshot) Pos(id graph.NodeID) (float64, float64, bool) {
	p, ok := s.pos[id]
	return p.x, p.y, ok
}

func (s *Snapshot) VertexAttr(id graph.NodeID, k Keyword) (float64, bool) {
	v, ok := s.attrs[graph.NodeTarget(id)][k]
	return v, ok
}

// LinkAttr looks up an attribute on the connection from a to b.
func (s *Snapshot) LinkAttr(a, b graph.NodeID, k Keyword) (float64, bool) {
	v, ok := s.attrs[graph.ConnTarget(s.mode.Key(a, b))][k]
	return v, ok
}

func sortIDs(ids []graph.NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
