package algo

import (
	"fmt"
	"math"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
)

const eps = 1e-9

type arcKind int

const (
	arcLink arcKind = iota
	arcNode
	arcTerminal
	arcReturn
	arcBalance
)

// arc is one direction of a residual pair; arcs[i^1] is its partner.
type arc struct {
	from, to int
	cap      float64
	cost     float64
	kind     arcKind
	link     graph.Pair
	node     graph.NodeID
}

// network is a residual flow network with paired arcs.
type network struct {
	arcs  []arc
	adj   [][]int
	owner []graph.NodeID // vertex owning each network node, or -1
}

func (n *network) addNode(owner graph.NodeID) int {
	n.adj = append(n.adj, nil)
	n.owner = append(n.owner, owner)
	return len(n.adj) - 1
}

func (n *network) addArc(from, to int, cap, cost float64, kind arcKind) int {
	i := len(n.arcs)
	n.arcs = append(n.arcs,
		arc{from: from, to: to, cap: cap, cost: cost, kind: kind},
		arc{from: to, to: from, cost: -cost, kind: kind},
	)
	n.adj[from] = append(n.adj[from], i)
	n.adj[to] = append(n.adj[to], i+1)
	return i
}

func (n *network) push(i int, f float64) {
	n.arcs[i].cap -= f
	n.arcs[i^1].cap += f
}

// flow is what the forward arc i carries above its lower bound.
func (n *network) flow(i int) float64 {
	return n.arcs[i^1].cap
}

func (n *network) freeze(i int) {
	n.arcs[i].cap = 0
	n.arcs[i^1].cap = 0
}

// shortestHops finds an augmenting path with the fewest arcs. Neighbors are
// scanned in insertion order, which keeps source and sink order meaningful.
func (n *network) shortestHops(src, dst int) []int {
	pred := make([]int, len(n.adj))
	for i := range pred {
		pred[i] = -1
	}
	seen := make([]bool, len(n.adj))
	seen[src] = true
	queue := []int{src}
	for len(queue) > 0 && !seen[dst] {
		u := queue[0]
		queue = queue[1:]
		for _, ai := range n.adj[u] {
			a := n.arcs[ai]
			if a.cap > eps && !seen[a.to] {
				seen[a.to] = true
				pred[a.to] = ai
				queue = append(queue, a.to)
			}
		}
	}
	if !seen[dst] {
		return nil
	}
	return n.walkBack(pred, src, dst)
}

func (n *network) walkBack(pred []int, src, dst int) []int {
	var path []int
	for v := dst; v != src; v = n.arcs[pred[v]].from {
		path = append([]int{pred[v]}, path...)
	}
	return path
}

func (n *network) bottleneck(path []int) float64 {
	b := math.Inf(1)
	for _, ai := range path {
		b = math.Min(b, n.arcs[ai].cap)
	}
	return b
}

// cheapestPath is Bellman-Ford over residual arcs by cost.
func (n *network) cheapestPath(src, dst int) ([]int, error) {
	dist := make([]float64, len(n.adj))
	pred := make([]int, len(n.adj))
	for i := range dist {
		dist[i] = math.Inf(1)
		pred[i] = -1
	}
	dist[src] = 0
	for round := 0; round < len(n.adj); round++ {
		changed := false
		for ai, a := range n.arcs {
			if a.cap > eps && !math.IsInf(dist[a.from], 1) && dist[a.from]+a.cost < dist[a.to]-eps {
				dist[a.to] = dist[a.from] + a.cost
				pred[a.to] = ai
				changed = true
			}
		}
		if !changed {
			if math.IsInf(dist[dst], 1) {
				return nil, nil
			}
			return n.walkBack(pred, src, dst), nil
		}
	}
	return nil, ErrNegativeCycle
}

// negativeCycle returns the arcs of a residual cycle with negative total
// cost, or nil.
func (n *network) negativeCycle() []int {
	dist := make([]float64, len(n.adj))
	pred := make([]int, len(n.adj))
	for i := range pred {
		pred[i] = -1
	}
	last := -1
	for round := 0; round < len(n.adj); round++ {
		last = -1
		for ai, a := range n.arcs {
			if a.cap > eps && dist[a.from]+a.cost < dist[a.to]-eps {
				dist[a.to] = dist[a.from] + a.cost
				pred[a.to] = ai
				last = a.to
			}
		}
		if last < 0 {
			return nil
		}
	}
	v := last
	for i := 0; i < len(n.adj); i++ {
		if pred[v] < 0 {
			return nil
		}
		v = n.arcs[pred[v]].from
	}
	var cycle []int
	for u := v; ; {
		ai := pred[u]
		cycle = append([]int{ai}, cycle...)
		u = n.arcs[ai].from
		if u == v {
			break
		}
	}
	return cycle
}

// flowNet is a network built from a snapshot: vertices split when they
// carry bounds, a super source and sink, a return arc and the balance arcs
// of the lower-bound reduction.
type flowNet struct {
	network
	s, t, ss, tt int
	ret          int
	need         float64
	big          float64
	linkArc      map[graph.Pair]int
	nodeArc      map[graph.NodeID]int
	lower        map[int]float64
	upper        map[int]float64
	balance      []int
}

type flowOptions struct {
	costs      bool
	nodeBounds bool
}

func buildFlow(g *script.Snapshot, args script.Args, opt flowOptions) (*flowNet, error) {
	if len(args.Sources) == 0 || len(args.Sinks) == 0 {
		return nil, ErrNoTerminals
	}
	sink := make(map[graph.NodeID]bool, len(args.Sinks))
	for _, id := range args.Sinks {
		if err := requireVertex(g, id); err != nil {
			return nil, err
		}
		sink[id] = true
	}
	for _, id := range args.Sources {
		if err := requireVertex(g, id); err != nil {
			return nil, err
		}
		if sink[id] {
			return nil, fmt.Errorf("%w: %d is both source and sink", ErrUnbounded, id)
		}
	}
	if !args.Maximize && (args.Flow < 0 || math.IsNaN(args.Flow) || math.IsInf(args.Flow, 0)) {
		return nil, fmt.Errorf("%w: target flow %s", ErrInfeasible, fmtNum(args.Flow))
	}

	fn := &flowNet{
		linkArc: make(map[graph.Pair]int),
		nodeArc: make(map[graph.NodeID]int),
		lower:   make(map[int]float64),
		upper:   make(map[int]float64),
	}
	in := make(map[graph.NodeID]int)
	out := make(map[graph.NodeID]int)
	finite := 0.0

	for _, id := range g.Vertices() {
		in[id] = fn.addNode(id)
		out[id] = in[id]
		if !opt.nodeBounds {
			continue
		}
		qmax, hasMax := g.VertexAttr(id, script.QMax)
		qmin, hasMin := g.VertexAttr(id, script.QMin)
		if !hasMax && !hasMin {
			continue
		}
		out[id] = fn.addNode(id)
		if !hasMax {
			qmax = math.Inf(1)
		} else {
			finite += qmax
		}
		ai, err := fn.boundedArc(in[id], out[id], qmin, qmax, 0, arcNode, fmt.Sprintf("vertex %d", id))
		if err != nil {
			return nil, err
		}
		fn.arcs[ai].node, fn.arcs[ai^1].node = id, id
		fn.nodeArc[id] = ai
	}

	for _, l := range g.Links() {
		qmax, ok := g.LinkAttr(l.A, l.B, script.QMax)
		if !ok {
			return nil, fmt.Errorf("%w: %s on %s", ErrMissingAttribute, script.QMax, l)
		}
		qmin, _ := g.LinkAttr(l.A, l.B, script.QMin)
		cost := 0.0
		if opt.costs {
			if cost, ok = g.LinkAttr(l.A, l.B, script.Cost); !ok {
				return nil, fmt.Errorf("%w: %s on %s", ErrMissingAttribute, script.Cost, l)
			}
		}
		ai, err := fn.boundedArc(out[l.A], in[l.B], qmin, qmax, cost, arcLink, l.String())
		if err != nil {
			return nil, err
		}
		fn.arcs[ai].link, fn.arcs[ai^1].link = l, l
		fn.linkArc[l] = ai
		finite += qmax
	}

	fn.big = finite + 1
	if !args.Maximize {
		fn.big += args.Flow
	}
	for ai, u := range fn.upper {
		if math.IsInf(u, 1) {
			fn.arcs[ai].cap = fn.big - fn.lower[ai]
		}
	}

	fn.s = fn.addNode(-1)
	fn.t = fn.addNode(-1)
	for _, id := range args.Sources {
		fn.addArc(fn.s, in[id], fn.big, 0, arcTerminal)
	}
	for _, id := range args.Sinks {
		fn.addArc(out[id], fn.t, fn.big, 0, arcTerminal)
	}
	if args.Maximize {
		fn.ret = fn.addArc(fn.t, fn.s, fn.big, 0, arcReturn)
	} else {
		fn.ret = fn.addArc(fn.t, fn.s, 0, 0, arcReturn)
		fn.lower[fn.ret] = args.Flow
	}

	excess := make([]float64, len(fn.adj))
	for ai, l := range fn.lower {
		excess[fn.arcs[ai].to] += l
		excess[fn.arcs[ai].from] -= l
	}
	fn.ss = fn.addNode(-1)
	fn.tt = fn.addNode(-1)
	for v, e := range excess {
		switch {
		case e > eps:
			fn.balance = append(fn.balance, fn.addArc(fn.ss, v, e, 0, arcBalance))
			fn.need += e
		case e < -eps:
			fn.balance = append(fn.balance, fn.addArc(v, fn.tt, -e, 0, arcBalance))
		}
	}
	return fn, nil
}

func (fn *flowNet) boundedArc(from, to int, lower, upper, cost float64, kind arcKind, what string) (int, error) {
	if lower < 0 || upper < 0 {
		return 0, fmt.Errorf("%w: negative bound on %s", ErrInfeasible, what)
	}
	if lower > upper {
		return 0, fmt.Errorf("%w: q-min %s above q-max %s on %s", ErrInfeasible, fmtNum(lower), fmtNum(upper), what)
	}
	ai := fn.addArc(from, to, upper-lower, cost, kind)
	if lower > 0 {
		fn.lower[ai] = lower
	}
	fn.upper[ai] = upper
	return ai, nil
}

// hasLowerBounds ignores the return arc.
func (fn *flowNet) hasLowerBounds() bool {
	for ai := range fn.lower {
		if ai != fn.ret {
			return true
		}
	}
	return false
}

// actual is the real flow on forward arc ai.
func (fn *flowNet) actual(ai int) float64 {
	return fn.lower[ai] + fn.flow(ai)
}

// value is the flow leaving the super source.
func (fn *flowNet) value() float64 {
	v := 0.0
	for _, ai := range fn.adj[fn.s] {
		if ai%2 == 0 && fn.arcs[ai].kind == arcTerminal {
			v += fn.flow(ai)
		}
	}
	return v
}

func (fn *flowNet) cost() float64 {
	c := 0.0
	for _, ai := range fn.linkArc {
		c += fn.actual(ai) * fn.arcs[ai].cost
	}
	return c
}

// vertices lists the graph vertices a path passes through, in order.
func (fn *flowNet) vertices(path []int) []graph.NodeID {
	var out []graph.NodeID
	for _, ai := range path {
		for _, v := range []int{fn.arcs[ai].from, fn.arcs[ai].to} {
			id := fn.owner[v]
			if id < 0 || (len(out) > 0 && out[len(out)-1] == id) {
				continue
			}
			out = append(out, id)
		}
	}
	return out
}
