package algo

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
)

type weightedLink struct {
	graph.Pair
	w float64
}

func sortedByWeight(weights map[graph.Pair]float64) []weightedLink {
	links := make([]weightedLink, 0, len(weights))
	for p, w := range weights {
		links = append(links, weightedLink{Pair: p, w: w})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].w != links[j].w {
			return links[i].w < links[j].w
		}
		if links[i].A != links[j].A {
			return links[i].A < links[j].A
		}
		return links[i].B < links[j].B
	})
	return links
}

func runKruskal(ctx context.Context, c script.Call) error {
	g := c.Graph
	if err := requireMode(Kruskal, g, graph.Undirected); err != nil {
		return err
	}
	weights, err := linkAttrs(g, script.Weight)
	if err != nil {
		return err
	}
	p := painter{c}

	uf := graph.NewUnionFind(g.Vertices())
	total, taken := 0.0, 0
	for _, l := range sortedByWeight(weights) {
		p.Canvas.HighlightEdge(l.A, l.B)
		if uf.Union(l.A, l.B) {
			total += l.w
			taken++
			p.Canvas.ColorEdge(l.A, l.B, p.color("tree", defaultTree))
			if err := c.Step(ctx, fmt.Sprintf("take %d-%d (weight %s)", l.A, l.B, fmtNum(l.w))); err != nil {
				return err
			}
		} else {
			p.Canvas.ColorEdge(l.A, l.B, p.color("rejected", defaultRejected))
			if err := c.Step(ctx, fmt.Sprintf("skip %d-%d, it closes a cycle", l.A, l.B)); err != nil {
				return err
			}
		}
		p.Canvas.UnhighlightEdge(l.A, l.B)
	}

	components := len(g.Vertices()) - taken
	if components > 1 {
		c.Canvas.ShowMessage(fmt.Sprintf("spanning forest of %d trees, total weight %s", components, fmtNum(total)))
		return nil
	}
	c.Canvas.ShowMessage(fmt.Sprintf("minimum spanning tree weight %s", fmtNum(total)))
	return nil
}

type primItem struct {
	from, to graph.NodeID
	w        float64
}

type primQueue []primItem

func (q primQueue) Len() int { return len(q) }
func (q primQueue) Less(i, j int) bool {
	if q[i].w != q[j].w {
		return q[i].w < q[j].w
	}
	if q[i].to != q[j].to {
		return q[i].to < q[j].to
	}
	return q[i].from < q[j].from
}
func (q primQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *primQueue) Push(x any)   { *q = append(*q, x.(primItem)) }
func (q *primQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

func runPrim(ctx context.Context, c script.Call) error {
	g := c.Graph
	if err := requireMode(Prim, g, graph.Undirected); err != nil {
		return err
	}
	root := c.Args.Root
	if err := requireVertex(g, root); err != nil {
		return err
	}
	weights, err := linkAttrs(g, script.Weight)
	if err != nil {
		return err
	}
	p := painter{c}

	inTree := map[graph.NodeID]bool{}
	q := &primQueue{}
	add := func(u graph.NodeID) {
		inTree[u] = true
		p.Canvas.ColorNode(u, p.color("tree", defaultTree))
		for _, v := range g.Out(u) {
			if !inTree[v] {
				heap.Push(q, primItem{from: u, to: v, w: weights[graph.EdgeKey(u, v)]})
			}
		}
	}
	add(root)
	if err := c.Step(ctx, fmt.Sprintf("root %d", root)); err != nil {
		return err
	}

	total := 0.0
	for q.Len() > 0 {
		it := heap.Pop(q).(primItem)
		if inTree[it.to] {
			continue
		}
		p.Canvas.HighlightEdge(it.from, it.to)
		p.Canvas.ColorEdge(it.from, it.to, p.color("tree", defaultTree))
		total += it.w
		add(it.to)
		if err := c.Step(ctx, fmt.Sprintf("take %d-%d (weight %s)", it.from, it.to, fmtNum(it.w))); err != nil {
			return err
		}
		p.Canvas.UnhighlightEdge(it.from, it.to)
	}

	if len(inTree) < len(g.Vertices()) {
		c.Canvas.ShowMessage(fmt.Sprintf("graph is not connected; tree from %d spans %d vertices, weight %s", root, len(inTree), fmtNum(total)))
		return nil
	}
	c.Canvas.ShowMessage(fmt.Sprintf("minimum spanning tree weight %s", fmtNum(total)))
	return nil
}
