package algo

import (
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
)

type distItem struct {
	id graph.NodeID
	d  float64
}

type distQueue []distItem

func (q distQueue) Len() int { return len(q) }
func (q distQueue) Less(i, j int) bool {
	if q[i].d != q[j].d {
		return q[i].d < q[j].d
	}
	return q[i].id < q[j].id
}
func (q distQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x any)   { *q = append(*q, x.(distItem)) }
func (q *distQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// runDijkstra settles vertices from Root until End and then marks the path.
// Node annotations carry the tentative distance.
func runDijkstra(ctx context.Context, c script.Call) error {
	g := c.Graph
	start, end := c.Args.Root, c.Args.End
	for _, id := range []graph.NodeID{start, end} {
		if err := requireVertex(g, id); err != nil {
			return err
		}
	}
	weights, err := linkAttrs(g, script.Distance)
	if err != nil {
		return err
	}
	for l, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: %s on %s", ErrNegativeWeight, fmtNum(w), l)
		}
	}
	p := painter{c}

	dist := map[graph.NodeID]float64{start: 0}
	prev := map[graph.NodeID]graph.NodeID{}
	done := map[graph.NodeID]bool{}
	q := &distQueue{{id: start}}
	p.Canvas.LabelNode(start, "0")

	for q.Len() > 0 {
		u := heap.Pop(q).(distItem).id
		if done[u] {
			continue
		}
		done[u] = true
		p.Canvas.HighlightNode(u)
		p.Canvas.ColorNode(u, p.color("visited", defaultVisited))
		if err := c.Step(ctx, fmt.Sprintf("settle %d at distance %s", u, fmtNum(dist[u]))); err != nil {
			return err
		}
		p.Canvas.UnhighlightNode(u)
		if u == end {
			break
		}
		for _, v := range g.Out(u) {
			if done[v] {
				continue
			}
			nd := dist[u] + weights[g.Mode().Key(u, v)]
			if old, seen := dist[v]; !seen || nd < old {
				dist[v] = nd
				prev[v] = u
				p.Canvas.LabelNode(v, fmtNum(nd))
				heap.Push(q, distItem{id: v, d: nd})
			}
		}
	}

	if !done[end] {
		c.Canvas.ShowMessage(fmt.Sprintf("%d is unreachable from %d", end, start))
		return nil
	}

	path := []graph.NodeID{end}
	for at := end; at != start; {
		at = prev[at]
		path = append([]graph.NodeID{at}, path...)
	}
	pathColor := p.color("path", defaultPath)
	for i, id := range path {
		p.Canvas.HighlightNode(id)
		if i > 0 {
			p.highlightLink(path[i-1], id)
			p.colorLink(path[i-1], id, pathColor)
		}
	}
	c.Canvas.ShowMessage(fmt.Sprintf("shortest path %d -> %d: %s (length %s)", start, end, joinIDs(path), fmtNum(dist[end])))
	return nil
}

// runFloydWarshall relaxes through every pivot, then walks each source
// labelling the other vertices with their distance from it.
func runFloydWarshall(ctx context.Context, c script.Call) error {
	g := c.Graph
	weights, err := linkAttrs(g, script.Distance)
	if err != nil {
		return err
	}
	p := painter{c}

	ids := g.Vertices()
	n := len(ids)
	idx := make(map[graph.NodeID]int, n)
	for i, id := range ids {
		idx[id] = i
	}
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			if i != j {
				dist[i][j] = math.Inf(1)
			}
		}
	}
	for l, w := range weights {
		a, b := idx[l.A], idx[l.B]
		dist[a][b] = math.Min(dist[a][b], w)
		if !g.Directed() {
			dist[b][a] = math.Min(dist[b][a], w)
		}
	}

	for k := 0; k < n; k++ {
		p.Canvas.HighlightNode(ids[k])
		p.Canvas.ColorNode(ids[k], p.color("current", defaultCurrent))
		improved := 0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if d := dist[i][k] + dist[k][j]; d < dist[i][j] {
					dist[i][j] = d
					improved++
				}
			}
		}
		if err := c.Step(ctx, fmt.Sprintf("pivot %d improved %d pairs", ids[k], improved)); err != nil {
			return err
		}
		p.Canvas.UnhighlightNode(ids[k])
		p.Canvas.ColorNode(ids[k], p.color("visited", defaultVisited))
	}

	for i := 0; i < n; i++ {
		if dist[i][i] < 0 {
			p.Canvas.ColorNode(ids[i], p.color("path", defaultPath))
			return fmt.Errorf("%w through %d", ErrNegativeCycle, ids[i])
		}
	}

	for i := 0; i < n; i++ {
		p.Canvas.HighlightNode(ids[i])
		for j := 0; j < n; j++ {
			text := "inf"
			if !math.IsInf(dist[i][j], 1) {
				text = fmtNum(dist[i][j])
			}
			p.Canvas.LabelNode(ids[j], text)
		}
		if err := c.Step(ctx, fmt.Sprintf("distances from %d", ids[i])); err != nil {
			return err
		}
		p.Canvas.UnhighlightNode(ids[i])
	}
	c.Canvas.ShowMessage(fmt.Sprintf("all-pairs distances for %d vertices", n))
	return nil
}
