package algo

import (
	"context"
	"fmt"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
)

// runBipartiteness two-colors every component breadth first, ignoring
// direction, and stops at the first link joining two vertices of one side.
func runBipartiteness(ctx context.Context, c script.Call) error {
	p := painter{c}
	g := c.Graph
	side := make(map[graph.NodeID]int)

	for _, start := range g.Vertices() {
		if _, seen := side[start]; seen {
			continue
		}
		side[start] = 0
		p.paintSide(start, 0)
		if err := c.Step(ctx, fmt.Sprintf("vertex %d on side A", start)); err != nil {
			return err
		}

		queue := []graph.NodeID{start}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, v := range g.Neighbors(u) {
				a, b := linkBetween(g, u, v)
				sv, seen := side[v]
				if !seen {
					side[v] = 1 - side[u]
					p.colorLink(a, b, p.color("visited", defaultRejected))
					p.paintSide(v, side[v])
					if err := c.Step(ctx, fmt.Sprintf("vertex %d on side %s", v, sideName(side[v]))); err != nil {
						return err
					}
					queue = append(queue, v)
					continue
				}
				if sv == side[u] {
					p.colorLink(a, b, p.color("conflict", defaultPath))
					p.highlightLink(a, b)
					c.Canvas.ShowMessage(fmt.Sprintf("not bipartite: %d and %d are both on side %s", u, v, sideName(sv)))
					return nil
				}
			}
		}
	}
	c.Canvas.ShowMessage("graph is bipartite")
	return nil
}

func (p painter) paintSide(id graph.NodeID, side int) {
	if side == 0 {
		p.Canvas.ColorNode(id, p.color("side_a", defaultSideA))
	} else {
		p.Canvas.ColorNode(id, p.color("side_b", defaultSideB))
	}
	p.Canvas.LabelNode(id, sideName(side))
}

func sideName(side int) string {
	if side == 0 {
		return "A"
	}
	return "B"
}

// linkBetween orders u and v the way the link between them is stored.
func linkBetween(g *script.Snapshot, u, v graph.NodeID) (graph.NodeID, graph.NodeID) {
	if _, ok := g.Link(u, v); ok {
		return u, v
	}
	return v, u
}

func runSpanningTreeBFS(ctx context.Context, c script.Call) error {
	return spanningTree(ctx, c, false)
}

func runSpanningTreeDFS(ctx context.Context, c script.Call) error {
	return spanningTree(ctx, c, true)
}

// spanningTree grows a tree from the root following connection direction.
// depthFirst switches the frontier from a queue to a stack.
func spanningTree(ctx context.Context, c script.Call, depthFirst bool) error {
	g := c.Graph
	root := c.Args.Root
	if err := requireVertex(g, root); err != nil {
		return err
	}
	p := painter{c}

	visited := map[graph.NodeID]bool{root: true}
	order := 0
	visit := func(id graph.NodeID) {
		p.Canvas.ColorNode(id, p.color("visited", defaultVisited))
		p.Canvas.LabelNode(id, fmt.Sprint(order))
		order++
	}
	visit(root)
	if err := c.Step(ctx, fmt.Sprintf("root %d", root)); err != nil {
		return err
	}

	type frame struct {
		node graph.NodeID
		next int
	}
	frontier := []frame{{node: root}}
	for len(frontier) > 0 {
		var f *frame
		if depthFirst {
			f = &frontier[len(frontier)-1]
		} else {
			f = &frontier[0]
		}
		u := f.node
		out := g.Out(u)
		if f.next >= len(out) {
			if depthFirst {
				frontier = frontier[:len(frontier)-1]
			} else {
				frontier = frontier[1:]
			}
			p.Canvas.UnhighlightNode(u)
			continue
		}
		v := out[f.next]
		f.next++
		if visited[v] {
			continue
		}
		visited[v] = true

		p.Canvas.HighlightNode(u)
		p.colorLink(u, v, p.color("tree", defaultTree))
		p.highlightLink(u, v)
		visit(v)
		if err := c.Step(ctx, fmt.Sprintf("tree link %d-%d", u, v)); err != nil {
			return err
		}
		p.unhighlightLink(u, v)
		frontier = append(frontier, frame{node: v})
	}

	c.Canvas.ShowMessage(fmt.Sprintf("spanning tree reaches %d of %d vertices", len(visited), len(g.Vertices())))
	return nil
}
