package algo

import (
	"math"

	"github.com/DrSkyle/graphstep/pkg/graph"
)

// SpringParams tune the force-directed layout.
type SpringParams struct {
	Length    float64 // rest length of a connection
	Stiffness float64
	Repulsion float64
	MaxStep   float64 // per tick, per axis
}

func DefaultSpringParams() SpringParams {
	return SpringParams{Length: 12, Stiffness: 0.08, Repulsion: 60, MaxStep: 2}
}

// Offset is a relative move.
type Offset struct {
	DX, DY float64
}

// Spring computes one tick of movement: connections pull toward their rest
// length, every pair of nodes pushes apart. Nodes that would barely move are
// left out.
func Spring(nodes []graph.Node, conns []graph.Connection, p SpringParams) map[graph.NodeID]Offset {
	force := make(map[graph.NodeID]*Offset, len(nodes))
	pos := make(map[graph.NodeID][2]float64, len(nodes))
	for _, n := range nodes {
		force[n.ID] = &Offset{}
		pos[n.ID] = [2]float64{n.X, n.Y}
	}

	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i], nodes[j]
			dx, dy := b.X-a.X, b.Y-a.Y
			d2 := dx*dx + dy*dy
			if d2 < 0.01 {
				// coincident: nudge apart along x by id order
				dx, dy, d2 = 1, 0, 1
			}
			d := math.Sqrt(d2)
			f := p.Repulsion / d2
			fx, fy := f*dx/d, f*dy/d
			force[a.ID].DX -= fx
			force[a.ID].DY -= fy
			force[b.ID].DX += fx
			force[b.ID].DY += fy
		}
	}

	for _, c := range conns {
		pa, okA := pos[c.A]
		pb, okB := pos[c.B]
		if !okA || !okB {
			continue
		}
		dx, dy := pb[0]-pa[0], pb[1]-pa[1]
		d := math.Hypot(dx, dy)
		if d < 0.1 {
			continue
		}
		f := p.Stiffness * (d - p.Length)
		fx, fy := f*dx/d, f*dy/d
		force[c.A].DX += fx
		force[c.A].DY += fy
		force[c.B].DX -= fx
		force[c.B].DY -= fy
	}

	out := make(map[graph.NodeID]Offset, len(force))
	for id, f := range force {
		o := Offset{DX: clamp(f.DX, p.MaxStep), DY: clamp(f.DY, p.MaxStep)}
		if math.Abs(o.DX) < 0.05 && math.Abs(o.DY) < 0.05 {
			continue
		}
		out[id] = o
	}
	return out
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
