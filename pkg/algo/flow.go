package algo

import (
	"context"
	"fmt"
	"math"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
)

// maxCancels bounds cycle canceling against float drift.
const maxCancels = 10000

type flowRun struct {
	painter
	fn *flowNet
}

func newFlowRun(name string, c script.Call, opt flowOptions) (*flowRun, error) {
	if err := requireMode(name, c.Graph, graph.Directed); err != nil {
		return nil, err
	}
	args := c.Args
	if name == MinCostFlowSP {
		args.Maximize = true
	}
	fn, err := buildFlow(c.Graph, args, opt)
	if err != nil {
		return nil, err
	}
	return &flowRun{painter: painter{c}, fn: fn}, nil
}

// show highlights the real part of a residual path around one step.
func (r *flowRun) show(ctx context.Context, path []int, message string) error {
	var shown []arc
	for _, ai := range path {
		a := r.fn.arcs[ai]
		switch a.kind {
		case arcLink:
			r.Canvas.HighlightArrow(a.link.A, a.link.B)
			shown = append(shown, a)
		case arcNode:
			r.Canvas.HighlightNode(a.node)
			shown = append(shown, a)
		}
	}
	if len(shown) == 0 {
		return ctx.Err()
	}
	if err := r.Step(ctx, message); err != nil {
		return err
	}
	for _, a := range shown {
		if a.kind == arcLink {
			r.Canvas.UnhighlightArrow(a.link.A, a.link.B)
		} else {
			r.Canvas.UnhighlightNode(a.node)
		}
	}
	return nil
}

func (r *flowRun) augment(ctx context.Context, path []int, amount float64) error {
	for _, ai := range path {
		r.fn.push(ai, amount)
	}
	return r.show(ctx, path, fmt.Sprintf("augment %s by %s", joinIDs(r.fn.vertices(path)), fmtNum(amount)))
}

// feasible satisfies every lower bound, the target flow included, or fails.
func (r *flowRun) feasible(ctx context.Context) error {
	fn := r.fn
	got := 0.0
	for fn.need > eps && got < fn.need-eps {
		path := fn.shortestHops(fn.ss, fn.tt)
		if path == nil {
			break
		}
		amount := fn.bottleneck(path)
		got += amount
		if err := r.augment(ctx, path, amount); err != nil {
			return err
		}
	}
	if got < fn.need-eps {
		return fmt.Errorf("%w: bounds and target cannot all be met", ErrInfeasible)
	}
	for _, ai := range fn.balance {
		fn.freeze(ai)
	}
	return nil
}

// maximize pushes whatever else fits from the super source to the sink.
func (r *flowRun) maximize(ctx context.Context) error {
	fn := r.fn
	fn.freeze(fn.ret)
	for {
		path := fn.shortestHops(fn.s, fn.t)
		if path == nil {
			return nil
		}
		if err := r.augment(ctx, path, fn.bottleneck(path)); err != nil {
			return err
		}
	}
}

func (r *flowRun) cancelCycles(ctx context.Context) error {
	fn := r.fn
	for i := 0; i < maxCancels; i++ {
		cycle := fn.negativeCycle()
		if cycle == nil {
			return nil
		}
		amount := fn.bottleneck(cycle)
		if math.IsInf(amount, 1) || amount > fn.big {
			return fmt.Errorf("%w: negative cost cycle without capacity limit", ErrUnbounded)
		}
		delta := 0.0
		for _, ai := range cycle {
			delta += fn.arcs[ai].cost
			fn.push(ai, amount)
		}
		msg := fmt.Sprintf("cancel cycle %s by %s, cost %s", joinIDs(fn.vertices(cycle)), fmtNum(amount), fmtNum(delta*amount))
		if err := r.show(ctx, cycle, msg); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: cycle canceling did not settle", ErrNegativeCycle)
}

func (r *flowRun) annotate() {
	fn := r.fn
	flowColor := r.color("tree", defaultTree)
	full := r.color("saturated", defaultPath)
	for _, l := range r.Graph.Links() {
		ai := fn.linkArc[l]
		f, q := fn.actual(ai), fn.upper[ai]
		r.Canvas.LabelArrow(l.A, l.B, fmtNum(clean(f))+"/"+fmtNum(q))
		switch {
		case f > eps && f >= q-eps:
			r.Canvas.ColorArrow(l.A, l.B, full)
		case f > eps:
			r.Canvas.ColorArrow(l.A, l.B, flowColor)
		}
	}
	for _, id := range r.Graph.Vertices() {
		ai, ok := fn.nodeArc[id]
		if !ok {
			continue
		}
		q := "inf"
		if !math.IsInf(fn.upper[ai], 1) {
			q = fmtNum(fn.upper[ai])
		}
		r.Canvas.LabelNode(id, fmtNum(clean(fn.actual(ai)))+"/"+q)
	}
}

// clean rounds away float noise from repeated augmentation.
func clean(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

func runFordFulkerson(ctx context.Context, c script.Call) error {
	r, err := newFlowRun(FordFulkerson, c, flowOptions{nodeBounds: true})
	if err != nil {
		return err
	}
	if err := r.feasible(ctx); err != nil {
		return err
	}
	if c.Args.Maximize {
		if err := r.maximize(ctx); err != nil {
			return err
		}
	}
	r.annotate()
	if c.Args.Maximize {
		c.Canvas.ShowMessage(fmt.Sprintf("maximum flow %s", fmtNum(clean(r.fn.value()))))
	} else {
		c.Canvas.ShowMessage(fmt.Sprintf("flow %s reached", fmtNum(clean(r.fn.value()))))
	}
	return nil
}

// runMinCostFlowNC finds any feasible flow and then cancels negative cost
// cycles in the residual network until none is left.
func runMinCostFlowNC(ctx context.Context, c script.Call) error {
	r, err := newFlowRun(MinCostFlowNC, c, flowOptions{costs: true, nodeBounds: true})
	if err != nil {
		return err
	}
	if err := r.feasible(ctx); err != nil {
		return err
	}
	if c.Args.Maximize {
		if err := r.maximize(ctx); err != nil {
			return err
		}
	}
	r.fn.freeze(r.fn.ret)
	if err := r.cancelCycles(ctx); err != nil {
		return err
	}
	r.annotate()
	c.Canvas.ShowMessage(fmt.Sprintf("flow %s at minimum cost %s", fmtNum(clean(r.fn.value())), fmtNum(clean(r.fn.cost()))))
	return nil
}

// runMinCostFlowSP augments along successive cheapest paths until the target
// is met.
func runMinCostFlowSP(ctx context.Context, c script.Call) error {
	r, err := newFlowRun(MinCostFlowSP, c, flowOptions{costs: true})
	if err != nil {
		return err
	}
	fn := r.fn
	if fn.hasLowerBounds() {
		return fmt.Errorf("%w: successive shortest paths takes no q-min", ErrInfeasible)
	}
	fn.freeze(fn.ret)

	target := c.Args.Flow
	for c.Args.Maximize || fn.value() < target-eps {
		path, err := fn.cheapestPath(fn.s, fn.t)
		if err != nil {
			return err
		}
		if path == nil {
			break
		}
		amount := fn.bottleneck(path)
		if !c.Args.Maximize {
			amount = math.Min(amount, target-fn.value())
		}
		unit := 0.0
		for _, ai := range path {
			unit += fn.arcs[ai].cost
		}
		for _, ai := range path {
			fn.push(ai, amount)
		}
		msg := fmt.Sprintf("augment %s by %s at %s per unit", joinIDs(fn.vertices(path)), fmtNum(clean(amount)), fmtNum(unit))
		if err := r.show(ctx, path, msg); err != nil {
			return err
		}
	}
	if !c.Args.Maximize && fn.value() < target-eps {
		return fmt.Errorf("%w: only %s of %s fits", ErrInfeasible, fmtNum(clean(fn.value())), fmtNum(target))
	}
	r.annotate()
	c.Canvas.ShowMessage(fmt.Sprintf("flow %s at minimum cost %s", fmtNum(clean(fn.value())), fmtNum(clean(fn.cost()))))
	return nil
}
