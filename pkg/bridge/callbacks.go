package bridge

import (
	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
)

var _ script.Natives = (*Bridge)(nil)

func (b *Bridge) PaintNode(id graph.NodeID, x, y float64) {
	_ = b.dispatch(Command{Kind: CmdPaintNode, Node: id, X: x, Y: y})
}

func (b *Bridge) UnpaintNode(id graph.NodeID) {
	_ = b.dispatch(Command{Kind: CmdUnpaintNode, Node: id})
}

func (b *Bridge) PaintEdge(a, bb graph.NodeID) {
	_ = b.dispatch(Command{Kind: CmdPaintEdge, A: a, B: bb, Curved: b.curves.Load()})
}

func (b *Bridge) UnpaintEdge(a, bb graph.NodeID) {
	_ = b.dispatch(Command{Kind: CmdUnpaintEdge, A: a, B: bb})
}

func (b *Bridge) PaintArrow(a, bb graph.NodeID) {
	_ = b.dispatch(Command{Kind: CmdPaintArrow, A: a, B: bb, Curved: b.curves.Load()})
}

func (b *Bridge) UnpaintArrow(a, bb graph.NodeID) {
	_ = b.dispatch(Command{Kind: CmdUnpaintArrow, A: a, B: bb})
}

// IncrementID advances the model's counter past a freshly placed id.
func (b *Bridge) IncrementID(placed graph.NodeID) {
	_ = b.dispatch(Command{Kind: CmdIncrementID, Node: placed})
}

func (b *Bridge) node(kind CommandKind, id graph.NodeID) {
	_ = b.dispatch(Command{Kind: kind, Node: id})
}

func (b *Bridge) link(kind CommandKind, a, bb graph.NodeID) {
	_ = b.dispatch(Command{Kind: kind, A: a, B: bb})
}

func (b *Bridge) HighlightNode(id graph.NodeID)   { b.node(CmdHighlightNode, id) }
func (b *Bridge) UnhighlightNode(id graph.NodeID) { b.node(CmdUnhighlightNode, id) }
func (b *Bridge) HighlightEdge(a, bb graph.NodeID) {
	b.link(CmdHighlightEdge, a, bb)
}
func (b *Bridge) UnhighlightEdge(a, bb graph.NodeID) {
	b.link(CmdUnhighlightEdge, a, bb)
}
func (b *Bridge) HighlightArrow(a, bb graph.NodeID) {
	b.link(CmdHighlightArrow, a, bb)
}
func (b *Bridge) UnhighlightArrow(a, bb graph.NodeID) {
	b.link(CmdUnhighlightArrow, a, bb)
}

func (b *Bridge) LabelNode(id graph.NodeID, text string) {
	_ = b.dispatch(Command{Kind: CmdLabelNode, Node: id, Text: text})
}
func (b *Bridge) UnlabelNode(id graph.NodeID) { b.node(CmdUnlabelNode, id) }
func (b *Bridge) LabelEdge(a, bb graph.NodeID, text string) {
	_ = b.dispatch(Command{Kind: CmdLabelEdge, A: a, B: bb, Text: text})
}
func (b *Bridge) UnlabelEdge(a, bb graph.NodeID) { b.link(CmdUnlabelEdge, a, bb) }
func (b *Bridge) LabelArrow(a, bb graph.NodeID, text string) {
	_ = b.dispatch(Command{Kind: CmdLabelArrow, A: a, B: bb, Text: text})
}
func (b *Bridge) UnlabelArrow(a, bb graph.NodeID) { b.link(CmdUnlabelArrow, a, bb) }

func (b *Bridge) ColorNode(id graph.NodeID, c graph.RGBA) {
	_ = b.dispatch(Command{Kind: CmdColorNode, Node: id, Color: c})
}
func (b *Bridge) UncolorNode(id graph.NodeID) { b.node(CmdUncolorNode, id) }
func (b *Bridge) ColorEdge(a, bb graph.NodeID, c graph.RGBA) {
	_ = b.dispatch(Command{Kind: CmdColorEdge, A: a, B: bb, Color: c})
}
func (b *Bridge) UncolorEdge(a, bb graph.NodeID) { b.link(CmdUncolorEdge, a, bb) }
func (b *Bridge) ColorArrow(a, bb graph.NodeID, c graph.RGBA) {
	_ = b.dispatch(Command{Kind: CmdColorArrow, A: a, B: bb, Color: c})
}
func (b *Bridge) UncolorArrow(a, bb graph.NodeID) { b.link(CmdUncolorArrow, a, bb) }

func (b *Bridge) ColorNodeLabel(id graph.NodeID, c graph.RGBA) {
	_ = b.dispatch(Command{Kind: CmdColorNodeLabel, Node: id, Color: c})
}
func (b *Bridge) UncolorNodeLabel(id graph.NodeID) { b.node(CmdUncolorNodeLabel, id) }
func (b *Bridge) ColorEdgeLabel(a, bb graph.NodeID, c graph.RGBA) {
	_ = b.dispatch(Command{Kind: CmdColorEdgeLabel, A: a, B: bb, Color: c})
}
func (b *Bridge) UncolorEdgeLabel(a, bb graph.NodeID) { b.link(CmdUncolorEdgeLabel, a, bb) }
func (b *Bridge) ColorArrowLabel(a, bb graph.NodeID, c graph.RGBA) {
	_ = b.dispatch(Command{Kind: CmdColorArrowLabel, A: a, B: bb, Color: c})
}
func (b *Bridge) UncolorArrowLabel(a, bb graph.NodeID) { b.link(CmdUncolorArrowLabel, a, bb) }

// MoveNode shifts a node by a relative offset.
func (b *Bridge) MoveNode(id graph.NodeID, dx, dy float64) {
	_ = b.dispatch(Command{Kind: CmdMoveNode, Node: id, X: dx, Y: dy})
}

func (b *Bridge) PosNode(id graph.NodeID) (float64, float64, bool) {
	x, y, err := b.model.Pos(id)
	if err != nil {
		b.logger.Warn("Ignoring callback", "command", "pos-node", "node", int(id), "error", err)
		return 0, 0, false
	}
	return x, y, true
}

func (b *Bridge) ShowMessage(text string) {
	_ = b.dispatch(Command{Kind: CmdShowMessage, Text: text})
}
