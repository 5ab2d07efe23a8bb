package bridge

import (
	"fmt"
	"strconv"

	"github.com/DrSkyle/graphstep/pkg/graph"
)

// EventKind is a gesture the presentation surface reports.
type EventKind int

const (
	NodeAdded EventKind = iota
	NodeRemoved
	EdgeAdded
	EdgeRemoved
	ArrowAdded
	ArrowRemoved
	LabelEdited
)

var eventNames = map[EventKind]string{
	NodeAdded:    "node-added",
	NodeRemoved:  "node-removed",
	EdgeAdded:    "edge-added",
	EdgeRemoved:  "edge-removed",
	ArrowAdded:   "arrow-added",
	ArrowRemoved: "arrow-removed",
	LabelEdited:  "label-edited",
}

func (k EventKind) String() string {
	if s, ok := eventNames[k]; ok {
		return s
	}
	return "event(" + strconv.Itoa(int(k)) + ")"
}

// Event is one gesture. Only the fields its kind needs are read.
type Event struct {
	Kind   EventKind
	X, Y   float64      // NodeAdded
	Node   graph.NodeID // NodeRemoved
	A, B   graph.NodeID // connection events
	Target graph.Target // LabelEdited
	Text   string       // LabelEdited
}

// CommandKind is something the bridge tells the presentation surface.
type CommandKind int

const (
	CmdPaintNode CommandKind = iota
	CmdUnpaintNode
	CmdPaintEdge
	CmdUnpaintEdge
	CmdPaintArrow
	CmdUnpaintArrow

	CmdHighlightNode
	CmdUnhighlightNode
	CmdHighlightEdge
	CmdUnhighlightEdge
	CmdHighlightArrow
	CmdUnhighlightArrow

	CmdLabelNode
	CmdUnlabelNode
	CmdLabelEdge
	CmdUnlabelEdge
	CmdLabelArrow
	CmdUnlabelArrow

	CmdColorNode
	CmdUncolorNode
	CmdColorEdge
	CmdUncolorEdge
	CmdColorArrow
	CmdUncolorArrow

	CmdColorNodeLabel
	CmdUncolorNodeLabel
	CmdColorEdgeLabel
	CmdUncolorEdgeLabel
	CmdColorArrowLabel
	CmdUncolorArrowLabel

	CmdMoveNode
	CmdShowMessage
	CmdWait
	CmdResume
	CmdIncrementID
	CmdResetID
	CmdSetMode
	CmdSetLabel
	CmdCleanVisuals
	CmdSetCurves
	CmdRunStarted
	CmdRunFinished
)

var commandNames = map[CommandKind]string{
	CmdPaintNode:         "paint-node",
	CmdUnpaintNode:       "unpaint-node",
	CmdPaintEdge:         "paint-edge",
	CmdUnpaintEdge:       "unpaint-edge",
	CmdPaintArrow:        "paint-arrow",
	CmdUnpaintArrow:      "unpaint-arrow",
	CmdHighlightNode:     "highlight-node",
	CmdUnhighlightNode:   "unhighlight-node",
	CmdHighlightEdge:     "highlight-edge",
	CmdUnhighlightEdge:   "unhighlight-edge",
	CmdHighlightArrow:    "highlight-arrow",
	CmdUnhighlightArrow:  "unhighlight-arrow",
	CmdLabelNode:         "label-node",
	CmdUnlabelNode:       "unlabel-node",
	CmdLabelEdge:         "label-edge",
	CmdUnlabelEdge:       "unlabel-edge",
	CmdLabelArrow:        "label-arrow",
	CmdUnlabelArrow:      "unlabel-arrow",
	CmdColorNode:         "color-node",
	CmdUncolorNode:       "uncolor-node",
	CmdColorEdge:         "color-edge",
	CmdUncolorEdge:       "uncolor-edge",
	CmdColorArrow:        "color-arrow",
	CmdUncolorArrow:      "uncolor-arrow",
	CmdColorNodeLabel:    "color-node-label",
	CmdUncolorNodeLabel:  "uncolor-node-label",
	CmdColorEdgeLabel:    "color-edge-label",
	CmdUncolorEdgeLabel:  "uncolor-edge-label",
	CmdColorArrowLabel:   "color-arrow-label",
	CmdUncolorArrowLabel: "uncolor-arrow-label",
	CmdMoveNode:          "move-node",
	CmdShowMessage:       "show-message",
	CmdWait:              "wait",
	CmdResume:            "resume",
	CmdIncrementID:       "increment-id",
	CmdResetID:           "reset-id",
	CmdSetMode:           "set-mode",
	CmdSetLabel:          "set-label",
	CmdCleanVisuals:      "clean-visuals",
	CmdSetCurves:         "set-curves",
	CmdRunStarted:        "run-started",
	CmdRunFinished:       "run-finished",
}

func (k CommandKind) String() string {
	if s, ok := commandNames[k]; ok {
		return s
	}
	return "command(" + strconv.Itoa(int(k)) + ")"
}

// Command is one bridge to surface instruction.
type Command struct {
	Kind      CommandKind
	Node      graph.NodeID
	A, B      graph.NodeID
	X, Y      float64 // paint position or move offset
	Curved    bool
	Text      string
	Color     graph.RGBA
	Mode      graph.Mode
	Target    graph.Target
	Seq       uint64
	RunID     string
	Algorithm string
	Err       error
}

// String renders the command the way traces show it. Run ids are left out
// so traces of equal runs compare equal.
func (c Command) String() string {
	name := c.Kind.String()
	switch c.Kind {
	case CmdPaintNode:
		return fmt.Sprintf("%s %d at (%g,%g)", name, c.Node, c.X, c.Y)
	case CmdMoveNode:
		return fmt.Sprintf("%s %d by (%g,%g)", name, c.Node, c.X, c.Y)
	case CmdUnpaintNode, CmdHighlightNode, CmdUnhighlightNode, CmdUnlabelNode,
		CmdUncolorNode, CmdUncolorNodeLabel:
		return fmt.Sprintf("%s %d", name, c.Node)
	case CmdLabelNode:
		return fmt.Sprintf("%s %d %q", name, c.Node, c.Text)
	case CmdColorNode, CmdColorNodeLabel:
		return fmt.Sprintf("%s %d %s", name, c.Node, c.Color.Hex())
	case CmdPaintEdge, CmdPaintArrow:
		s := fmt.Sprintf("%s %s", name, c.link())
		if c.Curved {
			s += " curved"
		}
		return s
	case CmdUnpaintEdge, CmdUnpaintArrow, CmdHighlightEdge, CmdUnhighlightEdge,
		CmdHighlightArrow, CmdUnhighlightArrow, CmdUnlabelEdge, CmdUnlabelArrow,
		CmdUncolorEdge, CmdUncolorArrow, CmdUncolorEdgeLabel, CmdUncolorArrowLabel:
		return fmt.Sprintf("%s %s", name, c.link())
	case CmdLabelEdge, CmdLabelArrow:
		return fmt.Sprintf("%s %s %q", name, c.link(), c.Text)
	case CmdColorEdge, CmdColorArrow, CmdColorEdgeLabel, CmdColorArrowLabel:
		return fmt.Sprintf("%s %s %s", name, c.link(), c.Color.Hex())
	case CmdShowMessage:
		return fmt.Sprintf("%s %q", name, c.Text)
	case CmdWait:
		return fmt.Sprintf("%s #%d %q", name, c.Seq, c.Text)
	case CmdResume:
		return fmt.Sprintf("%s #%d", name, c.Seq)
	case CmdIncrementID:
		return fmt.Sprintf("%s past %d", name, c.Node)
	case CmdSetMode:
		return fmt.Sprintf("%s %s", name, c.Mode)
	case CmdSetLabel:
		target := c.Target.String()
		if !c.Target.IsNode() {
			target = fmt.Sprintf("%d-%d", c.Target.Pair.A, c.Target.Pair.B)
		}
		return fmt.Sprintf("%s %s %q", name, target, c.Text)
	case CmdSetCurves:
		if c.Curved {
			return name + " on"
		}
		return name + " off"
	case CmdRunStarted:
		return fmt.Sprintf("%s %s", name, c.Algorithm)
	case CmdRunFinished:
		if c.Err != nil {
			return fmt.Sprintf("%s %s failed: %v", name, c.Algorithm, c.Err)
		}
		return fmt.Sprintf("%s %s ok", name, c.Algorithm)
	}
	return name
}

func (c Command) link() string {
	if c.Kind == CmdPaintArrow || c.Kind == CmdUnpaintArrow || isArrowKind(c.Kind) {
		return fmt.Sprintf("%d->%d", c.A, c.B)
	}
	return fmt.Sprintf("%d-%d", c.A, c.B)
}

func isArrowKind(k CommandKind) bool {
	switch k {
	case CmdHighlightArrow, CmdUnhighlightArrow, CmdLabelArrow, CmdUnlabelArrow,
		CmdColorArrow, CmdUncolorArrow, CmdColorArrowLabel, CmdUncolorArrowLabel:
		return true
	}
	return false
}

// Observer receives every command the bridge lets through. Notify runs on
// the goroutine that issued the command and must not block.
type Observer interface {
	Notify(Command)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Command)

func (f ObserverFunc) Notify(c Command) { f(c) }
