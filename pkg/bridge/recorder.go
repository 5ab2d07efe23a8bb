package bridge

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

// Recorder is an Observer that keeps every command it sees.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, c)
}

// Commands returns a copy of what was recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

// TraceEntry is the serialized form of a command.
type TraceEntry struct {
	Kind      string  `json:"kind" yaml:"kind"`
	Node      *int    `json:"node,omitempty" yaml:"node,omitempty"`
	From      *int    `json:"from,omitempty" yaml:"from,omitempty"`
	To        *int    `json:"to,omitempty" yaml:"to,omitempty"`
	X         float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y         float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Text      string  `json:"text,omitempty" yaml:"text,omitempty"`
	Color     string  `json:"color,omitempty" yaml:"color,omitempty"`
	Mode      string  `json:"mode,omitempty" yaml:"mode,omitempty"`
	Seq       uint64  `json:"seq,omitempty" yaml:"seq,omitempty"`
	Algorithm string  `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
	RunID     string  `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Error     string  `json:"error,omitempty" yaml:"error,omitempty"`
	Line      string  `json:"line" yaml:"line"`
}

func intPtr(v int) *int { return &v }

// Entry converts a command to its serialized form.
func Entry(c Command) TraceEntry {
	e := TraceEntry{
		Kind:      c.Kind.String(),
		Text:      c.Text,
		Seq:       c.Seq,
		Algorithm: c.Algorithm,
		RunID:     c.RunID,
		Line:      c.String(),
	}
	switch c.Kind {
	case CmdPaintNode, CmdMoveNode, CmdUnpaintNode, CmdHighlightNode, CmdUnhighlightNode,
		CmdLabelNode, CmdUnlabelNode, CmdColorNode, CmdUncolorNode, CmdColorNodeLabel,
		CmdUncolorNodeLabel, CmdIncrementID:
		e.Node = intPtr(int(c.Node))
		e.X, e.Y = c.X, c.Y
	case CmdSetMode:
		e.Mode = c.Mode.String()
	case CmdSetLabel:
		if c.Target.IsNode() {
			e.Node = intPtr(int(c.Target.Node))
		} else {
			e.From, e.To = intPtr(int(c.Target.Pair.A)), intPtr(int(c.Target.Pair.B))
		}
	case CmdWait, CmdResume, CmdShowMessage, CmdResetID, CmdCleanVisuals, CmdSetCurves,
		CmdRunStarted, CmdRunFinished:
	default:
		e.From, e.To = intPtr(int(c.A)), intPtr(int(c.B))
	}
	switch c.Kind {
	case CmdColorNode, CmdColorNodeLabel, CmdColorEdge, CmdColorEdgeLabel, CmdColorArrow, CmdColorArrowLabel:
		e.Color = c.Color.Hex()
	}
	if c.Err != nil {
		e.Error = c.Err.Error()
	}
	return e
}

// WriteText writes one line per command.
func (r *Recorder) WriteText(w io.Writer) error {
	for _, c := range r.Commands() {
		if _, err := fmt.Fprintln(w, c.String()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) entries() []TraceEntry {
	cmds := r.Commands()
	out := make([]TraceEntry, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, Entry(c))
	}
	return out
}

func (r *Recorder) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.entries())
}

func (r *Recorder) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.entries()); err != nil {
		return err
	}
	return enc.Close()
}
