// Package tui is the terminal canvas: it turns key presses into bridge
// gestures and draws the canvas graph as the bridge mutates it.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DrSkyle/graphstep/pkg/bridge"
	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/launcher"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type inputMode int

const (
	modeCanvas inputMode = iota
	modeDialog
	modeLabel
	modeConsole
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	chromeHeight  = 10 // hud, borders, wait, status and help lines
)

// Options tune the canvas.
type Options struct {
	AutoStep bool          // continue waits on a timer
	Delay    time.Duration // pause between automatic steps
	Logger   *slog.Logger
}

// continueMsg answers one wait when auto stepping.
type continueMsg struct{ seq uint64 }

type Model struct {
	ctx      context.Context
	bridge   *bridge.Bridge
	launcher *launcher.Launcher
	logger   *slog.Logger
	opts     Options

	spinner spinner.Model
	input   textinput.Model
	dialog  *paramDialog
	mode    inputMode
	target  graph.Target // label being edited

	width, height int
	cx, cy        int
	selected      []graph.NodeID
	run           *bridge.Run

	status    string
	statusErr bool
	quitting  bool
}

func NewModel(ctx context.Context, b *bridge.Bridge, la *launcher.Launcher, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Delay <= 0 {
		opts.Delay = 500 * time.Millisecond
	}
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = special

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 48

	return Model{
		ctx:      ctx,
		bridge:   b,
		launcher: la,
		logger:   opts.Logger,
		opts:     opts,
		spinner:  s,
		input:    ti,
		cx:       2,
		cy:       1,
		status:   "n add node • space select • c connect • 1-9,0 run",
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) fail(err error) {
	m.logger.Debug("Gesture rejected", "error", err)
	m.status, m.statusErr = err.Error(), true
}

func (m Model) canvasSize() (int, int) {
	w, h := m.width, m.height
	if w == 0 {
		w = defaultWidth
	}
	if h == 0 {
		h = defaultHeight
	}
	return max(w-2, 20), max(h-chromeHeight, 5)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clampCursor()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case commandMsg:
		return m.handleCommand(bridge.Command(msg))

	case continueMsg:
		m.bridge.ContinueWait(msg.seq)
		return m, nil

	case redrawMsg:
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeDialog:
			return m.updateDialog(msg)
		case modeLabel, modeConsole:
			return m.updateInput(msg)
		}
		return m.updateCanvas(msg)
	}
	return m, nil
}

func (m Model) handleCommand(c bridge.Command) (tea.Model, tea.Cmd) {
	switch c.Kind {
	case bridge.CmdWait:
		if m.opts.AutoStep {
			seq := c.Seq
			return m, tea.Tick(m.opts.Delay, func(time.Time) tea.Msg {
				return continueMsg{seq: seq}
			})
		}
	case bridge.CmdShowMessage:
		m.setStatus(c.Text)
	case bridge.CmdRunStarted:
		m.setStatus("running " + c.Algorithm)
	case bridge.CmdRunFinished:
		if c.Err != nil {
			m.fail(fmt.Errorf("%s failed: %w", c.Algorithm, c.Err))
		} else {
			m.setStatus(c.Algorithm + " finished")
		}
	case bridge.CmdSetMode:
		m.selected = nil
	}
	return m, nil
}

func (m *Model) clampCursor() {
	w, h := m.canvasSize()
	m.cx = min(max(m.cx, 0), w-1)
	m.cy = min(max(m.cy, 0), h-1)
}

// nodeAt finds the node whose glyph covers the cell.
func (m Model) nodeAt(x, y int) (graph.NodeID, bool) {
	for _, n := range m.bridge.Model().Nodes() {
		nx, ny := cellOf(n.X, n.Y)
		if ny == y && x >= nx && x < nx+len(nodeGlyph(n.ID)) {
			return n.ID, true
		}
	}
	return 0, false
}

func (m *Model) toggleSelect(id graph.NodeID) {
	for _, s := range m.selected {
		if s == id {
			m.unselect(id)
			return
		}
	}
	sel := append([]graph.NodeID{}, m.selected...)
	sel = append(sel, id)
	if len(sel) > 2 {
		sel = sel[1:]
	}
	m.selected = sel
}

func (m *Model) unselect(id graph.NodeID) {
	var out []graph.NodeID
	for _, s := range m.selected {
		if s != id {
			out = append(out, s)
		}
	}
	m.selected = out
}

func (m Model) updateCanvas(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	b := m.bridge
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		m.quitting = true
		b.Abort()
		return m, tea.Quit

	case "up", "k":
		m.cy--
		m.clampCursor()
	case "down", "j":
		m.cy++
		m.clampCursor()
	case "left", "h":
		m.cx--
		m.clampCursor()
	case "right", "l":
		m.cx++
		m.clampCursor()

	case "n":
		if err := b.Handle(bridge.Event{Kind: bridge.NodeAdded, X: float64(m.cx), Y: float64(m.cy)}); err != nil {
			m.fail(err)
		}
	case "x":
		id, ok := m.nodeAt(m.cx, m.cy)
		if !ok {
			m.fail(errors.New("no node under the cursor"))
			break
		}
		if err := b.Handle(bridge.Event{Kind: bridge.NodeRemoved, Node: id}); err != nil {
			m.fail(err)
			break
		}
		m.unselect(id)
	case " ":
		if id, ok := m.nodeAt(m.cx, m.cy); ok {
			m.toggleSelect(id)
		}
	case "esc":
		m.selected = nil
	case "c":
		m.toggleConnection()
	case "e":
		return m.openLabel()

	case "m":
		next := graph.Directed
		if b.Model().Mode() == graph.Directed {
			next = graph.Undirected
		}
		if err := b.SwitchMode(next); err != nil {
			m.fail(err)
			break
		}
		m.selected = nil
		m.setStatus("mode " + next.String())
	case "E":
		if err := b.EraseGraph(); err != nil {
			m.fail(err)
			break
		}
		m.selected = nil
		m.setStatus("graph erased")
	case "C":
		b.CleanGraph()
	case "s":
		if b.LayoutRunning() {
			b.StopLayout()
			m.setStatus("layout off")
		} else if b.StartLayout(m.ctx) {
			m.setStatus("layout on")
		}
	case "v":
		b.SetCurves(!b.Curves())

	case "1", "2", "3", "4", "5", "6", "7", "8", "9", "0":
		return m.openDialog(key)
	case "enter":
		if !b.Continue() {
			m.setStatus("nothing to continue")
		}
	case "a":
		if b.Abort() {
			m.setStatus("aborting")
		}
	case "r":
		if err := b.Reload(""); err != nil {
			m.fail(err)
		}
	case ":":
		m.mode = modeConsole
		m.input.Prompt = ": "
		m.input.Placeholder = "add_edge(0, 1)"
		m.input.SetValue("")
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *Model) toggleConnection() {
	if len(m.selected) != 2 {
		m.fail(errors.New("select two nodes to connect"))
		return
	}
	a, b := m.selected[0], m.selected[1]
	model := m.bridge.Model()
	directed := model.Mode() == graph.Directed
	_, exists := model.Connection(a, b)

	ev := bridge.Event{A: a, B: b}
	switch {
	case directed && exists:
		ev.Kind = bridge.ArrowRemoved
	case directed:
		ev.Kind = bridge.ArrowAdded
	case exists:
		ev.Kind = bridge.EdgeRemoved
	default:
		ev.Kind = bridge.EdgeAdded
	}
	if err := m.bridge.Handle(ev); err != nil {
		m.fail(err)
	}
}

func (m Model) labelTarget() (graph.Target, string, bool) {
	model := m.bridge.Model()
	if len(m.selected) == 2 {
		if c, ok := model.Connection(m.selected[0], m.selected[1]); ok {
			return graph.ConnTarget(c.Pair), c.Label, true
		}
	}
	id, ok := m.nodeAt(m.cx, m.cy)
	if !ok && len(m.selected) == 1 {
		id, ok = m.selected[0], true
	}
	if !ok {
		return graph.Target{}, "", false
	}
	n, ok := model.Node(id)
	if !ok {
		return graph.Target{}, "", false
	}
	return graph.NodeTarget(id), n.Label, true
}

func (m Model) openLabel() (tea.Model, tea.Cmd) {
	t, current, ok := m.labelTarget()
	if !ok {
		m.fail(errors.New("nothing to label"))
		return m, nil
	}
	m.mode = modeLabel
	m.target = t
	m.input.Prompt = fmt.Sprintf("label %s: ", t)
	m.input.Placeholder = ""
	m.input.SetValue(current)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeCanvas
		m.input.Blur()
		return m, nil
	case "enter":
		value := m.input.Value()
		mode := m.mode
		m.mode = modeCanvas
		m.input.Blur()
		if mode == modeLabel {
			if err := m.bridge.Handle(bridge.Event{Kind: bridge.LabelEdited, Target: m.target, Text: value}); err != nil {
				m.fail(err)
			}
			return m, nil
		}
		out, err := m.bridge.Eval(value)
		if err != nil {
			m.fail(err)
			return m, nil
		}
		m.setStatus(out)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) openDialog(key string) (tea.Model, tea.Cmd) {
	req, err := m.launcher.Prepare(key)
	if err != nil {
		m.fail(err)
		return m, nil
	}
	d := newParamDialog(req)
	if d.empty() {
		m.launch(req.Spec, launcher.Params{})
		return m, nil
	}
	m.dialog = d
	m.mode = modeDialog
	return m, textinput.Blink
}

func (m *Model) launch(s launcher.Spec, p launcher.Params) bool {
	run, err := m.launcher.Launch(m.ctx, s.Name, p)
	if err != nil {
		m.fail(err)
		return false
	}
	m.run = run
	m.logger.Info("Run launched", "algorithm", s.Name, "run.id", run.ID)
	return true
}

func (m Model) updateDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.dialog
	switch msg.String() {
	case "esc":
		m.dialog, m.mode = nil, modeCanvas
		m.setStatus(launcher.ErrCancelled.Error())
		return m, nil
	case "tab", "down":
		return m, d.move(1)
	case "shift+tab", "up":
		return m, d.move(-1)
	case "enter":
		if !d.last() {
			return m, d.move(1)
		}
		p, err := d.params()
		if err != nil {
			d.err = err.Error()
			return m, nil
		}
		if !m.launch(d.req.Spec, p) {
			d.err = m.status
			return m, nil
		}
		m.dialog, m.mode = nil, modeCanvas
		return m, nil
	}
	return m, d.update(msg)
}
