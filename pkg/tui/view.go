package tui

import (
	"fmt"
	"strings"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/version"
	"github.com/charmbracelet/lipgloss"
)

const helpLine = "hjkl move • n node • x remove • space select • c connect • e label • m mode • E erase • " +
	"C clean • s spring • v curves • 1-9,0 run • enter continue • a abort • r reload • : console • q quit"

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(m.viewHUD())
	s.WriteString("\n")

	switch m.mode {
	case modeDialog:
		s.WriteString(m.dialog.view())
	default:
		s.WriteString(canvasStyle.Render(m.viewCanvas()))
	}
	s.WriteString("\n")

	s.WriteString(m.viewWait())
	s.WriteString("\n")
	if m.mode == modeLabel || m.mode == modeConsole {
		s.WriteString(m.input.View())
	} else if m.statusErr {
		s.WriteString(danger.Render(m.status))
	} else {
		s.WriteString(m.status)
	}
	s.WriteString("\n")
	s.WriteString(subtle.Render(helpLine))
	return s.String()
}

func (m Model) viewCanvas() string {
	w, h := m.canvasSize()
	c := newCanvas(w, h)
	selected := make(map[graph.NodeID]bool, len(m.selected))
	for _, id := range m.selected {
		selected[id] = true
	}
	model := m.bridge.Model()
	c.drawGraph(model.Nodes(), model.Connections(), selected)
	c.cursor(m.cx, m.cy)
	return c.String()
}

func (m Model) viewHUD() string {
	model := m.bridge.Model()

	segTitle := titleStyle.Render(strings.ToUpper(version.AppName) + " " + version.String())
	segMode := hudLabelStyle.Render("MODE:") + hudValueStyle.Render(model.Mode().String())
	segGraph := hudLabelStyle.Render("GRAPH:") + hudValueStyle.Render(model.Stats().String())

	var flags []string
	if m.bridge.Curves() {
		flags = append(flags, "curves")
	}
	if m.bridge.LayoutRunning() {
		flags = append(flags, "spring")
	}
	if m.opts.AutoStep {
		flags = append(flags, "auto")
	}
	segFlags := subtle.Render(strings.Join(flags, " "))

	content := lipgloss.JoinHorizontal(lipgloss.Center,
		segTitle, "  ", segMode, "  |  ", segGraph, "  ", segFlags)
	return hudStyle.Render(content)
}

func (m Model) viewWait() string {
	st := m.bridge.State()
	switch {
	case st.Paused:
		msg := st.Message
		if msg == "" {
			msg = "paused"
		}
		return warning.Render(fmt.Sprintf("[%s #%d] %s", st.Algorithm, st.Seq, msg)) +
			subtle.Render("  enter continue • a abort")
	case st.Active:
		return m.spinner.View() + " " + highlight.Render("running "+st.Algorithm)
	}
	if len(m.selected) > 0 {
		return selectedStyle.Render("selected " + nodeList(m.selected))
	}
	return subtle.Render(fmt.Sprintf("cursor %d,%d", m.cx, m.cy))
}
