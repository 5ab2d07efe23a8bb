package tui

import (
	"fmt"
	"strings"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/launcher"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	fieldRoot    = "root"
	fieldEnd     = "end"
	fieldSources = "sources"
	fieldSinks   = "sinks"
	fieldFlow    = "flow"
)

type field struct {
	name  string
	input textinput.Model
}

// paramDialog asks for the parameters one algorithm needs.
type paramDialog struct {
	req    launcher.Request
	fields []field
	focus  int
	err    string
}

func newField(name, placeholder string) field {
	ti := textinput.New()
	ti.Prompt = fmt.Sprintf("%-8s> ", name)
	ti.Placeholder = placeholder
	ti.CharLimit = 64
	ti.Width = 24
	return field{name: name, input: ti}
}

func newParamDialog(req launcher.Request) *paramDialog {
	d := &paramDialog{req: req}
	n := req.Spec.Needs
	if n.Has(launcher.NeedRoot) {
		d.fields = append(d.fields, newField(fieldRoot, "node id"))
	}
	if n.Has(launcher.NeedEnd) {
		d.fields = append(d.fields, newField(fieldEnd, "node id"))
	}
	if n.Has(launcher.NeedTerminals) {
		d.fields = append(d.fields, newField(fieldSources, "ids, e.g. 0,1"))
		d.fields = append(d.fields, newField(fieldSinks, "ids"))
	}
	if n.Has(launcher.NeedFlow) {
		d.fields = append(d.fields, newField(fieldFlow, launcher.MaximizeWord))
	}
	if len(d.fields) > 0 {
		d.fields[0].input.Focus()
	}
	return d
}

func (d *paramDialog) empty() bool { return len(d.fields) == 0 }

func (d *paramDialog) last() bool { return d.focus == len(d.fields)-1 }

func (d *paramDialog) move(delta int) tea.Cmd {
	if d.empty() {
		return nil
	}
	d.fields[d.focus].input.Blur()
	d.focus = (d.focus + delta + len(d.fields)) % len(d.fields)
	return d.fields[d.focus].input.Focus()
}

func (d *paramDialog) update(msg tea.Msg) tea.Cmd {
	if d.empty() {
		return nil
	}
	var cmd tea.Cmd
	d.fields[d.focus].input, cmd = d.fields[d.focus].input.Update(msg)
	return cmd
}

// params reads every field. The first bad field wins.
func (d *paramDialog) params() (launcher.Params, error) {
	var (
		p   launcher.Params
		err error
	)
	for _, f := range d.fields {
		v := f.input.Value()
		switch f.name {
		case fieldRoot:
			p.Root, err = launcher.ParseID(v)
		case fieldEnd:
			p.End, err = launcher.ParseID(v)
		case fieldSources:
			p.Sources, err = launcher.ParseIDs(v)
		case fieldSinks:
			p.Sinks, err = launcher.ParseIDs(v)
		case fieldFlow:
			p.Flow, p.Maximize, err = launcher.ParseFlow(v)
		}
		if err != nil {
			return launcher.Params{}, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return p, nil
}

func (d *paramDialog) view() string {
	var s strings.Builder
	s.WriteString(dialogHeaderStyle.Render(d.req.Spec.Title))
	s.WriteString("\n")
	s.WriteString(subtle.Render("nodes: " + nodeList(d.req.Nodes)))
	s.WriteString("\n")
	if hint := d.hint(); hint != "" {
		s.WriteString(subtle.Render(hint))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	for _, f := range d.fields {
		s.WriteString(f.input.View())
		s.WriteString("\n")
	}
	if d.err != "" {
		s.WriteString("\n")
		s.WriteString(danger.Render(d.err))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(subtle.Render("tab next • enter confirm • esc cancel"))
	return dialogStyle.Render(s.String())
}

func (d *paramDialog) hint() string {
	var parts []string
	if g := d.req.Spec.Links; g != launcher.GrammarNone {
		parts = append(parts, "links: "+g.Hint())
	}
	if g := d.req.Spec.Nodes; g != launcher.GrammarNone {
		parts = append(parts, "nodes: "+g.Hint())
	}
	return strings.Join(parts, " • ")
}

func nodeList(ids []graph.NodeID) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprint(int(id))
	}
	return strings.Join(out, ",")
}
