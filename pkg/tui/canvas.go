package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/charmbracelet/lipgloss"
)

type look struct {
	fg      string
	bold    bool
	reverse bool
}

func (l look) style() lipgloss.Style {
	s := lipgloss.NewStyle().Bold(l.bold).Reverse(l.reverse)
	if l.fg != "" {
		s = s.Foreground(lipgloss.Color(l.fg))
	}
	return s
}

type cell struct {
	r    rune
	look look
}

// canvas is a character grid in canvas cell coordinates.
type canvas struct {
	w, h  int
	cells []cell
}

func newCanvas(w, h int) *canvas {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	c := &canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i].r = ' '
	}
	return c
}

func (c *canvas) at(x, y int) *cell {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return nil
	}
	return &c.cells[y*c.w+x]
}

func (c *canvas) set(x, y int, r rune, l look) {
	if p := c.at(x, y); p != nil {
		p.r, p.look = r, l
	}
}

func (c *canvas) text(x, y int, s string, l look) {
	for i, r := range []rune(s) {
		c.set(x+i, y, r, l)
	}
}

func cellOf(x, y float64) (int, int) {
	return int(math.Round(x)), int(math.Round(y))
}

func colorLook(col *graph.RGBA, highlighted bool) look {
	l := look{bold: highlighted}
	switch {
	case col != nil:
		l.fg = col.Hex()
	case highlighted:
		l.fg = string(colorNeonGreen)
	}
	return l
}

// line draws the free cells between two points and reports the last one
// drawn.
func (c *canvas) line(x0, y0, x1, y1 int, r rune, l look) (lastX, lastY int, drawn bool) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	x, y := x0, y0
	for x != x1 || y != y1 {
		if c.empty(x, y) {
			c.set(x, y, r, l)
			lastX, lastY, drawn = x, y, true
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
	return lastX, lastY, drawn
}

func (c *canvas) empty(x, y int) bool {
	p := c.at(x, y)
	return p != nil && p.r == ' '
}

func head(fromX, fromY, toX, toY int) rune {
	dx, dy := toX-fromX, toY-fromY
	if abs(dx) >= abs(dy) {
		if dx > 0 {
			return '>'
		}
		return '<'
	}
	if dy > 0 {
		return 'v'
	}
	return '^'
}

func nodeGlyph(id graph.NodeID) string { return fmt.Sprintf("(%d)", id) }

// drawGraph paints node glyphs first so lines route around them, then
// connections, then text.
func (c *canvas) drawGraph(nodes []graph.Node, conns []graph.Connection, selected map[graph.NodeID]bool) {
	pos := make(map[graph.NodeID][2]int, len(nodes))
	for _, n := range nodes {
		x, y := cellOf(n.X, n.Y)
		pos[n.ID] = [2]int{x + len(nodeGlyph(n.ID))/2, y}
		l := colorLook(n.Color, n.Highlighted)
		if selected[n.ID] {
			l = look{fg: string(colorNeonPurple), bold: true, reverse: n.Highlighted}
		}
		c.text(x, y, nodeGlyph(n.ID), l)
	}

	for _, conn := range conns {
		a, okA := pos[conn.A]
		b, okB := pos[conn.B]
		if !okA || !okB {
			continue
		}
		l := colorLook(conn.Color, conn.Highlighted)
		r := '·'
		if conn.Curved {
			r = '~'
		}
		if conn.Highlighted {
			r = '•'
		}
		lx, ly, drawn := c.line(a[0], a[1], b[0], b[1], r, l)
		if conn.Directed && drawn {
			c.set(lx, ly, head(a[0], a[1], b[0], b[1]), l)
		}
		if t := conn.Text(); t != "" {
			mx, my := (a[0]+b[0])/2, (a[1]+b[1])/2
			c.text(mx, my, t, colorLook(conn.LabelColor, false))
		}
	}

	for _, n := range nodes {
		if t := n.Text(); t != "" {
			x, y := cellOf(n.X, n.Y)
			c.text(x, y+1, t, colorLook(n.LabelColor, false))
		}
	}
}

func (c *canvas) cursor(x, y int) {
	if p := c.at(x, y); p != nil {
		p.look.reverse = !p.look.reverse
	}
}

// String renders rows, styling runs of equal look together.
func (c *canvas) String() string {
	var out strings.Builder
	for y := 0; y < c.h; y++ {
		row := c.cells[y*c.w : (y+1)*c.w]
		start := 0
		for i := 1; i <= len(row); i++ {
			if i < len(row) && row[i].look == row[start].look {
				continue
			}
			var run strings.Builder
			for _, cl := range row[start:i] {
				run.WriteRune(cl.r)
			}
			if row[start].look == (look{}) {
				out.WriteString(run.String())
			} else {
				out.WriteString(row[start].look.style().Render(run.String()))
			}
			start = i
		}
		if y < c.h-1 {
			out.WriteByte('\n')
		}
	}
	return out.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
