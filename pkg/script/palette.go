package script

import (
	"sort"

	"github.com/DrSkyle/graphstep/pkg/graph"
)

// Palette maps a name (or an algorithm role) to a color.
type Palette map[string]graph.RGBA

// Get returns the named color or def.
func (p Palette) Get(name string, def graph.RGBA) graph.RGBA {
	if c, ok := p[name]; ok {
		return c
	}
	return def
}

func (p Palette) clone() Palette {
	out := make(Palette, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func sortStrings(s []string) { sort.Strings(s) }
