package launcher

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/DrSkyle/graphstep/pkg/graph"
)

// MaximizeWord in a flow field asks for the largest possible flow.
const MaximizeWord = "max"

// ParseID reads one node id.
func ParseID(s string) (graph.NodeID, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: node id %q", ErrBadParams, s)
	}
	return graph.NodeID(v), nil
}

// ParseIDs reads an ordered list of node ids separated by commas or spaces.
func ParseIDs(s string) ([]graph.NodeID, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	out := make([]graph.NodeID, 0, len(parts))
	for _, p := range parts {
		id, err := ParseID(p)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// ParseFlow reads a target flow. Empty input or "max" means maximize.
func ParseFlow(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, MaximizeWord) {
		return 0, true, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("%w: flow %q", ErrBadParams, s)
	}
	return v, false, nil
}
