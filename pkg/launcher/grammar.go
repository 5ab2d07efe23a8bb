package launcher

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/DrSkyle/graphstep/pkg/script"
)

var ErrBadLabel = errors.New("launcher: bad label")

// LabelError names the label that failed and where.
type LabelError struct {
	Target graph.Target
	Label  string
	Field  int // zero-based; -1 when the field count is wrong
	Reason string
}

func (e *LabelError) Error() string {
	if e.Field < 0 {
		return fmt.Sprintf("label %q on %s: %s", e.Label, e.Target, e.Reason)
	}
	return fmt.Sprintf("label %q on %s, field %d: %s", e.Label, e.Target, e.Field+1, e.Reason)
}

func (e *LabelError) Unwrap() error { return ErrBadLabel }

// Grammar turns one free-text label into attributes.
type Grammar int

const (
	GrammarNone Grammar = iota
	GrammarWeight
	GrammarDistance
	GrammarCapacity     // "", "q" or "r,q"
	GrammarNodeCapacity // like GrammarCapacity, but empty means no bound
	GrammarCostNC       // "q,$c" or "r,q,...,$c"
	GrammarCostSP       // "q,$c"
)

var grammarNames = map[Grammar]string{
	GrammarNone:         "none",
	GrammarWeight:       "weight",
	GrammarDistance:     "distance",
	GrammarCapacity:     "capacity",
	GrammarNodeCapacity: "node capacity",
	GrammarCostNC:       "capacity and cost",
	GrammarCostSP:       "capacity and cost",
}

func (g Grammar) String() string { return grammarNames[g] }

// Hint is the format shown next to a label being edited.
func (g Grammar) Hint() string {
	switch g {
	case GrammarWeight, GrammarDistance:
		return "n"
	case GrammarCapacity, GrammarNodeCapacity:
		return "q | r,q"
	case GrammarCostNC:
		return "q,$c | r,q,...,$c"
	case GrammarCostSP:
		return "q,$c"
	}
	return ""
}

// Keywords lists what the grammar may write.
func (g Grammar) Keywords() []script.Keyword {
	switch g {
	case GrammarWeight:
		return []script.Keyword{script.Weight}
	case GrammarDistance:
		return []script.Keyword{script.Distance}
	case GrammarCapacity, GrammarNodeCapacity:
		return []script.Keyword{script.QMin, script.QMax}
	case GrammarCostNC:
		return []script.Keyword{script.QMin, script.QMax, script.Cost}
	case GrammarCostSP:
		return []script.Keyword{script.QMax, script.Cost}
	}
	return nil
}

// Value is one parsed attribute.
type Value struct {
	Keyword script.Keyword
	Value   float64
}

// fields splits on commas, trims, and drops empty segments.
func fields(label string) []string {
	var out []string
	for _, f := range strings.Split(label, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Parse applies the grammar to label. t only names the target in errors.
func (g Grammar) Parse(t graph.Target, label string) ([]Value, error) {
	fs := fields(label)
	fail := func(field int, reason string) error {
		return &LabelError{Target: t, Label: label, Field: field, Reason: reason}
	}
	num := func(i int) (float64, error) {
		v, err := strconv.ParseFloat(fs[i], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fail(i, fmt.Sprintf("%q is not a number", fs[i]))
		}
		return v, nil
	}
	cost := func(i int) (float64, error) {
		r, size := utf8.DecodeRuneInString(fs[i])
		if !isMarker(r) {
			return 0, fail(i, fmt.Sprintf("cost %q needs a unit marker such as $", fs[i]))
		}
		rest := strings.TrimSpace(fs[i][size:])
		v, err := strconv.ParseFloat(rest, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fail(i, fmt.Sprintf("cost %q is not a number", fs[i]))
		}
		return v, nil
	}
	numbers := func(keys ...script.Keyword) ([]Value, error) {
		out := make([]Value, 0, len(keys))
		for i, k := range keys {
			var (
				v   float64
				err error
			)
			if k == script.Cost {
				v, err = cost(i)
			} else {
				v, err = num(i)
			}
			if err != nil {
				return nil, err
			}
			out = append(out, Value{Keyword: k, Value: v})
		}
		return out, nil
	}

	switch g {
	case GrammarNone:
		return nil, nil
	case GrammarWeight, GrammarDistance:
		if len(fs) != 1 {
			return nil, fail(-1, fmt.Sprintf("want 1 number, got %d fields", len(fs)))
		}
		return numbers(g.Keywords()[0])
	case GrammarCapacity, GrammarNodeCapacity:
		switch len(fs) {
		case 0:
			if g == GrammarNodeCapacity {
				return nil, nil
			}
			return []Value{{Keyword: script.QMax, Value: 0}}, nil
		case 1:
			return numbers(script.QMax)
		case 2:
			return numbers(script.QMin, script.QMax)
		}
		return nil, fail(-1, fmt.Sprintf("want q or r,q, got %d fields", len(fs)))
	case GrammarCostNC:
		switch {
		case len(fs) == 2:
			return numbers(script.QMax, script.Cost)
		case len(fs) >= 3:
			// r,q,...,$c: fields between q and the cost are checked, not stored.
			out, err := numbers(script.QMin, script.QMax)
			if err != nil {
				return nil, err
			}
			last := len(fs) - 1
			for i := 2; i < last; i++ {
				if _, err := num(i); err != nil {
					return nil, err
				}
			}
			c, err := cost(last)
			if err != nil {
				return nil, err
			}
			return append(out, Value{Keyword: script.Cost, Value: c}), nil
		}
		return nil, fail(-1, fmt.Sprintf("want q,$c or r,q,...,$c, got %d fields", len(fs)))
	case GrammarCostSP:
		if len(fs) != 2 {
			return nil, fail(-1, fmt.Sprintf("want q,$c, got %d fields", len(fs)))
		}
		return numbers(script.QMax, script.Cost)
	}
	return nil, fmt.Errorf("launcher: unknown grammar %d", int(g))
}

// isMarker accepts any leading rune that cannot start a number.
func isMarker(r rune) bool {
	if r == utf8.RuneError || unicode.IsSpace(r) || unicode.IsDigit(r) {
		return false
	}
	return r != '+' && r != '-' && r != '.'
}
