package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// RGBA is an 8-bit color with alpha.
type RGBA struct {
	R, G, B, A uint8
}

// Hex renders the color as #rrggbb, dropping alpha. Terminals have no alpha.
func (c RGBA) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGBA) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%d)", c.R, c.G, c.B, c.A)
}

// NewRGBA builds a color from ints, rejecting anything outside 0-255.
func NewRGBA(r, g, b, a int) (RGBA, error) {
	for _, v := range []int{r, g, b, a} {
		if v < 0 || v > 255 {
			return RGBA{}, fmt.Errorf("color component %d out of range 0-255", v)
		}
	}
	return RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}, nil
}

// ParseHex accepts #rrggbb and #rrggbbaa.
func ParseHex(s string) (RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
