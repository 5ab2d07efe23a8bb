package script

import (
	"embed"
	"fmt"
	"os"
	"path"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"
)

//go:embed scripts/*.hcl
var defaults embed.FS

// Bootstrap file names, loaded in this order.
const (
	InitScript       = "init.hcl"
	GraphScript      = "graph.hcl"
	AlgorithmsScript = "algorithms.hcl"
)

// BootstrapOrder is the startup load order.
var BootstrapOrder = []string{InitScript, GraphScript, AlgorithmsScript}

// File is a decoded script file.
type File struct {
	Name       string
	Palette    Palette
	Algorithms map[string]AlgorithmPatch
	// Commands are console expressions the host runs after loading.
	Commands []string
}

// AlgorithmPatch overrides Settings fields that a file sets.
type AlgorithmPatch struct {
	Enabled *bool
	Steps   *bool
	Colors  Palette
}

type fileRoot struct {
	Palettes   []*paletteBlock   `hcl:"palette,block"`
	Graphs     []*graphBlock     `hcl:"graph,block"`
	Algorithms []*algorithmBlock `hcl:"algorithm,block"`
}

type paletteBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type graphBlock struct {
	Commands []string `hcl:"commands,optional"`
}

type algorithmBlock struct {
	Name    string         `hcl:"name,label"`
	Enabled *bool          `hcl:"enabled,optional"`
	Steps   *bool          `hcl:"steps,optional"`
	Colors  hcl.Expression `hcl:"colors,optional"`
}

// rgba(r, g, b, a) evaluates to "#rrggbbaa".
var rgbaFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "r", Type: cty.Number},
		{Name: "g", Type: cty.Number},
		{Name: "b", Type: cty.Number},
		{Name: "a", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		var parts [4]int
		for i, a := range args {
			if err := gocty.FromCtyValue(a, &parts[i]); err != nil {
				return cty.NilVal, err
			}
		}
		c, err := graph.NewRGBA(parts[0], parts[1], parts[2], parts[3])
		if err != nil {
			return cty.NilVal, err
		}
		return cty.StringVal(hexA(c)), nil
	},
})

func hexA(c graph.RGBA) string {
	return fmt.Sprintf("%s%02x", c.Hex(), c.A)
}

func evalContext(p Palette) *hcl.EvalContext {
	vals := make(map[string]cty.Value, len(p))
	for name, c := range p {
		vals[name] = cty.StringVal(hexA(c))
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"palette": cty.ObjectVal(vals)},
		Functions: map[string]function.Function{"rgba": rgbaFunc},
	}
}

// Parse decodes and validates src without applying it. Palette references
// resolve against colors already loaded plus those earlier in the file.
func (r *Runtime) Parse(name string, src []byte) (*File, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, name)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse script %s: %w", name, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, evalContext(nil), &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode script %s: %w", name, diags)
	}

	f := &File{Name: name, Palette: Palette{}, Algorithms: make(map[string]AlgorithmPatch)}
	known := r.Palette()

	for _, pb := range root.Palettes {
		attrs, diags := pb.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("palette in %s: %w", name, diags)
		}
		ctx := evalContext(known)
		for _, attr := range attrs {
			val, diags := attr.Expr.Value(ctx)
			if diags.HasErrors() {
				return nil, fmt.Errorf("palette %s in %s: %w", attr.Name, name, diags)
			}
			c, err := colorValue(val)
			if err != nil {
				return nil, fmt.Errorf("palette %s in %s: %w", attr.Name, name, err)
			}
			f.Palette[attr.Name] = c
		}
		for k, v := range f.Palette {
			known[k] = v
		}
	}

	procs := r.Procedures()
	for _, ab := range root.Algorithms {
		if !contains(procs, ab.Name) {
			return nil, fmt.Errorf("%w: algorithm %q in %s", ErrUnknownProcedure, ab.Name, name)
		}
		patch := AlgorithmPatch{Enabled: ab.Enabled, Steps: ab.Steps}
		colors, err := roleColors(ab.Colors, evalContext(known))
		if err != nil {
			return nil, fmt.Errorf("algorithm %q in %s: %w", ab.Name, name, err)
		}
		patch.Colors = colors
		f.Algorithms[ab.Name] = patch
	}

	for _, gb := range root.Graphs {
		for _, cmd := range gb.Commands {
			if err := r.Compile(cmd); err != nil {
				return nil, fmt.Errorf("graph command %q in %s: %w", cmd, name, err)
			}
			f.Commands = append(f.Commands, cmd)
		}
	}
	return f, nil
}

func roleColors(expr hcl.Expression, ctx *hcl.EvalContext) (Palette, error) {
	out := Palette{}
	if expr == nil {
		return out, nil
	}
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return out, nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("colors must be an object, got %s", ty.FriendlyName())
	}
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		c, err := colorValue(v)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", k.AsString(), err)
		}
		out[k.AsString()] = c
	}
	return out, nil
}

func colorValue(v cty.Value) (graph.RGBA, error) {
	if v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
		return graph.RGBA{}, fmt.Errorf("expected a color string, got %s", v.Type().FriendlyName())
	}
	return graph.ParseHex(v.AsString())
}

// Apply merges a parsed file into the runtime settings.
func (r *Runtime) Apply(f *File) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range f.Palette {
		r.palette[k] = v
	}
	for name, p := range f.Algorithms {
		s := r.settings[name]
		if p.Enabled != nil {
			s.Enabled = *p.Enabled
		}
		if p.Steps != nil {
			s.Steps = *p.Steps
		}
		colors := s.Colors.clone()
		for role, c := range p.Colors {
			colors[role] = c
		}
		s.Colors = colors
		r.settings[name] = s
	}
	r.logger.Debug("Script applied", "script", f.Name, "palette", len(f.Palette), "algorithms", len(f.Algorithms))
}

// LoadSource parses then applies src. On error nothing changes.
func (r *Runtime) LoadSource(name string, src []byte) (*File, error) {
	f, err := r.Parse(name, src)
	if err != nil {
		return nil, err
	}
	r.Apply(f)
	return f, nil
}

func (r *Runtime) LoadFile(p string) (*File, error) {
	src, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return r.LoadSource(p, src)
}

// LoadDefault loads one of the embedded bootstrap scripts.
func (r *Runtime) LoadDefault(name string) (*File, error) {
	src, err := defaults.ReadFile(path.Join("scripts", name))
	if err != nil {
		return nil, fmt.Errorf("no default script %s: %w", name, err)
	}
	return r.LoadSource(name, src)
}

// DefaultSource returns an embedded bootstrap script.
func DefaultSource(name string) ([]byte, error) {
	return defaults.ReadFile(path.Join("scripts", name))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
