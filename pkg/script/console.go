package script

import (
	"fmt"
	"math"

	"github.com/DrSkyle/graphstep/pkg/graph"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// consoleEnv declares the structural call surface as CEL functions. Nothing
// else is reachable from the console.
func (r *Runtime) consoleEnv() (*cel.Env, error) {
	ok := func(err error) ref.Val {
		if err != nil {
			return types.NewErr("%v", err)
		}
		return types.True
	}

	return cel.NewEnv(
		cel.Function("add_vertex",
			cel.Overload("add_vertex_int_double_double",
				[]*cel.Type{cel.IntType, cel.DoubleType, cel.DoubleType}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					id, err := nodeArg(args[0])
					if err != nil {
						return ok(err)
					}
					return ok(r.AddVertex(id, float64(args[1].(types.Double)), float64(args[2].(types.Double))))
				})),
			cel.Overload("add_vertex_int_int_int",
				[]*cel.Type{cel.IntType, cel.IntType, cel.IntType}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					id, err := nodeArg(args[0])
					if err != nil {
						return ok(err)
					}
					return ok(r.AddVertex(id, float64(args[1].(types.Int)), float64(args[2].(types.Int))))
				})),
		),
		cel.Function("remove_vertex",
			cel.Overload("remove_vertex_int", []*cel.Type{cel.IntType}, cel.BoolType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					id, err := nodeArg(v)
					if err != nil {
						return ok(err)
					}
					return ok(r.RemoveVertex(id))
				})),
		),
		pairFunction("add_edge", r.AddEdge, ok),
		pairFunction("remove_edge", r.RemoveEdge, ok),
		pairFunction("add_arrow", r.AddArrow, ok),
		pairFunction("remove_arrow", r.RemoveArrow, ok),
		cel.Function("add_attribute",
			cel.Overload("add_attribute_int_string_double",
				[]*cel.Type{cel.IntType, cel.StringType, cel.DoubleType}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					return ok(r.consoleAttribute(args[:1], args[1], float64(args[2].(types.Double))))
				})),
			cel.Overload("add_attribute_int_string_int",
				[]*cel.Type{cel.IntType, cel.StringType, cel.IntType}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					return ok(r.consoleAttribute(args[:1], args[1], float64(args[2].(types.Int))))
				})),
			cel.Overload("add_attribute_int_int_string_double",
				[]*cel.Type{cel.IntType, cel.IntType, cel.StringType, cel.DoubleType}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					return ok(r.consoleAttribute(args[:2], args[2], float64(args[3].(types.Double))))
				})),
			cel.Overload("add_attribute_int_int_string_int",
				[]*cel.Type{cel.IntType, cel.IntType, cel.StringType, cel.IntType}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					return ok(r.consoleAttribute(args[:2], args[2], float64(args[3].(types.Int))))
				})),
		),
	)
}

func pairFunction(name string, fn func(a, b graph.NodeID) error, ok func(error) ref.Val) cel.EnvOption {
	return cel.Function(name,
		cel.Overload(name+"_int_int", []*cel.Type{cel.IntType, cel.IntType}, cel.BoolType,
			cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
				a, err := nodeArg(lhs)
				if err != nil {
					return ok(err)
				}
				b, err := nodeArg(rhs)
				if err != nil {
					return ok(err)
				}
				return ok(fn(a, b))
			})),
	)
}

func (r *Runtime) consoleAttribute(ids []ref.Val, kw ref.Val, v float64) error {
	k, err := ParseKeyword(string(kw.(types.String)))
	if err != nil {
		return err
	}
	a, err := nodeArg(ids[0])
	if err != nil {
		return err
	}
	if len(ids) == 1 {
		return r.AddAttribute(graph.NodeTarget(a), k, v)
	}
	b, err := nodeArg(ids[1])
	if err != nil {
		return err
	}
	return r.AddAttribute(graph.ConnTarget(graph.Pair{A: a, B: b}), k, v)
}

func nodeArg(v ref.Val) (graph.NodeID, error) {
	i, isInt := v.(types.Int)
	if !isInt {
		return 0, fmt.Errorf("expected int id, got %s", v.Type().TypeName())
	}
	if i < 0 || i > math.MaxInt32 {
		return 0, fmt.Errorf("node id %d out of range", int64(i))
	}
	return graph.NodeID(i), nil
}

// Compile checks an expression against the console surface without running it.
func (r *Runtime) Compile(expr string) error {
	_, issues := r.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("console compilation error: %w", issues.Err())
	}
	return nil
}

// Eval runs one console expression. Calls may be chained with &&.
func (r *Runtime) Eval(expr string) (string, error) {
	ast, issues := r.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return "", fmt.Errorf("console compilation error: %w", issues.Err())
	}
	prg, err := r.env.Program(ast)
	if err != nil {
		return "", fmt.Errorf("console program creation error: %w", err)
	}
	out, _, err := prg.Eval(map[string]any{})
	if err != nil {
		return "", fmt.Errorf("console: %w", err)
	}
	return fmt.Sprint(out.Value()), nil
}
