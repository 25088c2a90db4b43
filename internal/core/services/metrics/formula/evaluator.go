package formula

import (
	"fmt"
	"math"
)

// Env supplies the bindings an Eval call resolves against. spec.md
// §4.5 specifies one evaluator shared by entry formulas and widget
// expressions; Env is the seam that varies between the two: EntryEnv
// (this package) binds self/parent/root/path/division/subdivision
// against a ResolvedEntry tree, while the widget package's collection
// env binds a dataset alias against loaded entries.
type Env interface {
	// Ident resolves a bare identifier (self, parent, root, path,
	// division, subdivision, or a dataset alias). ok is false when the
	// identifier is unrecognized.
	Ident(name string) (Value, bool, error)
	// FieldAccess evaluates `receiver.name` where name is not one of
	// the reserved method names (where, time).
	FieldAccess(receiver Value, name string) (Value, error)
	// Index evaluates `receiver[index]`.
	Index(receiver Value, index Value) (Value, error)
	// Where evaluates `receiver.where(predicate)`; predicate is the
	// verbatim captured text.
	Where(receiver Value, predicate string) (Value, error)
	// MethodCall evaluates `receiver.name(args...)` for reserved method
	// name "time".
	MethodCall(receiver Value, name string, args []Value) (Value, error)
	// EmptyAggregateIsError controls whether sum/avg/min/max/count over
	// an empty list errors (entry context) or yields 0 (widget context).
	EmptyAggregateIsError() bool
}

// Eval walks node and produces its runtime Value against env.
func Eval(node *Node, env Env) (Value, error) {
	if node == nil {
		return Null, nil
	}
	switch node.Kind {
	case NodeNumber:
		return NumberValue(node.Number), nil
	case NodeString:
		return StringValue(node.Str), nil
	case NodeIdent:
		v, ok, err := env.Ident(node.Name)
		if err != nil {
			return Null, err
		}
		if !ok {
			return Null, fmt.Errorf("unknown identifier %q", node.Name)
		}
		return v, nil
	case NodeUnaryMinus:
		v, err := Eval(node.Left, env)
		if err != nil {
			return Null, err
		}
		return negate(v)
	case NodeBinary:
		l, err := Eval(node.Left, env)
		if err != nil {
			return Null, err
		}
		r, err := Eval(node.Right, env)
		if err != nil {
			return Null, err
		}
		return applyBinary(node.Op, l, r)
	case NodeFieldAccess:
		recv, err := Eval(node.Left, env)
		if err != nil {
			return Null, err
		}
		return env.FieldAccess(recv, node.Name)
	case NodeIndex:
		recv, err := Eval(node.Left, env)
		if err != nil {
			return Null, err
		}
		idx, err := Eval(node.Index, env)
		if err != nil {
			return Null, err
		}
		return env.Index(recv, idx)
	case NodeWhere:
		recv, err := Eval(node.Left, env)
		if err != nil {
			return Null, err
		}
		return env.Where(recv, node.Predicate)
	case NodeMethodCall:
		recv, err := Eval(node.Left, env)
		if err != nil {
			return Null, err
		}
		args := make([]Value, len(node.Args))
		for i, a := range node.Args {
			v, err := Eval(a, env)
			if err != nil {
				return Null, err
			}
			args[i] = v
		}
		return env.MethodCall(recv, node.Name, args)
	case NodeCall:
		return evalAggregate(node, env)
	default:
		return Null, fmt.Errorf("unsupported node kind %v", node.Kind)
	}
}

func evalAggregate(node *Node, env Env) (Value, error) {
	if len(node.Args) != 1 {
		return Null, fmt.Errorf("%s() takes exactly one argument", node.Name)
	}
	arg, err := Eval(node.Args[0], env)
	if err != nil {
		return Null, err
	}
	list, err := arg.AsNumberList()
	if err != nil {
		return Null, fmt.Errorf("%s(): %w", node.Name, err)
	}
	if len(list) == 0 {
		if env.EmptyAggregateIsError() {
			return Null, fmt.Errorf("%s() over an empty list", node.Name)
		}
		return NumberValue(0), nil
	}
	switch node.Name {
	case "sum":
		total := 0.0
		for _, v := range list {
			total += v
		}
		return NumberValue(total), nil
	case "avg":
		total := 0.0
		for _, v := range list {
			total += v
		}
		return NumberValue(total / float64(len(list))), nil
	case "min":
		m := list[0]
		for _, v := range list[1:] {
			if v < m {
				m = v
			}
		}
		return NumberValue(m), nil
	case "max":
		m := list[0]
		for _, v := range list[1:] {
			if v > m {
				m = v
			}
		}
		return NumberValue(m), nil
	case "count":
		return NumberValue(float64(len(list))), nil
	default:
		return Null, fmt.Errorf("unknown aggregate function %q", node.Name)
	}
}

func negate(v Value) (Value, error) {
	switch v.Kind {
	case KindNumber:
		return NumberValue(-v.Number), nil
	case KindNumberList:
		out := make([]float64, len(v.NumberList))
		for i, n := range v.NumberList {
			out[i] = -n
		}
		return NumberListValue(out), nil
	default:
		return Null, fmt.Errorf("cannot negate a %s", v.Kind.String())
	}
}

// applyBinary implements spec.md §4.5's arithmetic: scalar (+) scalar ->
// scalar, scalar (+) list -> list, list (+) list -> list iff equal
// length (else error). "==" is recognized generally but only exercised
// by where() predicates in MVP usage.
func applyBinary(op string, l, r Value) (Value, error) {
	if op == "==" {
		return evalEquals(l, r)
	}
	if l.IsCollectionShaped() || r.IsCollectionShaped() {
		return Null, fmt.Errorf("arithmetic between collection-shaped values is not permitted; aggregate first")
	}

	switch {
	case l.Kind == KindNumber && r.Kind == KindNumber:
		n, err := scalarOp(op, l.Number, r.Number)
		if err != nil {
			return Null, err
		}
		return NumberValue(n), nil

	case l.Kind == KindNumber && r.Kind == KindNumberList:
		out := make([]float64, len(r.NumberList))
		for i, rv := range r.NumberList {
			n, err := scalarOp(op, l.Number, rv)
			if err != nil {
				return Null, err
			}
			out[i] = n
		}
		return NumberListValue(out), nil

	case l.Kind == KindNumberList && r.Kind == KindNumber:
		out := make([]float64, len(l.NumberList))
		for i, lv := range l.NumberList {
			n, err := scalarOp(op, lv, r.Number)
			if err != nil {
				return Null, err
			}
			out[i] = n
		}
		return NumberListValue(out), nil

	case l.Kind == KindNumberList && r.Kind == KindNumberList:
		if len(l.NumberList) != len(r.NumberList) {
			return Null, fmt.Errorf("list arithmetic requires equal-length operands, got %d and %d",
				len(l.NumberList), len(r.NumberList))
		}
		out := make([]float64, len(l.NumberList))
		for i := range l.NumberList {
			n, err := scalarOp(op, l.NumberList[i], r.NumberList[i])
			if err != nil {
				return Null, err
			}
			out[i] = n
		}
		return NumberListValue(out), nil

	default:
		return Null, fmt.Errorf("cannot apply %q to %s and %s", op, l.Kind.String(), r.Kind.String())
	}
}

func scalarOp(op string, a, b float64) (float64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	case "%":
		if b == 0 {
			return 0, fmt.Errorf("modulo by zero")
		}
		return math.Mod(a, b), nil
	case "//":
		if b == 0 {
			return 0, fmt.Errorf("integer division by zero")
		}
		return math.Floor(a / b), nil
	case "^":
		return math.Pow(a, b), nil
	default:
		return 0, fmt.Errorf("unknown operator %q", op)
	}
}

func evalEquals(l, r Value) (Value, error) {
	switch {
	case l.Kind == KindNumber && r.Kind == KindNumber:
		return BoolValue(l.Number == r.Number), nil
	case l.Kind == KindString && r.Kind == KindString:
		return BoolValue(l.Str == r.Str), nil
	case l.Kind == KindBool && r.Kind == KindBool:
		return BoolValue(l.Bool == r.Bool), nil
	default:
		return Null, fmt.Errorf("cannot compare %s and %s for equality", l.Kind.String(), r.Kind.String())
	}
}
