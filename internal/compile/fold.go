package compile

import (
	"github.com/colinator27/open-day-dialogue-compiler/internal/bytecode"
	"github.com/colinator27/open-day-dialogue-compiler/internal/parse"
)

// fold evaluates a builtin call whose parameters are all literals. Only the negation of numbers
// and the + - * / == != operators on two literals of the same kind are folded.
func fold(call *parse.CallExpression) (parse.Value, bool) {
	if !call.Function.IsBuiltin() {
		return parse.Value{}, false
	}

	switch len(call.Parameters) {
	case 1:
		if call.Function.Name != "-" {
			return parse.Value{}, false
		}
		v, ok := parse.IsLiteral(call.Parameters[0], bytecode.INT32, bytecode.DOUBLE)
		if !ok {
			return parse.Value{}, false
		}
		if v.Kind == bytecode.INT32 {
			return parse.Int32Value(-v.Int32), true
		}
		return parse.DoubleValue(-v.Double), true
	case 2:
		left, ok := parse.IsLiteral(call.Parameters[0], bytecode.INT32, bytecode.DOUBLE, bytecode.STRING)
		if !ok {
			return parse.Value{}, false
		}
		right, ok := parse.IsLiteral(call.Parameters[1], left.Kind)
		if !ok {
			return parse.Value{}, false
		}
		return foldBinary(call.Function.Name, left, right)
	}
	return parse.Value{}, false
}

func foldBinary(op string, left, right parse.Value) (parse.Value, bool) {
	switch left.Kind {
	case bytecode.INT32:
		a, b := left.Int32, right.Int32
		switch op {
		case "+":
			return parse.Int32Value(a + b), true
		case "-":
			return parse.Int32Value(a - b), true
		case "*":
			return parse.Int32Value(a * b), true
		case "/":
			if b == 0 {
				return parse.Value{}, false
			}
			return parse.Int32Value(a / b), true
		case "==":
			return parse.BoolValue(a == b), true
		case "!=":
			return parse.BoolValue(a != b), true
		}
	case bytecode.DOUBLE:
		a, b := left.Double, right.Double
		switch op {
		case "+":
			return parse.DoubleValue(a + b), true
		case "-":
			return parse.DoubleValue(a - b), true
		case "*":
			return parse.DoubleValue(a * b), true
		case "/":
			return parse.DoubleValue(a / b), true
		case "==":
			return parse.BoolValue(a == b), true
		case "!=":
			return parse.BoolValue(a != b), true
		}
	case bytecode.STRING:
		a, b := left.Str, right.Str
		switch op {
		case "+":
			return parse.StringValue(a + b), true
		case "==":
			return parse.BoolValue(a == b), true
		case "!=":
			return parse.BoolValue(a != b), true
		}
	}
	return parse.Value{}, false
}
