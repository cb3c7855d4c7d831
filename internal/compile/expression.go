package compile

import (
	"fmt"

	"github.com/colinator27/open-day-dialogue-compiler/internal/bytecode"
	"github.com/colinator27/open-day-dialogue-compiler/internal/parse"
)

const (
	ARRAY_FUNCTION_NAME     = "@array"
	INDEX_FUNCTION_NAME     = "@index"
	SET_INDEX_FUNCTION_NAME = "@setindex"

	//holds the evaluated index of a compound assignment to an array element
	INDEX_TEMPORARY_VARIABLE = "@tmp-index"
)

var BINARY_OPERATOR_OPCODES = map[string]bytecode.Opcode{
	"+":  bytecode.OpAdd,
	"-":  bytecode.OpSub,
	"*":  bytecode.OpMul,
	"/":  bytecode.OpDiv,
	"%":  bytecode.OpMod,
	"||": bytecode.OpOr,
	"&&": bytecode.OpAnd,
	"^^": bytecode.OpXor,
	"==": bytecode.OpEqual,
	"!=": bytecode.OpNotEqual,
	">=": bytecode.OpGreaterEqual,
	"<=": bytecode.OpLessThanEqual,
	"<":  bytecode.OpLessThan,
	">":  bytecode.OpGreater,
}

var UNARY_OPERATOR_OPCODES = map[string]bytecode.Opcode{
	"-": bytecode.OpNegate,
	"!": bytecode.OpInvert,
}

// compileExpression emits the instructions pushing the value of an expression, false is returned
// if an error was reported.
func (c *Compiler) compileExpression(expr parse.Expression) bool {
	switch node := expr.(type) {
	case *parse.ValueExpression:
		id, ok := c.registerValue(node.Value, node.Line)
		if !ok {
			return false
		}
		c.emit(bytecode.OpPush, id)

		if node.ArrayIndex != nil {
			if !c.compileExpression(node.ArrayIndex) {
				return false
			}
			c.emitCall(INDEX_FUNCTION_NAME, 2)
		}
		return true
	case *parse.ArrayLiteral:
		for _, elem := range node.Elements {
			if !c.compileExpression(elem) {
				return false
			}
		}
		c.emitCall(ARRAY_FUNCTION_NAME, len(node.Elements))
		return true
	case *parse.CallExpression:
		return c.compileCall(node)
	default:
		panic(fmt.Errorf("cannot compile %T", expr))
	}
}

func (c *Compiler) compileCall(call *parse.CallExpression) bool {
	if folded, ok := fold(call); ok {
		id, ok := c.registerValue(folded, call.Line)
		if !ok {
			return false
		}
		c.emit(bytecode.OpPush, id)
		return true
	}

	for _, param := range call.Parameters {
		if !c.compileExpression(param) {
			return false
		}
	}

	if !call.Function.IsBuiltin() {
		c.emitCall(call.Function.Name, len(call.Parameters))
		return true
	}

	var (
		op bytecode.Opcode
		ok bool
	)
	switch len(call.Parameters) {
	case 1:
		op, ok = UNARY_OPERATOR_OPCODES[call.Function.Name]
	case 2:
		op, ok = BINARY_OPERATOR_OPCODES[call.Function.Name]
	}

	if !ok {
		c.error(INVALID_FUNCTION_MSG, call.Line)
		return false
	}
	c.emit(op)
	return true
}

// emitCall emits a call to a non-builtin function, the parameter count is pushed after the parameters.
func (c *Compiler) emitCall(name string, paramCount int) {
	c.emitPush(bytecode.Int32Value(int32(paramCount)))
	c.emit(bytecode.OpCallFunction, c.program.RegisterString(name))
}

// registerValue registers a literal in the value table, string literals are translated.
func (c *Compiler) registerValue(v parse.Value, line int) (uint32, bool) {
	var value bytecode.Value

	switch v.Kind {
	case bytecode.INT32:
		value = bytecode.Int32Value(v.Int32)
	case bytecode.DOUBLE:
		value = bytecode.DoubleValue(v.Double)
	case bytecode.BOOLEAN:
		value = bytecode.BoolValue(v.Bool)
	case bytecode.UNDEFINED:
		value = bytecode.UndefinedValue()
	case bytecode.STRING:
		str := v.Str
		if c.translations != nil && c.translations.TranslatesValues(c.file) {
			translated, ok := c.translate(c.sceneTranslationKey(), str, line)
			if !ok {
				return 0, false
			}
			str = translated
		}
		value = bytecode.StringValue(c.program.RegisterString(str))
	case bytecode.VARIABLE:
		value = bytecode.VariableValue(c.program.RegisterString(v.Str))
	case bytecode.RAW_IDENTIFIER:
		value = bytecode.RawIdentifierValue(c.program.RegisterString(v.Str))
	default:
		panic(fmt.Errorf("invalid value kind %d", v.Kind))
	}

	return c.program.RegisterValue(value), true
}

// compoundElementRead returns the read of the assigned element if the assignment is a compound
// assignment to an array element (`$a[i] op= e`, `$a[i]++`). The read and the assignment share the
// same index node.
func compoundElementRead(assignment *parse.VariableAssignment) (*parse.ValueExpression, bool) {
	if assignment.Index == nil {
		return nil, false
	}
	call, ok := assignment.Value.(*parse.CallExpression)
	if !ok || len(call.Parameters) != 2 {
		return nil, false
	}
	read, ok := call.Parameters[0].(*parse.ValueExpression)
	if !ok || read.ArrayIndex != assignment.Index {
		return nil, false
	}
	return read, true
}

// withTemporaryIndex returns a copy of the compound assignment's index and value where the index
// is read from INDEX_TEMPORARY_VARIABLE.
func withTemporaryIndex(read *parse.ValueExpression, value *parse.CallExpression) (parse.Expression, parse.Expression) {
	index := &parse.ValueExpression{
		NodeBase: *read.ArrayIndex.Base(),
		Value:    parse.VariableValue(INDEX_TEMPORARY_VARIABLE),
	}

	newRead := *read
	newRead.ArrayIndex = index

	newValue := *value
	newValue.Parameters = []parse.Expression{&newRead, value.Parameters[1]}

	return index, &newValue
}

// hasUserCall returns true if the expression calls a user function.
func hasUserCall(expr parse.Expression) bool {
	switch node := expr.(type) {
	case *parse.ValueExpression:
		return node.ArrayIndex != nil && hasUserCall(node.ArrayIndex)
	case *parse.ArrayLiteral:
		for _, elem := range node.Elements {
			if hasUserCall(elem) {
				return true
			}
		}
	case *parse.CallExpression:
		if !node.Function.IsBuiltin() {
			return true
		}
		for _, param := range node.Parameters {
			if hasUserCall(param) {
				return true
			}
		}
	}
	return false
}
