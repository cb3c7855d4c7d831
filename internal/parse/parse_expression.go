package parse

import (
	"math"
	"strconv"
	"strings"
)

const (
	UNCLOSED_PARENTHESES_MSG = "Unclosed parentheses in expression."
	UNCLOSED_BRACKETS_MSG    = "Unclosed brackets in expression."
	UNARY_PRECEDENCE         = 9
)

// BUILTIN_FUNCTIONS contains the binary builtin operators.
var BUILTIN_FUNCTIONS = map[string]Function{}

var (
	UNARY_MINUS_FUNCTION = Function{Name: "-", ParameterCount: 1}
	INVERT_FUNCTION      = Function{Name: "!", ParameterCount: 1}

	BINARY_OPERATOR_PRECEDENCES = map[string]int{
		"^^": 2,
		"||": 3,
		"&&": 4,
		"==": 5, "!=": 5,
		">": 6, "<": 6, ">=": 6, "<=": 6,
		"+": 7, "-": 7,
		"*": 8, "/": 8, "%": 8,
	}
)

func init() {
	for op := range BINARY_OPERATOR_PRECEDENCES {
		BUILTIN_FUNCTIONS[op] = Function{Name: op, ParameterCount: 2}
	}
}

// parseExpression parses an expression, expressions never span several lines.
// Nil is returned on failure, the error has already been reported.
func (p *parser) parseExpression() Expression {
	return p.parseBinaryExpression(0)
}

// binaryOperator returns the binary operator at the current position if its precedence
// is at least minPrecedence.
func (p *parser) binaryOperator(minPrecedence int) (Token, int, bool) {
	t, ok := p.peek()
	if !ok {
		return Token{}, 0, false
	}

	switch t.Type {
	case BINARY_OPERATOR, COMPARE_OPERATOR, CONJUNCTION_OPERATOR:
	default:
		return Token{}, 0, false
	}

	precedence, ok := BINARY_OPERATOR_PRECEDENCES[t.Content]
	if !ok || precedence < minPrecedence {
		//'!' is not a binary operator
		return Token{}, 0, false
	}
	return t, precedence, true
}

func (p *parser) parseBinaryExpression(minPrecedence int) Expression {
	left := p.parseUnaryExpression()
	if left == nil {
		return nil
	}

	for {
		op, precedence, ok := p.binaryOperator(minPrecedence)
		if !ok {
			return left
		}
		p.i++

		right := p.parseBinaryExpression(precedence + 1)
		if right == nil {
			return nil
		}

		left = &CallExpression{
			NodeBase:   NodeBase{Line: op.Line},
			Function:   BUILTIN_FUNCTIONS[op.Content],
			Parameters: []Expression{left, right},
		}
	}
}

func (p *parser) parseUnaryExpression() Expression {
	t, ok := p.peek()
	if !ok {
		p.error(UNEXPECTED_END_OF_CODE_MSG, -1)
		return nil
	}

	var fn Function
	switch {
	case t.Type == BINARY_OPERATOR && t.Content == "-":
		p.tokens[p.i].Type = UNARY_MINUS
		fn = UNARY_MINUS_FUNCTION
	case t.Type == COMPARE_OPERATOR && t.Content == "!":
		p.tokens[p.i].Type = UNARY_INVERT
		fn = INVERT_FUNCTION
	default:
		return p.parsePrimaryExpression()
	}
	p.i++

	operand := p.parseUnaryExpression()
	if operand == nil {
		return nil
	}

	return &CallExpression{
		NodeBase:   NodeBase{Line: t.Line},
		Function:   fn,
		Parameters: []Expression{operand},
	}
}

func (p *parser) parsePrimaryExpression() Expression {
	t, _ := p.peek()

	switch {
	case t.Type == OPEN_PAREN:
		p.i++
		inner := p.parseExpression()
		if inner == nil {
			return nil
		}
		if !p.isNextOnLine(CLOSE_PAREN) {
			p.errorSync(UNCLOSED_PARENTHESES_MSG, t.Line)
			return nil
		}
		p.i++
		return inner
	case t.Type == OPEN_BRACKET:
		p.i++
		elements, ok := p.parseExpressionList(CLOSE_BRACKET, UNCLOSED_BRACKETS_MSG, t.Line)
		if !ok {
			return nil
		}
		return &ArrayLiteral{NodeBase: NodeBase{Line: t.Line}, Elements: elements}
	case t.Type == IDENTIFIER && p.i+1 < len(p.tokens) && p.tokens[p.i+1].Type == OPEN_PAREN:
		p.i += 2
		params, ok := p.parseExpressionList(CLOSE_PAREN, UNCLOSED_PARENTHESES_MSG, t.Line)
		if !ok {
			return nil
		}
		p.tokens[p.i-1].ParamCount = len(params)
		return &CallExpression{
			NodeBase:   NodeBase{Line: t.Line},
			Function:   Function{Name: t.Content, ParameterCount: USER_FUNCTION_PARAM_COUNT},
			Parameters: params,
		}
	case t.IsValueToken():
		p.i++
		value, ok := p.valueFromToken(t)
		if !ok {
			return nil
		}

		expr := &ValueExpression{NodeBase: NodeBase{Line: t.Line}, Value: value}

		if t.Type == VARIABLE_IDENTIFIER && p.isNextOnLine(OPEN_BRACKET) {
			bracket := p.next()
			expr.ArrayIndex = p.parseExpression()
			if expr.ArrayIndex == nil {
				return nil
			}
			if !p.isNextOnLine(CLOSE_BRACKET) {
				p.errorSync(UNCLOSED_BRACKETS_MSG, bracket.Line)
				return nil
			}
			p.i++
		}
		return expr
	default:
		p.errorSync(EXPECTED_EXPRESSION_MSG, p.currentLine())
		return nil
	}
}

// parseExpressionList parses comma-separated expressions up to and including the closing token.
func (p *parser) parseExpressionList(closing TokenType, unclosedMsg string, line int) ([]Expression, bool) {
	list := []Expression{}

	if p.isNextOnLine(closing) {
		p.i++
		return list, true
	}

	for {
		e := p.parseExpression()
		if e == nil {
			return nil, false
		}
		list = append(list, e)

		switch {
		case p.isNextOnLine(COMMA):
			p.i++
		case p.isNextOnLine(closing):
			p.i++
			return list, true
		default:
			p.errorSync(unclosedMsg, line)
			return nil, false
		}
	}
}

// valueFromToken converts a value token (see Token.IsValueToken) to a Value.
func (p *parser) valueFromToken(t Token) (Value, bool) {
	switch t.Type {
	case NUMBER:
		if strings.Contains(t.Content, ".") {
			f, err := strconv.ParseFloat(t.Content, 64)
			if err != nil {
				p.errorSync(INVALID_NUMBER_LITERAL_MSG, t.Line)
				return Value{}, false
			}
			return DoubleValue(f), true
		}
		i, err := strconv.ParseInt(t.Content, 10, 64)
		if err != nil {
			p.errorSync(INVALID_NUMBER_LITERAL_MSG, t.Line)
			return Value{}, false
		}
		if i > math.MaxInt32 || i < math.MinInt32 {
			p.errorSync(INT32_OUT_OF_RANGE_MSG, t.Line)
			return Value{}, false
		}
		return Int32Value(int32(i)), true
	case STRING:
		return StringValue(t.Content), true
	case VARIABLE_IDENTIFIER:
		return VariableValue(t.Content), true
	case TRUE:
		return BoolValue(true), true
	case FALSE:
		return BoolValue(false), true
	case UNDEFINED:
		return UndefinedValue(), true
	}
	p.errorSync(EXPECTED_EXPRESSION_MSG, t.Line)
	return Value{}, false
}
