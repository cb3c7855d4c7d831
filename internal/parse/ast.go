package parse

import (
	"strconv"

	"github.com/colinator27/open-day-dialogue-compiler/internal/bytecode"
)

const (
	// parameter count of non-builtin functions, the count is only known at the call site.
	USER_FUNCTION_PARAM_COUNT = -1

	CHAR_COMMAND_NAME = "char"
	GOTO_COMMAND_NAME = "goto"
	EXIT_COMMAND_NAME = "exit"
)

type Node interface {
	Base() *NodeBase
}

// NodeBase is embedded by all nodes, Line is 0 for synthesized nodes.
type NodeBase struct {
	Line int `json:"line,omitempty"`
}

func (n *NodeBase) Base() *NodeBase {
	return n
}

// Statement is implemented by *Block, *DefinitionGroup, *Namespace and *Scene.
type Statement interface {
	Node
	statement()
}

// SceneStatement is implemented by the statements allowed in a scene body.
type SceneStatement interface {
	Node
	sceneStatement()
}

// Expression is implemented by *ValueExpression, *CallExpression and *ArrayLiteral.
type Expression interface {
	Node
	expression()
}

type Block struct {
	NodeBase
	Statements []Statement `json:"statements"`
}

type DefinitionGroup struct {
	NodeBase
	Name        string            `json:"name"`
	Definitions []*TextDefinition `json:"definitions"`
}

type TextDefinition struct {
	NodeBase
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Namespace struct {
	NodeBase
	Name  string `json:"name"`
	Block *Block `json:"block"`
}

type Scene struct {
	NodeBase
	Name       string           `json:"name"`
	Statements []SceneStatement `json:"statements"`
}

func (*Block) statement()           {}
func (*DefinitionGroup) statement() {}
func (*Namespace) statement()       {}
func (*Scene) statement()           {}

type TextStatement struct {
	NodeBase
	Text string `json:"text"`
}

// CommandStatement is a command call, all the arguments are literal values or raw identifiers.
type CommandStatement struct {
	NodeBase
	Name string  `json:"name"`
	Args []Value `json:"args"`
}

type VariableAssignment struct {
	NodeBase
	Name  string     `json:"name"`
	Index Expression `json:"index,omitempty"` //nil if the whole variable is assigned
	Value Expression `json:"value"`
}

type IfStatement struct {
	NodeBase
	Clauses []*Clause `json:"clauses"` //the first clause is the main one, a final clause without condition is the else clause
}

type Clause struct {
	NodeBase
	Condition  Expression       `json:"condition,omitempty"`
	Statements []SceneStatement `json:"statements"`
}

type ChoiceStatement struct {
	NodeBase
	Choices []*Choice `json:"choices"`
}

type Choice struct {
	NodeBase
	Text       string           `json:"text"`
	Condition  Expression       `json:"condition,omitempty"`
	Statements []SceneStatement `json:"statements"`
}

type LabelStatement struct {
	NodeBase
	Name string `json:"name"`
}

type JumpStatement struct {
	NodeBase
	Label string `json:"label"`
}

// SpecialNameStatement is the `name: "text"` shorthand for a `char name` command followed by a text.
type SpecialNameStatement struct {
	NodeBase
	Command *CommandStatement `json:"command"`
	Text    *TextStatement    `json:"text"`
}

type WhileLoop struct {
	NodeBase
	Condition  Expression       `json:"condition"`
	Statements []SceneStatement `json:"statements"`
}

type ControlFlowStatement struct {
	NodeBase
	Keyword string `json:"keyword"` //continue or break
}

func (*TextStatement) sceneStatement()        {}
func (*CommandStatement) sceneStatement()     {}
func (*VariableAssignment) sceneStatement()   {}
func (*IfStatement) sceneStatement()          {}
func (*ChoiceStatement) sceneStatement()      {}
func (*LabelStatement) sceneStatement()       {}
func (*JumpStatement) sceneStatement()        {}
func (*SpecialNameStatement) sceneStatement() {}
func (*WhileLoop) sceneStatement()            {}
func (*ControlFlowStatement) sceneStatement() {}

type ValueExpression struct {
	NodeBase
	Value      Value      `json:"value"`
	ArrayIndex Expression `json:"arrayIndex,omitempty"`
}

type Function struct {
	Name           string `json:"name"`
	ParameterCount int    `json:"parameterCount"` //USER_FUNCTION_PARAM_COUNT for non-builtin functions
}

func (f Function) IsBuiltin() bool {
	return f.ParameterCount != USER_FUNCTION_PARAM_COUNT
}

type CallExpression struct {
	NodeBase
	Function   Function     `json:"function"`
	Parameters []Expression `json:"parameters"`
}

type ArrayLiteral struct {
	NodeBase
	Elements []Expression `json:"elements"`
}

func (*ValueExpression) expression() {}
func (*CallExpression) expression()  {}
func (*ArrayLiteral) expression()    {}

// IsLiteral returns true if the expression is a plain value of one of the given kinds
// without array index.
func IsLiteral(e Expression, kinds ...bytecode.ValueKind) (Value, bool) {
	valueExpr, ok := e.(*ValueExpression)
	if !ok || valueExpr.ArrayIndex != nil {
		return Value{}, false
	}
	for _, kind := range kinds {
		if valueExpr.Value.Kind == kind {
			return valueExpr.Value, true
		}
	}
	return Value{}, false
}

// Value is a literal value, only the field matching Kind is set. Str holds the content of strings
// and the names of variables and raw identifiers.
type Value struct {
	Kind   bytecode.ValueKind `json:"kind"`
	Double float64            `json:"double,omitempty"`
	Int32  int32              `json:"int32,omitempty"`
	Bool   bool               `json:"bool,omitempty"`
	Str    string             `json:"str,omitempty"`
}

func Int32Value(i int32) Value {
	return Value{Kind: bytecode.INT32, Int32: i}
}

func DoubleValue(f float64) Value {
	return Value{Kind: bytecode.DOUBLE, Double: f}
}

func BoolValue(b bool) Value {
	return Value{Kind: bytecode.BOOLEAN, Bool: b}
}

func StringValue(s string) Value {
	return Value{Kind: bytecode.STRING, Str: s}
}

func VariableValue(name string) Value {
	return Value{Kind: bytecode.VARIABLE, Str: name}
}

func RawIdentifierValue(name string) Value {
	return Value{Kind: bytecode.RAW_IDENTIFIER, Str: name}
}

func UndefinedValue() Value {
	return Value{Kind: bytecode.UNDEFINED}
}

func (v Value) String() string {
	switch v.Kind {
	case bytecode.DOUBLE:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case bytecode.INT32:
		return strconv.FormatInt(int64(v.Int32), 10)
	case bytecode.BOOLEAN:
		return strconv.FormatBool(v.Bool)
	case bytecode.UNDEFINED:
		return UNDEFINED_LITERAL_STRING
	case bytecode.STRING:
		return strconv.Quote(v.Str)
	case bytecode.VARIABLE:
		return string(VARIABLE_PREFIX) + v.Str
	case bytecode.RAW_IDENTIFIER:
		return v.Str
	}
	return v.Kind.String()
}
