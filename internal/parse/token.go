package parse

import "strconv"

const (
	DEFINITIONS_KEYWORD_STRING = "definitions"
	NAMESPACE_KEYWORD_STRING   = "namespace"
	SCENE_KEYWORD_STRING       = "scene"
	IF_KEYWORD_STRING          = "if"
	CHOICE_KEYWORD_STRING      = "choice"
	ELSE_KEYWORD_STRING        = "else"
	WHILE_KEYWORD_STRING       = "while"
	CONTINUE_KEYWORD_STRING    = "continue"
	BREAK_KEYWORD_STRING       = "break"

	TRUE_LITERAL_STRING      = "true"
	FALSE_LITERAL_STRING     = "false"
	UNDEFINED_LITERAL_STRING = "undefined"

	LANGUAGE_DIRECTIVE = "language"
	INCLUDE_DIRECTIVE  = "include"

	VARIABLE_PREFIX = '$'
	AT_MARKER       = '@'

	//number of spaces equivalent to a tab.
	INDENT_UNIT_SPACES = 4
)

var KEYWORDS = []string{
	DEFINITIONS_KEYWORD_STRING, NAMESPACE_KEYWORD_STRING, SCENE_KEYWORD_STRING,
	IF_KEYWORD_STRING, CHOICE_KEYWORD_STRING, ELSE_KEYWORD_STRING, WHILE_KEYWORD_STRING,
	CONTINUE_KEYWORD_STRING, BREAK_KEYWORD_STRING,
}

type TokenType uint8

const (
	INDENT TokenType = iota
	DEDENT
	KEYWORD
	NUMBER
	COLON
	IDENTIFIER
	VARIABLE_IDENTIFIER
	STRING
	EQUALS
	COMPARE_OPERATOR
	BINARY_OPERATOR
	CONJUNCTION_OPERATOR
	OPEN_PAREN
	CLOSE_PAREN
	END_OF_LINE
	TRUE
	FALSE
	UNDEFINED
	COMMA
	UNARY_MINUS
	UNARY_INVERT
	SPECIAL_ASSIGNMENT_OPERATOR
	OPEN_BRACKET
	CLOSE_BRACKET
)

var tokenTypeNames = [...]string{
	INDENT:                      "Indent",
	DEDENT:                      "Dedent",
	KEYWORD:                     "Keyword",
	NUMBER:                      "Number",
	COLON:                       "Colon",
	IDENTIFIER:                  "Identifier",
	VARIABLE_IDENTIFIER:         "VariableIdentifier",
	STRING:                      "String",
	EQUALS:                      "Equals",
	COMPARE_OPERATOR:            "CompareOperator",
	BINARY_OPERATOR:             "BinaryOperator",
	CONJUNCTION_OPERATOR:        "ConjunctionOperator",
	OPEN_PAREN:                  "OpenParen",
	CLOSE_PAREN:                 "CloseParen",
	END_OF_LINE:                 "EndOfLine",
	TRUE:                        "True",
	FALSE:                       "False",
	UNDEFINED:                   "Undefined",
	COMMA:                       "Comma",
	UNARY_MINUS:                 "UnaryMinus",
	UNARY_INVERT:                "UnaryInvert",
	SPECIAL_ASSIGNMENT_OPERATOR: "SpecialAssignmentOperator",
	OPEN_BRACKET:                "OpenBrack",
	CLOSE_BRACKET:               "CloseBrack",
}

func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return "TokenType(" + strconv.Itoa(int(t)) + ")"
}

type Token struct {
	Type    TokenType `json:"type"`
	Content string    `json:"content,omitempty"`
	Line    int       `json:"line"` //1-based

	//number of parameters of a call, only used during expression parsing.
	ParamCount int `json:"-"`
}

func (t Token) String() string {
	if t.Content == "" {
		return t.Type.String()
	}
	return t.Type.String() + "(" + strconv.Quote(t.Content) + ")"
}

// IsValueToken returns true for the tokens that can be converted to a literal Value.
func (t Token) IsValueToken() bool {
	switch t.Type {
	case NUMBER, STRING, VARIABLE_IDENTIFIER, TRUE, FALSE, UNDEFINED:
		return true
	}
	return false
}
