package parse

import (
	"fmt"

	"github.com/colinator27/open-day-dialogue-compiler/internal/report"
)

const (
	NO_STATEMENT_MSG            = "Unable to find any statement to parse!"
	NO_SCENE_STATEMENT_MSG      = "Unable to find any scene statement to parse!"
	UNEXPECTED_END_OF_CODE_MSG  = "Unexpected end of code."
	IMPROPER_COMMAND_ARGUMENT   = "Improper token for command argument."
	EXPECTED_EXPRESSION_MSG     = "Expected expression, but none found."
	INVALID_NUMBER_LITERAL_MSG  = "Invalid number literal."
	INT32_OUT_OF_RANGE_MSG      = "Number literal out of range for Int32."
	UNSUPPORTED_SPECIAL_COMMAND = "Unsupported special command for operator \"%s\"."
)

// parser consumes the tokens front to back. The lookahead helpers skip END_OF_LINE tokens
// unless an END_OF_LINE is expected.
type parser struct {
	tokens      []Token
	i           int
	reporter    *report.Reporter
	currentItem string //name of the enclosing scene or definition group
}

// Parse builds the AST of a file, it never fails: errors are reported as deadly errors and the
// parser resynchronizes so that independent errors are all reported. The returned block may be
// partial.
func Parse(tokens []Token, reporter *report.Reporter) *Block {
	if reporter == nil {
		reporter = report.NewReporter()
	}

	p := &parser{
		tokens:   tokens,
		reporter: reporter,
	}

	return p.parseRootBlock()
}

func (p *parser) atEnd() bool {
	return p.i >= len(p.tokens)
}

func (p *parser) peek() (Token, bool) {
	if p.atEnd() {
		return Token{}, false
	}
	return p.tokens[p.i], true
}

func (p *parser) peekType() (TokenType, bool) {
	if p.atEnd() {
		return 0, false
	}
	return p.tokens[p.i].Type, true
}

func (p *parser) next() Token {
	t := p.tokens[p.i]
	p.i++
	return t
}

func (p *parser) skipEndOfLines() {
	for !p.atEnd() && p.tokens[p.i].Type == END_OF_LINE {
		p.i++
	}
}

func (p *parser) currentLine() int {
	if t, ok := p.peek(); ok {
		return t.Line
	}
	if len(p.tokens) > 0 {
		return p.tokens[len(p.tokens)-1].Line
	}
	return -1
}

func (p *parser) error(msg string, line int) {
	p.reporter.Report(msg, line, report.ErrorDeadly, report.PARSER_MODULE, p.currentItem)
}

// errorSync reports an error and resynchronizes.
func (p *parser) errorSync(msg string, line int) {
	p.error(msg, line)
	p.synchronize()
}

// synchronize discards tokens until an END_OF_LINE or a KEYWORD.
func (p *parser) synchronize() {
	for !p.atEnd() {
		switch p.tokens[p.i].Type {
		case END_OF_LINE, KEYWORD:
			return
		}
		p.i++
	}
}

// isNext returns true if the next token has one of the given types.
func (p *parser) isNext(types ...TokenType) bool {
	if !containsType(types, END_OF_LINE) {
		p.skipEndOfLines()
	}
	return p.isNextOnLine(types...)
}

// isNextOnLine is like isNext but does not skip END_OF_LINE tokens.
func (p *parser) isNextOnLine(types ...TokenType) bool {
	t, ok := p.peekType()
	return ok && containsType(types, t)
}

func (p *parser) isNextKeyword(keyword string) bool {
	return p.isNext(KEYWORD) && p.tokens[p.i].Content == keyword
}

// areNext returns true if the next tokens have the given types in order, it does not consume anything.
func (p *parser) areNext(types ...TokenType) bool {
	j := p.i
	for _, expected := range types {
		if expected != END_OF_LINE {
			for j < len(p.tokens) && p.tokens[j].Type == END_OF_LINE {
				j++
			}
		}
		if j >= len(p.tokens) || p.tokens[j].Type != expected {
			return false
		}
		j++
	}
	return true
}

// isTokenAfterNext returns true if the token following the next token has the given type.
func (p *parser) isTokenAfterNext(tokenType TokenType) bool {
	if tokenType != END_OF_LINE {
		p.skipEndOfLines()
	}
	return p.i+1 < len(p.tokens) && p.tokens[p.i+1].Type == tokenType
}

// ensureToken consumes the next token if it has the expected type, END_OF_LINE tokens are skipped if
// the expected type is not END_OF_LINE.
func (p *parser) ensureToken(tokenType TokenType) (Token, bool) {
	if tokenType != END_OF_LINE {
		p.skipEndOfLines()
	}
	return p.ensureTokenOnLine(tokenType)
}

func (p *parser) ensureTokenOnLine(tokenType TokenType) (Token, bool) {
	t, ok := p.peek()
	if !ok {
		p.error(UNEXPECTED_END_OF_CODE_MSG, -1)
		return Token{}, false
	}
	if t.Type != tokenType {
		p.errorSync(fmt.Sprintf("Expected token of type %s, got %s.", tokenType, t.Type), t.Line)
		return Token{}, false
	}
	return p.next(), true
}

func (p *parser) ensureKeyword(keyword string) (Token, bool) {
	t, ok := p.ensureToken(KEYWORD)
	if !ok {
		return Token{}, false
	}
	if t.Content != keyword {
		p.i--
		p.errorSync(fmt.Sprintf("Expected token of content \"%s\", got \"%s\".", keyword, t.Content), t.Line)
		return Token{}, false
	}
	return t, true
}

// ensureEndOfLine consumes the END_OF_LINE token ending a statement, the end of the tokens
// also ends a statement.
func (p *parser) ensureEndOfLine() bool {
	if p.atEnd() {
		return true
	}
	_, ok := p.ensureTokenOnLine(END_OF_LINE)
	return ok
}

func containsType(types []TokenType, t TokenType) bool {
	for _, typ := range types {
		if typ == t {
			return true
		}
	}
	return false
}

func (p *parser) setCurrentItem(item string) (restore func()) {
	prev := p.currentItem
	p.currentItem = item
	return func() {
		p.currentItem = prev
	}
}

// statementOrNil converts a nil node pointer to a nil Statement, failed statements are not
// added to the AST.
func statementOrNil[N any, P interface {
	*N
	Statement
}](node P) Statement {
	if node == nil {
		return nil
	}
	return node
}

func sceneStatementOrNil[N any, P interface {
	*N
	SceneStatement
}](node P) SceneStatement {
	if node == nil {
		return nil
	}
	return node
}

func (p *parser) parseRootBlock() *Block {
	block := &Block{NodeBase: NodeBase{Line: 1}}

	for {
		p.skipEndOfLines()
		if p.atEnd() {
			break
		}

		start := p.i
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.ensureProgress(start)
	}

	return block
}

// ensureProgress drops a token if a statement failed without consuming anything.
func (p *parser) ensureProgress(start int) {
	if p.i == start && !p.atEnd() {
		p.i++
	}
}

func (p *parser) parseStatement() Statement {
	switch {
	case p.isNext(INDENT):
		return statementOrNil(p.parseBlock())
	case p.isNextKeyword(DEFINITIONS_KEYWORD_STRING):
		return statementOrNil(p.parseDefinitionGroup())
	case p.isNextKeyword(NAMESPACE_KEYWORD_STRING):
		return statementOrNil(p.parseNamespace())
	case p.isNextKeyword(SCENE_KEYWORD_STRING):
		return statementOrNil(p.parseScene())
	default:
		p.errorSync(NO_STATEMENT_MSG, p.currentLine())
		return nil
	}
}

// parseBlock parses an indented block of statements.
func (p *parser) parseBlock() *Block {
	indent, ok := p.ensureToken(INDENT)
	if !ok {
		return nil
	}

	block := &Block{NodeBase: NodeBase{Line: indent.Line}}

	for !p.atEnd() && !p.isNext(DEDENT) {
		start := p.i
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.ensureProgress(start)
	}

	p.ensureToken(DEDENT)
	return block
}

func (p *parser) parseDefinitionGroup() *DefinitionGroup {
	keyword, ok := p.ensureKeyword(DEFINITIONS_KEYWORD_STRING)
	if !ok {
		return nil
	}

	name, ok := p.ensureToken(IDENTIFIER)
	if !ok {
		return nil
	}

	defer p.setCurrentItem(name.Content)()

	group := &DefinitionGroup{
		NodeBase: NodeBase{Line: keyword.Line},
		Name:     name.Content,
	}

	if _, ok := p.ensureToken(COLON); !ok {
		return nil
	}
	if _, ok := p.ensureToken(INDENT); !ok {
		return nil
	}

	for !p.atEnd() && !p.isNext(DEDENT) {
		start := p.i
		if def := p.parseTextDefinition(); def != nil {
			group.Definitions = append(group.Definitions, def)
		}
		p.ensureProgress(start)
	}

	p.ensureToken(DEDENT)
	return group
}

func (p *parser) parseTextDefinition() *TextDefinition {
	key, ok := p.ensureToken(IDENTIFIER)
	if !ok {
		return nil
	}
	if _, ok := p.ensureToken(EQUALS); !ok {
		return nil
	}
	value, ok := p.ensureToken(STRING)
	if !ok {
		return nil
	}
	if !p.ensureEndOfLine() {
		return nil
	}

	return &TextDefinition{
		NodeBase: NodeBase{Line: key.Line},
		Key:      key.Content,
		Value:    value.Content,
	}
}

func (p *parser) parseNamespace() *Namespace {
	keyword, ok := p.ensureKeyword(NAMESPACE_KEYWORD_STRING)
	if !ok {
		return nil
	}
	name, ok := p.ensureToken(IDENTIFIER)
	if !ok {
		return nil
	}
	if _, ok := p.ensureToken(COLON); !ok {
		return nil
	}

	block := p.parseBlock()
	if block == nil {
		return nil
	}

	return &Namespace{
		NodeBase: NodeBase{Line: keyword.Line},
		Name:     name.Content,
		Block:    block,
	}
}

func (p *parser) parseScene() *Scene {
	keyword, ok := p.ensureKeyword(SCENE_KEYWORD_STRING)
	if !ok {
		return nil
	}
	name, ok := p.ensureToken(IDENTIFIER)
	if !ok {
		return nil
	}

	defer p.setCurrentItem(name.Content)()

	if _, ok := p.ensureToken(COLON); !ok {
		return nil
	}

	statements, ok := p.parseSceneBody()
	if !ok && statements == nil {
		return nil
	}

	return &Scene{
		NodeBase:   NodeBase{Line: keyword.Line},
		Name:       name.Content,
		Statements: statements,
	}
}

// parseSceneBody parses an indented sequence of scene statements.
func (p *parser) parseSceneBody() ([]SceneStatement, bool) {
	if _, ok := p.ensureToken(INDENT); !ok {
		return nil, false
	}

	statements := []SceneStatement{}

	for !p.atEnd() && !p.isNext(DEDENT) {
		start := p.i
		if stmt := p.parseSceneStatement(); stmt != nil {
			statements = append(statements, stmt)
		}
		p.ensureProgress(start)
	}

	_, ok := p.ensureToken(DEDENT)
	return statements, ok
}

func (p *parser) parseSceneStatement() SceneStatement {
	switch {
	case p.isNext(STRING) && !p.isTokenAfterNext(COLON):
		return sceneStatementOrNil(p.parseText())
	case p.areNext(IDENTIFIER, COLON, END_OF_LINE):
		return sceneStatementOrNil(p.parseLabel())
	case p.areNext(IDENTIFIER, COLON, STRING):
		return sceneStatementOrNil(p.parseSpecialName())
	case p.areNext(COLON, IDENTIFIER, END_OF_LINE):
		return sceneStatementOrNil(p.parseJump())
	case p.isNext(COMPARE_OPERATOR):
		return sceneStatementOrNil(p.parseSpecialCommand())
	case p.isNext(IDENTIFIER):
		return sceneStatementOrNil(p.parseCommand())
	case p.isNext(VARIABLE_IDENTIFIER):
		return sceneStatementOrNil(p.parseVariableAssignment())
	case p.isNextKeyword(IF_KEYWORD_STRING):
		return sceneStatementOrNil(p.parseIfStatement())
	case p.isNextKeyword(CHOICE_KEYWORD_STRING) || p.areNext(STRING, COLON):
		return sceneStatementOrNil(p.parseChoiceStatement())
	case p.isNextKeyword(WHILE_KEYWORD_STRING):
		return sceneStatementOrNil(p.parseWhileLoop())
	case p.isNextKeyword(CONTINUE_KEYWORD_STRING) || p.isNextKeyword(BREAK_KEYWORD_STRING):
		return sceneStatementOrNil(p.parseControlFlow())
	default:
		p.errorSync(NO_SCENE_STATEMENT_MSG, p.currentLine())
		return nil
	}
}

func (p *parser) parseText() *TextStatement {
	t, ok := p.ensureToken(STRING)
	if !ok {
		return nil
	}
	if !p.ensureEndOfLine() {
		return nil
	}
	return &TextStatement{NodeBase: NodeBase{Line: t.Line}, Text: t.Content}
}

func (p *parser) parseLabel() *LabelStatement {
	name, ok := p.ensureToken(IDENTIFIER)
	if !ok {
		return nil
	}
	if _, ok := p.ensureToken(COLON); !ok {
		return nil
	}
	if !p.ensureEndOfLine() {
		return nil
	}
	return &LabelStatement{NodeBase: NodeBase{Line: name.Line}, Name: name.Content}
}

func (p *parser) parseSpecialName() *SpecialNameStatement {
	name, ok := p.ensureToken(IDENTIFIER)
	if !ok {
		return nil
	}
	if _, ok := p.ensureToken(COLON); !ok {
		return nil
	}
	dialogue, ok := p.ensureToken(STRING)
	if !ok {
		return nil
	}
	if !p.ensureEndOfLine() {
		return nil
	}

	base := NodeBase{Line: name.Line}

	return &SpecialNameStatement{
		NodeBase: base,
		Command: &CommandStatement{
			NodeBase: base,
			Name:     CHAR_COMMAND_NAME,
			Args:     []Value{RawIdentifierValue(name.Content)},
		},
		Text: &TextStatement{NodeBase: base, Text: dialogue.Content},
	}
}

func (p *parser) parseJump() *JumpStatement {
	colon, ok := p.ensureToken(COLON)
	if !ok {
		return nil
	}
	label, ok := p.ensureToken(IDENTIFIER)
	if !ok {
		return nil
	}
	if !p.ensureEndOfLine() {
		return nil
	}
	return &JumpStatement{NodeBase: NodeBase{Line: colon.Line}, Label: label.Content}
}

// parseSpecialCommand parses the `> target` and `<` shorthands.
func (p *parser) parseSpecialCommand() *CommandStatement {
	op, ok := p.ensureToken(COMPARE_OPERATOR)
	if !ok {
		return nil
	}

	cmd := &CommandStatement{NodeBase: NodeBase{Line: op.Line}}

	switch op.Content {
	case ">":
		cmd.Name = GOTO_COMMAND_NAME
	case "<":
		cmd.Name = EXIT_COMMAND_NAME
	default:
		p.errorSync(fmt.Sprintf(UNSUPPORTED_SPECIAL_COMMAND, op.Content), op.Line)
		return nil
	}

	if p.isNextOnLine(IDENTIFIER) {
		cmd.Args = append(cmd.Args, RawIdentifierValue(p.next().Content))
	}

	if !p.ensureEndOfLine() {
		return nil
	}
	return cmd
}

func (p *parser) parseCommand() *CommandStatement {
	name, ok := p.ensureToken(IDENTIFIER)
	if !ok {
		return nil
	}

	cmd := &CommandStatement{
		NodeBase: NodeBase{Line: name.Line},
		Name:     name.Content,
		Args:     []Value{},
	}

	for !p.atEnd() && !p.isNextOnLine(END_OF_LINE) {
		t := p.tokens[p.i]

		switch {
		case t.Type == IDENTIFIER:
			p.i++
			cmd.Args = append(cmd.Args, RawIdentifierValue(t.Content))
		case t.IsValueToken():
			p.i++
			v, ok := p.valueFromToken(t)
			if !ok {
				return nil
			}
			cmd.Args = append(cmd.Args, v)
		case t.Type == BINARY_OPERATOR && t.Content == "-" && p.i+1 < len(p.tokens) && p.tokens[p.i+1].Type == NUMBER:
			//negative number literal
			p.i++
			number := p.next()
			number.Content = "-" + number.Content
			v, ok := p.valueFromToken(number)
			if !ok {
				return nil
			}
			cmd.Args = append(cmd.Args, v)
		default:
			p.errorSync(IMPROPER_COMMAND_ARGUMENT, t.Line)
			return nil
		}
	}

	if !p.ensureEndOfLine() {
		return nil
	}
	return cmd
}

var specialAssignmentFunctions = map[string]string{
	"+=": "+",
	"-=": "-",
	"*=": "*",
	"/=": "/",
	"%=": "%",
	"++": "+",
	"--": "-",
}

// parseVariableAssignment parses `$name = expr`, `$name[index] = expr` and the special assignments,
// `$name op= expr` becomes `$name = $name op expr` and `$name++` becomes `$name = $name + 1`.
func (p *parser) parseVariableAssignment() *VariableAssignment {
	name, ok := p.ensureToken(VARIABLE_IDENTIFIER)
	if !ok {
		return nil
	}

	assignment := &VariableAssignment{
		NodeBase: NodeBase{Line: name.Line},
		Name:     name.Content,
	}

	if p.isNextOnLine(OPEN_BRACKET) {
		p.i++
		assignment.Index = p.parseExpression()
		if assignment.Index == nil {
			return nil
		}
		if _, ok := p.ensureTokenOnLine(CLOSE_BRACKET); !ok {
			return nil
		}
	}

	if p.isNextOnLine(EQUALS) {
		p.i++
		assignment.Value = p.parseExpression()
		if assignment.Value == nil {
			return nil
		}
	} else {
		op, ok := p.ensureTokenOnLine(SPECIAL_ASSIGNMENT_OPERATOR)
		if !ok {
			return nil
		}

		var other Expression
		switch op.Content {
		case "++", "--":
			other = &ValueExpression{NodeBase: NodeBase{Line: op.Line}, Value: Int32Value(1)}
		default:
			other = p.parseExpression()
			if other == nil {
				return nil
			}
		}

		current := &ValueExpression{
			NodeBase:   NodeBase{Line: name.Line},
			Value:      VariableValue(name.Content),
			ArrayIndex: assignment.Index,
		}

		assignment.Value = &CallExpression{
			NodeBase:   NodeBase{Line: op.Line},
			Function:   BUILTIN_FUNCTIONS[specialAssignmentFunctions[op.Content]],
			Parameters: []Expression{current, other},
		}
	}

	if !p.ensureEndOfLine() {
		return nil
	}
	return assignment
}

func (p *parser) parseIfStatement() *IfStatement {
	keyword, ok := p.ensureKeyword(IF_KEYWORD_STRING)
	if !ok {
		return nil
	}

	stmt := &IfStatement{NodeBase: NodeBase{Line: keyword.Line}}

	mainClause, ok := p.parseConditionalClause(keyword.Line)
	if !ok {
		return nil
	}
	stmt.Clauses = append(stmt.Clauses, mainClause)

	for p.isNextKeyword(ELSE_KEYWORD_STRING) {
		elseKeyword := p.next()

		if p.isNextKeyword(IF_KEYWORD_STRING) {
			p.i++
			clause, ok := p.parseConditionalClause(elseKeyword.Line)
			if !ok {
				return nil
			}
			stmt.Clauses = append(stmt.Clauses, clause)
			continue
		}

		//final else clause
		if _, ok := p.ensureToken(COLON); !ok {
			return nil
		}
		statements, ok := p.parseSceneBody()
		if !ok {
			return nil
		}
		stmt.Clauses = append(stmt.Clauses, &Clause{
			NodeBase:   NodeBase{Line: elseKeyword.Line},
			Statements: statements,
		})
		break
	}

	return stmt
}

// parseConditionalClause parses `<condition> ":" <body>`.
func (p *parser) parseConditionalClause(line int) (*Clause, bool) {
	condition := p.parseExpression()
	if condition == nil {
		return nil, false
	}
	if _, ok := p.ensureToken(COLON); !ok {
		return nil, false
	}
	statements, ok := p.parseSceneBody()
	if !ok {
		return nil, false
	}
	return &Clause{
		NodeBase:   NodeBase{Line: line},
		Condition:  condition,
		Statements: statements,
	}, true
}

// parseChoiceStatement parses a `choice:` block or a sequence of inline choices.
func (p *parser) parseChoiceStatement() *ChoiceStatement {
	stmt := &ChoiceStatement{NodeBase: NodeBase{Line: p.currentLine()}}

	if p.isNext(KEYWORD) {
		if _, ok := p.ensureKeyword(CHOICE_KEYWORD_STRING); !ok {
			return nil
		}
		if _, ok := p.ensureToken(COLON); !ok {
			return nil
		}
		if _, ok := p.ensureToken(INDENT); !ok {
			return nil
		}

		for !p.atEnd() && !p.isNext(DEDENT) {
			start := p.i
			choice, ok := p.parseChoice()
			if !ok {
				p.ensureProgress(start)
				continue
			}
			stmt.Choices = append(stmt.Choices, choice)
		}

		if _, ok := p.ensureToken(DEDENT); !ok {
			return nil
		}
		return stmt
	}

	for !p.atEnd() && p.areNext(STRING, COLON) {
		choice, ok := p.parseChoice()
		if !ok {
			return nil
		}
		stmt.Choices = append(stmt.Choices, choice)
	}

	return stmt
}

// parseChoice parses `"text" ":" [if <condition>] <body>`.
func (p *parser) parseChoice() (*Choice, bool) {
	text, ok := p.ensureToken(STRING)
	if !ok {
		return nil, false
	}
	if _, ok := p.ensureToken(COLON); !ok {
		return nil, false
	}

	choice := &Choice{
		NodeBase: NodeBase{Line: text.Line},
		Text:     text.Content,
	}

	if p.isNextOnLine(KEYWORD) && p.tokens[p.i].Content == IF_KEYWORD_STRING {
		p.i++
		choice.Condition = p.parseExpression()
		if choice.Condition == nil {
			return nil, false
		}
	}

	choice.Statements, ok = p.parseSceneBody()
	if !ok {
		return nil, false
	}
	return choice, true
}

func (p *parser) parseWhileLoop() *WhileLoop {
	keyword, ok := p.ensureKeyword(WHILE_KEYWORD_STRING)
	if !ok {
		return nil
	}
	condition := p.parseExpression()
	if condition == nil {
		return nil
	}
	if _, ok := p.ensureToken(COLON); !ok {
		return nil
	}
	statements, ok := p.parseSceneBody()
	if !ok {
		return nil
	}
	return &WhileLoop{
		NodeBase:   NodeBase{Line: keyword.Line},
		Condition:  condition,
		Statements: statements,
	}
}

func (p *parser) parseControlFlow() *ControlFlowStatement {
	keyword, ok := p.ensureToken(KEYWORD)
	if !ok {
		return nil
	}
	if !p.ensureEndOfLine() {
		return nil
	}
	return &ControlFlowStatement{NodeBase: NodeBase{Line: keyword.Line}, Keyword: keyword.Content}
}
