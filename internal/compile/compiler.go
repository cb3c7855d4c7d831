package compile

import (
	"fmt"
	"io"
	"strings"

	"github.com/colinator27/open-day-dialogue-compiler/internal/bytecode"
	"github.com/colinator27/open-day-dialogue-compiler/internal/parse"
	"github.com/colinator27/open-day-dialogue-compiler/internal/report"
)

const (
	SCENE_TRANSLATION_KEY_PREFIX       = "s:"
	DEFINITIONS_TRANSLATION_KEY_PREFIX = "d:"

	DUPLICATE_SCENE_MSG       = "Only one definition of a scene is permitted. Scene name: \"%s\""
	DUPLICATE_DEFINITION_MSG  = "Found duplicate definitions for %s"
	DUPLICATE_LABEL_MSG       = "Found duplicate label \"%s\" in scene \"%s\"."
	UNKNOWN_LABEL_MSG         = "Failed to find label with name \"%s\". Invalid jump statement."
	UNREGISTERED_LABEL_MSG    = "Somehow, the compiler failed to register a label ID for label \"%s\". This shouldn't happen."
	CROSS_SCENE_JUMP_MSG      = "Found a jump statement that jumps to a label from another scene."
	CONTROL_FLOW_OUTSIDE_LOOP = "Found a \"%s\" statement outside of a while loop."
	INVALID_CONTROL_FLOW_MSG  = "Invalid control flow keyword."
	INVALID_FUNCTION_MSG      = "Invalid function"
)

type Options struct {
	Reporter *report.Reporter

	// Translations is optional, if set all the scene texts, choice texts, definition values
	// and string values go through it.
	Translations TranslationProvider

	// EmitDebugInstructions makes the compiler emit a DebugLine instruction before each statement.
	EmitDebugInstructions bool

	TraceWriter io.Writer
}

// A Compiler generates the code of parsed files into a single program, the same compiler should be
// used for all the files of a program.
type Compiler struct {
	program      *bytecode.Program
	reporter     *report.Reporter
	translations TranslationProvider
	emitDebug    bool
	file         string

	namespaces   []string
	loops        []*loop
	loopIndex    int
	currentScene string

	labels      map[string]uint32 //scene:label -> label id
	labelScenes map[string]string //label name -> first scene defining the label
	sceneLabels map[string]struct{}

	trace  io.Writer
	indent int
}

// loop is used by the compiler to track the current while loop.
type loop struct {
	begin uint32
	end   uint32
}

func NewCompiler(program *bytecode.Program, opts Options) *Compiler {
	if program == nil {
		program = bytecode.NewProgram()
	}
	if opts.Reporter == nil {
		opts.Reporter = report.NewReporter()
	}

	return &Compiler{
		program:      program,
		reporter:     opts.Reporter,
		translations: opts.Translations,
		emitDebug:    opts.EmitDebugInstructions,
		loopIndex:    -1,
		labels:       map[string]uint32{},
		labelScenes:  map[string]string{},
		trace:        opts.TraceWriter,
	}
}

func (c *Compiler) Program() *bytecode.Program {
	return c.program
}

// SetFile sets the file whose AST is compiled by the next call to Compile, the file is
// passed to the translation provider.
func (c *Compiler) SetFile(file string) {
	c.file = file
}

// Compile generates the code of a parsed file. Errors are reported to the reporter, code generation
// stops at the first error of each statement.
func (c *Compiler) Compile(block *parse.Block) {
	c.namespaces = c.namespaces[:0]
	c.indexLabels(block)
	c.compileBlock(block)
}

func (c *Compiler) compileBlock(block *parse.Block) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		c.compileStatement(stmt)
	}
}

func (c *Compiler) compileStatement(stmt parse.Statement) {
	switch node := stmt.(type) {
	case *parse.Block:
		c.compileBlock(node)
	case *parse.Namespace:
		c.enterNamespace(node.Name)
		defer c.leaveNamespace()

		if c.trace != nil {
			c.printTrace("ENTER NAMESPACE", c.currentNamespace())
		}
		c.compileBlock(node.Block)
		if c.trace != nil {
			c.printTrace("LEAVE NAMESPACE", c.currentNamespace())
		}
	case *parse.DefinitionGroup:
		c.enterNamespace(node.Name)
		defer c.leaveNamespace()

		c.compileDefinitionGroup(node)
	case *parse.Scene:
		c.enterNamespace(node.Name)
		defer c.leaveNamespace()

		key := SCENE_TRANSLATION_KEY_PREFIX + c.currentNamespace()
		if c.translations != nil {
			c.translations.OpenScope(c.file, key)
		}

		if !c.compileScene(node) {
			return
		}

		if c.translations != nil {
			if err := c.translations.CloseScope(c.file, key); err != nil {
				c.error(err.Error(), node.Line)
			}
		}
	default:
		panic(fmt.Errorf("cannot compile %T", stmt))
	}
}

func (c *Compiler) compileDefinitionGroup(group *parse.DefinitionGroup) {
	namespace := c.currentNamespace()
	key := DEFINITIONS_TRANSLATION_KEY_PREFIX + namespace

	if c.translations != nil {
		c.translations.OpenScope(c.file, key)
	}

	for _, def := range group.Definitions {
		fullName := namespace + "." + def.Key

		keyID := c.program.RegisterString(fullName)
		if c.program.HasDefinition(keyID) {
			c.error(fmt.Sprintf(DUPLICATE_DEFINITION_MSG, fullName), def.Line)
			return
		}

		value, ok := c.translate(key, def.Value, def.Line)
		if !ok {
			return
		}

		c.program.AddDefinition(keyID, c.program.RegisterString(value))
	}

	if c.translations != nil {
		if err := c.translations.CloseScope(c.file, key); err != nil {
			c.error(err.Error(), group.Line)
		}
	}
}

func (c *Compiler) compileScene(scene *parse.Scene) bool {
	name := c.currentNamespace()

	nameID := c.program.RegisterString(name)
	if c.program.HasScene(nameID) {
		c.error(fmt.Sprintf(DUPLICATE_SCENE_MSG, name), scene.Line)
		return false
	}

	entryLabel := c.program.NextLabel()
	c.program.AddScene(nameID, entryLabel)

	if !c.allocateSceneLabels(name, scene) {
		return false
	}
	defer func() {
		c.currentScene = ""
		c.sceneLabels = nil
	}()

	if c.trace != nil {
		c.printTrace("ENTER SCENE", name)
		c.indent++
	}

	c.emit(bytecode.OpLabel, entryLabel)

	for _, stmt := range scene.Statements {
		c.compileSceneStatements(stmt)
	}

	c.emit(bytecode.OpExit)

	if c.trace != nil {
		c.indent--
		c.printTrace("LEAVE SCENE", name)
	}
	return true
}

func (c *Compiler) compileSceneStatements(statements ...parse.SceneStatement) {
	for _, stmt := range statements {
		c.compileSceneStatement(stmt)
	}
}

func (c *Compiler) compileSceneStatement(stmt parse.SceneStatement) {
	switch node := stmt.(type) {
	case *parse.TextStatement:
		text, ok := c.translate(c.sceneTranslationKey(), node.Text, node.Line)
		if !ok {
			return
		}
		c.emitDebugLine(node.Line)
		c.emit(bytecode.OpTextRun, c.program.RegisterString(text))
	case *parse.CommandStatement:
		argIDs := make([]uint32, 0, len(node.Args))
		for _, arg := range node.Args {
			id, ok := c.registerValue(arg, node.Line)
			if !ok {
				return
			}
			argIDs = append(argIDs, id)
		}

		commandID := c.program.RegisterCommand(bytecode.CommandCall{
			NameStringID: c.program.RegisterString(node.Name),
			ArgValueIDs:  argIDs,
		})

		c.emitDebugLine(node.Line)
		c.emit(bytecode.OpCommandRun, commandID)
	case *parse.SpecialNameStatement:
		c.compileSceneStatements(node.Command, node.Text)
	case *parse.VariableAssignment:
		c.emitDebugLine(node.Line)
		nameID := c.program.RegisterString(node.Name)

		if node.Index == nil {
			if !c.compileExpression(node.Value) {
				return
			}
			c.emit(bytecode.OpSetVariable, nameID)
			return
		}

		//array element
		index, value := node.Index, node.Value
		if read, ok := compoundElementRead(node); ok && hasUserCall(index) {
			//the element is read and written, user functions in the index are only called once
			if !c.compileExpression(index) {
				return
			}
			c.emit(bytecode.OpSetVariable, c.program.RegisterString(INDEX_TEMPORARY_VARIABLE))
			index, value = withTemporaryIndex(read, value.(*parse.CallExpression))
		}

		c.emitPush(bytecode.VariableValue(nameID))
		if !c.compileExpression(index) || !c.compileExpression(value) {
			return
		}
		c.emitCall(SET_INDEX_FUNCTION_NAME, 3)
		c.emit(bytecode.OpSetVariable, nameID)
	case *parse.IfStatement:
		c.compileIfStatement(node)
	case *parse.ChoiceStatement:
		c.compileChoiceStatement(node)
	case *parse.LabelStatement:
		c.emitDebugLine(node.Line)

		id, ok := c.labels[labelKey(c.currentScene, node.Name)]
		if !ok {
			c.error(fmt.Sprintf(UNREGISTERED_LABEL_MSG, node.Name), node.Line)
			return
		}
		c.emit(bytecode.OpLabel, id)
	case *parse.JumpStatement:
		c.emitDebugLine(node.Line)

		id, ok := c.jumpTarget(node)
		if !ok {
			return
		}
		c.emit(bytecode.OpJump, id)
	case *parse.WhileLoop:
		c.emitDebugLine(node.Line)

		begin := c.program.NextLabel()
		end := c.program.NextLabel()

		c.enterLoop(begin, end)
		defer c.leaveLoop()

		c.emit(bytecode.OpLabel, begin)
		if !c.compileExpression(node.Condition) {
			return
		}
		c.emit(bytecode.OpJumpFalse, end)

		c.compileSceneStatements(node.Statements...)

		c.emit(bytecode.OpJump, begin)
		c.emit(bytecode.OpLabel, end)
	case *parse.ControlFlowStatement:
		c.emitDebugLine(node.Line)

		loop := c.currentLoop()
		if loop == nil {
			c.error(fmt.Sprintf(CONTROL_FLOW_OUTSIDE_LOOP, node.Keyword), node.Line)
			return
		}

		switch node.Keyword {
		case parse.CONTINUE_KEYWORD_STRING:
			c.emit(bytecode.OpJump, loop.begin)
		case parse.BREAK_KEYWORD_STRING:
			c.emit(bytecode.OpJump, loop.end)
		default:
			c.error(INVALID_CONTROL_FLOW_MSG, node.Line)
		}
	default:
		panic(fmt.Errorf("cannot compile %T", stmt))
	}
}

// compileIfStatement allocates one label per clause, the label of the last clause is the end
// of the statement.
func (c *Compiler) compileIfStatement(stmt *parse.IfStatement) {
	labels := make([]uint32, len(stmt.Clauses))
	for i := range stmt.Clauses {
		labels[i] = c.program.NextLabel()
	}
	endLabel := labels[len(labels)-1]

	c.emitDebugLine(stmt.Line)

	for i, clause := range stmt.Clauses {
		if clause.Condition == nil {
			//else clause
			c.compileSceneStatements(clause.Statements...)
		} else {
			if !c.compileExpression(clause.Condition) {
				return
			}
			c.emit(bytecode.OpJumpFalse, labels[i])

			c.compileSceneStatements(clause.Statements...)

			if i != len(stmt.Clauses)-1 {
				c.emit(bytecode.OpJump, endLabel)
			}
		}
		c.emit(bytecode.OpLabel, labels[i])
	}
}

func (c *Compiler) compileChoiceStatement(stmt *parse.ChoiceStatement) {
	c.emitDebugLine(stmt.Line)
	c.emit(bytecode.OpBeginChoice)

	endLabel := c.program.NextLabel()
	labels := make([]uint32, len(stmt.Choices))
	for i := range stmt.Choices {
		labels[i] = c.program.NextLabel()
	}

	key := c.sceneTranslationKey()

	for i, choice := range stmt.Choices {
		if choice.Condition != nil && !c.compileExpression(choice.Condition) {
			return
		}

		text, ok := c.translate(key, choice.Text, choice.Line)
		if !ok {
			return
		}
		textID := c.program.RegisterString(text)

		if choice.Condition != nil {
			c.emit(bytecode.OpChoiceTrue, textID, labels[i])
		} else {
			c.emit(bytecode.OpChoice, textID, labels[i])
		}
	}

	c.emit(bytecode.OpChoiceSelection, endLabel)

	for i, choice := range stmt.Choices {
		c.emit(bytecode.OpLabel, labels[i])
		c.compileSceneStatements(choice.Statements...)
		c.emit(bytecode.OpJump, endLabel)
	}

	c.emit(bytecode.OpLabel, endLabel)
}

func (c *Compiler) enterNamespace(name string) {
	c.namespaces = append(c.namespaces, name)
}

func (c *Compiler) leaveNamespace() {
	c.namespaces = c.namespaces[:len(c.namespaces)-1]
}

// currentNamespace returns the dot-separated namespace path, including the current scene
// or definition group.
func (c *Compiler) currentNamespace() string {
	return strings.Join(c.namespaces, ".")
}

func (c *Compiler) sceneTranslationKey() string {
	return SCENE_TRANSLATION_KEY_PREFIX + c.currentNamespace()
}

func (c *Compiler) enterLoop(begin, end uint32) *loop {
	loop := &loop{begin: begin, end: end}
	c.loops = append(c.loops, loop)
	c.loopIndex++
	if c.trace != nil {
		c.printTrace("ENTER LOOP", c.loopIndex)
		c.indent++
	}
	return loop
}

func (c *Compiler) leaveLoop() {
	if c.trace != nil {
		c.indent--
		c.printTrace("LEAVE LOOP", c.loopIndex)
	}
	c.loops = c.loops[:len(c.loops)-1]
	c.loopIndex--
}

func (c *Compiler) currentLoop() *loop {
	if c.loopIndex >= 0 {
		return c.loops[c.loopIndex]
	}
	return nil
}

func (c *Compiler) emit(op bytecode.Opcode, operands ...uint32) int {
	pos := c.program.Emit(op, operands...)
	if c.trace != nil {
		c.printTrace(fmt.Sprintf("%04d", pos), c.program.FormatInstruction(c.program.Instructions[pos]))
	}
	return pos
}

func (c *Compiler) emitDebugLine(line int) {
	if c.emitDebug && line > 0 {
		c.emit(bytecode.OpDebugLine, uint32(line))
	}
}

func (c *Compiler) emitPush(v bytecode.Value) {
	c.emit(bytecode.OpPush, c.program.RegisterValue(v))
}

func (c *Compiler) error(msg string, line int) {
	c.reporter.Report(msg, line, report.ErrorDeadly, report.COMPILER_MODULE, c.currentNamespace())
}

func (c *Compiler) warn(msg string, line int) {
	c.reporter.Warn(msg, line, report.COMPILER_MODULE, c.currentNamespace())
}

func (c *Compiler) printTrace(a ...any) {
	var (
		dots = strings.Repeat(". ", 31)
		n    = len(dots)
	)

	i := 2 * c.indent
	for i > n {
		fmt.Fprint(c.trace, dots)
		i -= n
	}

	fmt.Fprint(c.trace, dots[0:i])
	fmt.Fprintln(c.trace, a...)
}
