package compile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/colinator27/open-day-dialogue-compiler/internal/bytecode"
	"github.com/colinator27/open-day-dialogue-compiler/internal/parse"
	"github.com/colinator27/open-day-dialogue-compiler/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inst = bytecode.MakeInstruction

func joinLines(lines ...string) string {
	return strings.Join(lines, "\n")
}

func compileSource(t *testing.T, source string, opts Options) (*bytecode.Program, *report.Reporter) {
	t.Helper()

	if opts.Reporter == nil {
		opts.Reporter = report.NewReporter()
	}
	reporter := opts.Reporter

	block := parse.Parse(parse.Lex(source, parse.LexerOptions{Reporter: reporter}), reporter)
	require.True(t, reporter.CanContinue(), "%v", reporter.Errors())

	program := bytecode.NewProgram()
	compiler := NewCompiler(program, opts)
	compiler.SetFile("main.opd")
	compiler.Compile(block)

	return program, reporter
}

func expectBytecode(t *testing.T, source string, expectedInstructions []bytecode.Instruction, expectedValues []bytecode.Value) *bytecode.Program {
	t.Helper()

	var trace bytes.Buffer
	program, reporter := compileSource(t, source, Options{TraceWriter: &trace})
	defer func() {
		if t.Failed() {
			t.Log(trace.String())
		}
	}()

	require.Empty(t, reporter.Errors())
	if expectedInstructions != nil {
		assert.Equal(t, expectedInstructions, program.Instructions)
	}
	switch {
	case expectedValues == nil:
	case len(expectedValues) == 0:
		assert.Empty(t, program.Values())
	default:
		assert.Equal(t, expectedValues, program.Values())
	}
	return program
}

func expectCompileError(t *testing.T, source string, message string) report.CodeError {
	t.Helper()

	_, reporter := compileSource(t, source, Options{})
	codeErrors := reporter.Errors()
	require.NotEmpty(t, codeErrors)

	err := codeErrors[len(codeErrors)-1]
	assert.Equal(t, message, err.Message)
	assert.Equal(t, report.ErrorDeadly, err.Severity)
	assert.Equal(t, report.COMPILER_MODULE, err.Module)
	assert.False(t, reporter.CanContinue())
	return err
}

func stringOf(t *testing.T, program *bytecode.Program, id uint32) string {
	t.Helper()
	s, ok := program.StringContent(id)
	require.True(t, ok)
	return s
}

func TestCompileScenes(t *testing.T) {

	t.Run("empty scene", func(t *testing.T) {
		program := expectBytecode(t, "scene a:\n\t<\n", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpCommandRun, 0),
			inst(bytecode.OpExit),
		}, []bytecode.Value{})

		assert.Equal(t, []bytecode.Scene{{NameStringID: 0, LabelID: 0}}, program.Scenes())
		assert.Equal(t, "a", stringOf(t, program, 0))
		assert.Equal(t, uint32(1), program.LabelCount())
	})

	t.Run("scenes are qualified by their namespaces", func(t *testing.T) {
		program := expectBytecode(t, joinLines(
			"namespace ns:",
			"\tnamespace inner:",
			"\t\tscene a:",
			"\t\t\t\"hi\"",
			"\tscene b:",
			"\t\t\"yo\"",
		), []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpTextRun, 1),
			inst(bytecode.OpExit),
			inst(bytecode.OpLabel, 1),
			inst(bytecode.OpTextRun, 3),
			inst(bytecode.OpExit),
		}, nil)

		scenes := program.Scenes()
		require.Len(t, scenes, 2)
		assert.Equal(t, "ns.inner.a", stringOf(t, program, scenes[0].NameStringID))
		assert.Equal(t, "ns.b", stringOf(t, program, scenes[1].NameStringID))
	})

	t.Run("duplicate scene", func(t *testing.T) {
		err := expectCompileError(t, "namespace n:\n\tscene a:\n\t\t\"x\"\n\tscene a:\n\t\t\"y\"", `Only one definition of a scene is permitted. Scene name: "n.a"`)
		assert.Equal(t, "4", err.Line)
		assert.Equal(t, "n.a", err.ItemName)
	})

	t.Run("scenes of a namespace opened twice", func(t *testing.T) {
		program, reporter := compileSource(t, "namespace n:\n\tscene a:\n\t\t<\nnamespace n:\n\tscene b:\n\t\t<", Options{})
		require.Empty(t, reporter.Errors())
		assert.Len(t, program.Scenes(), 2)
	})

	t.Run("debug instructions", func(t *testing.T) {
		program, reporter := compileSource(t, "scene s:\n\t\"a\"\n\n\t$x = 1", Options{EmitDebugInstructions: true})
		require.Empty(t, reporter.Errors())

		assert.Equal(t, []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpDebugLine, 2),
			inst(bytecode.OpTextRun, 1),
			inst(bytecode.OpDebugLine, 4),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpSetVariable, 2),
			inst(bytecode.OpExit),
		}, program.Instructions)
	})

	t.Run("trace", func(t *testing.T) {
		var trace bytes.Buffer
		_, reporter := compileSource(t, "scene s:\n\twhile true:\n\t\tbreak", Options{TraceWriter: &trace})
		require.Empty(t, reporter.Errors())

		assert.Contains(t, trace.String(), "ENTER SCENE s")
		assert.Contains(t, trace.String(), ". ENTER LOOP 0")
		assert.Contains(t, trace.String(), "LEAVE SCENE s")
	})
}

func TestCompileDefinitions(t *testing.T) {

	t.Run("definitions are qualified by the group name", func(t *testing.T) {
		program := expectBytecode(t, "namespace n:\n\tdefinitions names:\n\t\tbob = \"Bob\"\n\t\talice = \"Alice\"", nil, []bytecode.Value{})

		defs := program.Definitions()
		require.Len(t, defs, 2)
		assert.Equal(t, "n.names.bob", stringOf(t, program, defs[0].KeyStringID))
		assert.Equal(t, "Bob", stringOf(t, program, defs[0].ValueStringID))
		assert.Equal(t, "n.names.alice", stringOf(t, program, defs[1].KeyStringID))
		assert.Equal(t, "Alice", stringOf(t, program, defs[1].ValueStringID))
	})

	t.Run("duplicate definitions", func(t *testing.T) {
		err := expectCompileError(t, "definitions names:\n\tbob = \"Bob\"\n\tbob = \"Robert\"", "Found duplicate definitions for names.bob")
		assert.Equal(t, "3", err.Line)
		assert.Equal(t, "names", err.ItemName)
	})
}

func TestCompileSceneStatements(t *testing.T) {

	t.Run("commands are deduplicated", func(t *testing.T) {
		program := expectBytecode(t, "scene s:\n\tplay music 1\n\tplay music 1\n\tplay music -1", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpCommandRun, 0),
			inst(bytecode.OpCommandRun, 0),
			inst(bytecode.OpCommandRun, 1),
			inst(bytecode.OpExit),
		}, []bytecode.Value{
			bytecode.RawIdentifierValue(1),
			bytecode.Int32Value(1),
			bytecode.Int32Value(-1),
		})

		assert.Equal(t, []bytecode.CommandCall{
			{NameStringID: 2, ArgValueIDs: []uint32{0, 1}},
			{NameStringID: 2, ArgValueIDs: []uint32{0, 2}},
		}, program.Commands())
	})

	t.Run("special name", func(t *testing.T) {
		program := expectBytecode(t, "scene s:\n\tbob: \"Hello\"", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpCommandRun, 0),
			inst(bytecode.OpTextRun, 3),
			inst(bytecode.OpExit),
		}, []bytecode.Value{bytecode.RawIdentifierValue(1)})

		assert.Equal(t, "char", stringOf(t, program, program.Commands()[0].NameStringID))
		assert.Equal(t, "Hello", stringOf(t, program, 3))
	})

	t.Run("goto and exit", func(t *testing.T) {
		program := expectBytecode(t, "scene s:\n\t> other\n\t<", nil, nil)
		commands := program.Commands()
		require.Len(t, commands, 2)
		assert.Equal(t, "goto", stringOf(t, program, commands[0].NameStringID))
		assert.Equal(t, "exit", stringOf(t, program, commands[1].NameStringID))
		assert.Empty(t, commands[1].ArgValueIDs)
	})

	t.Run("if, else if and else", func(t *testing.T) {
		expectBytecode(t, joinLines(
			"scene s:",
			"\tif $a:",
			"\t\t\"1\"",
			"\telse if $b:",
			"\t\t\"2\"",
			"\telse:",
			"\t\t\"3\"",
		), []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpJumpFalse, 1),
			inst(bytecode.OpTextRun, 2),
			inst(bytecode.OpJump, 3),
			inst(bytecode.OpLabel, 1),
			inst(bytecode.OpPush, 1),
			inst(bytecode.OpJumpFalse, 2),
			inst(bytecode.OpTextRun, 4),
			inst(bytecode.OpJump, 3),
			inst(bytecode.OpLabel, 2),
			inst(bytecode.OpTextRun, 5),
			inst(bytecode.OpLabel, 3),
			inst(bytecode.OpExit),
		}, []bytecode.Value{
			bytecode.VariableValue(1),
			bytecode.VariableValue(3),
		})
	})

	t.Run("if without else", func(t *testing.T) {
		expectBytecode(t, "scene s:\n\tif $a:\n\t\t\"1\"", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpJumpFalse, 1),
			inst(bytecode.OpTextRun, 2),
			inst(bytecode.OpLabel, 1),
			inst(bytecode.OpExit),
		}, nil)
	})

	t.Run("choice", func(t *testing.T) {
		expectBytecode(t, joinLines(
			"scene s:",
			"\tchoice:",
			"\t\t\"Yes\":",
			"\t\t\t\"ok\"",
			"\t\t\"No\": if $x",
			"\t\t\t\"ko\"",
		), []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpBeginChoice),
			inst(bytecode.OpChoice, 1, 2),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpChoiceTrue, 3, 3),
			inst(bytecode.OpChoiceSelection, 1),
			inst(bytecode.OpLabel, 2),
			inst(bytecode.OpTextRun, 4),
			inst(bytecode.OpJump, 1),
			inst(bytecode.OpLabel, 3),
			inst(bytecode.OpTextRun, 5),
			inst(bytecode.OpJump, 1),
			inst(bytecode.OpLabel, 1),
			inst(bytecode.OpExit),
		}, []bytecode.Value{bytecode.VariableValue(2)})
	})

	t.Run("while loop", func(t *testing.T) {
		expectBytecode(t, joinLines(
			"scene s:",
			"\twhile $i < 3:",
			"\t\t$i++",
			"\t\tif $i == 2:",
			"\t\t\tcontinue",
			"\t\tbreak",
			"\t\"end\"",
		), []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpLabel, 1),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpPush, 1),
			inst(bytecode.OpLessThan),
			inst(bytecode.OpJumpFalse, 2),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpPush, 2),
			inst(bytecode.OpAdd),
			inst(bytecode.OpSetVariable, 1),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpPush, 3),
			inst(bytecode.OpEqual),
			inst(bytecode.OpJumpFalse, 3),
			inst(bytecode.OpJump, 1),
			inst(bytecode.OpLabel, 3),
			inst(bytecode.OpJump, 2),
			inst(bytecode.OpJump, 1),
			inst(bytecode.OpLabel, 2),
			inst(bytecode.OpTextRun, 2),
			inst(bytecode.OpExit),
		}, []bytecode.Value{
			bytecode.VariableValue(1),
			bytecode.Int32Value(3),
			bytecode.Int32Value(1),
			bytecode.Int32Value(2),
		})
	})

	t.Run("nested loops", func(t *testing.T) {
		program, reporter := compileSource(t, joinLines(
			"scene s:",
			"\twhile true:",
			"\t\twhile false:",
			"\t\t\tbreak",
			"\t\tbreak",
		), Options{})
		require.Empty(t, reporter.Errors())

		//the inner loop uses the labels 3 and 4
		assert.Contains(t, program.Instructions, inst(bytecode.OpJump, 4))
		assert.Contains(t, program.Instructions, inst(bytecode.OpJump, 2))
	})

	t.Run("continue outside of a loop", func(t *testing.T) {
		err := expectCompileError(t, "scene s:\n\tcontinue", `Found a "continue" statement outside of a while loop.`)
		assert.Equal(t, "2", err.Line)
		assert.Equal(t, "s", err.ItemName)
	})

	t.Run("break outside of a loop", func(t *testing.T) {
		expectCompileError(t, "scene s:\n\tbreak", `Found a "break" statement outside of a while loop.`)
	})
}

func TestCompileLabels(t *testing.T) {

	t.Run("labels are allocated before the scene statements", func(t *testing.T) {
		expectBytecode(t, joinLines(
			"scene a:",
			"\t:later",
			"\tstart:",
			"\tif true:",
			"\t\tlater:",
			"\t:start",
		), []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpJump, 2),
			inst(bytecode.OpLabel, 1),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpJumpFalse, 3),
			inst(bytecode.OpLabel, 2),
			inst(bytecode.OpLabel, 3),
			inst(bytecode.OpJump, 1),
			inst(bytecode.OpExit),
		}, []bytecode.Value{bytecode.BoolValue(true)})
	})

	t.Run("labels are scoped to their scene", func(t *testing.T) {
		expectBytecode(t, joinLines(
			"scene a:",
			"\tl:",
			"\t:l",
			"scene b:",
			"\tl:",
			"\t:l",
		), []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpLabel, 1),
			inst(bytecode.OpJump, 1),
			inst(bytecode.OpExit),
			inst(bytecode.OpLabel, 2),
			inst(bytecode.OpLabel, 3),
			inst(bytecode.OpJump, 3),
			inst(bytecode.OpExit),
		}, nil)
	})

	t.Run("jump to a label of another scene", func(t *testing.T) {
		program, reporter := compileSource(t, joinLines(
			"scene a:",
			"\t:target",
			"scene b:",
			"\ttarget:",
		), Options{})

		assert.True(t, reporter.CanContinue())
		assert.False(t, reporter.HasErrors())

		codeErrors := reporter.Errors()
		require.Len(t, codeErrors, 1)
		assert.Equal(t, report.CodeError{
			Message:  CROSS_SCENE_JUMP_MSG,
			Line:     "2",
			Severity: report.Warning,
			Module:   report.COMPILER_MODULE,
			ItemName: "a",
		}, codeErrors[0])

		assert.Equal(t, []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpJump, 1),
			inst(bytecode.OpExit),
			inst(bytecode.OpLabel, 2),
			inst(bytecode.OpLabel, 1),
			inst(bytecode.OpExit),
		}, program.Instructions)
	})

	t.Run("unknown label", func(t *testing.T) {
		err := expectCompileError(t, "scene a:\n\t:nowhere", `Failed to find label with name "nowhere". Invalid jump statement.`)
		assert.Equal(t, "2", err.Line)
	})

	t.Run("duplicate label", func(t *testing.T) {
		err := expectCompileError(t, "scene a:\n\tl:\n\twhile true:\n\t\tl:", `Found duplicate label "l" in scene "a".`)
		assert.Equal(t, "4", err.Line)
	})
}

func TestCompileExpressions(t *testing.T) {

	t.Run("integer addition is folded", func(t *testing.T) {
		expectBytecode(t, "scene s:\n\t$x = 1 + 2", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpSetVariable, 1),
			inst(bytecode.OpExit),
		}, []bytecode.Value{bytecode.Int32Value(3)})
	})

	t.Run("negation of a literal is folded", func(t *testing.T) {
		expectBytecode(t, "scene s:\n\t$x = -(3.5)", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpSetVariable, 1),
			inst(bytecode.OpExit),
		}, []bytecode.Value{bytecode.DoubleValue(-3.5)})
	})

	t.Run("folding only applies to literal parameters", func(t *testing.T) {
		expectBytecode(t, "scene s:\n\t$x = 1 + 2 + 3", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpAdd),
			inst(bytecode.OpSetVariable, 1),
			inst(bytecode.OpExit),
		}, []bytecode.Value{bytecode.Int32Value(3)})
	})

	t.Run("mixed kinds are not folded", func(t *testing.T) {
		expectBytecode(t, "scene s:\n\t$x = 1 * 1.5", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpPush, 1),
			inst(bytecode.OpMul),
			inst(bytecode.OpSetVariable, 1),
			inst(bytecode.OpExit),
		}, []bytecode.Value{bytecode.Int32Value(1), bytecode.DoubleValue(1.5)})
	})

	t.Run("string comparison is folded to a boolean", func(t *testing.T) {
		expectBytecode(t, "scene s:\n\t$x = \"a\" == \"a\"", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpSetVariable, 1),
			inst(bytecode.OpExit),
		}, []bytecode.Value{bytecode.BoolValue(true)})
	})

	t.Run("unfolded operators", func(t *testing.T) {
		expectBytecode(t, "scene s:\n\t$x = !$a || -$b", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpInvert),
			inst(bytecode.OpPush, 1),
			inst(bytecode.OpNegate),
			inst(bytecode.OpOr),
			inst(bytecode.OpSetVariable, 1),
			inst(bytecode.OpExit),
		}, []bytecode.Value{bytecode.VariableValue(2), bytecode.VariableValue(3)})
	})

	t.Run("user function call", func(t *testing.T) {
		program := expectBytecode(t, "scene s:\n\t$x = rand(1, 2)", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpPush, 1),
			inst(bytecode.OpPush, 1),
			inst(bytecode.OpCallFunction, 2),
			inst(bytecode.OpSetVariable, 1),
			inst(bytecode.OpExit),
		}, []bytecode.Value{bytecode.Int32Value(1), bytecode.Int32Value(2)})

		assert.Equal(t, "rand", stringOf(t, program, 2))
	})

	t.Run("arrays", func(t *testing.T) {
		program := expectBytecode(t, "scene s:\n\t$a[0] = [1]\n\t$b = $a[0]", []bytecode.Instruction{
			inst(bytecode.OpLabel, 0),
			inst(bytecode.OpPush, 0),
			inst(bytecode.OpPush, 1),
			inst(bytecode.OpPush, 2),
			inst(bytecode.OpPush, 2),
			inst(bytecode.OpCallFunction, 2),
			inst(bytecode.OpPush, 3),
			inst(bytecode.OpCallFunction, 3),
			inst(bytecode.OpSetVariable, 1),

			inst(bytecode.OpPush, 0),
			inst(bytecode.OpPush, 1),
			inst(bytecode.OpPush, 4),
			inst(bytecode.OpCallFunction, 5),
			inst(bytecode.OpSetVariable, 4),
			inst(bytecode.OpExit),
		}, []bytecode.Value{
			bytecode.VariableValue(1),
			bytecode.Int32Value(0),
			bytecode.Int32Value(1),
			bytecode.Int32Value(3),
			bytecode.Int32Value(2),
		})

		assert.Equal(t, ARRAY_FUNCTION_NAME, stringOf(t, program, 2))
		assert.Equal(t, SET_INDEX_FUNCTION_NAME, stringOf(t, program, 3))
		assert.Equal(t, "b", stringOf(t, program, 4))
		assert.Equal(t, INDEX_FUNCTION_NAME, stringOf(t, program, 5))
	})

	countCalls := func(t *testing.T, program *bytecode.Program, op bytecode.Opcode, name string) int {
		count := 0
		for _, instr := range program.Instructions {
			if instr.Opcode == op && stringOf(t, program, instr.Operand1) == name {
				count++
			}
		}
		return count
	}

	t.Run("compound assignment of an element evaluates a user function index once", func(t *testing.T) {
		program := expectBytecode(t, "scene s:\n\t$a[f()] += 1\n\t$b[g()]++", nil, nil)

		assert.Equal(t, 1, countCalls(t, program, bytecode.OpCallFunction, "f"))
		assert.Equal(t, 1, countCalls(t, program, bytecode.OpCallFunction, "g"))
		assert.Equal(t, 2, countCalls(t, program, bytecode.OpSetVariable, INDEX_TEMPORARY_VARIABLE))
		assert.Equal(t, 2, countCalls(t, program, bytecode.OpCallFunction, INDEX_FUNCTION_NAME))
		assert.Equal(t, 2, countCalls(t, program, bytecode.OpCallFunction, SET_INDEX_FUNCTION_NAME))
	})

	t.Run("compound assignment of an element with a plain index", func(t *testing.T) {
		program := expectBytecode(t, "scene s:\n\t$a[$i] += 1", nil, nil)

		assert.Zero(t, countCalls(t, program, bytecode.OpSetVariable, INDEX_TEMPORARY_VARIABLE))
		assert.Equal(t, 1, countCalls(t, program, bytecode.OpCallFunction, INDEX_FUNCTION_NAME))
	})

	t.Run("explicit read of the assigned element is not rewritten", func(t *testing.T) {
		program := expectBytecode(t, "scene s:\n\t$a[f()] = $a[f()] + 1", nil, nil)

		assert.Equal(t, 2, countCalls(t, program, bytecode.OpCallFunction, "f"))
		assert.Zero(t, countCalls(t, program, bytecode.OpSetVariable, INDEX_TEMPORARY_VARIABLE))
	})
}

func TestCompilePartialBlock(t *testing.T) {
	reporter := report.NewReporter()
	block := parse.Parse(parse.Lex("scene a:\n\t$x = (1 + 2\n\t\"after\"\n\twait (1)\n", parse.LexerOptions{Reporter: reporter}), reporter)
	require.False(t, reporter.CanContinue())

	program := bytecode.NewProgram()
	compiler := NewCompiler(program, Options{Reporter: reporter})
	compiler.SetFile("main.opd")

	assert.NotPanics(t, func() {
		compiler.Compile(block)
	})

	texts := 0
	for _, instr := range program.Instructions {
		if instr.Opcode == bytecode.OpTextRun {
			texts++
			assert.Equal(t, "after", stringOf(t, program, instr.Operand1))
		}
	}
	assert.Equal(t, 1, texts)
}

func TestFold(t *testing.T) {
	binary := func(op string, left, right parse.Value) *parse.CallExpression {
		return &parse.CallExpression{
			Function: parse.BUILTIN_FUNCTIONS[op],
			Parameters: []parse.Expression{
				&parse.ValueExpression{Value: left},
				&parse.ValueExpression{Value: right},
			},
		}
	}

	testCases := []struct {
		name     string
		call     *parse.CallExpression
		expected parse.Value
		folded   bool
	}{
		{"int32 subtraction", binary("-", parse.Int32Value(1), parse.Int32Value(3)), parse.Int32Value(-2), true},
		{"int32 overflow wraps", binary("+", parse.Int32Value(2147483647), parse.Int32Value(1)), parse.Int32Value(-2147483648), true},
		{"int32 division", binary("/", parse.Int32Value(7), parse.Int32Value(2)), parse.Int32Value(3), true},
		{"int32 division by zero", binary("/", parse.Int32Value(7), parse.Int32Value(0)), parse.Value{}, false},
		{"int32 modulo", binary("%", parse.Int32Value(7), parse.Int32Value(2)), parse.Value{}, false},
		{"double multiplication", binary("*", parse.DoubleValue(1.5), parse.DoubleValue(2)), parse.DoubleValue(3), true},
		{"double inequality", binary("!=", parse.DoubleValue(1.5), parse.DoubleValue(2)), parse.BoolValue(true), true},
		{"string concatenation", binary("+", parse.StringValue("a"), parse.StringValue("b")), parse.StringValue("ab"), true},
		{"string subtraction", binary("-", parse.StringValue("a"), parse.StringValue("b")), parse.Value{}, false},
		{"string inequality", binary("!=", parse.StringValue("a"), parse.StringValue("a")), parse.BoolValue(false), true},
		{"booleans", binary("==", parse.BoolValue(true), parse.BoolValue(true)), parse.Value{}, false},
		{"variables", binary("+", parse.VariableValue("a"), parse.VariableValue("b")), parse.Value{}, false},
		{"comparison", binary("<", parse.Int32Value(1), parse.Int32Value(2)), parse.Value{}, false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			value, ok := fold(testCase.call)
			assert.Equal(t, testCase.folded, ok)
			assert.Equal(t, testCase.expected, value)
		})
	}

	t.Run("indexed variable is not a literal", func(t *testing.T) {
		call := &parse.CallExpression{
			Function: parse.UNARY_MINUS_FUNCTION,
			Parameters: []parse.Expression{
				&parse.ValueExpression{Value: parse.Int32Value(1), ArrayIndex: &parse.ValueExpression{Value: parse.Int32Value(0)}},
			},
		}
		_, ok := fold(call)
		assert.False(t, ok)
	})
}

type queueTranslations struct {
	queues  map[string][]string
	opened  []string
	closed  []string
	values  bool
	harvest map[string][]string
}

func (q *queueTranslations) OpenScope(file, key string) {
	q.opened = append(q.opened, key)
}

func (q *queueTranslations) Translate(file, key, text string) (string, error) {
	if q.harvest != nil {
		q.harvest[key] = append(q.harvest[key], text)
	}
	queue, ok := q.queues[key]
	if !ok {
		return text, nil
	}
	if len(queue) == 0 {
		return "", errors.New("count mismatch: " + key)
	}
	q.queues[key] = queue[1:]
	return queue[0], nil
}

func (q *queueTranslations) CloseScope(file, key string) error {
	q.closed = append(q.closed, key)
	if len(q.queues[key]) != 0 {
		return errors.New("leftover: " + key)
	}
	return nil
}

func (q *queueTranslations) TranslatesValues(file string) bool {
	return q.values
}

func TestCompileTranslations(t *testing.T) {
	source := joinLines(
		"definitions d:",
		"\tk = \"value\"",
		"scene s:",
		"\t\"hello\"",
		"\tcmd \"arg\"",
		"\tchoice:",
		"\t\t\"yes\":",
		"\t\t\t<",
	)

	t.Run("texts, choices and definitions are translated in order", func(t *testing.T) {
		translations := &queueTranslations{
			queues: map[string][]string{
				"d:d": {"valeur"},
				"s:s": {"bonjour", "oui"},
			},
			harvest: map[string][]string{},
		}

		program, reporter := compileSource(t, source, Options{Translations: translations})
		require.Empty(t, reporter.Errors())

		assert.Equal(t, []string{"d:d", "s:s"}, translations.opened)
		assert.Equal(t, []string{"d:d", "s:s"}, translations.closed)
		assert.Equal(t, map[string][]string{
			"d:d": {"value"},
			"s:s": {"hello", "yes"},
		}, translations.harvest)

		programStrings := program.Strings()
		assert.Contains(t, programStrings, "valeur")
		assert.Contains(t, programStrings, "bonjour")
		assert.Contains(t, programStrings, "oui")
		assert.Contains(t, programStrings, "arg")
		assert.NotContains(t, programStrings, "hello")
	})

	t.Run("string values", func(t *testing.T) {
		translations := &queueTranslations{
			queues: map[string][]string{"s:s": {"bonjour", "argument", "oui"}},
			values: true,
		}

		program, reporter := compileSource(t, source, Options{Translations: translations})
		require.Empty(t, reporter.Errors())
		assert.Contains(t, program.Strings(), "argument")
	})

	t.Run("missing translations", func(t *testing.T) {
		translations := &queueTranslations{queues: map[string][]string{"s:s": {"bonjour"}}}

		_, reporter := compileSource(t, source, Options{Translations: translations})
		codeErrors := reporter.Errors()
		require.Len(t, codeErrors, 1)
		assert.Equal(t, "count mismatch: s:s", codeErrors[0].Message)
		assert.Equal(t, "7", codeErrors[0].Line)
		assert.False(t, reporter.CanContinue())
	})

	t.Run("too many translations", func(t *testing.T) {
		translations := &queueTranslations{queues: map[string][]string{"s:s": {"bonjour", "oui", "extra"}}}

		_, reporter := compileSource(t, source, Options{Translations: translations})
		codeErrors := reporter.Errors()
		require.Len(t, codeErrors, 1)
		assert.Equal(t, "leftover: s:s", codeErrors[0].Message)
		assert.Equal(t, "3", codeErrors[0].Line)
	})
}
