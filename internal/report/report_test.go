package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporter(t *testing.T) {

	t.Run("empty", func(t *testing.T) {
		r := NewReporter()
		assert.True(t, r.CanContinue())
		assert.False(t, r.HasErrors())
		assert.Empty(t, r.Errors())
	})

	t.Run("warning", func(t *testing.T) {
		r := NewReporter()
		r.Warn("Found a jump statement that jumps to a label from another scene.", -1, COMPILER_MODULE, "a")

		assert.True(t, r.CanContinue())
		assert.False(t, r.HasErrors())

		warnings, errors := r.Counts()
		assert.Equal(t, 1, warnings)
		assert.Equal(t, 0, errors)
	})

	t.Run("non-deadly error", func(t *testing.T) {
		r := NewReporter()
		r.SetFile("main.opd")
		r.Report("Failed to find proper token.", 3, Error, LEXER_MODULE, "")

		assert.True(t, r.CanContinue())
		assert.True(t, r.HasErrors())
		assert.Equal(t, []CodeError{
			{
				Message:  "Failed to find proper token.",
				Line:     "3",
				Severity: Error,
				Module:   LEXER_MODULE,
				File:     "main.opd",
			},
		}, r.Errors())
	})

	t.Run("deadly error", func(t *testing.T) {
		r := NewReporter()
		r.Report("Unexpected end of code.", 0, ErrorDeadly, PARSER_MODULE, "")

		assert.False(t, r.CanContinue())
		assert.Equal(t, UNKNOWN_LINE, r.Errors()[0].Line)
	})

	t.Run("errors are copied", func(t *testing.T) {
		r := NewReporter()
		r.Report("a", 1, Error, LEXER_MODULE, "")

		errs := r.Errors()
		errs[0].Message = "b"
		assert.Equal(t, "a", r.Errors()[0].Message)
	})
}

func TestReporterFormat(t *testing.T) {
	r := NewReporter()
	r.SetFile("main.opd")
	r.Report("Expected token of type Colon, got EndOfLine.", 2, ErrorDeadly, PARSER_MODULE, "intro")
	r.Warn("Found a jump statement that jumps to a label from another scene.", -1, COMPILER_MODULE, "intro")

	t.Run("without items", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		err := r.Format(buf, FormatOptions{})
		if !assert.NoError(t, err) {
			return
		}

		assert.Equal(t, "\nError list:\n\n"+
			"File \"main.opd\", line 2, in Parser: Expected token of type Colon, got EndOfLine. (Error)\n"+
			"File \"main.opd\", line ?, in Compiler: Found a jump statement that jumps to a label from another scene. (Warn)\n",
			buf.String())
	})

	t.Run("with items", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		err := r.Format(buf, FormatOptions{LogItems: true})
		if !assert.NoError(t, err) {
			return
		}

		assert.Contains(t, buf.String(), "got EndOfLine. (item name: \"intro\") (Error)\n")
	})
}
