package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
)

const (
	UNKNOWN_LINE = "?"

	LEXER_MODULE    = "Lexer"
	PARSER_MODULE   = "Parser"
	COMPILER_MODULE = "Compiler"
)

type Severity int

const (
	Warning Severity = iota
	Error
	ErrorDeadly
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "Warn"
	case Error, ErrorDeadly:
		return "Error"
	}
	return "Severity(" + strconv.Itoa(int(s)) + ")"
}

// IsError returns true for Error and ErrorDeadly.
func (s Severity) IsError() bool {
	return s == Error || s == ErrorDeadly
}

// A CodeError is a diagnostic about the compiled source code, it is never removed once reported.
type CodeError struct {
	Message  string   `json:"message"`
	Line     string   `json:"line"`
	Severity Severity `json:"severity"`
	Module   string   `json:"module"`
	File     string   `json:"file"`
	ItemName string   `json:"itemName,omitempty"`
}

func (e CodeError) Error() string {
	return e.format(false)
}

func (e CodeError) format(logItem bool) string {
	item := ""
	if logItem && e.ItemName != "" {
		item = fmt.Sprintf("(item name: \"%s\") ", e.ItemName)
	}
	return fmt.Sprintf("File \"%s\", line %s, in %s: %s %s(%s)", e.File, e.Line, e.Module, e.Message, item, e.Severity)
}

// Reporter is the append-only sink consulted by every stage of the compilation.
type Reporter struct {
	file   string
	errors []CodeError
}

func NewReporter() *Reporter {
	return &Reporter{}
}

// SetFile sets the file attached to the errors reported from now on.
func (r *Reporter) SetFile(file string) {
	r.file = file
}

func (r *Reporter) File() string {
	return r.file
}

// Report appends an error, a non-positive line is rendered as "?".
func (r *Reporter) Report(message string, line int, severity Severity, module string, item string) {
	lineString := UNKNOWN_LINE
	if line > 0 {
		lineString = strconv.Itoa(line)
	}

	r.errors = append(r.errors, CodeError{
		Message:  message,
		Line:     lineString,
		Severity: severity,
		Module:   module,
		File:     r.file,
		ItemName: item,
	})
}

func (r *Reporter) Warn(message string, line int, module string, item string) {
	r.Report(message, line, Warning, module, item)
}

// CanContinue returns false if at least one deadly error has been reported.
func (r *Reporter) CanContinue() bool {
	for _, e := range r.errors {
		if e.Severity == ErrorDeadly {
			return false
		}
	}
	return true
}

// HasErrors returns true if at least one Error or ErrorDeadly has been reported.
func (r *Reporter) HasErrors() bool {
	for _, e := range r.errors {
		if e.Severity.IsError() {
			return true
		}
	}
	return false
}

func (r *Reporter) Errors() []CodeError {
	return append([]CodeError(nil), r.errors...)
}

func (r *Reporter) Len() int {
	return len(r.errors)
}

// Counts returns the number of warnings and the number of errors (both Error and ErrorDeadly).
func (r *Reporter) Counts() (warnings int, errors int) {
	for _, e := range r.errors {
		if e.Severity.IsError() {
			errors++
		} else {
			warnings++
		}
	}
	return
}

type FormatOptions struct {
	Colorize bool
	LogItems bool //include the name of the scene or definition group
}

// Format writes the aggregated error list.
func (r *Reporter) Format(w io.Writer, opts FormatOptions) error {
	var buf strings.Builder

	buf.WriteString("\nError list:\n\n")

	for _, e := range r.errors {
		line := e.format(opts.LogItems)

		if opts.Colorize {
			color := termenv.ANSIBrightYellow
			if e.Severity.IsError() {
				color = termenv.ANSIBrightRed
			}
			line = termenv.String(line).Foreground(color).String()
		}

		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	_, err := io.WriteString(w, buf.String())
	return err
}
