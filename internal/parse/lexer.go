package parse

import (
	"strings"
	"unicode"

	"github.com/colinator27/open-day-dialogue-compiler/internal/report"
)

const (
	UNKNOWN_TOKEN_MSG             = "Failed to find proper token."
	DUPLICATE_INCLUDE_MSG         = "An included file was included more than once."
	INVALID_PREPROCESSOR_ARGUMENT = "Invalid preprocessor argument."
	INVALID_PREPROCESSOR_TYPE     = "Invalid preprocessor type."
)

type LexerOptions struct {
	Reporter *report.Reporter

	// OnInclude is called for each #include directive, it should return false if the path
	// has already been included.
	OnInclude func(path string) bool

	// OnLanguage is called for each #language directive.
	OnLanguage func(language string)
}

type lexer struct {
	opts          LexerOptions
	tokens        []Token
	currentIndent int
	line          int //1-based
}

// Lex converts source code into a flat token sequence. Errors are reported to opts.Reporter and
// lexing continues with the next token or line. Lines without any code do not change the
// indentation level and produce no token.
func Lex(source string, opts LexerOptions) []Token {
	if opts.Reporter == nil {
		opts.Reporter = report.NewReporter()
	}

	l := &lexer{opts: opts}

	source = strings.ReplaceAll(source, "\r", "")
	lines := strings.Split(source, "\n")

	for i, line := range lines {
		l.line = i + 1
		l.lexLine([]rune(line))
	}

	for ; l.currentIndent > 0; l.currentIndent-- {
		l.tokens = append(l.tokens, Token{Type: DEDENT, Line: len(lines)})
	}

	return l.tokens
}

func (l *lexer) error(msg string) {
	l.opts.Reporter.Report(msg, l.line, report.Error, report.LEXER_MODULE, "")
}

func (l *lexer) lexLine(runes []rune) {
	if len(runes) > 0 && runes[0] == '#' {
		l.lexPreprocessorDirective(runes)
		return
	}

	pos := 0
	indent := 0

	for pos < len(runes) && runes[pos] == '\t' {
		pos++
		indent++
	}
	for hasPrefixAt(runes, pos, "    ") {
		pos += INDENT_UNIT_SPACES
		indent++
	}

	lineTokens := l.lexCode(runes, pos)
	if len(lineTokens) == 0 {
		return
	}

	for ; indent > l.currentIndent; l.currentIndent++ {
		l.tokens = append(l.tokens, Token{Type: INDENT, Line: l.line})
	}
	for ; indent < l.currentIndent; l.currentIndent-- {
		l.tokens = append(l.tokens, Token{Type: DEDENT, Line: l.line})
	}

	l.tokens = append(l.tokens, lineTokens...)
	l.tokens = append(l.tokens, Token{Type: END_OF_LINE, Line: l.line})
}

func (l *lexer) lexPreprocessorDirective(runes []rune) {
	pos := 1
	directive := readWord(runes, &pos)
	pos = skipWhitespace(runes, pos)

	switch directive {
	case LANGUAGE_DIRECTIVE:
		language := readWord(runes, &pos)
		if language == "" {
			l.error(INVALID_PREPROCESSOR_ARGUMENT)
			return
		}
		if l.opts.OnLanguage != nil {
			l.opts.OnLanguage(language)
		}
	case INCLUDE_DIRECTIVE:
		if pos >= len(runes) || runes[pos] != '"' {
			l.error(INVALID_PREPROCESSOR_ARGUMENT)
			return
		}
		path := readQuotedString(runes, &pos)
		if l.opts.OnInclude != nil && !l.opts.OnInclude(path) {
			l.error(DUPLICATE_INCLUDE_MSG)
		}
	default:
		l.error(INVALID_PREPROCESSOR_TYPE)
	}
}

// lexCode returns the tokens of a line without the END_OF_LINE token.
func (l *lexer) lexCode(runes []rune, pos int) []Token {
	var tokens []Token

	add := func(tokenType TokenType, content string, length int) {
		tokens = append(tokens, Token{Type: tokenType, Content: content, Line: l.line})
		pos += length
	}

	for {
		pos = skipWhitespace(runes, pos)
		if pos >= len(runes) {
			break
		}

		//comment
		if hasPrefixAt(runes, pos, "//") {
			break
		}

		r := runes[pos]

		switch r {
		case ':':
			add(COLON, "", 1)
			continue
		case ',':
			add(COMMA, "", 1)
			continue
		case '[':
			add(OPEN_BRACKET, "", 1)
			continue
		case ']':
			add(CLOSE_BRACKET, "", 1)
			continue
		}

		if op, ok := matchAny(runes, pos, "&&", "||", "^^"); ok {
			add(CONJUNCTION_OPERATOR, op, 2)
			continue
		}

		if op, ok := matchAny(runes, pos, "==", "!=", ">=", "<=", ">", "<", "!"); ok {
			add(COMPARE_OPERATOR, op, len(op))
			continue
		}

		if op, ok := matchAny(runes, pos, "+=", "-=", "*=", "/=", "%=", "++", "--"); ok {
			add(SPECIAL_ASSIGNMENT_OPERATOR, op, 2)
			continue
		}

		if op, ok := matchAny(runes, pos, "+", "-", "*", "/", "%"); ok {
			add(BINARY_OPERATOR, op, 1)
			continue
		}

		switch r {
		case '(':
			add(OPEN_PAREN, "", 1)
			continue
		case ')':
			add(CLOSE_PAREN, "", 1)
			continue
		case '=':
			add(EQUALS, "", 1)
			continue
		case '"':
			str := readQuotedString(runes, &pos)
			tokens = append(tokens, Token{Type: STRING, Content: str, Line: l.line})
			continue
		}

		word := readWord(runes, &pos)
		if word == "" {
			//delimiter that does not start any token
			l.error(UNKNOWN_TOKEN_MSG)
			pos++
			continue
		}

		if token, ok := l.classifyWord(word); ok {
			tokens = append(tokens, token)
		} else {
			l.error(UNKNOWN_TOKEN_MSG)
		}
	}

	return tokens
}

func (l *lexer) classifyWord(word string) (Token, bool) {
	token := Token{Line: l.line}

	switch {
	case IsNumber(word):
		token.Type = NUMBER
		token.Content = word
	case IsIdentifier(word):
		switch word {
		case TRUE_LITERAL_STRING:
			token.Type = TRUE
		case FALSE_LITERAL_STRING:
			token.Type = FALSE
		case UNDEFINED_LITERAL_STRING:
			token.Type = UNDEFINED
		default:
			if IsKeyword(word) {
				token.Type = KEYWORD
			} else {
				token.Type = IDENTIFIER
			}
			token.Content = word
		}
	case word[0] == VARIABLE_PREFIX && IsIdentifier(word[1:]):
		token.Type = VARIABLE_IDENTIFIER
		token.Content = word[1:]
	default:
		return Token{}, false
	}

	return token, true
}

// IsNumber returns true if s only contains digits and at most one dot.
func IsNumber(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for _, r := range s {
		if r == '.' {
			if dot {
				return false
			}
			dot = true
		} else if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsIdentifier returns true if s starts with a letter, '_' or '@' and only contains letters, digits, '.'
// and '_' after its first character.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if r != AT_MARKER && r != '_' && !unicode.IsLetter(r) {
				return false
			}
			continue
		}
		if r != '.' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func IsKeyword(s string) bool {
	for _, kw := range KEYWORDS {
		if s == kw {
			return true
		}
	}
	return false
}

func isDelimiter(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case ':', '=', '+', '-', '*', '/', '%', '^', '>', '<', '(', ')', '!', '"', '[', ']', ',':
		return true
	}
	return false
}

func readWord(runes []rune, pos *int) string {
	start := *pos
	for *pos < len(runes) && !isDelimiter(runes[*pos]) {
		*pos++
	}
	return string(runes[start:*pos])
}

// readQuotedString reads a string literal starting at the opening quote, an unterminated literal
// ends at the end of the line.
func readQuotedString(runes []rune, pos *int) string {
	var b strings.Builder
	i := *pos + 1

	for i < len(runes) && runes[i] != '"' {
		if runes[i] == '\\' {
			i++
			if i < len(runes) {
				switch runes[i] {
				case 'n':
					b.WriteRune('\n')
				case 'r':
					b.WriteRune('\r')
				case 't':
					b.WriteRune('\t')
				default:
					b.WriteRune(runes[i])
				}
			}
		} else {
			b.WriteRune(runes[i])
		}
		i++
	}

	*pos = i + 1 //closing quote
	return b.String()
}

func skipWhitespace(runes []rune, pos int) int {
	for pos < len(runes) && unicode.IsSpace(runes[pos]) {
		pos++
	}
	return pos
}

func hasPrefixAt(runes []rune, pos int, prefix string) bool {
	for _, r := range prefix {
		if pos >= len(runes) || runes[pos] != r {
			return false
		}
		pos++
	}
	return true
}

func matchAny(runes []rune, pos int, candidates ...string) (string, bool) {
	for _, c := range candidates {
		if hasPrefixAt(runes, pos, c) {
			return c, true
		}
	}
	return "", false
}
