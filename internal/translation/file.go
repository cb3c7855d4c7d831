package translation

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	FILE_EXTENSION = ".opdat"

	HASH_LINE_PREFIX    = '~'
	OPTIONS_LINE_PREFIX = '!'
	KEY_LINE_PREFIX     = '='
	STRING_LINE_PREFIX  = '"'
	COMMENT_LINE_PREFIX = '#'

	EXCLUDE_VALUES_OPTION = "E"
	INCLUDE_VALUES_OPTION = "e"
)

var (
	ErrInvalidFile         = errors.New("Invalid translation file.")
	ErrHashMismatch        = errors.New("Translation file version does not match the source file version; hash mismatch.")
	ErrStringCountMismatch = errors.New("Translation file string count does not match with the actual code!")
)

// A File contains the translatable strings of a source file grouped by key, keys are kept
// in the order they were added.
type File struct {
	Hash          string
	ExcludeValues bool

	keys    []string
	strings map[string][]string
}

func NewFile(hash string, excludeValues bool) *File {
	return &File{
		Hash:          hash,
		ExcludeValues: excludeValues,
		strings:       map[string][]string{},
	}
}

// HashSource returns the lowercase hex SHA-256 of a source file.
func HashSource(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// AddKey adds a key without strings, nothing is done if the key already exists.
func (f *File) AddKey(key string) {
	if _, ok := f.strings[key]; ok {
		return
	}
	f.keys = append(f.keys, key)
	f.strings[key] = []string{}
}

func (f *File) Add(key, s string) {
	f.AddKey(key)
	f.strings[key] = append(f.strings[key], s)
}

func (f *File) Keys() []string {
	return append([]string(nil), f.keys...)
}

func (f *File) Strings(key string) ([]string, bool) {
	list, ok := f.strings[key]
	if !ok {
		return nil, false
	}
	return append([]string{}, list...), true
}

// Write writes f in the .opdat format.
func Write(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)

	option := INCLUDE_VALUES_OPTION
	if f.ExcludeValues {
		option = EXCLUDE_VALUES_OPTION
	}

	fmt.Fprintf(bw, "%c%s\n%c%s\n\n", HASH_LINE_PREFIX, f.Hash, OPTIONS_LINE_PREFIX, option)

	for _, key := range f.keys {
		bw.WriteByte(KEY_LINE_PREFIX)
		bw.WriteString(key)
		bw.WriteByte('\n')

		for _, s := range f.strings[key] {
			bw.WriteByte(STRING_LINE_PREFIX)
			bw.WriteString(escape(s))
			bw.WriteString("\"\n")
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

// Parse parses a file in the .opdat format. If ignoreHash is false ErrHashMismatch is returned
// when the hash of the file is not expectedHash.
func Parse(text string, expectedHash string, ignoreHash bool) (*File, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")

	if len(lines) < 2 || !strings.HasPrefix(lines[0], string(HASH_LINE_PREFIX)) {
		return nil, ErrInvalidFile
	}

	hash := strings.TrimSpace(lines[0][1:])
	if !ignoreHash && hash != expectedHash {
		return nil, ErrHashMismatch
	}

	if !strings.HasPrefix(lines[1], string(OPTIONS_LINE_PREFIX)) {
		return nil, ErrInvalidFile
	}

	f := NewFile(hash, strings.TrimSpace(lines[1][1:]) == EXCLUDE_VALUES_OPTION)
	currentKey := ""
	hasKey := false

	for _, line := range lines[2:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line[0] {
		case KEY_LINE_PREFIX:
			currentKey = line[1:]
			hasKey = true
			f.AddKey(currentKey)
		case STRING_LINE_PREFIX:
			if !hasKey {
				return nil, ErrInvalidFile
			}
			f.Add(currentKey, unescape(line[1:]))
		case COMMENT_LINE_PREFIX:
		default:
			return nil, ErrInvalidFile
		}
	}

	return f, nil
}

func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unescape reads a string up to its closing quote.
func unescape(s string) string {
	var b strings.Builder
	runes := []rune(s)

	for i := 0; i < len(runes) && runes[i] != '"'; i++ {
		if runes[i] != '\\' {
			b.WriteRune(runes[i])
			continue
		}
		i++
		if i >= len(runes) {
			break
		}
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
	return b.String()
}
