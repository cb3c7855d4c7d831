package compile

// A TranslationProvider is consulted for each translatable string, strings are grouped by key:
// "s:" + scene namespace or "d:" + definition group namespace.
type TranslationProvider interface {
	// OpenScope is called before the strings of a key are translated.
	OpenScope(file, key string)

	// Translate returns the translation of the next string of a key.
	Translate(file, key, text string) (string, error)

	// CloseScope is called after all the strings of a key have been translated, an error should
	// be returned if the file contains more strings for the key.
	CloseScope(file, key string) error

	// TranslatesValues returns true if string values (command arguments, string literals in expressions) are
	// translated in addition to texts and definitions.
	TranslatesValues(file string) bool
}

func (c *Compiler) translate(key, text string, line int) (string, bool) {
	if c.translations == nil {
		return text, true
	}
	translated, err := c.translations.Translate(c.file, key, text)
	if err != nil {
		c.error(err.Error(), line)
		return "", false
	}
	return translated, true
}
