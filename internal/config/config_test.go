package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {

	t.Run("default file", func(t *testing.T) {
		cfg, err := Parse([]byte(DEFAULT_CONFIG_FILE_CONTENT))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("empty file", func(t *testing.T) {
		cfg, err := Parse(nil)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("overridden fields", func(t *testing.T) {
		cfg, err := Parse([]byte("shuffle-strings: false\nlog-level: debug\nwatch:\n  patterns: [\"scenes/*.opd\"]\n"))
		require.NoError(t, err)

		assert.False(t, cfg.ShuffleStrings)
		assert.Equal(t, []string{"scenes/*.opd"}, cfg.Watch.Patterns)
		assert.Equal(t, DEFAULT_WATCH_DEBOUNCE_MS, cfg.Watch.DebounceMs)

		level, err := cfg.ZerologLevel()
		require.NoError(t, err)
		assert.Equal(t, zerolog.DebugLevel, level)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := Parse([]byte("shufle-strings: false\n"))
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := Parse([]byte("log-level: loud\n"))
		assert.ErrorIs(t, err, ErrInvalidLogLevel)
	})
}
