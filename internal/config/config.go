package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/adrg/xdg"
	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"

	_ "embed"
)

const (
	APP_NAME = "opdc"

	CONFIG_FILE_NAME    = "config.yaml"
	CONFIG_FILE_RELPATH = APP_NAME + "/" + CONFIG_FILE_NAME
	CONFIG_FILE_PERM    = 0o600

	DEFAULT_WATCH_PATTERN     = "**/*.opd"
	DEFAULT_WATCH_DEBOUNCE_MS = 200
)

var (
	//go:embed default_config.yaml
	DEFAULT_CONFIG_FILE_CONTENT string

	USER_HOME             string
	FORCE_COLOR           bool
	TRUECOLOR_COLORTERM   bool
	TERM_256COLOR_CAPABLE bool
	NO_COLOR              bool
	STDERR_IS_TERMINAL    bool
	SHOULD_COLORIZE       bool

	ErrInvalidLogLevel = errors.New("invalid log level")
)

func init() {
	targetSpecificInit()
}

type Config struct {
	EmitDebugInstructions bool   `yaml:"emit-debug-instructions"`
	ShuffleStrings        bool   `yaml:"shuffle-strings"`
	ExcludeValues         bool   `yaml:"exclude-values"`
	TranslationDir        string `yaml:"translation-dir"`
	IgnoreTranslationHash bool   `yaml:"ignore-translation-hash"`
	LogLevel              string `yaml:"log-level"`

	Watch WatchConfig `yaml:"watch"`
}

type WatchConfig struct {
	Patterns   []string `yaml:"patterns"`
	DebounceMs int      `yaml:"debounce-ms"`
}

func Default() Config {
	return Config{
		ShuffleStrings: true,
		LogLevel:       zerolog.InfoLevel.String(),
		Watch: WatchConfig{
			Patterns:   []string{DEFAULT_WATCH_PATTERN},
			DebounceMs: DEFAULT_WATCH_DEBOUNCE_MS,
		},
	}
}

// Parse decodes a configuration file, missing fields keep their default value.
func Parse(content []byte) (Config, error) {
	cfg := Default()

	if err := yaml.UnmarshalWithOptions(content, &cfg, yaml.Strict()); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := cfg.ZerologLevel(); err != nil {
		return Config{}, err
	}
	if len(cfg.Watch.Patterns) == 0 {
		cfg.Watch.Patterns = []string{DEFAULT_WATCH_PATTERN}
	}
	if cfg.Watch.DebounceMs <= 0 {
		cfg.Watch.DebounceMs = DEFAULT_WATCH_DEBOUNCE_MS
	}
	return cfg, nil
}

func (c Config) ZerologLevel() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.NoLevel, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return level, nil
}

// GetConfigFilePath searches for the configuration file, creates it if it does not exist and returns its path.
func GetConfigFilePath() (string, error) {
	path, err := xdg.SearchConfigFile(CONFIG_FILE_RELPATH)
	if err != nil {
		path, err = xdg.ConfigFile(CONFIG_FILE_RELPATH)
		if err != nil {
			return "", err
		}

		if err := os.WriteFile(path, []byte(DEFAULT_CONFIG_FILE_CONTENT), CONFIG_FILE_PERM); err != nil {
			return "", err
		}
	}

	return path, nil
}

// Load reads the configuration file, the default configuration is returned if there is no configuration file.
func Load() (Config, error) {
	path, err := xdg.SearchConfigFile(CONFIG_FILE_RELPATH)
	if err != nil {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg, err := Parse(content)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
