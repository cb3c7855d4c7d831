package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/colinator27/open-day-dialogue-compiler/internal/afs"
	"github.com/colinator27/open-day-dialogue-compiler/internal/bytecode"
	"github.com/colinator27/open-day-dialogue-compiler/internal/config"
	"github.com/colinator27/open-day-dialogue-compiler/internal/utils"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	MAIN_SOURCE = "definitions characters:\n\tbob = \"Bob\"\nscene intro:\n\t\"Hello\"\n\tchoice:\n\t\t\"Yes\":\n\t\t\tgive_item \"apple\" 2\n\t\t\"No\":\n\t\t\t<\n"
)

// chdirTemp changes the working directory to a new temporary directory that is also
// the XDG config home.
func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)

	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(wd)
		xdg.Reload()
	})

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	xdg.Reload()
	return dir
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func run(args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	code := _main(append([]string{COMMAND_NAME}, args...), &out, &errOut)
	return code, utils.StripANSISequences(out.String()), utils.StripANSISequences(errOut.String())
}

func TestMoveFlagsStart(t *testing.T) {
	args := []string{"game.bin", "-json"}
	moveFlagsStart(args)
	assert.Equal(t, []string{"-json", "game.bin"}, args)

	args = []string{"a", "--", "-b"}
	moveFlagsStart(args)
	assert.Equal(t, []string{"a", "--", "-b"}, args)
}

func TestHelp(t *testing.T) {

	t.Run("general help", func(t *testing.T) {
		code, out, _ := run(HELP_SUBCMD)
		assert.Equal(t, 0, code)
		for _, subcmd := range SUBCOMMANDS {
			assert.Contains(t, out, "\t"+subcmd+" - ")
		}

		code, out, _ = run("--help")
		assert.Equal(t, 0, code)
		assert.Equal(t, OPDC_CMD_HELP, out)
	})

	t.Run("command help", func(t *testing.T) {
		code, out, _ := run(HELP_SUBCMD, BUILD_SUBCMD)
		assert.Equal(t, 0, code)
		assert.Contains(t, out, CLI_SUBCOMMAND_DESCRIPTION_MAP[BUILD_SUBCMD])
		assert.Contains(t, out, "-no-shuffle")
	})

	t.Run("no command", func(t *testing.T) {
		code, _, errOut := run()
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Equal(t, OPDC_CMD_HELP, errOut)
	})

	t.Run("unknown command", func(t *testing.T) {
		code, _, errOut := run("bild")
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, errOut, "unknown command 'bild'")
	})
}

func TestBuildParams(t *testing.T) {
	cfg := config.Default()

	t.Run("check", func(t *testing.T) {
		assert.ErrorIs(t, buildParams{}.check(), ErrMissingSource)
		assert.ErrorIs(t, buildParams{source: "main.opd"}.check(), ErrMissingExport)
		assert.NoError(t, buildParams{source: "main.opd", harvest: true}.check())
		assert.NoError(t, buildParams{source: "main.opd", export: "game.bin"}.check())
	})

	t.Run("strings are only shuffled if a binary is written", func(t *testing.T) {
		assert.True(t, buildParams{export: "game.bin"}.options(cfg).ShuffleStrings)
		assert.False(t, buildParams{export: "game.bin", noShuffle: true}.options(cfg).ShuffleStrings)
		assert.False(t, buildParams{harvest: true}.options(cfg).ShuffleStrings)
	})

	t.Run("translation options", func(t *testing.T) {
		opts := buildParams{translationDir: "fr"}.options(cfg)
		assert.True(t, opts.ApplyTranslations)
		assert.Equal(t, "fr", opts.TranslationDir)

		opts = buildParams{harvest: true, applyTranslations: true}.options(cfg)
		assert.True(t, opts.Harvest)
		assert.False(t, opts.ApplyTranslations)

		cfg := config.Default()
		cfg.ExcludeValues = true
		cfg.TranslationDir = "de"
		opts = buildParams{applyTranslations: true}.options(cfg)
		assert.True(t, opts.ExcludeValues)
		assert.Equal(t, "de", opts.TranslationDir)
	})
}

func TestBuild(t *testing.T) {

	t.Run("binary", func(t *testing.T) {
		chdirTemp(t)
		writeFile(t, "main.opd", MAIN_SOURCE)

		code, out, errOut := run(BUILD_SUBCMD, "-s", "main.opd", "-e", "out/game.bin", "-seed", "7")
		require.Equal(t, 0, code, errOut)

		assert.Contains(t, out, "Statistics")
		assert.Contains(t, out, "Scene count: 1\n")
		assert.Contains(t, out, "Definition count: 1\n")
		assert.Contains(t, out, "Unique command count: 1\n")

		data, err := os.ReadFile("out/game.bin")
		require.NoError(t, err)

		program, err := bytecode.DecodeBytes(data)
		require.NoError(t, err)
		assert.Len(t, program.Scenes(), 1)
		assert.Contains(t, program.Strings(), "Hello")
	})

	t.Run("missing export", func(t *testing.T) {
		chdirTemp(t)
		writeFile(t, "main.opd", MAIN_SOURCE)

		code, _, errOut := run(BUILD_SUBCMD, "-s", "main.opd")
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, errOut, ErrMissingExport.Error())
	})

	t.Run("missing source file", func(t *testing.T) {
		chdirTemp(t)

		code, _, errOut := run(BUILD_SUBCMD, "-s", "main.opd", "-e", "game.bin")
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, errOut, "main.opd")
		assert.NoFileExists(t, "game.bin")
	})

	t.Run("source outside of the working directory", func(t *testing.T) {
		dir := chdirTemp(t)

		code, _, errOut := run(BUILD_SUBCMD, "-s", filepath.Join(filepath.Dir(dir), "main.opd"), "-e", "game.bin")
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, errOut, ErrSourceOutsideRoot.Error())
	})

	t.Run("compilation error", func(t *testing.T) {
		chdirTemp(t)
		writeFile(t, "main.opd", "scene intro:\n\t$x =\n\t\"Hello\"\n")

		code, _, errOut := run(BUILD_SUBCMD, "-s", "main.opd", "-e", "game.bin")
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, errOut, "Error list:")
		assert.Contains(t, errOut, `File "main.opd", line 2`)
		assert.Contains(t, errOut, "compilation failed: ")
		assert.NoFileExists(t, "game.bin")
	})

	t.Run("generate then apply translations", func(t *testing.T) {
		chdirTemp(t)
		writeFile(t, "main.opd", MAIN_SOURCE)

		code, _, errOut := run(BUILD_SUBCMD, "-s", "main.opd", "-t", "-c")
		require.Equal(t, 0, code, errOut)
		assert.NoFileExists(t, "game.bin")

		content, err := os.ReadFile("main.opd.opdat")
		require.NoError(t, err)
		assert.Contains(t, string(content), "!E\n")
		assert.Contains(t, string(content), "=s:intro\n\"Hello\"\n\"Yes\"\n\"No\"\n")

		translated := bytes.Replace(content, []byte(`"Hello"`), []byte(`"Bonjour"`), 1)
		writeFile(t, "main.opd.opdat", string(translated))

		code, _, errOut = run(BUILD_SUBCMD, "-s", "main.opd", "-e", "game.bin", "-a")
		require.Equal(t, 0, code, errOut)

		code, out, errOut := run(DUMP_SUBCMD, "game.bin")
		require.Equal(t, 0, code, errOut)
		assert.Contains(t, out, `"Bonjour"`)
		assert.NotContains(t, out, `"Hello"`)
	})

	t.Run("configuration file", func(t *testing.T) {
		dir := chdirTemp(t)
		writeFile(t, "main.opd", MAIN_SOURCE)
		writeFile(t, filepath.Join(dir, ".config", config.CONFIG_FILE_RELPATH), "emit-debug-instructions: true\n")

		code, _, errOut := run(BUILD_SUBCMD, "-s", "main.opd", "-e", "game.bin")
		require.Equal(t, 0, code, errOut)

		code, out, errOut := run(DUMP_SUBCMD, "game.bin")
		require.Equal(t, 0, code, errOut)
		assert.Contains(t, out, "DebugLine")
	})

	t.Run("invalid configuration file", func(t *testing.T) {
		dir := chdirTemp(t)
		writeFile(t, "main.opd", MAIN_SOURCE)
		writeFile(t, filepath.Join(dir, ".config", config.CONFIG_FILE_RELPATH), "log-level: loud\n")

		code, _, errOut := run(BUILD_SUBCMD, "-s", "main.opd", "-e", "game.bin")
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, errOut, config.ErrInvalidLogLevel.Error())
	})
}

func TestDump(t *testing.T) {

	t.Run("disassembly", func(t *testing.T) {
		chdirTemp(t)
		writeFile(t, "main.opd", MAIN_SOURCE)

		code, _, errOut := run(BUILD_SUBCMD, "-s", "main.opd", "-e", "game.bin")
		require.Equal(t, 0, code, errOut)

		code, out, errOut := run(DUMP_SUBCMD, "game.bin")
		require.Equal(t, 0, code, errOut)
		assert.Contains(t, out, "scenes (1):")
		assert.Contains(t, out, "definitions (1):")
	})

	t.Run("json", func(t *testing.T) {
		chdirTemp(t)
		writeFile(t, "main.opd", MAIN_SOURCE)

		code, _, errOut := run(BUILD_SUBCMD, "-s", "main.opd", "-e", "game.bin", "-no-shuffle")
		require.Equal(t, 0, code, errOut)

		code, out, errOut := run(DUMP_SUBCMD, "game.bin", "-json")
		require.Equal(t, 0, code, errOut)

		var export programExport
		require.NoError(t, json.Unmarshal([]byte(out), &export))

		assert.Equal(t, bytecode.FORMAT_VERSION, export.Version)
		assert.Equal(t, map[string]string{"characters.bob": "Bob"}, export.Definitions)
		require.Len(t, export.Scenes, 1)
		assert.Equal(t, "intro", export.Scenes[0].Name)
		assert.Equal(t, 1, export.Stats.SceneCount)
		assert.Len(t, export.Listing, len(export.Instructions))
		assert.Len(t, export.Commands, 1)
	})

	t.Run("missing path", func(t *testing.T) {
		code, _, errOut := run(DUMP_SUBCMD)
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, errOut, "missing binary path")
	})

	t.Run("not a binary", func(t *testing.T) {
		chdirTemp(t)
		writeFile(t, "game.bin", "not a binary")

		code, _, errOut := run(DUMP_SUBCMD, "game.bin")
		assert.Equal(t, ERROR_STATUS_CODE, code)
		assert.Contains(t, errOut, "game.bin: ")
	})
}

func TestExportProgramScenesAreSortedNaturally(t *testing.T) {
	program := bytecode.NewProgram()
	for _, name := range []string{"scene10", "scene2", "scene1"} {
		program.AddScene(program.RegisterString(name), program.NextLabel())
	}

	export := exportProgram(program)

	var names []string
	for _, scene := range export.Scenes {
		names = append(names, scene.Name)
	}
	assert.Equal(t, []string{"scene1", "scene2", "scene10"}, names)
}

func TestSourceWatcher(t *testing.T) {
	fls := afs.NewMemFilesystem()
	require.NoError(t, afs.WriteFile(fls, "main.opd", []byte("main")))
	require.NoError(t, afs.WriteFile(fls, "scenes/a.opd", []byte("a")))
	require.NoError(t, afs.WriteFile(fls, "notes/todo.txt", []byte("todo")))

	w := &sourceWatcher{
		sources:  fls,
		patterns: []string{config.DEFAULT_WATCH_PATTERN},
		logger:   zerolog.Nop(),
	}

	dirs, err := w.sourceDirs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{".", "scenes"}, dirs)

	assert.True(t, w.matches("main.opd"))
	assert.True(t, w.matches("scenes/a.opd"))
	assert.False(t, w.matches("notes/todo.txt"))

	t.Run("a panicking build is recovered", func(t *testing.T) {
		calls := 0
		w.rebuild = func() {
			calls++
			panic("boom")
		}

		assert.NotPanics(t, w.safeRebuild)
		assert.NotPanics(t, w.safeRebuild)
		assert.Equal(t, 2, calls)
	})

	t.Run("a scheduled rebuild does not run after the watch returns", func(t *testing.T) {
		dir := t.TempDir()
		mainFile := filepath.Join(dir, "main.opd")
		require.NoError(t, os.WriteFile(mainFile, []byte("main"), 0o600))

		sources, err := afs.NewOsFilesystem(dir)
		require.NoError(t, err)

		var calls atomic.Int32
		w := &sourceWatcher{
			sources:  sources,
			patterns: []string{config.DEFAULT_WATCH_PATTERN},
			logger:   zerolog.Nop(),
			rebuild: func() {
				calls.Add(1)
			},
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- w.watch(ctx, 300*time.Millisecond)
		}()

		require.Eventually(t, func() bool {
			return calls.Load() == 1
		}, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, os.WriteFile(mainFile, []byte("changed"), 0o600))
		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			require.FailNow(t, "watch did not return")
		}

		time.Sleep(500 * time.Millisecond)
		assert.EqualValues(t, 1, calls.Load())
	})
}
