package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/colinator27/open-day-dialogue-compiler/internal/afs"
	"github.com/colinator27/open-day-dialogue-compiler/internal/build"
	"github.com/colinator27/open-day-dialogue-compiler/internal/bytecode"
	"github.com/colinator27/open-day-dialogue-compiler/internal/config"
	"github.com/colinator27/open-day-dialogue-compiler/internal/report"
	"github.com/colinator27/open-day-dialogue-compiler/internal/utils"
	"github.com/rs/zerolog"
)

var (
	ErrMissingSource     = errors.New("missing source file (-s)")
	ErrMissingExport     = errors.New("missing export file (-e), it can only be omitted when generating translation files (-t)")
	ErrSourceOutsideRoot = errors.New("the source file should be located in the working directory")
)

type buildParams struct {
	source string
	export string

	harvest               bool
	excludeValues         bool
	applyTranslations     bool
	translationDir        string
	ignoreTranslationHash bool

	emitDebugInstructions bool
	noShuffle             bool
	shuffleSeed           int64
	verbose               bool
}

func registerBuildFlags(flags *flag.FlagSet, params *buildParams) {
	flags.StringVar(&params.source, "s", "", "the input source file, include paths are relative to the working directory")
	flags.StringVar(&params.export, "e", "", "the export binary file")
	flags.BoolVar(&params.harvest, "t", false, "generate translation files (<source>.opdat) as compiling happens")
	flags.BoolVar(&params.excludeValues, "c", false, "exclude values and command arguments when generating translation files")
	flags.BoolVar(&params.applyTranslations, "a", false, "apply the translation files found next to the sources (or in -tdir)")
	flags.StringVar(&params.translationDir, "tdir", "", "directory containing the translation files to apply")
	flags.BoolVar(&params.ignoreTranslationHash, "ignore-hash", false, "apply translation files even if the source files have changed")
	flags.BoolVar(&params.emitDebugInstructions, "debug", false, "emit a Line instruction before each statement")
	flags.BoolVar(&params.noShuffle, "no-shuffle", false, "do not shuffle the string table")
	flags.Int64Var(&params.shuffleSeed, "seed", 0, "seed of the string table shuffle (random if zero)")
	flags.BoolVar(&params.verbose, "v", false, "show debug logs")
}

func (p buildParams) check() error {
	if p.source == "" {
		return ErrMissingSource
	}
	if p.export == "" && !p.harvest {
		return ErrMissingExport
	}
	return nil
}

// options returns the build options, the configuration file values are overridden by the flags.
func (p buildParams) options(cfg config.Config) build.Options {
	translationDir := cfg.TranslationDir
	if p.translationDir != "" {
		translationDir = p.translationDir
	}

	//strings are only shuffled if a binary is written
	shuffle := cfg.ShuffleStrings && !p.noShuffle && p.export != ""

	return build.Options{
		EmitDebugInstructions: cfg.EmitDebugInstructions || p.emitDebugInstructions,
		ShuffleStrings:        shuffle,
		ShuffleSeed:           p.shuffleSeed,
		Harvest:               p.harvest,
		ExcludeValues:         cfg.ExcludeValues || p.excludeValues,
		ApplyTranslations:     !p.harvest && (p.applyTranslations || p.translationDir != ""),
		TranslationDir:        translationDir,
		IgnoreTranslationHash: cfg.IgnoreTranslationHash || p.ignoreTranslationHash,
	}
}

func BuildProgram(mainSubCommand string, mainSubCommandArgs []string, outW, errW io.Writer) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(errW)

	var params buildParams
	registerBuildFlags(flags, &params)

	if showHelp(flags, mainSubCommandArgs, outW) {
		return
	}

	if err := flags.Parse(mainSubCommandArgs); err != nil {
		return ERROR_STATUS_CODE
	}

	if err := params.check(); err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}

	logger, err := createLogger(errW, cfg, params.verbose)
	if err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}

	if _, err := runBuild(params, cfg, logger, outW, errW); err != nil {
		return ERROR_STATUS_CODE
	}
	return 0
}

func createLogger(w io.Writer, cfg config.Config, verbose bool) (zerolog.Logger, error) {
	level, err := cfg.ZerologLevel()
	if err != nil {
		return zerolog.Nop(), err
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:     w,
		NoColor: !config.SHOULD_COLORIZE,
	}
	return zerolog.New(consoleWriter).Level(level).With().Timestamp().Logger(), nil
}

// runBuild compiles the source file, writes the outputs and prints the error list and the statistics.
// The returned error has already been printed.
func runBuild(params buildParams, cfg config.Config, logger zerolog.Logger, outW, errW io.Writer) (*build.Result, error) {
	sources, source, err := sourceFilesystem(params.source)
	if err != nil {
		fmt.Fprintln(errW, err)
		return nil, err
	}

	reporter := report.NewReporter()
	ctx := &build.Context{
		Sources:  sources,
		Reporter: reporter,
		Logger:   logger,
		Options:  params.options(cfg),
	}

	result, err := build.Compile(ctx, source)

	if reporter.Len() > 0 {
		reporter.Format(errW, report.FormatOptions{Colorize: config.SHOULD_COLORIZE, LogItems: true})
	}

	if err != nil {
		if errors.Is(err, build.ErrCompilationFailed) {
			warnings, errorCount := reporter.Counts()
			fmt.Fprintf(errW, "\ncompilation failed: %d error(s), %d warning(s)\n", errorCount, warnings)
		} else {
			fmt.Fprintln(errW, err)
		}
		return nil, err
	}

	var outputErrs []error

	if params.export != "" {
		logger.Info().Str("file", params.export).Msg("writing binary")

		var buf bytes.Buffer
		if err := result.Encode(&buf); err != nil {
			outputErrs = append(outputErrs, err)
		} else if err := writeOutputFile(params.export, buf.Bytes()); err != nil {
			outputErrs = append(outputErrs, fmt.Errorf("failed to write binary: %w", err))
		}
	} else {
		logger.Info().Msg("not writing binary and not shuffling strings; no file specified")
	}

	if params.harvest {
		written, err := result.WriteTranslationFiles(sources)
		for _, file := range written {
			logger.Info().Str("file", file).Msg("wrote translation file")
		}
		if err != nil {
			outputErrs = append(outputErrs, err)
		}
	}

	if err := utils.CombineErrorsWithPrefixMessage("failed to write outputs", outputErrs...); err != nil {
		fmt.Fprintln(errW, err)
		return nil, err
	}

	logger.Info().Msg("completed")
	printStatistics(outW, result.Program)
	return result, nil
}

// sourceFilesystem returns a filesystem rooted at the working directory and the path of
// the source file relative to it.
func sourceFilesystem(source string) (afs.Filesystem, string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}

	if filepath.IsAbs(source) {
		rel, err := filepath.Rel(wd, source)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, "", fmt.Errorf("%w: %s", ErrSourceOutsideRoot, source)
		}
		source = rel
	}

	fls, err := afs.NewOsFilesystem(wd)
	if err != nil {
		return nil, "", err
	}
	return fls, source, nil
}

// outputFilesystem returns a filesystem rooted at the directory of an output file and the
// name of the file.
func outputFilesystem(path string) (afs.Filesystem, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	fls, err := afs.NewOsFilesystem(filepath.Dir(abs))
	if err != nil {
		return nil, "", err
	}
	return fls, filepath.Base(abs), nil
}

func writeOutputFile(path string, data []byte) error {
	fls, name, err := outputFilesystem(path)
	if err != nil {
		return err
	}
	return afs.WriteFile(fls, name, data)
}

func readInputFile(path string) ([]byte, error) {
	fls, name, err := outputFilesystem(path)
	if err != nil {
		return nil, err
	}
	return afs.Read(fls, name)
}

func printStatistics(w io.Writer, program *bytecode.Program) {
	stats := program.Stats()

	fmt.Fprintln(w, config.ColorProfile().String("Statistics").Bold())
	utils.PrintSmallLineSeparator(w)
	fmt.Fprintf(w, "Instruction count: %d\nUnique command count: %d\nDefinition count: %d\n"+
		"Scene count: %d\nUnique string count: %d\nUnique value count: %d\n",
		stats.InstructionCount, stats.CommandCount, stats.DefinitionCount,
		stats.SceneCount, stats.StringCount, stats.ValueCount)
}
