package build

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path"
	"time"

	"github.com/colinator27/open-day-dialogue-compiler/internal/afs"
	"github.com/colinator27/open-day-dialogue-compiler/internal/bytecode"
	"github.com/colinator27/open-day-dialogue-compiler/internal/compile"
	"github.com/colinator27/open-day-dialogue-compiler/internal/parse"
	"github.com/colinator27/open-day-dialogue-compiler/internal/report"
	"github.com/colinator27/open-day-dialogue-compiler/internal/translation"
	"github.com/rs/zerolog"
)

const (
	DEFAULT_LANGUAGE = "unknown"
	SRC_LOG_FIELD    = "src"

	UNUSED_TRANSLATED_STRINGS_MSG = "Translation file contains strings that are not used by the source code."
)

var (
	ErrCompilationFailed = errors.New("compilation failed")
	ErrNoSources         = errors.New("no source filesystem")
)

type Options struct {
	EmitDebugInstructions bool

	//shuffle the serialization order of the string table, a zero seed is replaced by the current time.
	ShuffleStrings bool
	ShuffleSeed    int64

	//collect the translatable strings of the compiled files, see Result.WriteTranslationFiles.
	Harvest       bool
	ExcludeValues bool

	//apply the <source>.opdat translation files found in TranslationDir (next to the sources if empty),
	//sources without translation file are not translated.
	ApplyTranslations     bool
	TranslationDir        string
	IgnoreTranslationHash bool

	TraceWriter io.Writer
}

// A Context holds the collaborators of a compilation.
type Context struct {
	Sources afs.Filesystem

	//if nil a provider is created according to the options.
	Translations compile.TranslationProvider

	//if nil a reporter is created, the reporter is shared by all the compiled files.
	Reporter *report.Reporter

	Logger  zerolog.Logger
	Options Options
}

type Result struct {
	Program  *bytecode.Program
	Language string

	//canonical paths of the compiled files in compilation order.
	Files  []string
	Hashes map[string]string

	//set if Options.Harvest is true and no provider is passed.
	Harvested *translation.Harvester

	Reporter *report.Reporter
}

type pipeline struct {
	ctx      *Context
	logger   zerolog.Logger
	reporter *report.Reporter
	compiler *compile.Compiler
	result   *Result
	applier  *translation.Applier

	queue    []string
	included map[string]struct{}
}

// Compile compiles a source file and all the files it includes, included files are compiled in the
// order of their first #include directive. Problems in the source code are reported to the reporter
// and cause ErrCompilationFailed to be returned, I/O errors are returned as is.
func Compile(ctx *Context, mainFile string) (*Result, error) {
	if ctx.Sources == nil {
		return nil, ErrNoSources
	}

	reporter := ctx.Reporter
	if reporter == nil {
		reporter = report.NewReporter()
	}

	p := &pipeline{
		ctx:      ctx,
		logger:   ctx.Logger,
		reporter: reporter,
		included: map[string]struct{}{},
		result: &Result{
			Program:  bytecode.NewProgram(),
			Language: DEFAULT_LANGUAGE,
			Hashes:   map[string]string{},
			Reporter: reporter,
		},
	}

	provider := ctx.Translations
	if provider == nil {
		switch {
		case ctx.Options.Harvest:
			p.result.Harvested = translation.NewHarvester(ctx.Options.ExcludeValues)
			provider = p.result.Harvested
		case ctx.Options.ApplyTranslations:
			p.applier = translation.NewApplier()
			provider = p.applier
		}
	}

	p.compiler = compile.NewCompiler(p.result.Program, compile.Options{
		Reporter:              reporter,
		Translations:          provider,
		EmitDebugInstructions: ctx.Options.EmitDebugInstructions,
		TraceWriter:           ctx.Options.TraceWriter,
	})

	p.enqueue(afs.CleanPath(mainFile))

	for len(p.queue) > 0 {
		file := p.queue[0]
		p.queue = p.queue[1:]

		ok, err := p.processFile(file)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCompilationFailed
		}
	}

	if reporter.HasErrors() {
		return nil, ErrCompilationFailed
	}

	if ctx.Options.ShuffleStrings {
		seed := ctx.Options.ShuffleSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		p.logger.Debug().Int64("seed", seed).Msg("shuffling strings")
		p.result.Program.ShuffleStrings(rand.New(rand.NewSource(seed)))
	}

	return p.result, nil
}

// enqueue returns false if the file has already been queued.
func (p *pipeline) enqueue(file string) bool {
	if _, ok := p.included[file]; ok {
		return false
	}
	p.included[file] = struct{}{}
	p.queue = append(p.queue, file)
	return true
}

// processFile returns false if the compilation cannot continue.
func (p *pipeline) processFile(file string) (bool, error) {
	logger := p.logger.With().Str(SRC_LOG_FIELD, file).Logger()
	logger.Debug().Msg("process file")

	p.reporter.SetFile(file)
	p.compiler.SetFile(file)

	content, err := afs.Read(p.ctx.Sources, file)
	if err != nil {
		return false, err
	}

	hash := translation.HashSource(content)
	p.result.Files = append(p.result.Files, file)
	p.result.Hashes[file] = hash

	if p.result.Harvested != nil {
		p.result.Harvested.AddFile(file, hash)
	}
	if p.applier != nil {
		if err := p.loadTranslationFile(logger, file, hash); err != nil {
			return false, err
		}
	}

	logger.Debug().Msg("lexing")
	tokens := parse.Lex(string(content), parse.LexerOptions{
		Reporter: p.reporter,
		OnInclude: func(path string) bool {
			return p.enqueue(afs.ResolveInclude(file, path))
		},
		OnLanguage: func(language string) {
			p.result.Language = language
		},
	})
	if !p.reporter.CanContinue() {
		return false, nil
	}

	logger.Debug().Msg("parsing")
	block := parse.Parse(tokens, p.reporter)
	if !p.reporter.CanContinue() {
		return false, nil
	}

	logger.Debug().Msg("generating code")
	p.compiler.Compile(block)
	if !p.reporter.CanContinue() {
		return false, nil
	}

	if p.applier != nil {
		for _, key := range p.applier.Leftovers(file) {
			p.reporter.Warn(UNUSED_TRANSLATED_STRINGS_MSG, -1, report.COMPILER_MODULE, key)
		}
	}
	return true, nil
}

func (p *pipeline) loadTranslationFile(logger zerolog.Logger, file, hash string) error {
	translationFile := TranslationFilePath(file)
	if dir := p.ctx.Options.TranslationDir; dir != "" {
		translationFile = path.Join(afs.CleanPath(dir), translationFile)
	}

	if !afs.Exists(p.ctx.Sources, translationFile) {
		logger.Debug().Str("translationFile", translationFile).Msg("no translation file")
		return nil
	}

	logger.Debug().Str("translationFile", translationFile).Msg("parsing translation file")

	content, err := afs.Read(p.ctx.Sources, translationFile)
	if err != nil {
		return err
	}

	f, err := translation.Parse(string(content), hash, p.ctx.Options.IgnoreTranslationHash)
	if err != nil {
		return fmt.Errorf("%s: %w", translationFile, err)
	}
	p.applier.AddFile(file, f)
	return nil
}

// TranslationFilePath returns the path of the translation file of a source file.
func TranslationFilePath(file string) string {
	return afs.CleanPath(file) + translation.FILE_EXTENSION
}

func (r *Result) Encode(w io.Writer) error {
	return bytecode.Encode(w, r.Program)
}

// WriteTranslationFiles writes the harvested translation file of each compiled file next to
// the source file and returns the paths of the written files.
func (r *Result) WriteTranslationFiles(fls afs.Filesystem) ([]string, error) {
	if r.Harvested == nil {
		return nil, nil
	}

	var written []string
	for _, file := range r.Harvested.Files() {
		f, _ := r.Harvested.File(file)

		var buf bytes.Buffer
		if err := translation.Write(&buf, f); err != nil {
			return written, err
		}

		translationFile := TranslationFilePath(file)
		if err := afs.WriteFile(fls, translationFile, buf.Bytes()); err != nil {
			return written, err
		}
		written = append(written, translationFile)
	}
	return written, nil
}
