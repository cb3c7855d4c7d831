package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/colinator27/open-day-dialogue-compiler/internal/afs"
	"github.com/colinator27/open-day-dialogue-compiler/internal/config"
	"github.com/colinator27/open-day-dialogue-compiler/internal/utils"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
)

func WatchSources(mainSubCommand string, mainSubCommandArgs []string, outW, errW io.Writer) (exitCode int) {
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

	ctx, cancel := CancelOnSigintSigterm(context.Background())
	defer cancel()

	sources, _, err := sourceFilesystem(params.source)
	if err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}

	w := &sourceWatcher{
		sources:  sources,
		patterns: cfg.Watch.Patterns,
		logger:   logger,
		rebuild: func() {
			runBuild(params, cfg, logger, outW, errW)
		},
	}

	if err := w.watch(ctx, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond); err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}
	return 0
}

type sourceWatcher struct {
	sources  afs.Filesystem
	patterns []string
	logger   zerolog.Logger
	rebuild  func()

	lock sync.Mutex
}

// watch builds once and then each time a source file matching one of the patterns changes,
// it returns when ctx is done.
func (w *sourceWatcher) watch(ctx context.Context, debounceDuration time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs, err := w.sourceDirs()
	if err != nil {
		return err
	}

	root, err := w.sources.Absolute(".")
	if err != nil {
		return err
	}

	var addErrs []error
	for _, dir := range dirs {
		if err := watcher.Add(filepath.Join(root, dir)); err != nil {
			addErrs = append(addErrs, err)
		}
	}
	if err := utils.CombineErrorsWithPrefixMessage("failed to watch the source directories", addErrs...); err != nil {
		return err
	}

	w.safeRebuild()

	debounced := debounce.New(debounceDuration)
	stopped := make(chan struct{})
	defer func() {
		close(stopped)
		//replace the pending rebuild
		debounced(func() {})
	}()

	scheduledRebuild := func() {
		select {
		case <-stopped:
		default:
			w.safeRebuild()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			rel, err := filepath.Rel(root, event.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			if event.Has(fsnotify.Create) {
				info, err := w.sources.Stat(rel)
				if err == nil && info.IsDir() {
					watcher.Add(event.Name)
					continue
				}
			}

			if !w.matches(rel) {
				continue
			}

			w.logger.Debug().Str("file", rel).Str("op", event.Op.String()).Msg("source changed")
			debounced(scheduledRebuild)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Err(err).Msg("watcher error")
		}
	}
}

// sourceDirs returns the directories containing at least one source file.
func (w *sourceWatcher) sourceDirs() ([]string, error) {
	stdFs := afs.MakeStdlibFsAdapter(w.sources)
	dirs := map[string]struct{}{".": {}}

	for _, pattern := range w.patterns {
		err := doublestar.GlobWalk(stdFs, pattern, func(path string, d fs.DirEntry) error {
			if !d.IsDir() {
				dirs[filepath.ToSlash(filepath.Dir(path))] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}

	return maps.Keys(dirs), nil
}

func (w *sourceWatcher) matches(path string) bool {
	for _, pattern := range w.patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

func (w *sourceWatcher) safeRebuild() {
	w.lock.Lock()
	defer w.lock.Unlock()

	defer func() {
		if v := recover(); v != nil {
			w.logger.Err(utils.ConvertPanicValueToError(v)).Msg("build panicked")
		}
	}()

	w.rebuild()
}
