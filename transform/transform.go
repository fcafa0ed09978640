// Package transform runs the rewrite engine over files and directories.
package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnolang/rxobs/internal"
	"github.com/gnolang/rxobs/internal/check"
	tt "github.com/gnolang/rxobs/internal/types"
)

// Engine is the part of internal.Engine the processing functions use.
type Engine interface {
	Run(filename string) (*internal.Result, error)
	Check(filename string) ([]tt.Issue, []string, error)
}

// New builds an engine from cfg. With useCache, results are cached in
// cfg.Output.CacheDir.
func New(cfg *Config, logger *zap.Logger, useCache bool) (*internal.Engine, error) {
	opts := []internal.EngineOption{
		internal.WithFunctions(cfg.Directives()),
		internal.WithRuntime(cfg.Runtime.ImportPath, cfg.Runtime.Alias),
		internal.WithLogger(logger),
	}
	if useCache && cfg.Output.CacheDir != "" {
		cache, err := internal.NewCache(cfg.Output.CacheDir, cfg.Key())
		if err != nil {
			return nil, err
		}
		opts = append(opts, internal.WithCache(cache))
	}
	return internal.NewEngine(opts...), nil
}

// Options controls how paths are processed.
type Options struct {
	// Progress receives a progress bar while directories are processed.
	// Nil disables it.
	Progress io.Writer

	// Skip excludes directories, in addition to hidden, vendor and
	// testdata directories.
	Skip func(path string) bool

	// Workers bounds concurrent files. Zero means runtime.NumCPU().
	Workers int
}

// ProcessFiles runs process on every Go file under paths. Results keep
// the order of the files; files that fail are logged and reported
// together in the returned error.
func ProcessFiles[T any](
	ctx context.Context,
	logger *zap.Logger,
	paths []string,
	opts Options,
	process func(string) (T, error),
) ([]T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var files []string
	for _, path := range paths {
		found, err := collectFiles(path, opts.Skip)
		if err != nil {
			logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			return nil, err
		}
		files = append(files, found...)
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil && len(files) > 1 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription(strings.Join(paths, " ")),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]T, len(files))
	failed := make([]error, len(files))
	ok := make([]bool, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var barMu sync.Mutex
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := process(file)
			if err != nil {
				logger.Error("Error processing file", zap.String("file", file), zap.Error(err))
				failed[i] = fmt.Errorf("%s: %w", file, err)
			} else {
				results[i], ok[i] = res, true
			}
			if bar != nil {
				barMu.Lock()
				_ = bar.Add(1)
				barMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]T, 0, len(files))
	for i := range files {
		if ok[i] {
			out = append(out, results[i])
		}
	}
	return out, errors.Join(failed...)
}

// Rewrite rewrites every Go file under paths.
func Rewrite(ctx context.Context, logger *zap.Logger, engine Engine, paths []string, opts Options) ([]*internal.Result, error) {
	return ProcessFiles(ctx, logger, paths, opts, engine.Run)
}

// Check reports directive problems for every Go file under paths, and
// configured functions that none of the files declare.
func Check(ctx context.Context, logger *zap.Logger, engine Engine, cfg *Config, paths []string, opts Options) ([]tt.Issue, error) {
	type fileCheck struct {
		issues []tt.Issue
		names  []string
	}
	checks, err := ProcessFiles(ctx, logger, paths, opts, func(path string) (fileCheck, error) {
		issues, names, err := engine.Check(path)
		return fileCheck{issues, names}, err
	})

	var issues []tt.Issue
	seen := make(map[string]bool)
	for _, c := range checks {
		issues = append(issues, c.issues...)
		for _, name := range c.names {
			seen[name] = true
		}
	}
	if err != nil {
		return issues, err
	}
	return append(issues, check.UnknownFunctions(cfg.Directives(), cfg.Positions(), seen)...), nil
}

func collectFiles(path string, skip func(string) bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}
	if !info.IsDir() {
		if isGoFile(path) {
			return []string{path}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && SkipDir(p, skip) {
				return filepath.SkipDir
			}
			return nil
		}
		if isGoFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", path, err)
	}
	return files, nil
}

// SkipDir reports whether the directory at path is never processed.
func SkipDir(path string, skip func(string) bool) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata" {
		return true
	}
	return skip != nil && skip(path)
}

func isGoFile(path string) bool {
	return filepath.Ext(path) == ".go"
}
