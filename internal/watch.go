package internal

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounce = 100 * time.Millisecond

// Watcher reruns the engine on Go files that change under a set of
// directories.
type Watcher struct {
	engine   *Engine
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	onResult func(*Result, error)
	skip     func(path string) bool

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher that passes every rewrite outcome to
// onResult. skip may be nil; directories it accepts are not watched.
func NewWatcher(engine *Engine, logger *zap.Logger, skip func(string) bool, onResult func(*Result, error)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if skip == nil {
		skip = func(string) bool { return false }
	}
	return &Watcher{
		engine:   engine,
		logger:   logger,
		watcher:  w,
		onResult: onResult,
		skip:     skip,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Add watches dir and its subdirectories.
func (w *Watcher) Add(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (strings.HasPrefix(d.Name(), ".") || w.skip(path)) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("error adding directory to watcher: %w", err)
	}
	return nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleFileEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleFileEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if filepath.Ext(event.Name) != ".go" || w.skip(event.Name) {
		return
	}

	// several writes in quick succession are processed once
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[event.Name]; ok {
		t.Reset(debounce)
		return
	}
	name := event.Name
	w.pending[name] = time.AfterFunc(debounce, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()

		res, err := w.engine.Run(name)
		if err != nil {
			w.logger.Error("error rewriting file", zap.String("file", name), zap.Error(err))
		}
		if w.onResult != nil {
			w.onResult(res, err)
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("error closing watcher", zap.Error(err))
	}
}
