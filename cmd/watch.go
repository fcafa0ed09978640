package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/rxobs/internal"
	"github.com/gnolang/rxobs/transform"
)

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Keep an overlay up to date while files change",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			args = []string{"."}
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, engine, err := setup(true)
		if err != nil {
			logger.Fatal("Failed to initialize rewrite engine", zap.Error(err))
		}
		dir := watchDir
		if dir == "" {
			dir = cfg.Output.CacheDir
		}

		if err := runWatch(ctx, logger, engine, args, dir, cmd.OutOrStdout()); err != nil {
			logger.Error("Error watching files", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchDir, "output", "o", "", "Overlay directory (default: output.cache_dir)")
}

// overlayState holds the latest result of every file and rewrites the
// overlay whenever one of them changes.
type overlayState struct {
	dir    string
	logger *zap.Logger
	w      io.Writer

	mu      sync.Mutex
	results map[string]*internal.Result
}

func newOverlayState(dir string, logger *zap.Logger, w io.Writer, results []*internal.Result) *overlayState {
	s := &overlayState{
		dir:     dir,
		logger:  logger,
		w:       w,
		results: make(map[string]*internal.Result, len(results)),
	}
	for _, res := range results {
		s.results[key(res.Filename)] = res
	}
	return s
}

func (s *overlayState) update(res *internal.Result, err error) {
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[key(res.Filename)] = res
	if _, err := s.write(); err != nil {
		s.logger.Error("Error writing overlay", zap.Error(err))
		return
	}
	fmt.Fprintf(s.w, "Updated %s (%d hooks)\n", res.Filename, res.Hooks)
}

// write must be called with mu held.
func (s *overlayState) write() (string, error) {
	results := make([]*internal.Result, 0, len(s.results))
	for _, res := range s.results {
		results = append(results, res)
	}
	return transform.WriteOverlay(s.dir, results)
}

func key(filename string) string {
	if abs, err := filepath.Abs(filename); err == nil {
		return abs
	}
	return filename
}

func runWatch(ctx context.Context, logger *zap.Logger, engine *internal.Engine, dirs []string, outDir string, w io.Writer) error {
	skip := skipFunc(nil, outDir)
	results, err := transform.Rewrite(ctx, logger, engine, dirs, transform.Options{Skip: skip})
	if err != nil {
		logger.Warn("Initial rewrite incomplete", zap.Error(err))
	}

	state := newOverlayState(outDir, logger, w, results)
	state.mu.Lock()
	path, err := state.write()
	state.mu.Unlock()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Watching %v, overlay at %s\n", dirs, path)

	watcher, err := internal.NewWatcher(engine, logger, skip, state.update)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}
	return watcher.Run(ctx)
}
