package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/rxobs/internal"
	"github.com/gnolang/rxobs/transform"
)

type rewriteOptions struct {
	write     bool
	outDir    string
	diff      bool
	dryRun    bool
	noCache   bool
	skipPaths []string
}

var rewriteOpts rewriteOptions

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [paths...]",
	Short: "Instrument annotated functions",
	Long: `Rewrites every annotated function under the given paths. By default the
rewritten source is printed; -w replaces the files and -o writes them below a
directory instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		_, engine, err := setup(!rewriteOpts.noCache)
		if err != nil {
			logger.Fatal("Failed to initialize rewrite engine", zap.Error(err))
		}

		if err := runRewrite(ctx, logger, engine, args, rewriteOpts, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
			logger.Error("Error rewriting files", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	rewriteCmd.Flags().BoolVarP(&rewriteOpts.write, "write", "w", false, "Write results to the source files")
	rewriteCmd.Flags().StringVarP(&rewriteOpts.outDir, "output", "o", "", "Write results below this directory")
	rewriteCmd.Flags().BoolVar(&rewriteOpts.diff, "diff", false, "Print unified diffs instead of rewritten source")
	rewriteCmd.Flags().BoolVar(&rewriteOpts.dryRun, "dry-run", false, "Report what would change without writing anything")
	rewriteCmd.Flags().BoolVar(&rewriteOpts.noCache, "no-cache", false, "Do not use the rewrite cache")
	rewriteCmd.Flags().StringSliceVar(&rewriteOpts.skipPaths, "skip", nil, "Directories to skip")
}

func runRewrite(
	ctx context.Context,
	logger *zap.Logger,
	engine transform.Engine,
	paths []string,
	opts rewriteOptions,
	stdout, stderr io.Writer,
) error {
	skip := skipFunc(opts.skipPaths, opts.outDir)
	results, err := transform.Rewrite(ctx, logger, engine, paths, transform.Options{
		Progress: stderr,
		Skip:     skip,
	})
	if err != nil && len(results) == 0 {
		return err
	}

	changed := 0
	for _, res := range results {
		if res.Changed() {
			changed++
		}
		if werr := emit(res, opts, paths, stdout); werr != nil {
			logger.Error("Error writing result", zap.String("file", res.Filename), zap.Error(werr))
			if err == nil {
				err = werr
			}
		}
	}
	logger.Info("Rewrite finished",
		zap.Int("files", len(results)),
		zap.Int("changed", changed),
	)
	return err
}

func emit(res *internal.Result, opts rewriteOptions, roots []string, w io.Writer) error {
	switch {
	case opts.dryRun:
		if res.Changed() {
			_, err := fmt.Fprintf(w, "Would instrument %s: %v (%d hooks)\n", res.Filename, res.Functions, res.Hooks)
			return err
		}
		return nil
	case opts.diff:
		_, err := io.WriteString(w, transform.Diff(res))
		return err
	case opts.write:
		if !res.Changed() {
			return nil
		}
		if err := transform.WriteResult(res.Filename, res); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "Instrumented %s\n", res.Filename)
		return err
	case opts.outDir != "":
		target, err := outputPath(opts.outDir, roots, res.Filename)
		if err != nil {
			return err
		}
		return transform.WriteResult(target, res)
	default:
		_, err := w.Write(res.Output)
		return err
	}
}

// outputPath places filename below outDir, relative to the path argument
// it was found under. Files outside every root are rejected.
func outputPath(outDir string, roots []string, filename string) (string, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return "", err
	}
	for _, root := range roots {
		base, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if info, err := os.Stat(base); err == nil && !info.IsDir() {
			base = filepath.Dir(base)
		}
		rel, err := filepath.Rel(base, abs)
		if err != nil || !filepath.IsLocal(rel) {
			continue
		}
		return filepath.Join(outDir, rel), nil
	}
	return "", fmt.Errorf("%s is not below any rewritten path", filename)
}

// skipFunc skips the listed directories and the output directory, so
// results are never fed back in.
func skipFunc(paths []string, outDir string) func(string) bool {
	var skipped []string
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			skipped = append(skipped, abs)
		}
	}
	if outDir != "" {
		if abs, err := filepath.Abs(outDir); err == nil {
			skipped = append(skipped, abs)
		}
	}
	return func(path string) bool {
		abs, err := filepath.Abs(path)
		return err == nil && slices.Contains(skipped, abs)
	}
}
