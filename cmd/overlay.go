package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/rxobs/transform"
)

var overlayDir string

var overlayCmd = &cobra.Command{
	Use:   "overlay [paths...]",
	Short: "Write instrumented copies and a go build -overlay file",
	Long: `Writes the instrumented files to the cache directory, leaving the sources
untouched, and prints the overlay file to pass to the go command:

	go build -overlay=$(rxobs overlay ./...)`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cfg, engine, err := setup(true)
		if err != nil {
			logger.Fatal("Failed to initialize rewrite engine", zap.Error(err))
		}
		dir := overlayDir
		if dir == "" {
			dir = cfg.Output.CacheDir
		}

		if err := runOverlay(ctx, logger, engine, args, dir, cmd.OutOrStdout()); err != nil {
			logger.Error("Error writing overlay", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	overlayCmd.Flags().StringVarP(&overlayDir, "output", "o", "", "Overlay directory (default: output.cache_dir)")
}

func runOverlay(ctx context.Context, logger *zap.Logger, engine transform.Engine, paths []string, dir string, w io.Writer) error {
	results, err := transform.Rewrite(ctx, logger, engine, paths, transform.Options{
		Skip: skipFunc(nil, dir),
	})
	if err != nil {
		return err
	}
	path, err := transform.WriteOverlay(dir, results)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, path)
	return err
}
