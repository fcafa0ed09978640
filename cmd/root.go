package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/rxobs/internal"
	"github.com/gnolang/rxobs/transform"
)

const defaultTimeout = 5 * time.Minute

var (
	cfgFile string
	timeout time.Duration
	verbose bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:              "rxobs [paths...]",
	Short:            "rxobs - instruments annotated Go functions with observer hooks",
	TraverseChildren: true, // Prioritize subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(verbose)
		return err
	},
	Run: func(cmd *cobra.Command, args []string) {
		// no subcommand
		if len(args) == 0 {
			_ = cmd.Help()
			return
		}
		// Format: rxobs [path1 path2 ...] => behaves like the rewrite subcommand
		rewriteCmd.Run(rewriteCmd, args)
	},
}

func Execute() error {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", transform.DefaultConfigFile, "Configuration file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Timeout for a single run")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(overlayCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// setup loads the configuration and builds an engine from it.
func setup(useCache bool) (*transform.Config, *internal.Engine, error) {
	cfg, err := transform.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	engine, err := transform.New(cfg, logger, useCache)
	if err != nil {
		return nil, nil, err
	}
	return cfg, engine, nil
}
