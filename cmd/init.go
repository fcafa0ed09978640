package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/rxobs/transform"
)

var forceInit bool

// initCmd: rxobs init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		if err := initConfigurationFile(cfgFile, forceInit); err != nil {
			logger.Error("Error initializing config file", zap.Error(err))
			os.Exit(1)
		}
		fmt.Printf("Configuration file created: %s\n", cfgFile)
	},
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
}

func initConfigurationFile(configurationPath string, force bool) error {
	if configurationPath == "" {
		configurationPath = transform.DefaultConfigFile
	}
	if _, err := os.Stat(configurationPath); err == nil && !force {
		return fmt.Errorf("%s: %w", configurationPath, os.ErrExist)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return transform.DefaultConfig(".").Write(configurationPath)
}
