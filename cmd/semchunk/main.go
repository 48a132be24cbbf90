// Command semchunk splits source trees into semantic chunks and prints them
// as JSON lines.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/semchunk/config"
)

var (
	rootCmd = &cobra.Command{
		Use:           "semchunk",
		Short:         "Semantic code chunking for retrieval pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath string
	logLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(languagesCmd)
}

// setup loads the config and builds the stderr logger every command uses.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	return cfg, logger, nil
}
