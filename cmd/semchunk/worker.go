package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevigo/semchunk/chunking"
	"github.com/sevigo/semchunk/coordinator"
)

// workerCmd is started by the process executor; it reads requests on stdin
// and answers on stdout until stdin closes.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Serve chunk requests over stdin/stdout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		engine, err := chunking.New(cfg, logger.With("pid", os.Getpid()))
		if err != nil {
			return fmt.Errorf("build engine: %w", err)
		}
		return coordinator.ServeWorker(cmd.Context(), engine, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the languages with structure-aware chunking",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		registry, err := chunking.NewRegistry(cfg, logger)
		if err != nil {
			return err
		}
		for _, lang := range registry.Languages() {
			fmt.Fprintln(cmd.OutOrStdout(), lang)
		}
		return nil
	},
}
