package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"fieldingest/internal/config"
	"fieldingest/internal/jobapi"
)

type backendFactory func(cfg *config.Config, logger *slog.Logger) jobapi.Backend

func defaultBackend(cfg *config.Config, logger *slog.Logger) jobapi.Backend {
	return jobapi.NewClient(jobapi.Config{
		BaseURL: cfg.Backend.BaseURL,
		Token:   cfg.Backend.APIToken,
		Timeout: cfg.RequestTimeout(),
	}, jobapi.WithLogger(logger))
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(defaultBackend)
}

func newRootCommandWith(backend backendFactory) *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag, backend)

	rootCmd := &cobra.Command{
		Use:           "fieldingest",
		Short:         "Ingest field collection folders into the transcode pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newParseCommand(ctx))
	rootCmd.AddCommand(newBucketsCommand(ctx))
	rootCmd.AddCommand(newRenameCommand(ctx))
	rootCmd.AddCommand(newFolderCommand())
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newCountCommand(ctx))
	rootCmd.AddCommand(newSettingsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
