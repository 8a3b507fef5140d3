package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/esainane/steambridge/internal/app"
	"github.com/esainane/steambridge/internal/config"
	"github.com/esainane/steambridge/internal/log"
)

func main() {
	var (
		flagConfig   string
		flagAccount  string
		flagLogLevel string
	)

	root := &cobra.Command{
		Use:           "steambridge",
		Short:         "Bridge Steam web chat into the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLog := log.New("info")
			cfg, path, err := config.Load(bootLog, flagConfig)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(config.Config{Account: flagAccount, LogLevel: flagLogLevel})

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("account", cfg.Account).Msg("starting steambridge")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			return application.Run(ctx)
		},
	}

	root.Flags().StringVar(&flagConfig, "config", "", "path to config file")
	root.Flags().StringVar(&flagAccount, "account", "", "account name for the persisted session")
	root.Flags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		log.New("error").Error().Err(err).Msg("steambridge exited")
		os.Exit(1)
	}
}
