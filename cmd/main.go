package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/app"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/db"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/logger"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/router/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "marches360",
		Short:         "Suivi des marchés publics: recours, délais et jalons",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory containing app.env")

	load := func() (config.Config, *logrus.Logger, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return cfg, nil, fmt.Errorf("cannot load config: %w", err)
		}
		return cfg, logger.Init(cfg.LogLevel, cfg.AppEnv), nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run migrations, then serve the HTTP API and the deadline watcher",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := load()
				if err != nil {
					return err
				}
				if err = db.RunMigrations(cfg); err != nil {
					return err
				}
				log.Info("db migrated successfully")

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				a, err := app.New(ctx, cfg, log)
				if err != nil {
					return err
				}
				defer a.Close()
				return a.Serve(ctx)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := load()
				if err != nil {
					return err
				}
				if err = db.RunMigrations(cfg); err != nil {
					return err
				}
				log.Info("db migrated successfully")
				return nil
			},
		},
		&cobra.Command{
			Use:   "deadlines",
			Short: "Print open recours whose active deadline has expired",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := load()
				if err != nil {
					return err
				}
				ctx := cmd.Context()
				a, err := app.NewSweeper(ctx, cfg, log)
				if err != nil {
					return err
				}
				defer a.Close()

				report, err := a.Watcher.Sweep(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			},
		},
	)
	return root
}
