package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	appLog "daybook/internal/log"
	"daybook/internal/retention"
	"daybook/internal/web"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the schedule over a JSON API",
	Long: `Load the seed file (if any) into memory and serve it over HTTP until
interrupted. Changes made through the API are not written back.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveListen != "" {
		conf.Listen = serveListen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"seed_file", conf.SeedFile,
		"log_level", conf.LogLevel,
		"retention_enabled", conf.Retention.Enabled,
		"retention_cron", conf.Retention.Cron,
		"retention_keep_days", conf.Retention.KeepDays,
	)

	sched, err := loadSchedule(conf)
	if err != nil {
		appLog.Error("failed to load seed", err, "seed_file", conf.SeedFile)
		return err
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	var mu sync.Mutex

	if conf.Retention.Enabled {
		pruner := &retention.Pruner{
			Schedule: sched,
			Mu:       &mu,
			KeepDays: conf.Retention.KeepDays,
		}
		pruner.RunOnce()
		if err := pruner.Start(conf.Retention.Cron); err != nil {
			return err
		}
		defer pruner.Stop()
	}

	srv := web.NewServer(conf, sched, &mu)
	if err := srv.Run(ctx); err != nil {
		appLog.Error("HTTP server failed", err, "listen", conf.Listen)
		return err
	}

	appLog.Info("daybook exiting")
	return nil
}
