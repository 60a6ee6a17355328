package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"daybook/internal/config"
	appLog "daybook/internal/log"
	"daybook/internal/model"
	"daybook/internal/schedule"
	"daybook/internal/seed"
)

var (
	configPath string
	envFile    string
	logLevel   string
	seedPath   string

	// conf is populated by PersistentPreRunE before any subcommand runs.
	conf *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "daybook",
	Short: "An in-memory schedule of events keyed by date and title",
	Long: `daybook keeps calendar events grouped by day and lets you look them
up, export them by date range or title, and remove them again.

  serve    Serve the schedule over a JSON API
  export   Print events from the seed file
  version  Print version information`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "daybook.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file with DAYBOOK_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "", "YAML or ICS file to load events from; overrides config")
}

// setup loads config, applies environment and flag overrides (in that
// order), and configures logging.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}

	env, err := config.Environment(envFile)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(env)

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if seedPath != "" {
		cfg.SeedFile = seedPath
	}

	level, err := appLog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	appLog.SetLevel(level)

	conf = cfg
	return nil
}

// loadSchedule builds the schedule from the configured seed file, or an
// empty one when no seed file is set.
func loadSchedule(cfg *config.Config) (*schedule.Schedule, error) {
	if cfg.SeedFile == "" {
		return schedule.New(), nil
	}
	events, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	return schedule.NewFrom(events), nil
}

func parseDateFlag(name, value string) (model.Date, error) {
	d, err := model.ParseDate(value)
	if err != nil {
		return model.Date{}, fmt.Errorf("--%s: %w (use YYYY-MM-DD)", name, err)
	}
	return d, nil
}
