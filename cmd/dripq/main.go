package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dripq/dripq/internal/app"
	"github.com/dripq/dripq/internal/config"
)

var (
	cfgFile   string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dripq",
	Short: "dripq - outbound campaign scheduler",
	Long:  `dripq schedules bulk email campaigns and delivers them under per-sender hourly quotas.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and delivery workers",
	RunE:  runServe(app.ModeAll),
}

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server only",
	Long:  `Start only the HTTP API. Delivery is left to separate worker instances sharing the same Redis and database.`,
	RunE:  runServe(app.ModeAPI),
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start delivery workers only",
	Long:  `Start only the delivery workers. Campaigns are accepted by separate API instances sharing the same Redis and database.`,
	RunE:  runServe(app.ModeWorker),
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dripq version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(serveCmd, apiCmd, workerCmd, configCmd, versionCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runServe(mode app.Mode) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		application, err := app.New(cfg, mode, version)
		if err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		return application.Run(context.Background())
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("  Hostname: %s\n", cfg.Server.Hostname)
	fmt.Printf("  API: %s\n", cfg.API.ListenAddr)
	fmt.Printf("  Workers: %d\n", cfg.Queue.Workers)
	fmt.Printf("  Default hourly limit: %d\n", cfg.RateLimit.DefaultHourlyLimit)
	if cfg.Database.DSN != "" {
		fmt.Printf("  Database: configured\n")
	} else {
		fmt.Printf("  Database: in-memory\n")
	}
	if cfg.Redis.URL != "" {
		fmt.Printf("  Redis: %s\n", cfg.Redis.URL)
	} else {
		fmt.Printf("  Redis: in-memory\n")
	}

	return nil
}
