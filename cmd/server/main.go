package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FreePeak/db-copilot/internal/config"
	"github.com/FreePeak/db-copilot/internal/logger"
)

const (
	serverName    = "db-copilot"
	serverVersion = "1.0.0"
)

var (
	transportFlag string
	portFlag      int
	logLevelFlag  string
)

var rootCmd = &cobra.Command{
	Use:           serverName,
	Short:         "Catalog-governed database copilot",
	Long:          `db-copilot routes chat turns, publishes catalog-approved database operations as tools, and audits every invocation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&transportFlag, "transport", "t", "", "Transport mode (stdio, sse or http)")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "Server port")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig reads the configuration and applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if transportFlag != "" {
		cfg.TransportMode = transportFlag
	}
	if portFlag != 0 {
		cfg.ServerPort = portFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Initialize(cfg.LogLevel)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
