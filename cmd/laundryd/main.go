package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var logger = log.New(os.Stdout, "laundry-notifier ", log.LstdFlags)

func main() {
	if err := rootCmd().Execute(); err != nil {
		logger.Fatalf("command failed: %v", err)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	serve := serveCmd(&configPath)
	cmd := &cobra.Command{
		Use:          "laundryd",
		Short:        "Watch laundry machines and notify users when their load is done",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the YAML configuration file")
	cmd.AddCommand(serve)
	cmd.AddCommand(statusCmd(&configPath))
	return cmd
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml"
}
