package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dishankoza/svcsync/internal/app"
	"github.com/dishankoza/svcsync/internal/config"
	"github.com/dishankoza/svcsync/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "registryd",
	Short:         "Run a svcsync registry node",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log, err := logging.New(cfg.Log, os.Stderr)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		node, err := app.New(cfg, log)
		if err != nil {
			log.Error("failed to build node", zap.Error(err))
			return fmt.Errorf("build node: %w", err)
		}
		if err := node.Run(ctx); err != nil {
			log.Error("node stopped with error", zap.Error(err))
			return fmt.Errorf("run node: %w", err)
		}
		log.Info("node stopped")
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (defaults plus environment when empty)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
