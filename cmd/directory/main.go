package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dishankoza/svcsync/internal/config"
	"github.com/dishankoza/svcsync/internal/discovery"
	"github.com/dishankoza/svcsync/internal/logging"
)

var (
	addr     string
	file     string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "directory",
	Short:         "Serve the service directory that registry nodes resolve backends from",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logging.New(config.LogConfig{Level: logLevel}, os.Stderr)
		if err != nil {
			return err
		}
		defer log.Sync()

		dir, err := discovery.OpenDirectory(file)
		if err != nil {
			return fmt.Errorf("open directory: %w", err)
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           discovery.NewHandler(dir, log),
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		log.Info("directory running", zap.String("addr", addr), zap.String("file", file), zap.Int("services", len(dir.List())))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", envOr("DIRECTORY_ADDR", ":30000"), "listen address")
	rootCmd.Flags().StringVar(&file, "file", envOr("DIRECTORY_PATH", "directory.json"), "JSON file holding the directory")
	rootCmd.Flags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
