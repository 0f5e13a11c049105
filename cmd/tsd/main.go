// Package main is the triple store server's cobra entrypoint: a
// "serve" subcommand that runs the HTTP server and a "bootstrap"
// subcommand that creates the schema and the primordial
// self-referential statement. It's a cobra root command with
// flag-bearing subcommands and RunE error propagation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"triplestore/internal/config"
	"triplestore/internal/httpapi"
	"triplestore/internal/logging"
	"triplestore/internal/store"
	"triplestore/internal/value"
)

type serveFlags struct {
	configPath string
}

type bootstrapFlags struct {
	configPath string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "tsd",
		Short: "Triple store server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(bootstrapCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "tsd.toml", "Path to the server configuration file")
	return cmd
}

func bootstrapCmd() *cobra.Command {
	flags := &bootstrapFlags{}
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the schema and the primordial statement",
		Long: `Bootstrap connects to the configured database, creates the fixed
star schema (statement, blob, volume, file and their partial indexes)
if it does not already exist, and ensures the primordial
self-referential statement is present.

It is safe to run against an already-bootstrapped database.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBootstrap(flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "tsd.toml", "Path to the server configuration file")
	return cmd
}

func runServe(flags *serveFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Environment, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	handler := httpapi.New(db, log, cfg)
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}
}

func runBootstrap(flags *bootstrapFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Environment, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	handle, err := db.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	log.Info("bootstrap complete", zap.String("primordial", value.HandleString(handle)))
	fmt.Printf("primordial statement: %s\n", value.HandleString(handle))
	return nil
}
