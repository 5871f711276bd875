package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/zou/appbridge/internal/infrastructure/config"
	"github.com/zou/appbridge/internal/infrastructure/logging"
	"github.com/zou/appbridge/internal/infrastructure/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "appbridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags override environment variables
	port := flag.String("port", cfg.Server.Port, "Server port")
	host := flag.String("host", cfg.Server.Host, "Listen address")
	channel := flag.String("channel", cfg.Bridge.Channel, "Channel name shared with the UI layer")
	backend := flag.String("registry", cfg.Registry.Backend, "Registry backend: desktop or catalog")
	catalog := flag.String("catalog", cfg.Registry.Catalog, "Catalog file for the catalog backend")
	appDirs := flag.String("app-dirs", strings.Join(cfg.Registry.AppDirs, ","), "Comma-separated applications directories")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (colored logs, debug level)")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Server.Host = *host
	cfg.Bridge.Channel = *channel
	cfg.Registry.Backend = *backend
	cfg.Registry.Catalog = *catalog
	cfg.Registry.AppDirs = splitList(*appDirs)
	if *dev && !cfg.Logging.Development {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger := logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)
	defer logger.Sync()

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}

	logger.Info("Server stopped")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
