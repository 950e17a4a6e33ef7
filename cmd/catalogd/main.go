package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ondes-hq/radio-catalog/internal/app"
	"github.com/ondes-hq/radio-catalog/internal/config"
	"github.com/ondes-hq/radio-catalog/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "catalogd start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Close()

	log.InfoObj("catalogd starting", "config", map[string]any{
		"app_name":    cfg.AppName,
		"env":         cfg.Env,
		"listen_addr": cfg.ListenAddr,
		"endpoint":    cfg.GraphEndpoint,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := app.NewGateway(cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize gateway", "error", err)
		return err
	}

	if err := gateway.Run(ctx); err != nil {
		return fmt.Errorf("gateway run: %w", err)
	}
	return nil
}
