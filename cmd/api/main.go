// Package main provides the entry point for the catalog API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/tradepost/catalog-server/internal/di"
	"github.com/tradepost/catalog-server/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "catalog server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	injector := di.NewContainer()
	if err := di.Bootstrap(injector); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutdown signal received, draining")

	// Services stop in reverse dependency order: HTTP first, store last.
	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown incomplete", "error", err)
		return err
	}
	log.Info("catalog server stopped")
	return nil
}
