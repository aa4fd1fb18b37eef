package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/tradepost/catalog-server/internal/config"
	"github.com/tradepost/catalog-server/internal/di"
	"github.com/tradepost/catalog-server/internal/logger"
	"github.com/tradepost/catalog-server/internal/service"
	"github.com/tradepost/catalog-server/internal/taxonomy"
)

// catalog is the slice of the server container the CLI needs. Providers are
// lazy, so the HTTP server, broker and hub are never started.
type catalog struct {
	injector   *do.RootScope
	log        *logger.Logger
	categories *service.CategoryService
	importer   *taxonomy.Importer
}

func openCatalog() (*catalog, error) {
	cfg, err := config.Load(configFlags)
	if err != nil {
		return nil, err
	}
	if !verbose {
		cfg.Logger.Level = "warn"
	}

	injector := di.NewContainerWithConfig(cfg)

	categories, err := do.Invoke[*service.CategoryService](injector)
	if err != nil {
		_ = injector.Shutdown()
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	return &catalog{
		injector:   injector,
		log:        do.MustInvoke[*logger.Logger](injector),
		categories: categories,
		importer:   do.MustInvoke[*taxonomy.Importer](injector),
	}, nil
}

func (c *catalog) Close() {
	if err := c.injector.Shutdown(); err != nil {
		c.log.Error("Shutdown error", "error", err)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
