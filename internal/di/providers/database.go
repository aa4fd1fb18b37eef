package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/tradepost/catalog-server/internal/config"
	"github.com/tradepost/catalog-server/internal/logger"
	"github.com/tradepost/catalog-server/internal/store"
	"github.com/tradepost/catalog-server/internal/store/postgres"
	"github.com/tradepost/catalog-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
	Driver string
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the record store selected by configuration.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	s, err := OpenStore(cfg.Store, log)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "driver", cfg.Store.Driver, "path", cfg.Store.Path)

	return &StoreHandle{Store: s, Driver: cfg.Store.Driver}, nil
}

// OpenStore opens the store for cfg. It is shared with the CLI, which runs
// without the container's server providers.
func OpenStore(cfg config.StoreConfig, log *logger.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.Path, log.Component("sqlite"))
	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return postgres.Open(ctx, cfg.DSN, cfg.PostgresDriver, log.Component("postgres"))
	case config.DriverBadger:
		return store.OpenBadger(cfg.Path, log.Component("badger"))
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
