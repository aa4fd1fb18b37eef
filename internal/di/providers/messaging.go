package providers

import (
	"github.com/samber/do/v2"

	"github.com/tradepost/catalog-server/internal/config"
	"github.com/tradepost/catalog-server/internal/logger"
	"github.com/tradepost/catalog-server/internal/messaging"
)

// BrokerHandle wraps the pub/sub broker with shutdown capability.
type BrokerHandle struct {
	messaging.Broker
}

// Shutdown implements do.Shutdownable.
func (h *BrokerHandle) Shutdown() error {
	return h.Close()
}

// ProvideBroker provides the in-process broker or, for multi-instance
// deployments, the Redis broker.
func ProvideBroker(i do.Injector) (*BrokerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Messaging.Broker == config.BrokerRedis {
		broker, err := messaging.ConnectRedis(messaging.RedisOptions{
			Addr:     cfg.Messaging.RedisAddr,
			Password: cfg.Messaging.RedisPassword,
			DB:       cfg.Messaging.RedisDB,
		}, log.Component("redis"))
		if err != nil {
			return nil, err
		}
		log.Info("Messaging broker connected", "broker", "redis", "addr", cfg.Messaging.RedisAddr)
		return &BrokerHandle{Broker: broker}, nil
	}

	log.Info("Messaging broker started", "broker", "memory")
	return &BrokerHandle{Broker: messaging.NewMemoryBroker(messaging.DefaultBuffer, log.Component("broker"))}, nil
}

// HubHandle wraps the messaging hub with shutdown capability.
type HubHandle struct {
	*messaging.Hub
}

// Shutdown implements do.Shutdownable.
func (h *HubHandle) Shutdown() error {
	return h.Hub.Shutdown()
}

// ProvideHub provides the direct messaging and presence hub.
func ProvideHub(i do.Injector) (*HubHandle, error) {
	brokerHandle := do.MustInvoke[*BrokerHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return &HubHandle{Hub: messaging.NewHub(brokerHandle.Broker, storeHandle.Store, log.Component("messaging"))}, nil
}
