package infrastructure

import (
	"walletdash/internal/config"
	transportNATS "walletdash/internal/transport/nats"

	"github.com/rs/zerolog"
)

func connectNats(cfg *config.Config, log zerolog.Logger) (*transportNATS.Bus, error) {
	return transportNATS.Connect(transportNATS.Options{
		URL:        cfg.NatsAddr(),
		User:       cfg.NatsUser,
		Password:   cfg.NatsPassword,
		BufferSize: cfg.BusBufferSize,
	}, log)
}
