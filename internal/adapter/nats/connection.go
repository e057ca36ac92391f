package nats

import (
	"fmt"
	"time"

	"github.com/FayezAlshami/DTC/internal/app/config"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/nats-io/nats.go"
)

func Connect(cfg config.NATSConfig, log logger.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warnf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	log.Infof("Connected to NATS at %s", conn.ConnectedUrl())
	return conn, nil
}
