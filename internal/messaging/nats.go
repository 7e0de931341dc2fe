// Package messaging fans reconciled chart updates out over NATS so other
// consumers (alerting, recording) can observe them without touching the
// pipelines. Updates are ephemeral; nothing replays them, so plain core
// NATS publish is enough.
package messaging

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/chart-back/pkg/config"
	"github.com/chart-back/pkg/models"
)

// Client handles NATS messaging operations
type Client struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewClient creates a new NATS client
func NewClient(cfg *config.NATSConfig, logger *logrus.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{
		conn:   conn,
		logger: logger.WithField("component", "nats"),
	}, nil
}

// Close closes the NATS connection
func (c *Client) Close() error {
	c.conn.Close()
	return nil
}

// IsConnected checks if NATS is connected
func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

// PublishTick publishes a live tick on charts.ticks.<symbol>.
func (c *Client) PublishTick(symbol string, tick *models.Tick) error {
	data, err := json.Marshal(tick)
	if err != nil {
		return fmt.Errorf("failed to marshal tick: %w", err)
	}

	subject := fmt.Sprintf("charts.ticks.%s", subjectToken(symbol))
	return c.conn.Publish(subject, data)
}

// PublishSeriesUpdate publishes a widget snapshot on charts.series.<id>.
func (c *Client) PublishSeriesUpdate(snap *models.WidgetSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	subject := fmt.Sprintf("charts.series.%d", snap.ID)
	return c.conn.Publish(subject, data)
}

// subjectToken makes a symbol safe for use as a NATS subject token.
func subjectToken(symbol string) string {
	return strings.NewReplacer("/", "_", ".", "_", " ", "_", "*", "_", ">", "_").Replace(symbol)
}
