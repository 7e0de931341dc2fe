// Package feed implements the persistent streaming connection that delivers
// live price ticks for one symbol.
package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/chart-back/pkg/config"
	"github.com/chart-back/pkg/models"
)

// Handlers are the lifecycle callback slots for a live feed connection.
// Any slot may be nil. OnClose fires exactly once, for both remote errors
// and deliberate shutdown; the two are not distinguished.
type Handlers struct {
	OnOpen    func()
	OnMessage func(models.Tick)
	OnClose   func()
}

// Dialer opens live feed connections against the upstream stream endpoint.
type Dialer struct {
	wsURL  string
	dialer *websocket.Dialer
	logger *logrus.Entry
}

// NewDialer creates a new feed dialer
func NewDialer(cfg *config.UpstreamConfig, logger *logrus.Logger) *Dialer {
	return &Dialer{
		wsURL: strings.TrimRight(cfg.WSURL, "/"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: logger.WithField("component", "feed"),
	}
}

// Open dials ws://{host}/ws/{symbol} and starts delivering ticks to the
// handlers. The symbol is used literally in the path; the upstream route
// expects the raw form, not percent-encoding. The connection never
// reconnects on its own; after OnClose the owner must open a new one.
func (d *Dialer) Open(symbol string, h Handlers) (*Connection, error) {
	endpoint := fmt.Sprintf("%s/ws/%s", d.wsURL, symbol)

	ws, _, err := d.dialer.Dial(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial feed for %s: %w", symbol, err)
	}

	conn := &Connection{
		ws:       ws,
		handlers: h,
		logger:   d.logger.WithField("symbol", symbol),
	}

	if h.OnOpen != nil {
		h.OnOpen()
	}

	go conn.readLoop()

	return conn, nil
}

// Connection is one open live feed stream.
type Connection struct {
	ws       *websocket.Conn
	handlers Handlers
	logger   *logrus.Entry

	closeOnce  sync.Once
	notifyOnce sync.Once
}

// readLoop pumps messages until the transport errors or the connection
// is closed locally.
func (c *Connection) readLoop() {
	defer c.notifyClose()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.WithError(err).Warn("Feed connection lost")
			}
			return
		}

		var tick models.Tick
		if err := json.Unmarshal(data, &tick); err != nil {
			// A malformed message is dropped; the stream stays up.
			c.logger.WithError(err).Warn("Failed to decode tick")
			continue
		}

		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(tick)
		}
	}
}

// notifyClose fires the OnClose handler at most once.
func (c *Connection) notifyClose() {
	c.notifyOnce.Do(func() {
		if c.handlers.OnClose != nil {
			c.handlers.OnClose()
		}
	})
}

// Close tears the connection down. Safe to call multiple times and on an
// already-failed connection.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.ws.Close()
	})
	return nil
}
