package vega

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Aegizz/OptiverTradingGame/internal/domain/models"
	drepo "github.com/Aegizz/OptiverTradingGame/internal/domain/repository"
	applogger "github.com/Aegizz/OptiverTradingGame/pkg/logger"
)

// ErrNotConnected reports an operation attempted before Connect or after
// Close.
var ErrNotConnected = errors.New("not connected")

// Client is a GameStream over the vega websocket endpoint. One client
// serves one connection attempt; the supervisor builds a fresh one per
// attempt through the stream factory.
type Client struct {
	url         string
	playerID    string
	token       string
	dialTimeout time.Duration

	logger  *applogger.Logger
	metrics drepo.Metrics

	mu        sync.Mutex // serializes writes and guards conn swaps
	conn      *websocket.Conn
	connected bool
}

func New(
	url, playerID, token string,
	dialTimeout time.Duration,
	logger *applogger.Logger,
	metrics drepo.Metrics,
) *Client {
	return &Client{
		url:         url,
		playerID:    playerID,
		token:       token,
		dialTimeout: dialTimeout,
		logger:      logger,
		metrics:     metrics,
	}
}

// Connect dials the game server.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("vega connect %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Debug("vega connected", applogger.String("url", c.url))
	return nil
}

// Hello announces this session under the given alias. The server's
// acknowledgment arrives later as a connection event carrying our
// player id.
func (c *Client) Hello(alias string) error {
	return c.Send(models.NewHello(alias, c.playerID, c.token))
}

// Send writes one envelope. Safe for concurrent use.
func (c *Client) Send(env *models.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("vega send %s: %w", env.Event, ErrNotConnected)
	}
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("vega send %s: %w", env.Event, err)
	}
	return nil
}

// Read streams decoded envelopes until the connection fails or ctx ends.
// Frames that fail to decode are logged, counted, and skipped; the
// session keeps running. Both channels close when the reader exits, and
// Close unblocks a reader stuck on the socket.
func (c *Client) Read(ctx context.Context) (<-chan *models.Envelope, <-chan error) {
	envs := make(chan *models.Envelope, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(envs)
		defer close(errs)

		for {
			if ctx.Err() != nil {
				return
			}

			c.mu.Lock()
			conn, up := c.conn, c.connected
			c.mu.Unlock()
			if conn == nil || !up {
				errs <- fmt.Errorf("vega read: %w", ErrNotConnected)
				return
			}

			_, raw, err := conn.ReadMessage()
			if err != nil {
				select {
				case errs <- fmt.Errorf("vega read: %w", err):
				default:
				}
				return
			}

			var env models.Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				c.logger.Warn("dropping undecodable frame",
					applogger.Error(err),
					applogger.Int("bytes", len(raw)),
				)
				c.metrics.RecordError("decode")
				continue
			}

			select {
			case envs <- &env:
			case <-ctx.Done():
				return
			}
		}
	}()

	return envs, errs
}

// Close tears the connection down; a blocked Read returns with an error.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// IsConnected reports whether Connect succeeded and Close has not run.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
