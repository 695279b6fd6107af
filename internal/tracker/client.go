package tracker

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// MessageHandler processes one frame from the feed. Returning an error
// drops the connection; the client then reconnects.
type MessageHandler func(messageType int, payload []byte) error

// Client consumes the websocket location feed. Lost connections are
// re-dialed with exponential backoff plus jitter, so a fleet of trackers
// does not stampede the feed when it comes back.
type Client struct {
	config  Config
	handler MessageHandler
	logger  *slog.Logger

	mu          sync.Mutex
	rng         *rand.Rand // guarded by mu
	conn        *websocket.Conn
	isConnected bool

	reconnectCount int64 // consecutive failed dials, atomic
}

// NewClient validates the config and builds a client. A nil logger falls
// back to slog.Default; the handler may be nil for connectivity probes.
func NewClient(config Config, handler MessageHandler, logger *slog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:  config,
		handler: handler,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Run dials the feed and processes frames until ctx is cancelled,
// reconnecting as needed. The only return value is ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("feed client stopping due to context cancellation")
			c.close()
			return ctx.Err()
		default:
		}

		if err := c.connect(ctx); err != nil {
			if cont := c.waitBeforeRetry(ctx, err); !cont {
				return ctx.Err()
			}
			continue
		}

		atomic.StoreInt64(&c.reconnectCount, 0)
		c.readLoop(ctx)
	}
}

// waitBeforeRetry logs the failure and sleeps out the backoff. Returns
// false when ctx is cancelled during the wait.
func (c *Client) waitBeforeRetry(ctx context.Context, err error) bool {
	attempt := atomic.LoadInt64(&c.reconnectCount) + 1
	c.logger.Warn("feed connection failed",
		slog.String("error", err.Error()),
		slog.Int64("attempt", attempt))

	delay := c.computeBackoff()
	atomic.AddInt64(&c.reconnectCount, 1)

	if c.config.MaxRetryAttempts > 0 && attempt >= c.config.MaxRetryAttempts {
		c.logger.Error("feed unreachable after repeated attempts",
			slog.Int64("attempts", attempt))
	}

	c.logger.Info("scheduling reconnect",
		slog.Duration("delay", delay),
		slog.Int64("attempt", atomic.LoadInt64(&c.reconnectCount)))

	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

func (c *Client) connect(ctx context.Context) error {
	c.logger.Info("connecting to location feed", slog.String("url", c.config.URL))

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.isConnected = true
	c.mu.Unlock()

	c.logger.Info("connected to location feed")
	return nil
}

// readLoop pumps frames into the handler until the connection dies or
// ctx is cancelled.
func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Snapshot under the lock; close() may nil the conn concurrently.
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("feed connection closed", slog.String("error", err.Error()))
			c.close()
			return
		}

		if c.handler == nil {
			continue
		}
		if err := c.handler(messageType, payload); err != nil {
			c.logger.Error("message handler error", slog.String("error", err.Error()))
			c.close()
			return
		}
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.isConnected = false
}

// computeBackoff returns BaseDelay doubled per failed attempt, capped at
// MaxDelay, then spread by JitterFactor so reconnects from many trackers
// desynchronize.
func (c *Client) computeBackoff() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Shift capped at 30 to keep the multiplication in range.
	shift := uint(atomic.LoadInt64(&c.reconnectCount))
	if shift > 30 {
		shift = 30
	}

	backoff := float64(c.config.BaseDelay) * float64(uint64(1)<<shift)
	if max := float64(c.config.MaxDelay); backoff > max {
		backoff = max
	}

	// delay lands in [delay*(1-jitter/2), delay*(1+jitter/2)].
	if c.config.JitterFactor > 0 {
		backoff *= 1 + (c.rng.Float64()-0.5)*c.config.JitterFactor
	}

	return time.Duration(backoff)
}

// IsConnected reports whether a feed connection is currently up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}
