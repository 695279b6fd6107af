// Package tracker consumes a ward location feed over WebSocket and submits
// decoded observations to the evaluation pipeline.
package tracker

import (
	"errors"
	"time"
)

// Reconnection defaults. 100ms doubling to a 30s ceiling reaches the cap
// after nine failed dials.
const (
	DefaultBaseDelay        = 100 * time.Millisecond
	DefaultMaxDelay         = 30 * time.Second
	DefaultJitterFactor     = 0.5
	DefaultMaxRetryAttempts = 5 // consecutive failures before the alert log line
)

var (
	ErrEmptyURL        = errors.New("feed URL cannot be empty")
	ErrInvalidDelay    = errors.New("base delay must be positive")
	ErrInvalidMaxDelay = errors.New("max delay must be >= base delay")
	ErrInvalidJitter   = errors.New("jitter factor must be between 0 and 1")
)

// Config controls the feed client's endpoint and reconnect behavior.
type Config struct {
	// URL of the location feed websocket endpoint.
	URL string

	// BaseDelay before the first reconnect attempt; doubles per failure.
	BaseDelay time.Duration

	// MaxDelay caps the backoff between reconnect attempts.
	MaxDelay time.Duration

	// JitterFactor in [0, 1] spreads each delay. 0.5 puts the actual
	// delay in [delay*0.75, delay*1.25].
	JitterFactor float64

	// MaxRetryAttempts sets how many consecutive failures are tolerated
	// before an alert-level log entry. 0 disables the alert.
	MaxRetryAttempts int64
}

// DefaultConfig fills everything but the URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		BaseDelay:        DefaultBaseDelay,
		MaxDelay:         DefaultMaxDelay,
		JitterFactor:     DefaultJitterFactor,
		MaxRetryAttempts: DefaultMaxRetryAttempts,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.URL == "":
		return ErrEmptyURL
	case c.BaseDelay <= 0:
		return ErrInvalidDelay
	case c.MaxDelay < c.BaseDelay:
		return ErrInvalidMaxDelay
	case c.JitterFactor < 0 || c.JitterFactor > 1:
		return ErrInvalidJitter
	}
	return nil
}
