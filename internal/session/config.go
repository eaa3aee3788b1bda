package session

import "time"

// Config holds session configuration.
type Config struct {
	ReconnectDelay      time.Duration // Delay before the first reconnect. Default: 1s
	MaxReconnectDelay   time.Duration // Backoff ceiling. Default: 30s
	SubscribeOnInitOnly bool          // Only the first market selection subscribes
	RequestBuffer       int           // Pending caller requests. Default: 64
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
		RequestBuffer:     64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
	if c.MaxReconnectDelay < c.ReconnectDelay {
		c.MaxReconnectDelay = max(d.MaxReconnectDelay, c.ReconnectDelay)
	}
	if c.RequestBuffer <= 0 {
		c.RequestBuffer = d.RequestBuffer
	}
	return c
}
