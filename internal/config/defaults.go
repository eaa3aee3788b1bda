package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultReconnectDelay    = 1 * time.Second
	DefaultMaxReconnectDelay = 30 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultPingInterval      = 30 * time.Second
	DefaultPingTimeout       = 90 * time.Second
	DefaultReadBuffer        = 1024
	DefaultMaxPending        = 256
	DefaultControlRate       = 20
	DefaultControlBurst      = 10
	DefaultOrderbookBuffer   = 1024
	DefaultTradeBuffer       = 1024
	DefaultTickerBuffer      = 256
	DefaultKlineBuffer       = 256
	DefaultUserBuffer        = 256
	DefaultMaxBuffer         = 65536
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultLogMaxSizeMB      = 10
	DefaultLogMaxBackups     = 3
	DefaultLogMaxAgeDays     = 28
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultBatchSize         = 1000
	DefaultFlushInterval     = 1 * time.Second
	DefaultMetricsInterval   = 15 * time.Second
	DefaultMetricsPort       = 9090
)

func (c *RangerConfig) applyDefaults() {
	// Stream defaults
	if c.Ranger.ReconnectDelay == 0 {
		c.Ranger.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Ranger.MaxReconnectDelay == 0 {
		c.Ranger.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	if c.Ranger.HandshakeTimeout == 0 {
		c.Ranger.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Ranger.WriteTimeout == 0 {
		c.Ranger.WriteTimeout = DefaultWriteTimeout
	}
	if c.Ranger.PingInterval == 0 {
		c.Ranger.PingInterval = DefaultPingInterval
	}
	if c.Ranger.PingTimeout == 0 {
		c.Ranger.PingTimeout = DefaultPingTimeout
	}
	if c.Ranger.ReadBuffer == 0 {
		c.Ranger.ReadBuffer = DefaultReadBuffer
	}

	// Mailbox defaults
	if c.Mailbox.MaxPending == 0 {
		c.Mailbox.MaxPending = DefaultMaxPending
	}
	if c.Mailbox.ControlRate == 0 {
		c.Mailbox.ControlRate = DefaultControlRate
	}
	if c.Mailbox.ControlBurst == 0 {
		c.Mailbox.ControlBurst = DefaultControlBurst
	}

	// Router defaults
	if c.Router.OrderbookBuffer == 0 {
		c.Router.OrderbookBuffer = DefaultOrderbookBuffer
	}
	if c.Router.TradeBuffer == 0 {
		c.Router.TradeBuffer = DefaultTradeBuffer
	}
	if c.Router.TickerBuffer == 0 {
		c.Router.TickerBuffer = DefaultTickerBuffer
	}
	if c.Router.KlineBuffer == 0 {
		c.Router.KlineBuffer = DefaultKlineBuffer
	}
	if c.Router.UserBuffer == 0 {
		c.Router.UserBuffer = DefaultUserBuffer
	}
	if c.Router.MaxBuffer == 0 {
		c.Router.MaxBuffer = DefaultMaxBuffer
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Database defaults
	applyDBDefaults(&c.Database.Timescale)

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}

	// Metrics defaults
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = DefaultMetricsInterval
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
