package config

import (
	"time"

	"github.com/rickgao/ranger/internal/model"
)

// RangerConfig is the root configuration for a ranger daemon instance.
type RangerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Ranger   StreamConfig   `yaml:"ranger"`
	Mailbox  MailboxConfig  `yaml:"mailbox"`
	Router   RouterConfig   `yaml:"router"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Writers  WritersConfig  `yaml:"writers"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Market   MarketConfig   `yaml:"market"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// StreamConfig holds the ranger WebSocket settings.
type StreamConfig struct {
	BaseURL             string        `yaml:"base_url"` // e.g. wss://host/api/v2/ranger
	Auth                bool          `yaml:"auth"`     // connect to the private endpoint
	Token               string        `yaml:"token"`    // session token, usually ${RANGER_TOKEN}
	ReconnectDelay      time.Duration `yaml:"reconnect_delay"`
	MaxReconnectDelay   time.Duration `yaml:"max_reconnect_delay"`
	HandshakeTimeout    time.Duration `yaml:"handshake_timeout"`
	WriteTimeout        time.Duration `yaml:"write_timeout"`
	PingInterval        time.Duration `yaml:"ping_interval"`
	PingTimeout         time.Duration `yaml:"ping_timeout"`
	ReadBuffer          int           `yaml:"read_buffer"`
	SubscribeOnInitOnly bool          `yaml:"subscribe_on_init_only"`
	OrderNotices        bool          `yaml:"order_notices"`
}

// MailboxConfig bounds and paces outbound control messages.
type MailboxConfig struct {
	MaxPending   int     `yaml:"max_pending"`  // 0 = default, negative = unbounded
	ControlRate  float64 `yaml:"control_rate"` // commands per second
	ControlBurst int     `yaml:"control_burst"`
}

// RouterConfig sizes the downstream sink buffers.
type RouterConfig struct {
	OrderbookBuffer int `yaml:"orderbook_buffer"`
	TradeBuffer     int `yaml:"trade_buffer"`
	TickerBuffer    int `yaml:"ticker_buffer"`
	KlineBuffer     int `yaml:"kline_buffer"`
	UserBuffer      int `yaml:"user_buffer"`
	MaxBuffer       int `yaml:"max_buffer"` // 0 = default, negative = unbounded
}

// LoggingConfig selects the log handler and optional file rotation.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // empty = stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DatabaseConfig holds the optional TimescaleDB recorder connection.
type DatabaseConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// MetricsConfig holds OpenTelemetry export and health server settings.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"` // OTLP HTTP endpoint
	Insecure bool          `yaml:"insecure"`
	Interval time.Duration `yaml:"interval"`
	Port     int           `yaml:"port"` // health server
}

// MarketConfig holds the startup market selection.
type MarketConfig struct {
	Initial string         `yaml:"initial"`
	Klines  []string       `yaml:"klines"` // periods subscribed for the initial market
	Markets []model.Market `yaml:"markets"`
}
