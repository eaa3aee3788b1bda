package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/rickgao/ranger/internal/model"
	"github.com/rickgao/ranger/internal/stream"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate checks that all required fields are set and values are valid.
func (c *RangerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Ranger.BaseURL == "" {
		return errors.New("ranger.base_url is required")
	}
	u, err := url.Parse(c.Ranger.BaseURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("ranger.base_url must be a ws:// or wss:// URL, got %q", c.Ranger.BaseURL)
	}
	if c.Ranger.Auth && c.Ranger.Token == "" {
		return errors.New("ranger.token is required when ranger.auth is set")
	}
	if c.Ranger.MaxReconnectDelay < c.Ranger.ReconnectDelay {
		return fmt.Errorf("ranger.max_reconnect_delay (%s) cannot be less than reconnect_delay (%s)",
			c.Ranger.MaxReconnectDelay, c.Ranger.ReconnectDelay)
	}
	if c.Ranger.ReadBuffer < 1 {
		return errors.New("ranger.read_buffer must be >= 1")
	}

	if c.Mailbox.ControlRate < 0 {
		return errors.New("mailbox.control_rate must be >= 0")
	}
	// A paced command waits at most one interval, within write_timeout.
	if c.Mailbox.ControlRate > 0 {
		interval := time.Duration(float64(time.Second) / c.Mailbox.ControlRate)
		if interval > c.Ranger.WriteTimeout {
			return fmt.Errorf("mailbox.control_rate %v/s paces commands %s apart, beyond ranger.write_timeout (%s)",
				c.Mailbox.ControlRate, interval, c.Ranger.WriteTimeout)
		}
	}

	if !slices.Contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %v, got %q", logLevels, c.Logging.Level)
	}
	if !slices.Contains(logFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %v, got %q", logFormats, c.Logging.Format)
	}

	if c.Database.Enabled {
		if err := c.Database.Timescale.validate("database.timescale"); err != nil {
			return err
		}
		if c.Writers.BatchSize < 1 {
			return errors.New("writers.batch_size must be >= 1")
		}
	}

	if c.Metrics.Enabled && c.Metrics.Endpoint == "" {
		return errors.New("metrics.endpoint is required when metrics.enabled is set")
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	for _, period := range c.Market.Klines {
		if !stream.ValidPeriod(period) {
			return fmt.Errorf("market.klines: unknown period %q", period)
		}
	}
	if len(c.Market.Klines) > 0 && c.Market.Initial == "" {
		return errors.New("market.klines requires market.initial")
	}
	if c.Market.Initial != "" && len(c.Market.Markets) > 0 {
		if !slices.ContainsFunc(c.Market.Markets, func(m model.Market) bool { return m.ID == c.Market.Initial }) {
			return fmt.Errorf("market.initial %q is not listed in market.markets", c.Market.Initial)
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
