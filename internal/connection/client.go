package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one WebSocket connection to the ranger endpoint. A Client is
// used for a single connection attempt; reconnecting means creating a new
// one.
type Client interface {
	// Connect dials the socket and starts reading.
	Connect(ctx context.Context) error

	// Close sends a close frame and releases the socket. It is idempotent.
	Close() error

	// Send writes one text frame.
	Send(data []byte) error

	// Messages delivers inbound frames stamped with their local receive time.
	Messages() <-chan TimestampedMessage

	// Errors delivers at most one error: the reason the socket died.
	Errors() <-chan error

	// IsConnected reports whether the socket is open.
	IsConnected() bool
}

// ClientFactory creates a Client for one connection attempt.
type ClientFactory func(cfg ClientConfig, logger *slog.Logger) Client

// controlTimeout bounds pong and close frames.
const controlTimeout = time.Second

type wsClient struct {
	cfg    ClientConfig
	logger *slog.Logger

	frames   chan TimestampedMessage
	failures chan error
	quit     chan struct{}
	quitOnce sync.Once

	conn    atomic.Pointer[websocket.Conn]
	live    atomic.Bool
	shut    atomic.Bool
	heardAt atomic.Int64 // unix nanos of the last frame, ping or pong

	// Data frames need a single writer; control frames may be written
	// concurrently with them.
	writeMu sync.Mutex
}

// NewClient creates a gorilla-backed Client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &wsClient{
		cfg:      cfg,
		logger:   logger,
		frames:   make(chan TimestampedMessage, cfg.BufferSize),
		failures: make(chan error, 1),
		quit:     make(chan struct{}),
	}
}

func (c *wsClient) header() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		h.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return h
}

func (c *wsClient) Connect(ctx context.Context) error {
	if c.shut.Load() {
		return ErrAlreadyClosed
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, c.header())
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial: %w", err)
	}

	c.conn.Store(conn)
	if c.shut.Load() {
		// Close ran while dialing and saw no socket.
		conn.Close()
		return ErrAlreadyClosed
	}

	c.touch()
	conn.SetPingHandler(func(data string) error {
		c.touch()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(controlTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})
	c.live.Store(true)

	go c.readLoop(conn)
	go c.heartbeatLoop(conn)

	c.logger.Debug("websocket connected", "url", c.cfg.URL)
	return nil
}

func (c *wsClient) Close() error {
	var err error
	c.quitOnce.Do(func() {
		c.shut.Store(true)
		c.live.Store(false)
		close(c.quit)

		conn := c.conn.Load()
		if conn == nil {
			return
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(controlTimeout))
		err = conn.Close()
	})
	return err
}

func (c *wsClient) Send(data []byte) error {
	conn := c.conn.Load()
	if conn == nil || !c.live.Load() {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) Messages() <-chan TimestampedMessage { return c.frames }

func (c *wsClient) Errors() <-chan error { return c.failures }

func (c *wsClient) IsConnected() bool { return c.live.Load() }

func (c *wsClient) touch() {
	c.heardAt.Store(time.Now().UnixNano())
}

func (c *wsClient) quitting() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

// readLoop forwards frames until the socket fails or the client is closed.
// A full channel blocks the reader; dropping a frame would tear the order book.
func (c *wsClient) readLoop(conn *websocket.Conn) {
	defer c.live.Store(false)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.quitting() {
				c.fail(describeReadError(err))
			}
			return
		}
		now := time.Now()
		c.heardAt.Store(now.UnixNano())

		select {
		case c.frames <- TimestampedMessage{Data: data, ReceivedAt: now}:
		case <-c.quit:
			return
		}
	}
}

func describeReadError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return fmt.Errorf("closed by server (%d %q): %w", ce.Code, ce.Text, err)
	}
	return fmt.Errorf("read: %w", err)
}

func (c *wsClient) fail(err error) {
	select {
	case c.failures <- err:
	default:
	}
}

// heartbeatLoop pings on an interval and reports the socket stale when
// nothing has been heard for PingTimeout.
func (c *wsClient) heartbeatLoop(conn *websocket.Conn) {
	interval := c.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.quit:
			return
		case <-ticker.C:
		}

		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			c.logger.Debug("ping failed", "error", err)
		}

		silent := time.Since(time.Unix(0, c.heardAt.Load()))
		if c.cfg.PingTimeout > 0 && silent > c.cfg.PingTimeout {
			c.logger.Warn("connection stale",
				"silent_for", silent,
				"timeout", c.cfg.PingTimeout,
			)
			c.fail(ErrStaleConnection)
			return
		}
	}
}
