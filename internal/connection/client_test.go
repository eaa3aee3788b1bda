package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsServer runs handler for every upgraded connection and records the
// Authorization header of the last handshake.
type wsServer struct {
	*httptest.Server

	mu   sync.Mutex
	auth string
}

func newWSServer(t *testing.T, handler func(*websocket.Conn)) *wsServer {
	t.Helper()
	s := &wsServer{}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.auth = r.Header.Get("Authorization")
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsServer) authorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// readUntilClosed keeps a server connection open until the client leaves.
func readUntilClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func dialTest(t *testing.T, s *wsServer, mutate func(*ClientConfig)) Client {
	t.Helper()
	cfg := DefaultClientConfig()
	cfg.URL = s.url()
	cfg.BufferSize = 16
	if mutate != nil {
		mutate(&cfg)
	}

	c := NewClient(cfg, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_ConnectAndClose(t *testing.T) {
	s := newWSServer(t, readUntilClosed)
	c := dialTest(t, s, nil)

	if !c.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := c.Send([]byte("x")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestClient_SendReachesServer(t *testing.T) {
	got := make(chan string, 1)
	s := newWSServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err == nil {
			got <- string(msg)
		}
		readUntilClosed(conn)
	})
	c := dialTest(t, s, nil)

	want := `{"type":"subscribe","channels":["global.tickers"]}`
	if err := c.Send([]byte(want)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case msg := <-got:
		if msg != want {
			t.Errorf("server received %q, want %q", msg, want)
		}
	case <-time.After(time.Second):
		t.Fatal("server did not receive the frame")
	}
}

func TestClient_MessagesInOrder(t *testing.T) {
	frames := []string{
		`{"global.tickers":{}}`,
		`{"btcusdt.trades":{"trades":[]}}`,
		`{"btcusdt.update":{"asks":[],"bids":[]}}`,
	}
	s := newWSServer(t, func(conn *websocket.Conn) {
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		readUntilClosed(conn)
	})
	c := dialTest(t, s, nil)

	timeout := time.After(time.Second)
	for i, want := range frames {
		select {
		case msg := <-c.Messages():
			if string(msg.Data) != want {
				t.Errorf("frame %d = %q, want %q", i, msg.Data, want)
			}
			if msg.ReceivedAt.IsZero() {
				t.Errorf("frame %d has zero ReceivedAt", i)
			}
		case <-timeout:
			t.Fatalf("received %d of %d frames", i, len(frames))
		}
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	c := NewClient(DefaultClientConfig(), nil)
	if err := c.Send([]byte("test")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
}

func TestClient_AnswersServerPing(t *testing.T) {
	pong := make(chan string, 1)
	s := newWSServer(t, func(conn *websocket.Conn) {
		conn.SetPongHandler(func(data string) error {
			pong <- data
			return nil
		})
		if err := conn.WriteControl(websocket.PingMessage, []byte("hb"), time.Now().Add(time.Second)); err != nil {
			return
		}
		readUntilClosed(conn)
	})
	c := dialTest(t, s, nil)

	select {
	case data := <-pong:
		if data != "hb" {
			t.Errorf("pong payload = %q, want hb", data)
		}
	case <-time.After(time.Second):
		t.Fatal("no pong for server ping")
	}
	if !c.IsConnected() {
		t.Error("IsConnected() = false after ping exchange")
	}
}

func TestClient_BearerToken(t *testing.T) {
	s := newWSServer(t, readUntilClosed)
	dialTest(t, s, func(cfg *ClientConfig) { cfg.Token = "secret" })

	if got := s.authorization(); got != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer secret")
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	s := newWSServer(t, readUntilClosed)
	dialTest(t, s, nil)

	if got := s.authorization(); got != "" {
		t.Errorf("Authorization = %q, want empty", got)
	}
}

func TestClient_ServerCloseReportsError(t *testing.T) {
	s := newWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
	})
	c := dialTest(t, s, nil)

	select {
	case err := <-c.Errors():
		var ce *websocket.CloseError
		if !errors.As(err, &ce) || ce.Code != websocket.CloseGoingAway {
			t.Errorf("error = %v, want CloseGoingAway close error", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close error")
	}
}

func TestClient_StaleConnection(t *testing.T) {
	// The server never reads, so client pings go unanswered.
	block := make(chan struct{})
	s := newWSServer(t, func(*websocket.Conn) { <-block })
	t.Cleanup(func() { close(block) })

	c := dialTest(t, s, func(cfg *ClientConfig) {
		cfg.PingInterval = 20 * time.Millisecond
		cfg.PingTimeout = 50 * time.Millisecond
	})

	select {
	case err := <-c.Errors():
		if !errors.Is(err, ErrStaleConnection) {
			t.Errorf("error = %v, want ErrStaleConnection", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stale connection not reported")
	}
}

func TestClient_DialFailure(t *testing.T) {
	s := httptest.NewServer(http.NotFoundHandler())
	defer s.Close()

	cfg := DefaultClientConfig()
	cfg.URL = "ws" + strings.TrimPrefix(s.URL, "http")
	err := NewClient(cfg, nil).Connect(context.Background())
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Errorf("Connect() error = %v, want ErrBadHandshake", err)
	}
}

func TestClient_ConnectAfterClose(t *testing.T) {
	c := NewClient(DefaultClientConfig(), nil)
	c.Close()

	if err := c.Connect(context.Background()); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("Connect() error = %v, want ErrAlreadyClosed", err)
	}
}

func TestDefaultConfigs(t *testing.T) {
	clientCfg := DefaultClientConfig()
	if clientCfg.PingTimeout != 90*time.Second {
		t.Errorf("PingTimeout = %v, want 90s", clientCfg.PingTimeout)
	}
	if clientCfg.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 10s", clientCfg.HandshakeTimeout)
	}

	supCfg := DefaultSupervisorConfig()
	if supCfg.MaxPending != 256 {
		t.Errorf("MaxPending = %d, want 256", supCfg.MaxPending)
	}
	if supCfg.EventBuffer != 4096 {
		t.Errorf("EventBuffer = %d, want 4096", supCfg.EventBuffer)
	}
}
