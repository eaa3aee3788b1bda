package connection

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rickgao/ranger/internal/stream"
)

// fakeClient is an in-memory Client.
type fakeClient struct {
	cfg        ClientConfig
	connectErr error
	sendErr    error

	messages chan TimestampedMessage
	errors   chan error

	mu        sync.Mutex
	sent      [][]byte
	connected bool
	closed    bool
}

func (c *fakeClient) Connect(ctx context.Context) error {
	if c.connectErr != nil {
		return c.connectErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.closed = true
	return nil
}

func (c *fakeClient) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	if !c.connected {
		return ErrNotConnected
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

func (c *fakeClient) Messages() <-chan TimestampedMessage { return c.messages }
func (c *fakeClient) Errors() <-chan error                { return c.errors }

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) commands(t *testing.T) []stream.Command {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]stream.Command, 0, len(c.sent))
	for _, raw := range c.sent {
		var cmd stream.Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			t.Fatalf("sent frame %s: %v", raw, err)
		}
		out = append(out, cmd)
	}
	return out
}

// fakeFactory records every client it creates.
type fakeFactory struct {
	mu         sync.Mutex
	clients    []*fakeClient
	connectErr error
}

func (f *fakeFactory) New(cfg ClientConfig, _ *slog.Logger) Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeClient{
		cfg:        cfg,
		connectErr: f.connectErr,
		messages:   make(chan TimestampedMessage, 16),
		errors:     make(chan error, 1),
	}
	f.clients = append(f.clients, c)
	return c
}

func (f *fakeFactory) last(t *testing.T) *fakeClient {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.clients) == 0 {
		t.Fatal("no client created")
	}
	return f.clients[len(f.clients)-1]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// step reads one event and applies it.
func step(t *testing.T, s *Supervisor) (Event, Transition) {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev, s.Handle(ev)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for supervisor event")
		return Event{}, TransitionNone
	}
}

func newTestSupervisor(t *testing.T, f *fakeFactory, mutate func(*SupervisorConfig)) *Supervisor {
	t.Helper()
	cfg := DefaultSupervisorConfig()
	cfg.BaseURL = "ws://ranger.test"
	cfg.ControlRate = 0
	if mutate != nil {
		mutate(&cfg)
	}
	s := NewSupervisor(cfg, f.New, nil, nil)
	t.Cleanup(s.Shutdown)
	return s
}

// fakeLink is a Link with a switchable ready flag.
type fakeLink struct {
	ready bool
	err   error
	sent  []stream.Command
}

func (l *fakeLink) Ready() bool { return l.ready }

func (l *fakeLink) Transmit(cmd stream.Command) error {
	if l.err != nil {
		return l.err
	}
	l.sent = append(l.sent, cmd)
	return nil
}
